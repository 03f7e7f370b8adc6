// Package columnize turns raw log lines into records of named fields.
//
// A Columnizer holds ordered field definitions and ordered patterns. The
// first pattern that matches the whole trimmed line supplies the field
// values; when none does, the raw line lands in the first field so no line
// is ever dropped.
package columnize
