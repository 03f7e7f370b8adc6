package columnize

// Record is one parsed line: named field values plus the original raw text.
// Records are immutable once built.
type Record struct {
	raw    string
	fields map[string]string
}

// NewRecord builds a record from raw and a copy of fields.
func NewRecord(raw string, fields map[string]string) Record {
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Record{raw: raw, fields: cp}
}

// Raw returns the line as it was read.
func (r Record) Raw() string { return r.raw }

// Field returns the value of the named field, or "" when absent.
func (r Record) Field(name string) string { return r.fields[name] }

// Has reports whether the record carries the named field.
func (r Record) Has(name string) bool {
	_, ok := r.fields[name]
	return ok
}

// Fields returns a copy of the field map.
func (r Record) Fields() map[string]string {
	cp := make(map[string]string, len(r.fields))
	for k, v := range r.fields {
		cp[k] = v
	}
	return cp
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }
