// Package colorize picks a display style for each log record.
//
// Configured rules match a regular expression against either the raw line
// or one named field. The first matching rule wins; a fallback style sits
// behind them and an optional search highlight in front. Each visible row
// holds a Binding, a small first-match engine that recomputes only when its
// record, a rule or the rule order changes.
package colorize
