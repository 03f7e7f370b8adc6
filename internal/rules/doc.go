// Package rules implements ordered, first-match rule evaluation over
// observable inputs.
//
// A Rule pairs a Matcher with a result. A RuleSet orders rules by priority.
// An Engine bound to a RuleSet and an input yields the result of the
// earliest rule whose matcher accepts the input, or a default. The engine
// tracks structural edits of the set, replacement of any rule's matcher or
// result, internal changes of any matcher and changes of the input. It
// recomputes lazily on read.
//
// Like package observe, nothing here is safe for concurrent use.
package rules
