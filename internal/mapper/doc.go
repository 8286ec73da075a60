// Package mapper normalizes raw upstream payloads into canonical model
// records.
//
// The upstream schema has observed variants, so every logical field is
// extracted by probing a priority-ordered list of candidate keys; the first
// key that resolves to a defined value wins. Adding a new upstream variant
// means appending a key to the relevant list, not editing control flow.
//
// All functions are pure: no network, cache, or store knowledge.
package mapper
