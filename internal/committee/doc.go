// Package committee holds the static committee reference table and the pure
// URL rules built on it: resolving a hearing page to its committee, parsing
// hearing date codes, and expanding ISVP manifest templates.
//
// A Registry is loaded once at startup and never mutated; pass it explicitly
// to the components that need it.
package committee
