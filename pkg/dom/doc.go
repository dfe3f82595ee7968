// Package dom adapts golang.org/x/net/html nodes into the live document
// fbind compiles and updates.
//
// The html package gives a mutable tree with ordered attributes,
// InsertBefore/RemoveChild and a renderer. This package adds the operations
// the update strategies need (text content, inner markup, inline style
// properties) and a Document that keeps per-node runtime state html.Node has
// no room for: the compile-time identifier, the in-progress input flag and
// event listeners.
package dom
