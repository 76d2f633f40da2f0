// Package dom applies batches of heterogeneous edit operations to a parsed
// HTML document and can reverse them.
//
// Each operation in a batch is applied in order against a freshly resolved
// selector, capturing whatever prior state is needed to invert it. Failures
// are per-operation: one bad selector never aborts the batch. Successful
// operations form an undo batch pushed onto a last-in-first-out stack;
// undoing a batch inverts its records in reverse application order.
//
// The package also provides the highlighter, which marks a single element at
// a time with a restorable outline.
package dom
