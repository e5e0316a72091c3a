// Package session provides a web session store backed by a record adapter,
// with string session IDs as keys and JSON-encoded session values as the
// record payload.
//
// The adapter contract is synchronous, so every store operation is offloaded
// to a bounded blocking worker pool and awaited. Cancelling the caller's
// context abandons the wait, not the statement: a write that already reached
// the database stays committed.
package session
