// Package storage defines the record persistence contract: the six-kind
// value variant exchanged at every I/O boundary, the Spec describing how a
// record type maps onto a keyed column set, the composable query tree, and
// the Adapter operation set that backends implement.
//
// The package is pure data and interfaces; it performs no I/O. Backends such
// as storage/sqlite translate the contract into concrete SQL.
package storage
