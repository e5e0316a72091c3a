// Package sqlite implements the storage adapter contract over a single
// SQLite table per collection, using the modernc.org/sqlite driver.
//
// The adapter generates all SQL itself from the collection's Spec: table
// creation, insert, partial and full update, keyed lookup and delete,
// ordered enumeration, and compiled predicate queries. Because the SQL is
// derived from trusted configuration, identifiers are interpolated without
// escaping; only values travel as bound parameters.
package sqlite
