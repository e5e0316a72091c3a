package storage

import "context"

// Spec describes how one collection's record type maps onto a keyed column
// set. Implementations are pure: no I/O, no hidden state. A Spec is built
// once per collection and never mutated.
type Spec[K, D any] interface {
	// Fields returns the ordered, non-empty column list. The key field
	// appears exactly once.
	Fields() []Field

	// KeyField names the primary-key column; it must match one entry of
	// Fields.
	KeyField() string

	// SerializeKey converts a key to a value whose kind matches the key
	// field's kind.
	SerializeKey(key K) Value

	// DeserializeKey converts a stored key value back to the key type.
	DeserializeKey(v Value) (K, bool)

	// SerializeData converts a record to a column-name-keyed value map. The
	// map's keys must be a subset of Fields names; the key column may be
	// omitted (it is supplied separately). Returning false marks the record
	// as not storable.
	SerializeData(data D) (map[string]Value, bool)

	// DeserializeData rebuilds a record from every column of a row, keyed by
	// column name. Returning false marks the row as not reconstructible;
	// adapters skip such rows on enumeration and report a miss on load.
	DeserializeData(row map[string]Value) (D, bool)
}

// Entry is one key/record pair returned by enumeration.
type Entry[K, D any] struct {
	Key  K
	Data D
}

// StoreError reports a failed mutating write. The message is free-form and
// intended for logs, not programmatic dispatch.
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string { return e.Message }

// Adapter is a synchronous handle over one table. Operations block until the
// underlying store returns; there are no internal goroutines. Async callers
// offload to a blocking worker.
type Adapter[K, D any] interface {
	// Initialize ensures the backing table exists with the Spec's columns
	// and primary key. Idempotent.
	Initialize(ctx context.Context) error

	// Load returns the decoded record for key. A missing row and a row that
	// fails to decode both report found == false.
	Load(ctx context.Context, key K) (data D, found bool, err error)

	// Contains reports whether at least one row exists for key. No columns
	// beyond the key are decoded.
	Contains(ctx context.Context, key K) (bool, error)

	// Store inserts one row. It fails with a *StoreError when the record
	// does not serialize or when the store rejects the insert, including a
	// primary-key conflict: Store is insert, not upsert.
	Store(ctx context.Context, key K, data D) error

	// Update writes selected non-key columns of data for the row matching
	// key. A nil only updates every non-key field; otherwise only the listed
	// fields, in Fields declaration order. No matching row is not an error.
	Update(ctx context.Context, key K, data D, only []string) error

	// Delete removes the row matching key; silent when absent.
	Delete(ctx context.Context, key K) error

	// Clear removes every row in the table.
	Clear(ctx context.Context) error

	// Scan returns rows ordered by key ascending, skipping start rows and
	// returning at most limit; a negative limit means unlimited. Rows that
	// fail to decode are dropped.
	Scan(ctx context.Context, start, limit int) ([]Entry[K, D], error)
}

// Queryable is implemented by adapters that can restrict enumeration with a
// query tree.
type Queryable[K, D any] interface {
	// QueryRecords behaves like Scan restricted to rows matching q.
	QueryRecords(ctx context.Context, q Query, start, limit int) ([]Entry[K, D], error)
}
