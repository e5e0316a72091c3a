package sqlite

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"slices"
	"testing"

	"github.com/louisbranch/recordstore/storage"
)

// testRecord exercises every supported kind alongside a string key.
type testRecord struct {
	String   string
	Bytes    []byte
	Integer  int64
	Unsigned uint64
	Float    float32
	Double   float64
}

func (r testRecord) equal(other testRecord) bool {
	return r.String == other.String &&
		slices.Equal(r.Bytes, other.Bytes) &&
		r.Integer == other.Integer &&
		r.Unsigned == other.Unsigned &&
		r.Float == other.Float &&
		r.Double == other.Double
}

var testFields = []storage.Field{
	{Name: "key", Kind: storage.KindString},
	{Name: "string", Kind: storage.KindString},
	{Name: "bytes", Kind: storage.KindBytes},
	{Name: "integer", Kind: storage.KindInt},
	{Name: "unsigned_integer", Kind: storage.KindUint},
	{Name: "float", Kind: storage.KindFloat32},
	{Name: "double", Kind: storage.KindFloat64},
}

type testSpec struct{}

func (testSpec) Fields() []storage.Field { return testFields }

func (testSpec) KeyField() string { return "key" }

func (testSpec) SerializeKey(key string) storage.Value { return storage.StringValue(key) }

func (testSpec) DeserializeKey(v storage.Value) (string, bool) { return v.AsString() }

func (testSpec) SerializeData(data testRecord) (map[string]storage.Value, bool) {
	return map[string]storage.Value{
		"string":           storage.StringValue(data.String),
		"bytes":            storage.BytesValue(data.Bytes),
		"integer":          storage.IntValue(data.Integer),
		"unsigned_integer": storage.UintValue(data.Unsigned),
		"float":            storage.Float32Value(data.Float),
		"double":           storage.Float64Value(data.Double),
	}, true
}

func (testSpec) DeserializeData(row map[string]storage.Value) (testRecord, bool) {
	var out testRecord
	var ok bool
	if out.String, ok = row["string"].AsString(); !ok {
		return testRecord{}, false
	}
	if out.Bytes, ok = row["bytes"].AsBytes(); !ok {
		return testRecord{}, false
	}
	if out.Integer, ok = row["integer"].AsInt(); !ok {
		return testRecord{}, false
	}
	if out.Unsigned, ok = row["unsigned_integer"].AsUint(); !ok {
		return testRecord{}, false
	}
	if out.Float, ok = row["float"].AsFloat32(); !ok {
		return testRecord{}, false
	}
	if out.Double, ok = row["double"].AsFloat64(); !ok {
		return testRecord{}, false
	}
	return out, true
}

// rejectingSpec refuses to rebuild records with a negative integer column.
type rejectingSpec struct{ testSpec }

func (rejectingSpec) DeserializeData(row map[string]storage.Value) (testRecord, bool) {
	out, ok := testSpec{}.DeserializeData(row)
	if !ok || out.Integer < 0 {
		return testRecord{}, false
	}
	return out, true
}

// unserializableSpec marks every record as not storable.
type unserializableSpec struct{ testSpec }

func (unserializableSpec) SerializeData(testRecord) (map[string]storage.Value, bool) {
	return nil, false
}

func newTestAdapter(t *testing.T) *Adapter[string, testRecord] {
	t.Helper()
	sqlDB, err := Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})

	adapter := New[string, testRecord](sqlDB, "records", testSpec{})
	if err := adapter.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return adapter
}

func sampleRecord() testRecord {
	return testRecord{
		String:   "abc",
		Bytes:    []byte{0, 1, 255},
		Integer:  math.MaxInt64,
		Unsigned: math.MaxUint32,
		Float:    0.0,
		Double:   1.5,
	}
}

func mustStore(t *testing.T, adapter *Adapter[string, testRecord], key string, data testRecord) {
	t.Helper()
	if err := adapter.Store(context.Background(), key, data); err != nil {
		t.Fatalf("store %q: %v", key, err)
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	mustStore(t, adapter, "test", sampleRecord())
	if err := adapter.Initialize(ctx); err != nil {
		t.Fatalf("second initialize: %v", err)
	}

	found, err := adapter.Contains(ctx, "test")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if !found {
		t.Fatal("row lost after re-initialize")
	}
}

func TestStoreLoadRoundTrip(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	want := sampleRecord()
	mustStore(t, adapter, "test", want)

	got, found, err := adapter.Load(ctx, "test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !found {
		t.Fatal("expected row")
	}
	if !got.equal(want) {
		t.Fatalf("load = %+v, want %+v", got, want)
	}

	contains, err := adapter.Contains(ctx, "test")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if !contains {
		t.Fatal("expected contains")
	}
}

func TestLoadMissIsNotAnError(t *testing.T) {
	adapter := newTestAdapter(t)

	_, found, err := adapter.Load(context.Background(), "absent")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Fatal("expected miss")
	}
}

func TestStoreIsInsertNotUpsert(t *testing.T) {
	adapter := newTestAdapter(t)

	mustStore(t, adapter, "test", sampleRecord())
	err := adapter.Store(context.Background(), "test", sampleRecord())
	if err == nil {
		t.Fatal("expected primary-key conflict")
	}
	var storeErr *storage.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("error = %T, want *storage.StoreError", err)
	}
}

func TestStoreSerializationFailure(t *testing.T) {
	adapter := newTestAdapter(t)
	broken := New[string, testRecord](adapter.sqlDB, "records", unserializableSpec{})

	err := broken.Store(context.Background(), "test", sampleRecord())
	var storeErr *storage.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("error = %v, want *storage.StoreError", err)
	}
	if storeErr.Message != "failed to serialize data" {
		t.Fatalf("message = %q", storeErr.Message)
	}
}

func TestUnsignedRoundTripWrapsThroughInteger(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	record := sampleRecord()
	record.Unsigned = math.MaxUint64
	mustStore(t, adapter, "test", record)

	got, found, err := adapter.Load(ctx, "test")
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if got.Unsigned != math.MaxUint64 {
		t.Fatalf("unsigned = %d, want %d", got.Unsigned, uint64(math.MaxUint64))
	}
}

func TestDeleteRemovesRow(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	mustStore(t, adapter, "test", sampleRecord())
	if err := adapter.Delete(ctx, "test"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	contains, err := adapter.Contains(ctx, "test")
	if err != nil {
		t.Fatalf("contains: %v", err)
	}
	if contains {
		t.Fatal("expected row gone")
	}
	_, found, err := adapter.Load(ctx, "test")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Fatal("expected miss after delete")
	}

	// Deleting an absent key is silent.
	if err := adapter.Delete(ctx, "test"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestClearEmptiesTable(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	mustStore(t, adapter, "a", sampleRecord())
	mustStore(t, adapter, "b", sampleRecord())
	if err := adapter.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	entries, err := adapter.Scan(ctx, 0, -1)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("scan after clear = %d entries", len(entries))
	}
}

func TestScanOrdersByKeyAndPaginates(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	for _, key := range []string{"c", "a", "e", "b", "d"} {
		record := sampleRecord()
		record.String = key
		mustStore(t, adapter, key, record)
	}

	all, err := adapter.Scan(ctx, 0, -1)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	wantKeys := []string{"a", "b", "c", "d", "e"}
	for i, entry := range all {
		if entry.Key != wantKeys[i] {
			t.Fatalf("scan[%d].Key = %q, want %q", i, entry.Key, wantKeys[i])
		}
		if entry.Data.String != wantKeys[i] {
			t.Fatalf("scan[%d].Data.String = %q", i, entry.Data.String)
		}
	}

	page, err := adapter.Scan(ctx, 1, 2)
	if err != nil {
		t.Fatalf("scan page: %v", err)
	}
	if len(page) != 2 || page[0].Key != "b" || page[1].Key != "c" {
		t.Fatalf("scan(1, 2) keys = %v", pageKeys(page))
	}

	tail, err := adapter.Scan(ctx, 3, -1)
	if err != nil {
		t.Fatalf("scan tail: %v", err)
	}
	if len(tail) != 2 || tail[0].Key != "d" || tail[1].Key != "e" {
		t.Fatalf("scan(3, -1) keys = %v", pageKeys(tail))
	}
}

func pageKeys(entries []storage.Entry[string, testRecord]) []string {
	keys := make([]string, len(entries))
	for i, entry := range entries {
		keys[i] = entry.Key
	}
	return keys
}

func TestPartialUpdateIsLocal(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	original := sampleRecord()
	mustStore(t, adapter, "test", original)

	replacement := testRecord{
		String:   "changed",
		Bytes:    []byte{7},
		Integer:  -1,
		Unsigned: 1,
		Float:    9.5,
		Double:   -2.5,
	}
	if err := adapter.Update(ctx, "test", replacement, []string{"float"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, found, err := adapter.Load(ctx, "test")
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if got.Float != replacement.Float {
		t.Fatalf("float = %v, want %v", got.Float, replacement.Float)
	}
	want := original
	want.Float = replacement.Float
	if !got.equal(want) {
		t.Fatalf("load = %+v, want %+v", got, want)
	}
}

func TestFullUpdateReplacesNonKeyColumns(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	mustStore(t, adapter, "test", sampleRecord())
	replacement := testRecord{
		String:   "replaced",
		Bytes:    []byte{1, 2, 3},
		Integer:  17,
		Unsigned: 18,
		Float:    -0.5,
		Double:   19.5,
	}
	if err := adapter.Update(ctx, "test", replacement, nil); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, found, err := adapter.Load(ctx, "test")
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if !got.equal(replacement) {
		t.Fatalf("load = %+v, want %+v", got, replacement)
	}
}

func TestUpdateMissingRowIsSilent(t *testing.T) {
	adapter := newTestAdapter(t)
	if err := adapter.Update(context.Background(), "absent", sampleRecord(), nil); err != nil {
		t.Fatalf("update: %v", err)
	}
}

func TestQueryRestrictsScan(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	flat := sampleRecord()
	mustStore(t, adapter, "test", flat)
	raised := sampleRecord()
	raised.Float = 1.0
	mustStore(t, adapter, "test1", raised)

	matches, err := adapter.QueryRecords(ctx, storage.Gt("float", storage.Float32Value(0)), 0, -1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 1 || matches[0].Key != "test1" {
		t.Fatalf("query keys = %v", pageKeys(matches))
	}

	// Lowering the float via partial update removes the match.
	lowered := raised
	lowered.Float = 0.0
	if err := adapter.Update(ctx, "test1", lowered, []string{"float"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	matches, err = adapter.QueryRecords(ctx, storage.Gt("float", storage.Float32Value(0)), 0, -1)
	if err != nil {
		t.Fatalf("query after update: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("query keys = %v", pageKeys(matches))
	}
}

func TestQueryMatchesFilteredScan(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	for i, key := range []string{"a", "b", "c", "d"} {
		record := sampleRecord()
		record.Integer = int64(i)
		record.String = key
		mustStore(t, adapter, key, record)
	}

	q := storage.And(
		storage.Gt("integer", storage.IntValue(0)),
		storage.Not(storage.Eq("string", storage.StringValue("c"))),
	)
	got, err := adapter.QueryRecords(ctx, q, 0, -1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	all, err := adapter.Scan(ctx, 0, -1)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	var want []string
	for _, entry := range all {
		if entry.Data.Integer > 0 && entry.Data.String != "c" {
			want = append(want, entry.Key)
		}
	}
	if !slices.Equal(pageKeys(got), want) {
		t.Fatalf("query keys = %v, want %v", pageKeys(got), want)
	}
}

func TestQueryPagination(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c", "d"} {
		mustStore(t, adapter, key, sampleRecord())
	}

	q := storage.Gt("integer", storage.IntValue(-1))
	page, err := adapter.QueryRecords(ctx, q, 1, 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !slices.Equal(pageKeys(page), []string{"b", "c"}) {
		t.Fatalf("query(1, 2) keys = %v", pageKeys(page))
	}
}

func TestUndecodableRowsAreSkippedOnScanAndMissOnLoad(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx := context.Background()

	good := sampleRecord()
	good.Integer = 7
	mustStore(t, adapter, "good", good)
	bad := sampleRecord()
	bad.Integer = -7
	mustStore(t, adapter, "bad", bad)

	picky := New[string, testRecord](adapter.sqlDB, "records", rejectingSpec{})

	entries, err := picky.Scan(ctx, 0, -1)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !slices.Equal(pageKeys(entries), []string{"good"}) {
		t.Fatalf("scan keys = %v, want [good]", pageKeys(entries))
	}

	matches, err := picky.QueryRecords(ctx, storage.Gt("double", storage.Float64Value(0)), 0, -1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !slices.Equal(pageKeys(matches), []string{"good"}) {
		t.Fatalf("query keys = %v, want [good]", pageKeys(matches))
	}

	_, found, err := picky.Load(ctx, "bad")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Fatal("expected undecodable row to read as a miss")
	}

	// The row itself is still there for a spec that accepts it.
	_, found, err = adapter.Load(ctx, "bad")
	if err != nil || !found {
		t.Fatalf("load with accepting spec: found=%v err=%v", found, err)
	}
}

func TestClearFailureEmitsNoDiagnostic(t *testing.T) {
	sqlDB, err := Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	var lines int
	adapter := New[string, testRecord](sqlDB, "records", testSpec{}, WithLogf(func(string, ...any) {
		lines++
	}))

	// Table was never created, so the DELETE fails.
	if err := adapter.Clear(context.Background()); err == nil {
		t.Fatal("expected clear of a missing table to fail")
	}
	if lines != 0 {
		t.Fatalf("diagnostic lines = %d, want 0", lines)
	}
}

func TestWithLogfReceivesDiagnostics(t *testing.T) {
	sqlDB, err := Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	var lines int
	adapter := New[string, testRecord](sqlDB, "records", testSpec{}, WithLogf(func(string, ...any) {
		lines++
	}))
	ctx := context.Background()
	if err := adapter.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	if err := adapter.Store(ctx, "test", sampleRecord()); err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := adapter.Contains(ctx, "test"); err != nil {
		t.Fatalf("contains: %v", err)
	}
	if err := adapter.Delete(ctx, "test"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := adapter.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if lines != 4 {
		t.Fatalf("diagnostic lines = %d, want 4", lines)
	}
}
