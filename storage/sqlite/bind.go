package sqlite

import (
	"fmt"

	"github.com/louisbranch/recordstore/storage"
)

// columnType maps a value kind to a SQLite column type. Unsigned integers
// share INTEGER with signed ones and 32-bit floats share REAL with doubles;
// the narrowing on read is handled by readColumn.
func columnType(kind storage.Kind) string {
	switch kind {
	case storage.KindString:
		return "TEXT"
	case storage.KindBytes:
		return "BLOB"
	case storage.KindInt, storage.KindUint:
		return "INTEGER"
	case storage.KindFloat32, storage.KindFloat64:
		return "REAL"
	}
	panic(fmt.Sprintf("sqlite: unsupported kind %v", kind))
}

// bindArg converts a value to a driver argument. Unsigned integers widen
// through int64, which wraps above 1<<63 - 1; 32-bit floats widen through
// float64 losslessly.
func bindArg(v storage.Value) any {
	switch v.Kind() {
	case storage.KindString:
		s, _ := v.AsString()
		return s
	case storage.KindBytes:
		b, _ := v.AsBytes()
		return b
	case storage.KindInt:
		i, _ := v.AsInt()
		return i
	case storage.KindUint:
		u, _ := v.AsUint()
		return int64(u)
	case storage.KindFloat32:
		f, _ := v.AsFloat32()
		return float64(f)
	case storage.KindFloat64:
		f, _ := v.AsFloat64()
		return f
	}
	panic(fmt.Sprintf("sqlite: unsupported kind %v", v.Kind()))
}

// readColumn converts a driver value back to a Value of the field's declared
// kind. NULL and mistyped columns do not coerce; the caller drops the row.
func readColumn(kind storage.Kind, raw any) (storage.Value, bool) {
	switch kind {
	case storage.KindString:
		switch s := raw.(type) {
		case string:
			return storage.StringValue(s), true
		case []byte:
			return storage.StringValue(string(s)), true
		}
	case storage.KindBytes:
		if b, ok := raw.([]byte); ok {
			// The driver may reuse the buffer on the next row.
			return storage.BytesValue(append([]byte(nil), b...)), true
		}
	case storage.KindInt:
		if i, ok := raw.(int64); ok {
			return storage.IntValue(i), true
		}
	case storage.KindUint:
		if i, ok := raw.(int64); ok {
			return storage.UintValue(uint64(i)), true
		}
	case storage.KindFloat32:
		if f, ok := raw.(float64); ok {
			return storage.Float32Value(float32(f)), true
		}
	case storage.KindFloat64:
		if f, ok := raw.(float64); ok {
			return storage.Float64Value(f), true
		}
	}
	return storage.Value{}, false
}
