package storage

import "bytes"

// Kind identifies one of the six primitive cases a Value can carry. The
// zero Kind is invalid, so a zero Value matches no accessor.
type Kind int

const (
	KindString Kind = iota + 1
	KindBytes
	KindInt
	KindUint
	KindFloat32
	KindFloat64
)

// String returns a short name for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat32:
		return "float32"
	case KindFloat64:
		return "float64"
	}
	return "unknown"
}

// Value is an immutable tagged value exchanged at every persistence boundary.
// Exactly one payload is set, selected by the kind.
type Value struct {
	kind Kind
	str  string
	blob []byte
	i    int64
	u    uint64
	f32  float32
	f64  float64
}

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// BytesValue wraps a byte slice. The slice is not copied; callers must not
// mutate it afterwards.
func BytesValue(b []byte) Value { return Value{kind: KindBytes, blob: b} }

// IntValue wraps a signed 64-bit integer.
func IntValue(i int64) Value { return Value{kind: KindInt, i: i} }

// UintValue wraps an unsigned 64-bit integer.
func UintValue(u uint64) Value { return Value{kind: KindUint, u: u} }

// Float32Value wraps a 32-bit float.
func Float32Value(f float32) Value { return Value{kind: KindFloat32, f32: f} }

// Float64Value wraps a 64-bit float.
func Float64Value(f float64) Value { return Value{kind: KindFloat64, f64: f} }

// Kind returns the case this value carries.
func (v Value) Kind() Kind { return v.kind }

// AsString returns the payload when the value is a string.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsBytes returns the payload when the value is a byte slice.
func (v Value) AsBytes() ([]byte, bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return v.blob, true
}

// AsInt returns the payload when the value is a signed integer.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// AsUint returns the payload when the value is an unsigned integer.
func (v Value) AsUint() (uint64, bool) {
	if v.kind != KindUint {
		return 0, false
	}
	return v.u, true
}

// AsFloat32 returns the payload when the value is a 32-bit float.
func (v Value) AsFloat32() (float32, bool) {
	if v.kind != KindFloat32 {
		return 0, false
	}
	return v.f32, true
}

// AsFloat64 returns the payload when the value is a 64-bit float.
func (v Value) AsFloat64() (float64, bool) {
	if v.kind != KindFloat64 {
		return 0, false
	}
	return v.f64, true
}

// Equal reports whether two values carry the same case and payload.
// Float payloads compare with ==, so NaN is never equal to itself.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindBytes:
		return bytes.Equal(v.blob, other.blob)
	case KindInt:
		return v.i == other.i
	case KindUint:
		return v.u == other.u
	case KindFloat32:
		return v.f32 == other.f32
	case KindFloat64:
		return v.f64 == other.f64
	}
	return false
}

// Field pairs a column name with the kind stored there. Names are trusted
// configuration: they are interpolated into SQL without escaping.
type Field struct {
	Name string
	Kind Kind
}
