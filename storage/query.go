package storage

// Query is a node in a composable boolean tree over field comparisons.
// Trees are immutable values; no validation against a Spec happens at
// construction, so an unknown field name surfaces as an error at query time.
type Query interface {
	queryNode()
}

// OrQuery matches rows matching either branch.
type OrQuery struct {
	Left, Right Query
}

// AndQuery matches rows matching both branches.
type AndQuery struct {
	Left, Right Query
}

// NotQuery inverts its branch.
type NotQuery struct {
	Inner Query
}

// EqQuery matches rows whose named column equals the constant.
type EqQuery struct {
	Field string
	Value Value
}

// GtQuery matches rows whose named column exceeds the constant.
type GtQuery struct {
	Field string
	Value Value
}

// LtQuery matches rows whose named column is below the constant.
type LtQuery struct {
	Field string
	Value Value
}

func (OrQuery) queryNode()  {}
func (AndQuery) queryNode() {}
func (NotQuery) queryNode() {}
func (EqQuery) queryNode()  {}
func (GtQuery) queryNode()  {}
func (LtQuery) queryNode()  {}

// Or combines two queries disjunctively.
func Or(a, b Query) Query { return OrQuery{Left: a, Right: b} }

// And combines two queries conjunctively.
func And(a, b Query) Query { return AndQuery{Left: a, Right: b} }

// Not inverts a query.
func Not(q Query) Query { return NotQuery{Inner: q} }

// Eq compares a column against a constant for equality. The constant's kind
// should match the field's declared kind.
func Eq(field string, v Value) Query { return EqQuery{Field: field, Value: v} }

// Gt compares a column against a constant with >.
func Gt(field string, v Value) Query { return GtQuery{Field: field, Value: v} }

// Lt compares a column against a constant with <.
func Lt(field string, v Value) Query { return LtQuery{Field: field, Value: v} }
