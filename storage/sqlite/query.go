package sqlite

import (
	"fmt"

	"github.com/louisbranch/recordstore/storage"
)

// compileQuery renders a query tree as a SQL boolean expression. Every
// boolean node is parenthesised and comparison constants are appended to
// args in left-to-right traversal order, so the placeholder count equals the
// number of comparison leaves.
func compileQuery(q storage.Query, args *[]any) string {
	switch node := q.(type) {
	case storage.OrQuery:
		return "( " + compileQuery(node.Left, args) + " OR " + compileQuery(node.Right, args) + " )"
	case storage.AndQuery:
		return "( " + compileQuery(node.Left, args) + " AND " + compileQuery(node.Right, args) + " )"
	case storage.NotQuery:
		return "( NOT " + compileQuery(node.Inner, args) + " )"
	case storage.EqQuery:
		*args = append(*args, bindArg(node.Value))
		return `"` + node.Field + `"=?`
	case storage.GtQuery:
		*args = append(*args, bindArg(node.Value))
		return `"` + node.Field + `">?`
	case storage.LtQuery:
		*args = append(*args, bindArg(node.Value))
		return `"` + node.Field + `"<?`
	}
	panic(fmt.Sprintf("sqlite: unsupported query node %T", q))
}
