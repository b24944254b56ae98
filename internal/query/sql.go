package query

import (
	"fmt"
	"strings"
)

// SQL compiles an AST into a parenthesized Postgres predicate over one
// column. Each literal becomes an accent-insensitive, case-insensitive
// whole-word regex match; term values are appended to args and referenced by
// positional placeholder, never interpolated into the fragment.
//
// The caller picks the column from its allow-listed set; this stage only
// renders the boolean structure.
func SQL(n *Node, column string, args *[]any) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case Literal:
		*args = append(*args, n.Term)
		return fmt.Sprintf(`unaccent(%s) ~* ('\m' || unaccent($%d) || '\M')`, column, len(*args))
	case Not:
		return "NOT " + SQL(n.Kids[0], column, args)
	case And:
		return joinKids(n, column, args, " AND ")
	case Or:
		return joinKids(n, column, args, " OR ")
	}
	return ""
}

func joinKids(n *Node, column string, args *[]any, sep string) string {
	parts := make([]string, 0, len(n.Kids))
	for _, k := range n.Kids {
		parts = append(parts, SQL(k, column, args))
	}
	return "(" + strings.Join(parts, sep) + ")"
}
