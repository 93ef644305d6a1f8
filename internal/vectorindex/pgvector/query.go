package pgvector

import (
	"fmt"
	"strings"

	"github.com/spigell/skillbridge-matcher/internal/vectorindex"
)

// buildSearch renders a similarity query. $1 is reserved for the query vector.
func buildSearch(table string, filter vectorindex.Filter, limit int) (string, []any) {
	where, args := buildWhere(filter, 2)
	sql := fmt.Sprintf(`SELECT id::text, payload, 1 - (embedding <=> $1::vector) AS score
FROM %s%s
ORDER BY embedding <=> $1::vector, seq
LIMIT %d`, table, where, limit)
	return sql, args
}

// buildScan renders a filtered listing in insertion order.
func buildScan(table string, filter vectorindex.Filter, limit int) (string, []any) {
	where, args := buildWhere(filter, 1)
	sql := fmt.Sprintf(`SELECT id::text, payload
FROM %s%s
ORDER BY seq
LIMIT %d`, table, where, limit)
	return sql, args
}

// buildWhere turns validated conditions into jsonb predicates. A missing
// key yields NULL, so conditions on absent fields never match.
func buildWhere(filter vectorindex.Filter, firstArg int) (string, []any) {
	if filter.Empty() {
		return "", nil
	}
	clauses := make([]string, 0, len(filter.Must))
	args := make([]any, 0, len(filter.Must))
	for _, c := range filter.Must {
		pos := firstArg + len(args)
		// Field names come from the collection schema, never from user input.
		field := strings.ReplaceAll(c.Field, "'", "")
		switch v := c.Value.(type) {
		case string:
			if isList(c.Field) {
				clauses = append(clauses, fmt.Sprintf("payload->'%s' ? $%d", field, pos))
			} else {
				clauses = append(clauses, fmt.Sprintf("payload->>'%s' = $%d", field, pos))
			}
			args = append(args, v)
		default:
			n, _ := vectorindex.Number(v)
			clauses = append(clauses, fmt.Sprintf("(payload->>'%s')::numeric %s $%d", field, sqlOp(c.Op), pos))
			args = append(args, n)
		}
	}
	return "\nWHERE " + strings.Join(clauses, " AND "), args
}

func isList(field string) bool {
	for _, c := range vectorindex.Collections {
		if kind, ok := c.FieldKind(field); ok && kind == vectorindex.KindKeywordList {
			return true
		}
	}
	return false
}

func sqlOp(op vectorindex.Op) string {
	switch op {
	case vectorindex.OpGte:
		return ">="
	case vectorindex.OpLte:
		return "<="
	case vectorindex.OpGt:
		return ">"
	case vectorindex.OpLt:
		return "<"
	default:
		return "="
	}
}
