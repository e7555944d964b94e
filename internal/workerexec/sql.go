package workerexec

import (
	"fmt"
	"strings"

	"github.com/canonica-labs/distframe/internal/logicalplan"
)

// selectListSQL renders exprs as a comma-separated SELECT list, each
// expression's worker-side SQL text aliased to its output column name.
func selectListSQL(exprs logicalplan.ExpressionList) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = fmt.Sprintf("%s AS %s", e.SQL, quoteIdent(e.ColName))
	}
	return strings.Join(parts, ", ")
}

// columnListSQL renders schema's field names as a quoted SELECT list,
// used when an operation passes every input column through unchanged.
func columnListSQL(schema logicalplan.Schema) string {
	names := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		names[i] = quoteIdent(f.Name)
	}
	return strings.Join(names, ", ")
}

// whereSQL AND-joins predicate's conjuncts into one WHERE clause, or ""
// if predicate is empty.
func whereSQL(predicate logicalplan.ExpressionList) string {
	if len(predicate) == 0 {
		return ""
	}
	parts := make([]string, len(predicate))
	for i, e := range predicate {
		parts[i] = "(" + e.SQL + ")"
	}
	return "WHERE " + strings.Join(parts, " AND ")
}

// orderBySQL renders keys/descending into an ORDER BY clause.
func orderBySQL(keys logicalplan.ExpressionList, descending []bool) string {
	if len(keys) == 0 {
		return ""
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		dir := "ASC"
		if i < len(descending) && descending[i] {
			dir = "DESC"
		}
		parts[i] = fmt.Sprintf("%s %s", quoteIdent(k.ColName), dir)
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}

func joinKeyword(how logicalplan.JoinHow) string {
	switch how {
	case logicalplan.JoinLeft:
		return "LEFT JOIN"
	case logicalplan.JoinRight:
		return "RIGHT JOIN"
	case logicalplan.JoinOuter:
		return "FULL OUTER JOIN"
	default:
		return "INNER JOIN"
	}
}

func aggFuncSQL(op logicalplan.AggOp) string {
	switch op {
	case logicalplan.AggSum:
		return "sum"
	case logicalplan.AggCount:
		return "count"
	case logicalplan.AggMin:
		return "min"
	case logicalplan.AggMax:
		return "max"
	case logicalplan.AggMean:
		return "avg"
	case logicalplan.AggList:
		return "list"
	default:
		return "any_value"
	}
}
