package workerexec

import (
	"strings"
	"testing"

	"github.com/canonica-labs/distframe/internal/logicalplan"
)

func TestWhereSQLEmptyPredicate(t *testing.T) {
	if got := whereSQL(nil); got != "" {
		t.Fatalf("expected empty WHERE clause for nil predicate, got %q", got)
	}
}

func TestWhereSQLJoinsConjunctsWithAnd(t *testing.T) {
	pred := logicalplan.ExpressionList{
		{SQL: `"a" > 1`},
		{SQL: `"b" < 2`},
	}
	got := whereSQL(pred)
	if !strings.HasPrefix(got, "WHERE ") || !strings.Contains(got, "AND") {
		t.Fatalf("expected AND-joined WHERE clause, got %q", got)
	}
}

func TestOrderBySQLAppliesDescendingPerKey(t *testing.T) {
	keys := logicalplan.ExpressionList{
		{ColName: "x"},
		{ColName: "y"},
	}
	got := orderBySQL(keys, []bool{true, false})
	want := `ORDER BY "x" DESC, "y" ASC`
	if got != want {
		t.Fatalf("orderBySQL() = %q, want %q", got, want)
	}
}

func TestQuoteIdentEscapesDoubleQuotes(t *testing.T) {
	if got := quoteIdent(`weird"name`); got != `"weird""name"` {
		t.Fatalf("quoteIdent() = %q", got)
	}
}

func TestJoinKeywordMapping(t *testing.T) {
	cases := map[logicalplan.JoinHow]string{
		logicalplan.JoinInner: "INNER JOIN",
		logicalplan.JoinLeft:  "LEFT JOIN",
		logicalplan.JoinRight: "RIGHT JOIN",
		logicalplan.JoinOuter: "FULL OUTER JOIN",
	}
	for how, want := range cases {
		if got := joinKeyword(how); got != want {
			t.Errorf("joinKeyword(%v) = %q, want %q", how, got, want)
		}
	}
}

func TestDuckdbTypeRejectsUnknownType(t *testing.T) {
	if _, err := duckdbType("nonsense"); err == nil {
		t.Fatal("expected error for unsupported logical type")
	}
}
