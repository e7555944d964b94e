package logicalplan

import "testing"

func scanNode(t *testing.T, numPartitions int) Node {
	t.Helper()
	var alloc ColIDAllocator
	schema := NewSchema(Field{ID: alloc.Next(), Name: "id", Type: "int64"})
	return NewTabularFilesScan(schema, ScanSourceInfo{Format: FormatParquet, Paths: []string{"a.parquet"}}, UnknownSpec(numPartitions))
}

func TestEqualComparesKindSchemaAndChildren(t *testing.T) {
	a := scanNode(t, 4)
	b := scanNode(t, 4)
	if !Equal(a, b) {
		t.Error("two scans with the same schema and partition count should be Equal")
	}

	filterA := NewFilter(a, ExpressionList{Col(1, "id", "int64")})
	filterB := NewFilter(b, ExpressionList{Col(1, "id", "int64")})
	if !Equal(filterA, filterB) {
		t.Error("two Filters wrapping equal scans should be Equal")
	}
}

func TestEqualRejectsDifferentKinds(t *testing.T) {
	a := scanNode(t, 4)
	b := NewLocalLimit(a, 10)
	if Equal(a, b) {
		t.Error("a Scan and a LocalLimit should never be Equal")
	}
}

func TestEqualHandlesNilNodes(t *testing.T) {
	if !Equal(nil, nil) {
		t.Error("Equal(nil, nil) should be true")
	}
	if Equal(nil, scanNode(t, 1)) {
		t.Error("Equal(nil, node) should be false")
	}
}

func TestAggOpAndFileFormatStringers(t *testing.T) {
	if got := AggSum.String(); got != "sum" {
		t.Errorf("AggSum.String() = %q", got)
	}
	if got := AggOp(99).String(); got != "unknown" {
		t.Errorf("unrecognized AggOp.String() = %q, want %q", got, "unknown")
	}
	if got := FormatParquet.String(); got != "parquet" {
		t.Errorf("FormatParquet.String() = %q", got)
	}
	if got := FileFormat(99).String(); got != "unknown" {
		t.Errorf("unrecognized FileFormat.String() = %q, want %q", got, "unknown")
	}
}
