package logicalplan

import "testing"

func TestColIDAllocatorNeverRepeats(t *testing.T) {
	var a ColIDAllocator
	seen := map[ColID]struct{}{}
	for i := 0; i < 5; i++ {
		id := a.Next()
		if _, dup := seen[id]; dup {
			t.Fatalf("ColIDAllocator produced a duplicate ID: %d", id)
		}
		seen[id] = struct{}{}
	}
}

func TestSchemaFieldLookups(t *testing.T) {
	schema := NewSchema(
		Field{ID: 1, Name: "id", Type: "int64"},
		Field{ID: 2, Name: "name", Type: "utf8"},
	)

	if f, ok := schema.FieldByID(2); !ok || f.Name != "name" {
		t.Errorf("FieldByID(2) = %+v, %v", f, ok)
	}
	if _, ok := schema.FieldByID(99); ok {
		t.Error("FieldByID(99) should report absence")
	}

	if f, ok := schema.FieldByName("id"); !ok || f.ID != 1 {
		t.Errorf("FieldByName(id) = %+v, %v", f, ok)
	}
	if _, ok := schema.FieldByName("missing"); ok {
		t.Error("FieldByName(missing) should report absence")
	}
}

func TestSchemaProjectPreservesOrder(t *testing.T) {
	schema := NewSchema(
		Field{ID: 1, Name: "a"},
		Field{ID: 2, Name: "b"},
		Field{ID: 3, Name: "c"},
	)
	projected := schema.Project(map[ColID]struct{}{1: {}, 3: {}})
	if got := projected.Names(); len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("Project() = %v, want [a c]", got)
	}
}

func TestExpressionRequiredColumnsDefaultsToSelf(t *testing.T) {
	e := Col(5, "x", "int64")
	req := e.RequiredColumns()
	if len(req) != 1 {
		t.Fatalf("RequiredColumns() = %v, want {5}", req)
	}
	if _, ok := req[5]; !ok {
		t.Error("a bare column reference should require itself")
	}
}

func TestExpressionListSchemaAndRequiredColumns(t *testing.T) {
	list := ExpressionList{
		{Col: 10, ColName: "total", ColType: "int64", Inputs: []ColID{1, 2}},
		Col(3, "name", "utf8"),
	}
	schema := list.Schema()
	if len(schema.Fields) != 2 || schema.Fields[0].Name != "total" {
		t.Errorf("Schema() = %+v", schema)
	}

	req := list.RequiredColumns()
	for _, want := range []ColID{1, 2, 3} {
		if _, ok := req[want]; !ok {
			t.Errorf("RequiredColumns() missing %d, got %v", want, req)
		}
	}
}

func TestIDSetHelpers(t *testing.T) {
	a := map[ColID]struct{}{1: {}, 2: {}}
	b := map[ColID]struct{}{2: {}, 3: {}}

	if !IDSubsetOf(map[ColID]struct{}{2: {}}, a) {
		t.Error("{2} should be a subset of {1,2}")
	}
	if IDSetEqual(a, b) {
		t.Error("{1,2} should not equal {2,3}")
	}
	union := IDSetUnion(a, b)
	if len(union) != 3 {
		t.Errorf("IDSetUnion = %v, want 3 elements", union)
	}
	diff := IDSetDiff(a, b)
	if len(diff) != 1 || diff[0] != 1 {
		t.Errorf("IDSetDiff(a, b) = %v, want [1]", diff)
	}
}
