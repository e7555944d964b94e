package optimizer

import (
	"strings"
	"testing"

	"github.com/canonica-labs/distframe/internal/logicalplan"
)

func baseScan(t *testing.T) (*logicalplan.Scan, logicalplan.ColID, logicalplan.ColID) {
	t.Helper()
	var alloc logicalplan.ColIDAllocator
	idCol, valCol := alloc.Next(), alloc.Next()
	schema := logicalplan.NewSchema(
		logicalplan.Field{ID: idCol, Name: "id", Type: "int64"},
		logicalplan.Field{ID: valCol, Name: "val", Type: "int64"},
	)
	scan := logicalplan.NewScan(schema, logicalplan.ScanSourceInfo{Format: logicalplan.FormatParquet, Paths: []string{"a.parquet"}}, logicalplan.UnknownSpec(4))
	return scan, idCol, valCol
}

func TestDropRepartitionElidesRedundantRepartition(t *testing.T) {
	scan, idCol, _ := baseScan(t)
	spec := logicalplan.PartitionSpec{Scheme: logicalplan.SchemeHash, Keys: []logicalplan.ColID{idCol}, NumPartitions: 4}
	repA := logicalplan.NewRepartition(scan, spec)
	repB := logicalplan.NewRepartition(repA, spec)

	out, changed := (dropRepartition{}).Apply(repB)
	if !changed {
		t.Fatal("expected dropRepartition to elide the redundant outer Repartition")
	}
	if out.Kind() != "Repartition" {
		t.Fatalf("Kind() = %s, want Repartition (the remaining inner one)", out.Kind())
	}
}

func TestCombineFiltersMergesPredicates(t *testing.T) {
	scan, idCol, valCol := baseScan(t)
	inner := logicalplan.NewFilter(scan, logicalplan.ExpressionList{logicalplan.Col(idCol, "id", "int64")})
	outer := logicalplan.NewFilter(inner, logicalplan.ExpressionList{logicalplan.Col(valCol, "val", "int64")})

	out, changed := (combineFilters{}).Apply(outer)
	if !changed {
		t.Fatal("expected combineFilters to fire")
	}
	merged, ok := out.(*logicalplan.Filter)
	if !ok {
		t.Fatalf("result is %T, want *Filter", out)
	}
	if len(merged.Predicate) != 2 {
		t.Errorf("merged predicate has %d conjuncts, want 2", len(merged.Predicate))
	}
}

func TestPushDownClausesIntoScanAbsorbsFilter(t *testing.T) {
	scan, idCol, _ := baseScan(t)
	filter := logicalplan.NewFilter(scan, logicalplan.ExpressionList{logicalplan.Col(idCol, "id", "int64")})

	out, changed := (pushDownClausesIntoScan{}).Apply(filter)
	if !changed {
		t.Fatal("expected pushDownClausesIntoScan to fire")
	}
	merged, ok := out.(*logicalplan.Scan)
	if !ok {
		t.Fatalf("result is %T, want *Scan", out)
	}
	if len(merged.Predicate) != 1 {
		t.Errorf("scan predicate has %d conjuncts, want 1", len(merged.Predicate))
	}
}

func TestPruneColumnsNarrowsScanSchema(t *testing.T) {
	scan, idCol, _ := baseScan(t)
	proj := logicalplan.NewProjection(scan, logicalplan.ExpressionList{logicalplan.Col(idCol, "id", "int64")})

	out, changed := (pruneColumns{}).Apply(proj)
	if !changed {
		t.Fatal("expected pruneColumns to narrow the scan")
	}
	narrowedProj := out.(*logicalplan.Projection)
	narrowedScan := narrowedProj.Children()[0].(*logicalplan.Scan)
	if len(narrowedScan.Schema.Fields) != 1 || narrowedScan.Schema.Fields[0].ID != idCol {
		t.Errorf("narrowed scan schema = %+v, want just [id]", narrowedScan.Schema)
	}
}

func TestPushDownLimitMovesThroughProjection(t *testing.T) {
	scan, idCol, _ := baseScan(t)
	proj := logicalplan.NewProjection(scan, logicalplan.ExpressionList{logicalplan.Col(idCol, "id", "int64")})
	limit := logicalplan.NewLocalLimit(proj, 10)

	out, changed := (pushDownLimit{}).Apply(limit)
	if !changed {
		t.Fatal("expected pushDownLimit to move the limit below the projection")
	}
	if out.Kind() != "Projection" {
		t.Fatalf("Kind() = %s, want Projection", out.Kind())
	}
	if out.Children()[0].Kind() != "LocalLimit" {
		t.Errorf("Projection's child is %s, want LocalLimit", out.Children()[0].Kind())
	}
}

func TestPushDownLimitMovesGlobalLimitThroughRepartitionAndCoalesce(t *testing.T) {
	scan, idCol, _ := baseScan(t)
	spec := logicalplan.PartitionSpec{Scheme: logicalplan.SchemeHash, Keys: []logicalplan.ColID{idCol}, NumPartitions: 4}
	rep := logicalplan.NewRepartition(scan, spec)
	coal := logicalplan.NewCoalesce(rep, 1)
	limit := logicalplan.NewGlobalLimit(coal, 10)

	out, changed := (pushDownLimit{}).Apply(limit)
	if !changed {
		t.Fatal("expected pushDownLimit to move the GlobalLimit below the Coalesce")
	}
	if out.Kind() != "Coalesce" {
		t.Fatalf("Kind() = %s, want Coalesce", out.Kind())
	}
	if out.Children()[0].Kind() != "GlobalLimit" {
		t.Errorf("Coalesce's child is %s, want GlobalLimit", out.Children()[0].Kind())
	}
}

func TestDefaultRunnerOptimizeMovesGlobalLimitBelowRepartition(t *testing.T) {
	scan, idCol, _ := baseScan(t)
	spec := logicalplan.PartitionSpec{Scheme: logicalplan.SchemeHash, Keys: []logicalplan.ColID{idCol}, NumPartitions: 4}
	rep := logicalplan.NewRepartition(scan, spec)
	limit := logicalplan.NewGlobalLimit(rep, 10)

	plan := DefaultRunner().Optimize(limit)
	if plan.Kind() != "Repartition" {
		t.Fatalf("optimized plan kind = %s, want Repartition (GlobalLimit pushed below it)", plan.Kind())
	}
	if plan.Children()[0].Kind() != "GlobalLimit" {
		t.Errorf("Repartition's child is %s, want GlobalLimit", plan.Children()[0].Kind())
	}
}

func TestDefaultRunnerOptimizeFusesFilterIntoScan(t *testing.T) {
	scan, idCol, _ := baseScan(t)
	filter := logicalplan.NewFilter(scan, logicalplan.ExpressionList{logicalplan.Col(idCol, "id", "int64")})

	plan := DefaultRunner().Optimize(filter)
	if plan.Kind() != "Scan" {
		t.Fatalf("optimized plan kind = %s, want Scan (filter fused in)", plan.Kind())
	}
}

func TestExplainReportsUnchangedBatches(t *testing.T) {
	scan, _, _ := baseScan(t)
	out := DefaultRunner().Explain(scan)
	if !strings.Contains(out, "Optimized Logical Plan") {
		t.Errorf("Explain() output missing header: %q", out)
	}
	if !strings.Contains(out, "no change") {
		t.Errorf("Explain() of a bare scan should report at least one unchanged batch, got: %q", out)
	}
}
