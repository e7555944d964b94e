package planner

import (
	"testing"

	"github.com/canonica-labs/distframe/internal/logicalplan"
)

func sampleScan() logicalplan.Node {
	var alloc logicalplan.ColIDAllocator
	schema := logicalplan.NewSchema(
		logicalplan.Field{ID: alloc.Next(), Name: "id", Type: "int64"},
	)
	return logicalplan.NewTabularFilesScan(
		schema,
		logicalplan.ScanSourceInfo{Format: logicalplan.FormatParquet, Paths: []string{"a.parquet"}},
		logicalplan.UnknownSpec(1),
	)
}

func TestEngineCompileProducesAPhysicalPlan(t *testing.T) {
	e := &Engine{}
	plan, err := e.compile(sampleScan())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if plan == nil {
		t.Fatal("compile() returned a nil plan")
	}
}

func TestEngineExplainDoesNotPanic(t *testing.T) {
	e := &Engine{}
	if out := e.Explain(sampleScan()); out == "" {
		t.Fatal("Explain() returned an empty string")
	}
}
