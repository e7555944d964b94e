package physicalplan

import (
	"testing"

	"github.com/google/uuid"

	"github.com/canonica-labs/distframe/internal/logicalplan"
)

func simpleScan(t *testing.T, numPartitions int) (logicalplan.Node, logicalplan.ColID) {
	t.Helper()
	var alloc logicalplan.ColIDAllocator
	idCol := alloc.Next()
	schema := logicalplan.NewSchema(logicalplan.Field{ID: idCol, Name: "id", Type: "int64"})
	n := logicalplan.NewTabularFilesScan(schema, logicalplan.ScanSourceInfo{Format: logicalplan.FormatParquet, Paths: []string{"a.parquet", "b.parquet"}}, logicalplan.UnknownSpec(numPartitions))
	return n, idCol
}

func TestNewPhysicalPlanBuildsAGeneratorForScanFilterLimit(t *testing.T) {
	scan, idCol := simpleScan(t, 2)
	filter := logicalplan.NewFilter(scan, logicalplan.ExpressionList{logicalplan.Col(idCol, "id", "int64")})
	limit := logicalplan.NewLocalLimit(filter, 10)

	plan, err := NewPhysicalPlan(limit)
	if err != nil {
		t.Fatalf("NewPhysicalPlan: %v", err)
	}
	if plan == nil {
		t.Fatal("NewPhysicalPlan returned a nil plan")
	}
}

func TestNewPhysicalPlanRejectsUnknownNodeKind(t *testing.T) {
	if _, err := NewPhysicalPlan(unknownNode{}); err == nil {
		t.Fatal("expected an error for a node kind the factory doesn't recognize")
	}
}

// unknownNode implements logicalplan.Node with a Kind the factory has no
// case for, exercising the factory's default error path.
type unknownNode struct{}

func (unknownNode) ID() uuid.UUID                             { return uuid.UUID{} }
func (unknownNode) Kind() string                              { return "Unsupported" }
func (unknownNode) Children() []logicalplan.Node               { return nil }
func (unknownNode) OutputSchema() logicalplan.Schema            { return logicalplan.Schema{} }
func (unknownNode) RequiredColumns() map[logicalplan.ColID]struct{} { return nil }
func (unknownNode) PartitionSpec() logicalplan.PartitionSpec    { return logicalplan.UnknownSpec(1) }
func (unknownNode) CopyWithNewChildren(children []logicalplan.Node) logicalplan.Node { return unknownNode{} }
func (unknownNode) NumPartitions() int                          { return 1 }
