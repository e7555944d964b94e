package logicalplan

import "github.com/google/uuid"

// Node is the common interface every logical plan node implements.
// Trees are immutable and persistent: CopyWithNewChildren never mutates
// the receiver, it returns a new node sharing everything else.
type Node interface {
	ID() uuid.UUID
	Kind() string
	Children() []Node
	OutputSchema() Schema
	RequiredColumns() map[ColID]struct{}
	PartitionSpec() PartitionSpec
	CopyWithNewChildren(children []Node) Node
	NumPartitions() int
}

// Equal reports structural equality modulo node identity: same kind, same
// output schema IDs, same partition spec, and recursively equal children.
// The partition spec is not compared when a's scheme is UNKNOWN.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind() != b.Kind() {
		return false
	}
	if !IDSetEqual(a.OutputSchema().ToIDSet(), b.OutputSchema().ToIDSet()) {
		return false
	}
	if a.PartitionSpec().Scheme != SchemeUnknown && !a.PartitionSpec().Equal(b.PartitionSpec()) {
		return false
	}
	ac, bc := a.Children(), b.Children()
	if len(ac) != len(bc) {
		return false
	}
	for i := range ac {
		if !Equal(ac[i], bc[i]) {
			return false
		}
	}
	return true
}

func newID() uuid.UUID { return uuid.New() }

// JoinHow enumerates supported join types.
type JoinHow int

const (
	JoinInner JoinHow = iota
	JoinLeft
	JoinRight
	JoinOuter
)

// AggOp enumerates supported aggregate functions.
type AggOp int

const (
	AggSum AggOp = iota
	AggCount
	AggMin
	AggMax
	AggMean
	AggList
)

func (op AggOp) String() string {
	switch op {
	case AggSum:
		return "sum"
	case AggCount:
		return "count"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggMean:
		return "mean"
	case AggList:
		return "list"
	default:
		return "unknown"
	}
}

// AggPair pairs an input expression with the aggregate applied to it; the
// expression's own Col/ColName become the output column of the aggregate.
type AggPair struct {
	Expr Expression
	Op   AggOp
}

// FileFormat enumerates the file formats the factory knows how to request
// reads/writes for; the codec implementation itself lives outside the core.
type FileFormat int

const (
	FormatParquet FileFormat = iota
	FormatCSV
	FormatJSON
)

func (f FileFormat) String() string {
	switch f {
	case FormatParquet:
		return "parquet"
	case FormatCSV:
		return "csv"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ScanSourceInfo carries the fields an InMemoryScan or Scan needs at
// execution time to hand to the ReadFile instruction. It is copied by
// value into task.Instruction so the task package need not depend on
// the full Node interface.
type ScanSourceInfo struct {
	Format FileFormat
	Paths  []string
}

// WriteInfo carries the fields a FileWrite node needs at execution time.
type WriteInfo struct {
	Format             FileFormat
	Path               string
	PartitionCols      []ColID
	TargetFileSizeByte int64
}
