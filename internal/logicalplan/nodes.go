package logicalplan

import (
	"github.com/google/uuid"

	"github.com/canonica-labs/distframe/internal/handle"
)

// base carries the fields every node needs: identity and children.
// Embedded (not inherited) by every concrete node, matching the teacher's
// preference for small composable structs over deep hierarchies.
type base struct {
	id       uuid.UUID
	children []Node
}

func newBase(children ...Node) base {
	return base{id: newID(), children: children}
}

func (b base) ID() uuid.UUID     { return b.id }
func (b base) Children() []Node  { return b.children }

// Scan reads a subset of columns, with an optional residual predicate,
// from an external source (produced by PushDownClausesIntoScan).
type Scan struct {
	base
	Schema    Schema
	Predicate ExpressionList
	Source    ScanSourceInfo
	Spec      PartitionSpec
}

func NewScan(schema Schema, source ScanSourceInfo, spec PartitionSpec) *Scan {
	return &Scan{base: newBase(), Schema: schema, Source: source, Spec: spec}
}

func (n *Scan) Kind() string                 { return "Scan" }
func (n *Scan) OutputSchema() Schema         { return n.Schema }
func (n *Scan) PartitionSpec() PartitionSpec { return n.Spec }
func (n *Scan) NumPartitions() int           { return n.Spec.NumPartitions }
func (n *Scan) RequiredColumns() map[ColID]struct{} {
	return n.Predicate.RequiredColumns()
}
func (n *Scan) CopyWithNewChildren(children []Node) Node {
	cp := *n
	cp.children = children
	return &cp
}

// TabularFilesScan is a scan over a known list of file paths. The physical
// plan emits one ReadFile task per output partition, striping the paths
// round-robin across NumPartitions; there is no separate file-listing
// stage and no per-file expansion.
type TabularFilesScan struct {
	base
	Schema Schema
	Source ScanSourceInfo
	Spec   PartitionSpec
}

func NewTabularFilesScan(schema Schema, source ScanSourceInfo, spec PartitionSpec) *TabularFilesScan {
	return &TabularFilesScan{base: newBase(), Schema: schema, Source: source, Spec: spec}
}

func (n *TabularFilesScan) Kind() string                         { return "TabularFilesScan" }
func (n *TabularFilesScan) OutputSchema() Schema                 { return n.Schema }
func (n *TabularFilesScan) PartitionSpec() PartitionSpec         { return n.Spec }
func (n *TabularFilesScan) NumPartitions() int                   { return n.Spec.NumPartitions }
func (n *TabularFilesScan) RequiredColumns() map[ColID]struct{}  { return map[ColID]struct{}{} }
func (n *TabularFilesScan) CopyWithNewChildren(children []Node) Node {
	cp := *n
	cp.children = children
	return &cp
}

// InMemoryScan wraps partitions already resident in the scheduler's
// partition cache (e.g. a glob of file paths, see glob_filepaths in
// original_source/daft's DynamicRunner).
type InMemoryScan struct {
	base
	Schema  Schema
	Spec    PartitionSpec
	Handles []handle.PartitionHandle
}

func NewInMemoryScan(schema Schema, spec PartitionSpec, handles []handle.PartitionHandle) *InMemoryScan {
	return &InMemoryScan{base: newBase(), Schema: schema, Spec: spec, Handles: handles}
}

func (n *InMemoryScan) Kind() string                        { return "InMemoryScan" }
func (n *InMemoryScan) OutputSchema() Schema                { return n.Schema }
func (n *InMemoryScan) PartitionSpec() PartitionSpec        { return n.Spec }
func (n *InMemoryScan) NumPartitions() int                  { return n.Spec.NumPartitions }
func (n *InMemoryScan) RequiredColumns() map[ColID]struct{} { return map[ColID]struct{}{} }
func (n *InMemoryScan) CopyWithNewChildren(children []Node) Node {
	cp := *n
	cp.children = children
	return &cp
}

// unary is embedded by every single-child node to avoid repeating
// PartitionSpec/NumPartitions delegation to the child.
type unary struct {
	base
}

func newUnary(child Node) unary {
	return unary{base: newBase(child)}
}

func (u unary) child() Node { return u.children[0] }

// Filter keeps rows matching every conjunct in Predicate.
type Filter struct {
	unary
	Predicate ExpressionList
}

func NewFilter(child Node, predicate ExpressionList) *Filter {
	return &Filter{unary: newUnary(child), Predicate: predicate}
}

func (n *Filter) Kind() string                 { return "Filter" }
func (n *Filter) OutputSchema() Schema         { return n.child().OutputSchema() }
func (n *Filter) PartitionSpec() PartitionSpec { return n.child().PartitionSpec() }
func (n *Filter) NumPartitions() int           { return n.child().NumPartitions() }
func (n *Filter) RequiredColumns() map[ColID]struct{} {
	return IDSetUnion(n.Predicate.RequiredColumns(), n.child().RequiredColumns())
}
func (n *Filter) CopyWithNewChildren(children []Node) Node {
	cp := *n
	cp.children = children
	return &cp
}

// Projection computes a new set of output columns from the child.
type Projection struct {
	unary
	Exprs ExpressionList
}

func NewProjection(child Node, exprs ExpressionList) *Projection {
	return &Projection{unary: newUnary(child), Exprs: exprs}
}

func (n *Projection) Kind() string                 { return "Projection" }
func (n *Projection) OutputSchema() Schema         { return n.Exprs.Schema() }
func (n *Projection) PartitionSpec() PartitionSpec { return n.child().PartitionSpec() }
func (n *Projection) NumPartitions() int           { return n.child().NumPartitions() }
func (n *Projection) RequiredColumns() map[ColID]struct{} {
	return n.Exprs.RequiredColumns()
}
func (n *Projection) CopyWithNewChildren(children []Node) Node {
	cp := *n
	cp.children = children
	return &cp
}

// LocalAggregate computes per-partition aggregates grouped by GroupBy.
type LocalAggregate struct {
	unary
	Agg     []AggPair
	GroupBy ExpressionList
}

func NewLocalAggregate(child Node, agg []AggPair, groupBy ExpressionList) *LocalAggregate {
	return &LocalAggregate{unary: newUnary(child), Agg: agg, GroupBy: groupBy}
}

func (n *LocalAggregate) Kind() string { return "LocalAggregate" }
func (n *LocalAggregate) OutputSchema() Schema {
	fields := make([]Field, 0, len(n.GroupBy)+len(n.Agg))
	for _, g := range n.GroupBy {
		fields = append(fields, g.Field())
	}
	for _, a := range n.Agg {
		fields = append(fields, a.Expr.Field())
	}
	return Schema{Fields: fields}
}
func (n *LocalAggregate) PartitionSpec() PartitionSpec { return n.child().PartitionSpec() }
func (n *LocalAggregate) NumPartitions() int           { return n.child().NumPartitions() }
func (n *LocalAggregate) RequiredColumns() map[ColID]struct{} {
	set := n.GroupBy.RequiredColumns()
	for _, a := range n.Agg {
		for id := range a.Expr.RequiredColumns() {
			set[id] = struct{}{}
		}
	}
	return set
}
func (n *LocalAggregate) CopyWithNewChildren(children []Node) Node {
	cp := *n
	cp.children = children
	return &cp
}

// Join combines rows from two children matching on Keys.
type Join struct {
	base
	LeftKeys  ExpressionList
	RightKeys ExpressionList
	How       JoinHow
}

func NewJoin(left, right Node, leftKeys, rightKeys ExpressionList, how JoinHow) *Join {
	return &Join{base: newBase(left, right), LeftKeys: leftKeys, RightKeys: rightKeys, How: how}
}

func (n *Join) Kind() string { return "Join" }
func (n *Join) OutputSchema() Schema {
	left := n.children[0].OutputSchema()
	right := n.children[1].OutputSchema()
	fields := append(append([]Field{}, left.Fields...), right.Fields...)
	return Schema{Fields: fields}
}
func (n *Join) PartitionSpec() PartitionSpec {
	return PartitionSpec{Scheme: SchemeHash, Keys: n.LeftKeys.ToIDSet2(), NumPartitions: n.children[0].NumPartitions()}
}
func (n *Join) NumPartitions() int { return n.children[0].NumPartitions() }
func (n *Join) RequiredColumns() map[ColID]struct{} {
	return IDSetUnion(n.LeftKeys.RequiredColumns(), n.RightKeys.RequiredColumns())
}
func (n *Join) CopyWithNewChildren(children []Node) Node {
	cp := *n
	cp.children = children
	return &cp
}

// ToIDSet2 is a small helper used by Join.PartitionSpec and NewSort to turn an
// ExpressionList of join keys into an ordered key-ID slice.
func (l ExpressionList) ToIDSet2() []ColID {
	ids := make([]ColID, len(l))
	for i, e := range l {
		ids[i] = e.Col
	}
	return ids
}

// Sort orders rows by Keys, each with an independent ascending/descending flag.
type Sort struct {
	unary
	Keys       ExpressionList
	Descending []bool
	Spec       PartitionSpec
}

func NewSort(child Node, keys ExpressionList, descending []bool, numPartitions int) *Sort {
	spec := PartitionSpec{Scheme: SchemeRange, Keys: keys.ToIDSet2(), Descending: descending, NumPartitions: numPartitions}
	return &Sort{unary: newUnary(child), Keys: keys, Descending: descending, Spec: spec}
}

func (n *Sort) Kind() string                 { return "Sort" }
func (n *Sort) OutputSchema() Schema         { return n.child().OutputSchema() }
func (n *Sort) PartitionSpec() PartitionSpec { return n.Spec }
func (n *Sort) NumPartitions() int           { return n.Spec.NumPartitions }
func (n *Sort) RequiredColumns() map[ColID]struct{} {
	return IDSetUnion(n.Keys.RequiredColumns(), n.child().RequiredColumns())
}
func (n *Sort) CopyWithNewChildren(children []Node) Node {
	cp := *n
	cp.children = children
	return &cp
}

// LocalLimit caps the row count of every partition independently,
// without any cross-partition coordination.
type LocalLimit struct {
	unary
	Num int64
}

func NewLocalLimit(child Node, num int64) *LocalLimit {
	return &LocalLimit{unary: newUnary(child), Num: num}
}

func (n *LocalLimit) Kind() string                 { return "LocalLimit" }
func (n *LocalLimit) OutputSchema() Schema         { return n.child().OutputSchema() }
func (n *LocalLimit) PartitionSpec() PartitionSpec { return n.child().PartitionSpec() }
func (n *LocalLimit) NumPartitions() int           { return n.child().NumPartitions() }
func (n *LocalLimit) RequiredColumns() map[ColID]struct{} {
	return n.child().RequiredColumns()
}
func (n *LocalLimit) CopyWithNewChildren(children []Node) Node {
	cp := *n
	cp.children = children
	return &cp
}

// GlobalLimit caps the total row count summed across all output
// partitions to Num.
type GlobalLimit struct {
	unary
	Num int64
}

func NewGlobalLimit(child Node, num int64) *GlobalLimit {
	return &GlobalLimit{unary: newUnary(child), Num: num}
}

func (n *GlobalLimit) Kind() string                 { return "GlobalLimit" }
func (n *GlobalLimit) OutputSchema() Schema         { return n.child().OutputSchema() }
func (n *GlobalLimit) PartitionSpec() PartitionSpec { return n.child().PartitionSpec() }
func (n *GlobalLimit) NumPartitions() int           { return n.child().NumPartitions() }
func (n *GlobalLimit) RequiredColumns() map[ColID]struct{} {
	return n.child().RequiredColumns()
}
func (n *GlobalLimit) CopyWithNewChildren(children []Node) Node {
	cp := *n
	cp.children = children
	return &cp
}

// Coalesce merges the child's partitions down to To, preserving order.
type Coalesce struct {
	unary
	To int
}

func NewCoalesce(child Node, to int) *Coalesce {
	return &Coalesce{unary: newUnary(child), To: to}
}

func (n *Coalesce) Kind() string { return "Coalesce" }
func (n *Coalesce) OutputSchema() Schema { return n.child().OutputSchema() }
func (n *Coalesce) PartitionSpec() PartitionSpec {
	spec := n.child().PartitionSpec()
	spec.NumPartitions = n.To
	if spec.Scheme == SchemeHash || spec.Scheme == SchemeRange {
		// Merging partitions breaks the key-to-partition mapping.
		spec.Scheme = SchemeUnknown
		spec.Keys = nil
	}
	return spec
}
func (n *Coalesce) NumPartitions() int { return n.To }
func (n *Coalesce) RequiredColumns() map[ColID]struct{} {
	return n.child().RequiredColumns()
}
func (n *Coalesce) CopyWithNewChildren(children []Node) Node {
	cp := *n
	cp.children = children
	return &cp
}

// Repartition reshuffles the child's data under a new PartitionSpec.
type Repartition struct {
	unary
	Spec PartitionSpec
}

func NewRepartition(child Node, spec PartitionSpec) *Repartition {
	return &Repartition{unary: newUnary(child), Spec: spec}
}

func (n *Repartition) Kind() string                 { return "Repartition" }
func (n *Repartition) OutputSchema() Schema         { return n.child().OutputSchema() }
func (n *Repartition) PartitionSpec() PartitionSpec { return n.Spec }
func (n *Repartition) NumPartitions() int           { return n.Spec.NumPartitions }
func (n *Repartition) RequiredColumns() map[ColID]struct{} {
	set := n.child().RequiredColumns()
	for _, id := range n.Spec.Keys {
		set[id] = struct{}{}
	}
	return set
}
func (n *Repartition) CopyWithNewChildren(children []Node) Node {
	cp := *n
	cp.children = children
	return &cp
}

// FileWrite persists the child's partitions to storage and, per
// partition, yields a single summary row (§4.D file_write).
type FileWrite struct {
	unary
	Info   WriteInfo
	Schema Schema
}

func NewFileWrite(child Node, info WriteInfo, resultSchema Schema) *FileWrite {
	return &FileWrite{unary: newUnary(child), Info: info, Schema: resultSchema}
}

func (n *FileWrite) Kind() string                 { return "FileWrite" }
func (n *FileWrite) OutputSchema() Schema         { return n.Schema }
func (n *FileWrite) PartitionSpec() PartitionSpec { return n.child().PartitionSpec() }
func (n *FileWrite) NumPartitions() int           { return n.child().NumPartitions() }
func (n *FileWrite) RequiredColumns() map[ColID]struct{} {
	return n.child().RequiredColumns()
}
func (n *FileWrite) CopyWithNewChildren(children []Node) Node {
	cp := *n
	cp.children = children
	return &cp
}
