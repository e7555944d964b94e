// Package logicalplan implements the immutable logical plan tree (§4.A):
// relational nodes carrying a resolved output schema and partition spec.
//
// The expression tree itself (col(x) + 1, comparisons, aliases) and its
// type checker are external collaborators per the engine's scope; this
// package only needs to know, for any expression, which column IDs it
// requires and which column ID it produces. Expression is therefore kept
// deliberately opaque: its SQL field is worker-side syntax consumed by the
// reference DuckDB executor (internal/workerexec), never interpreted here.
package logicalplan

import "fmt"

// ColID is a stable, process-wide integer identity assigned to a column at
// expression construction time. Column pruning and predicate pushdown
// compare columns by ID, never by name, so a renamed or re-aliased column
// survives a projection without breaking rule matching.
type ColID int64

// ColIDAllocator assigns increasing ColIDs for a single plan-construction
// session. It is passed explicitly wherever a plan is built; there is no
// package-level counter.
type ColIDAllocator struct {
	next ColID
}

// Next returns a fresh ColID.
func (a *ColIDAllocator) Next() ColID {
	a.next++
	return a.next
}

// Field is one named, typed, identified output column.
type Field struct {
	ID   ColID
	Name string
	Type string // worker-side type tag (e.g. "int64", "utf8"); arrow.DataType lives in internal/colpartition
}

// Schema is an ordered list of fields forming a node's output.
type Schema struct {
	Fields []Field
}

// NewSchema builds a Schema from fields.
func NewSchema(fields ...Field) Schema {
	return Schema{Fields: fields}
}

// ToIDSet returns the set of column IDs produced by this schema.
func (s Schema) ToIDSet() map[ColID]struct{} {
	set := make(map[ColID]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		set[f.ID] = struct{}{}
	}
	return set
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// FieldByID looks up a field by its column ID.
func (s Schema) FieldByID(id ColID) (Field, bool) {
	for _, f := range s.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// FieldByName looks up a field by name, used when a caller (e.g. a job
// spec) names columns instead of carrying ColIDs directly.
func (s Schema) FieldByName(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Project returns the subset of fields whose IDs are in keep, preserving s's order.
func (s Schema) Project(keep map[ColID]struct{}) Schema {
	out := make([]Field, 0, len(keep))
	for _, f := range s.Fields {
		if _, ok := keep[f.ID]; ok {
			out = append(out, f)
		}
	}
	return Schema{Fields: out}
}

func (s Schema) String() string {
	return fmt.Sprintf("%v", s.Names())
}

// Expression is an opaque, already-resolved computation: it knows which
// column ID it produces and which column IDs it requires as input. SQL is
// the worker-side expression text used by internal/workerexec; the core
// never evaluates it.
type Expression struct {
	Col     ColID
	ColName string
	ColType string
	Inputs  []ColID // column IDs referenced by this expression
	SQL     string
}

// ID returns the column ID this expression produces.
func (e Expression) ID() ColID { return e.Col }

// Name returns the output column name.
func (e Expression) Name() string { return e.ColName }

// RequiredColumns returns the column IDs this expression reads.
// A bare column reference (no inputs recorded) requires itself.
func (e Expression) RequiredColumns() map[ColID]struct{} {
	set := make(map[ColID]struct{})
	if len(e.Inputs) == 0 {
		set[e.Col] = struct{}{}
		return set
	}
	for _, id := range e.Inputs {
		set[id] = struct{}{}
	}
	return set
}

// Field returns the output field this expression produces.
func (e Expression) Field() Field {
	return Field{ID: e.Col, Name: e.ColName, Type: e.ColType}
}

// Col constructs a pass-through column reference expression.
func Col(id ColID, name, typ string) Expression {
	return Expression{Col: id, ColName: name, ColType: typ}
}

// ExpressionList is an ordered list of expressions, e.g. a projection's
// output columns or a filter's conjuncts.
type ExpressionList []Expression

// ToIDSet returns the set of column IDs this list *produces*.
func (l ExpressionList) ToIDSet() map[ColID]struct{} {
	set := make(map[ColID]struct{}, len(l))
	for _, e := range l {
		set[e.Col] = struct{}{}
	}
	return set
}

// RequiredColumns returns the union of column IDs referenced by every
// expression in the list.
func (l ExpressionList) RequiredColumns() map[ColID]struct{} {
	set := make(map[ColID]struct{})
	for _, e := range l {
		for id := range e.RequiredColumns() {
			set[id] = struct{}{}
		}
	}
	return set
}

// Names returns the output names of the list, in order.
func (l ExpressionList) Names() []string {
	names := make([]string, len(l))
	for i, e := range l {
		names[i] = e.Name()
	}
	return names
}

// Schema returns the output schema this expression list produces.
func (l ExpressionList) Schema() Schema {
	fields := make([]Field, len(l))
	for i, e := range l {
		fields[i] = e.Field()
	}
	return Schema{Fields: fields}
}

// IDSubsetOf reports whether every ID in a is present in b.
func IDSubsetOf(a, b map[ColID]struct{}) bool {
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}

// IDSetEqual reports whether a and b contain exactly the same IDs.
func IDSetEqual(a, b map[ColID]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	return IDSubsetOf(a, b)
}

// IDSetUnion returns the union of a and b, allocating a new set.
func IDSetUnion(a, b map[ColID]struct{}) map[ColID]struct{} {
	out := make(map[ColID]struct{}, len(a)+len(b))
	for id := range a {
		out[id] = struct{}{}
	}
	for id := range b {
		out[id] = struct{}{}
	}
	return out
}

// IDSetDiff returns the IDs present in a but not in b, for diagnostics/logging.
func IDSetDiff(a, b map[ColID]struct{}) []ColID {
	var out []ColID
	for id := range a {
		if _, ok := b[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
