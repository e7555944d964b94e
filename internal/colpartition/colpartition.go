// Package colpartition is the reference in-process Partition
// implementation (§6): every partition is an apache/arrow-go record
// batch, and column identity is carried in the arrow field's own
// metadata so a partition can be handed between workers without losing
// the logical plan's ColID assignments.
package colpartition

import (
	"fmt"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/canonica-labs/distframe/internal/handle"
	"github.com/canonica-labs/distframe/internal/logicalplan"
)

// colIDMetaKey is the arrow field metadata key carrying a column's
// logicalplan.ColID, stored as a decimal string.
const colIDMetaKey = "distframe.col_id"

// Partition wraps one arrow.Record as an internal/partition.Partition.
type Partition struct {
	schema logicalplan.Schema
	record arrow.Record
}

// New wraps record, deriving its logical schema from the arrow schema's
// field metadata. The record must have been built by ArrowSchema (or
// carry equivalent metadata) or FromArrowSchema, and so New, will fail
// loudly.
func New(record arrow.Record) (*Partition, error) {
	schema, err := FromArrowSchema(record.Schema())
	if err != nil {
		return nil, err
	}
	return &Partition{schema: schema, record: record}, nil
}

// NewWithSchema wraps record under an explicitly supplied logical
// schema, bypassing metadata round-tripping; used by workerexec when it
// already tracked the schema on the way in.
func NewWithSchema(schema logicalplan.Schema, record arrow.Record) *Partition {
	return &Partition{schema: schema, record: record}
}

// Record exposes the underlying arrow record for workerexec's SQL
// execution layer and for tests.
func (p *Partition) Record() arrow.Record { return p.record }

func (p *Partition) Schema() logicalplan.Schema { return p.schema }

func (p *Partition) NumRows() int64 { return p.record.NumRows() }

// SizeBytes sums every column's underlying buffer lengths; an
// approximation (arrow buffers may be shared across slices) good enough
// for admission control and trace reporting.
func (p *Partition) SizeBytes() int64 {
	var total int64
	for i := 0; i < int(p.record.NumCols()); i++ {
		col := p.record.Column(i)
		for _, buf := range col.Data().Buffers() {
			if buf != nil {
				total += int64(buf.Len())
			}
		}
	}
	return total
}

// MinMax scans column's typed array directly, skipping null slots.
func (p *Partition) MinMax(column string) (handle.MinMax, bool) {
	idx := -1
	fields := p.record.Schema().Fields()
	for i, f := range fields {
		if f.Name == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return handle.MinMax{}, false
	}
	return minMaxOfArray(p.record.Column(idx))
}

func minMaxOfArray(col arrow.Array) (handle.MinMax, bool) {
	if col.Len() == 0 {
		return handle.MinMax{}, false
	}
	switch a := col.(type) {
	case *array.Int64:
		return reduceMinMax(a.Len(), a.IsNull, func(i int) any { return a.Value(i) }, lessInt64)
	case *array.Int32:
		return reduceMinMax(a.Len(), a.IsNull, func(i int) any { return a.Value(i) }, lessInt32)
	case *array.Float64:
		return reduceMinMax(a.Len(), a.IsNull, func(i int) any { return a.Value(i) }, lessFloat64)
	case *array.String:
		return reduceMinMax(a.Len(), a.IsNull, func(i int) any { return a.Value(i) }, lessString)
	case *array.Boolean:
		return reduceMinMax(a.Len(), a.IsNull, func(i int) any { return a.Value(i) }, lessBool)
	case *array.Timestamp:
		return reduceMinMax(a.Len(), a.IsNull, func(i int) any { return a.Value(i) }, lessTimestamp)
	default:
		return handle.MinMax{}, false
	}
}

func reduceMinMax(n int, isNull func(int) bool, at func(int) any, less func(a, b any) bool) (handle.MinMax, bool) {
	var min, max any
	found := false
	for i := 0; i < n; i++ {
		if isNull(i) {
			continue
		}
		v := at(i)
		if !found {
			min, max = v, v
			found = true
			continue
		}
		if less(v, min) {
			min = v
		}
		if less(max, v) {
			max = v
		}
	}
	if !found {
		return handle.MinMax{}, false
	}
	return handle.MinMax{Min: min, Max: max}, true
}

func lessInt64(a, b any) bool     { return a.(int64) < b.(int64) }
func lessInt32(a, b any) bool     { return a.(int32) < b.(int32) }
func lessFloat64(a, b any) bool   { return a.(float64) < b.(float64) }
func lessString(a, b any) bool    { return a.(string) < b.(string) }
func lessBool(a, b any) bool      { return !a.(bool) && b.(bool) }
func lessTimestamp(a, b any) bool { return a.(arrow.Timestamp) < b.(arrow.Timestamp) }

// ArrowSchema converts a logical schema into an arrow schema, stamping
// each field's metadata with its ColID so a downstream worker can
// recover column identity purely from the arrow record it receives.
func ArrowSchema(schema logicalplan.Schema) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(schema.Fields))
	for i, f := range schema.Fields {
		dt, err := arrowType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("colpartition: field %q: %w", f.Name, err)
		}
		fields[i] = arrow.Field{
			Name:     f.Name,
			Type:     dt,
			Nullable: true,
			Metadata: arrow.NewMetadata([]string{colIDMetaKey}, []string{strconv.FormatInt(int64(f.ID), 10)}),
		}
	}
	return arrow.NewSchema(fields, nil), nil
}

// FromArrowSchema recovers a logical schema from an arrow schema
// previously built by ArrowSchema.
func FromArrowSchema(schema *arrow.Schema) (logicalplan.Schema, error) {
	fields := make([]logicalplan.Field, schema.NumFields())
	for i, f := range schema.Fields() {
		idx := f.Metadata.FindKey(colIDMetaKey)
		if idx < 0 {
			return logicalplan.Schema{}, fmt.Errorf("colpartition: field %q has no %s metadata", f.Name, colIDMetaKey)
		}
		id, err := strconv.ParseInt(f.Metadata.Values()[idx], 10, 64)
		if err != nil {
			return logicalplan.Schema{}, fmt.Errorf("colpartition: field %q has invalid col_id metadata: %w", f.Name, err)
		}
		fields[i] = logicalplan.Field{ID: logicalplan.ColID(id), Name: f.Name, Type: logicalType(f.Type)}
	}
	return logicalplan.Schema{Fields: fields}, nil
}

func arrowType(t string) (arrow.DataType, error) {
	switch t {
	case "int64":
		return arrow.PrimitiveTypes.Int64, nil
	case "int32":
		return arrow.PrimitiveTypes.Int32, nil
	case "float64":
		return arrow.PrimitiveTypes.Float64, nil
	case "utf8", "string":
		return arrow.BinaryTypes.String, nil
	case "bool", "boolean":
		return arrow.FixedWidthTypes.Boolean, nil
	case "timestamp":
		return arrow.FixedWidthTypes.Timestamp_us, nil
	default:
		return nil, fmt.Errorf("unsupported logical type %q", t)
	}
}

func logicalType(t arrow.DataType) string {
	switch t.ID() {
	case arrow.INT64:
		return "int64"
	case arrow.INT32:
		return "int32"
	case arrow.FLOAT64:
		return "float64"
	case arrow.STRING:
		return "utf8"
	case arrow.BOOL:
		return "bool"
	case arrow.TIMESTAMP:
		return "timestamp"
	default:
		return t.Name()
	}
}
