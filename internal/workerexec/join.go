package workerexec

import (
	"context"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/canonica-labs/distframe/internal/colpartition"
	"github.com/canonica-labs/distframe/internal/logicalplan"
	"github.com/canonica-labs/distframe/internal/partition"
)

// Join runs a pure-Go hash join instead of compiling one to SQL, grounded
// on internal/federation.HashJoinExecutor's build/probe split: a hash
// table is built on the right input (keyed by rightKeys) and the left
// input is streamed against it. Keeping join off the DuckDB round trip
// avoids a second schema-mapping layer for outer-join null padding,
// which internal/colpartition's arrow builders already express directly.
func (e *Executor) Join(ctx context.Context, left, right partition.Partition, leftKeys, rightKeys logicalplan.ExpressionList, how logicalplan.JoinHow) (partition.Partition, error) {
	leftRec, err := asRecord(left)
	if err != nil {
		return nil, err
	}
	rightRec, err := asRecord(right)
	if err != nil {
		return nil, err
	}

	leftIdx, err := keyIndices(left.Schema(), leftKeys)
	if err != nil {
		return nil, fmt.Errorf("workerexec: join left keys: %w", err)
	}
	rightIdx, err := keyIndices(right.Schema(), rightKeys)
	if err != nil {
		return nil, fmt.Errorf("workerexec: join right keys: %w", err)
	}

	buildTable := make(map[string][]int, rightRec.NumRows())
	for i := 0; i < int(rightRec.NumRows()); i++ {
		buildTable[rowKey(rightRec, rightIdx, i)] = append(buildTable[rowKey(rightRec, rightIdx, i)], i)
	}
	matchedRight := make(map[int]bool, rightRec.NumRows())

	mergedSchema := logicalplan.Schema{Fields: append(append([]logicalplan.Field{}, left.Schema().Fields...), right.Schema().Fields...)}
	arrowSchema, err := colpartition.ArrowSchema(mergedSchema)
	if err != nil {
		return nil, err
	}
	bldr := array.NewRecordBuilder(memory.DefaultAllocator, arrowSchema)
	defer bldr.Release()
	nLeftCols := int(leftRec.NumCols())

	emit := func(leftRow, rightRow int) {
		for c := 0; c < nLeftCols; c++ {
			var v any
			if leftRow >= 0 {
				v = arrowValueAt(leftRec.Column(c), leftRow)
			}
			_ = appendValue(bldr.Field(c), v)
		}
		for c := 0; c < int(rightRec.NumCols()); c++ {
			var v any
			if rightRow >= 0 {
				v = arrowValueAt(rightRec.Column(c), rightRow)
			}
			_ = appendValue(bldr.Field(nLeftCols+c), v)
		}
	}

	for i := 0; i < int(leftRec.NumRows()); i++ {
		matches := buildTable[rowKey(leftRec, leftIdx, i)]
		if len(matches) == 0 {
			if how == logicalplan.JoinLeft || how == logicalplan.JoinOuter {
				emit(i, -1)
			}
			continue
		}
		for _, m := range matches {
			matchedRight[m] = true
			emit(i, m)
		}
	}

	if how == logicalplan.JoinRight || how == logicalplan.JoinOuter {
		for i := 0; i < int(rightRec.NumRows()); i++ {
			if !matchedRight[i] {
				emit(-1, i)
			}
		}
	}

	return colpartition.NewWithSchema(mergedSchema, bldr.NewRecord()), nil
}

func keyIndices(schema logicalplan.Schema, keys logicalplan.ExpressionList) ([]int, error) {
	idx := make([]int, len(keys))
	for i, k := range keys {
		found := -1
		for j, f := range schema.Fields {
			if f.ID == k.Col {
				found = j
				break
			}
		}
		if found < 0 {
			return nil, fmt.Errorf("join key column %q (id %d) not found in schema", k.ColName, k.Col)
		}
		idx[i] = found
	}
	return idx, nil
}

// rowKey builds a composite key string from row's values at cols, using
// a unit separator so "a","bc" and "ab","c" never collide.
func rowKey(rec arrow.Record, cols []int, row int) string {
	var sb strings.Builder
	for i, c := range cols {
		if i > 0 {
			sb.WriteByte(0x1f)
		}
		fmt.Fprintf(&sb, "%v", arrowValueAt(rec.Column(c), row))
	}
	return sb.String()
}
