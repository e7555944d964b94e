package workerexec

import (
	"context"
	"fmt"
	"strings"

	"github.com/canonica-labs/distframe/internal/logicalplan"
	"github.com/canonica-labs/distframe/internal/partition"
)

// loadAll materializes every input into its own temp table and returns a
// single unioned view name plus a cleanup that drops every temp table.
func (e *Executor) loadAll(ctx context.Context, inputs []partition.Partition) ([]string, func(), error) {
	tables := make([]string, 0, len(inputs))
	cleanups := make([]func(), 0, len(inputs))
	cleanupAll := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	for _, in := range inputs {
		table, cleanup, err := e.loadPartition(ctx, in)
		if err != nil {
			cleanupAll()
			return nil, nil, err
		}
		tables = append(tables, table)
		cleanups = append(cleanups, cleanup)
	}
	return tables, cleanupAll, nil
}

func unionAllSQL(tables []string, columns string) string {
	parts := make([]string, len(tables))
	for i, t := range tables {
		parts[i] = fmt.Sprintf("SELECT %s FROM %s", columns, quoteIdent(t))
	}
	return strings.Join(parts, " UNION ALL ")
}

// ReduceToQuantiles merges the sampled inputs and computes numQuantiles
// boundary rows per sort key using DuckDB's quantile_cont, the boundary
// set FanoutRange partitions against (numQuantiles+1 buckets).
func (e *Executor) ReduceToQuantiles(ctx context.Context, inputs []partition.Partition, keys logicalplan.ExpressionList, descending []bool, numQuantiles int) (partition.Partition, error) {
	if numQuantiles < 0 {
		numQuantiles = 0
	}
	tables, cleanup, err := e.loadAll(ctx, inputs)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	keySchema := keys.Schema()
	keyNames := make([]string, len(keys))
	for i, k := range keys {
		keyNames[i] = quoteIdent(k.ColName)
	}
	mergedSQL := unionAllSQL(tables, strings.Join(keyNames, ", "))

	boundaries := numQuantiles
	if boundaries < 1 {
		// No interior boundaries: every row lands in the single bucket.
		sqlText := fmt.Sprintf("SELECT %s FROM (%s) AS merged LIMIT 0", strings.Join(keyNames, ", "), mergedSQL)
		return e.query(ctx, sqlText, keySchema)
	}

	selects := make([]string, boundaries)
	for i := 0; i < boundaries; i++ {
		frac := float64(i+1) / float64(numQuantiles+1)
		cols := make([]string, len(keys))
		for j, name := range keyNames {
			cols[j] = fmt.Sprintf("quantile_cont(%s, %f) AS %s", name, frac, name)
		}
		selects[i] = fmt.Sprintf("SELECT %s FROM (%s) AS merged", strings.Join(cols, ", "), mergedSQL)
	}
	sqlText := strings.Join(selects, " UNION ALL ")
	sqlText = fmt.Sprintf("SELECT * FROM (%s) AS boundaries %s", sqlText, orderBySQL(keys, descending))

	return e.query(ctx, sqlText, keySchema)
}

// FanoutHash buckets input by hash(keys) % numPartitions.
func (e *Executor) FanoutHash(ctx context.Context, input partition.Partition, keys logicalplan.ExpressionList, numPartitions int) ([]partition.Partition, error) {
	table, cleanup, err := e.loadPartition(ctx, input)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	schema := input.Schema()
	keyNames := make([]string, len(keys))
	for i, k := range keys {
		keyNames[i] = quoteIdent(k.ColName)
	}
	hashExpr := fmt.Sprintf("abs(hash(%s)) %% %d", strings.Join(keyNames, ", "), numPartitions)

	out := make([]partition.Partition, numPartitions)
	for i := 0; i < numPartitions; i++ {
		sqlText := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %d", columnListSQL(schema), quoteIdent(table), hashExpr, i)
		p, err := e.query(ctx, sqlText, schema)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// FanoutRange buckets input against boundaries, a ReduceToQuantiles
// output. Only the first sort key decides bucket membership: composite
// range partitioning on every key is not worth the SQL complexity when
// one leading key already gives each bucket contiguous ranges.
func (e *Executor) FanoutRange(ctx context.Context, input, boundaries partition.Partition, keys logicalplan.ExpressionList, descending []bool) ([]partition.Partition, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("workerexec: FanoutRange requires at least one sort key")
	}
	boundaryRec, err := asRecord(boundaries)
	if err != nil {
		return nil, err
	}

	primary := keys[0]
	desc := len(descending) > 0 && descending[0]
	numBuckets := int(boundaryRec.NumRows()) + 1

	literals := make([]string, boundaryRec.NumRows())
	for i := 0; i < int(boundaryRec.NumRows()); i++ {
		v := arrowValueAt(boundaryRec.Column(0), i)
		literals[i] = sqlLiteral(v)
	}

	table, cleanup, err := e.loadPartition(ctx, input)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	schema := input.Schema()
	col := quoteIdent(primary.ColName)

	out := make([]partition.Partition, numBuckets)
	for i := 0; i < numBuckets; i++ {
		var cond string
		switch {
		case i == 0 && numBuckets == 1:
			cond = "TRUE"
		case i == 0:
			cmp := "<="
			if desc {
				cmp = ">="
			}
			cond = fmt.Sprintf("%s %s %s", col, cmp, literals[0])
		case i == numBuckets-1:
			cmp := ">"
			if desc {
				cmp = "<"
			}
			cond = fmt.Sprintf("%s %s %s", col, cmp, literals[i-1])
		default:
			lo, hi := literals[i-1], literals[i]
			cmpLo, cmpHi := ">", "<="
			if desc {
				lo, hi = literals[i], literals[i-1]
				cmpLo, cmpHi = ">=", "<"
			}
			cond = fmt.Sprintf("%s %s %s AND %s %s %s", col, cmpLo, lo, col, cmpHi, hi)
		}
		sqlText := fmt.Sprintf("SELECT %s FROM %s WHERE %s", columnListSQL(schema), quoteIdent(table), cond)
		p, err := e.query(ctx, sqlText, schema)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func sqlLiteral(v any) string {
	switch t := v.(type) {
	case string:
		return quoteLiteral(t)
	case nil:
		return "NULL"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// FanoutRandom assigns each row a uniformly random bucket in one pass so
// every row lands in exactly one output, then filters per bucket.
func (e *Executor) FanoutRandom(ctx context.Context, input partition.Partition, numPartitions int) ([]partition.Partition, error) {
	table, cleanup, err := e.loadPartition(ctx, input)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	schema := input.Schema()
	bucketed := e.nextTableName()
	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s AS SELECT %s, CAST(floor(random() * %d) AS INTEGER) AS __bucket FROM %s",
		quoteIdent(bucketed), columnListSQL(schema), numPartitions, quoteIdent(table),
	)
	if _, err := e.db.ExecContext(ctx, createSQL); err != nil {
		return nil, fmt.Errorf("workerexec: fanout random bucket assignment: %w", err)
	}
	defer e.db.ExecContext(context.Background(), "DROP TABLE IF EXISTS "+quoteIdent(bucketed))

	out := make([]partition.Partition, numPartitions)
	for i := 0; i < numPartitions; i++ {
		sqlText := fmt.Sprintf("SELECT %s FROM %s WHERE __bucket = %d", columnListSQL(schema), quoteIdent(bucketed), i)
		p, err := e.query(ctx, sqlText, schema)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

func (e *Executor) ReduceMerge(ctx context.Context, inputs []partition.Partition) (partition.Partition, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("workerexec: ReduceMerge requires at least one input")
	}
	schema := inputs[0].Schema()
	tables, cleanup, err := e.loadAll(ctx, inputs)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	sqlText := unionAllSQL(tables, columnListSQL(schema))
	return e.query(ctx, sqlText, schema)
}

func (e *Executor) ReduceMergeAndSort(ctx context.Context, inputs []partition.Partition, keys logicalplan.ExpressionList, descending []bool) (partition.Partition, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("workerexec: ReduceMergeAndSort requires at least one input")
	}
	schema := inputs[0].Schema()
	tables, cleanup, err := e.loadAll(ctx, inputs)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	sqlText := fmt.Sprintf("SELECT * FROM (%s) AS merged %s", unionAllSQL(tables, columnListSQL(schema)), orderBySQL(keys, descending))
	return e.query(ctx, sqlText, schema)
}
