package workerexec

import (
	"context"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/canonica-labs/distframe/internal/colpartition"
	enginerrors "github.com/canonica-labs/distframe/internal/errors"
	"github.com/canonica-labs/distframe/internal/logicalplan"
	"github.com/canonica-labs/distframe/internal/partition"
)

func readerFunc(format logicalplan.FileFormat) (string, error) {
	switch format {
	case logicalplan.FormatParquet:
		return "read_parquet", nil
	case logicalplan.FormatCSV:
		return "read_csv_auto", nil
	case logicalplan.FormatJSON:
		return "read_json_auto", nil
	default:
		return "", fmt.Errorf("workerexec: unsupported scan format %v", format)
	}
}

func copyFormatSQL(format logicalplan.FileFormat) (string, error) {
	switch format {
	case logicalplan.FormatParquet:
		return "FORMAT PARQUET", nil
	case logicalplan.FormatCSV:
		return "FORMAT CSV, HEADER TRUE", nil
	case logicalplan.FormatJSON:
		return "FORMAT JSON", nil
	default:
		return "", fmt.Errorf("workerexec: unsupported write format %v", format)
	}
}

// resolvePaths expands each source path through e.storage, when
// configured, so a directory or glob pattern becomes the concrete file
// list DuckDB's table functions receive. With no registry attached,
// paths pass through unchanged and DuckDB's own glob support applies.
func (e *Executor) resolvePaths(ctx context.Context, paths []string) ([]string, error) {
	if e.storage == nil {
		return paths, nil
	}
	var out []string
	for _, p := range paths {
		fs, err := e.storage.Resolve(p)
		if err != nil {
			return nil, err
		}
		objs, err := fs.List(ctx, p)
		if err != nil {
			return nil, err
		}
		for _, o := range objs {
			out = append(out, o.Path)
		}
	}
	return out, nil
}

// ReadFile compiles a scan into a DuckDB table function call; predicate
// is pushed into the SQL WHERE clause rather than applied in a second
// pass, matching predicate pushdown's premise that the worker evaluates
// it natively.
func (e *Executor) ReadFile(ctx context.Context, source logicalplan.ScanSourceInfo, schema logicalplan.Schema, predicate logicalplan.ExpressionList) (partition.Partition, error) {
	fn, err := readerFunc(source.Format)
	if err != nil {
		return nil, err
	}
	resolved, err := e.resolvePaths(ctx, source.Paths)
	if err != nil {
		if len(source.Paths) > 0 {
			return nil, enginerrors.NewScanSourceUnavailable(source.Paths[0], err)
		}
		return nil, enginerrors.NewScanSourceUnavailable("<no path>", err)
	}
	paths := make([]string, len(resolved))
	for i, p := range resolved {
		paths[i] = quoteLiteral(p)
	}
	sqlText := fmt.Sprintf("SELECT %s FROM %s([%s]) %s",
		columnListSQL(schema), fn, strings.Join(paths, ", "), whereSQL(predicate))

	out, err := e.query(ctx, sqlText, schema)
	if err != nil {
		if len(source.Paths) > 0 {
			return nil, enginerrors.NewScanSourceUnavailable(source.Paths[0], err)
		}
		return nil, enginerrors.NewScanSourceUnavailable("<no path>", err)
	}
	return out, nil
}

// WriteFile persists input and returns a one-row summary partition
// carrying the row count written, the same shape a write node's result
// schema expects per logicalplan.NewFileWrite.
func (e *Executor) WriteFile(ctx context.Context, info logicalplan.WriteInfo, input partition.Partition) (partition.Partition, error) {
	table, cleanup, err := e.loadPartition(ctx, input)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	formatSQL, err := copyFormatSQL(info.Format)
	if err != nil {
		return nil, err
	}
	copySQL := fmt.Sprintf("COPY (SELECT * FROM %s) TO %s (%s)", quoteIdent(table), quoteLiteral(info.Path), formatSQL)
	if _, err := e.db.ExecContext(ctx, copySQL); err != nil {
		return nil, fmt.Errorf("workerexec: write to %s: %w", info.Path, err)
	}

	return rowsWrittenPartition(input.NumRows())
}

func rowsWrittenPartition(n int64) (partition.Partition, error) {
	schema := logicalplan.Schema{Fields: []logicalplan.Field{{ID: 0, Name: "rows_written", Type: "int64"}}}
	arrowSchema, err := colpartition.ArrowSchema(schema)
	if err != nil {
		return nil, err
	}
	bldr := array.NewRecordBuilder(memory.DefaultAllocator, arrowSchema)
	defer bldr.Release()
	bldr.Field(0).(*array.Int64Builder).Append(n)
	return colpartition.NewWithSchema(schema, bldr.NewRecord()), nil
}

func (e *Executor) Filter(ctx context.Context, input partition.Partition, predicate logicalplan.ExpressionList) (partition.Partition, error) {
	table, cleanup, err := e.loadPartition(ctx, input)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	schema := input.Schema()
	sqlText := fmt.Sprintf("SELECT %s FROM %s %s", columnListSQL(schema), quoteIdent(table), whereSQL(predicate))
	return e.query(ctx, sqlText, schema)
}

func (e *Executor) Project(ctx context.Context, input partition.Partition, exprs logicalplan.ExpressionList) (partition.Partition, error) {
	table, cleanup, err := e.loadPartition(ctx, input)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	outSchema := exprs.Schema()
	sqlText := fmt.Sprintf("SELECT %s FROM %s", selectListSQL(exprs), quoteIdent(table))
	return e.query(ctx, sqlText, outSchema)
}

func (e *Executor) Aggregate(ctx context.Context, input partition.Partition, agg []logicalplan.AggPair, groupBy logicalplan.ExpressionList) (partition.Partition, error) {
	table, cleanup, err := e.loadPartition(ctx, input)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	selectParts := make([]string, 0, len(groupBy)+len(agg))
	outFields := make([]logicalplan.Field, 0, len(groupBy)+len(agg))
	for _, g := range groupBy {
		selectParts = append(selectParts, fmt.Sprintf("%s AS %s", g.SQL, quoteIdent(g.ColName)))
		outFields = append(outFields, g.Field())
	}
	for _, a := range agg {
		fn := aggFuncSQL(a.Op)
		selectParts = append(selectParts, fmt.Sprintf("%s(%s) AS %s", fn, a.Expr.SQL, quoteIdent(a.Expr.ColName)))
		outFields = append(outFields, a.Expr.Field())
	}

	sqlText := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selectParts, ", "), quoteIdent(table))
	if len(groupBy) > 0 {
		groupPos := make([]string, len(groupBy))
		for i := range groupBy {
			groupPos[i] = fmt.Sprintf("%d", i+1)
		}
		sqlText += " GROUP BY " + strings.Join(groupPos, ", ")
	}

	outSchema := logicalplan.Schema{Fields: outFields}
	return e.query(ctx, sqlText, outSchema)
}

func (e *Executor) LocalLimit(ctx context.Context, input partition.Partition, n int64) (partition.Partition, error) {
	table, cleanup, err := e.loadPartition(ctx, input)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	schema := input.Schema()
	sqlText := fmt.Sprintf("SELECT %s FROM %s LIMIT %d", columnListSQL(schema), quoteIdent(table), n)
	return e.query(ctx, sqlText, schema)
}

// Sample draws a bernoulli sample, DuckDB's independent per-row
// inclusion method; WithReplacement is approximated by the same method
// since DuckDB has no reservoir-with-replacement sampling mode.
func (e *Executor) Sample(ctx context.Context, input partition.Partition, fraction float64, withReplacement bool) (partition.Partition, error) {
	table, cleanup, err := e.loadPartition(ctx, input)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	schema := input.Schema()
	pct := fraction * 100
	sqlText := fmt.Sprintf("SELECT %s FROM %s USING SAMPLE %f PERCENT (bernoulli)", columnListSQL(schema), quoteIdent(table), pct)
	return e.query(ctx, sqlText, schema)
}
