// Package workerexec is the reference implementation of task.Executor
// (§6): every instruction except Join (a pure-Go hash join, join.go)
// is compiled into SQL and run against an
// in-process DuckDB connection, the way the teacher's internal/adapters
// package wraps sql.Open("duckdb", ...) for query execution. Partitions
// cross the boundary as internal/colpartition.Partition, the arrow-go
// record wrapper; any other partition.Partition implementation is
// rejected since this executor has no way to read its payload.
package workerexec

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/canonica-labs/distframe/internal/colpartition"
	"github.com/canonica-labs/distframe/internal/logicalplan"
	"github.com/canonica-labs/distframe/internal/partition"
	"github.com/canonica-labs/distframe/internal/storagefs"
)

// Executor runs every task.Executor operation (except Join, a pure-Go
// hash join, see join.go) by materializing its input partitions into
// DuckDB temp tables and compiling the operation into SQL.
type Executor struct {
	db       *sql.DB
	tableSeq atomic.Uint64

	// storage resolves ReadFile's source paths before they're handed to
	// DuckDB's table functions, expanding directories and glob patterns
	// into concrete files. Nil means ReadFile passes paths through
	// unchanged, letting DuckDB's own glob support handle them.
	storage *storagefs.Registry
}

// NewExecutor opens a DuckDB database at path ("" or ":memory:" for an
// in-process database, matching the teacher's AdapterConfig.DatabasePath
// convention).
func NewExecutor(path string) (*Executor, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("workerexec: open duckdb %q: %w", path, err)
	}
	return &Executor{db: db}, nil
}

// WithStorage attaches a storagefs.Registry that ReadFile uses to
// resolve and expand its source paths before querying DuckDB, returning
// e for chaining at construction time.
func (e *Executor) WithStorage(reg *storagefs.Registry) *Executor {
	e.storage = reg
	return e
}

// NewInMemoryExecutor is the common case: one throwaway DuckDB database
// per worker process.
func NewInMemoryExecutor() (*Executor, error) {
	return NewExecutor(":memory:")
}

// Close releases the underlying DuckDB connection.
func (e *Executor) Close() error {
	return e.db.Close()
}

func (e *Executor) nextTableName() string {
	return fmt.Sprintf("t_%d", e.tableSeq.Add(1))
}

// loadPartition materializes p into a freshly named DuckDB table and
// returns the table name plus a cleanup func that drops it. p must be a
// *colpartition.Partition; anything else is a caller bug since
// internal/scheduler only ever wires workerexec behind colpartition.
func (e *Executor) loadPartition(ctx context.Context, p partition.Partition) (string, func(), error) {
	rec, err := asRecord(p)
	if err != nil {
		return "", nil, err
	}

	table := e.nextTableName()
	schema := p.Schema()

	ddl, err := createTableDDL(table, schema)
	if err != nil {
		return "", nil, err
	}
	if _, err := e.db.ExecContext(ctx, ddl); err != nil {
		return "", nil, fmt.Errorf("workerexec: create table %s: %w", table, err)
	}

	cleanup := func() {
		_, _ = e.db.ExecContext(context.Background(), "DROP TABLE IF EXISTS "+quoteIdent(table))
	}

	if rec.NumRows() == 0 {
		return table, cleanup, nil
	}

	placeholders := make([]string, rec.NumCols())
	for i := range placeholders {
		placeholders[i] = "?"
	}
	insertSQL := fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(table), strings.Join(placeholders, ", "))

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("workerexec: begin load tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		_ = tx.Rollback()
		cleanup()
		return "", nil, fmt.Errorf("workerexec: prepare insert into %s: %w", table, err)
	}
	for row := 0; row < int(rec.NumRows()); row++ {
		args := make([]any, rec.NumCols())
		for col := 0; col < int(rec.NumCols()); col++ {
			args[col] = arrowValueAt(rec.Column(col), row)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			cleanup()
			return "", nil, fmt.Errorf("workerexec: load row %d into %s: %w", row, table, err)
		}
	}
	_ = stmt.Close()
	if err := tx.Commit(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("workerexec: commit load into %s: %w", table, err)
	}

	return table, cleanup, nil
}

// query runs sqlText and decodes its rows into a colpartition.Partition
// under outSchema.
func (e *Executor) query(ctx context.Context, sqlText string, outSchema logicalplan.Schema) (partition.Partition, error) {
	rows, err := e.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, fmt.Errorf("workerexec: query failed: %s: %w", sqlText, err)
	}
	defer rows.Close()

	rec, err := scanRowsToRecord(rows, outSchema)
	if err != nil {
		return nil, err
	}
	return colpartition.NewWithSchema(outSchema, rec), nil
}

func asRecord(p partition.Partition) (arrow.Record, error) {
	cp, ok := p.(*colpartition.Partition)
	if !ok {
		return nil, fmt.Errorf("workerexec: executor requires *colpartition.Partition inputs, got %T", p)
	}
	return cp.Record(), nil
}

func createTableDDL(table string, schema logicalplan.Schema) (string, error) {
	cols := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		ddlType, err := duckdbType(f.Type)
		if err != nil {
			return "", err
		}
		cols[i] = fmt.Sprintf("%s %s", quoteIdent(f.Name), ddlType)
	}
	return fmt.Sprintf("CREATE TEMP TABLE %s (%s)", quoteIdent(table), strings.Join(cols, ", ")), nil
}

func duckdbType(logicalType string) (string, error) {
	switch logicalType {
	case "int64":
		return "BIGINT", nil
	case "int32":
		return "INTEGER", nil
	case "float64":
		return "DOUBLE", nil
	case "utf8", "string":
		return "VARCHAR", nil
	case "bool", "boolean":
		return "BOOLEAN", nil
	case "timestamp":
		return "TIMESTAMP", nil
	default:
		return "", fmt.Errorf("workerexec: unsupported column type %q", logicalType)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// arrowValueAt reads column col's value at row i as a database/sql
// parameter, mirroring the type set colpartition.minMaxOfArray switches
// on.
func arrowValueAt(col arrow.Array, i int) any {
	if col.IsNull(i) {
		return nil
	}
	switch a := col.(type) {
	case *array.Int64:
		return a.Value(i)
	case *array.Int32:
		return a.Value(i)
	case *array.Float64:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.Boolean:
		return a.Value(i)
	case *array.Timestamp:
		return time.UnixMicro(int64(a.Value(i))).UTC()
	default:
		return nil
	}
}

// scanRowsToRecord decodes rows positionally against outSchema's fields,
// building one arrow column per field via colpartition's arrow schema
// conversion so the result round-trips through FromArrowSchema cleanly.
func scanRowsToRecord(rows *sql.Rows, outSchema logicalplan.Schema) (arrow.Record, error) {
	arrowSchema, err := colpartition.ArrowSchema(outSchema)
	if err != nil {
		return nil, err
	}
	bldr := array.NewRecordBuilder(memory.DefaultAllocator, arrowSchema)
	defer bldr.Release()

	n := len(outSchema.Fields)
	dest := make([]any, n)
	ptrs := make([]any, n)
	for i := range dest {
		ptrs[i] = &dest[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("workerexec: scan row: %w", err)
		}
		for i := range dest {
			if err := appendValue(bldr.Field(i), dest[i]); err != nil {
				return nil, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("workerexec: row iteration: %w", err)
	}

	return bldr.NewRecord(), nil
}

func appendValue(b array.Builder, v any) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	switch bld := b.(type) {
	case *array.Int64Builder:
		bld.Append(toInt64(v))
	case *array.Int32Builder:
		bld.Append(int32(toInt64(v)))
	case *array.Float64Builder:
		bld.Append(toFloat64(v))
	case *array.StringBuilder:
		bld.Append(toStringVal(v))
	case *array.BooleanBuilder:
		bld.Append(toBoolVal(v))
	case *array.TimestampBuilder:
		bld.Append(toTimestampVal(v))
	default:
		return fmt.Errorf("workerexec: unsupported arrow builder %T", b)
	}
	return nil
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case []byte:
		n, _ := strconv.ParseInt(string(t), 10, 64)
		return n
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int64:
		return float64(t)
	case []byte:
		f, _ := strconv.ParseFloat(string(t), 64)
		return f
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	default:
		return 0
	}
}

func toStringVal(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func toBoolVal(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int64:
		return t != 0
	case []byte:
		b, _ := strconv.ParseBool(string(t))
		return b
	default:
		return false
	}
}

func toTimestampVal(v any) arrow.Timestamp {
	switch t := v.(type) {
	case time.Time:
		return arrow.Timestamp(t.UnixMicro())
	case int64:
		return arrow.Timestamp(t)
	default:
		return 0
	}
}
