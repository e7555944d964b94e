package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/canonica-labs/distframe/internal/logicalplan"
)

// JobSpec is the on-disk description enginectl run/explain compiles
// into a logical plan: a tabular file scan, optional filter/projection
// SQL-text expressions evaluated worker-side, and a file write. This is
// the engine's job-submission surface in place of SQL query text: the
// core logical-plan API takes already-resolved expressions, not a
// parser, so the job spec carries resolved column names/types directly.
type JobSpec struct {
	Source JobSource `json:"source"`
	Filter string    `json:"filter,omitempty"`
	Select []string  `json:"select,omitempty"`
	Limit  *int64    `json:"limit,omitempty"`
	Write  *JobWrite `json:"write,omitempty"`
}

// JobSource describes the input files and their schema.
type JobSource struct {
	Format        string          `json:"format"`
	Paths         []string        `json:"paths"`
	Columns       []JobColumn     `json:"columns"`
	NumPartitions int             `json:"numPartitions"`
}

// JobColumn names and types one input column.
type JobColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// JobWrite describes the output file sink.
type JobWrite struct {
	Format             string `json:"format"`
	Path               string `json:"path"`
	TargetFileSizeByte int64  `json:"targetFileSizeBytes"`
}

// LoadJobSpec reads and parses a job spec file.
func LoadJobSpec(path string) (*JobSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cli: failed to read job spec %s: %w", path, err)
	}
	var spec JobSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("cli: failed to parse job spec %s: %w", path, err)
	}
	if len(spec.Source.Paths) == 0 {
		return nil, fmt.Errorf("cli: job spec %s: source.paths must be non-empty", path)
	}
	if len(spec.Source.Columns) == 0 {
		return nil, fmt.Errorf("cli: job spec %s: source.columns must be non-empty", path)
	}
	return &spec, nil
}

// Compile builds the logical plan this job spec describes: a scan, an
// optional filter, an optional projection, an optional global row cap,
// and an optional write.
func (spec *JobSpec) Compile() (logicalplan.Node, error) {
	var alloc logicalplan.ColIDAllocator
	fields := make([]logicalplan.Field, len(spec.Source.Columns))
	for i, c := range spec.Source.Columns {
		fields[i] = logicalplan.Field{ID: alloc.Next(), Name: c.Name, Type: c.Type}
	}
	schema := logicalplan.NewSchema(fields...)

	format, err := parseFormat(spec.Source.Format)
	if err != nil {
		return nil, err
	}
	numPartitions := spec.Source.NumPartitions
	if numPartitions <= 0 {
		numPartitions = 1
	}

	var node logicalplan.Node = logicalplan.NewTabularFilesScan(
		schema,
		logicalplan.ScanSourceInfo{Format: format, Paths: spec.Source.Paths},
		logicalplan.UnknownSpec(numPartitions),
	)

	if spec.Filter != "" {
		node = logicalplan.NewFilter(node, logicalplan.ExpressionList{{SQL: spec.Filter}})
	}

	if len(spec.Select) > 0 {
		exprs := make(logicalplan.ExpressionList, 0, len(spec.Select))
		for _, name := range spec.Select {
			f, ok := schema.FieldByName(name)
			if !ok {
				return nil, fmt.Errorf("cli: job spec references unknown column %q", name)
			}
			exprs = append(exprs, logicalplan.Expression{Col: f.ID, ColName: f.Name, ColType: f.Type, SQL: f.Name})
		}
		node = logicalplan.NewProjection(node, exprs)
	}

	if spec.Limit != nil {
		node = logicalplan.NewGlobalLimit(node, *spec.Limit)
	}

	if spec.Write != nil {
		writeFormat, err := parseFormat(spec.Write.Format)
		if err != nil {
			return nil, err
		}
		resultSchema := logicalplan.NewSchema(logicalplan.Field{ID: alloc.Next(), Name: "path", Type: "utf8"})
		node = logicalplan.NewFileWrite(node, logicalplan.WriteInfo{
			Format:             writeFormat,
			Path:               spec.Write.Path,
			TargetFileSizeByte: spec.Write.TargetFileSizeByte,
		}, resultSchema)
	}

	return node, nil
}

func parseFormat(s string) (logicalplan.FileFormat, error) {
	switch s {
	case "parquet", "":
		return logicalplan.FormatParquet, nil
	case "csv":
		return logicalplan.FormatCSV, nil
	case "json":
		return logicalplan.FormatJSON, nil
	default:
		return 0, fmt.Errorf("cli: unknown file format %q", s)
	}
}
