// Package observability provides structured logging for the execution
// engine: every dispatched task and every scheduler wave emits a
// structured record, logged as newline-delimited JSON with the standard
// library's encoding/json — no external logging framework.
package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// TaskLogEntry records one PartitionTask's outcome.
type TaskLogEntry struct {
	RunID        string
	TaskID       string
	NodeID       string
	Instructions []string
	Wave         int
	QueueMs      int64
	RunMs        int64
	NumRows      int64
	SizeBytes    int64
	Outcome      string // "done", "failed", "cancelled"
	Error        string
}

// Validate checks that all required fields are present.
func (e *TaskLogEntry) Validate() error {
	if e.TaskID == "" {
		return fmt.Errorf("observability: task_id is required")
	}
	if e.RunMs < 0 || e.QueueMs < 0 {
		return fmt.Errorf("observability: durations cannot be negative")
	}
	return nil
}

// WaveLogEntry records one scheduler dispatch wave.
type WaveLogEntry struct {
	RunID        string
	Wave         int
	Pulled       int
	Dispatched   int
	AdmitRejects int
	Completed    int
	Failed       int
	WaitMs       int64
	DurationMs   int64
}

// EngineLogger is the interface every run's logging sink implements.
type EngineLogger interface {
	LogTask(ctx context.Context, entry TaskLogEntry) error
	LogWave(ctx context.Context, entry WaveLogEntry) error
	Summary() *RunSummary
}

// RunSummary aggregates the logger's view of a completed run. It is
// returned by EngineLogger.Summary and rendered by scheduler.Scheduler's
// Explain; the enginectl commands do not print it.
type RunSummary struct {
	TasksDone       int                `json:"tasks_done"`
	TasksFailed     int                `json:"tasks_failed"`
	Waves           int                `json:"waves"`
	TotalRows       int64              `json:"total_rows"`
	TotalBytes      int64              `json:"total_bytes"`
	TopFailedNodes  []NodeFailureStat  `json:"top_failed_nodes,omitempty"`
	SlowestNodes    []NodeDurationStat `json:"slowest_nodes,omitempty"`
}

type NodeFailureStat struct {
	NodeID string `json:"node_id"`
	Count  int    `json:"count"`
}

type NodeDurationStat struct {
	NodeID string `json:"node_id"`
	RunMs  int64  `json:"run_ms"`
}

type jsonTaskLine struct {
	Timestamp    string   `json:"timestamp"`
	Level        string   `json:"level"`
	Kind         string   `json:"kind"`
	RunID        string   `json:"run_id"`
	TaskID       string   `json:"task_id"`
	NodeID       string   `json:"node_id"`
	Instructions []string `json:"instructions"`
	Wave         int      `json:"wave"`
	QueueMs      int64    `json:"queue_ms"`
	RunMs        int64    `json:"run_ms"`
	NumRows      int64    `json:"num_rows"`
	SizeBytes    int64    `json:"size_bytes"`
	Outcome      string   `json:"outcome"`
	Error        string   `json:"error,omitempty"`
}

type jsonWaveLine struct {
	Timestamp    string `json:"timestamp"`
	Level        string `json:"level"`
	Kind         string `json:"kind"`
	RunID        string `json:"run_id"`
	Wave         int    `json:"wave"`
	Pulled       int    `json:"pulled"`
	Dispatched   int    `json:"dispatched"`
	AdmitRejects int    `json:"admit_rejects"`
	Completed    int    `json:"completed"`
	Failed       int    `json:"failed"`
	WaitMs       int64  `json:"wait_ms"`
	DurationMs   int64  `json:"duration_ms"`
}

// JSONLogger writes one JSON line per task/wave event to w, and tracks
// enough state in memory to answer Summary().
type JSONLogger struct {
	writer    io.Writer
	taskLines []TaskLogEntry
	waveLines []WaveLogEntry
	mu        sync.RWMutex
}

// NewJSONLogger creates a logger writing newline-delimited JSON to w.
func NewJSONLogger(w io.Writer) *JSONLogger {
	return &JSONLogger{writer: w}
}

func (l *JSONLogger) LogTask(ctx context.Context, entry TaskLogEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	level := "info"
	if entry.Outcome == "failed" {
		level = "error"
	}
	line := jsonTaskLine{
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		Level:        level,
		Kind:         "task",
		RunID:        entry.RunID,
		TaskID:       entry.TaskID,
		NodeID:       entry.NodeID,
		Instructions: entry.Instructions,
		Wave:         entry.Wave,
		QueueMs:      entry.QueueMs,
		RunMs:        entry.RunMs,
		NumRows:      entry.NumRows,
		SizeBytes:    entry.SizeBytes,
		Outcome:      entry.Outcome,
		Error:        entry.Error,
	}
	if err := l.writeLine(line); err != nil {
		return err
	}
	l.mu.Lock()
	l.taskLines = append(l.taskLines, entry)
	l.mu.Unlock()
	return nil
}

func (l *JSONLogger) LogWave(ctx context.Context, entry WaveLogEntry) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("observability: context error: %w", err)
	}
	line := jsonWaveLine{
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		Level:        "info",
		Kind:         "wave",
		RunID:        entry.RunID,
		Wave:         entry.Wave,
		Pulled:       entry.Pulled,
		Dispatched:   entry.Dispatched,
		AdmitRejects: entry.AdmitRejects,
		Completed:    entry.Completed,
		Failed:       entry.Failed,
		WaitMs:       entry.WaitMs,
		DurationMs:   entry.DurationMs,
	}
	if err := l.writeLine(line); err != nil {
		return err
	}
	l.mu.Lock()
	l.waveLines = append(l.waveLines, entry)
	l.mu.Unlock()
	return nil
}

func (l *JSONLogger) writeLine(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("observability: failed to marshal log: %w", err)
	}
	data = append(data, '\n')
	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("observability: failed to write log: %w", err)
	}
	return nil
}

func (l *JSONLogger) Summary() *RunSummary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	summary := &RunSummary{}
	failedByNode := make(map[string]int)
	runMsByNode := make(map[string]int64)

	for _, e := range l.taskLines {
		switch e.Outcome {
		case "done":
			summary.TasksDone++
		case "failed":
			summary.TasksFailed++
			failedByNode[e.NodeID]++
		}
		summary.TotalRows += e.NumRows
		summary.TotalBytes += e.SizeBytes
		runMsByNode[e.NodeID] += e.RunMs
	}
	summary.Waves = len(l.waveLines)

	for node, count := range failedByNode {
		summary.TopFailedNodes = append(summary.TopFailedNodes, NodeFailureStat{NodeID: node, Count: count})
	}
	sort.Slice(summary.TopFailedNodes, func(i, j int) bool {
		return summary.TopFailedNodes[i].Count > summary.TopFailedNodes[j].Count
	})
	if len(summary.TopFailedNodes) > 5 {
		summary.TopFailedNodes = summary.TopFailedNodes[:5]
	}

	for node, ms := range runMsByNode {
		summary.SlowestNodes = append(summary.SlowestNodes, NodeDurationStat{NodeID: node, RunMs: ms})
	}
	sort.Slice(summary.SlowestNodes, func(i, j int) bool {
		return summary.SlowestNodes[i].RunMs > summary.SlowestNodes[j].RunMs
	})
	if len(summary.SlowestNodes) > 5 {
		summary.SlowestNodes = summary.SlowestNodes[:5]
	}

	return summary
}

// NoopLogger discards every event; used by library callers that don't
// want engine logs on their own stdout.
type NoopLogger struct{}

func NewNoopLogger() *NoopLogger { return &NoopLogger{} }

func (l *NoopLogger) LogTask(ctx context.Context, entry TaskLogEntry) error { return nil }
func (l *NoopLogger) LogWave(ctx context.Context, entry WaveLogEntry) error { return nil }
func (l *NoopLogger) Summary() *RunSummary                                 { return &RunSummary{} }

// PersistentLogger persists task history to Postgres via lib/pq, the
// optional store §6 allows for cross-run resource planning, while also
// mirroring every line to an in-memory JSONLogger for Summary().
type PersistentLogger struct {
	db     *sql.DB
	inner  *JSONLogger
	mu     sync.Mutex
}

// NewPersistentLogger opens a logger that writes to both a Postgres
// task_history table and, optionally, a human-readable writer.
func NewPersistentLogger(db *sql.DB, w io.Writer) (*PersistentLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("observability: database connection is required for persistent logging")
	}
	if w == nil {
		w = io.Discard
	}
	return &PersistentLogger{db: db, inner: NewJSONLogger(w)}, nil
}

func (l *PersistentLogger) LogTask(ctx context.Context, entry TaskLogEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	instrJSON, _ := json.Marshal(entry.Instructions)
	l.mu.Lock()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO task_history (
			run_id, task_id, node_id, instructions_json, wave,
			queue_ms, run_ms, num_rows, size_bytes, outcome, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, entry.RunID, entry.TaskID, entry.NodeID, instrJSON, entry.Wave,
		entry.QueueMs, entry.RunMs, entry.NumRows, entry.SizeBytes, entry.Outcome, nullableString(entry.Error))
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("observability: failed to persist task history: %w", err)
	}
	return l.inner.LogTask(ctx, entry)
}

func (l *PersistentLogger) LogWave(ctx context.Context, entry WaveLogEntry) error {
	l.mu.Lock()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO wave_history (
			run_id, wave, pulled, dispatched, admit_rejects, completed, failed, wait_ms, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, entry.RunID, entry.Wave, entry.Pulled, entry.Dispatched, entry.AdmitRejects, entry.Completed, entry.Failed, entry.WaitMs, entry.DurationMs)
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("observability: failed to persist wave history: %w", err)
	}
	return l.inner.LogWave(ctx, entry)
}

func (l *PersistentLogger) Summary() *RunSummary {
	return l.inner.Summary()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
