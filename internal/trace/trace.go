// Package trace writes scheduler execution traces in the Chrome Trace
// Event Format, the same JSON array structure a browser's
// chrome://tracing viewer or Perfetto accepts. One pid is reserved for
// the scheduler's dispatch loop, one for stage durations, and a pid
// per node starting at NodePIDsStart for per-worker execution spans.
package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

const (
	SchedulerPID  = 1
	StagesPID     = 2
	NodePIDsStart = 100
)

// Phase is a Chrome Trace Event Format event type.
type Phase string

const (
	PhaseMetadata     Phase = "M"
	PhaseDurationBegin Phase = "B"
	PhaseDurationEnd   Phase = "E"
	PhaseInstant       Phase = "i"
	PhaseAsyncBegin    Phase = "b"
	PhaseAsyncEnd      Phase = "e"
	PhaseAsyncInstant  Phase = "n"
	PhaseFlowStart     Phase = "s"
	PhaseFlowFinish    Phase = "f"
	PhaseCounter       Phase = "C"
)

// event mirrors the JSON shape the format expects; Args is left as
// map[string]any since event payloads vary by phase.
type event struct {
	Name     string         `json:"name,omitempty"`
	Category string         `json:"category,omitempty"`
	Phase    Phase          `json:"ph"`
	PID      int            `json:"pid"`
	TID      int            `json:"tid"`
	ID       string         `json:"id,omitempty"`
	BP       string         `json:"bp,omitempty"`
	TS       int64          `json:"ts"`
	Args     map[string]any `json:"args,omitempty"`
}

// Writer streams Chrome Trace Event Format JSON to an underlying
// io.Writer, opening the array on construction and closing it on
// Finalize. Safe for concurrent use from multiple scheduler goroutines.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	start   time.Time
	wrote   bool
	enabled bool
}

// NewWriter wraps w as a trace sink. If w is nil, the writer is a no-op
// (used when Config.Trace.Enabled is false) so call sites never need to
// branch on whether tracing is on.
func NewWriter(w io.Writer) *Writer {
	tw := &Writer{w: w, start: time.Now(), enabled: w != nil}
	if tw.enabled {
		io.WriteString(tw.w, "[")
	}
	return tw
}

func (w *Writer) nowTS() int64 {
	return time.Since(w.start).Microseconds()
}

func (w *Writer) write(e event) {
	if !w.enabled {
		return
	}
	if e.TS == 0 {
		e.TS = w.nowTS()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	if w.wrote {
		io.WriteString(w.w, ",\n")
	}
	w.w.Write(data)
	w.wrote = true
}

// WriteProcessNames emits "M" metadata events naming the scheduler and
// stages pids, plus one per node pid supplied.
func (w *Writer) WriteProcessNames(nodeNames map[int]string) {
	w.write(event{Name: "process_name", Phase: PhaseMetadata, PID: SchedulerPID, Args: map[string]any{"name": "Scheduler"}})
	w.write(event{Name: "process_name", Phase: PhaseMetadata, PID: StagesPID, Args: map[string]any{"name": "Stages"}})
	for pid, name := range nodeNames {
		w.write(event{Name: "process_name", Phase: PhaseMetadata, PID: pid, Args: map[string]any{"name": name}})
	}
}

// BeginDuration writes a "B" event on (pid, tid).
func (w *Writer) BeginDuration(pid, tid int, name string, args map[string]any) {
	w.write(event{Name: name, Phase: PhaseDurationBegin, PID: pid, TID: tid, Args: args})
}

// EndDuration writes an "E" event on (pid, tid).
func (w *Writer) EndDuration(pid, tid int, name string, args map[string]any) {
	w.write(event{Name: name, Phase: PhaseDurationEnd, PID: pid, TID: tid, Args: args})
}

// AsyncBegin writes a "b" event identified by id, grouping async spans
// that may overlap (one per in-flight task) on the scheduler pid/tid.
func (w *Writer) AsyncBegin(id, category, name string, args map[string]any) {
	w.write(event{ID: id, Category: category, Name: name, Phase: PhaseAsyncBegin, PID: SchedulerPID, TID: 1, Args: args})
}

// AsyncEnd writes the matching "e" event for a prior AsyncBegin id.
func (w *Writer) AsyncEnd(id, category, name string) {
	w.write(event{ID: id, Category: category, Name: name, Phase: PhaseAsyncEnd, PID: SchedulerPID, TID: 1})
}

// FlowStart/FlowFinish link a stage duration to the node pid/tid that
// executed it, "s" begins the flow arrow and "f" ends it.
func (w *Writer) FlowStart(id string, pid, tid int, name string) {
	w.write(event{ID: id, Name: name, Phase: PhaseFlowStart, PID: pid, TID: tid})
}

func (w *Writer) FlowFinish(id string, pid, tid int, name string) {
	w.write(event{ID: id, Name: name, Phase: PhaseFlowFinish, BP: "e", PID: pid, TID: tid})
}

// Counter writes a "C" event recording a named numeric series, used for
// the in-flight task count displayed as a timeline graph.
func (w *Writer) Counter(name string, value int) {
	w.write(event{Name: name, Phase: PhaseCounter, PID: SchedulerPID, TID: 1, Args: map[string]any{"value": value}})
}

// TaskCreated records a task's birth as an async span keyed by taskID,
// tagged with its stage, resources and fused instruction names.
func (w *Writer) TaskCreated(taskID string, nodeID string, cpu, gpu float64, memBytes int64, instructions string) {
	w.AsyncBegin(taskID, "task", fmt.Sprintf("task_execution.node-%s", nodeID), map[string]any{
		"task_id":      taskID,
		"node_id":      nodeID,
		"num_cpus":     cpu,
		"num_gpus":     gpu,
		"memory_bytes": memBytes,
		"instructions": instructions,
	})
}

// TaskDispatched/TaskCompleted bracket the admitted-and-running portion
// of a task's lifetime with their own async span.
func (w *Writer) TaskDispatched(taskID string) {
	w.AsyncBegin(taskID+"-dispatch", "task", "task_dispatch", nil)
}

func (w *Writer) TaskCompleted(taskID, nodeID string) {
	w.AsyncEnd(taskID+"-dispatch", "task", "task_dispatch")
	w.AsyncEnd(taskID, "task", fmt.Sprintf("task_execution.node-%s", nodeID))
}

// DispatchWave brackets one scheduler wave (pull+dispatch+await) with a
// duration span on the scheduler's own tid.
func (w *Writer) DispatchWave(waveNum int, fn func()) {
	w.BeginDuration(SchedulerPID, 1, fmt.Sprintf("wave-%d", waveNum), map[string]any{"wave_num": waveNum})
	fn()
	w.EndDuration(SchedulerPID, 1, fmt.Sprintf("wave-%d", waveNum), nil)
}

// Finalize closes the JSON array. Call exactly once, after the last
// event has been written.
func (w *Writer) Finalize() error {
	if !w.enabled {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := io.WriteString(w.w, "]"); err != nil {
		return fmt.Errorf("trace: failed to write footer: %w", err)
	}
	return nil
}
