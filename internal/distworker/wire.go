// Package distworker is the `runner = distributed` worker pool: a gRPC
// transport for internal/scheduler.WorkerPool that ships tasks to remote
// worker processes instead of running them in-process. No .proto file
// or protoc-generated stub exists for it; messages are plain Go structs
// carried over a hand-registered JSON gRPC codec (see codec.go) and
// dispatched through a hand-written grpc.ServiceDesc (see service.go),
// the same shape as internal/federation.AdapterRegistry generalized from
// "one adapter per SQL engine" to "one adapter per worker transport".
package distworker

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/canonica-labs/distframe/internal/colpartition"
	"github.com/canonica-labs/distframe/internal/logicalplan"
	"github.com/canonica-labs/distframe/internal/partition"
	"github.com/canonica-labs/distframe/internal/task"
)

// WirePartition carries one partition's payload as an Arrow IPC stream,
// the wire-compatible encoding colpartition.Partition's record already
// supports natively. JSON can't hold raw binary, so the stream bytes are
// base64-encoded by encoding/json's []byte handling automatically.
type WirePartition struct {
	IPC []byte `json:"ipc"`
}

// ToWire serializes p as an Arrow IPC stream. p must be backed by
// colpartition.Partition; any other implementation is a programmer error
// since distworker is the transport for the colpartition reference impl.
func ToWire(p partition.Partition) (WirePartition, error) {
	cp, ok := p.(*colpartition.Partition)
	if !ok {
		return WirePartition{}, fmt.Errorf("distworker: cannot serialize partition of type %T", p)
	}
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(cp.Record().Schema()))
	if err := w.Write(cp.Record()); err != nil {
		return WirePartition{}, fmt.Errorf("distworker: ipc write: %w", err)
	}
	if err := w.Close(); err != nil {
		return WirePartition{}, fmt.Errorf("distworker: ipc close: %w", err)
	}
	return WirePartition{IPC: buf.Bytes()}, nil
}

// FromWire decodes a single-record Arrow IPC stream back into a
// colpartition.Partition, recovering column identity from the stream's
// own field metadata (stamped there by colpartition.ArrowSchema).
func FromWire(w WirePartition) (partition.Partition, error) {
	r, err := ipc.NewReader(bytes.NewReader(w.IPC), ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, fmt.Errorf("distworker: ipc reader: %w", err)
	}
	defer r.Release()
	if !r.Next() {
		return nil, fmt.Errorf("distworker: ipc stream carried no record")
	}
	rec := r.Record()
	rec.Retain()
	p, err := colpartition.New(rec)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func toWireList(ps []partition.Partition) ([]WirePartition, error) {
	out := make([]WirePartition, len(ps))
	for i, p := range ps {
		w, err := ToWire(p)
		if err != nil {
			return nil, err
		}
		out[i] = w
	}
	return out, nil
}

func fromWireList(ws []WirePartition) ([]partition.Partition, error) {
	out := make([]partition.Partition, len(ws))
	for i, w := range ws {
		p, err := FromWire(w)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}

// WireInstruction is a tagged union over task.Instruction's concrete
// types. An explicit Kind discriminator is used instead of gob's
// interface registration so the wire format stays a stable, inspectable
// JSON document rather than depending on both peers sharing identical
// gob type registrations.
type WireInstruction struct {
	Kind string `json:"kind"`

	// ReadFile
	Source    *logicalplan.ScanSourceInfo  `json:"source,omitempty"`
	Schema    *logicalplan.Schema          `json:"schema,omitempty"`
	Predicate logicalplan.ExpressionList   `json:"predicate,omitempty"`

	// WriteFile
	WriteInfo *logicalplan.WriteInfo `json:"writeInfo,omitempty"`

	// Project
	Exprs logicalplan.ExpressionList `json:"exprs,omitempty"`

	// Aggregate
	Agg     []logicalplan.AggPair     `json:"agg,omitempty"`
	GroupBy logicalplan.ExpressionList `json:"groupBy,omitempty"`

	// Join
	LeftKeys  logicalplan.ExpressionList `json:"leftKeys,omitempty"`
	RightKeys logicalplan.ExpressionList `json:"rightKeys,omitempty"`
	How       *logicalplan.JoinHow       `json:"how,omitempty"`

	// LocalLimit
	Num int64 `json:"num,omitempty"`

	// Sample
	Fraction        float64 `json:"fraction,omitempty"`
	WithReplacement bool    `json:"withReplacement,omitempty"`

	// ReduceToQuantiles / FanoutRange / ReduceMergeAndSort
	Keys         logicalplan.ExpressionList `json:"keys,omitempty"`
	Descending   []bool                     `json:"descending,omitempty"`
	NumQuantiles int                        `json:"numQuantiles,omitempty"`

	// FanoutHash / FanoutRange / FanoutRandom
	NumPartitions int `json:"numPartitions,omitempty"`
}

// ToWireInstruction converts one of task's concrete Instruction types
// into its tagged-union wire form. Returns an error for any Instruction
// type distworker doesn't know how to ship, so adding a new instruction
// without updating this file fails loudly instead of silently dropping
// fields.
func ToWireInstruction(instr task.Instruction) (WireInstruction, error) {
	switch v := instr.(type) {
	case task.ReadFile:
		return WireInstruction{Kind: "ReadFile", Source: &v.Source, Schema: &v.Schema, Predicate: v.Predicate}, nil
	case task.WriteFile:
		return WireInstruction{Kind: "WriteFile", WriteInfo: &v.Info}, nil
	case task.Filter:
		return WireInstruction{Kind: "Filter", Predicate: v.Predicate}, nil
	case task.Project:
		return WireInstruction{Kind: "Project", Exprs: v.Exprs}, nil
	case task.Aggregate:
		return WireInstruction{Kind: "Aggregate", Agg: v.Agg, GroupBy: v.GroupBy}, nil
	case task.Join:
		how := v.How
		return WireInstruction{Kind: "Join", LeftKeys: v.LeftKeys, RightKeys: v.RightKeys, How: &how}, nil
	case task.LocalLimit:
		return WireInstruction{Kind: "LocalLimit", Num: v.Num}, nil
	case task.Sample:
		return WireInstruction{Kind: "Sample", Fraction: v.Fraction, WithReplacement: v.WithReplacement}, nil
	case task.ReduceToQuantiles:
		return WireInstruction{Kind: "ReduceToQuantiles", Keys: v.Keys, Descending: v.Descending, NumQuantiles: v.NumQuantiles}, nil
	case task.FanoutHash:
		return WireInstruction{Kind: "FanoutHash", Keys: v.Keys, NumPartitions: v.NumPartitions}, nil
	case task.FanoutRange:
		return WireInstruction{Kind: "FanoutRange", Keys: v.Keys, Descending: v.Descending, NumPartitions: v.NumPartitions}, nil
	case task.FanoutRandom:
		return WireInstruction{Kind: "FanoutRandom", NumPartitions: v.NumPartitions}, nil
	case task.ReduceMerge:
		return WireInstruction{Kind: "ReduceMerge"}, nil
	case task.ReduceMergeAndSort:
		return WireInstruction{Kind: "ReduceMergeAndSort", Keys: v.Keys, Descending: v.Descending}, nil
	default:
		return WireInstruction{}, fmt.Errorf("distworker: unknown instruction type %T", instr)
	}
}

// FromWireInstruction reconstructs the concrete task.Instruction a
// WireInstruction was built from.
func FromWireInstruction(w WireInstruction) (task.Instruction, error) {
	switch w.Kind {
	case "ReadFile":
		return task.ReadFile{Source: deref(w.Source), Schema: deref(w.Schema), Predicate: w.Predicate}, nil
	case "WriteFile":
		return task.WriteFile{Info: deref(w.WriteInfo)}, nil
	case "Filter":
		return task.Filter{Predicate: w.Predicate}, nil
	case "Project":
		return task.Project{Exprs: w.Exprs}, nil
	case "Aggregate":
		return task.Aggregate{Agg: w.Agg, GroupBy: w.GroupBy}, nil
	case "Join":
		how := logicalplan.JoinInner
		if w.How != nil {
			how = *w.How
		}
		return task.Join{LeftKeys: w.LeftKeys, RightKeys: w.RightKeys, How: how}, nil
	case "LocalLimit":
		return task.LocalLimit{Num: w.Num}, nil
	case "Sample":
		return task.Sample{Fraction: w.Fraction, WithReplacement: w.WithReplacement}, nil
	case "ReduceToQuantiles":
		return task.ReduceToQuantiles{Keys: w.Keys, Descending: w.Descending, NumQuantiles: w.NumQuantiles}, nil
	case "FanoutHash":
		return task.FanoutHash{Keys: w.Keys, NumPartitions: w.NumPartitions}, nil
	case "FanoutRange":
		return task.FanoutRange{Keys: w.Keys, Descending: w.Descending, NumPartitions: w.NumPartitions}, nil
	case "FanoutRandom":
		return task.FanoutRandom{NumPartitions: w.NumPartitions}, nil
	case "ReduceMerge":
		return task.ReduceMerge{}, nil
	case "ReduceMergeAndSort":
		return task.ReduceMergeAndSort{Keys: w.Keys, Descending: w.Descending}, nil
	default:
		return nil, fmt.Errorf("distworker: unknown instruction kind %q", w.Kind)
	}
}

func deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// DispatchRequest asks a worker to run a fused instruction chain against
// the given input partitions. TaskID lets the server correlate a later
// CancelTask call; NodeID is carried through for log/trace correlation
// only.
type DispatchRequest struct {
	TaskID       string            `json:"taskId"`
	NodeID       string            `json:"nodeId"`
	Instructions []WireInstruction `json:"instructions"`
	Inputs       []WirePartition   `json:"inputs"`
}

// DispatchResponse acknowledges a dispatch was accepted for async
// execution; the result itself is collected via WaitForCompletion.
type DispatchResponse struct {
	Accepted bool   `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

// WaitRequest polls for completed tasks, blocking server-side up to
// TimeoutMillis for at least one to finish.
type WaitRequest struct {
	TaskIDs      []string `json:"taskIds"`
	TimeoutMillis int64   `json:"timeoutMillis"`
}

// TaskResult is one task's outcome, reported back once its chain finishes.
type TaskResult struct {
	TaskID  string          `json:"taskId"`
	Outputs []WirePartition `json:"outputs,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// WaitResponse reports every task that finished before the wait
// deadline; TaskIDs not present in Done are still running or queued.
type WaitResponse struct {
	Done []TaskResult `json:"done"`
}

// CancelRequest best-effort cancels a dispatched task.
type CancelRequest struct {
	TaskID string `json:"taskId"`
}

// CancelResponse acknowledges a cancel request was received.
type CancelResponse struct{}
