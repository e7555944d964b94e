package distworker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/canonica-labs/distframe/internal/partition"
	"github.com/canonica-labs/distframe/internal/task"
)

// Server is the worker-side WorkerService implementation: it runs
// dispatched instruction chains against a local task.Executor via
// task.RunChain, the exact function internal/scheduler.LocalWorkerPool
// uses in-process, so a fused task executes identically whichever
// runner the client config chose.
type Server struct {
	exec task.Executor

	mu        sync.Mutex
	results   map[string]TaskResult
	cancelled map[string]bool
	cancelFns map[string]context.CancelFunc
	notify    chan struct{} // closed and replaced whenever a result lands
}

// NewServer builds a Server that runs every dispatched task against exec.
func NewServer(exec task.Executor) *Server {
	return &Server{
		exec:      exec,
		results:   make(map[string]TaskResult),
		cancelled: make(map[string]bool),
		cancelFns: make(map[string]context.CancelFunc),
		notify:    make(chan struct{}),
	}
}

func (s *Server) DispatchTask(ctx context.Context, req *DispatchRequest) (*DispatchResponse, error) {
	instrs := make([]task.Instruction, len(req.Instructions))
	for i, wi := range req.Instructions {
		instr, err := FromWireInstruction(wi)
		if err != nil {
			return &DispatchResponse{Accepted: false, Error: err.Error()}, nil
		}
		instrs[i] = instr
	}
	inputs, err := fromWireList(req.Inputs)
	if err != nil {
		return &DispatchResponse{Accepted: false, Error: err.Error()}, nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancelFns[req.TaskID] = cancel
	s.mu.Unlock()

	go s.run(runCtx, req.TaskID, instrs, inputs)

	return &DispatchResponse{Accepted: true}, nil
}

func (s *Server) run(ctx context.Context, taskID string, instrs []task.Instruction, inputs []partition.Partition) {
	outputs, err := task.RunChain(ctx, s.exec, instrs, inputs)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cancelFns, taskID)
	if s.cancelled[taskID] {
		return
	}

	res := TaskResult{TaskID: taskID}
	if err != nil {
		res.Error = err.Error()
	} else {
		wire, wireErr := toWireList(outputs)
		if wireErr != nil {
			res.Error = fmt.Sprintf("distworker: serializing outputs: %v", wireErr)
		} else {
			res.Outputs = wire
		}
	}
	s.results[taskID] = res
	close(s.notify)
	s.notify = make(chan struct{})
}

func (s *Server) WaitForCompletion(ctx context.Context, req *WaitRequest) (*WaitResponse, error) {
	deadline := time.NewTimer(time.Duration(req.TimeoutMillis) * time.Millisecond)
	defer deadline.Stop()

	for {
		s.mu.Lock()
		var done []TaskResult
		for _, id := range req.TaskIDs {
			if r, ok := s.results[id]; ok {
				done = append(done, r)
				delete(s.results, id)
			}
		}
		notify := s.notify
		s.mu.Unlock()

		if len(done) > 0 {
			return &WaitResponse{Done: done}, nil
		}

		select {
		case <-notify:
			continue
		case <-deadline.C:
			return &WaitResponse{Done: nil}, nil
		case <-ctx.Done():
			return &WaitResponse{Done: nil}, ctx.Err()
		}
	}
}

func (s *Server) CancelTask(ctx context.Context, req *CancelRequest) (*CancelResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled[req.TaskID] = true
	if cancel, ok := s.cancelFns[req.TaskID]; ok {
		cancel()
		delete(s.cancelFns, req.TaskID)
	}
	delete(s.results, req.TaskID)
	return &CancelResponse{}, nil
}
