package distworker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/canonica-labs/distframe/internal/handle"
	"github.com/canonica-labs/distframe/internal/partition"
	"github.com/canonica-labs/distframe/internal/scheduler"
	"github.com/canonica-labs/distframe/internal/task"
)

func metadataOf(ps []partition.Partition) []handle.PartitionMetadata {
	metas := make([]handle.PartitionMetadata, len(ps))
	for i, p := range ps {
		metas[i] = partition.Metadata(p)
	}
	return metas
}

// Dial opens a connection to a remote worker at addr, negotiating the
// json codec registered in codec.go in place of the default protobuf
// one. grpc.NewClient resolves and connects lazily; Connect forces the
// initial handshake so a misconfigured worker address surfaces at
// startup instead of on the first dispatched task.
func Dial(ctx context.Context, addr string, dialTimeout time.Duration) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("distworker: dial %s: %w", addr, err)
	}
	conn.Connect()
	waitCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	for {
		state := conn.GetState()
		if state.String() == "READY" {
			return conn, nil
		}
		if !conn.WaitForStateChange(waitCtx, state) {
			_ = conn.Close()
			return nil, fmt.Errorf("distworker: dial %s: timed out waiting for connection (last state %s)", addr, state)
		}
	}
}

type future struct {
	taskID uuid.UUID
	addr   string
}

func (f *future) TaskID() uuid.UUID { return f.taskID }

// Pool is the `runner = distributed` internal/scheduler.WorkerPool
// implementation: it round-robins tasks across a fixed set of worker
// connections and polls WaitForCompletion against whichever connections
// have outstanding work.
type Pool struct {
	conns []*grpc.ClientConn
	addrs []string

	mu   sync.Mutex
	next int
	// owner tracks which worker address a dispatched task landed on, so
	// Wait/Cancel can address the right connection.
	owner map[uuid.UUID]string
}

// NewPool wraps pre-dialed connections, one per worker address, in
// scheduler.WorkerPool's round-robin distributed implementation.
func NewPool(addrs []string, conns []*grpc.ClientConn) *Pool {
	return &Pool{
		conns: conns,
		addrs: addrs,
		owner: make(map[uuid.UUID]string),
	}
}

func (p *Pool) connFor(addr string) *grpc.ClientConn {
	for i, a := range p.addrs {
		if a == addr {
			return p.conns[i]
		}
	}
	return nil
}

func (p *Pool) Dispatch(ctx context.Context, t *task.PartitionTask, inputs []partition.Partition) (scheduler.Future, error) {
	wireInstrs := make([]WireInstruction, len(t.Instructions))
	for i, instr := range t.Instructions {
		wi, err := ToWireInstruction(instr)
		if err != nil {
			return nil, err
		}
		wireInstrs[i] = wi
	}
	wireInputs, err := toWireList(inputs)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	addr := p.addrs[p.next%len(p.addrs)]
	conn := p.conns[p.next%len(p.conns)]
	p.next++
	p.owner[t.ID] = addr
	p.mu.Unlock()

	req := &DispatchRequest{
		TaskID:       t.ID.String(),
		NodeID:       t.NodeID,
		Instructions: wireInstrs,
		Inputs:       wireInputs,
	}
	resp := new(DispatchResponse)
	if err := conn.Invoke(ctx, "/"+serviceName+"/DispatchTask", req, resp); err != nil {
		return nil, fmt.Errorf("distworker: dispatch task %s to %s: %w", t.ID, addr, err)
	}
	if !resp.Accepted {
		return nil, fmt.Errorf("distworker: worker %s rejected task %s: %s", addr, t.ID, resp.Error)
	}
	return &future{taskID: t.ID, addr: addr}, nil
}

func (p *Pool) Wait(ctx context.Context, futures []scheduler.Future, timeout time.Duration) (done []scheduler.Result, pending []scheduler.Future) {
	byAddr := make(map[string][]scheduler.Future)
	for _, f := range futures {
		ff := f.(*future)
		byAddr[ff.addr] = append(byAddr[ff.addr], f)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for addr, fs := range byAddr {
		conn := p.connFor(addr)
		if conn == nil {
			mu.Lock()
			pending = append(pending, fs...)
			mu.Unlock()
			continue
		}
		ids := make([]string, len(fs))
		for i, f := range fs {
			ids[i] = f.(*future).taskID.String()
		}
		wg.Add(1)
		go func(conn *grpc.ClientConn, ids []string, fs []scheduler.Future) {
			defer wg.Done()
			req := &WaitRequest{TaskIDs: ids, TimeoutMillis: timeout.Milliseconds()}
			resp := new(WaitResponse)
			if err := conn.Invoke(ctx, "/"+serviceName+"/WaitForCompletion", req, resp); err != nil {
				mu.Lock()
				pending = append(pending, fs...)
				mu.Unlock()
				return
			}
			doneIDs := make(map[string]bool, len(resp.Done))
			results := make([]scheduler.Result, 0, len(resp.Done))
			for _, tr := range resp.Done {
				doneIDs[tr.TaskID] = true
				id, err := uuid.Parse(tr.TaskID)
				if err != nil {
					continue
				}
				if tr.Error != "" {
					results = append(results, scheduler.Result{TaskID: id, Err: fmt.Errorf("%s", tr.Error)})
					continue
				}
				outputs, err := fromWireList(tr.Outputs)
				if err != nil {
					results = append(results, scheduler.Result{TaskID: id, Err: err})
					continue
				}
				results = append(results, scheduler.Result{TaskID: id, Outputs: outputs, Metadata: metadataOf(outputs)})
			}
			mu.Lock()
			done = append(done, results...)
			for _, f := range fs {
				if !doneIDs[f.(*future).taskID.String()] {
					pending = append(pending, f)
				}
			}
			mu.Unlock()
		}(conn, ids, fs)
	}
	wg.Wait()
	return done, pending
}

func (p *Pool) Cancel(f scheduler.Future) {
	ff := f.(*future)
	conn := p.connFor(ff.addr)
	if conn == nil {
		return
	}
	req := &CancelRequest{TaskID: ff.taskID.String()}
	resp := new(CancelResponse)
	_ = conn.Invoke(context.Background(), "/"+serviceName+"/CancelTask", req, resp)
}
