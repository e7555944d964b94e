package distworker

import (
	"testing"

	"google.golang.org/grpc"
)

// connFor only indexes into the parallel addrs/conns slices by address
// equality; a *grpc.ClientConn never needs to be a live connection for
// this lookup to be exercised.
func TestPoolConnForMatchesByAddress(t *testing.T) {
	connA := &grpc.ClientConn{}
	connB := &grpc.ClientConn{}
	p := NewPool([]string{"worker-a:50051", "worker-b:50051"}, []*grpc.ClientConn{connA, connB})

	if got := p.connFor("worker-b:50051"); got != connB {
		t.Errorf("connFor(worker-b) = %p, want %p", got, connB)
	}
	if got := p.connFor("worker-a:50051"); got != connA {
		t.Errorf("connFor(worker-a) = %p, want %p", got, connA)
	}
	if got := p.connFor("unknown:50051"); got != nil {
		t.Errorf("connFor(unknown) = %p, want nil", got)
	}
}

func TestNewPoolStartsWithNoOwnedTasks(t *testing.T) {
	p := NewPool([]string{"worker-a:50051"}, []*grpc.ClientConn{{}})
	if len(p.owner) != 0 {
		t.Errorf("a freshly built Pool should have no owned tasks, got %d", len(p.owner))
	}
}
