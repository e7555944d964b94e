package distworker

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"

	"github.com/canonica-labs/distframe/internal/config"
)

// DialPool dials every address in cfg.WorkerAddrs and wraps the
// resulting connections in a Pool, the `runner = distributed` worker
// pool internal/planner's Engine wires up when config.Runner says so.
func DialPool(ctx context.Context, cfg config.DistributedConfig) (*Pool, error) {
	if len(cfg.WorkerAddrs) == 0 {
		return nil, fmt.Errorf("distworker: distributed runner requires at least one workerAddrs entry")
	}
	timeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("distworker: invalid dialTimeout %q: %w", cfg.DialTimeout, err)
	}

	conns := make([]*grpc.ClientConn, 0, len(cfg.WorkerAddrs))
	for _, addr := range cfg.WorkerAddrs {
		conn, err := Dial(ctx, addr, timeout)
		if err != nil {
			for _, c := range conns {
				_ = c.Close()
			}
			return nil, err
		}
		conns = append(conns, conn)
	}
	return NewPool(cfg.WorkerAddrs, conns), nil
}
