// Package status reports whether a running engine is ready to accept
// work: its worker pool has at least one eligible worker and, if
// configured, its history store answers pings. "Provide high-signal
// visibility without dashboards" carries over unchanged from the
// teacher's gateway readiness model; what's being reported on does not.
package status

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/canonica-labs/distframe/internal/capabilities"
	"github.com/canonica-labs/distframe/internal/router"
)

// StatusResult is the point-in-time readiness snapshot enginectl status
// renders.
type StatusResult struct {
	Ready          bool   `json:"ready"`
	Reason         string `json:"reason,omitempty"`
	WorkersReady   bool   `json:"workers_ready"`
	WorkerCount    int    `json:"worker_count"`
	HistoryHealth  string `json:"history_health"`
	ConfigVersion  string `json:"config_version"`
}

// StatusChecker reports engine readiness.
type StatusChecker interface {
	GetStatus(ctx context.Context) (*StatusResult, error)
}

// EngineStatusChecker checks a distributed engine's readiness against
// its worker registry and, if present, its history store's database
// handle. Runner == "local" has no worker registry to check and is
// always considered worker-ready.
type EngineStatusChecker struct {
	Registry      *router.WorkerRegistry
	RequiredCaps  capabilities.Set
	HistoryDB     *sql.DB
	ConfigVersion string
	PingTimeout   time.Duration
}

// GetStatus implements StatusChecker.
func (c *EngineStatusChecker) GetStatus(ctx context.Context) (*StatusResult, error) {
	result := &StatusResult{ConfigVersion: c.ConfigVersion}

	if c.Registry == nil {
		result.WorkersReady = true
	} else {
		eligible, err := c.Registry.Eligible(c.RequiredCaps)
		result.WorkerCount = len(c.Registry.All())
		if err != nil {
			result.WorkersReady = false
			result.Reason = "no eligible workers: " + err.Error()
		} else {
			result.WorkersReady = len(eligible) > 0
		}
	}

	if c.HistoryDB == nil {
		result.HistoryHealth = "disabled"
	} else {
		timeout := c.PingTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := c.HistoryDB.PingContext(pingCtx); err != nil {
			result.HistoryHealth = "unreachable: " + err.Error()
			if result.Reason == "" {
				result.Reason = "history store unreachable"
			}
		} else {
			result.HistoryHealth = "connected"
		}
	}

	result.Ready = result.WorkersReady && result.Reason == ""
	return result, nil
}

// MockStatusChecker is a test double for StatusChecker.
type MockStatusChecker struct {
	mu            sync.RWMutex
	workersReady  bool
	workerCount   int
	historyHealth string
	configVersion string
}

// NewMockStatusChecker returns a checker reporting a healthy engine.
func NewMockStatusChecker() *MockStatusChecker {
	return &MockStatusChecker{
		workersReady:  true,
		workerCount:   1,
		historyHealth: "disabled",
		configVersion: "dev",
	}
}

// SetWorkersReady sets the worker pool's reported readiness and count.
func (m *MockStatusChecker) SetWorkersReady(ready bool, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workersReady = ready
	m.workerCount = count
}

// SetHistoryHealth sets the reported history store health string.
func (m *MockStatusChecker) SetHistoryHealth(health string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historyHealth = health
}

// GetStatus implements StatusChecker.
func (m *MockStatusChecker) GetStatus(ctx context.Context) (*StatusResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := &StatusResult{
		WorkersReady:  m.workersReady,
		WorkerCount:   m.workerCount,
		HistoryHealth: m.historyHealth,
		ConfigVersion: m.configVersion,
		Ready:         m.workersReady,
	}
	if !m.workersReady {
		result.Reason = "no eligible workers"
	}
	return result, nil
}
