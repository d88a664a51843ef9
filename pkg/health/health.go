// Package health serves liveness and readiness for a running simulation.
// Readiness runs a set of checks against the world and reports the figures
// behind each verdict, most notably the shape of the last collision tree.
package health

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/opd-ai/go-quadcollide/pkg/collision"
)

// Status is the verdict of a check or of the whole report
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailing Status = "failing"
)

// Check is one condition the simulator must meet to be ready
type Check interface {
	Name() string
	Check(ctx context.Context) error
}

// Reporter is implemented by checks that publish figures next to their
// verdict. Details is called whether or not the check passed.
type Reporter interface {
	Details() map[string]any
}

// Result is the outcome of one check
type Result struct {
	Status  Status         `json:"status"`
	Error   string         `json:"error,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Report is the outcome of every registered check. It is OK only when all
// checks are.
type Report struct {
	Status Status            `json:"status"`
	Checks map[string]Result `json:"checks"`
}

// Monitor runs the registered checks concurrently. A check that has not
// returned when the deadline passes counts as failing.
type Monitor struct {
	mu      sync.RWMutex
	checks  map[string]Check
	timeout time.Duration
	started time.Time
}

// NewMonitor creates a monitor whose readiness requests give up after
// timeout. A non-positive timeout means 5 seconds.
func NewMonitor(timeout time.Duration) *Monitor {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Monitor{
		checks:  make(map[string]Check),
		timeout: timeout,
		started: time.Now(),
	}
}

// Register adds c, replacing any check of the same name
func (m *Monitor) Register(c Check) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[c.Name()] = c
}

// Unregister drops the check called name
func (m *Monitor) Unregister(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checks, name)
}

// Names lists the registered checks in order
func (m *Monitor) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.checks))
	for name := range m.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes every check and collects the results
func (m *Monitor) Run(ctx context.Context) Report {
	m.mu.RLock()
	checks := make([]Check, 0, len(m.checks))
	for _, c := range m.checks {
		checks = append(checks, c)
	}
	m.mu.RUnlock()

	type outcome struct {
		name   string
		result Result
	}
	done := make(chan outcome, len(checks))
	for _, c := range checks {
		go func(c Check) {
			done <- outcome{c.Name(), runCheck(ctx, c)}
		}(c)
	}

	report := Report{Status: StatusOK, Checks: make(map[string]Result, len(checks))}
	for range checks {
		select {
		case o := <-done:
			report.Checks[o.name] = o.result
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	for _, c := range checks {
		if _, ok := report.Checks[c.Name()]; !ok {
			report.Checks[c.Name()] = Result{Status: StatusFailing, Error: ctx.Err().Error()}
		}
	}
	for _, r := range report.Checks {
		if r.Status != StatusOK {
			report.Status = StatusFailing
		}
	}
	return report
}

func runCheck(ctx context.Context, c Check) Result {
	r := Result{Status: StatusOK}
	if err := c.Check(ctx); err != nil {
		r.Status = StatusFailing
		r.Error = err.Error()
	}
	if rep, ok := c.(Reporter); ok {
		r.Details = rep.Details()
	}
	return r
}

// ServeLive answers 200 while the process can serve requests at all
func (m *Monitor) ServeLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": StatusOK,
		"uptime": time.Since(m.started).Round(time.Second).String(),
	})
}

// ServeReady runs the checks and answers 200 when all pass, 503 otherwise
func (m *Monitor) ServeReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), m.timeout)
	defer cancel()

	report := m.Run(ctx)
	code := http.StatusOK
	if report.Status != StatusOK {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, report)
}

// Mount registers /health and /ready on mux
func (m *Monitor) Mount(mux *http.ServeMux) {
	mux.HandleFunc("/health", m.ServeLive)
	mux.HandleFunc("/ready", m.ServeReady)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// RunningCheck fails while the simulation loop is stopped
type RunningCheck struct {
	running func() bool
}

func NewRunningCheck(running func() bool) *RunningCheck {
	return &RunningCheck{running: running}
}

func (c *RunningCheck) Name() string { return "simulation" }

func (c *RunningCheck) Check(ctx context.Context) error {
	if !c.running() {
		return fmt.Errorf("simulation is not running")
	}
	return nil
}

// TickCheck fails when no tick finished within maxAge
type TickCheck struct {
	lastTick func() time.Time
	maxAge   time.Duration
	now      func() time.Time
}

func NewTickCheck(maxAge time.Duration, lastTick func() time.Time) *TickCheck {
	return &TickCheck{lastTick: lastTick, maxAge: maxAge, now: time.Now}
}

func (c *TickCheck) Name() string { return "tick" }

func (c *TickCheck) Check(ctx context.Context) error {
	last := c.lastTick()
	if last.IsZero() {
		return fmt.Errorf("no tick completed yet")
	}
	if age := c.now().Sub(last); age > c.maxAge {
		return fmt.Errorf("last tick was %s ago, limit %s", age.Round(time.Millisecond), c.maxAge)
	}
	return nil
}

func (c *TickCheck) Details() map[string]any {
	last := c.lastTick()
	if last.IsZero() {
		return map[string]any{"max_age_ms": c.maxAge.Milliseconds()}
	}
	return map[string]any{
		"age_ms":     c.now().Sub(last).Milliseconds(),
		"max_age_ms": c.maxAge.Milliseconds(),
	}
}

// TreeCheck reports the statistics of the last collision tree. It fails
// when the build spilled out of the preallocated node pool.
type TreeCheck struct {
	stats func() collision.Stats
}

func NewTreeCheck(stats func() collision.Stats) *TreeCheck {
	return &TreeCheck{stats: stats}
}

func (c *TreeCheck) Name() string { return "tree" }

func (c *TreeCheck) Check(ctx context.Context) error {
	s := c.stats()
	if s.OverflowNodes > 0 {
		return fmt.Errorf("node pool exhausted: %d of %d nodes in overflow", s.OverflowNodes, s.Nodes)
	}
	return nil
}

func (c *TreeCheck) Details() map[string]any {
	s := c.stats()
	return map[string]any{
		"bodies":         s.Bodies,
		"nodes":          s.Nodes,
		"pool_nodes":     s.PoolNodes,
		"overflow_nodes": s.OverflowNodes,
		"depth":          s.Depth,
		"bounds":         s.Bounds.String(),
	}
}

// MemoryCheck fails when the heap grows past limitMB
type MemoryCheck struct {
	limitMB int64
	usedMB  func() int64
}

func NewMemoryCheck(limitMB int64, usedMB func() int64) *MemoryCheck {
	return &MemoryCheck{limitMB: limitMB, usedMB: usedMB}
}

func (c *MemoryCheck) Name() string { return "memory" }

func (c *MemoryCheck) Check(ctx context.Context) error {
	if used := c.usedMB(); used > c.limitMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", used, c.limitMB)
	}
	return nil
}

func (c *MemoryCheck) Details() map[string]any {
	return map[string]any{"used_mb": c.usedMB(), "limit_mb": c.limitMB}
}
