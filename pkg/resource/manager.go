// Package resource runs the simulator's background tasks under a task limit
// and samples memory use while they run.
package resource

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/go-quadcollide/pkg/config"
	"github.com/opd-ai/go-quadcollide/pkg/logging"
)

// ErrShutdown is returned by Go once Shutdown has been called
var ErrShutdown = errors.New("resource manager is shut down")

const defaultCheckInterval = 10 * time.Second

// Limits bounds what a Manager lets its tasks use
type Limits struct {
	MaxTasks        int64
	MaxMemoryMB     int64
	ShutdownTimeout time.Duration
	CheckInterval   time.Duration
}

// LimitsFromConfig converts the resources section of a configuration
func LimitsFromConfig(cfg config.ResourcesConfig) Limits {
	return Limits{
		MaxTasks:        int64(cfg.MaxGoroutines),
		MaxMemoryMB:     cfg.MaxMemoryMB,
		ShutdownTimeout: cfg.ShutdownTimeout(),
		CheckInterval:   defaultCheckInterval,
	}
}

// Manager starts named tasks, cancels them together and waits for them on
// shutdown.
type Manager struct {
	limits Limits

	tasks    atomic.Int64
	memoryMB atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	logger *logging.Logger

	mu        sync.Mutex
	active    map[string]int
	running   bool
	stopped   bool
	lastCheck time.Time

	readMemory func() int64
}

// NewManager creates a manager. A nil logger discards output.
func NewManager(limits Limits, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	if limits.CheckInterval <= 0 {
		limits.CheckInterval = defaultCheckInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		limits:     limits,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		logger:     logger,
		active:     make(map[string]int),
		readMemory: allocatedMB,
	}
}

// Start begins the memory monitoring loop.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return ErrShutdown
	}
	if m.running {
		return fmt.Errorf("resource manager already running")
	}
	m.running = true

	go m.monitoringLoop()

	m.logger.Info(m.ctx, "Resource manager started",
		"max_tasks", m.limits.MaxTasks,
		"max_memory_mb", m.limits.MaxMemoryMB,
		"check_interval", m.limits.CheckInterval.String(),
	)
	return nil
}

// Go runs fn on a new goroutine. fn receives a context that is cancelled by
// Shutdown. Panics are recovered and logged.
func (m *Manager) Go(name string, fn func(context.Context)) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrShutdown
	}
	if current := m.tasks.Load(); current >= m.limits.MaxTasks {
		m.mu.Unlock()
		m.logger.Warn(m.ctx, "Task limit exceeded",
			"current", current,
			"limit", m.limits.MaxTasks,
			"name", name,
		)
		return fmt.Errorf("task limit exceeded: %d/%d", current, m.limits.MaxTasks)
	}
	m.tasks.Add(1)
	m.active[name]++
	m.mu.Unlock()

	go func() {
		defer m.finish(name)
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error(m.ctx, "Task panic", fmt.Errorf("panic: %v", r), "name", name)
			}
		}()
		fn(m.ctx)
	}()
	return nil
}

func (m *Manager) finish(name string) {
	m.mu.Lock()
	if m.active[name]--; m.active[name] <= 0 {
		delete(m.active, name)
	}
	m.mu.Unlock()
	m.tasks.Add(-1)
}

// CheckMemoryUsage samples memory use and compares it with the limit.
func (m *Manager) CheckMemoryUsage() error {
	current := m.readMemory()
	m.memoryMB.Store(current)

	m.mu.Lock()
	m.lastCheck = time.Now()
	m.mu.Unlock()

	if current > m.limits.MaxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", current, m.limits.MaxMemoryMB)
	}
	return nil
}

// TaskCount returns the number of running tasks
func (m *Manager) TaskCount() int64 {
	return m.tasks.Load()
}

// MemoryUsage returns the last sampled memory use in MB
func (m *Manager) MemoryUsage() int64 {
	return m.memoryMB.Load()
}

// Tasks returns the names of the running tasks, sorted
func (m *Manager) Tasks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, 0, len(m.active))
	for name := range m.active {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats contains resource usage statistics.
type Stats struct {
	Tasks           int64     `json:"tasks"`
	MaxTasks        int64     `json:"max_tasks"`
	MemoryUsageMB   int64     `json:"memory_usage_mb"`
	MaxMemoryMB     int64     `json:"max_memory_mb"`
	LastMemoryCheck time.Time `json:"last_memory_check"`
}

// Stats returns current resource usage
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	last := m.lastCheck
	m.mu.Unlock()

	return Stats{
		Tasks:           m.TaskCount(),
		MaxTasks:        m.limits.MaxTasks,
		MemoryUsageMB:   m.MemoryUsage(),
		MaxMemoryMB:     m.limits.MaxMemoryMB,
		LastMemoryCheck: last,
	}
}

// Shutdown cancels every task and waits for them to return, up to the
// shutdown timeout. Later calls return nil.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	wasRunning := m.running
	m.running = false
	m.mu.Unlock()

	m.logger.Info(ctx, "Shutting down resource manager", "tasks", m.Tasks())
	m.cancel()

	shutdownCtx, cancel := context.WithTimeout(ctx, m.limits.ShutdownTimeout)
	defer cancel()

	if wasRunning {
		select {
		case <-m.done:
		case <-shutdownCtx.Done():
			m.logger.Warn(ctx, "Resource monitoring loop did not stop gracefully")
		}
	}

	return m.waitForTasks(shutdownCtx)
}

func (m *Manager) waitForTasks(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if m.TaskCount() == 0 {
			m.logger.Debug(ctx, "All tasks finished")
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			remaining := m.Tasks()
			m.logger.Warn(ctx, "Shutdown timeout exceeded with tasks still running",
				"remaining", remaining,
			)
			return fmt.Errorf("shutdown timeout: %d tasks still running %v", len(remaining), remaining)
		}
	}
}

func (m *Manager) monitoringLoop() {
	defer close(m.done)

	ticker := time.NewTicker(m.limits.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performChecks()
		case <-m.ctx.Done():
			return
		}
	}
}

func (m *Manager) performChecks() {
	if err := m.CheckMemoryUsage(); err != nil {
		m.logger.Error(m.ctx, "Memory limit exceeded", err,
			"current_mb", m.MemoryUsage(),
			"limit_mb", m.limits.MaxMemoryMB,
		)
	}

	m.logger.Debug(m.ctx, "Resource usage check",
		"tasks", m.TaskCount(),
		"max_tasks", m.limits.MaxTasks,
		"memory_mb", m.MemoryUsage(),
	)
}

func allocatedMB() int64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return int64(ms.Alloc / 1024 / 1024)
}
