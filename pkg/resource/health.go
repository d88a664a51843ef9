// pkg/resource/health.go
package resource

import (
	"context"
	"fmt"
)

// HealthCheck reports a Manager as unhealthy when it is over its memory
// limit or running more than 80% of its task limit.
type HealthCheck struct {
	manager *Manager
}

// NewHealthCheck creates a new health check for the resource manager.
func NewHealthCheck(manager *Manager) *HealthCheck {
	return &HealthCheck{manager: manager}
}

// Name returns the name of this health check.
func (r *HealthCheck) Name() string {
	return "resources"
}

// Check verifies that resource usage is within acceptable limits.
func (r *HealthCheck) Check(ctx context.Context) error {
	stats := r.manager.Stats()

	if stats.MemoryUsageMB > stats.MaxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB",
			stats.MemoryUsageMB, stats.MaxMemoryMB)
	}

	threshold := int64(float64(stats.MaxTasks) * 0.8)
	if stats.Tasks > threshold {
		return fmt.Errorf("task count %d exceeds 80%% threshold (%d/%d)",
			stats.Tasks, threshold, stats.MaxTasks)
	}
	return nil
}

// Details reports the task and memory figures behind the verdict
func (r *HealthCheck) Details() map[string]any {
	stats := r.manager.Stats()
	return map[string]any{
		"tasks":     stats.Tasks,
		"max_tasks": stats.MaxTasks,
		"memory_mb": stats.MemoryUsageMB,
		"limit_mb":  stats.MaxMemoryMB,
	}
}
