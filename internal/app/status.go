package app

import (
	"context"
	"time"

	"service-advisor/pkg/database"
	"service-advisor/pkg/redis"
)

type ComponentStatus struct {
	Name    string                 `json:"name"`
	Healthy bool                   `json:"healthy"`
	Latency time.Duration          `json:"latency"`
	Error   string                 `json:"error,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Status checks every backing store the app was built with. Components that
// are not configured are left out.
func (a *App) Status(ctx context.Context) []ComponentStatus {
	var report []ComponentStatus

	if a.db != nil {
		start := time.Now()
		err := database.Health(ctx, a.db)
		status := ComponentStatus{
			Name:    "mongodb",
			Healthy: err == nil,
			Latency: time.Since(start),
			Details: map[string]interface{}{"database": a.db.Name()},
		}
		if err != nil {
			status.Error = err.Error()
		}
		report = append(report, status)
	}

	if a.redis != nil {
		report = append(report, redisStatus(ctx, a.redis))
	}

	return report
}

func redisStatus(ctx context.Context, client *redis.Client) ComponentStatus {
	health := client.HealthCheck(ctx)
	return ComponentStatus{
		Name:    "redis",
		Healthy: health.IsConnected,
		Latency: health.ResponseTime,
		Error:   health.Error,
		Details: client.GetConnectionStats(),
	}
}
