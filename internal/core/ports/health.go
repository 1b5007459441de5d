package ports

import "context"

// HealthChecker verifies connectivity of an external dependency.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}
