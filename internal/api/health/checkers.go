package health

import (
	"context"
	"fmt"
)

// Pinger interface for databases that support ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseChecker checks database connectivity.
type DatabaseChecker struct {
	name   string
	pinger Pinger
}

// NewDatabaseChecker creates a health checker reported under name,
// usually the dialect ("sqlite", "postgres").
func NewDatabaseChecker(name string, p Pinger) *DatabaseChecker {
	return &DatabaseChecker{name: name, pinger: p}
}

// Name returns the checker name.
func (c *DatabaseChecker) Name() string {
	return c.name
}

// Check verifies the database is accessible.
func (c *DatabaseChecker) Check(ctx context.Context) error {
	if c.pinger == nil {
		return fmt.Errorf("database not initialized")
	}
	return c.pinger.Ping(ctx)
}
