package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolReadiness wraps a pgxpool.Pool and implements observability.ReadinessChecker.
type PoolReadiness struct {
	pool *pgxpool.Pool
}

// NewPoolReadiness returns a readiness checker backed by the given pool.
func NewPoolReadiness(pool *pgxpool.Pool) *PoolReadiness {
	return &PoolReadiness{pool: pool}
}

// CheckReadiness pings the database and verifies the records table is migrated.
func (p *PoolReadiness) CheckReadiness(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	var exists bool
	if err := p.pool.QueryRow(ctx, "SELECT to_regclass('public.records') IS NOT NULL").Scan(&exists); err != nil {
		return fmt.Errorf("check records table: %w", err)
	}
	if !exists {
		return fmt.Errorf("records table missing, migrations not applied")
	}
	return nil
}
