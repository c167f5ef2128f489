package documents

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// ProjectLookup resolves project documents. The real/null pair is chosen
// once at startup; callers never probe the runtime for the feature.
type ProjectLookup interface {
	Enabled() bool
	Load(ctx context.Context, id int64) (*Summary, error)
}

// PGProjects is the project lookup used when the capability is installed.
type PGProjects struct {
	pool *pgxpool.Pool
}

// NewPGProjects constructs the pg-backed project lookup.
func NewPGProjects(pool *pgxpool.Pool) *PGProjects {
	return &PGProjects{pool: pool}
}

// Enabled reports the capability as present.
func (p *PGProjects) Enabled() bool { return true }

// Load returns the project's customer and total sales.
func (p *PGProjects) Load(ctx context.Context, id int64) (*Summary, error) {
	var s Summary
	err := p.pool.QueryRow(ctx,
		`SELECT customer_code, total_sales FROM projects WHERE id = $1`, id,
	).Scan(&s.CustomerCode, &s.Total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// DisabledProjects is the null object used when the capability is absent.
type DisabledProjects struct{}

// Enabled reports the capability as missing.
func (DisabledProjects) Enabled() bool { return false }

// Load always fails with ErrCapabilityDisabled.
func (DisabledProjects) Load(ctx context.Context, id int64) (*Summary, error) {
	return nil, ErrCapabilityDisabled
}

// NewProjectLookup picks the real or null lookup based on the capability flag.
func NewProjectLookup(pool *pgxpool.Pool, enabled bool) ProjectLookup {
	if enabled {
		return NewPGProjects(pool)
	}
	return DisabledProjects{}
}
