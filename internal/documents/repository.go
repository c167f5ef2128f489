package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Lookup is the read-only contract the advance payment core depends on.
type Lookup interface {
	Load(ctx context.Context, kind Kind, id int64) (*Summary, error)
	LoadCustomer(ctx context.Context, code string) (*Summary, error)
	ProjectsEnabled() bool
}

// PGRepository implements Lookup against PostgreSQL, delegating project
// lookups to the injected capability pair.
type PGRepository struct {
	pool     *pgxpool.Pool
	projects ProjectLookup
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool, projects ProjectLookup) *PGRepository {
	return &PGRepository{pool: pool, projects: projects}
}

// ProjectsEnabled reports whether the project capability is installed.
func (r *PGRepository) ProjectsEnabled() bool {
	return r.projects.Enabled()
}

// Load fetches the customer code and monetary total of one document.
func (r *PGRepository) Load(ctx context.Context, kind Kind, id int64) (*Summary, error) {
	var query string
	switch kind {
	case KindDeliveryNote:
		query = `SELECT customer_code, total FROM delivery_notes WHERE id = $1`
	case KindOrder:
		query = `SELECT customer_code, total FROM orders WHERE id = $1`
	case KindEstimation:
		query = `SELECT customer_code, total FROM estimations WHERE id = $1`
	case KindInvoice:
		query = `SELECT customer_code, total FROM invoices WHERE id = $1`
	case KindProject:
		return r.projects.Load(ctx, id)
	default:
		return nil, fmt.Errorf("documents: kind %q is not loadable by id", kind)
	}

	var s Summary
	err := r.pool.QueryRow(ctx, query, id).Scan(&s.CustomerCode, &s.Total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// LoadCustomer fetches a customer by code; Total carries the reached risk.
func (r *PGRepository) LoadCustomer(ctx context.Context, code string) (*Summary, error) {
	var s Summary
	err := r.pool.QueryRow(ctx,
		`SELECT code, risk_reached FROM customers WHERE code = $1`, code,
	).Scan(&s.CustomerCode, &s.Total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

var _ Lookup = (*PGRepository)(nil)
