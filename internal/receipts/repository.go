package receipts

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository defines persistence for receipts.
type Repository interface {
	FindByInvoice(ctx context.Context, invoiceID int64) ([]Receipt, error)
	LoadDefaultForInvoice(ctx context.Context, invoiceID int64) (*Receipt, error)
	Create(ctx context.Context, receipt *Receipt) error
	Update(ctx context.Context, receipt *Receipt) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const receiptColumns = `id, invoice_id, invoice_code, company_id, customer_code, currency_code,
	payment_method_code, amount, sequence_number, issue_date, due_date, payment_date,
	paid, observations, owner_nick, created_at, updated_at`

// FindByInvoice returns every receipt attached to an invoice.
func (r *PGRepository) FindByInvoice(ctx context.Context, invoiceID int64) ([]Receipt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+receiptColumns+` FROM receipts WHERE invoice_id = $1 ORDER BY sequence_number, id`,
		invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Receipt
	for rows.Next() {
		rec, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// LoadDefaultForInvoice returns the receipt the reconciliation engine
// treats as "the" receipt of the invoice. The original system selected an
// unordered first row; lowest sequence number (id as tie-break) is used
// here as a deterministic compatibility choice.
func (r *PGRepository) LoadDefaultForInvoice(ctx context.Context, invoiceID int64) (*Receipt, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+receiptColumns+` FROM receipts WHERE invoice_id = $1 ORDER BY sequence_number, id LIMIT 1`,
		invoiceID)
	rec, err := scanReceipt(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// Create persists a new receipt, assigning its ID.
func (r *PGRepository) Create(ctx context.Context, receipt *Receipt) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO receipts (
			invoice_id, invoice_code, company_id, customer_code, currency_code,
			payment_method_code, amount, sequence_number, issue_date, due_date,
			payment_date, paid, observations, owner_nick, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		receipt.InvoiceID,
		receipt.InvoiceCode,
		receipt.CompanyID,
		receipt.CustomerCode,
		receipt.CurrencyCode,
		receipt.PaymentMethodCode,
		receipt.Amount,
		receipt.Sequence,
		receipt.IssueDate,
		receipt.DueDate,
		paymentDateParam(receipt.PaymentDate),
		receipt.Paid,
		receipt.Observations,
		receipt.OwnerNick,
	).Scan(&receipt.ID, &receipt.CreatedAt, &receipt.UpdatedAt)
}

// Update rewrites the mutable columns of an existing receipt.
func (r *PGRepository) Update(ctx context.Context, receipt *Receipt) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE receipts SET
			payment_method_code = $2, amount = $3, sequence_number = $4,
			issue_date = $5, due_date = $6, payment_date = $7,
			paid = $8, observations = $9, updated_at = NOW()
		WHERE id = $1`,
		receipt.ID,
		receipt.PaymentMethodCode,
		receipt.Amount,
		receipt.Sequence,
		receipt.IssueDate,
		receipt.DueDate,
		paymentDateParam(receipt.PaymentDate),
		receipt.Paid,
		receipt.Observations,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func paymentDateParam(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

func scanReceipt(row pgx.Row) (*Receipt, error) {
	var rec Receipt
	var paymentDate pgtype.Timestamptz
	err := row.Scan(
		&rec.ID, &rec.InvoiceID, &rec.InvoiceCode, &rec.CompanyID, &rec.CustomerCode,
		&rec.CurrencyCode, &rec.PaymentMethodCode, &rec.Amount, &rec.Sequence,
		&rec.IssueDate, &rec.DueDate, &paymentDate, &rec.Paid, &rec.Observations,
		&rec.OwnerNick, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if paymentDate.Valid {
		rec.PaymentDate = &paymentDate.Time
	}
	return &rec, nil
}

var _ Repository = (*PGRepository)(nil)
