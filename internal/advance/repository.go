package advance

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const advanceColumns = `id, customer_code, currency_code, phase, date, amount,
	payment_method_code, note, owner_nick, delivery_note_id, order_id,
	estimation_id, project_id, invoice_id, receipt_id, created_at, updated_at`

// Get fetches an advance payment by primary key.
func (r *PGRepository) Get(ctx context.Context, id int64) (*AdvancePayment, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+advanceColumns+` FROM advance_payments WHERE id = $1`, id)
	ap, err := scanAdvance(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return ap, nil
}

// List returns advance payments matching the filter, newest first.
func (r *PGRepository) List(ctx context.Context, req ListRequest) ([]AdvancePayment, error) {
	query := `SELECT ` + advanceColumns + ` FROM advance_payments WHERE 1=1`
	args := []any{}
	argNum := 1

	if req.CustomerCode != "" {
		query += fmt.Sprintf(" AND customer_code = $%d", argNum)
		args = append(args, req.CustomerCode)
		argNum++
	}
	if req.InvoiceID > 0 {
		query += fmt.Sprintf(" AND invoice_id = $%d", argNum)
		args = append(args, req.InvoiceID)
		argNum++
	}

	query += " ORDER BY date DESC, id DESC"

	if req.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, req.Limit)
		argNum++
	}
	if req.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, req.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AdvancePayment
	for rows.Next() {
		ap, err := scanAdvance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ap)
	}
	return out, rows.Err()
}

// Create persists a new advance payment, assigning its ID.
func (r *PGRepository) Create(ctx context.Context, ap *AdvancePayment) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO advance_payments (
			customer_code, currency_code, phase, date, amount, payment_method_code,
			note, owner_nick, delivery_note_id, order_id, estimation_id,
			project_id, invoice_id, receipt_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		ap.CustomerCode,
		ap.CurrencyCode,
		string(ap.Phase),
		ap.Date,
		ap.Amount,
		ap.PaymentMethodCode,
		ap.Note,
		ap.OwnerNick,
		linkParam(ap.DeliveryNoteID),
		linkParam(ap.OrderID),
		linkParam(ap.EstimationID),
		linkParam(ap.ProjectID),
		linkParam(ap.InvoiceID),
		linkParam(ap.ReceiptID),
	).Scan(&ap.ID, &ap.CreatedAt, &ap.UpdatedAt)
}

// Update rewrites an existing advance payment. The phase is deliberately
// not touched: it is assigned once at creation.
func (r *PGRepository) Update(ctx context.Context, ap *AdvancePayment) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE advance_payments SET
			customer_code = $2, currency_code = $3, date = $4, amount = $5,
			payment_method_code = $6, note = $7, delivery_note_id = $8,
			order_id = $9, estimation_id = $10, project_id = $11,
			invoice_id = $12, receipt_id = $13, updated_at = NOW()
		WHERE id = $1`,
		ap.ID,
		ap.CustomerCode,
		ap.CurrencyCode,
		ap.Date,
		ap.Amount,
		ap.PaymentMethodCode,
		ap.Note,
		linkParam(ap.DeliveryNoteID),
		linkParam(ap.OrderID),
		linkParam(ap.EstimationID),
		linkParam(ap.ProjectID),
		linkParam(ap.InvoiceID),
		linkParam(ap.ReceiptID),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func linkParam(id int64) pgtype.Int8 {
	if id == 0 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: id, Valid: true}
}

func scanAdvance(row pgx.Row) (*AdvancePayment, error) {
	var ap AdvancePayment
	var phase string
	var deliveryNoteID, orderID, estimationID, projectID, invoiceID, receiptID pgtype.Int8
	err := row.Scan(
		&ap.ID, &ap.CustomerCode, &ap.CurrencyCode, &phase, &ap.Date, &ap.Amount,
		&ap.PaymentMethodCode, &ap.Note, &ap.OwnerNick,
		&deliveryNoteID, &orderID, &estimationID, &projectID, &invoiceID, &receiptID,
		&ap.CreatedAt, &ap.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ap.Phase = Phase(phase)
	ap.DeliveryNoteID = deliveryNoteID.Int64
	ap.OrderID = orderID.Int64
	ap.EstimationID = estimationID.Int64
	ap.ProjectID = projectID.Int64
	ap.InvoiceID = invoiceID.Int64
	ap.ReceiptID = receiptID.Int64
	return &ap, nil
}

var _ Repository = (*PGRepository)(nil)
