package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTolerance   = 0.01
	defaultConcurrency = 4
)

// ReceiptIntegrityJob checks, invoice by invoice, that the sum of receipt
// amounts still matches the invoice total. Reconciliation conserves that
// sum, so any drift points at outside interference or a partial failure.
type ReceiptIntegrityJob struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
	clock  func() time.Time
}

// NewReceiptIntegrityJob initialises the integrity scan handler.
func NewReceiptIntegrityJob(pool *pgxpool.Pool, logger *slog.Logger) *ReceiptIntegrityJob {
	return &ReceiptIntegrityJob{
		Pool:   pool,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the scan.
func (j *ReceiptIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("receipt integrity: handler not configured")
	}
	var payload ReceiptIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Tolerance <= 0 {
		payload.Tolerance = defaultTolerance
	}
	if payload.Concurrency <= 0 {
		payload.Concurrency = defaultConcurrency
	}

	start := j.now()
	logger := j.logger().With(slog.Float64("tolerance", payload.Tolerance))
	logger.Info("starting receipt integrity scan")

	checked, drifts, err := j.scan(ctx, payload)
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		return err
	}

	for _, d := range drifts {
		logger.Warn("receipt drift detected",
			slog.Int64("invoice_id", d.InvoiceID),
			slog.Float64("invoice_total", d.InvoiceTotal),
			slog.Float64("receipt_sum", d.ReceiptSum),
			slog.Float64("drift", d.Drift),
		)
	}

	logger.Info("completed receipt integrity scan",
		slog.Int("invoices", checked),
		slog.Int("drifts", len(drifts)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

type receiptDrift struct {
	InvoiceID    int64
	InvoiceTotal float64
	ReceiptSum   float64
	Drift        float64
}

func (j *ReceiptIntegrityJob) scan(ctx context.Context, payload ReceiptIntegrityPayload) (int, []receiptDrift, error) {
	if j.Pool == nil {
		return 0, nil, errors.New("receipt integrity: pool not configured")
	}

	rows, err := j.Pool.Query(ctx,
		`SELECT id, total FROM invoices ORDER BY id`)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()

	type invoice struct {
		ID    int64
		Total float64
	}
	var invoices []invoice
	for rows.Next() {
		var inv invoice
		if err := rows.Scan(&inv.ID, &inv.Total); err != nil {
			return 0, nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}

	var (
		mu     sync.Mutex
		drifts []receiptDrift
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(payload.Concurrency)

	for _, inv := range invoices {
		group.Go(func() error {
			var sum float64
			err := j.Pool.QueryRow(groupCtx,
				`SELECT COALESCE(SUM(amount), 0) FROM receipts WHERE invoice_id = $1`,
				inv.ID,
			).Scan(&sum)
			if err != nil {
				return err
			}
			drift := sum - inv.Total
			if math.Abs(drift) > payload.Tolerance {
				mu.Lock()
				drifts = append(drifts, receiptDrift{
					InvoiceID:    inv.ID,
					InvoiceTotal: inv.Total,
					ReceiptSum:   sum,
					Drift:        drift,
				})
				mu.Unlock()
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return 0, nil, err
	}

	return len(invoices), drifts, nil
}

func (j *ReceiptIntegrityJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReceiptIntegrityScan))
	}
	return slog.Default().With(slog.String("job", TaskReceiptIntegrityScan))
}

func (j *ReceiptIntegrityJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
