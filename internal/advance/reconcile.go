package advance

import (
	"context"

	"github.com/meridian-erp/meridian-erp/internal/receipts"
	"github.com/meridian-erp/meridian-erp/internal/settings"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// InvoiceLocker serializes reconciliation per invoice. Satisfied by
// shared.InvoiceLocker in production.
type InvoiceLocker interface {
	WithInvoiceLock(ctx context.Context, invoiceID int64, fn func(context.Context) error) error
}

// Engine reconciles an advance payment against the invoice's default
// receipt. It touches that single receipt plus at most one new receipt
// per invocation and preserves the sum of receipt amounts across any
// structural change it makes.
type Engine struct {
	receipts receipts.Repository
	settings *settings.Service
	locks    InvoiceLocker
}

// NewEngine constructs an Engine.
func NewEngine(repo receipts.Repository, cfg *settings.Service, locks InvoiceLocker) *Engine {
	return &Engine{receipts: repo, settings: cfg, locks: locks}
}

// Reconcile settles ap against its invoice's default receipt. The whole
// read-compute-write sequence runs under the invoice lock so concurrent
// saves against the same invoice cannot both read the same receipt amount.
func (e *Engine) Reconcile(ctx context.Context, ap *AdvancePayment) error {
	return e.locks.WithInvoiceLock(ctx, ap.InvoiceID, func(ctx context.Context) error {
		return e.reconcile(ctx, ap)
	})
}

func (e *Engine) reconcile(ctx context.Context, ap *AdvancePayment) error {
	existing, err := e.receipts.FindByInvoice(ctx, ap.InvoiceID)
	if err != nil {
		return &PersistenceError{Op: "load invoice receipts", Err: err}
	}
	if len(existing) == 0 {
		return &PersistenceError{Op: "load invoice receipts", Err: shared.ErrNotFound}
	}

	def, err := e.receipts.LoadDefaultForInvoice(ctx, ap.InvoiceID)
	if err != nil {
		return &PersistenceError{Op: "load default receipt", Err: err}
	}

	propagateDates, _ := e.settings.GetBool(ctx, settings.NamespaceAdvances, settings.KeyPropagateDates, false)

	remainder := def.Amount - ap.Amount

	// Exact settlement: the default receipt is marked paid in place and
	// no new receipt is created.
	if remainder == 0 {
		def.Paid = true
		def.PaymentMethodCode = ap.PaymentMethodCode
		def.DueDate = ap.Date
		if propagateDates {
			def.IssueDate = ap.Date
			paidAt := ap.Date
			def.PaymentDate = &paidAt
		}
		def.Observations = ap.Note
		if err := e.receipts.Update(ctx, def); err != nil {
			return &PersistenceError{Op: "update default receipt", Err: err}
		}
		return nil
	}

	// Partial settlement: split off a paid receipt for the advance amount,
	// then shrink the default receipt to the remainder. An advance larger
	// than the receipt leaves a negative remainder on the default receipt;
	// that observed behavior is kept as is.
	ref := existing[0]
	newReceipt := &receipts.Receipt{
		InvoiceID:         ap.InvoiceID,
		InvoiceCode:       ref.InvoiceCode,
		CompanyID:         ref.CompanyID,
		CustomerCode:      ref.CustomerCode,
		CurrencyCode:      ap.CurrencyCode,
		PaymentMethodCode: ap.PaymentMethodCode,
		Amount:            ap.Amount,
		Sequence:          len(existing),
		IssueDate:         ap.Date,
		DueDate:           ap.Date,
		Paid:              true,
		Observations:      ap.Note,
		OwnerNick:         ref.OwnerNick,
	}
	if propagateDates {
		paidAt := ap.Date
		newReceipt.PaymentDate = &paidAt
	}

	if err := e.receipts.Create(ctx, newReceipt); err != nil {
		return &PersistenceError{Op: "create split receipt", Err: err}
	}

	def.Amount = remainder
	def.Sequence = len(existing) + 1
	if err := e.receipts.Update(ctx, def); err != nil {
		return &PersistenceError{Op: "update default receipt", Err: err}
	}
	return nil
}
