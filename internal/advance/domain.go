// Package advance implements customer advance payments: recording them
// against a sales document and reconciling them with the linked invoice's
// receipts.
package advance

import "time"

// Phase categorizes the document that originated an advance payment.
type Phase string

const (
	PhaseDeliveryNote Phase = "delivery_note"
	PhaseOrder        Phase = "order"
	PhaseEstimation   Phase = "estimation"
	PhaseProject      Phase = "project"
	PhaseCustomer     Phase = "customer"
	PhaseUser         Phase = "user"
)

// AdvancePayment is money received ahead of, or in settlement of, a sales
// document. Link fields are zero when unset.
type AdvancePayment struct {
	ID                int64
	CustomerCode      string
	CurrencyCode      string
	Phase             Phase
	Date              time.Time
	Amount            float64
	PaymentMethodCode string
	Note              string
	OwnerNick         string

	DeliveryNoteID int64
	OrderID        int64
	EstimationID   int64
	ProjectID      int64
	InvoiceID      int64
	ReceiptID      int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Exists reports whether the record has been persisted.
func (a *AdvancePayment) Exists() bool {
	return a.ID != 0
}

// DerivePhaseOnCreate assigns the phase from the first populated link, in
// precedence order. The phase is set once: editing an existing record
// never recomputes it, and with no link populated the prior value stands.
func (a *AdvancePayment) DerivePhaseOnCreate() {
	if a.Exists() {
		return
	}
	switch {
	case a.DeliveryNoteID != 0:
		a.Phase = PhaseDeliveryNote
	case a.OrderID != 0:
		a.Phase = PhaseOrder
	case a.EstimationID != 0:
		a.Phase = PhaseEstimation
	case a.ProjectID != 0:
		a.Phase = PhaseProject
	case a.CustomerCode != "":
		a.Phase = PhaseCustomer
	case a.OwnerNick != "":
		a.Phase = PhaseUser
	}
}
