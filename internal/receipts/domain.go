// Package receipts models the payment installments of an invoice. The set
// of receipts attached to an invoice partitions its payable amount.
package receipts

import "time"

// Receipt is one installment of an invoice's payable amount.
type Receipt struct {
	ID                int64
	InvoiceID         int64
	InvoiceCode       string
	CompanyID         int64
	CustomerCode      string
	CurrencyCode      string
	PaymentMethodCode string
	Amount            float64
	Sequence          int
	IssueDate         time.Time
	DueDate           time.Time
	PaymentDate       *time.Time
	Paid              bool
	Observations      string
	OwnerNick         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
