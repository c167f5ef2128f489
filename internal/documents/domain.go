// Package documents provides read-only lookups of the sales documents an
// advance payment can originate from.
package documents

import "errors"

// Kind enumerates the document kinds an advance payment may link to.
type Kind string

const (
	KindDeliveryNote Kind = "delivery_note"
	KindOrder        Kind = "order"
	KindEstimation   Kind = "estimation"
	KindInvoice      Kind = "invoice"
	KindProject      Kind = "project"
	KindCustomer     Kind = "customer"
)

// ErrCapabilityDisabled is returned by project lookups when the project
// feature is not installed.
var ErrCapabilityDisabled = errors.New("documents: project capability disabled")

// Summary is the slice of a document the advance payment core needs:
// who owes it and how much it is worth. For customers Total carries the
// reached risk instead of a document total.
type Summary struct {
	CustomerCode string
	Total        float64
}
