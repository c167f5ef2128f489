package advance

import (
	"context"

	"github.com/meridian-erp/meridian-erp/internal/documents"
)

// Validator cross-checks the advance payment's customer against every
// linked document's customer.
type Validator struct {
	docs documents.Lookup
}

// NewValidator constructs a Validator.
func NewValidator(docs documents.Lookup) *Validator {
	return &Validator{docs: docs}
}

// CheckClients verifies that each populated document link belongs to the
// advance payment's customer. The first mismatch aborts the scan; a link
// whose target cannot be loaded counts as a mismatch. With no customer
// code set there is nothing to compare, so the check passes.
func (v *Validator) CheckClients(ctx context.Context, ap *AdvancePayment) error {
	if ap.CustomerCode == "" {
		return nil
	}

	checks := []struct {
		kind documents.Kind
		id   int64
		key  string
	}{
		{documents.KindEstimation, ap.EstimationID, WarnInvalidClientEstimation},
		{documents.KindOrder, ap.OrderID, WarnInvalidClientOrder},
		{documents.KindDeliveryNote, ap.DeliveryNoteID, WarnInvalidClientDeliveryNote},
		{documents.KindInvoice, ap.InvoiceID, WarnInvalidClientInvoice},
	}

	for _, check := range checks {
		if check.id == 0 {
			continue
		}
		summary, err := v.docs.Load(ctx, check.kind, check.id)
		if err != nil || summary.CustomerCode != ap.CustomerCode {
			return &ValidationError{Doc: check.kind, Key: check.key}
		}
	}

	// Project links are only checkable when the capability is installed.
	if ap.ProjectID != 0 && v.docs.ProjectsEnabled() {
		summary, err := v.docs.Load(ctx, documents.KindProject, ap.ProjectID)
		if err != nil || summary.CustomerCode != ap.CustomerCode {
			return &ValidationError{Doc: documents.KindProject, Key: WarnInvalidClientProject}
		}
	}

	return nil
}
