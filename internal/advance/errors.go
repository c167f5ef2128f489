package advance

import (
	"fmt"

	"github.com/meridian-erp/meridian-erp/internal/documents"
)

// Localizable warning keys surfaced to callers. Logging them is the
// caller's responsibility; the core only returns typed errors.
const (
	WarnInvalidClientEstimation   = "advance-payment-invalid-client-estimation"
	WarnInvalidClientOrder        = "advance-payment-invalid-client-order"
	WarnInvalidClientDeliveryNote = "advance-payment-invalid-client-delivery-note"
	WarnInvalidClientInvoice      = "advance-payment-invalid-client-invoice"
	WarnInvalidClientProject      = "advance-payment-invalid-client-project"
	WarnLevelNotConfigured        = "level-not-configured"
	WarnNotAllowedModify          = "not-allowed-modify"
)

// ValidationError reports that a linked document belongs to a different
// customer than the advance payment, or could not be loaded at all.
type ValidationError struct {
	Doc documents.Kind
	Key string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("advance: customer mismatch on %s (%s)", e.Doc, e.Key)
}

// PersistenceError reports a repository create/update failure during
// reconciliation or final save.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("advance: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Editability is the outcome of the read-only gate. A non-empty
// WarningKey explains why the record is read-only; it never blocks reads.
type Editability struct {
	ReadOnly   bool
	WarningKey string
}
