// Package jobs runs background work over the receipt ledger: periodic
// integrity scans that verify every invoice's receipts still add up to
// the invoice total after reconciliation activity.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReceiptIntegrityScan verifies receipt sums against invoice totals.
	TaskReceiptIntegrityScan = "receipts:integrity_scan"
)

// ReceiptIntegrityPayload tunes a receipt integrity scan.
type ReceiptIntegrityPayload struct {
	// Tolerance is the maximum absolute drift, in currency units, between
	// an invoice total and the sum of its receipts before the invoice is
	// reported. Zero means the default of one cent.
	Tolerance float64 `json:"tolerance"`
	// Concurrency bounds parallel invoice checks. Zero means the default.
	Concurrency int `json:"concurrency"`
}

// NewReceiptIntegrityTask constructs an Asynq task.
func NewReceiptIntegrityTask(payload ReceiptIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReceiptIntegrityScan, data), nil
}
