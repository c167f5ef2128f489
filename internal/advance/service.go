package advance

import (
	"context"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/documents"
	"github.com/meridian-erp/meridian-erp/internal/settings"
)

// Repository defines persistence for advance payments.
type Repository interface {
	Get(ctx context.Context, id int64) (*AdvancePayment, error)
	List(ctx context.Context, req ListRequest) ([]AdvancePayment, error)
	Create(ctx context.Context, ap *AdvancePayment) error
	Update(ctx context.Context, ap *AdvancePayment) error
}

// ListRequest filters advance payment listings.
type ListRequest struct {
	CustomerCode string
	InvoiceID    int64
	Limit        int
	Offset       int
}

// Totals carries the derived totals of every linked document.
type Totals struct {
	Delivery   float64 `json:"delivery"`
	Estimation float64 `json:"estimation"`
	Invoice    float64 `json:"invoice"`
	Project    float64 `json:"project"`
	Order      float64 `json:"order"`
	Risk       float64 `json:"risk"`
}

// Service orchestrates the advance payment lifecycle: defaults, derived
// totals, the read-only gate and the save pipeline.
type Service struct {
	repo      Repository
	docs      documents.Lookup
	validator *Validator
	engine    *Engine
	settings  *settings.Service
}

// NewService constructs a Service.
func NewService(repo Repository, docs documents.Lookup, validator *Validator, engine *Engine, cfg *settings.Service) *Service {
	return &Service{repo: repo, docs: docs, validator: validator, engine: engine, settings: cfg}
}

// NewAdvancePayment prepares a fresh record: default currency, today's
// date, zero amount, owner assigned to the creating user.
func (s *Service) NewAdvancePayment(ctx context.Context, ownerNick string) *AdvancePayment {
	return &AdvancePayment{
		CurrencyCode: s.settings.DefaultCurrency(ctx),
		Date:         time.Now(),
		Amount:       0,
		OwnerNick:    ownerNick,
	}
}

// Get loads a single advance payment.
func (s *Service) Get(ctx context.Context, id int64) (*AdvancePayment, error) {
	return s.repo.Get(ctx, id)
}

// List returns advance payments matching the filter.
func (s *Service) List(ctx context.Context, req ListRequest) ([]AdvancePayment, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

// Save runs the pipeline: client validation, receipt reconciliation when
// an invoice is linked, then persistence of the advance payment itself.
// The first failing stage aborts; receipt mutations already performed are
// not rolled back.
func (s *Service) Save(ctx context.Context, ap *AdvancePayment) error {
	if err := s.validator.CheckClients(ctx, ap); err != nil {
		return err
	}

	if ap.InvoiceID != 0 {
		if err := s.engine.Reconcile(ctx, ap); err != nil {
			return err
		}
	}

	if ap.Exists() {
		if err := s.repo.Update(ctx, ap); err != nil {
			return &PersistenceError{Op: "update advance payment", Err: err}
		}
		return nil
	}

	ap.DerivePhaseOnCreate()
	if err := s.repo.Create(ctx, ap); err != nil {
		return &PersistenceError{Op: "create advance payment", Err: err}
	}
	return nil
}

// Editability applies the read-only gate: an unconfigured minimum level
// forces read-only, and a user below the configured level cannot modify
// an advance that already carries an amount. Neither blocks the save API
// by itself; callers decide how to enforce the outcome.
func (s *Service) Editability(ctx context.Context, ap *AdvancePayment, userLevel int) Editability {
	minLevel, err := s.settings.GetInt(ctx, settings.NamespaceAdvances, settings.KeyMinLevel)
	if err != nil {
		return Editability{ReadOnly: true, WarningKey: WarnLevelNotConfigured}
	}
	if ap != nil && ap.Amount != 0 && userLevel < minLevel {
		return Editability{ReadOnly: true, WarningKey: WarnNotAllowedModify}
	}
	return Editability{}
}

// TotalDelivery resolves the linked delivery note's total.
func (s *Service) TotalDelivery(ctx context.Context, ap *AdvancePayment) float64 {
	return s.documentTotal(ctx, documents.KindDeliveryNote, ap.DeliveryNoteID)
}

// TotalEstimation resolves the linked estimation's total.
func (s *Service) TotalEstimation(ctx context.Context, ap *AdvancePayment) float64 {
	return s.documentTotal(ctx, documents.KindEstimation, ap.EstimationID)
}

// TotalInvoice resolves the linked invoice's total.
func (s *Service) TotalInvoice(ctx context.Context, ap *AdvancePayment) float64 {
	return s.documentTotal(ctx, documents.KindInvoice, ap.InvoiceID)
}

// TotalOrder resolves the linked order's total.
func (s *Service) TotalOrder(ctx context.Context, ap *AdvancePayment) float64 {
	return s.documentTotal(ctx, documents.KindOrder, ap.OrderID)
}

// TotalProject resolves the linked project's total sales. It is always 0
// when the project capability is unavailable, even with a project linked.
func (s *Service) TotalProject(ctx context.Context, ap *AdvancePayment) float64 {
	if !s.docs.ProjectsEnabled() {
		return 0
	}
	return s.documentTotal(ctx, documents.KindProject, ap.ProjectID)
}

// TotalRisk resolves the customer's reached risk.
func (s *Service) TotalRisk(ctx context.Context, ap *AdvancePayment) float64 {
	if ap.CustomerCode == "" {
		return 0
	}
	summary, err := s.docs.LoadCustomer(ctx, ap.CustomerCode)
	if err != nil {
		return 0
	}
	return summary.Total
}

// ResolveTotals gathers every derived total of the record.
func (s *Service) ResolveTotals(ctx context.Context, ap *AdvancePayment) Totals {
	return Totals{
		Delivery:   s.TotalDelivery(ctx, ap),
		Estimation: s.TotalEstimation(ctx, ap),
		Invoice:    s.TotalInvoice(ctx, ap),
		Project:    s.TotalProject(ctx, ap),
		Order:      s.TotalOrder(ctx, ap),
		Risk:       s.TotalRisk(ctx, ap),
	}
}

func (s *Service) documentTotal(ctx context.Context, kind documents.Kind, id int64) float64 {
	if id == 0 {
		return 0
	}
	summary, err := s.docs.Load(ctx, kind, id)
	if err != nil {
		return 0
	}
	return summary.Total
}
