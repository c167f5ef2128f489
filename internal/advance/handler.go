package advance

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

const dateLayout = "2006-01-02"

// Handler manages advance payment endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	auth      *auth.Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, authService *auth.Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		auth:      authService,
		validator: validator.New(),
	}
}

// MountRoutes registers advance payment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Get("/{id}/totals", h.totals)
}

type advanceRequest struct {
	CustomerCode      string  `json:"customer_code"`
	CurrencyCode      string  `json:"currency_code" validate:"omitempty,len=3"`
	Date              string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Amount            float64 `json:"amount"`
	PaymentMethodCode string  `json:"payment_method_code"`
	Note              string  `json:"note"`
	DeliveryNoteID    int64   `json:"delivery_note_id" validate:"gte=0"`
	OrderID           int64   `json:"order_id" validate:"gte=0"`
	EstimationID      int64   `json:"estimation_id" validate:"gte=0"`
	ProjectID         int64   `json:"project_id" validate:"gte=0"`
	InvoiceID         int64   `json:"invoice_id" validate:"gte=0"`
}

type advanceResponse struct {
	ID                int64   `json:"id"`
	CustomerCode      string  `json:"customer_code"`
	CurrencyCode      string  `json:"currency_code"`
	Phase             Phase   `json:"phase"`
	Date              string  `json:"date"`
	Amount            float64 `json:"amount"`
	PaymentMethodCode string  `json:"payment_method_code"`
	Note              string  `json:"note"`
	OwnerNick         string  `json:"owner_nick"`
	DeliveryNoteID    int64   `json:"delivery_note_id,omitempty"`
	OrderID           int64   `json:"order_id,omitempty"`
	EstimationID      int64   `json:"estimation_id,omitempty"`
	ProjectID         int64   `json:"project_id,omitempty"`
	InvoiceID         int64   `json:"invoice_id,omitempty"`
	ReceiptID         int64   `json:"receipt_id,omitempty"`
}

func toResponse(ap *AdvancePayment) advanceResponse {
	return advanceResponse{
		ID:                ap.ID,
		CustomerCode:      ap.CustomerCode,
		CurrencyCode:      ap.CurrencyCode,
		Phase:             ap.Phase,
		Date:              ap.Date.Format(dateLayout),
		Amount:            ap.Amount,
		PaymentMethodCode: ap.PaymentMethodCode,
		Note:              ap.Note,
		OwnerNick:         ap.OwnerNick,
		DeliveryNoteID:    ap.DeliveryNoteID,
		OrderID:           ap.OrderID,
		EstimationID:      ap.EstimationID,
		ProjectID:         ap.ProjectID,
		InvoiceID:         ap.InvoiceID,
		ReceiptID:         ap.ReceiptID,
	}
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) *auth.User {
	user, err := h.auth.CurrentUser(r.Context())
	if err != nil {
		h.logger.Error("resolve current user", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "user-lookup-failed", "")
		return nil
	}
	if user == nil {
		httpx.Problem(w, http.StatusUnauthorized, "not-authenticated", "")
		return nil
	}
	return user
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	var req advanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid-body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid-fields", err.Error())
		return
	}

	ap := h.service.NewAdvancePayment(r.Context(), user.Nick)

	// A fresh record carries no amount yet, so only an unconfigured
	// minimum level can force it read-only here.
	if gate := h.service.Editability(r.Context(), ap, user.Level); gate.ReadOnly {
		h.logger.Warn("advance payment read-only", slog.String("warning", gate.WarningKey))
		httpx.ProblemKey(w, http.StatusForbidden, gate.WarningKey, "")
		return
	}

	applyRequest(ap, &req, true)

	if !h.save(r.Context(), w, ap) {
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(ap))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid-id", "")
		return
	}

	ap, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondLoadError(w, err, id)
		return
	}

	if gate := h.service.Editability(r.Context(), ap, user.Level); gate.ReadOnly {
		h.logger.Warn("advance payment read-only",
			slog.String("warning", gate.WarningKey), slog.Int64("id", id))
		httpx.ProblemKey(w, http.StatusForbidden, gate.WarningKey, "")
		return
	}

	var req advanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid-body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid-fields", err.Error())
		return
	}

	applyRequest(ap, &req, false)

	if !h.save(r.Context(), w, ap) {
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(ap))
}

// applyRequest copies request fields onto the record. The invoice link is
// only settable at creation, and once an invoice is linked the monetary
// fields are frozen: the invoice's receipts already reflect them.
func applyRequest(ap *AdvancePayment, req *advanceRequest, isNew bool) {
	invoiceLinked := !isNew && ap.InvoiceID != 0

	ap.CustomerCode = req.CustomerCode
	if req.CurrencyCode != "" {
		ap.CurrencyCode = req.CurrencyCode
	}
	ap.DeliveryNoteID = req.DeliveryNoteID
	ap.OrderID = req.OrderID
	ap.EstimationID = req.EstimationID
	ap.ProjectID = req.ProjectID
	if isNew {
		ap.InvoiceID = req.InvoiceID
	}

	if !invoiceLinked {
		ap.Amount = req.Amount
		ap.PaymentMethodCode = req.PaymentMethodCode
		ap.Note = req.Note
		if req.Date != "" {
			if date, err := time.Parse(dateLayout, req.Date); err == nil {
				ap.Date = date
			}
		}
	}
}

// save runs the pipeline and renders failures. Validation failures are
// logged as warnings here, on the caller side of the core.
func (h *Handler) save(ctx context.Context, w http.ResponseWriter, ap *AdvancePayment) bool {
	err := h.service.Save(ctx, ap)
	if err == nil {
		return true
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		h.logger.Warn("advance payment client mismatch",
			slog.String("document", string(validationErr.Doc)),
			slog.String("warning", validationErr.Key))
		httpx.ProblemKey(w, http.StatusUnprocessableEntity, validationErr.Key, "")
		return false
	}

	var persistenceErr *PersistenceError
	if errors.As(err, &persistenceErr) {
		h.logger.Error("advance payment save failed",
			slog.String("op", persistenceErr.Op), slog.Any("error", persistenceErr.Err))
		httpx.Problem(w, http.StatusInternalServerError, "save-failed", shared.UserSafeMessage(persistenceErr.Err))
		return false
	}

	h.logger.Error("advance payment save failed", slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "save-failed", shared.UserSafeMessage(err))
	return false
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid-id", "")
		return
	}
	ap, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondLoadError(w, err, id)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(ap))
}

func (h *Handler) totals(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid-id", "")
		return
	}
	ap, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondLoadError(w, err, id)
		return
	}
	httpx.JSON(w, http.StatusOK, h.service.ResolveTotals(r.Context(), ap))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req := ListRequest{
		CustomerCode: r.URL.Query().Get("customer_code"),
	}
	if raw := r.URL.Query().Get("invoice_id"); raw != "" {
		req.InvoiceID, _ = strconv.ParseInt(raw, 10, 64)
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		req.Limit, _ = strconv.Atoi(raw)
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		req.Offset, _ = strconv.Atoi(raw)
	}

	items, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list advance payments", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "list-failed", "")
		return
	}

	out := make([]advanceResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) respondLoadError(w http.ResponseWriter, err error, id int64) {
	if errors.Is(err, shared.ErrNotFound) {
		httpx.Problem(w, http.StatusNotFound, "not-found", "")
		return
	}
	h.logger.Error("load advance payment", slog.Any("error", err), slog.Int64("id", id))
	httpx.Problem(w, http.StatusInternalServerError, "load-failed", "")
}
