package advance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/documents"
	"github.com/meridian-erp/meridian-erp/internal/receipts"
	"github.com/meridian-erp/meridian-erp/internal/settings"
)

type serviceFixture struct {
	service  *Service
	advances *memAdvances
	receipts *memReceipts
	docs     *memDocs
	settings *memSettingsRepo
}

func newServiceFixture(t *testing.T, projectsEnabled bool) *serviceFixture {
	t.Helper()

	docs := newMemDocs(projectsEnabled)
	advances := newMemAdvances()
	receiptsRepo := newMemReceipts()
	settingsRepo := newMemSettingsRepo()
	cfg := settings.NewService(settingsRepo, nil, time.Minute)
	engine := NewEngine(receiptsRepo, cfg, &passthroughLocker{})

	return &serviceFixture{
		service:  NewService(advances, docs, NewValidator(docs), engine, cfg),
		advances: advances,
		receipts: receiptsRepo,
		docs:     docs,
		settings: settingsRepo,
	}
}

func TestNewAdvancePaymentDefaults(t *testing.T) {
	f := newServiceFixture(t, false)

	ap := f.service.NewAdvancePayment(context.Background(), "alice")
	require.Equal(t, "EUR", ap.CurrencyCode)
	require.Zero(t, ap.Amount)
	require.Equal(t, "alice", ap.OwnerNick)
	require.WithinDuration(t, time.Now(), ap.Date, time.Minute)
	require.False(t, ap.Exists())
}

func TestNewAdvancePaymentConfiguredCurrency(t *testing.T) {
	f := newServiceFixture(t, false)
	f.settings.values["default/currency_code"] = "USD"

	ap := f.service.NewAdvancePayment(context.Background(), "alice")
	require.Equal(t, "USD", ap.CurrencyCode)
}

func TestSaveCreateDerivesPhase(t *testing.T) {
	f := newServiceFixture(t, false)
	f.docs.put(documents.KindOrder, 3, "CUST", 500)

	ap := &AdvancePayment{CustomerCode: "CUST", OrderID: 3, Amount: 50, OwnerNick: "alice"}
	require.NoError(t, f.service.Save(context.Background(), ap))

	require.True(t, ap.Exists())
	require.Equal(t, PhaseOrder, ap.Phase)

	stored, err := f.advances.Get(context.Background(), ap.ID)
	require.NoError(t, err)
	require.Equal(t, PhaseOrder, stored.Phase)
}

func TestSaveValidationFailureMutatesNothing(t *testing.T) {
	f := newServiceFixture(t, false)
	f.docs.put(documents.KindInvoice, 7, "OTHER", 100)
	f.receipts.items = []receipts.Receipt{defaultReceipt(7, 100)}
	f.receipts.nextID = 2

	ap := &AdvancePayment{CustomerCode: "CUST", InvoiceID: 7, Amount: 40}
	err := f.service.Save(context.Background(), ap)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, WarnInvalidClientInvoice, validationErr.Key)

	require.False(t, ap.Exists())
	require.Len(t, f.receipts.items, 1)
	require.Equal(t, 100.0, f.receipts.byID(1).Amount)
}

func TestSaveWithInvoiceReconcilesThenPersists(t *testing.T) {
	f := newServiceFixture(t, false)
	f.docs.put(documents.KindInvoice, 7, "CUST", 100)
	f.receipts.items = []receipts.Receipt{defaultReceipt(7, 100)}
	f.receipts.nextID = 2

	ap := &AdvancePayment{CustomerCode: "CUST", InvoiceID: 7, Amount: 40, Date: testDate(10)}
	require.NoError(t, f.service.Save(context.Background(), ap))

	require.True(t, ap.Exists())
	require.Equal(t, PhaseCustomer, ap.Phase)
	require.Len(t, f.receipts.items, 2)
	require.Equal(t, 100.0, f.receipts.sumForInvoice(7))
}

func TestSaveUpdateKeepsPhase(t *testing.T) {
	f := newServiceFixture(t, false)

	ap := &AdvancePayment{CustomerCode: "CUST", Amount: 10, OwnerNick: "alice"}
	require.NoError(t, f.service.Save(context.Background(), ap))
	require.Equal(t, PhaseCustomer, ap.Phase)

	ap.OrderID = 3
	ap.Amount = 25
	f.docs.put(documents.KindOrder, 3, "CUST", 500)
	require.NoError(t, f.service.Save(context.Background(), ap))

	stored, err := f.advances.Get(context.Background(), ap.ID)
	require.NoError(t, err)
	require.Equal(t, PhaseCustomer, stored.Phase)
	require.Equal(t, 25.0, stored.Amount)
}

func TestEditability(t *testing.T) {
	f := newServiceFixture(t, false)

	gate := f.service.Editability(context.Background(), &AdvancePayment{}, 99)
	require.True(t, gate.ReadOnly)
	require.Equal(t, WarnLevelNotConfigured, gate.WarningKey)

	f.settings.values["advances/level"] = "3"

	gate = f.service.Editability(context.Background(), &AdvancePayment{Amount: 50}, 2)
	require.True(t, gate.ReadOnly)
	require.Equal(t, WarnNotAllowedModify, gate.WarningKey)

	gate = f.service.Editability(context.Background(), &AdvancePayment{Amount: 50}, 3)
	require.False(t, gate.ReadOnly)

	gate = f.service.Editability(context.Background(), &AdvancePayment{Amount: 0}, 1)
	require.False(t, gate.ReadOnly, "records without an amount stay editable below the level")
}

func TestResolveTotals(t *testing.T) {
	f := newServiceFixture(t, true)
	f.docs.put(documents.KindDeliveryNote, 1, "CUST", 11)
	f.docs.put(documents.KindEstimation, 2, "CUST", 22)
	f.docs.put(documents.KindInvoice, 3, "CUST", 33)
	f.docs.put(documents.KindProject, 4, "CUST", 44)
	f.docs.put(documents.KindOrder, 5, "CUST", 55)
	f.docs.putCustomer("CUST", 66)

	ap := &AdvancePayment{
		CustomerCode: "CUST",
		DeliveryNoteID: 1, EstimationID: 2, InvoiceID: 3, ProjectID: 4, OrderID: 5,
	}
	totals := f.service.ResolveTotals(context.Background(), ap)
	require.Equal(t, Totals{
		Delivery: 11, Estimation: 22, Invoice: 33, Project: 44, Order: 55, Risk: 66,
	}, totals)
}

func TestResolveTotalsUnlinkedAndMissing(t *testing.T) {
	f := newServiceFixture(t, true)

	totals := f.service.ResolveTotals(context.Background(), &AdvancePayment{
		CustomerCode: "GHOST", OrderID: 42,
	})
	require.Equal(t, Totals{}, totals)
}

func TestTotalProjectDisabledCapability(t *testing.T) {
	f := newServiceFixture(t, false)

	total := f.service.TotalProject(context.Background(), &AdvancePayment{ProjectID: 4})
	require.Zero(t, total)
}
