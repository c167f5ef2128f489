package advance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/receipts"
	"github.com/meridian-erp/meridian-erp/internal/settings"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func newTestEngine(repo *memReceipts, settingsRepo *memSettingsRepo) (*Engine, *passthroughLocker) {
	locker := &passthroughLocker{}
	return NewEngine(repo, settings.NewService(settingsRepo, nil, time.Minute), locker), locker
}

func testDate(day int) time.Time {
	return time.Date(2026, time.March, day, 0, 0, 0, 0, time.UTC)
}

func defaultReceipt(invoiceID int64, amount float64) receipts.Receipt {
	return receipts.Receipt{
		ID:                1,
		InvoiceID:         invoiceID,
		InvoiceCode:       "FAC-2026-001",
		CompanyID:         1,
		CustomerCode:      "CUST",
		CurrencyCode:      "EUR",
		PaymentMethodCode: "TRANSFER",
		Amount:            amount,
		Sequence:          1,
		IssueDate:         testDate(1),
		DueDate:           testDate(30),
		OwnerNick:         "alice",
	}
}

func TestReconcileExactSettlement(t *testing.T) {
	repo := newMemReceipts(defaultReceipt(7, 100))
	engine, locker := newTestEngine(repo, newMemSettingsRepo())

	ap := &AdvancePayment{
		InvoiceID:         7,
		Amount:            100,
		CurrencyCode:      "EUR",
		PaymentMethodCode: "CASH",
		Note:              "paid in full",
		Date:              testDate(15),
	}
	require.NoError(t, engine.Reconcile(context.Background(), ap))
	require.Equal(t, []int64{7}, locker.invoices)

	all, err := repo.FindByInvoice(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, all, 1, "exact settlement must not create a receipt")

	def := repo.byID(1)
	require.True(t, def.Paid)
	require.Equal(t, "CASH", def.PaymentMethodCode)
	require.Equal(t, testDate(15), def.DueDate)
	require.Equal(t, "paid in full", def.Observations)
	require.Equal(t, testDate(1), def.IssueDate, "issue date untouched without propagation")
	require.Nil(t, def.PaymentDate, "payment date unset without propagation")
}

func TestReconcileExactSettlementPropagatesDates(t *testing.T) {
	repo := newMemReceipts(defaultReceipt(7, 100))
	settingsRepo := newMemSettingsRepo()
	settingsRepo.values["advances/propagate_dates"] = "true"
	engine, _ := newTestEngine(repo, settingsRepo)

	ap := &AdvancePayment{InvoiceID: 7, Amount: 100, Date: testDate(15)}
	require.NoError(t, engine.Reconcile(context.Background(), ap))

	def := repo.byID(1)
	require.Equal(t, testDate(15), def.IssueDate)
	require.NotNil(t, def.PaymentDate)
	require.Equal(t, testDate(15), *def.PaymentDate)
}

func TestReconcilePartialSettlementSplits(t *testing.T) {
	repo := newMemReceipts(defaultReceipt(7, 100))
	engine, _ := newTestEngine(repo, newMemSettingsRepo())

	ap := &AdvancePayment{
		InvoiceID:         7,
		Amount:            40,
		CurrencyCode:      "USD",
		PaymentMethodCode: "CASH",
		Note:              "first advance",
		Date:              testDate(10),
	}
	require.NoError(t, engine.Reconcile(context.Background(), ap))

	all, err := repo.FindByInvoice(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, all, 2)

	split := repo.byID(2)
	require.True(t, split.Paid)
	require.Equal(t, 40.0, split.Amount)
	require.Equal(t, 1, split.Sequence)
	require.Equal(t, testDate(10), split.IssueDate)
	require.Equal(t, testDate(10), split.DueDate)
	require.Nil(t, split.PaymentDate)

	// Identity fields come from the invoice's first receipt, money fields
	// from the advance.
	require.Equal(t, "FAC-2026-001", split.InvoiceCode)
	require.Equal(t, int64(1), split.CompanyID)
	require.Equal(t, "CUST", split.CustomerCode)
	require.Equal(t, "alice", split.OwnerNick)
	require.Equal(t, "USD", split.CurrencyCode)
	require.Equal(t, "CASH", split.PaymentMethodCode)
	require.Equal(t, "first advance", split.Observations)

	def := repo.byID(1)
	require.Equal(t, 60.0, def.Amount)
	require.Equal(t, 2, def.Sequence)
	require.False(t, def.Paid)

	require.Equal(t, 100.0, repo.sumForInvoice(7), "split conserves the invoice total")
}

func TestReconcileRepeatedAdvancesConserveTotal(t *testing.T) {
	repo := newMemReceipts(defaultReceipt(7, 100))
	engine, _ := newTestEngine(repo, newMemSettingsRepo())

	for _, amount := range []float64{25, 35, 40} {
		ap := &AdvancePayment{InvoiceID: 7, Amount: amount, Date: testDate(10)}
		require.NoError(t, engine.Reconcile(context.Background(), ap))
		require.Equal(t, 100.0, repo.sumForInvoice(7))
	}
}

func TestReconcileNegativeRemainder(t *testing.T) {
	repo := newMemReceipts(defaultReceipt(7, 100))
	engine, _ := newTestEngine(repo, newMemSettingsRepo())

	ap := &AdvancePayment{InvoiceID: 7, Amount: 150, Date: testDate(10)}
	require.NoError(t, engine.Reconcile(context.Background(), ap))

	split := repo.byID(2)
	require.Equal(t, 150.0, split.Amount)
	require.True(t, split.Paid)

	def := repo.byID(1)
	require.Equal(t, -50.0, def.Amount)
	require.Equal(t, 100.0, repo.sumForInvoice(7))
}

func TestReconcileCreateFailureLeavesDefaultUntouched(t *testing.T) {
	repo := newMemReceipts(defaultReceipt(7, 100))
	repo.createErr = errors.New("boom")
	engine, _ := newTestEngine(repo, newMemSettingsRepo())

	ap := &AdvancePayment{InvoiceID: 7, Amount: 40, Date: testDate(10)}
	err := engine.Reconcile(context.Background(), ap)

	var persistenceErr *PersistenceError
	require.ErrorAs(t, err, &persistenceErr)

	def := repo.byID(1)
	require.Equal(t, 100.0, def.Amount)
	require.Equal(t, 1, def.Sequence)
	require.False(t, def.Paid)
	require.Len(t, repo.items, 1)
}

func TestReconcileNoReceipts(t *testing.T) {
	engine, _ := newTestEngine(newMemReceipts(), newMemSettingsRepo())

	ap := &AdvancePayment{InvoiceID: 7, Amount: 40, Date: testDate(10)}
	err := engine.Reconcile(context.Background(), ap)

	var persistenceErr *PersistenceError
	require.ErrorAs(t, err, &persistenceErr)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestReconcileDefaultIsLowestSequence(t *testing.T) {
	first := defaultReceipt(7, 60)
	second := defaultReceipt(7, 40)
	second.ID = 2
	second.Sequence = 2
	repo := newMemReceipts(second, first)
	engine, _ := newTestEngine(repo, newMemSettingsRepo())

	ap := &AdvancePayment{InvoiceID: 7, Amount: 60, Date: testDate(10)}
	require.NoError(t, engine.Reconcile(context.Background(), ap))

	require.True(t, repo.byID(1).Paid)
	require.False(t, repo.byID(2).Paid)
}
