package advance

import (
	"context"
	"sort"

	"github.com/meridian-erp/meridian-erp/internal/documents"
	"github.com/meridian-erp/meridian-erp/internal/receipts"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// memDocs is an in-memory documents.Lookup.
type memDocs struct {
	docs      map[documents.Kind]map[int64]documents.Summary
	customers map[string]documents.Summary
	projects  bool
}

func newMemDocs(projectsEnabled bool) *memDocs {
	return &memDocs{
		docs:      map[documents.Kind]map[int64]documents.Summary{},
		customers: map[string]documents.Summary{},
		projects:  projectsEnabled,
	}
}

func (m *memDocs) put(kind documents.Kind, id int64, customerCode string, total float64) {
	if m.docs[kind] == nil {
		m.docs[kind] = map[int64]documents.Summary{}
	}
	m.docs[kind][id] = documents.Summary{CustomerCode: customerCode, Total: total}
}

func (m *memDocs) putCustomer(code string, risk float64) {
	m.customers[code] = documents.Summary{CustomerCode: code, Total: risk}
}

func (m *memDocs) Load(_ context.Context, kind documents.Kind, id int64) (*documents.Summary, error) {
	if kind == documents.KindProject && !m.projects {
		return nil, documents.ErrCapabilityDisabled
	}
	summary, ok := m.docs[kind][id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &summary, nil
}

func (m *memDocs) LoadCustomer(_ context.Context, code string) (*documents.Summary, error) {
	summary, ok := m.customers[code]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &summary, nil
}

func (m *memDocs) ProjectsEnabled() bool { return m.projects }

// memReceipts is an in-memory receipts.Repository. It hands out copies so
// caller-side mutations only land through Update.
type memReceipts struct {
	items     []receipts.Receipt
	nextID    int64
	createErr error
	updateErr error
}

func newMemReceipts(items ...receipts.Receipt) *memReceipts {
	repo := &memReceipts{nextID: 1}
	for _, item := range items {
		if item.ID >= repo.nextID {
			repo.nextID = item.ID + 1
		}
		repo.items = append(repo.items, item)
	}
	return repo
}

func (m *memReceipts) FindByInvoice(_ context.Context, invoiceID int64) ([]receipts.Receipt, error) {
	var out []receipts.Receipt
	for _, item := range m.items {
		if item.InvoiceID == invoiceID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sequence != out[j].Sequence {
			return out[i].Sequence < out[j].Sequence
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memReceipts) LoadDefaultForInvoice(ctx context.Context, invoiceID int64) (*receipts.Receipt, error) {
	matching, err := m.FindByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if len(matching) == 0 {
		return nil, shared.ErrNotFound
	}
	def := matching[0]
	return &def, nil
}

func (m *memReceipts) Create(_ context.Context, receipt *receipts.Receipt) error {
	if m.createErr != nil {
		return m.createErr
	}
	receipt.ID = m.nextID
	m.nextID++
	m.items = append(m.items, *receipt)
	return nil
}

func (m *memReceipts) Update(_ context.Context, receipt *receipts.Receipt) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	for i := range m.items {
		if m.items[i].ID == receipt.ID {
			m.items[i] = *receipt
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memReceipts) byID(id int64) *receipts.Receipt {
	for i := range m.items {
		if m.items[i].ID == id {
			rec := m.items[i]
			return &rec
		}
	}
	return nil
}

func (m *memReceipts) sumForInvoice(invoiceID int64) float64 {
	var sum float64
	for _, item := range m.items {
		if item.InvoiceID == invoiceID {
			sum += item.Amount
		}
	}
	return sum
}

// memAdvances is an in-memory advance.Repository.
type memAdvances struct {
	items  map[int64]AdvancePayment
	nextID int64
}

func newMemAdvances() *memAdvances {
	return &memAdvances{items: map[int64]AdvancePayment{}, nextID: 1}
}

func (m *memAdvances) Get(_ context.Context, id int64) (*AdvancePayment, error) {
	ap, ok := m.items[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &ap, nil
}

func (m *memAdvances) List(_ context.Context, req ListRequest) ([]AdvancePayment, error) {
	var out []AdvancePayment
	for _, item := range m.items {
		if req.CustomerCode != "" && item.CustomerCode != req.CustomerCode {
			continue
		}
		if req.InvoiceID > 0 && item.InvoiceID != req.InvoiceID {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memAdvances) Create(_ context.Context, ap *AdvancePayment) error {
	ap.ID = m.nextID
	m.nextID++
	m.items[ap.ID] = *ap
	return nil
}

func (m *memAdvances) Update(_ context.Context, ap *AdvancePayment) error {
	if _, ok := m.items[ap.ID]; !ok {
		return shared.ErrNotFound
	}
	m.items[ap.ID] = *ap
	return nil
}

// memSettingsRepo is an in-memory settings.Repository.
type memSettingsRepo struct {
	values map[string]string
}

func newMemSettingsRepo() *memSettingsRepo {
	return &memSettingsRepo{values: map[string]string{}}
}

func (m *memSettingsRepo) Get(_ context.Context, namespace, key string) (string, error) {
	value, ok := m.values[namespace+"/"+key]
	if !ok {
		return "", shared.ErrNotFound
	}
	return value, nil
}

func (m *memSettingsRepo) Set(_ context.Context, namespace, key, value string) error {
	m.values[namespace+"/"+key] = value
	return nil
}

// passthroughLocker records lock acquisitions and runs the callback inline.
type passthroughLocker struct {
	invoices []int64
}

func (l *passthroughLocker) WithInvoiceLock(ctx context.Context, invoiceID int64, fn func(context.Context) error) error {
	l.invoices = append(l.invoices, invoiceID)
	return fn(ctx)
}
