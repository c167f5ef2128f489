package advance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/documents"
)

func TestCheckClientsPassesWithoutCustomer(t *testing.T) {
	docs := newMemDocs(true)
	docs.put(documents.KindOrder, 5, "OTHER", 100)

	v := NewValidator(docs)
	err := v.CheckClients(context.Background(), &AdvancePayment{OrderID: 5})
	require.NoError(t, err)
}

func TestCheckClientsMatchingLinks(t *testing.T) {
	docs := newMemDocs(true)
	docs.put(documents.KindEstimation, 1, "CUST", 10)
	docs.put(documents.KindOrder, 2, "CUST", 20)
	docs.put(documents.KindDeliveryNote, 3, "CUST", 30)
	docs.put(documents.KindInvoice, 4, "CUST", 40)
	docs.put(documents.KindProject, 5, "CUST", 50)

	v := NewValidator(docs)
	err := v.CheckClients(context.Background(), &AdvancePayment{
		CustomerCode: "CUST",
		EstimationID: 1, OrderID: 2, DeliveryNoteID: 3, InvoiceID: 4, ProjectID: 5,
	})
	require.NoError(t, err)
}

func TestCheckClientsMismatch(t *testing.T) {
	docs := newMemDocs(true)
	docs.put(documents.KindEstimation, 1, "OTHER", 10)
	docs.put(documents.KindOrder, 2, "OTHER", 20)
	docs.put(documents.KindDeliveryNote, 3, "OTHER", 30)
	docs.put(documents.KindInvoice, 4, "OTHER", 40)
	docs.put(documents.KindProject, 5, "OTHER", 50)

	tests := []struct {
		name    string
		ap      AdvancePayment
		wantDoc documents.Kind
		wantKey string
	}{
		{"estimation", AdvancePayment{CustomerCode: "CUST", EstimationID: 1}, documents.KindEstimation, WarnInvalidClientEstimation},
		{"order", AdvancePayment{CustomerCode: "CUST", OrderID: 2}, documents.KindOrder, WarnInvalidClientOrder},
		{"delivery note", AdvancePayment{CustomerCode: "CUST", DeliveryNoteID: 3}, documents.KindDeliveryNote, WarnInvalidClientDeliveryNote},
		{"invoice", AdvancePayment{CustomerCode: "CUST", InvoiceID: 4}, documents.KindInvoice, WarnInvalidClientInvoice},
		{"project", AdvancePayment{CustomerCode: "CUST", ProjectID: 5}, documents.KindProject, WarnInvalidClientProject},
	}

	v := NewValidator(docs)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.CheckClients(context.Background(), &tt.ap)

			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			require.Equal(t, tt.wantDoc, validationErr.Doc)
			require.Equal(t, tt.wantKey, validationErr.Key)
		})
	}
}

func TestCheckClientsUnloadableLinkIsMismatch(t *testing.T) {
	v := NewValidator(newMemDocs(true))
	err := v.CheckClients(context.Background(), &AdvancePayment{CustomerCode: "CUST", OrderID: 77})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, WarnInvalidClientOrder, validationErr.Key)
}

func TestCheckClientsReportsFirstMismatch(t *testing.T) {
	docs := newMemDocs(true)
	docs.put(documents.KindEstimation, 1, "OTHER", 10)
	docs.put(documents.KindOrder, 2, "OTHER", 20)

	v := NewValidator(docs)
	err := v.CheckClients(context.Background(), &AdvancePayment{
		CustomerCode: "CUST", EstimationID: 1, OrderID: 2,
	})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, WarnInvalidClientEstimation, validationErr.Key)
}

func TestCheckClientsSkipsProjectWhenDisabled(t *testing.T) {
	docs := newMemDocs(false)
	docs.put(documents.KindProject, 5, "OTHER", 50)

	v := NewValidator(docs)
	err := v.CheckClients(context.Background(), &AdvancePayment{CustomerCode: "CUST", ProjectID: 5})
	require.NoError(t, err)
}
