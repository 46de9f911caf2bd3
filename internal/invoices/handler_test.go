package invoices_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/lotledger/internal/invoices"
	"github.com/odyssey-erp/lotledger/internal/platform/httpx"
	"github.com/odyssey-erp/lotledger/internal/shared"
	_ "github.com/odyssey-erp/lotledger/testing"
)

func TestHandlerCreateUpdateCancel(t *testing.T) {
	f := newFixture(t)
	r := chi.NewRouter()
	r.Route("/invoices", invoices.NewHandler(nil, f.svc).MountRoutes)

	body := fmt.Sprintf(`{"customer_id":%q,"document_type":"IRSALIYE","items":[{"product_id":%q,"quantity":2,"unit_price":"5.25"}],
		"stock_adjustments":[{"warehouse_id":%q,"lot_id":%q,"quantity":2}]}`, f.customer.ID, f.product.ID, f.main.ID, f.lot.ID)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created invoices.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	require.Equal(t, "10.5", created.NetTotal.String())
	require.Equal(t, int64(98), f.store.Quantity(f.main.ID, f.lot.ID))

	body = fmt.Sprintf(`{"items":[{"product_id":%q,"quantity":1}],"notes":"one only"}`, f.product.ID)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/invoices/"+created.ID, strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invoices/"+created.ID+"/cancel", strings.NewReader(`{"reason":"test"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invoices/"+created.ID+"/cancel", strings.NewReader(`{}`)))
	require.Equal(t, http.StatusConflict, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
	require.Equal(t, string(shared.KindAlreadyCancelled), problem.Code)
}

func TestHandlerRejectsUnknownDocumentType(t *testing.T) {
	f := newFixture(t)
	r := chi.NewRouter()
	r.Route("/invoices", invoices.NewHandler(nil, f.svc).MountRoutes)

	body := fmt.Sprintf(`{"customer_id":%q,"document_type":"RECEIPT"}`, f.customer.ID)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/invoices", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invoices/"+f.store.NextID(), nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerMalformedInvoiceIDIsNotFound(t *testing.T) {
	f := newFixture(t)
	r := chi.NewRouter()
	r.Route("/invoices", invoices.NewHandler(nil, f.svc).MountRoutes)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/invoices/not-a-uuid", nil),
		httptest.NewRequest(http.MethodPut, "/invoices/not-a-uuid", strings.NewReader(`{"items":[]}`)),
		httptest.NewRequest(http.MethodPost, "/invoices/not-a-uuid/cancel", strings.NewReader(`{}`)),
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNotFound, rec.Code, req.Method)
		var problem httpx.ProblemDetail
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
		require.Equal(t, string(shared.KindInvoiceNotFound), problem.Code)
	}
}
