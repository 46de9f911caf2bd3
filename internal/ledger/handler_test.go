package ledger_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/lotledger/internal/ledger"
	"github.com/odyssey-erp/lotledger/internal/platform/httpx"
)

func newRouter(f fixture) http.Handler {
	svc, _ := newService(f)
	r := chi.NewRouter()
	ledger.NewHandler(nil, svc).MountRoutes(r)
	return r
}

func TestHandlerSelectLot(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lots/select?product_id="+f.product.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body ledger.LotResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, f.lot.ID, body.ID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lots/select", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerRemoveStockInsufficient(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)
	f.store.SetLocation(f.customer.ID, f.lot.ID, 2)

	payload := `{"lot_id":"` + f.lot.ID + `","quantity":5}`
	req := httptest.NewRequest(http.MethodPost, "/warehouses/"+f.customer.ID+"/stock/remove", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
	require.Equal(t, "INSUFFICIENT_STOCK", problem.Code)
	require.Equal(t, int64(2), f.store.Quantity(f.customer.ID, f.lot.ID))
}

func TestHandlerSetLotQuantityRequiresQuantity(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)

	req := httptest.NewRequest(http.MethodPut, "/lots/"+f.lot.ID+"/quantity", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPut, "/lots/"+f.lot.ID+"/quantity", strings.NewReader(`{"quantity":9}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(9), f.store.Quantity(f.main.ID, f.lot.ID))
}

func TestHandlerMalformedPathIDsAreNotFound(t *testing.T) {
	f := newFixture(t)
	router := newRouter(f)
	f.store.SetLocation(f.main.ID, f.lot.ID, 7)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/lots/42/quantity", strings.NewReader(`{"quantity":1}`)))
	require.Equal(t, http.StatusNotFound, rec.Code)

	payload := `{"lot_id":"` + f.lot.ID + `","quantity":1}`
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/warehouses/main/stock/add", strings.NewReader(payload)))
	require.Equal(t, http.StatusNotFound, rec.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
	require.Equal(t, "WAREHOUSE_NOT_FOUND", problem.Code)
	require.Equal(t, int64(7), f.store.Quantity(f.main.ID, f.lot.ID))
}
