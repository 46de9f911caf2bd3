package masterdata_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/lotledger/internal/masterdata"
	"github.com/odyssey-erp/lotledger/internal/platform/httpx"
	"github.com/odyssey-erp/lotledger/internal/shared"
)

func TestHandlerMalformedIDsAreNotFound(t *testing.T) {
	svc, _, main, _ := newService(t)
	r := chi.NewRouter()
	masterdata.NewHandler(nil, svc).MountRoutes(r)

	cases := []struct {
		req  *http.Request
		kind shared.Kind
	}{
		{httptest.NewRequest(http.MethodDelete, "/warehouses/main", nil), shared.KindWarehouseNotFound},
		{httptest.NewRequest(http.MethodGet, "/customers/7", nil), shared.KindCustomerNotFound},
		{httptest.NewRequest(http.MethodPut, "/products/abc/lots", strings.NewReader(`{"lot_number":"L1"}`)), shared.KindProductNotFound},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, tc.req)
		require.Equal(t, http.StatusNotFound, rec.Code, tc.req.URL.Path)
		var problem httpx.ProblemDetail
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&problem))
		require.Equal(t, string(tc.kind), problem.Code)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/warehouses/"+main.ID, nil))
	require.NotEqual(t, http.StatusNotFound, rec.Code)
}
