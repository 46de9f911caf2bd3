package masterdata

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/lotledger/internal/ledger"
	"github.com/odyssey-erp/lotledger/internal/platform/httpx"
	"github.com/odyssey-erp/lotledger/internal/shared"
)

// Handler wires HTTP endpoints for master data.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the master data handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/warehouses", h.handleCreateWarehouse)
	r.Delete("/warehouses/{id}", h.handleDeleteWarehouse)
	r.Post("/customers", h.handleCreateCustomer)
	r.Get("/customers/{id}", h.handleGetCustomer)
	r.Put("/products", h.handleUpsertProduct)
	r.Put("/products/{id}/lots", h.handleUpsertLot)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	return true
}

func (h *Handler) handleCreateWarehouse(w http.ResponseWriter, r *http.Request) {
	var req warehouseRequest
	if !h.decode(w, r, &req) {
		return
	}
	warehouse, err := h.service.CreateWarehouse(r.Context(), CreateWarehouseInput{
		Name:    req.Name,
		Kind:    ledger.WarehouseKind(req.Kind),
		ActorID: shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newWarehouseResponse(warehouse))
}

func (h *Handler) handleDeleteWarehouse(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id", ledger.ErrWarehouseNotFound)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteWarehouse(r.Context(), id, shared.ActorFromContext(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if !h.decode(w, r, &req) {
		return
	}
	customer, err := h.service.CreateCustomer(r.Context(), CreateCustomerInput{
		Name:      req.Name,
		TaxNumber: req.TaxNumber,
		TaxOffice: req.TaxOffice,
		Address:   req.Address,
		Email:     req.Email,
		Phone:     req.Phone,
		ActorID:   shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newCustomerResponse(customer))
}

func (h *Handler) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id", ErrCustomerNotFound)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	customer, err := h.service.GetCustomer(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newCustomerResponse(customer))
}

func (h *Handler) handleUpsertProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !h.decode(w, r, &req) {
		return
	}
	product, err := h.service.UpsertProduct(r.Context(), ProductInput{
		ReferenceCode:     req.ReferenceCode,
		Name:              req.Name,
		Brand:             req.Brand,
		Category:          req.Category,
		SalePrice:         req.SalePrice,
		PurchasePrice:     req.PurchasePrice,
		VatRate:           req.VatRate,
		CriticalThreshold: req.CriticalThreshold,
		Active:            req.Active,
		ActorID:           shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newProductResponse(product))
}

func (h *Handler) handleUpsertLot(w http.ResponseWriter, r *http.Request) {
	productID, err := httpx.PathID(r, "id", ledger.ErrProductNotFound)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req lotRequest
	if !h.decode(w, r, &req) {
		return
	}
	input := LotInput{
		ProductID: productID,
		LotNumber: req.LotNumber,
		Barcode:   req.Barcode,
		ActorID:   shared.ActorFromContext(r.Context()),
	}
	if req.ExpiryDate != "" {
		expiry, err := time.Parse(time.DateOnly, req.ExpiryDate)
		if err != nil {
			httpx.RespondError(w, shared.NewError(shared.KindValidation, "expiry_date must be YYYY-MM-DD"))
			return
		}
		input.ExpiryDate = &expiry
	}
	lot, err := h.service.UpsertLot(r.Context(), input)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ledger.NewLotResponse(lot))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if shared.KindOf(err) == shared.KindInternal {
		h.logger.Error("masterdata request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
