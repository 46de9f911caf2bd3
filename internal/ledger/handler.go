package ledger

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/lotledger/internal/platform/httpx"
	"github.com/odyssey-erp/lotledger/internal/shared"
)

// Handler wires HTTP endpoints for lot selection and manual stock edits.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/lots/select", h.handleSelectLot)
	r.Put("/lots/{id}/quantity", h.handleSetLotQuantity)
	r.Put("/warehouses/{id}/stock", h.handleWarehouseStock(h.service.SetWarehouseStock))
	r.Post("/warehouses/{id}/stock/add", h.handleWarehouseStock(h.service.AddWarehouseStock))
	r.Post("/warehouses/{id}/stock/remove", h.handleWarehouseStock(h.service.RemoveWarehouseStock))
}

func (h *Handler) handleSelectLot(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	productID, barcode := q.Get("product_id"), q.Get("barcode")
	if productID == "" && barcode == "" {
		httpx.RespondError(w, shared.NewError(shared.KindValidation, "product_id or barcode is required"))
		return
	}
	lot, err := h.service.AutoSelectLot(r.Context(), productID, barcode)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewLotResponse(lot))
}

func (h *Handler) handleSetLotQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id", ErrLotNotFound)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req lotQuantityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	lot, err := h.service.SetLotQuantity(r.Context(), SetLotQuantityInput{
		LotID:    id,
		Quantity: *req.Quantity,
		ActorID:  shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewLotResponse(lot))
}

type stockEdit func(context.Context, WarehouseStockInput) (StockLocation, error)

func (h *Handler) handleWarehouseStock(edit stockEdit) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		warehouseID, err := httpx.PathID(r, "id", ErrWarehouseNotFound)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		var req warehouseStockRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httpx.RespondError(w, err)
			return
		}
		loc, err := edit(r.Context(), WarehouseStockInput{
			WarehouseID: warehouseID,
			LotID:       req.LotID,
			Quantity:    req.Quantity,
			ActorID:     shared.ActorFromContext(r.Context()),
		})
		if err != nil {
			h.fail(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, NewLocationResponse(loc))
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if shared.KindOf(err) == shared.KindInternal {
		h.logger.Error("ledger request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
