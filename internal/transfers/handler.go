package transfers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/lotledger/internal/platform/httpx"
	"github.com/odyssey-erp/lotledger/internal/shared"
)

// Handler wires HTTP endpoints for transfers.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the transfers handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers transfer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleListPending)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/reverse", h.handleReverse)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	transfer, err := h.service.Create(r.Context(), CreateInput{
		FromWarehouseID: req.FromWarehouseID,
		ToWarehouseID:   req.ToWarehouseID,
		ProductID:       req.ProductID,
		LotID:           req.LotID,
		Quantity:        req.Quantity,
		Barcode:         req.Barcode,
		Notes:           req.Notes,
		ActorID:         shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewResponse(transfer))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id", ErrTransferNotFound)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	transfer, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewResponse(transfer))
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	warehouseID := r.URL.Query().Get("to_warehouse_id")
	if err := h.validate.Var(warehouseID, "required,uuid"); err != nil {
		httpx.RespondError(w, shared.NewError(shared.KindValidation, "to_warehouse_id must be a warehouse id"))
		return
	}
	list, err := h.service.ListPending(r.Context(), warehouseID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]Response, 0, len(list))
	for _, t := range list {
		out = append(out, NewResponse(t))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleReverse(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id", ErrTransferNotFound)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	transfer, err := h.service.Reverse(r.Context(), ReverseInput{
		TransferID: id,
		ActorID:    shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewResponse(transfer))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if shared.KindOf(err) == shared.KindInternal {
		h.logger.Error("transfer request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
