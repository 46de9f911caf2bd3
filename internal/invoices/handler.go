package invoices

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/lotledger/internal/platform/httpx"
	"github.com/odyssey-erp/lotledger/internal/shared"
)

// Handler wires HTTP endpoints for invoices.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the invoices handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Post("/{id}/cancel", h.handleCancel)
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
	invoice, err := h.service.Create(r.Context(), CreateInput{
		CustomerID:       req.CustomerID,
		DocumentType:     req.DocumentType,
		Items:            toItemInputs(req.Items),
		StockAdjustments: toAdjustments(req.StockAdjustments),
		TransferIDs:      req.TransferIDs,
		Notes:            req.Notes,
		ActorID:          shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewResponse(invoice))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id", ErrInvoiceNotFound)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	invoice, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewResponse(invoice))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id", ErrInvoiceNotFound)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	invoice, err := h.service.Update(r.Context(), UpdateInput{
		InvoiceID: id,
		Items:     toItemInputs(req.Items),
		Notes:     req.Notes,
		ActorID:   shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewResponse(invoice))
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id", ErrInvoiceNotFound)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req cancelRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	invoice, err := h.service.Cancel(r.Context(), CancelInput{
		InvoiceID: id,
		Reason:    req.Reason,
		ActorID:   shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewResponse(invoice))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if shared.KindOf(err) == shared.KindInternal {
		h.logger.Error("invoice request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
