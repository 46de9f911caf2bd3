package importer

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/lotledger/internal/platform/httpx"
	"github.com/odyssey-erp/lotledger/internal/shared"
)

const maxUploadBytes = 10 << 20

var errFileRequired = shared.NewError(shared.KindValidation, "importer: multipart field \"file\" is required")

type uploadForm struct {
	WarehouseID string `validate:"required,uuid"`
}

// Handler exposes sheet uploads.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the import handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers import routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleUpload)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrMalformedBody, err))
		return
	}
	form := uploadForm{WarehouseID: r.FormValue("warehouse_id")}
	if err := h.validate.Struct(form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.RespondError(w, errFileRequired)
		return
	}
	defer file.Close()

	rows, err := Parse(header.Filename, file)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	report, err := h.service.Import(r.Context(), Input{
		WarehouseID: form.WarehouseID,
		Rows:        rows,
		ActorID:     shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if shared.KindOf(err) == shared.KindInternal {
		h.logger.Error("import request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
