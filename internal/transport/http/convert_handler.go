// Package http contains the chi HTTP handlers of the converter API.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "upixl/internal/errors"
	"upixl/internal/services"
	"upixl/internal/workbook"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ConvertServiceInterface is the service surface the handler depends on.
type ConvertServiceInterface interface {
	Convert(ctx context.Context, content, filename string, mode workbook.Mode) (*services.ConvertResult, error)
	Inspect(ctx context.Context, content string) (*services.InspectResult, error)
}

// ConvertHandler handles conversion HTTP requests.
type ConvertHandler struct {
	service        ConvertServiceInterface
	logger         *slog.Logger
	errorHandler   *apierrors.ErrorHandler
	validate       *validator.Validate
	maxUploadBytes int64
	defaultMode    workbook.Mode
}

// NewConvertHandler creates a conversion handler.
func NewConvertHandler(service ConvertServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler, maxUploadBytes int64, defaultMode workbook.Mode) *ConvertHandler {
	return &ConvertHandler{
		service:        service,
		logger:         logger.With(slog.String("component", "convert_handler")),
		errorHandler:   errorHandler,
		validate:       validator.New(),
		maxUploadBytes: maxUploadBytes,
		defaultMode:    defaultMode,
	}
}

// convertRequest carries the validated form fields of a conversion request.
type convertRequest struct {
	Mode string `validate:"omitempty,oneof=smart_by_type smart full minimal"`
}

// Routes returns the conversion routes.
func (h *ConvertHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/convert", h.Convert)
	r.Post("/inspect", h.Inspect)

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/modes", h.GetModes)
	})

	return r
}

// Convert handles POST /api/convert: a multipart upload (field "file") plus
// an optional "mode" form value. The response body is the xlsx workbook.
func (h *ConvertHandler) Convert(w http.ResponseWriter, r *http.Request) {
	content, filename, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	req := convertRequest{Mode: r.FormValue("mode")}
	if err := h.validate.Struct(&req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("mode",
			fmt.Sprintf("Invalid output mode %q", req.Mode)))
		return
	}

	mode := h.defaultMode
	if req.Mode != "" {
		mode = workbook.Mode(req.Mode)
	}

	result, err := h.service.Convert(r.Context(), content, filename, mode)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "serving workbook",
		slog.String("filename", result.Filename),
		slog.Int("record_count", result.RecordCount),
		slog.Int("bytes", len(result.Data)))

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, result.Filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(result.Data)))
	w.Header().Set("X-Record-Count", fmt.Sprintf("%d", result.RecordCount))
	w.Header().Set("X-Source-Format", result.Format)
	w.WriteHeader(http.StatusOK)
	w.Write(result.Data)
}

// Inspect handles POST /api/inspect: parse the upload and return its shape
// without generating a workbook.
func (h *ConvertHandler) Inspect(w http.ResponseWriter, r *http.Request) {
	content, _, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	result, err := h.service.Inspect(r.Context(), content)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, result)
}

// modeInfo describes one output mode for API discovery.
type modeInfo struct {
	Mode        string `json:"mode"`
	Description string `json:"description"`
}

// GetModes handles GET /api/modes.
func (h *ConvertHandler) GetModes(w http.ResponseWriter, r *http.Request) {
	modes := []modeInfo{
		{Mode: string(workbook.ModeSmartByType), Description: "Separate sheet per instrument type with type-specific columns, plus Summary and CFI Details"},
		{Mode: string(workbook.ModeSmart), Description: "Main Data with all possible columns, CFI Details, and a fully flattened sheet"},
		{Mode: string(workbook.ModeFull), Description: "Single sheet with all nested fields flattened"},
		{Mode: string(workbook.ModeMinimal), Description: "Single sheet keeping nested values as JSON strings"},
	}

	render.JSON(w, r, map[string]any{
		"modes":   modes,
		"default": string(h.defaultMode),
	})
}

// readUpload extracts the uploaded text from a multipart form (field
// "file") or, for non-multipart requests, the raw request body. It writes
// the error response itself when the upload is unusable.
func (h *ConvertHandler) readUpload(w http.ResponseWriter, r *http.Request) (content, filename string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	mediaType := r.Header.Get("Content-Type")
	if len(mediaType) >= 19 && mediaType[:19] == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			h.handleUploadError(w, r, err)
			return "", "", false
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "A file upload is required"))
			return "", "", false
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			h.handleUploadError(w, r, err)
			return "", "", false
		}
		return string(data), header.Filename, true
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		h.handleUploadError(w, r, err)
		return "", "", false
	}
	if len(data) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "A file upload is required"))
		return "", "", false
	}
	return string(data), "records", true
}

func (h *ConvertHandler) handleUploadError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
		return
	}
	h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
}
