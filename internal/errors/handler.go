package errors

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"upixl/internal/records"
	"upixl/internal/workbook"
)

// ErrorHandler translates errors into API responses at the transport
// boundary. Domain errors from the conversion core are mapped to stable
// error codes; everything else becomes a 500 without leaking internals.
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates an error handler.
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger.With(slog.String("component", "error_handler"))}
}

// HandleError writes the API response for err.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := h.mapError(r, err)

	if renderErr := render.Render(w, r, NewErrorResponse(apiErr)); renderErr != nil {
		h.logger.ErrorContext(r.Context(), "failed to render error response",
			slog.String("error", renderErr.Error()))
		http.Error(w, apiErr.Message, apiErr.StatusCode)
	}
}

func (h *ErrorHandler) mapError(r *http.Request, err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var parseErr *records.ParseError
	if errors.As(err, &parseErr) {
		return ParseFailedError(parseErr.Err)
	}

	if errors.Is(err, workbook.ErrNoRecords) {
		return NoRecordsError()
	}

	h.logger.ErrorContext(r.Context(), "unhandled error",
		slog.String("error", err.Error()),
		slog.String("path", r.URL.Path))
	return ErrInternalServer
}
