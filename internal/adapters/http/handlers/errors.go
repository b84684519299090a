package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quote-sync-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/quote-sync-service/internal/domain"
	"github.com/jsamuelsen/quote-sync-service/internal/platform/logging"
)

// MapDomainError picks the status and envelope for err by its domain kind.
// Validation and parse errors carry their field in the details. Storage and
// unknown errors get a generic message so internals never leak.
func MapDomainError(err error) (int, *dto.ErrorResponse) {
	if err == nil {
		return http.StatusOK, nil
	}

	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound, dto.NewErrorResponse(dto.ErrorCodeNotFound, err.Error())
	case domain.KindConflict:
		return http.StatusConflict, dto.NewErrorResponse(dto.ErrorCodeConflict, err.Error())
	case domain.KindValidation:
		var (
			details map[string]string
			ve      *domain.ValidationError
		)
		if errors.As(err, &ve) && ve.Field != "" {
			details = map[string]string{ve.Field: ve.Message}
		}

		return http.StatusBadRequest, dto.NewErrorResponseWithDetails(dto.ErrorCodeValidation, err.Error(), details)
	case domain.KindParse:
		var (
			details map[string]string
			pe      *domain.ParseError
		)
		if errors.As(err, &pe) {
			details = map[string]string{pe.Input: pe.Reason}
		}

		return http.StatusBadRequest, dto.NewErrorResponseWithDetails(dto.ErrorCodeParse, err.Error(), details)
	case domain.KindFetch:
		return http.StatusBadGateway, dto.NewErrorResponse(dto.ErrorCodeFetch, err.Error())
	case domain.KindStorage:
		return http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrorCodeStorage, "storage is unavailable")
	default:
		return http.StatusInternalServerError, dto.NewErrorResponse(dto.ErrorCodeInternal, "an internal error occurred")
	}
}

func traceID(c *gin.Context) string {
	if sc := trace.SpanFromContext(c.Request.Context()).SpanContext(); sc.HasTraceID() {
		return sc.TraceID().String()
	}

	return ""
}

// RespondWithError writes the error envelope for err. Server-side failures
// are logged with the full error.
func RespondWithError(c *gin.Context, err error) {
	status, errResp := MapDomainError(err)
	errResp.WithTraceID(traceID(c))

	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request.Context()).ErrorContext(c.Request.Context(), "request failed",
			slog.Any("error", err),
			slog.String("trace_id", errResp.TraceID),
		)
	}

	c.JSON(status, errResp)
}

// RespondWithErrorCode writes an error response with a specific error code.
// Use this for adapter-level errors that don't originate from the domain.
func RespondWithErrorCode(c *gin.Context, code, message string) {
	c.JSON(dto.HTTPStatusFromCode(code), dto.NewErrorResponse(code, message).WithTraceID(traceID(c)))
}

// RespondWithBindError answers a failed BindAndValidate: field errors become
// a VALIDATION_ERROR, anything else a BAD_REQUEST.
func RespondWithBindError(c *gin.Context, err error) {
	if dto.IsValidationError(err) {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithDetails(
			dto.ErrorCodeValidation,
			"request validation failed",
			dto.ValidationErrors(err),
		).WithTraceID(traceID(c)))

		return
	}

	RespondWithErrorCode(c, dto.ErrorCodeBadRequest, err.Error())
}
