package platformerrors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HTTPErrorResponse represents the standard error response format.
type HTTPErrorResponse struct {
	Error *HTTPErrorDetail `json:"error"`
}

// HTTPErrorDetail contains error details for HTTP responses.
type HTTPErrorDetail struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// WriteHTTPError writes a PlatformError as an HTTP response.
func WriteHTTPError(c *gin.Context, err *PlatformError, log zerolog.Logger) {
	if err == nil {
		writeDetail(c, http.StatusInternalServerError, "unknown error", ErrorTypeInternal)
		return
	}

	LogError(log, err)

	c.JSON(ErrorTypeToHTTPStatus(err.Type), HTTPErrorResponse{
		Error: &HTTPErrorDetail{
			Message:   err.Message,
			Type:      ErrorTypeToString(err.Type),
			Code:      err.UUID,
			RequestID: err.RequestID,
		},
	})
}

// WriteError writes a generic error as an HTTP response.
// Errors that are not PlatformErrors are treated as internal.
func WriteError(c *gin.Context, err error, log zerolog.Logger) {
	if err == nil {
		writeDetail(c, http.StatusInternalServerError, "unknown error", ErrorTypeInternal)
		return
	}

	if platformErr := GetPlatformError(err); platformErr != nil {
		WriteHTTPError(c, platformErr, log)
		return
	}

	log.Error().Err(err).Msg("unhandled error")
	writeDetail(c, http.StatusInternalServerError, err.Error(), ErrorTypeInternal)
}

// WriteValidationError writes a 400 Bad Request response.
func WriteValidationError(c *gin.Context, message string) {
	writeDetail(c, http.StatusBadRequest, message, ErrorTypeValidation)
}

// WriteUnauthorized writes a 401 Unauthorized response and aborts the chain.
func WriteUnauthorized(c *gin.Context, message string) {
	writeDetail(c, http.StatusUnauthorized, message, ErrorTypeUnauthorized)
	c.Abort()
}

// WriteForbidden writes a 403 Forbidden response and aborts the chain.
func WriteForbidden(c *gin.Context, message string) {
	writeDetail(c, http.StatusForbidden, message, ErrorTypeForbidden)
	c.Abort()
}

// WriteRateLimited writes a 429 Too Many Requests response and aborts the chain.
func WriteRateLimited(c *gin.Context, message string) {
	writeDetail(c, http.StatusTooManyRequests, message, ErrorTypeRateLimited)
	c.Abort()
}

func writeDetail(c *gin.Context, status int, message string, errorType ErrorType) {
	c.JSON(status, HTTPErrorResponse{
		Error: &HTTPErrorDetail{
			Message:   message,
			Type:      ErrorTypeToString(errorType),
			RequestID: RequestIDFromContext(c.Request.Context()),
		},
	})
}

// ErrorTypeToString converts an ErrorType to a snake_case string for API responses.
func ErrorTypeToString(t ErrorType) string {
	switch t {
	case ErrorTypeNotFound:
		return "not_found_error"
	case ErrorTypeValidation:
		return "validation_error"
	case ErrorTypeConflict:
		return "conflict_error"
	case ErrorTypeUnauthorized:
		return "unauthorized_error"
	case ErrorTypeForbidden:
		return "forbidden_error"
	case ErrorTypeNotImplemented:
		return "not_implemented_error"
	case ErrorTypeRateLimited:
		return "rate_limited_error"
	case ErrorTypeTimeout:
		return "timeout_error"
	case ErrorTypeExternal:
		return "external_error"
	case ErrorTypeQuotaExceeded:
		return "quota_exceeded_error"
	case ErrorTypeProvidersExhausted:
		return "providers_exhausted_error"
	case ErrorTypeDatabaseError, ErrorTypeInternal:
		fallthrough
	default:
		return "internal_error"
	}
}
