package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/sense-api/internal/domain/usage"
	"github.com/janhq/sense-api/internal/utils/platformerrors"
)

var failureKinds = map[platformerrors.ErrorType]string{
	platformerrors.ErrorTypeQuotaExceeded:      ErrorKindQuotaExceeded,
	platformerrors.ErrorTypeProvidersExhausted: ErrorKindAllProvidersExhausted,
	platformerrors.ErrorTypeValidation:         ErrorKindInvalidInput,
}

// HandleError writes quota, exhaustion and validation errors as failure
// envelopes and everything else as a platform error.
func HandleError(c *gin.Context, err error, log zerolog.Logger) {
	if errors.Is(err, usage.ErrAccountNotFound) {
		platformerrors.WriteHTTPError(c, platformerrors.NewError(c.Request.Context(), platformerrors.LayerRoute,
			platformerrors.ErrorTypeNotFound, "account not found", err, "0b6f41d9-3c2e-4a57-9d08-e1f7a3b5c264"), log)
		return
	}

	platformErr := platformerrors.GetPlatformError(err)
	if platformErr == nil {
		platformerrors.WriteError(c, err, log)
		return
	}
	kind, ok := failureKinds[platformErr.Type]
	if !ok {
		platformerrors.WriteHTTPError(c, platformErr, log)
		return
	}

	platformerrors.LogError(log, platformErr)
	failure := Failure{
		ErrorKind: kind,
		Message:   platformErr.Message,
		RequestID: platformerrors.RequestIDFromContext(c.Request.Context()),
	}
	if len(platformErr.Context) > 0 {
		failure.Details = platformErr.Context
	}
	c.JSON(platformerrors.ErrorTypeToHTTPStatus(platformErr.Type), failure)
}

// HandleInvalidInput writes an InvalidInput failure envelope.
func HandleInvalidInput(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Failure{
		ErrorKind: ErrorKindInvalidInput,
		Message:   message,
		RequestID: platformerrors.RequestIDFromContext(c.Request.Context()),
	})
}

// HandleNewError writes a typed platform error for route-level failures.
func HandleNewError(c *gin.Context, errorType platformerrors.ErrorType, message string) {
	c.JSON(platformerrors.ErrorTypeToHTTPStatus(errorType), platformerrors.HTTPErrorResponse{
		Error: &platformerrors.HTTPErrorDetail{
			Message:   message,
			Type:      platformerrors.ErrorTypeToString(errorType),
			RequestID: platformerrors.RequestIDFromContext(c.Request.Context()),
		},
	})
}
