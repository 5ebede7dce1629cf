package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/sense-api/internal/domain/usage"
	"github.com/janhq/sense-api/internal/infrastructure/auth"
	"github.com/janhq/sense-api/internal/interfaces/httpserver/handlers"
	"github.com/janhq/sense-api/internal/interfaces/httpserver/requests"
	"github.com/janhq/sense-api/internal/interfaces/httpserver/responses"
	"github.com/janhq/sense-api/internal/utils/platformerrors"
)

// RegisterUsageRoutes registers the caller's usage report.
func RegisterUsageRoutes(router gin.IRoutes, handler *handlers.UsageHandler, log zerolog.Logger) {
	router.GET("/usage", func(c *gin.Context) {
		report, err := handler.Report(c.Request.Context(), auth.UserID(c))
		if err != nil {
			responses.HandleError(c, platformerrors.AsError(c.Request.Context(), platformerrors.LayerRoute, err, "failed to load usage"), log)
			return
		}
		c.JSON(http.StatusOK, responses.NewData(report, requestID(c)))
	})
}

// RegisterAdminRoutes registers account administration routes.
func RegisterAdminRoutes(router gin.IRoutes, handler *handlers.UsageHandler, log zerolog.Logger) {
	router.GET("/accounts/:id", getAccount(handler, log))
	router.PUT("/accounts/:id/subscription", setSubscription(handler, log))
}

func getAccount(handler *handlers.UsageHandler, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, err := handler.GetAccount(c.Request.Context(), c.Param("id"))
		if err != nil {
			responses.HandleError(c, err, log)
			return
		}
		c.JSON(http.StatusOK, responses.NewData(account, requestID(c)))
	}
}

// setSubscription godoc
// @Summary      Set an account's subscription tier
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        id path string true "Principal ID"
// @Param        request body requests.SubscriptionRequest true "Tier and expiry"
// @Success      200 {object} responses.Data[usage.Account]
// @Failure      400 {object} responses.Failure
// @Failure      403 {object} platformerrors.HTTPErrorResponse
// @Security     BearerAuth
// @Router       /v1/admin/accounts/{id}/subscription [put]
func setSubscription(handler *handlers.UsageHandler, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req requests.SubscriptionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.HandleInvalidInput(c, "tier is required")
			return
		}
		tier, err := req.ParsedTier()
		if err != nil {
			responses.HandleInvalidInput(c, err.Error())
			return
		}

		account, err := handler.SetSubscription(c.Request.Context(), c.Param("id"), tier, req.ExpiresAt)
		if err != nil {
			if errors.Is(err, usage.ErrInvalidSubscription) {
				responses.HandleInvalidInput(c, err.Error())
				return
			}
			responses.HandleError(c, platformerrors.AsError(c.Request.Context(), platformerrors.LayerRoute, err, "failed to update subscription"), log)
			return
		}
		c.JSON(http.StatusOK, responses.NewData(account, requestID(c)))
	}
}
