package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/janhq/sense-api/internal/interfaces/httpserver/handlers"
	"github.com/janhq/sense-api/internal/interfaces/httpserver/responses"
)

// RegisterServicesRoutes registers status, self-test, recommendation and voice routes.
func RegisterServicesRoutes(router gin.IRoutes, handler *handlers.ServicesHandler) {
	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, responses.NewData(handler.Status(), requestID(c)))
	})

	// Self-tests go through the orchestrators directly and are never billed.
	router.POST("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, responses.NewData(handler.SelfTest(c.Request.Context()), requestID(c)))
	})

	router.GET("/recommendations", func(c *gin.Context) {
		c.JSON(http.StatusOK, responses.NewData(handler.Recommendations(), requestID(c)))
	})

	router.GET("/voices", func(c *gin.Context) {
		language := c.DefaultQuery("language", "en-US")
		c.JSON(http.StatusOK, responses.NewData(handler.Voices(language), requestID(c)))
	})
}
