package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/sense-api/internal/infrastructure/auth"
	"github.com/janhq/sense-api/internal/interfaces/httpserver/handlers"
	"github.com/janhq/sense-api/internal/interfaces/httpserver/requests"
	"github.com/janhq/sense-api/internal/interfaces/httpserver/responses"
	"github.com/janhq/sense-api/internal/utils/platformerrors"
)

// RegisterAIRoutes registers the metered capability routes.
func RegisterAIRoutes(router gin.IRoutes, handler *handlers.AIHandler, log zerolog.Logger) {
	router.POST("/chat", chatTurn(handler, log))
	router.POST("/speech-to-text", speechToText(handler, log))
	router.POST("/text-to-speech", textToSpeech(handler, log))
}

// chatTurn godoc
// @Summary      Chat with the assistant
// @Tags         AI
// @Accept       json
// @Produce      json
// @Param        request body requests.ChatRequest true "Chat turn"
// @Success      200 {object} responses.Envelope[chat.Response]
// @Failure      400 {object} responses.Failure
// @Failure      429 {object} responses.Failure
// @Failure      503 {object} responses.Failure
// @Security     BearerAuth
// @Router       /v1/ai/chat [post]
func chatTurn(handler *handlers.AIHandler, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req requests.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.HandleInvalidInput(c, "invalid request body")
			return
		}

		reply, err := handler.Chat(c.Request.Context(), auth.UserID(c), req.ToDomain())
		if err != nil {
			responses.HandleError(c, err, log)
			return
		}
		c.JSON(http.StatusOK, responses.NewEnvelope(reply, reply.Payload, requestID(c)))
	}
}

// speechToText godoc
// @Summary      Transcribe audio
// @Tags         AI
// @Accept       json
// @Produce      json
// @Param        request body requests.SpeechToTextRequest true "Base64 audio"
// @Success      200 {object} responses.Envelope[speech.Transcript]
// @Failure      400 {object} responses.Failure
// @Failure      429 {object} responses.Failure
// @Failure      503 {object} responses.Failure
// @Security     BearerAuth
// @Router       /v1/ai/speech-to-text [post]
func speechToText(handler *handlers.AIHandler, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body requests.SpeechToTextRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			responses.HandleInvalidInput(c, "invalid request body")
			return
		}
		req, err := body.ToDomain()
		if err != nil {
			responses.HandleInvalidInput(c, err.Error())
			return
		}

		reply, err := handler.SpeechToText(c.Request.Context(), auth.UserID(c), req)
		if err != nil {
			responses.HandleError(c, err, log)
			return
		}
		c.JSON(http.StatusOK, responses.NewEnvelope(reply, reply.Payload, requestID(c)))
	}
}

// textToSpeech godoc
// @Summary      Synthesize speech
// @Tags         AI
// @Accept       json
// @Produce      json
// @Param        request body requests.TextToSpeechRequest true "Text"
// @Success      200 {object} responses.Envelope[responses.AudioPayload]
// @Failure      400 {object} responses.Failure
// @Failure      429 {object} responses.Failure
// @Failure      503 {object} responses.Failure
// @Security     BearerAuth
// @Router       /v1/ai/text-to-speech [post]
func textToSpeech(handler *handlers.AIHandler, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req requests.TextToSpeechRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			responses.HandleInvalidInput(c, "invalid request body")
			return
		}

		reply, err := handler.TextToSpeech(c.Request.Context(), auth.UserID(c), req.ToDomain())
		if err != nil {
			responses.HandleError(c, err, log)
			return
		}
		c.JSON(http.StatusOK, responses.NewEnvelope(reply, responses.NewAudioPayload(reply.Payload), requestID(c)))
	}
}

func requestID(c *gin.Context) string {
	return platformerrors.RequestIDFromContext(c.Request.Context())
}
