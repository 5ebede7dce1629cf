package httpclients

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"github.com/janhq/sense-api/internal/utils/platformerrors"
	"github.com/janhq/sense-api/pkg/telemetry"
)

type clientStartsAt struct{}

// NewClient builds a resty client that logs every provider call at debug
// level. Query strings are redacted because some providers take keys there.
// Bodies are never logged: they carry user audio and text.
func NewClient(clientName string, log zerolog.Logger, sanitizer *telemetry.Sanitizer) *resty.Client {
	if sanitizer == nil {
		sanitizer = telemetry.NewSanitizer(telemetry.PIILevelHashed, "")
	}
	log = log.With().Str("client", clientName).Logger()

	client := resty.New()
	client.SetHeader("User-Agent", "sense-api/"+clientName)
	client.AddRequestMiddleware(func(c *resty.Client, r *resty.Request) error {
		r.SetContext(context.WithValue(r.Context(), clientStartsAt{}, time.Now()))
		return nil
	})
	client.AddResponseMiddleware(func(c *resty.Client, r *resty.Response) error {
		if r.Request == nil || r.Request.RawRequest == nil {
			return nil
		}
		ctx := r.Request.Context()
		startTime, _ := ctx.Value(clientStartsAt{}).(time.Time)

		log.Debug().
			Str("request_id", platformerrors.RequestIDFromContext(ctx)).
			Int("status", r.StatusCode()).
			Str("method", r.Request.RawRequest.Method).
			Str("host", r.Request.RawRequest.URL.Host).
			Str("path", r.Request.RawRequest.URL.Path).
			Str("query", sanitizer.RedactSecrets(r.Request.RawRequest.URL.RawQuery)).
			Dur("latency", time.Since(startTime)).
			Msg("HTTP client request")
		return nil
	})
	return client
}
