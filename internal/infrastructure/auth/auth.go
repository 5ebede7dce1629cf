package auth

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/janhq/sense-api/internal/config"
	"github.com/janhq/sense-api/internal/utils/platformerrors"
)

const (
	userIDKey      = "user_id"
	claimsKey      = "principal_claims"
	AnonymousUser  = "anonymous"
	jwksRefresh    = 5 * time.Minute
	tokenClockSkew = time.Minute
)

// TokenValidator turns a bearer token into claims.
type TokenValidator interface {
	Validate(ctx context.Context, rawToken string) (*PrincipalClaims, error)
}

// Validator resolves the calling principal from gateway headers or a JWT.
type Validator struct {
	enabled   bool
	adminRole string
	tokens    TokenValidator
	log       zerolog.Logger
}

// NewValidator connects to Keycloak when AUTH_ENABLED is set.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	log = log.With().Str("component", "auth").Logger()
	if !cfg.AuthEnabled {
		log.Warn().Msg("authentication disabled; admin routes are open")
		return NewValidatorWith(false, cfg.AdminRole, nil, log), nil
	}
	keycloak, err := NewKeycloakValidator(ctx, cfg.AuthJWKSURL, cfg.AuthIssuer, cfg.AuthAudience, jwksRefresh, tokenClockSkew, log)
	if err != nil {
		return nil, err
	}
	return NewValidatorWith(true, cfg.AdminRole, keycloak, log), nil
}

// NewValidatorWith builds a validator around any TokenValidator.
func NewValidatorWith(enabled bool, adminRole string, tokens TokenValidator, log zerolog.Logger) *Validator {
	return &Validator{enabled: enabled, adminRole: adminRole, tokens: tokens, log: log}
}

// Middleware sets the principal id on the gin context. Kong-injected headers
// win over bearer tokens; sk_ keys without gateway headers are refused.
func (v *Validator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := kongUserID(c); userID != "" {
			c.Set(userIDKey, userID)
			c.Next()
			return
		}
		if !v.enabled {
			c.Set(userIDKey, AnonymousUser)
			c.Next()
			return
		}

		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			platformerrors.WriteUnauthorized(c, "missing bearer token")
			return
		}
		if strings.HasPrefix(tokenString, "sk_") {
			v.log.Debug().Msg("sk_ token received without gateway headers")
			platformerrors.WriteUnauthorized(c, "invalid token")
			return
		}

		claims, err := v.tokens.Validate(c.Request.Context(), tokenString)
		if err != nil {
			v.log.Debug().Err(err).Msg("jwt validation failed")
			platformerrors.WriteUnauthorized(c, "invalid token")
			return
		}
		c.Set(userIDKey, claims.Subject)
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireAdmin allows only principals holding the admin realm role.
// With auth disabled every caller passes.
func (v *Validator) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !v.enabled {
			c.Next()
			return
		}
		if !Claims(c).HasRole(v.adminRole) {
			platformerrors.WriteForbidden(c, "admin role required")
			return
		}
		c.Next()
	}
}

// UserID returns the principal id set by Middleware.
func UserID(c *gin.Context) string {
	if id := c.GetString(userIDKey); id != "" {
		return id
	}
	return AnonymousUser
}

// Claims returns the validated token claims, or nil for gateway-authenticated calls.
func Claims(c *gin.Context) *PrincipalClaims {
	if raw, ok := c.Get(claimsKey); ok {
		if claims, ok := raw.(*PrincipalClaims); ok {
			return claims
		}
	}
	return nil
}

func kongUserID(c *gin.Context) string {
	if userID := strings.TrimSpace(c.GetHeader("X-User-ID")); userID != "" {
		return userID
	}
	if subject := strings.TrimSpace(c.GetHeader("X-User-Subject")); subject != "" {
		return subject
	}
	// Consumer headers count only when a credential was actually checked.
	if credID := strings.TrimSpace(c.GetHeader("X-Credential-Identifier")); credID != "" {
		if customID := strings.TrimSpace(c.GetHeader("X-Consumer-Custom-ID")); customID != "" {
			return customID
		}
		if consumerID := strings.TrimSpace(c.GetHeader("X-Consumer-ID")); consumerID != "" {
			return consumerID
		}
	}
	return ""
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
