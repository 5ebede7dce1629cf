package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

// PrincipalClaims is the subset of token claims the service reads.
type PrincipalClaims struct {
	Subject           string
	Issuer            string
	Audience          []string
	PreferredUsername string
	Email             string
	Roles             []string
	ExpiresAt         time.Time
}

// HasRole reports whether the realm roles contain role.
func (p *PrincipalClaims) HasRole(role string) bool {
	return p != nil && slices.Contains(p.Roles, role)
}

// KeycloakValidator validates RS256 tokens against a refreshed JWKS.
type KeycloakValidator struct {
	issuer       string
	audience     string
	jwksURL      string
	refreshEvery time.Duration
	clockSkew    time.Duration
	log          zerolog.Logger
	jwks         atomic.Pointer[keyfunc.JWKS]
}

const (
	jwksInitialRetryInterval   = time.Second
	jwksInitialRetryMaxBackoff = 10 * time.Second
	jwksInitialRetryTimeout    = 2 * time.Minute
)

func NewKeycloakValidator(ctx context.Context, jwksURL, issuer, audience string, refreshEvery, clockSkew time.Duration, log zerolog.Logger) (*KeycloakValidator, error) {
	if jwksURL == "" {
		return nil, errors.New("jwks url is required")
	}
	v := &KeycloakValidator{
		issuer:       issuer,
		audience:     audience,
		jwksURL:      jwksURL,
		refreshEvery: refreshEvery,
		clockSkew:    clockSkew,
		log:          log,
	}
	if err := v.initJWKS(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *KeycloakValidator) initJWKS(ctx context.Context) error {
	options := keyfunc.Options{
		Ctx: ctx,
		RefreshErrorHandler: func(err error) {
			v.log.Error().Err(err).Msg("jwks refresh failed")
		},
		RefreshInterval:   v.refreshEvery,
		RefreshUnknownKID: true,
	}

	backoff := jwksInitialRetryInterval
	deadline := time.Now().Add(jwksInitialRetryTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	for attempt := 1; ; attempt++ {
		jwks, err := keyfunc.Get(v.jwksURL, options)
		if err == nil {
			v.jwks.Store(jwks)
			return nil
		}
		v.log.Warn().Err(err).Str("jwks_url", v.jwksURL).Int("attempt", attempt).Msg("initial jwks fetch failed, retrying")

		select {
		case <-ctx.Done():
			return fmt.Errorf("fetch jwks: %w", ctx.Err())
		case <-time.After(backoff):
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("fetch jwks: %w", err)
		}
		backoff = min(backoff*2, jwksInitialRetryMaxBackoff)
	}
}

// Validate parses rawToken and checks issuer, audience and lifetime.
func (v *KeycloakValidator) Validate(_ context.Context, rawToken string) (*PrincipalClaims, error) {
	jwks := v.jwks.Load()
	if jwks == nil {
		return nil, errors.New("jwks not initialised")
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{"RS256"}), jwt.WithLeeway(v.clockSkew))
	token, err := parser.ParseWithClaims(rawToken, jwt.MapClaims{}, jwks.Keyfunc)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return v.principal(claims)
}

func (v *KeycloakValidator) principal(claims jwt.MapClaims) (*PrincipalClaims, error) {
	iss, _ := claims["iss"].(string)
	if iss != v.issuer {
		return nil, fmt.Errorf("issuer mismatch %s", iss)
	}

	audiences, err := claims.GetAudience()
	if err != nil {
		return nil, fmt.Errorf("aud claim: %w", err)
	}
	if v.audience != "" && !slices.Contains(audiences, v.audience) {
		return nil, errors.New("audience mismatch")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.New("sub claim missing")
	}

	var roles []string
	if realmAccess, ok := claims["realm_access"].(map[string]any); ok {
		if rawRoles, ok := realmAccess["roles"].([]any); ok {
			for _, role := range rawRoles {
				if s, ok := role.(string); ok {
					roles = append(roles, s)
				}
			}
		}
	}

	preferredUsername, _ := claims["preferred_username"].(string)
	email, _ := claims["email"].(string)
	return &PrincipalClaims{
		Subject:           sub,
		Issuer:            iss,
		Audience:          audiences,
		PreferredUsername: preferredUsername,
		Email:             email,
		Roles:             roles,
		ExpiresAt:         numericTime(claims["exp"]),
	}, nil
}

func numericTime(value any) time.Time {
	switch t := value.(type) {
	case float64:
		return time.Unix(int64(t), 0).UTC()
	case int64:
		return time.Unix(t, 0).UTC()
	case json.Number:
		if unix, err := t.Int64(); err == nil {
			return time.Unix(unix, 0).UTC()
		}
	}
	return time.Time{}
}
