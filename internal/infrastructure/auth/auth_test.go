package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/janhq/sense-api/internal/infrastructure/auth"
)

type fakeTokens struct {
	claims *auth.PrincipalClaims
	err    error
}

func (f fakeTokens) Validate(context.Context, string) (*auth.PrincipalClaims, error) {
	return f.claims, f.err
}

func newEngine(v *auth.Validator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	api := engine.Group("/v1", v.Middleware())
	api.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, auth.UserID(c))
	})
	api.GET("/admin", v.RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return engine
}

func do(engine *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware(t *testing.T) {
	user := &auth.PrincipalClaims{Subject: "user-42"}
	admin := &auth.PrincipalClaims{Subject: "admin-1", Roles: []string{"admin"}}

	tests := []struct {
		name       string
		validator  *auth.Validator
		path       string
		headers    map[string]string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "disabled falls back to anonymous",
			validator:  auth.NewValidatorWith(false, "admin", nil, zerolog.Nop()),
			path:       "/v1/whoami",
			wantStatus: http.StatusOK,
			wantBody:   "anonymous",
		},
		{
			name:       "kong header wins",
			validator:  auth.NewValidatorWith(true, "admin", fakeTokens{err: errors.New("unused")}, zerolog.Nop()),
			path:       "/v1/whoami",
			headers:    map[string]string{"X-User-ID": "kong-user"},
			wantStatus: http.StatusOK,
			wantBody:   "kong-user",
		},
		{
			name:       "consumer id needs credential identifier",
			validator:  auth.NewValidatorWith(true, "admin", fakeTokens{err: errors.New("no")}, zerolog.Nop()),
			path:       "/v1/whoami",
			headers:    map[string]string{"X-Consumer-ID": "anon-consumer"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing bearer",
			validator:  auth.NewValidatorWith(true, "admin", fakeTokens{claims: user}, zerolog.Nop()),
			path:       "/v1/whoami",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "api key without gateway",
			validator:  auth.NewValidatorWith(true, "admin", fakeTokens{claims: user}, zerolog.Nop()),
			path:       "/v1/whoami",
			headers:    map[string]string{"Authorization": "Bearer sk_live_123"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "valid jwt",
			validator:  auth.NewValidatorWith(true, "admin", fakeTokens{claims: user}, zerolog.Nop()),
			path:       "/v1/whoami",
			headers:    map[string]string{"Authorization": "Bearer token"},
			wantStatus: http.StatusOK,
			wantBody:   "user-42",
		},
		{
			name:       "admin route refuses plain users",
			validator:  auth.NewValidatorWith(true, "admin", fakeTokens{claims: user}, zerolog.Nop()),
			path:       "/v1/admin",
			headers:    map[string]string{"Authorization": "Bearer token"},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "admin route accepts admin role",
			validator:  auth.NewValidatorWith(true, "admin", fakeTokens{claims: admin}, zerolog.Nop()),
			path:       "/v1/admin",
			headers:    map[string]string{"Authorization": "Bearer token"},
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newEngine(tt.validator), tt.path, tt.headers)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Fatalf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestKeycloakValidator(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	jwks := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": "test-key",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	validator, err := auth.NewKeycloakValidator(ctx, server.URL, "https://idp.example/realms/sense", "sense-api", time.Hour, time.Minute, zerolog.Nop())
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}

	sign := func(claims jwt.MapClaims) string {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		token.Header["kid"] = "test-key"
		signed, err := token.SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return signed
	}
	base := func() jwt.MapClaims {
		return jwt.MapClaims{
			"iss":          "https://idp.example/realms/sense",
			"aud":          []string{"account", "sense-api"},
			"sub":          "user-7",
			"exp":          time.Now().Add(time.Hour).Unix(),
			"realm_access": map[string]any{"roles": []string{"admin", "user"}},
		}
	}

	claims, err := validator.Validate(ctx, sign(base()))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "user-7" || !claims.HasRole("admin") {
		t.Fatalf("unexpected claims %+v", claims)
	}

	wrongIssuer := base()
	wrongIssuer["iss"] = "https://elsewhere"
	if _, err := validator.Validate(ctx, sign(wrongIssuer)); err == nil {
		t.Fatal("expected issuer mismatch")
	}

	wrongAudience := base()
	wrongAudience["aud"] = "other"
	if _, err := validator.Validate(ctx, sign(wrongAudience)); err == nil {
		t.Fatal("expected audience mismatch")
	}

	expired := base()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()
	if _, err := validator.Validate(ctx, sign(expired)); err == nil {
		t.Fatal("expected expired token to fail")
	}
}
