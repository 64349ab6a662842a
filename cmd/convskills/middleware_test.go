package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/BaSui01/convskills/config"
	"github.com/BaSui01/convskills/types"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestSecurityHeaders(t *testing.T) {
	w := serve(SecurityHeaders()(okHandler()), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestRequestID(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}), SecurityHeaders(), RequestID())

	t.Run("generated", func(t *testing.T) {
		w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		assert.Equal(t, w.Header().Get("X-Request-ID"), seen)
		assert.Len(t, seen, 36)
	})

	t.Run("preserved", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Request-ID", "turn-42")
		w := serve(h, r)
		assert.Equal(t, "turn-42", w.Header().Get("X-Request-ID"))
		assert.Equal(t, "turn-42", seen)
	})
}

func TestRecovery(t *testing.T) {
	h := Recovery(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/health/ready", "/health/ready"},
		{"/providers/acme/conversational_skills", "/providers/:id/conversational_skills"},
		{"/providers/acme/conversational_skills/lookup-order/orchestrate", "/providers/:id/conversational_skills/:id/orchestrate"},
		{"/orders/12345", "/orders/:id"},
		{"/x/550e8400-e29b-41d4-a716-446655440000", "/x/:id"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePath(tt.in), tt.in)
	}
}

func TestOTelTracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)))

	var traceID string
	r := chi.NewRouter()
	r.Use(OTelTracing(zap.NewNop()))
	r.Get("/providers/{providerId}/conversational_skills", func(w http.ResponseWriter, req *http.Request) {
		traceID, _ = types.TraceID(req.Context())
		w.WriteHeader(http.StatusBadGateway)
	})

	serve(r, httptest.NewRequest(http.MethodGet, "/providers/acme/conversational_skills", nil))

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /providers/{providerId}/conversational_skills", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), traceID)
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := RateLimiter(ctx, 1, 2, zap.NewNop())(okHandler())

	newReq := func(addr string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = addr
		return r
	}

	assert.Equal(t, http.StatusOK, serve(h, newReq("10.0.0.1:1000")).Code)
	assert.Equal(t, http.StatusOK, serve(h, newReq("10.0.0.1:1001")).Code)
	w := serve(h, newReq("10.0.0.1:1002"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")

	// 其他 IP 不受影响
	assert.Equal(t, http.StatusOK, serve(h, newReq("10.0.0.2:1000")).Code)
}

// =============================================================================
// 🔐 ProviderAuth
// =============================================================================

func assertNotAuthenticated(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"err":"_ERR_NOT_AUTHENTICATED"}`, w.Body.String())
}

func TestProviderAuth_None(t *testing.T) {
	h := ProviderAuth(config.SecurityConfig{AuthenticationMethod: config.AuthNone}, zap.NewNop())(okHandler())
	assert.Equal(t, http.StatusOK, serve(h, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
}

func TestProviderAuth_Basic(t *testing.T) {
	h := ProviderAuth(config.SecurityConfig{
		AuthenticationMethod: config.AuthBasic,
		Basic:                config.BasicAuthConfig{Username: "wa", Password: "s3cret"},
	}, zap.NewNop())(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.SetBasicAuth("wa", "s3cret")
	assert.Equal(t, http.StatusOK, serve(h, r).Code)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.SetBasicAuth("wa", "wrong")
	w := serve(h, r)
	assertNotAuthenticated(t, w)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")

	assertNotAuthenticated(t, serve(h, httptest.NewRequest(http.MethodGet, "/", nil)))
}

func TestProviderAuth_BearerToken(t *testing.T) {
	h := ProviderAuth(config.SecurityConfig{
		AuthenticationMethod: config.AuthBearer,
		Bearer:               config.BearerAuthConfig{Token: "static-token"},
	}, zap.NewNop())(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer static-token")
	assert.Equal(t, http.StatusOK, serve(h, r).Code)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer other")
	assertNotAuthenticated(t, serve(h, r))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "static-token")
	assertNotAuthenticated(t, serve(h, r))
}

func TestProviderAuth_BearerJWT(t *testing.T) {
	secret := []byte("jwt-secret")
	h := ProviderAuth(config.SecurityConfig{
		AuthenticationMethod: config.AuthBearer,
		Bearer:               config.BearerAuthConfig{JWTSecret: string(secret), Issuer: "orchestrator"},
	}, zap.NewNop())(okHandler())

	sign := func(t *testing.T, claims jwt.MapClaims, key []byte) string {
		t.Helper()
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	call := func(token string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		return serve(h, r)
	}
	exp := time.Now().Add(time.Hour).Unix()

	assert.Equal(t, http.StatusOK, call(sign(t, jwt.MapClaims{"iss": "orchestrator", "exp": exp}, secret)).Code)
	assertNotAuthenticated(t, call(sign(t, jwt.MapClaims{"iss": "someone-else", "exp": exp}, secret)))
	assertNotAuthenticated(t, call(sign(t, jwt.MapClaims{"iss": "orchestrator", "exp": exp}, []byte("wrong"))))
	assertNotAuthenticated(t, call(sign(t, jwt.MapClaims{"iss": "orchestrator", "exp": time.Now().Add(-time.Hour).Unix()}, secret)))
}

func TestProviderAuth_APIKey(t *testing.T) {
	tests := []struct {
		in    string
		apply func(r *http.Request, v string)
	}{
		{"header", func(r *http.Request, v string) { r.Header.Set("X-Key", v) }},
		{"query", func(r *http.Request, v string) { r.URL.RawQuery = "X-Key=" + v }},
		{"cookie", func(r *http.Request, v string) { r.AddCookie(&http.Cookie{Name: "X-Key", Value: v}) }},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			h := ProviderAuth(config.SecurityConfig{
				AuthenticationMethod: config.AuthAPIKey,
				APIKey:               config.APIKeyConfig{Name: "X-Key", In: tt.in, Value: "k1"},
			}, zap.NewNop())(okHandler())

			r := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.apply(r, "k1")
			assert.Equal(t, http.StatusOK, serve(h, r).Code)

			r = httptest.NewRequest(http.MethodGet, "/", nil)
			tt.apply(r, "k2")
			assertNotAuthenticated(t, serve(h, r))

			assertNotAuthenticated(t, serve(h, httptest.NewRequest(http.MethodGet, "/", nil)))
		})
	}
}

func TestProviderAuth_UnknownMethodRejects(t *testing.T) {
	h := ProviderAuth(config.SecurityConfig{AuthenticationMethod: "oauth"}, zap.NewNop())(okHandler())
	assertNotAuthenticated(t, serve(h, httptest.NewRequest(http.MethodGet, "/", nil)))
}
