package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/food-orders/internal/pkg/interceptors/constants"
)

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func TestAuthenticatorParse(t *testing.T) {
	a := NewAuthenticator("s3cret", "")
	key := []byte("s3cret")

	tests := []struct {
		name    string
		raw     string
		want    Claims
		wantErr bool
	}{
		{
			name: "user",
			raw:  sign(t, jwt.SigningMethodHS256, key, jwt.MapClaims{"id": "u1"}),
			want: Claims{UserID: "u1"},
		},
		{
			name: "admin via HS512",
			raw:  sign(t, jwt.SigningMethodHS512, key, jwt.MapClaims{"id": "u2", "role": "admin"}),
			want: Claims{UserID: "u2", Role: "admin", Admin: true},
		},
		{
			name: "other role",
			raw:  sign(t, jwt.SigningMethodHS256, key, jwt.MapClaims{"id": "u3", "role": "restaurant"}),
			want: Claims{UserID: "u3", Role: "restaurant"},
		},
		{name: "empty", raw: "", wantErr: true},
		{name: "garbage", raw: "not.a.jwt", wantErr: true},
		{
			name:    "no id",
			raw:     sign(t, jwt.SigningMethodHS256, key, jwt.MapClaims{"role": "admin"}),
			wantErr: true,
		},
		{
			name:    "expired",
			raw:     sign(t, jwt.SigningMethodHS256, key, jwt.MapClaims{"id": "u1", "exp": time.Now().Add(-time.Hour).Unix()}),
			wantErr: true,
		},
		{
			name:    "unsigned",
			raw:     sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"id": "u1"}),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Parse(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.want.Token = tt.raw
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCustomAdminRole(t *testing.T) {
	a := NewAuthenticator("k", "superuser")
	c, err := a.Parse(sign(t, jwt.SigningMethodHS256, []byte("k"), jwt.MapClaims{"id": "u", "role": "admin"}))
	require.NoError(t, err)
	assert.False(t, c.Admin)
}

func TestRequireAdmin(t *testing.T) {
	a := NewAuthenticator("k", "admin")
	var seen Claims
	h := a.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
	}))

	tests := []struct {
		name string
		role string
		want int
	}{
		{"admin", "admin", http.StatusOK},
		{"user", "user", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(TokenHeader, sign(t, jwt.SigningMethodHS256, []byte("k"), jwt.MapClaims{"id": "x", "role": tt.role}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.True(t, seen.Admin)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Not Authorized Login Again"}`, rec.Body.String())
}

func TestRateLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "burst exhausted")
	assert.True(t, l.Allow("b"), "clients are limited separately")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"), "one token refilled")

	now = now.Add(time.Hour)
	l.Allow("c")
	assert.NotContains(t, l.visitors, "a", "idle clients are swept")
	assert.Contains(t, l.visitors, "c")
}

func TestRateLimiterMiddleware(t *testing.T) {
	l := NewRateLimiter(0.001, 1)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.7:51234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, send().Code)
	rec := send()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })

	tests := []struct {
		name       string
		origins    []string
		method     string
		origin     string
		wantAllow  string
		wantStatus int
	}{
		{"open", nil, http.MethodGet, "http://a.test", "*", http.StatusTeapot},
		{"wildcard", []string{"*"}, http.MethodGet, "http://a.test", "*", http.StatusTeapot},
		{"listed", []string{"http://a.test"}, http.MethodGet, "http://a.test", "http://a.test", http.StatusTeapot},
		{"unlisted", []string{"http://a.test"}, http.MethodGet, "http://b.test", "", http.StatusTeapot},
		{"preflight", []string{"http://a.test"}, http.MethodOptions, "http://a.test", "http://a.test", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			CORS(tt.origins)(next).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestAttachTracingMetadata(t *testing.T) {
	var requestID, idemKey string
	h := middleware.RequestID(AttachTracingMetadata(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		requestID = constants.RequestID(r.Context())
		idemKey = constants.IdempotencyKey(r.Context())
	})))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Request-Id", "req-42")
	req.Header.Set(constants.HeaderXIdempotencyKey, "place-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", requestID)
	assert.Equal(t, "place-1", idemKey)
	assert.Equal(t, "req-42", rec.Header().Get(constants.HeaderXRequestId))
}
