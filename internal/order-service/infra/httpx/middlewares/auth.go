package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenHeader is the header the storefront sends the user token in.
	TokenHeader = "token"

	msgNotAuthorized = "Not Authorized Login Again"
	msgAdminOnly     = "Admin access required"
)

type claimsKey struct{}

// Claims identifies the caller of an authenticated request.
type Claims struct {
	UserID string
	Role   string
	Admin  bool
	// Token is the raw credential, forwarded to the user service.
	Token string
}

// ClaimsFromContext returns the claims stored by Authenticator.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(Claims)
	return c, ok
}

// WithClaims is used by tests to fake an authenticated request.
func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// Authenticator validates HMAC-signed user tokens issued by the user service.
type Authenticator struct {
	secret    []byte
	adminRole string
}

func NewAuthenticator(secret, adminRole string) *Authenticator {
	if adminRole == "" {
		adminRole = "admin"
	}
	return &Authenticator{secret: []byte(secret), adminRole: adminRole}
}

// RequireUser rejects requests without a valid token.
func (a *Authenticator) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.Parse(tokenFromRequest(r))
		if err != nil {
			slog.DebugContext(r.Context(), "rejected token", "error", err)
			fail(w, http.StatusUnauthorized, msgNotAuthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// RequireAdmin is RequireUser plus an admin role check.
func (a *Authenticator) RequireAdmin(next http.Handler) http.Handler {
	return a.RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, _ := ClaimsFromContext(r.Context()); !c.Admin {
			fail(w, http.StatusForbidden, msgAdminOnly)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

var errNoToken = errors.New("no token")

// Parse verifies raw and extracts the caller's claims.
func (a *Authenticator) Parse(raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, errNoToken
	}
	mc := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, mc, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return Claims{}, err
	}
	id, _ := mc["id"].(string)
	if id == "" {
		return Claims{}, errors.New("token has no id claim")
	}
	role, _ := mc["role"].(string)
	return Claims{UserID: id, Role: role, Admin: role == a.adminRole, Token: raw}, nil
}

func tokenFromRequest(r *http.Request) string {
	if t := r.Header.Get(TokenHeader); t != "" {
		return t
	}
	if t, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(t)
	}
	return ""
}

func fail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": msg})
}
