package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"im-social/internal/auth"
	"im-social/internal/config"
)

var testAuthCfg = config.AuthConfig{JWTSecretKey: "middleware-secret", JWTExpiry: time.Hour}

func protected(blacklist auth.TokenBlacklist) http.Handler {
	return AuthMiddleware(testAuthCfg.JWTSecretKey, blacklist)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetUserIDFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		claims, ok := GetClaimsFromContext(r.Context())
		if !ok || claims.UserID != id {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
}

func doRequest(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	token, err := auth.GenerateToken(7, "u@example.com", testAuthCfg)
	require.NoError(t, err)
	otherKey, err := auth.GenerateToken(7, "u@example.com", config.AuthConfig{JWTSecretKey: "other", JWTExpiry: time.Hour})
	require.NoError(t, err)

	h := protected(nil)
	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + token, http.StatusNoContent},
		{"lowercase scheme", "bearer " + token, http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"no token", "Bearer", http.StatusUnauthorized},
		{"wrong key", "Bearer " + otherKey, http.StatusUnauthorized},
		{"garbage", "Bearer not.a.jwt", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(h, tt.header)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), `"error"`)
			}
		})
	}
}

func TestAuthMiddleware_RevokedToken(t *testing.T) {
	token, err := auth.GenerateToken(7, "u@example.com", testAuthCfg)
	require.NoError(t, err)
	claims, err := auth.ValidateToken(context.Background(), token, testAuthCfg.JWTSecretKey, nil)
	require.NoError(t, err)

	bl := auth.NewMemoryBlacklist()
	h := protected(bl)
	assert.Equal(t, http.StatusNoContent, doRequest(h, "Bearer "+token).Code)

	require.NoError(t, bl.Add(context.Background(), claims.ID, claims.ExpiresAt.Time))
	assert.Equal(t, http.StatusUnauthorized, doRequest(h, "Bearer "+token).Code)
}
