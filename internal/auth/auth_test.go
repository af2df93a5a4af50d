package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	svc := NewService("secret", time.Minute)

	hash, err := svc.HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter2", hash)

	assert.True(t, svc.VerifyPassword("hunter2", hash))
	assert.False(t, svc.VerifyPassword("hunter3", hash))
	assert.False(t, svc.VerifyPassword("hunter2", "not-a-hash"))
}

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService("secret", time.Minute)

	token, err := svc.IssueToken(42, "alice")
	require.NoError(t, err)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice", claims.Subject)
}

func TestTokenRejection(t *testing.T) {
	svc := NewService("secret", time.Minute)

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.VerifyToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewService("different-secret", time.Minute)
		token, err := other.IssueToken(1, "mallory")
		require.NoError(t, err)

		_, err = svc.VerifyToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		short := NewService("secret", -time.Minute)
		token, err := short.IssueToken(1, "alice")
		require.NoError(t, err)

		_, err = short.VerifyToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestMiddleware(t *testing.T) {
	svc := NewService("secret", time.Minute)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, uint(7), claims.UserID)
		w.WriteHeader(http.StatusNoContent)
	})
	guarded := svc.Middleware(next)

	t.Run("valid bearer token passes", func(t *testing.T) {
		token, err := svc.IssueToken(7, "alice")
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/api/documents", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/documents", nil)
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong scheme rejected", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/documents", nil)
		req.Header.Set("Authorization", "Basic abc123")
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("tampered token rejected", func(t *testing.T) {
		token, err := svc.IssueToken(7, "alice")
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/api/documents", nil)
		req.Header.Set("Authorization", "Bearer "+token+"x")
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
