package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sidelinehq/trophy-cabinet/platform/go/auth/devtoken"
)

func devToken(t *testing.T, userID, email, name string) string {
	t.Helper()
	token, err := devtoken.BuildUnsignedToken(devtoken.Params{
		ProjectID:     "trophy-cabinet-test",
		UserID:        userID,
		Email:         email,
		Name:          name,
		EmailVerified: true,
	}, time.Now().UTC())
	require.NoError(t, err)
	return token
}

func TestJWTSetsIdentity(t *testing.T) {
	t.Parallel()

	var seen *Identity
	handler := JWT(UnsignedTokenVerifier())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+devToken(t, "firebase-uid-123", "player@example.com", "Pat Player"))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	require.Equal(t, "firebase-uid-123", seen.Subject)
	require.Equal(t, "player@example.com", seen.Email)
	require.NotNil(t, seen.Name)
	require.Equal(t, "Pat Player", *seen.Name)
}

func TestJWTPassesThroughWithoutToken(t *testing.T) {
	t.Parallel()

	handler := JWT(UnsignedTokenVerifier())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := IdentityFromContext(r.Context())
		require.False(t, ok)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTRejectsMalformedToken(t *testing.T) {
	t.Parallel()

	handler := JWT(UnsignedTokenVerifier())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthenticated(t *testing.T) {
	t.Parallel()

	handler := RequireAuthenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req = req.WithContext(WithIdentity(context.Background(), &Identity{Subject: "u1"}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUserIDStable(t *testing.T) {
	t.Parallel()

	ident := Identity{Subject: "firebase-uid-123"}
	require.Equal(t, ident.UserID(), ident.UserID())
	require.NotEqual(t, uuid.Nil, ident.UserID())

	raw := uuid.New()
	passthrough := Identity{Subject: raw.String()}
	require.Equal(t, raw, passthrough.UserID())
}
