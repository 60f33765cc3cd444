package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	pkgAuth "github.com/vastralabs/vastra-backend/pkg/auth"
	"github.com/vastralabs/vastra-backend/pkg/config"
)

var jwtTestConfig = config.JWTConfig{
	Secret:            "middleware-test-secret",
	Issuer:            "vastra-test",
	ExpirationMinutes: 10,
}

func TestAdminAuthRejectsMissingHeader(t *testing.T) {
	handler := AdminAuth(jwtTestConfig, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/coupons", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminAuthRejectsGarbageToken(t *testing.T) {
	handler := AdminAuth(jwtTestConfig, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/coupons", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminAuthSeedsContext(t *testing.T) {
	adminID := uuid.New()
	token, err := pkgAuth.MintAccessToken(jwtTestConfig, time.Now(), pkgAuth.AccessTokenPayload{
		AdminID: adminID,
		Email:   "ops@vastra.in",
	})
	require.NoError(t, err)

	var seenID, seenEmail string
	handler := AdminAuth(jwtTestConfig, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = AdminIDFromContext(r.Context())
		seenEmail = AdminEmailFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/coupons", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, adminID.String(), seenID)
	require.Equal(t, "ops@vastra.in", seenEmail)
}
