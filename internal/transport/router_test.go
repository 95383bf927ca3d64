package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pasal-be/internal/checkout"
	"pasal-be/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const routerTestSecret = "router-test-secret"

func bearerToken(t *testing.T, ownerID uint) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": float64(ownerID),
		"email":   "buyer@example.com",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(routerTestSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestRouter_RejectsMissingToken(t *testing.T) {
	h := NewHandler(new(MockCheckoutService), new(MockOrderService))
	router := NewRouter(h, middleware.NewAuth(routerTestSecret))

	req := httptest.NewRequest(http.MethodGet, "/api/checkout/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_RateLimitKeyedOnOwner(t *testing.T) {
	checkoutSvc := new(MockCheckoutService)
	checkoutSvc.On("GetSession", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, checkout.ErrSessionNotFound)

	h := NewHandler(checkoutSvc, new(MockOrderService))
	router := NewRouter(h, middleware.NewAuth(routerTestSecret))

	token := bearerToken(t, 31337)
	path := "/api/checkout/" + uuid.NewString() + "/pay"

	send := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodPut, path, nil)
		req.Header.Set("Authorization", token)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	// Authenticated traffic is limited per owner: drain the strict bucket
	// from one address, then the same owner is throttled from another.
	throttled := false
	for i := 0; i < 50; i++ {
		code := send("10.9.0.1:1234")
		if code == http.StatusTooManyRequests {
			throttled = true
			break
		}
		require.Equal(t, http.StatusNotFound, code)
	}
	require.True(t, throttled, "strict tier never throttled the owner")

	assert.Equal(t, http.StatusTooManyRequests, send("10.9.0.2:1234"))
}
