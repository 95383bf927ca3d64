package middleware

import (
	"net/http"
	"strings"

	"pasal-be/internal/utils"

	"github.com/golang-jwt/jwt/v5"
)

// Auth verifies the bearer token issued by the identity service and injects
// the authenticated owner into the request context. Handlers never read auth
// state from anywhere else.
type Auth struct {
	secret []byte
}

func NewAuth(secret string) *Auth {
	return &Auth{secret: []byte(secret)}
}

func (a *Auth) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.WriteJSONError(w, "not authorized", http.StatusUnauthorized)
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return a.secret, nil
		})
		if err != nil || !token.Valid {
			utils.WriteJSONError(w, "not authorized", http.StatusUnauthorized)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			utils.WriteJSONError(w, "not authorized", http.StatusUnauthorized)
			return
		}

		uid, ok := claims["user_id"].(float64)
		if !ok || uid <= 0 {
			utils.WriteJSONError(w, "not authorized", http.StatusUnauthorized)
			return
		}
		email, _ := claims["email"].(string)

		ctx := utils.SetOwnerContext(r.Context(), uint(uid), email)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
