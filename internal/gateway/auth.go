package gateway

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"schoolrecords/internal/gateway/util"
	"schoolrecords/internal/shared"
)

// AuthMiddleware creates a middleware that verifies JWT bearer tokens and
// injects the caller identity into the request context.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := util.ExtractToken(r)
			if err != nil {
				util.WriteJSONError(w, http.StatusUnauthorized, "Authorization token required")
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				util.WriteJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			user := &util.AuthUser{}
			if sub, err := claims.GetSubject(); err == nil {
				user.ID = sub
			}
			if role, ok := claims["role"].(string); ok {
				user.Role = role
			}
			if name, ok := claims["name"].(string); ok {
				user.Name = name
			}

			if user.ID == "" || user.Role == "" {
				util.WriteJSONError(w, http.StatusUnauthorized, "Token is missing required claims")
				return
			}
			if !shared.IsValidRole(user.Role) {
				util.WriteJSONError(w, http.StatusUnauthorized, "Token carries an unrecognized role")
				return
			}

			next.ServeHTTP(w, r.WithContext(util.WithUser(r.Context(), user)))
		})
	}
}
