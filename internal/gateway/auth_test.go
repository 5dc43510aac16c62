package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"schoolrecords/internal/gateway/util"
	"schoolrecords/internal/shared"
)

const testJWTSecret = "auth-test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func TestAuthMiddleware(t *testing.T) {
	var captured *util.AuthUser
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = util.UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := AuthMiddleware(testJWTSecret)(next)

	do := func(authHeader string) *httptest.ResponseRecorder {
		captured = nil
		req := httptest.NewRequest(http.MethodGet, "/api/semesters", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	expiry := time.Now().Add(time.Hour).Unix()

	t.Run("Valid Token", func(t *testing.T) {
		token := signToken(t, testJWTSecret, jwt.MapClaims{
			"sub": "teacher-001", "role": shared.RoleTeacher, "name": "Ms. Adviser", "exp": expiry,
		})
		rec := do("Bearer " + token)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if captured == nil || captured.ID != "teacher-001" || captured.Role != shared.RoleTeacher || captured.Name != "Ms. Adviser" {
			t.Errorf("Unexpected context user: %+v", captured)
		}
	})

	t.Run("Missing Header", func(t *testing.T) {
		if rec := do(""); rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rec.Code)
		}
		if captured != nil {
			t.Error("Handler should not run without a token")
		}
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		token := signToken(t, "some-other-secret", jwt.MapClaims{
			"sub": "teacher-001", "role": shared.RoleTeacher, "exp": expiry,
		})
		if rec := do("Bearer " + token); rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rec.Code)
		}
	})

	t.Run("Expired Token", func(t *testing.T) {
		token := signToken(t, testJWTSecret, jwt.MapClaims{
			"sub": "teacher-001", "role": shared.RoleTeacher,
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		if rec := do("Bearer " + token); rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rec.Code)
		}
	})

	t.Run("Missing Role Claim", func(t *testing.T) {
		token := signToken(t, testJWTSecret, jwt.MapClaims{
			"sub": "teacher-001", "exp": expiry,
		})
		if rec := do("Bearer " + token); rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401, got %d", rec.Code)
		}
	})

	t.Run("Unrecognized Role Claim", func(t *testing.T) {
		token := signToken(t, testJWTSecret, jwt.MapClaims{
			"sub": "user-001", "role": "superuser", "exp": expiry,
		})
		rec := do("Bearer " + token)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected 401 for unknown role, got %d", rec.Code)
		}
		if captured != nil {
			t.Error("Handler should not run with an unrecognized role")
		}
	})
}
