package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func newProtectedRouter() (*gin.Engine, *Principal) {
	gin.SetMode(gin.TestMode)
	var seen Principal
	r := gin.New()
	r.Use(Middleware(testSecret))
	r.GET("/protected", func(c *gin.Context) {
		p, ok := FromContext(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		seen = p
		c.Status(http.StatusOK)
	})
	return r, &seen
}

func TestMiddlewareAcceptsValidToken(t *testing.T) {
	router, seen := newProtectedRouter()

	token := signToken(t, jwt.MapClaims{
		"uid":  float64(42),
		"role": "student",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if seen.UserID != 42 || seen.Role != "student" {
		t.Errorf("principal = %+v, want uid 42 role student", seen)
	}
}

func TestMiddlewareRejectsBadRequests(t *testing.T) {
	router, _ := newProtectedRouter()

	expired := signToken(t, jwt.MapClaims{
		"uid": float64(42),
		"exp": time.Now().Add(-time.Hour).Unix(),
	}, testSecret)
	wrongKey := signToken(t, jwt.MapClaims{
		"uid": float64(42),
		"exp": time.Now().Add(time.Hour).Unix(),
	}, "other-secret")
	noUID := signToken(t, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not a bearer token", "Basic abc"},
		{"garbage token", "Bearer not.a.jwt"},
		{"expired token", "Bearer " + expired},
		{"wrong signing key", "Bearer " + wrongKey},
		{"missing uid claim", "Bearer " + noUID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}
