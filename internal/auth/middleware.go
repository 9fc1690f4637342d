package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
)

const principalKey = "auth.principal"

// Middleware parses the Bearer token issued by the identity provider and
// attaches the resulting Principal to the gin context. Requests without a
// valid token are rejected with 401.
func Middleware(secret string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			log.Warn().Err(err).Msg("Rejected request with invalid token")
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		uid, ok := claims["uid"].(float64)
		if !ok || uid <= 0 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token missing uid claim"})
			return
		}
		role, _ := claims["role"].(string)

		ctx.Set(principalKey, Principal{UserID: uint(uid), Role: role})
		ctx.Next()
	}
}

// FromContext returns the Principal attached by Middleware.
func FromContext(ctx *gin.Context) (Principal, bool) {
	v, exists := ctx.Get(principalKey)
	if !exists {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
