package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"go.uber.org/zap"

	"github.com/fatflowers/staypay/pkg/logctx"
	"github.com/fatflowers/staypay/pkg/response"
)

const (
	AdminRole = "admin"
	// OperatorKey is the gin.Context key of the authenticated operator subject.
	OperatorKey = "operator"
)

var errNoBearer = errors.New("missing bearer token")

// AdminAuthMiddleware accepts HS256 bearer tokens signed with secret whose
// role claim is admin. An empty secret rejects every request.
func AdminAuthMiddleware(secret string, base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sub, err := verifyAdminToken(c.GetHeader("Authorization"), secret)
		if err != nil {
			logctx.FromGin(c, base).Warnw("admin_auth_rejected", "path", c.FullPath(), "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.ErrorT[any](response.APIResponseCodeUnauthorized, err.Error()))
			return
		}
		c.Set(OperatorKey, sub)
		c.Next()
	}
}

func verifyAdminToken(header, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("admin api disabled")
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" || raw == strings.TrimSpace(header) {
		return "", errNoBearer
	}
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if role, _ := claims["role"].(string); role != AdminRole {
		return "", fmt.Errorf("role %q is not allowed", role)
	}
	sub, _ := claims["sub"].(string)
	return sub, nil
}
