package middleware

import (
	"net/http"
	"strings"
	"time"

	"entrepeques/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ClaimsKey = "claims"
)

// Employee roles accepted on the admin routes.
const (
	RolSuperadmin = "superadmin"
	RolAdmin      = "admin"
	RolGerente    = "gerente"
	RolValuador   = "valuador"
	RolVendedor   = "vendedor"
)

// RolesEmpleado lists every role that may operate the store back office.
var RolesEmpleado = []string{RolSuperadmin, RolAdmin, RolGerente, RolValuador, RolVendedor}

// JWTClaims are the custom claims embedded in every access token. Tokens are
// issued by the store's identity service; this API only verifies them.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Rol      string `json:"rol"`
	jwt.RegisteredClaims
}

// JWTAuth validates the Bearer token on every protected route. Tokens must be
// HS256 and carry an expiry. An empty secret rejects every request, so a
// missing JWT_SECRET never opens the back office.
func JWTAuth(secret string) gin.HandlerFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	key := []byte(secret)

	return func(c *gin.Context) {
		tokenStr, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || tokenStr == "" {
			unauthorized(c, "Autenticación requerida")
			return
		}
		if len(key) == 0 {
			unauthorized(c, "Token inválido o expirado")
			return
		}

		claims := &JWTClaims{}
		token, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || !token.Valid || claims.UserID == "" {
			unauthorized(c, "Token inválido o expirado")
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="entrepeques"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New(apierror.KindUnauthorized, msg))
}

// RequireRole rejects requests whose JWT role is not in the allowed list.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || !allowed[claims.Rol] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New(apierror.KindForbidden, "Permisos insuficientes"))
			return
		}
		c.Next()
	}
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
func GetClaims(c *gin.Context) *JWTClaims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*JWTClaims)
	return claims
}
