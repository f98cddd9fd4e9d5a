package middleware

import (
	"net/http"
	"strings"

	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/apierror"
	"github.com/bruno-egami/Gestao-Amicando-sub000/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ClaimsKey   = "claims"
	OperadorKey = "operador"
)

// JWTClaims are the claims expected in the access tokens issued by the
// back-office login. This service only verifies them.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Nome   string `json:"nome"`
	Rol    string `json:"rol"`
	jwt.RegisteredClaims
}

// JWTAuth validates the Bearer token and stores the acting user as a
// model.Operador for attribution.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("autenticação requerida"))
			return
		}

		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("token inválido ou expirado"))
			return
		}
		id, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("token sem usuário válido"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(OperadorKey, model.Operador{ID: id, Nome: claims.Nome})
		c.Next()
	}
}

// RequireRole rejects requests whose role is not in the allowed list.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || !allowed[claims.Rol] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("permissão insuficiente"))
			return
		}
		c.Next()
	}
}

func GetClaims(c *gin.Context) *JWTClaims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*JWTClaims)
	return claims
}

// GetOperador returns the acting user, zero-valued on public routes.
func GetOperador(c *gin.Context) model.Operador {
	v, ok := c.Get(OperadorKey)
	if !ok {
		return model.Operador{}
	}
	op, _ := v.(model.Operador)
	return op
}
