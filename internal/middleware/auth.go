package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// UserIDKey is the gin context key holding the authenticated user id
const UserIDKey = "user_id"

// JWTAuth verifies a Bearer token signed with HS256 and stores the subject
// claim as the authenticated user id
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		bearer := c.GetHeader("Authorization")
		if !strings.HasPrefix(bearer, "Bearer ") {
			unauthorized(c, "Missing bearer token")
			return
		}

		tokenStr := bearer[7:]
		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			unauthorized(c, "Could not validate credentials")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(c, "Could not validate credentials")
			return
		}

		userID, _ := claims["sub"].(string)
		if userID == "" {
			unauthorized(c, "Could not validate credentials")
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// CreateAccessToken issues a signed HS256 token for a user id
func CreateAccessToken(secret []byte, userID string, expiresIn time.Duration) (string, error) {
	if expiresIn == 0 {
		expiresIn = 30 * time.Minute
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(expiresIn).Unix(),
		"iat": time.Now().Unix(),
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func unauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}
