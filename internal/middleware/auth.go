package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"requestflow/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by RequireAuth
const (
	ContextUserID = "userID"
	ContextRole   = "userRole"
)

var errMissingToken = errors.New("authorization is missing")

// Auth validates the HS256 tokens issued at login
type Auth struct {
	secret []byte
	secure bool
}

// NewAuth builds the middleware set. secure marks cookies Secure and SameSite=None
// for cross-origin deployments.
func NewAuth(secret []byte, secure bool) *Auth {
	return &Auth{secret: secret, secure: secure}
}

// SetTokenCookie stores the access token as an HttpOnly cookie
func (a *Auth) SetTokenCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(a.sameSite())
	c.SetCookie("access_token", token, maxAge, "/", "", a.secure, true)
}

// ClearTokenCookie removes the access_token cookie
func (a *Auth) ClearTokenCookie(c *gin.Context) {
	c.SetSameSite(a.sameSite())
	c.SetCookie("access_token", "", -1, "/", "", a.secure, true)
}

func (a *Auth) sameSite() http.SameSite {
	if a.secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// ParseToken returns the user ID and role carried by a signed token
func (a *Auth) ParseToken(tokenString string) (uint, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		return 0, "", err
	}
	if !token.Valid {
		return 0, "", jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", jwt.ErrTokenInvalidClaims
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return 0, "", err
	}
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return 0, "", errors.New("invalid subject in token")
	}
	role, _ := claims["role"].(string)
	if role == "" {
		return 0, "", errors.New("role not found in token")
	}
	return uint(id), role, nil
}

// tokenFromRequest reads the access_token cookie, then the Authorization header
func tokenFromRequest(c *gin.Context) (string, error) {
	if token, err := c.Cookie("access_token"); err == nil && token != "" {
		return token, nil
	}
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", errMissingToken
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("invalid authorization format. Expected 'Bearer <token>'")
	}
	return parts[1], nil
}

// RequireAuth validates the token and stores the caller's ID and role in the context
func (a *Auth) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := tokenFromRequest(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}
		userID, role, err := a.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid token: "+err.Error()))
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextRole, role)
		c.Next()
	}
}

// RequireRole must run after RequireAuth; it rejects callers whose role is not listed.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		for _, allowed := range allowedRoles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, response.Error(http.StatusForbidden, "Access denied: insufficient permissions"))
	}
}

// CurrentUser returns what RequireAuth stored in the context
func CurrentUser(c *gin.Context) (uint, string) {
	id, _ := c.Get(ContextUserID)
	userID, _ := id.(uint)
	return userID, c.GetString(ContextRole)
}
