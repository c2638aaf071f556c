package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const userIDKey = "auth.user_id"

// JWTConfig configures bearer token verification. Tokens are issued elsewhere.
type JWTConfig struct {
	Secret    string
	Algorithm string
	Skipper   func(c echo.Context) bool
	// ErrorHandler writes the 401 response. Without one the middleware
	// returns an echo.HTTPError for the server's error handler.
	ErrorHandler func(c echo.Context, message string) error
}

// JWTAuth verifies "Authorization: Bearer <token>" and stores the numeric
// subject as the request user id.
func JWTAuth(cfg JWTConfig) echo.MiddlewareFunc {
	alg := cfg.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	unauthorized := cfg.ErrorHandler
	if unauthorized == nil {
		unauthorized = func(_ echo.Context, msg string) error {
			return echo.NewHTTPError(http.StatusUnauthorized, msg)
		}
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{alg}), jwt.WithExpirationRequired())

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}
			raw := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(raw, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				return unauthorized(c, "Missing bearer token")
			}

			claims := &jwt.RegisteredClaims{}
			_, err := parser.ParseWithClaims(strings.TrimSpace(token), claims, func(*jwt.Token) (interface{}, error) {
				return []byte(cfg.Secret), nil
			})
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					return unauthorized(c, "Token expired")
				}
				return unauthorized(c, "Invalid token")
			}

			id, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil || id <= 0 {
				return unauthorized(c, "Invalid token")
			}
			c.Set(userIDKey, id)
			return next(c)
		}
	}
}

// UserID returns the authenticated user id set by JWTAuth.
func UserID(c echo.Context) (int64, bool) {
	id, ok := c.Get(userIDKey).(int64)
	return id, ok
}
