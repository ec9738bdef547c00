package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	httpHandlers "github.com/taskmaster/todo/internal/adapters/http"
	"github.com/taskmaster/todo/internal/application/services"
	"github.com/taskmaster/todo/internal/ports"
)

// tokenMiddleware validates the bearer token and puts its claims and a
// request logger tagged with the user in the context. With optional set, a
// request without an Authorization header passes through anonymous; a bad
// token is still rejected.
func (s *Server) tokenMiddleware(auth ports.Authenticator, optional bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				if optional {
					return next(c)
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader || tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
			}

			claims, err := auth.ValidateToken(c.Request().Context(), tokenString)
			if err != nil {
				s.logger.LogSecurityEvent("invalid_token", "", c.RealIP(), map[string]interface{}{
					"error": err.Error(),
				})
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}

			c.Set(httpHandlers.ClaimsKey, claims)
			c.Set(httpHandlers.LoggerKey, s.logger.
				WithRequestID(c.Response().Header().Get(echo.HeaderXRequestID)).
				WithUserID(claims.UserID.String()))

			return next(c)
		}
	}
}

// storeMiddleware hands the request the task store of the user its token
// names. It runs after tokenMiddleware.
func (s *Server) storeMiddleware(sessions *services.Sessions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get(httpHandlers.ClaimsKey).(*ports.Claims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
			}

			session := sessions.Resolve(c.Request().Context(), claims)
			c.Set(httpHandlers.StoreKey, session.Store())

			return next(c)
		}
	}
}
