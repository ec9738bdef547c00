package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskmaster/todo/internal/application/services"
	"github.com/taskmaster/todo/internal/domain/entities"
	"github.com/taskmaster/todo/internal/infrastructure/logger"
	"github.com/taskmaster/todo/internal/ports"
)

// AuthHandler handles sign-up, sign-in and sign-out
type AuthHandler struct {
	sessions *services.Sessions
	logger   *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sessions *services.Sessions, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// SignUp creates an account and signs it in
// @Summary Sign up
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.SignUpRequest true "Credentials"
// @Success 200 {object} ports.AuthResponse
// @Failure 400 {object} ports.ErrorResponse
// @Failure 409 {object} ports.ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req ports.SignUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return err
	}

	response, err := h.sessions.SignUp(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return h.authError(c, err)
	}

	return c.JSON(http.StatusOK, response)
}

// SignIn signs an existing account in
// @Summary Sign in
// @Tags auth
// @Accept json
// @Produce json
// @Param request body ports.SignInRequest true "Credentials"
// @Success 200 {object} ports.AuthResponse
// @Failure 400 {object} ports.ErrorResponse
// @Failure 401 {object} ports.ErrorResponse
// @Router /auth/signin [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req ports.SignInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return err
	}

	response, err := h.sessions.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return h.authError(c, err)
	}

	return c.JSON(http.StatusOK, response)
}

// SignOut revokes the current token and clears the caller's list
// @Summary Sign out
// @Tags auth
// @Produce json
// @Success 200 {object} ports.MessageResponse
// @Failure 401 {object} ports.ErrorResponse
// @Security BearerAuth
// @Router /auth/signout [post]
func (h *AuthHandler) SignOut(c echo.Context) error {
	claims, ok := c.Get(ClaimsKey).(*ports.Claims)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
	}

	if err := h.sessions.SignOut(c.Request().Context(), claims); err != nil {
		requestLogger(c, h.logger).Errorw("Sign-out failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Sign-out failed").SetInternal(err)
	}

	return c.JSON(http.StatusOK, ports.MessageResponse{Message: "Signed out"})
}

// GetSession reports the caller's session state. Without a token it is
// anonymous and carries no identity.
// @Summary Session state
// @Description Reports the caller's session state. Without a token it is anonymous and carries no identity.
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} ports.SessionResponse
// @Failure 401 {object} ports.ErrorResponse
// @Router /auth/session [get]
func (h *AuthHandler) GetSession(c echo.Context) error {
	claims, ok := c.Get(ClaimsKey).(*ports.Claims)
	if !ok {
		return c.JSON(http.StatusOK, ports.SessionResponse{State: string(services.SessionAnonymous)})
	}

	identity := claims.Identity()
	return c.JSON(http.StatusOK, ports.SessionResponse{
		State:    string(services.SessionAuthenticated),
		Identity: &identity,
	})
}

// requestLogger is the logger the auth middleware tagged with the request
// and user ids, or fallback.
func requestLogger(c echo.Context, fallback *logger.Logger) *logger.Logger {
	if l, ok := c.Get(LoggerKey).(*logger.Logger); ok {
		return l
	}
	return fallback
}

// authError maps collaborator failures to responses carrying their message.
func (h *AuthHandler) authError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, entities.ErrEmailInUse):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, entities.ErrInvalidCredentials):
		h.logger.LogSecurityEvent("sign_in_failed", "", c.RealIP(), nil)
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	default:
		h.logger.Errorw("Authentication failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Authentication failed").SetInternal(err)
	}
}
