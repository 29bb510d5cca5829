package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	authmw "github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type AuthHandler struct {
	Svc *service.AuthService
}

func (h *AuthHandler) Register(c echo.Context) error {
	var in service.RegisterInput
	if err := bindInput(c, &in); err != nil {
		logging.FromContext(c.Request().Context()).Warn("register_failed", "reason", "invalid body", "error", err)
		return err
	}
	res, err := h.Svc.Register(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, transport.AuthResponse{User: res.User, Token: res.Token})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var in service.LoginInput
	if err := bindInput(c, &in); err != nil {
		logging.FromContext(c.Request().Context()).Warn("login_failed", "reason", "invalid body", "error", err)
		return err
	}
	res, err := h.Svc.Login(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.AuthResponse{User: res.User, Token: res.Token})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.Svc.Logout(c.Request().Context(), authmw.Token(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Logged out successfully"})
}

func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, authmw.User(c))
}
