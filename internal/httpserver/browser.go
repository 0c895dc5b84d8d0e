package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/skincare_tracker/internal/logging"
	"github.com/Skotchmaster/skincare_tracker/internal/middleware"
	"github.com/Skotchmaster/skincare_tracker/internal/service"
	"github.com/Skotchmaster/skincare_tracker/internal/transport"
)

// BrowserHTTP serves the cookie flow: the refresh token only ever travels
// in an HttpOnly cookie scoped to /api/auth.
type BrowserHTTP struct {
	Svc           *service.AuthService
	SecureCookies bool
}

func (h *BrowserHTTP) Signup(c echo.Context) error {
	var req transport.SignupRequest
	if err := transport.Bind(c, &req); err != nil {
		return err
	}

	res, err := h.Svc.Signup(c.Request().Context(), clientMeta(c), req.Email, req.Password)
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusCreated, res)
}

func (h *BrowserHTTP) Login(c echo.Context) error {
	var req transport.LoginRequest
	if err := transport.Bind(c, &req); err != nil {
		return err
	}

	res, err := h.Svc.Login(c.Request().Context(), clientMeta(c), req.Email, req.Password)
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, res)
}

func (h *BrowserHTTP) Refresh(c echo.Context) error {
	var raw string
	if cookie, err := c.Cookie(RefreshCookieName); err == nil {
		raw = cookie.Value
	}

	res, err := h.Svc.Refresh(c.Request().Context(), clientMeta(c), raw)
	if err != nil {
		c.SetCookie(deleteRefreshCookie(h.SecureCookies))
		return err
	}
	return h.respond(c, http.StatusOK, res)
}

func (h *BrowserHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	if cookie, err := c.Cookie(RefreshCookieName); err == nil {
		h.Svc.Logout(ctx, cookie.Value)
	} else {
		logging.FromContext(ctx).Info("logout_without_cookie", "user_id", middleware.UserID(c))
	}

	c.SetCookie(deleteRefreshCookie(h.SecureCookies))
	return transport.OKMessage(c, http.StatusOK, nil, "logged out")
}

func (h *BrowserHTTP) Session(c echo.Context) error {
	return transport.OK(c, http.StatusOK, transport.SessionResponse{
		Authenticated: true,
		UserID:        middleware.UserID(c),
	})
}

func (h *BrowserHTTP) respond(c echo.Context, status int, res *service.AuthResult) error {
	c.SetCookie(createRefreshCookie(res.RefreshToken, res.RefreshExpiresAt, h.SecureCookies))
	return transport.OK(c, status, transport.AuthResponse{
		User:        &res.User,
		AccessToken: res.AccessToken,
	})
}
