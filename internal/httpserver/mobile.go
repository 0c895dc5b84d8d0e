package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/skincare_tracker/internal/service"
	"github.com/Skotchmaster/skincare_tracker/internal/transport"
)

// MobileHTTP serves native clients. Both tokens travel in JSON bodies and
// no cookie is ever set.
type MobileHTTP struct {
	Svc *service.AuthService
}

func (h *MobileHTTP) Signup(c echo.Context) error {
	var req transport.SignupRequest
	if err := transport.Bind(c, &req); err != nil {
		return err
	}

	res, err := h.Svc.Signup(c.Request().Context(), clientMeta(c), req.Email, req.Password)
	if err != nil {
		return err
	}
	return transport.OK(c, http.StatusCreated, pairResponse(res, true))
}

func (h *MobileHTTP) Login(c echo.Context) error {
	var req transport.LoginRequest
	if err := transport.Bind(c, &req); err != nil {
		return err
	}

	res, err := h.Svc.Login(c.Request().Context(), clientMeta(c), req.Email, req.Password)
	if err != nil {
		return err
	}
	return transport.OK(c, http.StatusOK, pairResponse(res, true))
}

func (h *MobileHTTP) Refresh(c echo.Context) error {
	var req transport.MobileRefreshRequest
	if err := transport.Bind(c, &req); err != nil {
		return err
	}

	res, err := h.Svc.Refresh(c.Request().Context(), clientMeta(c), req.RefreshToken)
	if err != nil {
		return err
	}
	return transport.OK(c, http.StatusOK, pairResponse(res, false))
}

func (h *MobileHTTP) Logout(c echo.Context) error {
	var req transport.MobileLogoutRequest
	// The body is optional; a malformed one is treated as absent.
	_ = c.Bind(&req)

	h.Svc.Logout(c.Request().Context(), req.RefreshToken)
	return transport.OKMessage(c, http.StatusOK, nil, "logged out")
}

func pairResponse(res *service.AuthResult, withUser bool) transport.AuthResponse {
	out := transport.AuthResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	}
	if withUser {
		out.User = &res.User
	}
	return out
}
