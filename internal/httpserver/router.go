package httpserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/skincare_tracker/internal/middleware"
	"github.com/Skotchmaster/skincare_tracker/internal/service"
	"github.com/Skotchmaster/skincare_tracker/internal/transport"
)

type Deps struct {
	Browser *BrowserHTTP
	Mobile  *MobileHTTP
	Auth    middleware.Authenticator
	Logger  *slog.Logger

	// LimiterStore guards the credential endpoints. Nil disables it.
	LimiterStore echomw.RateLimiterStore
	// Ready reports whether dependencies answer. Nil means always ready.
	Ready func(ctx context.Context) error
}

// NewServer wraps h with the listener timeouts used in every environment.
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// New builds the echo instance with the shared middleware chain and routes.
func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = transport.NewValidator()
	e.HTTPErrorHandler = transport.ErrorHandler

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.Secure())
	e.Use(echomw.BodyLimit("64K"))

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error {
		return transport.OK(c, http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, transport.ErrorBody{Error: string(service.CodeServerError)})
			}
		}
		return transport.OK(c, http.StatusOK, echo.Map{"status": "ready"})
	})

	requireAuth := middleware.RequireAuth(d.Auth)
	credentials := []echo.MiddlewareFunc{}
	if d.LimiterStore != nil {
		credentials = append(credentials, rateLimit(d.LimiterStore))
	}

	api := e.Group("/api/auth")
	api.POST("/login", d.Browser.Login, credentials...)
	api.POST("/signup", d.Browser.Signup, credentials...)
	api.POST("/refresh", d.Browser.Refresh)
	api.POST("/logout", d.Browser.Logout, requireAuth)
	api.GET("/session", d.Browser.Session, requireAuth)

	mobile := api.Group("/mobile")
	mobile.POST("/login", d.Mobile.Login, credentials...)
	mobile.POST("/signup", d.Mobile.Signup, credentials...)
	mobile.POST("/refresh", d.Mobile.Refresh)
	mobile.POST("/logout", d.Mobile.Logout, requireAuth)
}

func rateLimit(store echomw.RateLimiterStore) echo.MiddlewareFunc {
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return service.ErrServer
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return service.ErrRateLimited
		},
	})
}
