package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/skincare_tracker/internal/logging"
	"github.com/Skotchmaster/skincare_tracker/internal/service"
)

const UserIDKey = "user_id"

type Authenticator interface {
	Authenticate(accessToken string) (string, error)
}

// RequireAuth accepts only "Authorization: Bearer <access token>" and
// stores the subject under UserIDKey.
func RequireAuth(a Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			l := logging.FromContext(c.Request().Context())

			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				l.Warn("auth_failed", "status", 401, "reason", "missing bearer token")
				return service.ErrUnauthorized
			}

			userID, err := a.Authenticate(token)
			if err != nil {
				l.Warn("auth_failed", "status", 401, "reason", "invalid access token")
				return service.ErrUnauthorized
			}

			c.Set(UserIDKey, userID)
			ctx := logging.IntoContext(c.Request().Context(), l.With("user_id", userID))
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func UserID(c echo.Context) string {
	id, _ := c.Get(UserIDKey).(string)
	return id
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
