package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/trackex/realtime-status/internal/core/ports"
	"github.com/trackex/realtime-status/internal/infrastructure/httpserver/helpers"
)

type AuthMiddleware struct {
	licenseSvc ports.LicenseService
	jwtSecret  string
	logger     *logrus.Logger
}

func NewAuthMiddleware(licenseSvc ports.LicenseService, jwtSecret string, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{licenseSvc: licenseSvc, jwtSecret: jwtSecret, logger: logger}
}

func bearerToken(c echo.Context) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
	}
	return strings.TrimPrefix(header, "Bearer "), nil
}

// RequireJWT validates dashboard JWTs and sets the user context.
func (m *AuthMiddleware) RequireJWT() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c)
			if err != nil {
				return err
			}

			token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.NewHTTPError(http.StatusUnauthorized, "unexpected signing method")
				}
				return []byte(m.jwtSecret), nil
			})
			if err != nil || !token.Valid {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"ip": c.RealIP(), "path": c.Request().URL.Path}).WithError(err).Warn("JWT validation failed")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
			}
			sub, _ := claims["sub"].(string)
			if sub == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token subject")
			}
			c.Set(helpers.UserIDKey, sub)
			if role, ok := claims["role"].(string); ok {
				c.Set(helpers.UserRoleKey, role)
			}
			return next(c)
		}
	}
}

// RequireDeviceToken authenticates monitoring agents: the employee ID travels
// in the X-Employee-ID header and the device token as a bearer credential,
// verified against the stored hash (legacy or current format).
func (m *AuthMiddleware) RequireDeviceToken() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			employeeID := c.Request().Header.Get("X-Employee-ID")
			if employeeID == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing employee identity")
			}
			token, err := bearerToken(c)
			if err != nil {
				return err
			}

			l, err := m.licenseSvc.VerifyDeviceToken(c.Request().Context(), employeeID, token)
			if err != nil {
				if m.logger != nil {
					m.logger.WithFields(logrus.Fields{"employee_id": employeeID, "ip": c.RealIP()}).WithError(err).Warn("device token verification failed")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid device credentials")
			}

			c.Set(helpers.EmployeeIDKey, employeeID)
			c.Set(helpers.LicenseKey, l)
			return next(c)
		}
	}
}
