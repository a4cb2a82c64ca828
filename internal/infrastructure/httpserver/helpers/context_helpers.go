package helpers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trackex/realtime-status/internal/core/domain/license"
)

// Context keys set by the auth middleware.
const (
	EmployeeIDKey = "employee_id"
	LicenseKey    = "agent_license"
	UserIDKey     = "user_id"
	UserRoleKey   = "user_role"
)

// GetEmployeeIDFromContext returns the authenticated agent's employee ID.
func GetEmployeeIDFromContext(c echo.Context) (string, error) {
	id, ok := c.Get(EmployeeIDKey).(string)
	if !ok || id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid agent context")
	}
	return id, nil
}

// GetLicenseFromContext returns the license resolved during device auth.
func GetLicenseFromContext(c echo.Context) (*license.License, error) {
	l, ok := c.Get(LicenseKey).(*license.License)
	if !ok || l == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid agent context")
	}
	return l, nil
}

// GetUserIDFromContext returns the authenticated dashboard user's ID.
func GetUserIDFromContext(c echo.Context) (string, error) {
	id, ok := c.Get(UserIDKey).(string)
	if !ok || id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "invalid user context")
	}
	return id, nil
}
