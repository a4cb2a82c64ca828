package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trackex/realtime-status/internal/core/domain/license"
	"github.com/trackex/realtime-status/internal/infrastructure/httpserver/helpers"
	"github.com/trackex/realtime-status/internal/infrastructure/repositories"
)

// licenseCheck is the fast, cached validity check agents poll between stream
// reconnects.
func (s *Server) licenseCheck(c echo.Context) error {
	employeeID, err := helpers.GetEmployeeIDFromContext(c)
	if err != nil {
		return err
	}

	res, err := s.licenseSvc.Check(c.Request().Context(), employeeID)
	if err != nil {
		if errors.Is(err, repositories.ErrLicenseNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "license not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "license check failed")
	}
	return c.JSON(http.StatusOK, res)
}

// updateLicense applies an admin action to a seat and pushes the change to
// every subscribed stream.
func (s *Server) updateLicense(c echo.Context) error {
	employeeID := c.Param("employee_id")
	if employeeID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing employee ID")
	}

	var req license.UpdateLicenseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	l, err := s.licenseSvc.Apply(c.Request().Context(), employeeID, &req)
	if err != nil {
		if errors.Is(err, repositories.ErrLicenseNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "license not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, l)
}

// agentVersion tells agents which build is current.
func (s *Server) agentVersion(c echo.Context) error {
	version, err := s.agentVersionSvc.Current(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to resolve agent version")
	}
	return c.JSON(http.StatusOK, map[string]string{"version": version})
}

// publishAgentVersion records a new build and announces it on the global scope.
func (s *Server) publishAgentVersion(c echo.Context) error {
	var req struct {
		Version string `json:"version"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.agentVersionSvc.Publish(c.Request().Context(), req.Version); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusCreated)
}
