package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")

	// Agent-facing endpoints, authenticated by device token and rate limited
	// per employee.
	agent := api.Group("/agent")
	agent.Use(s.middleware.Auth.RequireDeviceToken())
	agent.Use(s.middleware.RateLimit.Handler())
	agent.POST("/ping", s.agentPing)
	agent.GET("/license-check", s.licenseCheck)
	agent.GET("/license-stream", s.licenseStream)
	agent.GET("/version", s.agentVersion)

	// Dashboard endpoints, authenticated by JWT.
	dashboard := api.Group("/dashboard")
	dashboard.Use(s.middleware.Auth.RequireJWT())
	dashboard.GET("/live", s.liveView)
	dashboard.GET("/stream", s.dashboardStream)
	dashboard.GET("/cache-stats", s.cacheStats)
	dashboard.PUT("/licenses/:employee_id", s.updateLicense)
	dashboard.POST("/agent-version", s.publishAgentVersion)
}
