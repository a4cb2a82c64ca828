package httpserver

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/trackex/realtime-status/internal/core/ports"
	customMiddleware "github.com/trackex/realtime-status/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	TLSCertFile       string
	TLSKeyFile        string
	HeartbeatInterval time.Duration
	SinkBuffer        int
}

type ServerDeps struct {
	LicenseService      ports.LicenseService
	PresenceService     ports.PresenceService
	AgentVersionService ports.AgentVersionService
	RateLimiterService  ports.RateLimiterService
	Hub                 ports.BroadcastHub
	Cache               ports.TieredCache
	HealthCheckers      []ports.HealthChecker
}

type Server struct {
	echo            *echo.Echo
	config          *ServerConfig
	logger          *logrus.Logger
	licenseSvc      ports.LicenseService
	presenceSvc     ports.PresenceService
	agentVersionSvc ports.AgentVersionService
	hub             ports.BroadcastHub
	cache           ports.TieredCache
	middleware      *customMiddleware.MiddlewareCollection
	healthCheckers  []ports.HealthChecker

	// shutdown is closed when Shutdown begins so long-lived streaming
	// connections can run their cleanup instead of pinning the server until
	// the shutdown deadline.
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

func NewServer(serverConfig *ServerConfig, jwtSecret string, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()

	server := &Server{
		echo:            e,
		config:          serverConfig,
		logger:          logger,
		licenseSvc:      deps.LicenseService,
		presenceSvc:     deps.PresenceService,
		agentVersionSvc: deps.AgentVersionService,
		hub:             deps.Hub,
		cache:           deps.Cache,
		healthCheckers:  deps.HealthCheckers,
		shutdown:        make(chan struct{}),
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.LicenseService,
			deps.RateLimiterService,
			logger,
			jwtSecret,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
