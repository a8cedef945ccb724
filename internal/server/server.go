package server

import (
	"context"
	"net/http"
	"time"

	"github.com/aman-churiwal/api-manager/internal/config"
	"github.com/aman-churiwal/api-manager/internal/dispatcher"
	"github.com/aman-churiwal/api-manager/internal/handler"
	"github.com/aman-churiwal/api-manager/internal/middleware"
	"github.com/aman-churiwal/api-manager/internal/repository"
	"github.com/aman-churiwal/api-manager/internal/service"
	"github.com/aman-churiwal/api-manager/internal/settings"
	"github.com/aman-churiwal/api-manager/internal/storage"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type Server struct {
	router     *gin.Engine
	config     *config.Config
	db         *storage.Database
	redis      *storage.RedisClient // nil when redis is disabled
	dispatcher *dispatcher.Dispatcher
	retention  *service.RetentionCleaner
	httpServer *http.Server

	authService   *service.AuthService
	apiKeyService *service.APIKeyService

	authHandler      *handler.AuthHandler
	apiHandler       *handler.APIHandler
	endpointHandler  *handler.EndpointHandler
	callLogHandler   *handler.CallLogHandler
	analyticsHandler *handler.AnalyticsHandler
	apiKeyHandler    *handler.APIKeyHandler
	systemHandler    *handler.SystemHandler
}

func New(cfg *config.Config, db *storage.Database, redis *storage.RedisClient) (*Server, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	handler.RegisterValidation()

	validator, err := settings.NewValidator()
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(db)
	apiRepo := repository.NewAPIRepository(db)
	endpointRepo := repository.NewEndpointRepository(db)
	callLogRepo := repository.NewCallLogRepository(db)
	apiKeyRepo := repository.NewAPIKeyRepository(db)

	d := dispatcher.New(callLogRepo, cfg.Dispatch)

	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	analyticsService := service.NewAnalyticsService(callLogRepo, endpointRepo)
	apiService := service.NewAPIService(apiRepo, validator)
	endpointService := service.NewEndpointService(endpointRepo, apiRepo, analyticsService)
	callLogService := service.NewCallLogService(callLogRepo, endpointRepo, d, analyticsService, redis, cfg.RateLimit)
	apiKeyService := service.NewAPIKeyService(apiKeyRepo, redis)

	s := &Server{
		router:     gin.New(),
		config:     cfg,
		db:         db,
		redis:      redis,
		dispatcher: d,

		authService:   authService,
		apiKeyService: apiKeyService,

		authHandler:      handler.NewAuthHandler(authService),
		apiHandler:       handler.NewAPIHandler(apiService),
		endpointHandler:  handler.NewEndpointHandler(endpointService),
		callLogHandler:   handler.NewCallLogHandler(callLogService),
		analyticsHandler: handler.NewAnalyticsHandler(analyticsService, callLogService),
		apiKeyHandler:    handler.NewAPIKeyHandler(apiKeyService),
		systemHandler:    handler.NewSystemHandler(d),
	}

	if cfg.Retention.Enabled {
		s.retention = service.NewRetentionCleaner(apiRepo, callLogRepo, cfg.Retention.Interval)
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.RequireJSON())
	s.router.Use(middleware.APIKeyValidator(s.apiKeyService))
	s.router.Use(middleware.RateLimit(s.redis, s.config.RateLimit))
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	auth := s.router.Group("/auth")
	{
		auth.POST("/register", s.authHandler.Register)
		auth.POST("/login", s.authHandler.Login)
	}

	admin := s.router.Group("/admin")
	admin.Use(middleware.RequireAuth(s.authService))
	{
		admin.GET("/status", s.adminStatus)

		admin.GET("/users", s.authHandler.ListUsers)
		admin.GET("/users/filter", s.authHandler.FilterUsers)
		admin.GET("/users/:id", s.authHandler.GetUser)
		admin.PUT("/users/:id", s.authHandler.UpdateUser)
		admin.PATCH("/users/:id/status", s.authHandler.SetUserStatus)
		admin.DELETE("/users/:id", s.authHandler.DeleteUser)

		admin.GET("/apis", s.apiHandler.List)
		admin.POST("/apis", s.apiHandler.Create)
		admin.GET("/apis/:id", s.apiHandler.Get)
		admin.PUT("/apis/:id", s.apiHandler.Replace)
		admin.DELETE("/apis/:id", s.apiHandler.Delete)
		admin.GET("/apis/:id/settings", s.apiHandler.Settings)
		admin.GET("/apis/:id/settings/:category", s.apiHandler.Category)
		admin.PUT("/apis/:id/settings/:category", s.apiHandler.ReplaceCategory)

		admin.GET("/endpoints", s.endpointHandler.List)
		admin.POST("/endpoints", s.endpointHandler.Create)
		admin.GET("/endpoints/search", s.endpointHandler.Search)
		admin.GET("/endpoints/filter", s.endpointHandler.Filter)
		admin.GET("/endpoints/analytics", s.endpointHandler.Analytics)
		admin.GET("/endpoints/history", s.endpointHandler.History)
		admin.GET("/endpoints/:id", s.endpointHandler.Get)
		admin.PUT("/endpoints/:id", s.endpointHandler.Update)
		admin.DELETE("/endpoints/:id", s.endpointHandler.Delete)
		admin.PATCH("/endpoints/:id/status", s.endpointHandler.SetStatus)
		admin.GET("/endpoints/:id/performance", s.endpointHandler.Performance)

		admin.GET("/call-logs", s.callLogHandler.List)
		admin.POST("/call-logs", s.callLogHandler.Dispatch)
		admin.GET("/call-logs/search", s.callLogHandler.Search)
		admin.GET("/call-logs/filter", s.callLogHandler.Filter)
		admin.GET("/call-logs/analytics", s.callLogHandler.Statistics)
		admin.GET("/call-logs/:id", s.callLogHandler.Get)
		admin.PUT("/call-logs/:id", s.callLogHandler.Update)
		admin.DELETE("/call-logs/:id", s.callLogHandler.Delete)

		admin.GET("/performance", s.analyticsHandler.GetSummary)
		admin.GET("/performance/logs", s.analyticsHandler.GetLogs)
		admin.GET("/performance/filter", s.analyticsHandler.FilterLogs)

		admin.GET("/keys", s.apiKeyHandler.List)
		admin.POST("/keys", s.apiKeyHandler.Create)
		admin.GET("/keys/search", s.apiKeyHandler.Search)
		admin.GET("/keys/filter", s.apiKeyHandler.Filter)
		admin.GET("/keys/analytics", s.apiKeyHandler.Analytics)
		admin.GET("/keys/:id", s.apiKeyHandler.Get)
		admin.PUT("/keys/:id", s.apiKeyHandler.Update)
		admin.DELETE("/keys/:id", s.apiKeyHandler.Delete)
		admin.POST("/keys/:id/regenerate", s.apiKeyHandler.Regenerate)
		admin.POST("/keys/:id/revoke", s.apiKeyHandler.Revoke)

		admin.GET("/system/circuit-breakers", s.systemHandler.CircuitBreakerStatus)
		admin.POST("/system/circuit-breakers/:endpoint/reset", s.systemHandler.ResetCircuitBreaker)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	checks := gin.H{}
	healthy := true

	if err := s.db.Ping(ctx); err != nil {
		healthy = false
		checks["database"] = false
		log.WithError(err).Warn("database health check failed")
	} else {
		checks["database"] = true
	}

	if s.redis != nil {
		if err := s.redis.Ping(ctx); err != nil {
			healthy = false
			checks["redis"] = false
			log.WithError(err).Warn("redis health check failed")
		} else {
			checks["redis"] = true
		}
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !healthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "api-manager",
		"version":   "1.0.0",
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

func (s *Server) adminStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"manager":          "running",
		"circuit_breakers": len(s.dispatcher.Breakers()),
		"redis":            s.redis != nil,
		"retention":        s.retention != nil,
		"uptime":           time.Since(startTime).Seconds(),
		"timestamp":        time.Now().Unix(),
	})
}

// Starts background workers; they stop when ctx is cancelled
func (s *Server) StartWorkers(ctx context.Context) {
	if s.retention != nil {
		s.retention.Start(ctx)
	}
}

func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	log.Infof("Starting API manager on %s", addr)
	log.Infof("Environment: %s", s.config.Server.Environment)

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info("Shutting down server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

var startTime = time.Now()
