package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/ragnet-project/ragnet/internal/client"
	"github.com/ragnet-project/ragnet/internal/config"
	"github.com/ragnet-project/ragnet/internal/events"
	"github.com/ragnet-project/ragnet/internal/journal"
	intnet "github.com/ragnet-project/ragnet/internal/network"
	"github.com/ragnet-project/ragnet/internal/util"
)

// Server is the REST API server for the ragnet gateway.
type Server struct {
	cfg      *config.Config
	eventBus *events.Bus
	gateway  *client.Gateway
	journal  *journal.Journal

	httpServer *http.Server
	router     *gin.Engine
}

// NewServer creates a new API server. The journal may be nil when
// journaling is disabled.
func NewServer(cfg *config.Config, eventBus *events.Bus, gateway *client.Gateway, jnl *journal.Journal) *Server {
	if cfg.GetApplicationData().Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	return &Server{
		cfg:      cfg,
		eventBus: eventBus,
		gateway:  gateway,
		journal:  jnl,
	}
}

// Start initializes and starts the API server. It blocks until the
// context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	appData := s.cfg.GetApplicationData()

	s.router = s.buildRouter()

	addr := fmt.Sprintf(":%d", appData.API.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if appData.Security.TLSEnabled {
		// Generate a self-signed pair on first start if none provided.
		certFile, keyFile := appData.Security.TLSCertFile, appData.Security.TLSKeyFile
		if !util.FileExists(certFile) || !util.FileExists(keyFile) {
			hosts := []string{"localhost", "127.0.0.1", util.GetSystemInfo().Hostname}
			if err := util.GenerateSelfSignedCert(certFile, keyFile, hosts...); err != nil {
				return fmt.Errorf("failed to generate API TLS certificate: %w", err)
			}
		}
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return fmt.Errorf("failed to load API TLS certificate: %w", err)
		}
		s.httpServer.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}
	}

	// SO_REUSEADDR for immediate rebinding after restart.
	lc := intnet.ReuseAddrListenConfig()
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("API server error: %w", err)
	}

	log.Info().Str("addr", addr).Msg("REST API server starting")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if s.httpServer.TLSConfig != nil {
		tlsListener := tls.NewListener(ln, s.httpServer.TLSConfig)
		err = s.httpServer.Serve(tlsListener)
	} else {
		err = s.httpServer.Serve(ln)
	}

	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("API server error: %w", err)
	}

	return nil
}

// buildRouter creates the Gin router with all routes and middleware.
func (s *Server) buildRouter() *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(RequestLogger())
	router.Use(SecurityHeaders())

	appData := s.cfg.GetApplicationData()

	allowedOrigins := appData.Security.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // must be false when AllowOrigins is "*"
		MaxAge:           12 * time.Hour,
	}))

	rateLimiter := NewRateLimiter(appData.Security.RateLimitRPS)
	router.Use(rateLimiter.Middleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := router.Group("/api/public")
	{
		public.GET("/ping", s.handlePing)
		public.GET("/info", s.handleInfo)
	}

	session := router.Group("/api/session")
	{
		session.GET("/status", s.handleSessionStatus)
		session.POST("/say", s.handleSay)
		session.POST("/walk", s.handleWalk)
	}

	epochs := router.Group("/api/epochs")
	{
		epochs.GET("", s.handleListEpochs)
		epochs.GET("/:id/opcodes", s.handleEpochOpcodes)
	}

	jnl := router.Group("/api/journal")
	{
		jnl.GET("/recent", s.handleJournalRecent)
		jnl.GET("/stats", s.handleJournalStats)
		jnl.GET("/type/:type", s.handleJournalByType)
	}

	system := router.Group("/api/system")
	{
		system.GET("/stats", s.handleSystemStats)
	}

	configure := router.Group("/api/configure")
	{
		configure.GET("/get_config", s.handleGetConfig)
		configure.POST("/set_game_data", s.handleSetGameData)
		configure.POST("/set_app_data", s.handleSetAppData)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
	})

	return router
}

// Stop gracefully stops the API server.
func (s *Server) Stop() error {
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
