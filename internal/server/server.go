// Package server exposes the DocFlow HTTP API and the live push channel.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nhle/docflow/internal/auth"
	"github.com/nhle/docflow/internal/broadcast"
	"github.com/nhle/docflow/internal/model"
	"github.com/nhle/docflow/internal/ratelimit"
	"github.com/nhle/docflow/internal/store"
)

// DefaultPingInterval is how often the push channel sends keepalives.
const DefaultPingInterval = 30 * time.Second

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators the server is built from. DB and Issuer are
// required; the rest fall back to in-process defaults.
type Deps struct {
	DB     *store.DB
	Issuer *auth.Issuer

	// Hub receives activities for local push channel subscribers.
	Hub *broadcast.Hub

	// Publisher fans new activities out. Defaults to Hub; set it to a
	// RedisBus to reach subscribers on other instances.
	Publisher broadcast.Publisher

	// Limiter throttles admin routes. Defaults to 60 requests a minute
	// per tenant and endpoint.
	Limiter ratelimit.Limiter

	Logger       *slog.Logger
	DevMode      bool
	PingInterval time.Duration
}

// Server serves the public and admin API.
type Server struct {
	db         *store.DB
	issuer     *auth.Issuer
	hub        *broadcast.Hub
	publisher  broadcast.Publisher
	limiter    ratelimit.Limiter
	log        *slog.Logger
	devMode    bool
	pingEvery  time.Duration
	activities *store.ActivityStore
	customers  *store.CustomerStore
	leads      *store.LeadStore
	router     *gin.Engine

	feeds     context.Context
	stopFeeds context.CancelFunc
}

// New wires the routes.
func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Hub == nil {
		d.Hub = broadcast.NewHub(broadcast.DefaultBuffer, d.Logger)
	}
	if d.Publisher == nil {
		d.Publisher = d.Hub
	}
	if d.Limiter == nil {
		d.Limiter = ratelimit.NewMemoryLimiter(60, time.Minute)
	}
	if d.PingInterval <= 0 {
		d.PingInterval = DefaultPingInterval
	}

	s := &Server{
		db:         d.DB,
		issuer:     d.Issuer,
		hub:        d.Hub,
		publisher:  d.Publisher,
		limiter:    d.Limiter,
		log:        d.Logger,
		devMode:    d.DevMode,
		pingEvery:  d.PingInterval,
		activities: store.NewActivityStore(d.DB),
		customers:  store.NewCustomerStore(d.DB),
		leads:      store.NewLeadStore(d.DB),
	}
	s.feeds, s.stopFeeds = context.WithCancel(context.Background())
	s.router = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(requestID(), requestLogger(s.log), gin.Recovery())

	router.GET("/healthz", s.handleHealth)
	router.GET("/readyz", s.handleReady)

	api := router.Group("/api")
	{
		api.POST("/leads", s.handleSubmitLead)
		api.POST("/roi", s.handleROI)
		api.POST("/roi/cashflow", s.handleCashflow)
	}

	admin := api.Group("/admin")
	admin.Use(auth.Middleware(s.issuer, s.devMode), rateLimit(s.limiter, s.log))
	{
		admin.GET("/activities", s.handleListActivities)
		admin.POST("/activities", s.handleCreateActivity)
		admin.GET("/feed", s.handleFeed)

		admin.GET("/customers", s.handleListCustomers)
		admin.POST("/customers", s.handleCreateCustomer)
		admin.GET("/customers/:id", s.handleGetCustomer)
		admin.PATCH("/customers/:id", s.handleUpdateCustomer)
		admin.DELETE("/customers/:id", s.handleDeleteCustomer)
		admin.POST("/customers/:id/contact", s.handleContactCustomer)

		admin.GET("/ocr/errors", s.handleListOCRErrors)
		admin.POST("/ocr/errors", s.handleOCRAction)

		admin.GET("/leads", auth.RequireRole(model.RoleAdmin, model.RoleSupport), s.handleListLeads)
	}

	return router
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	// Hijacked push channel connections are not drained by Shutdown.
	srv.RegisterOnShutdown(s.stopFeeds)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server: listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serving on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
