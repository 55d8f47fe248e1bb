package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/connectapp/apiserver/config"
	"github.com/connectapp/apiserver/internal/db"
	"github.com/connectapp/apiserver/internal/handlers"
	"github.com/connectapp/apiserver/internal/metrics"
	"github.com/connectapp/apiserver/internal/middlewares"
	"github.com/connectapp/apiserver/internal/mq"
	"github.com/connectapp/apiserver/internal/services"
	"github.com/connectapp/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *db.DB
	mq         *mq.MQ
}

// New opens the store, applies migrations when enabled, connects the event
// backend and wires the API router.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, cfg); err != nil {
			return nil, err
		}
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	mqClient, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	var events *services.EventPublisher
	if mqClient != nil {
		events = services.NewEventPublisher(mqClient, cfg.MQ.Channel)
	}

	accountService := services.NewAccountService(store.NewUserRepository(dbConn), cfg.Auth.BcryptCost, events)
	contentService := services.NewContentService(store.NewPostRepository(dbConn), events)
	engagementService := services.NewEngagementService(store.NewLikeRepository(dbConn), events)

	actionHandler := handlers.NewActionHandler(accountService, contentService, engagementService, dbConn, handlers.ActionOptions{
		Tokens:       handlers.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		RequireToken: cfg.Auth.RequireToken,
	})

	router := NewRouter(cfg, actionHandler, dbConn)

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		mq:         mqClient,
	}, nil
}

// NewRouter builds the chi router with middleware, the action endpoint,
// health and metrics routes.
func NewRouter(cfg config.Config, actionHandler *handlers.ActionHandler, pinger handlers.Pinger) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middlewares.RequestLogger,
		metrics.Handler,
		middleware.Timeout(60*time.Second),
		cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         300,
		}),
	)
	router.Get("/healthz", handlers.Healthz(pinger))
	router.Method(http.MethodGet, "/metrics", metrics.Exposer())
	router.Group(func(r chi.Router) {
		handlers.ActionRouter(r, actionHandler)
	})
	router.Route("/api", func(r chi.Router) {
		handlers.ActionRouter(r, actionHandler)
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	log.WithField("addr", s.httpServer.Addr).Info("server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then closes the event backend and
// the store.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if closeErr := s.mq.Close(); closeErr != nil {
		log.WithError(closeErr).Warn("close event backend")
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
