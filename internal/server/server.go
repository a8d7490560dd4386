package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/burncare/apiserver/config"
	"github.com/burncare/apiserver/internal/cache"
	"github.com/burncare/apiserver/internal/db"
	"github.com/burncare/apiserver/internal/handlers"
	"github.com/burncare/apiserver/internal/identity"
	"github.com/burncare/apiserver/internal/logger"
	"github.com/burncare/apiserver/internal/mq"
	"github.com/burncare/apiserver/internal/services"
	"github.com/burncare/apiserver/internal/storage"
	"github.com/burncare/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const (
	IdentityModeKeycloak = "keycloak"
	IdentityModeMemory   = "memory"
)

// AccountStore is the account persistence the routes need.
type AccountStore interface {
	services.AccountRepository
	services.AccountCounter
}

// BurnoutStore is the burnout result persistence the routes need.
type BurnoutStore interface {
	services.BurnoutRepository
	services.ResultAggregator
}

// FatigueStore is the fatigue result persistence the routes need.
type FatigueStore interface {
	services.FatigueRepository
	services.ResultAggregator
}

// Deps holds the collaborators the router is built from. Events, Cache and
// Snapshots are optional.
type Deps struct {
	Accounts AccountStore
	Burnout  BurnoutStore
	Fatigue  FatigueStore
	Identity identity.Provider
	Verifier handlers.TokenVerifier

	Events       services.EventPublisher
	EventChannel string
	Cache        services.StatsCache
	Snapshots    services.SnapshotStore
}

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *zap.Logger
	closers    []func() error
}

// identityBackend is what a configured identity mode must provide.
type identityBackend interface {
	identity.Provider
	identity.KeySource
	Issuer() string
}

// New opens every configured resource and builds the server.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*Server, error) {
	log = logger.OrNop(log)
	s := &Server{log: log}

	deps, err := s.open(ctx, cfg)
	if err != nil {
		_ = s.close()
		return nil, err
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.router = NewRouter(deps, NewMetrics(), log)
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) open(ctx context.Context, cfg config.Config) (Deps, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return Deps{}, err
	}
	s.closers = append(s.closers, dbConn.Close)

	idp, err := newIdentity(ctx, cfg)
	if err != nil {
		return Deps{}, err
	}

	deps := Deps{
		Accounts:     store.NewAccountRepository(dbConn),
		Burnout:      store.NewBurnoutRepository(dbConn),
		Fatigue:      store.NewFatigueRepository(dbConn),
		Identity:     idp,
		Verifier:     identity.NewVerifier(idp, idp.Issuer()),
		EventChannel: cfg.Broker.Channel,
	}

	objects, err := s.openStorage(ctx, cfg.Storage)
	if err != nil {
		return Deps{}, err
	}
	if objects != nil {
		deps.Snapshots = objects
	}

	broker, err := mq.NewFromConfig(ctx, cfg.Broker)
	if err != nil {
		return Deps{}, err
	}
	if broker != nil {
		s.closers = append(s.closers, broker.Close)
		deps.Events = broker
	}

	if strings.TrimSpace(cfg.Redis.URL) != "" {
		statsCache, err := cache.NewStatsCacheFromURL(ctx, cfg.Redis.URL, cfg.Redis.StatsTTL)
		if err != nil {
			s.log.Warn("stats cache disabled", zap.Error(err))
		} else {
			s.closers = append(s.closers, statsCache.Close)
			deps.Cache = statsCache
		}
	}

	s.log.Info("server dependencies ready",
		zap.String("identity_mode", identityMode(cfg)),
		zap.String("issuer", idp.Issuer()),
		zap.Bool("snapshots", deps.Snapshots != nil),
		zap.Bool("events", deps.Events != nil),
		zap.Bool("stats_cache", deps.Cache != nil),
	)
	return deps, nil
}

// openStorage builds the snapshot store and registers its client for
// release on shutdown before the bucket is checked.
func (s *Server) openStorage(ctx context.Context, cfg config.StorageConfig) (*storage.Storage, error) {
	objects, err := storage.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	if objects == nil {
		return nil, nil
	}
	s.closers = append(s.closers, objects.Close)

	if err := objects.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", objects.Bucket(), err)
	}
	return objects, nil
}

func identityMode(cfg config.Config) string {
	mode := strings.ToLower(strings.TrimSpace(cfg.Identity.Mode))
	if mode == "" {
		return IdentityModeKeycloak
	}
	return mode
}

func newIdentity(ctx context.Context, cfg config.Config) (identityBackend, error) {
	switch mode := identityMode(cfg); mode {
	case IdentityModeKeycloak:
		client, err := identity.NewKeycloakClient(ctx, cfg.Keycloak)
		if err != nil {
			return nil, fmt.Errorf("init keycloak client: %w", err)
		}
		return client, nil
	case IdentityModeMemory:
		issuer := cfg.Keycloak.Issuer
		if issuer == "" {
			issuer = cfg.Keycloak.BaseURL + "/realms/" + cfg.Keycloak.Realm
		}
		provider, err := identity.NewMemoryProvider(issuer)
		if err != nil {
			return nil, fmt.Errorf("init memory identity provider: %w", err)
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unknown identity mode %q", mode)
	}
}

// NewRouter wires services and handlers onto a chi router.
func NewRouter(deps Deps, metrics *Metrics, log *zap.Logger) *chi.Mux {
	log = logger.OrNop(log)

	var events *services.AccountEvents
	if deps.Events != nil {
		events = services.NewAccountEvents(deps.Events, deps.EventChannel, log)
	}

	statsService := services.NewStatsService(deps.Accounts, deps.Burnout, deps.Fatigue, deps.Cache, deps.Snapshots, log)
	accountService := services.NewAccountService(deps.Accounts, deps.Burnout, deps.Fatigue, deps.Identity, events, log).
		WithStatsInvalidator(statsService)
	profileService := services.NewProfileService(deps.Accounts, deps.Identity, log)
	resultService := services.NewResultService(deps.Accounts, deps.Burnout, deps.Fatigue, log).
		WithStatsInvalidator(statsService)

	authMiddleware := handlers.RequireAuth(deps.Verifier)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		metrics.Middleware,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, accountService, metrics, log)
		})
		r.Route("/admin", func(r chi.Router) {
			handlers.AdminRouter(r, accountService, statsService, authMiddleware, log)
		})
		r.Route("/user", func(r chi.Router) {
			handlers.UserRouter(r, profileService, authMiddleware, log)
		})
		r.Route("/burnout-results", func(r chi.Router) {
			handlers.BurnoutRouter(r, resultService, authMiddleware, log)
		})
		r.Route("/fatigue-results", func(r chi.Router) {
			handlers.FatigueRouter(r, resultService, authMiddleware, log)
		})
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the database, storage,
// broker and cache connections.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	return errors.Join(err, s.close())
}

func (s *Server) close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
