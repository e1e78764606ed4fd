// Package server is the composition root: it builds every dependency from
// the configuration, mounts the routes and runs the HTTP server.
//
//	config → sqlite.DB → repositories → services → handlers → chi router
//	       ↘ redis (optional) → session store / rate limiter
//	       ↘ OAuth providers
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/sakif/item-catalog/internal/auth"
	"github.com/sakif/item-catalog/internal/config"
	"github.com/sakif/item-catalog/internal/handler"
	"github.com/sakif/item-catalog/internal/middleware"
	sqliteRepo "github.com/sakif/item-catalog/internal/repository/sqlite"
	"github.com/sakif/item-catalog/internal/service"
	"github.com/sakif/item-catalog/internal/session"
)

// Server owns the router and the long-lived resources (database pool,
// Redis client) that must be closed on shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	redis  *redis.Client
}

// New opens the database and Redis, builds the OAuth providers from cfg and
// wires the routes.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	providers, err := buildProviders(cfg)
	if err != nil {
		return nil, err
	}
	return build(cfg, logger, providers)
}

func buildProviders(cfg *config.Config) ([]auth.Provider, error) {
	client := auth.NewHTTPClient(cfg.OAuthTimeout)
	var providers []auth.Provider

	if cfg.GoogleEnabled() {
		gcfg := auth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
		}
		if cfg.GoogleClientSecretsFile != "" {
			fromFile, err := auth.GoogleConfigFromFile(cfg.GoogleClientSecretsFile)
			if err != nil {
				return nil, err
			}
			gcfg = fromFile
		}
		providers = append(providers, auth.NewGoogleProvider(gcfg, client))
	}

	if cfg.FacebookEnabled() {
		providers = append(providers, auth.NewFacebookProvider(auth.FacebookConfig{
			AppID:     cfg.FacebookAppID,
			AppSecret: cfg.FacebookAppSecret,
		}, client))
	}

	return providers, nil
}

// build does the wiring with the providers already constructed.
func build(cfg *config.Config, logger *slog.Logger, providers []auth.Provider) (*Server, error) {
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setup(providers); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *Server) setup(providers []auth.Provider) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.config.RedisAddr != "" {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     s.config.RedisAddr,
			Password: s.config.RedisPassword,
		})
		if err := s.redis.Ping(ctx).Err(); err != nil {
			if s.config.SessionBackend == config.SessionBackendRedis {
				return fmt.Errorf("connecting to redis at %s: %w", s.config.RedisAddr, err)
			}
			s.logger.Warn("redis unreachable, rate limiting falls back to in-process",
				slog.String("addr", s.config.RedisAddr),
				slog.String("error", err.Error()),
			)
			s.redis.Close()
			s.redis = nil
		}
	}

	// === Sessions ===
	var store session.Store = s.db.Sessions()
	if s.config.SessionBackend == config.SessionBackendRedis {
		store = session.NewRedisStore(s.redis, "")
	}
	signer, err := session.NewTokenSigner(s.config.SessionSecret)
	if err != nil {
		return err
	}
	sessions := session.NewManager(store, signer, session.Config{
		TTL:    s.config.SessionTTL,
		Secure: s.config.SecureCookies,
	}, s.logger)

	// === Services ===
	catalog := service.NewCatalogService(s.db.Categories(), s.db.Items(), s.db.Users(), s.logger)
	if err := catalog.EnsureCategories(ctx, s.config.CategoryNames()); err != nil {
		return fmt.Errorf("seeding categories: %w", err)
	}
	authService := service.NewAuthService(s.db.Users(), sessions, s.logger, providers...)
	if len(providers) == 0 {
		s.logger.Warn("no OAuth provider configured, nobody can log in")
	}

	// === Handlers ===
	renderer, err := handler.NewTemplateRenderer()
	if err != nil {
		return err
	}
	catalogHandler := handler.NewCatalogHandler(catalog, sessions, renderer, s.logger)
	authHandler := handler.NewAuthHandler(authService, sessions, renderer, s.logger)

	limiter, err := s.connectLimiter()
	if err != nil {
		return err
	}

	s.routes(sessions, catalogHandler, authHandler, limiter)
	return nil
}

// connectLimiter picks the Redis limiter when Redis is available so that
// several instances share one quota. A zero CONNECT_RATE_LIMIT disables it.
func (s *Server) connectLimiter() (middleware.Limiter, error) {
	if s.config.ConnectRateLimit == 0 {
		return nil, nil
	}
	if s.redis != nil {
		limiter, err := middleware.NewRedisLimiter(s.redis, "", s.config.ConnectRateLimit, time.Minute)
		if err != nil {
			return nil, err
		}
		return limiter, nil
	}

	limiter, err := middleware.NewLocalLimiter(s.config.ConnectRateLimit, time.Minute)
	if err != nil {
		return nil, err
	}
	return limiter, nil
}

// routes mounts every endpoint. Trailing slashes are stripped before
// routing, so /catalog/Soccer/ and /catalog/Soccer are the same page.
//
// GET        /, /catalog                         home page
// GET        /catalog/JSON                       categories JSON
// GET, POST  /catalog/new                        create item
// GET        /catalog/{category}[/JSON]          category page / JSON
// GET        /catalog/{category}/{item}[/JSON]   item page / JSON
// GET, POST  /catalog/{category}/{item}/edit     edit item
// GET, POST  /catalog/{category}/{item}/delete   delete item
// GET        /login                              login page
// POST       /gconnect, /fbconnect               OAuth connect (rate limited)
// GET        /gdisconnect, /fbdisconnect         provider logout (JSON)
// GET        /disconnect                         logout + redirect
// GET        /healthz                            database ping
func (s *Server) routes(
	sessions *session.Manager,
	catalog *handler.CatalogHandler,
	authH *handler.AuthHandler,
	limiter middleware.Limiter,
) {
	r := s.router

	r.Use(chimiddleware.RequestID)
	// RealIP rewrites RemoteAddr from client-supplied headers. Without a
	// proxy in front, anyone could pick their own rate-limit key.
	if s.config.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.Logger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.StripSlashes)

	r.Get("/healthz", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(sessions.Middleware)

		r.Get("/", catalog.HandleHome)
		r.Get("/catalog", catalog.HandleHome)
		r.Get("/catalog/JSON", catalog.HandleCatalogJSON)
		r.Get("/catalog/new", catalog.HandleNewItem)
		r.Post("/catalog/new", catalog.HandleNewItem)

		r.Route("/catalog/{category}", func(r chi.Router) {
			r.Get("/", catalog.HandleCategory)
			r.Get("/JSON", catalog.HandleCategoryJSON)

			r.Route("/{item}", func(r chi.Router) {
				r.Get("/", catalog.HandleItem)
				r.Get("/JSON", catalog.HandleItemJSON)
				r.Get("/edit", catalog.HandleEditItem)
				r.Post("/edit", catalog.HandleEditItem)
				r.Get("/delete", catalog.HandleDeleteItem)
				r.Post("/delete", catalog.HandleDeleteItem)
			})
		})

		r.Get("/login", authH.HandleLogin)
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(middleware.RateLimit(limiter, s.logger))
			}
			r.Post("/gconnect", authH.HandleGoogleConnect)
			r.Post("/fbconnect", authH.HandleFacebookConnect)
		})
		r.Get("/gdisconnect", authH.HandleGoogleDisconnect)
		r.Get("/fbdisconnect", authH.HandleFacebookDisconnect)
		r.Get("/disconnect", authH.HandleDisconnect)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("ok"))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) close() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("closing redis", slog.String("error", err.Error()))
		}
	}
	if err := s.db.Close(); err != nil {
		s.logger.Warn("closing database", slog.String("error", err.Error()))
	}
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes the database and Redis.
func (s *Server) Start() error {
	defer s.close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
			slog.String("sessions", s.config.SessionBackend),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
