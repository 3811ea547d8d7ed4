package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/authenticator/internal/cache"
	"github.com/pribylovaa/authenticator/internal/config"
	"github.com/pribylovaa/authenticator/internal/email"
	"github.com/pribylovaa/authenticator/internal/metrics"
	"github.com/pribylovaa/authenticator/internal/oauth"
	"github.com/pribylovaa/authenticator/internal/service"
	"github.com/pribylovaa/authenticator/internal/storage/minio"
	"github.com/pribylovaa/authenticator/internal/storage/postgres"
	"github.com/pribylovaa/authenticator/internal/tokens"
	authhttp "github.com/pribylovaa/authenticator/internal/transport/http"
	"github.com/pribylovaa/authenticator/internal/transport/http/handlers"
	"github.com/pribylovaa/authenticator/internal/transport/http/middleware"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting authenticator", "env", cfg.Env)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	if err := run(rootCtx, cfg, log); err != nil {
		log.Error("service_failed", slog.String("err", err.Error()))
		rootCancel()
		os.Exit(1)
	}

	log.Info("service_stopped")
}

func run(rootCtx context.Context, cfg *config.Config, log *slog.Logger) error {
	// Подключения к зависимостям — с таймаутом.
	initCtx, initCancel := context.WithTimeout(rootCtx, 10*time.Second)
	defer initCancel()

	str, err := postgres.New(initCtx, cfg.DB.DatabaseURL)
	if err != nil {
		log.Error("postgres_connect_failed", slog.String("err", err.Error()))
		return err
	}
	defer str.Close()
	log.Info("postgres_connected")

	if err := postgres.Migrate(cfg.DB.DatabaseURL); err != nil {
		log.Error("postgres_migrate_failed", slog.String("err", err.Error()))
		return err
	}
	log.Info("postgres_migrated")

	rdb, err := cache.NewRedisClient(initCtx, cfg.Redis.RedisURL)
	if err != nil {
		log.Error("redis_connect_failed", slog.String("err", err.Error()))
		return err
	}
	defer func() {
		if cerr := rdb.Close(); cerr != nil {
			log.Warn("redis_close_failed", slog.String("err", cerr.Error()))
		}
	}()
	log.Info("redis_connected")

	avatars, err := minio.New(initCtx, cfg.S3)
	if err != nil {
		log.Error("s3_connect_failed", slog.String("err", err.Error()))
		return err
	}
	log.Info("s3_connected", slog.String("bucket", cfg.S3.Bucket))

	mtr := metrics.New(prometheus.DefaultRegisterer)

	tok, err := tokens.New(
		cache.NewNonceStore(rdb, cfg.Redis.Prefix),
		cfg.Secret.SecretKey,
		cfg.Secret.HMACSecret,
		tokens.WithOpTimeout(cfg.Timeouts.CacheOp),
		tokens.WithObserver(mtr),
	)
	if err != nil {
		return err
	}

	transport, err := email.NewTransport(cfg.Email)
	if err != nil {
		log.Error("email_transport_failed", slog.String("err", err.Error()))
		return err
	}
	if _, ok := transport.(email.LogTransport); ok {
		log.Warn("email_log_only", slog.String("reason", "email.host is empty"))
	}

	notifier, err := email.NewNotifier(transport, cfg.FrontendURL)
	if err != nil {
		return err
	}

	deps := service.Deps{
		Users:    str,
		Avatars:  avatars,
		Tokens:   tok,
		Notifier: notifier,
	}

	var (
		google *oauth.Google
		state  *oauth.StateSigner
	)
	if cfg.GoogleOAuth.Enabled() {
		google = oauth.NewGoogle(cfg.GoogleOAuth)
		state = oauth.NewStateSigner(cfg.Secret.HMACSecret, 0)
		deps.OAuth = google
		log.Info("google_oauth_enabled")
	}

	svc := service.New(deps, service.Config{
		BaseURL:           cfg.HTTP.BaseURL,
		TokenTTL:          cfg.Secret.TokenExpiration,
		PasswordChangeTTL: cfg.Secret.PasswordChangeExpiration,
		MaxThumbnailBytes: cfg.S3.MaxThumbnailBytes,
	})
	log.Info("service_initialized")

	sessions := newSessionManager(cfg.Session, cache.NewSessionStore(rdb, cfg.Session.Prefix))

	h := handlers.New(handlers.Deps{
		Service:           svc,
		Sessions:          sessions,
		Google:            google,
		State:             state,
		FrontendURL:       cfg.FrontendURL,
		MaxThumbnailBytes: cfg.S3.MaxThumbnailBytes,
	})

	apiHandler := authhttp.NewRouter(h, sessions, authhttp.Options{
		Logger:   log,
		Timeout:  cfg.Timeouts.Request,
		Metrics:  mtr,
		BasePath: "/api",
	})

	var ready int32 // 0 — not ready; 1 — ready

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&ready) != 1 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := str.Ping(ctx); err != nil {
			http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
			return
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", apiHandler)

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           middleware.Chain(mux, middleware.Recover()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	ln, err := net.Listen("tcp", httpAddr)
	if err != nil {
		log.Error("http_listen_failed", slog.String("addr", httpAddr), slog.String("err", err.Error()))
		return err
	}

	log.Info("http_listen_start", slog.String("addr", httpAddr))

	serveErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	atomic.StoreInt32(&ready, 1)
	log.Info("authenticator_ready")

	var serveErr error
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case serveErr = <-serveErrCh:
		if serveErr != nil {
			log.Error("http_serve_failed", slog.String("err", serveErr.Error()))
		}
	}

	atomic.StoreInt32(&ready, 0)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	return serveErr
}

// newSessionManager настраивает scs: cookie HttpOnly, SameSite=Lax, хранилище — Redis.
func newSessionManager(cfg config.SessionConfig, store scs.Store) *scs.SessionManager {
	sm := scs.New()
	sm.Store = store
	sm.Lifetime = cfg.Lifetime
	if cfg.IdleTimeout > 0 {
		sm.IdleTimeout = cfg.IdleTimeout
	}
	sm.Cookie.Name = cfg.CookieName
	sm.Cookie.Path = "/"
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = cfg.CookieSecure
	sm.Cookie.Persist = true
	return sm
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
