package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrSnakeDoc/smartmark/internal/auth"
	"github.com/MrSnakeDoc/smartmark/internal/config"
	"github.com/MrSnakeDoc/smartmark/internal/connect"
	"github.com/MrSnakeDoc/smartmark/internal/dashboard"
	"github.com/MrSnakeDoc/smartmark/internal/domain"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver"
	"github.com/MrSnakeDoc/smartmark/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmark/internal/logger"
	"github.com/MrSnakeDoc/smartmark/internal/redis"
	"github.com/MrSnakeDoc/smartmark/internal/store/memory"
	"github.com/MrSnakeDoc/smartmark/internal/store/postgres"
	redisstore "github.com/MrSnakeDoc/smartmark/internal/store/redis"
	"github.com/MrSnakeDoc/smartmark/internal/utils"
	"github.com/MrSnakeDoc/smartmark/internal/version"
)

const sseHeartbeat = 25 * time.Second

// backend is a bookmark store that also keeps the session revocation list.
type backend interface {
	domain.Store
	auth.Revoker
}

type App struct {
	cfg    *config.Config
	logger logger.Logger
	server *httpserver.Server
	store  backend
	views  *dashboard.Registry
}

func New() (*App, error) {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Fail fast if the store is unavailable
	store, err := openStore(cfg, loggerClient)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}
	loggerClient.Info("store initialized", logger.String("kind", cfg.Store))

	sessions := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookies, store)
	provider := auth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.RedirectURL())
	views := dashboard.NewRegistry()

	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		TimeNow:      time.Now,
		AllowedHosts: cfg.AllowedHosts,
		AllowedCIDRS: cfg.AllowedCIDRS,
		TrustProxy:   cfg.TrustProxy,
		StoreKind:    cfg.Store,
		Store:        store,
		Sessions:     sessions,
		Provider:     provider,
		Views:        views,
		APIBurst:     cfg.APIBurst,
		APIRefill:    cfg.APIRefillPerMin,
		SSEHeartbeat: sseHeartbeat,
	}

	return &App{
		cfg:    cfg,
		logger: loggerClient,
		server: httpserver.New(cfg, loggerClient, d),
		store:  store,
		views:  views,
	}, nil
}

func openStore(cfg *config.Config, log logger.Logger) (backend, error) {
	switch cfg.Store {
	case config.StoreRedis:
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(redis.ConnectOptions{
			Addr:         cfg.RedisAddr,
			User:         cfg.RedisUser,
			Password:     cfg.RedisPassword,
			RedisDB:      cfg.RedisDB,
			DialTimeout:  cfg.RedisDT,
			ReadTimeout:  cfg.RedisRT,
			WriteTimeout: cfg.RedisWT,
			PoolSize:     cfg.RedisPoolSize,
			Retry:        redisRetry(cfg),
		}, log)
		if err != nil {
			return nil, err
		}
		return redisstore.NewStore(client), nil
	case config.StorePostgres:
		s, err := postgres.Open(cfg.PostgresDSN, cfg.PostgresMaxConns, postgresRetry(cfg), log)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		log.Warn("using in-memory store, bookmarks are lost on restart")
		return memory.New(), nil
	}
}

func redisRetry(cfg *config.Config) connect.Options {
	return connect.Options{
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}
}

func postgresRetry(cfg *config.Config) connect.Options {
	return connect.Options{
		ConnectTimeout: cfg.PostgresConnectTimeout,
		RetryInterval:  cfg.PostgresRetryInterval,
		MaxWait:        cfg.PostgresMaxWait,
		PingTimeout:    cfg.PostgresPingTimeout,
		WarnThreshold:  cfg.PostgresWarnThreshold,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting smartmark %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	// Ends open event streams so Shutdown does not wait on them.
	a.views.UnmountAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	utils.CloseLogged(a.store, a.cfg.Store, a.logger)

	if runErr == nil {
		a.logger.Info("✅ smartmark stopped cleanly")
	}
	_ = a.logger.Sync()
	return runErr
}
