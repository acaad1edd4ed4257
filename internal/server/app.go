// Package server wires the gateway together: database, migrations, session
// store, identity service, OAuth strategies and the HTTP and gRPC servers.
// It owns every long-lived resource and shuts them down on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/logingate/internal/logging"
	"github.com/dmitrijs2005/logingate/internal/server/config"
	"github.com/dmitrijs2005/logingate/internal/server/metrics"
	"github.com/dmitrijs2005/logingate/internal/server/oauth"
	"github.com/dmitrijs2005/logingate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/logingate/internal/server/services"
	"github.com/dmitrijs2005/logingate/internal/server/session"
	"github.com/dmitrijs2005/logingate/internal/server/strategies"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/logingate/internal/server/grpc"
	gh "github.com/dmitrijs2005/logingate/internal/server/http"
)

const (
	migrationTimeout    = 30 * time.Second
	shutdownTimeout     = 10 * time.Second
	healthCheckInterval = 15 * time.Second
	sessionPurgeEvery   = 10 * time.Minute
	limiterSweepEvery   = time.Minute
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    *redis.Client
	sqlStore *session.SQLStore
	web      *gh.Server
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewJSON(os.Stdout, logging.ParseLevel(c.LogLevel))

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()

	ctx, cancel := context.WithTimeout(context.Background(), migrationTimeout)
	defer cancel()

	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}

	var store session.Store
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.close()
			return nil, fmt.Errorf("redis init error: %w", err)
		}
		store = session.NewRedisStore(app.redis)
		logger.Info(ctx, "sessions stored in redis", "addr", c.RedisAddr)
	} else {
		app.sqlStore = session.NewSQLStore(rm.Sessions(db), c.QueryTimeout)
		store = app.sqlStore
		logger.Info(ctx, "sessions stored in postgres")
	}

	mx := metrics.New()
	identity := services.NewIdentityService(db, rm, c, logger, mx)
	sessions := session.NewManager(store, c.SessionTTL, c.SecureCookies, logger)
	reg := newStrategies(c)

	logger.Info(ctx, "strategies registered", "names", reg.Names())

	web, err := gh.NewServer(c, identity, sessions, reg, mx, logger)
	if err != nil {
		app.close()
		return nil, err
	}
	app.web = web

	return app, nil
}

// newStrategies registers an OAuth provider for every credential pair present.
func newStrategies(c *config.Config) *strategies.Registry {
	var providers []oauth.Provider
	if c.GoogleEnabled() {
		providers = append(providers, oauth.NewGoogle(c.GoogleClientID, c.GoogleClientSecret))
	}
	if c.FacebookEnabled() {
		providers = append(providers, oauth.NewFacebook(c.FacebookAppID, c.FacebookAppSecret))
	}
	return strategies.NewRegistry(providers...)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc, handler http.Handler) {

	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "http server listening", "addr", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.db, healthCheckInterval)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// purgeSessions deletes expired rows from the Postgres session table.
// Redis expires keys on its own.
func (app *App) purgeSessions(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.sqlStore.Purge(ctx)
			if err != nil {
				if ctx.Err() == nil {
					app.logger.Error(ctx, "session purge", "error", err)
				}
				continue
			}
			if n > 0 {
				app.logger.Debug(ctx, "expired sessions purged", "count", n)
			}
		}
	}
}

func (app *App) close() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(context.Background(), "redis close", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close", "error", err)
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc, app.web.Router())
	}()

	if app.config.EndpointAddrGRPC != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	if app.sqlStore != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.purgeSessions(ctx, sessionPurgeEvery)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.web.StartLimiterJanitor(ctx, limiterSweepEvery)
	}()

	wg.Wait()

	app.close()
	app.logger.Info(context.Background(), "App stopped")
}
