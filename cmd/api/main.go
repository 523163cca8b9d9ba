package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"backend-mapssaver/internal/config"
	"backend-mapssaver/internal/db"
	"backend-mapssaver/internal/logging"
	"backend-mapssaver/internal/server"
)

var mainDepsProvider = defaultDeps
var mainRunner = execute

func main() {
	if err := mainRunner(mainDepsProvider()); err != nil {
		os.Exit(1)
	}
}

type mainDeps struct {
	loadConfig      func() config.Config
	newLogger       func(config.Config) (*zap.Logger, io.Closer, error)
	connectPostgres func(config.Config, *zap.Logger) (*pgxpool.Pool, error)
	connectRedis    func(config.Config) *redis.Client
	migrate         func(string, *zap.Logger) error
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, *pgxpool.Pool, *redis.Client, *zap.Logger, <-chan os.Signal, ListenFunc) error
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		newLogger:       logging.New,
		connectPostgres: db.ConnectPostgres,
		connectRedis:    db.ConnectRedis,
		migrate:         db.Migrate,
		notify:          signal.Notify,
		run:             Run,
	}
}

func execute(deps mainDeps) error {
	return newRootCmd(deps).ExecuteContext(context.Background())
}

// flagKeys maps command line flags to the configuration keys they override.
var flagKeys = map[string]string{
	"port":      "SERVER_PORT",
	"db":        "POSTGRES_URL",
	"redis":     "REDIS_ADDR",
	"log-level": "LOG_LEVEL",
}

func newRootCmd(deps mainDeps) *cobra.Command {
	serveRun := func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context(), deps)
	}

	root := &cobra.Command{
		Use:          "mapssaver",
		Short:        "Stores GPS trips and converts them from and to GPX",
		SilenceUsage: true,
		RunE:         serveRun,
	}
	root.PersistentFlags().String("port", "", "listen address, e.g. :8080")
	root.PersistentFlags().String("db", "", "postgres connection string")
	root.PersistentFlags().String("redis", "", "redis address")
	root.PersistentFlags().String("log-level", "", "debug, info, warn or error")
	bindFlags(root.PersistentFlags(), viper.GetViper())

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE:  serveRun,
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(*cobra.Command, []string) error {
			return migrateUp(deps)
		},
	})
	return root
}

// bindFlags lets a flag given on the command line win over the environment.
func bindFlags(flags *pflag.FlagSet, v *viper.Viper) {
	flags.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			fmt.Fprintf(os.Stderr, "could not bind flag %s: %v\n", f.Name, err)
		}
	})
}

func setup(deps mainDeps) (config.Config, *zap.Logger, func(), error) {
	cfg := deps.loadConfig()
	if err := cfg.Validate(); err != nil {
		return cfg, nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log, closer, err := deps.newLogger(cfg)
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("logger: %w", err)
	}
	cleanup := func() {
		_ = log.Sync()
		_ = closer.Close()
	}
	return cfg, log, cleanup, nil
}

func serve(ctx context.Context, deps mainDeps) error {
	cfg, log, cleanup, err := setup(deps)
	if err != nil {
		return err
	}
	defer cleanup()

	pg, err := deps.connectPostgres(cfg, log)
	if err != nil {
		log.Error("postgres connection failed", zap.Error(err))
		return fmt.Errorf("connect postgres: %w", err)
	}

	rdb := deps.connectRedis(cfg)

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	log.Info("starting server", zap.String("addr", cfg.ServerPort))
	if err := deps.run(ctx, cfg, pg, rdb, log, signals, nil); err != nil {
		log.Error("server exited with error", zap.Error(err))
		return err
	}
	return nil
}

func migrateUp(deps mainDeps) error {
	cfg, log, cleanup, err := setup(deps)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := deps.migrate(cfg.PostgresURL, log); err != nil {
		log.Error("migration failed", zap.Error(err))
		return err
	}
	return nil
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP server and waits for termination signals.
func Run(ctx context.Context, cfg config.Config, pg *pgxpool.Pool, rdb *redis.Client, log *zap.Logger, signals <-chan os.Signal, listen ListenFunc) error {
	srv := server.NewServer(cfg, pg, rdb, log)

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		return err
	}
	if pg != nil {
		pg.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	return nil
}
