package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erazemk/storeroom/internal/api"
	"github.com/erazemk/storeroom/internal/auth"
	"github.com/erazemk/storeroom/internal/config"
	"github.com/erazemk/storeroom/internal/db"
	"github.com/erazemk/storeroom/internal/events"
	"github.com/erazemk/storeroom/internal/logger"
	"github.com/erazemk/storeroom/internal/model"
	"github.com/erazemk/storeroom/internal/stock"
	"github.com/erazemk/storeroom/internal/store"
)

type flags struct {
	config    string
	dbPath    string
	addr      string
	adminUser string
	logPath   string
}

func parseFlags(args []string) (*flags, error) {
	fs := flag.NewFlagSet("storeroom", flag.ContinueOnError)

	var f flags
	fs.StringVar(&f.config, "config", "", "")
	fs.StringVar(&f.config, "c", "", "")
	fs.StringVar(&f.dbPath, "db", "", "")
	fs.StringVar(&f.dbPath, "d", "", "")
	fs.StringVar(&f.addr, "addr", "", "")
	fs.StringVar(&f.addr, "a", "", "")
	fs.StringVar(&f.adminUser, "user", "", "")
	fs.StringVar(&f.adminUser, "u", "", "")
	fs.StringVar(&f.logPath, "log", "", "")
	fs.StringVar(&f.logPath, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: storeroom [flags]

Flags:
  -c, -config <path>      YAML config file (default: $CONFIG_PATH, else env only)
  -d, -db <path>          SQLite database path (default: storeroom.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin username on first run (default: admin)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Flags override the config file and environment.
`)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return &f, nil
}

// apply overrides config values with any flags that were given.
func (f *flags) apply(cfg *config.Config) {
	if f.dbPath != "" {
		cfg.Database.Path = f.dbPath
	}
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.adminUser != "" {
		cfg.Auth.AdminUsername = f.adminUser
	}
	if f.logPath != "" {
		cfg.Log.File = f.logPath
	}
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(f.config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	f.apply(cfg)

	log, closeLog, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg, log); err != nil {
		log.Error("storeroom stopped", zap.Error(err))
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	applied, err := db.Migrate(ctx, database)
	if err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	log.Info("database ready", zap.String("path", cfg.Database.Path), zap.Int("migrations_applied", applied))

	if err := bootstrapAdmin(ctx, database, cfg.Auth.AdminUsername); err != nil {
		return err
	}

	if n, err := store.PurgeRevokedTokens(ctx, database, time.Now()); err != nil {
		log.Warn("purging revoked tokens", zap.Error(err))
	} else if n > 0 {
		log.Info("purged expired token revocations", zap.Int64("count", n))
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		// Auto-generated on first run and kept in the database.
		if secret, err = store.GetJWTSecret(ctx, database); err != nil {
			return fmt.Errorf("loading JWT secret: %w", err)
		}
	}

	publisher, err := newPublisher(cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("closing event publisher", zap.Error(err))
		}
	}()

	repo := store.NewStockRepository(database)
	engine := stock.NewEngine(repo, repo, store.NewTxManager(database),
		stock.WithPublisher(publisher),
		stock.WithLogger(log.Named("stock")),
	)

	gin.SetMode(cfg.Server.Mode)
	router := api.NewRouter(api.Deps{
		DB:          database,
		Engine:      engine,
		Tokens:      auth.NewManager(secret, cfg.Auth.TokenTTL),
		Log:         log.Named("http"),
		Auth:        cfg.Auth,
		Idempotency: cfg.Idempotency,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		defer close(done)
		sig := <-quit
		log.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	log.Info("server started", zap.String("addr", cfg.Server.Addr), zap.String("mode", cfg.Server.Mode))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	<-done

	log.Info("server stopped, closing database")
	return nil
}

// bootstrapAdmin creates an admin account with a generated password when no
// active admin exists, and prints the credentials once.
func bootstrapAdmin(ctx context.Context, database *sql.DB, username string) error {
	n, err := store.CountAdmins(ctx, database)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	password, err := auth.GeneratePassword(16)
	if err != nil {
		return fmt.Errorf("generating password: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if _, err := store.CreateUser(ctx, database, username, hash, model.RoleAdmin); err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
	fmt.Println()
	return nil
}

func newPublisher(cfg config.KafkaConfig, log *zap.Logger) (events.Publisher, error) {
	if !cfg.Enabled {
		return events.NopPublisher{}, nil
	}
	p, err := events.NewKafkaPublisher(cfg, log.Named("events"))
	if err != nil {
		return nil, fmt.Errorf("connecting to kafka: %w", err)
	}
	log.Info("publishing stock events to kafka",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)
	return p, nil
}
