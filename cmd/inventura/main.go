package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erazemk/inventura/internal/api"
	"github.com/erazemk/inventura/internal/auth"
	"github.com/erazemk/inventura/internal/config"
	"github.com/erazemk/inventura/internal/db"
	"github.com/erazemk/inventura/internal/lock"
	"github.com/erazemk/inventura/internal/model"
	"github.com/erazemk/inventura/internal/store"
)

// levelRouter is a slog.Handler that routes INFO/WARN to stdout and ERROR+ to stderr.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. INFO/WARN go to stdout, ERROR goes
// to stderr. If logPath is non-empty, all levels are also written to that file.
// Returns a cleanup function that closes the log file (if opened).
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}

func main() {
	cfg, err := config.Load(os.Args[1:], os.Stdout)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a log file.
	closeLog, err := setupLogger(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	ctx := context.Background()

	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		password, err := initDatabase(ctx, cfg)
		if err != nil {
			slog.Error("failed to initialize database", "error", err)
			os.Exit(1)
		}
		printInitResult(cfg, password)
		fmt.Println()
	}

	// Open database.
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(database); err != nil {
		slog.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}

	// A database without users (e.g. the admin was deleted by hand) gets a
	// fresh admin account.
	users, err := store.CountUsers(ctx, database)
	if err != nil {
		slog.Error("failed to count users", "error", err)
		os.Exit(1)
	}
	if users == 0 {
		password, err := auth.GeneratePassword(16)
		if err != nil {
			slog.Error("failed to generate password", "error", err)
			os.Exit(1)
		}
		if err := createAdmin(ctx, database, cfg.AdminUser, password); err != nil {
			slog.Error("no active users and admin account could not be created", "error", err)
		} else {
			slog.Warn("no active users, admin account created", "username", cfg.AdminUser)
			fmt.Printf("Admin password: %s\n", password)
		}
	}

	slog.Info("database ready", "path", cfg.DBPath)

	// A configured secret wins; otherwise one is generated per database.
	jwtSecret, err := store.GetJWTSecret(ctx, database, cfg.JWTSecret)
	if err != nil {
		slog.Error("failed to get JWT secret", "error", err)
		os.Exit(1)
	}

	locks, closeLocks, err := newLocker(ctx, cfg)
	if err != nil {
		slog.Error("failed to set up locking", "error", err)
		os.Exit(1)
	}
	defer closeLocks()

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go purgeRevokedTokens(purgeCtx, database, tokenPurgeInterval)

	tokens, err := auth.NewTokens(jwtSecret, cfg.TokenTTL)
	if err != nil {
		slog.Error("failed to set up auth tokens", "error", err)
		os.Exit(1)
	}

	handler := api.LoggingMiddleware(api.NewRouter(database, cfg, tokens, locks))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Addr, "location_update", cfg.LocationUpdate)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped, closing database")
}

// tokenPurgeInterval is how often expired revocations are dropped.
const tokenPurgeInterval = time.Hour

// purgeRevokedTokens removes expired token revocations until ctx is done.
func purgeRevokedTokens(ctx context.Context, database *sql.DB, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		n, err := store.PurgeRevokedTokens(ctx, database, time.Now())
		if err != nil && ctx.Err() == nil {
			slog.Error("failed to purge revoked tokens", "error", err)
		} else if n > 0 {
			slog.Info("purged revoked tokens", "count", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// newLocker returns a Redis-backed locker when a Redis address is configured
// and an in-process one otherwise.
func newLocker(ctx context.Context, cfg *config.Config) (lock.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		slog.Info("using in-process locks")
		return lock.NewLocal(), func() {}, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rdb, err := lock.Dial(dialCtx, cfg.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("using redis locks", "addr", cfg.RedisAddr)
	return lock.NewRedis(rdb, lock.DefaultTTL), func() { rdb.Close() }, nil
}

// initDatabase creates a new database, ensures the schema, creates the admin
// user and optionally seeds reference data. The file is removed on failure.
func initDatabase(ctx context.Context, cfg *config.Config) (password string, err error) {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return "", fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		database.Close()
		if err != nil {
			os.Remove(cfg.DBPath)
		}
	}()

	if err := db.EnsureSchema(database); err != nil {
		return "", fmt.Errorf("ensuring schema: %w", err)
	}

	password, err = auth.GeneratePassword(16)
	if err != nil {
		return "", err
	}

	if err := createAdmin(ctx, database, cfg.AdminUser, password); err != nil {
		return "", err
	}

	if cfg.Seed {
		if err := store.SeedReferenceData(ctx, database); err != nil {
			return "", fmt.Errorf("seeding reference data: %w", err)
		}
	}

	return password, nil
}

func createAdmin(ctx context.Context, database *sql.DB, username, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if _, err := store.CreateUser(ctx, database, username, hash, model.RoleAdmin); err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}
	return nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(cfg *config.Config, password string) {
	fmt.Printf("Database created: %s\n", cfg.DBPath)
	fmt.Println("Schema initialized.")
	if cfg.Seed {
		fmt.Println("Reference data seeded.")
	}
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", cfg.AdminUser)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}
