package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/erazemk/garderoba/internal/api"
	"github.com/erazemk/garderoba/internal/auth"
	"github.com/erazemk/garderoba/internal/config"
	"github.com/erazemk/garderoba/internal/db"
	"github.com/erazemk/garderoba/internal/model"
	"github.com/erazemk/garderoba/internal/outfit"
	"github.com/erazemk/garderoba/internal/planner"
	"github.com/erazemk/garderoba/internal/store"
	"github.com/erazemk/garderoba/internal/weather"
	"github.com/erazemk/garderoba/internal/web"
)

// purgeInterval is how often expired revoked tokens are removed.
const purgeInterval = time.Hour

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
	fs := flag.NewFlagSet("garderoba", flag.ContinueOnError)

	var configPath string
	fs.StringVar(&configPath, "config", "", "")
	fs.StringVar(&configPath, "c", "", "")

	var dbPath string
	fs.StringVar(&dbPath, "db", "", "")
	fs.StringVar(&dbPath, "d", "", "")

	var addr string
	fs.StringVar(&addr, "addr", "", "")
	fs.StringVar(&addr, "a", "", "")

	var adminUser string
	fs.StringVar(&adminUser, "user", "", "")
	fs.StringVar(&adminUser, "u", "", "")

	var logPath string
	fs.StringVar(&logPath, "log", "", "")
	fs.StringVar(&logPath, "l", "", "")

	var writeConfig string
	fs.StringVar(&writeConfig, "write-config", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: garderoba [flags]

Flags:
  -c, -config <path>      TOML configuration file (default: none, built-in defaults)
  -d, -db <path>          SQLite database path (default: garderoba.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin username on first run (default: Admin)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -write-config <path>    write the effective configuration as TOML and exit
  -h, -help               show this help and exit

Environment:
  OPENWEATHER_API_KEY     OpenWeatherMap API key (weather is unavailable without it)
  GARDEROBA_REDIS_ADDR    Redis address for the weather cache (default: in memory)
  GARDEROBA_DEFAULT_CITY  city used until a browser location is known
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyEnv(os.Getenv)

	// Flags given on the command line win over file and environment.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db", "d":
			cfg.Server.DBPath = dbPath
		case "addr", "a":
			cfg.Server.Addr = addr
		case "user", "u":
			cfg.Server.AdminUser = adminUser
		case "log", "l":
			cfg.Server.LogPath = logPath
		}
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if writeConfig != "" {
		if err := cfg.Save(writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Configuration written: %s\n", writeConfig)
		return
	}

	closeLog, err := setupLogger(cfg.Server.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		if closeLog != nil {
			closeLog()
		}
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	database, err := db.Open(cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	version, err := db.SchemaVersion(database)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	slog.Info("database ready", "path", cfg.Server.DBPath, "schema", version)

	password, err := bootstrapAdmin(ctx, database, cfg.Server.AdminUser)
	if err != nil {
		return err
	}
	if password != "" {
		printInitResult(cfg.Server.DBPath, cfg.Server.AdminUser, password)
		fmt.Println()
	}

	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("getting JWT secret: %w", err)
	}
	sessionTTL, _ := cfg.SessionTTL()
	tokens := auth.NewTokens(jwtSecret, sessionTTL)

	weatherClient, closeCache, err := newWeatherClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCache()

	plans := &planner.Planner{
		DB:             database,
		Weather:        weatherClient,
		Generator:      outfit.NewGenerator(),
		Count:          cfg.Suggestions.Count,
		DefaultPurpose: cfg.Suggestions.DefaultPurpose,
		Now:            time.Now,
	}

	apiRouter := api.NewRouter(database, tokens, plans)
	webRouter, err := web.NewRouter(database, tokens, plans)
	if err != nil {
		return fmt.Errorf("setting up web router: %w", err)
	}

	// API routes take priority, web routes handle the rest.
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("/", webRouter)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	stop := make(chan struct{})
	go purgeRevokedTokens(database, stop)
	defer close(stop)

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

	slog.Info("server started", "addr", cfg.Server.Addr, "weather", cfg.Weather.APIKey != "")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}

// newWeatherClient builds the weather client. With a Redis address the cache
// is shared through Redis; otherwise it stays in process memory.
func newWeatherClient(ctx context.Context, cfg *config.Config) (*weather.Client, func(), error) {
	cacheTTL, _ := cfg.CacheTTL()
	opts := []weather.Option{
		weather.WithBaseURL(cfg.Weather.BaseURL),
		weather.WithDefaultCity(cfg.Weather.DefaultCity),
		weather.WithTTL(cacheTTL),
	}

	cleanup := func() {}
	if cfg.Weather.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Weather.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Weather.RedisAddr, err)
		}
		opts = append(opts, weather.WithCache(weather.NewRedisCache(rdb)))
		cleanup = func() { rdb.Close() }
		slog.Info("weather cache ready", "backend", "redis", "addr", cfg.Weather.RedisAddr)
	}

	if cfg.Weather.APIKey == "" {
		slog.Warn("no weather API key configured, suggestions will not use the temperature")
	}
	return weather.NewClient(cfg.Weather.APIKey, opts...), cleanup, nil
}

// purgeRevokedTokens periodically deletes revoked tokens that have expired
// anyway.
func purgeRevokedTokens(database *sql.DB, stop <-chan struct{}) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			n, err := store.PurgeRevokedTokens(context.Background(), database, now)
			if err != nil {
				slog.Error("failed to purge revoked tokens", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("purged revoked tokens", "count", n)
			}
		}
	}
}

// bootstrapAdmin creates the admin account when the database has no users
// and returns its generated password. It returns "" when users already exist.
func bootstrapAdmin(ctx context.Context, database *sql.DB, username string) (string, error) {
	count, err := store.CountUsers(ctx, database)
	if err != nil {
		return "", fmt.Errorf("counting users: %w", err)
	}
	if count > 0 {
		return "", nil
	}

	password, err := generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	if _, err := store.CreateUser(ctx, database, username, hash, model.RoleAdmin); err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}

	return password, nil
}

// printInitResult prints the first-run result to stdout.
func printInitResult(dbPath, username, password string) {
	fmt.Printf("Database initialized: %s\n", dbPath)
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
