package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkravets/inventar/internal/api"
	"github.com/mkravets/inventar/internal/config"
	"github.com/mkravets/inventar/internal/photo"
	"github.com/mkravets/inventar/internal/store"
	"github.com/mkravets/inventar/web"
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

// openRepository picks the Repository backend from configuration.
func openRepository(backend, dbPath string) (store.Repository, error) {
	switch backend {
	case "sqlite":
		return store.NewSQLite(dbPath)
	case "json":
		return store.NewJSONFile(dbPath)
	default:
		return nil, fmt.Errorf("unknown store backend %q (want sqlite or json)", backend)
	}
}

func main() {
	cfg := config.Load()

	fs := flag.NewFlagSet("inventar", flag.ContinueOnError)

	var host string
	fs.StringVar(&host, "host", cfg.Host, "")
	fs.StringVar(&host, "h", cfg.Host, "")

	var port string
	fs.StringVar(&port, "port", cfg.Port, "")
	fs.StringVar(&port, "p", cfg.Port, "")

	var cacheDir string
	fs.StringVar(&cacheDir, "cache", cfg.CacheDir, "")
	fs.StringVar(&cacheDir, "c", cfg.CacheDir, "")

	var dbPath string
	fs.StringVar(&dbPath, "db", cfg.DBPath, "")
	fs.StringVar(&dbPath, "d", cfg.DBPath, "")

	var backend string
	fs.StringVar(&backend, "store", cfg.Store, "")
	fs.StringVar(&backend, "s", cfg.Store, "")

	var logPath string
	fs.StringVar(&logPath, "log", cfg.LogPath, "")
	fs.StringVar(&logPath, "l", cfg.LogPath, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: inventar [flags]

Flags:
  -h, -host <host>     listen host (default: all interfaces)
  -p, -port <port>     listen port (default: 8080)
  -c, -cache <dir>     photo cache directory (default: cache)
  -d, -db <path>       store path: SQLite file or JSON document (default: inventar.sqlite3)
  -s, -store <kind>    store backend, sqlite or json (default: sqlite)
  -l, -log <path>      log file path (default: no file, stdout/stderr only)
  -help                show this help and exit

Flags override the INVENTAR_* environment variables (a .env file is honored).
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

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a log file.
	closeLog, err := setupLogger(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	repo, err := openRepository(backend, dbPath)
	if err != nil {
		slog.Error("failed to open item store", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	slog.Info("item store ready", "backend", backend, "path", dbPath)

	photos, err := photo.NewStore(cacheDir)
	if err != nil {
		slog.Error("failed to set up photo cache", "error", err)
		os.Exit(1)
	}

	slog.Info("photo cache ready", "dir", cacheDir)

	handler := api.LoggingMiddleware(api.NewRouter(repo, photos, web.StaticFS()))

	addr := net.JoinHostPort(host, port)
	server := &http.Server{
		Addr:              addr,
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

	slog.Info("server started", "addr", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped, closing item store")
}
