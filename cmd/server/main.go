package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rpggio/appcatalog/internal/config"
	"github.com/rpggio/appcatalog/internal/domain/activity"
	"github.com/rpggio/appcatalog/internal/domain/project"
	"github.com/rpggio/appcatalog/internal/ingest"
	"github.com/rpggio/appcatalog/internal/mcp"
	"github.com/rpggio/appcatalog/internal/metrics"
	"github.com/rpggio/appcatalog/internal/scanner"
	"github.com/rpggio/appcatalog/internal/source"
	"github.com/rpggio/appcatalog/internal/sqlite"
	"github.com/rpggio/appcatalog/internal/transport"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == config.TransportStdio {
		logWriter = os.Stderr
	}
	if logPath := os.Getenv("CATALOG_LOG_PATH"); logPath != "" {
		fileWriter, err := newLogFileWriter(logPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer fileWriter.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if err := ensureDir(cfg.DB.Path); err != nil {
		return fmt.Errorf("preparing database path: %w", err)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx, logger); err != nil {
		return err
	}

	policies, err := cfg.Policies()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	projectSvc := project.NewService(sqlite.NewProjectRepository(db), sqlite.NewSnapshotRepository(db), logger)
	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), policies, logger, nil)
	ingestSvc := ingest.NewService(projectSvc, activitySvc, buildSources(cfg, m, logger), ingest.Options{
		Concurrency:  cfg.Sync.Concurrency,
		ActivityDays: cfg.Sync.ActivityDays,
		MarkMissing:  cfg.Sync.MarkMissing,
		Roots:        cfg.Scan.Roots,
	}, m, logger)

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Catalog:  projectSvc,
			Activity: activitySvc,
			Sync:     ingestSvc,
		},
		Metrics:     m,
		DefaultDays: cfg.Activity.DefaultDays,
		Version:     version,
		Logger:      logger,
	})

	if cfg.Scan.Watch && len(cfg.Scan.Roots) > 0 {
		if err := startWatcher(ctx, cfg.Scan.Roots, cfg.Scan.OverrideFile, ingestSvc, logger); err != nil {
			logger.Warn("manifest watch disabled", "error", err)
		}
	}

	if cfg.Transport.Mode == config.TransportStdio {
		return runStdioMode(ctx, logger, mcpServer)
	}
	router := transport.NewRouter(transport.Routes{
		MCP: sdkmcp.NewStreamableHTTPHandler(
			func(*http.Request) *sdkmcp.Server { return mcpServer },
			&sdkmcp.StreamableHTTPOptions{SessionTimeout: 30 * time.Minute},
		),
		Metrics: m.Handler(),
		Health:  db.PingContext,
	}, logger)
	return runHTTPMode(ctx, logger, router, cfg.Server.Host, cfg.Server.Port)
}

// buildSources constructs the hosted adapters. An adapter without
// credentials is left nil so its pipeline reports itself skipped.
func buildSources(cfg config.Config, m *metrics.Metrics, logger *slog.Logger) ingest.Sources {
	var sources ingest.Sources

	gh, err := source.NewGitHub(source.GitHubConfig{
		Token:             cfg.GitHub.Token,
		BaseURL:           cfg.GitHub.BaseURL,
		PerPage:           cfg.GitHub.PerPage,
		CommitPages:       cfg.GitHub.CommitPages,
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
		Burst:             cfg.GitHub.Burst,
		Timeout:           cfg.Sync.RequestTimeout,
	}, source.WithObserver(m))
	switch {
	case err == nil:
		sources.GitHub = gh
	case errors.Is(err, source.ErrConfigurationMissing):
		logger.Info("github source disabled", "error", err)
	default:
		logger.Warn("github source disabled", "error", err)
	}

	vc, err := source.NewVercel(source.VercelConfig{
		Token:             cfg.Vercel.Token,
		TeamID:            cfg.Vercel.TeamID,
		BaseURL:           cfg.Vercel.BaseURL,
		Limit:             cfg.Vercel.Limit,
		DeploymentPages:   cfg.Vercel.DeploymentPages,
		RequestsPerSecond: cfg.Vercel.RequestsPerSecond,
		Burst:             cfg.Vercel.Burst,
		Timeout:           cfg.Sync.RequestTimeout,
	}, source.WithObserver(m))
	switch {
	case err == nil:
		sources.Vercel = vc
	case errors.Is(err, source.ErrConfigurationMissing):
		logger.Info("vercel source disabled", "error", err)
	default:
		logger.Warn("vercel source disabled", "error", err)
	}

	if len(cfg.Scan.Roots) > 0 {
		sources.Manifests = scanner.New(cfg.Scan.OverrideFile, logger)
	}
	return sources
}

func startWatcher(ctx context.Context, roots []string, overrideFile string, svc *ingest.Service, logger *slog.Logger) error {
	w, err := scanner.NewWatcher(roots, overrideFile, func(ctx context.Context, dirs []string) {
		sum, err := svc.IngestPaths(ctx, dirs)
		if err != nil {
			logger.Warn("re-ingest failed", "dirs", dirs, "error", err)
			return
		}
		logger.Info("re-ingested changed projects", "total", sum.Total, "failed", sum.Failed)
	}, logger)
	if err != nil {
		return err
	}
	logger.Info("watching manifests", "projects", len(w.Watched()))
	go func() {
		if err := w.Run(ctx); err != nil {
			logger.Warn("manifest watcher stopped", "error", err)
		}
	}()
	return nil
}

func runStdioMode(ctx context.Context, logger *slog.Logger, mcpServer *sdkmcp.Server) error {
	logger.Info("starting stdio transport")

	// Run blocks until stdin closes or ctx is canceled.
	err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	logger.Info("shutting down")
	return nil
}

func runHTTPMode(ctx context.Context, logger *slog.Logger, handler http.Handler, host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func ensureDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
