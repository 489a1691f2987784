package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/appcatalog/internal/domain/activity"
	"github.com/rpggio/appcatalog/internal/domain/project"
	"github.com/rpggio/appcatalog/internal/ingest"
	"github.com/rpggio/appcatalog/internal/metrics"
)

// CatalogService defines catalog operations needed by MCP.
type CatalogService interface {
	List(ctx context.Context, opts project.ListOptions) ([]project.Record, error)
	Get(ctx context.Context, id string) (*project.Record, error)
	Detail(ctx context.Context, id string) (*project.Detail, error)
	TogglePinned(ctx context.Context, id string) (*project.Record, error)
	SetDisplayName(ctx context.Context, id, name string) (*project.Record, error)
	SetStage(ctx context.Context, id, stage string) (*project.Record, error)
	SetStatus(ctx context.Context, id, status string) (*project.Record, error)
	Breakdown(ctx context.Context) (project.Breakdown, error)
}

// ActivityService defines heatmap queries needed by MCP.
type ActivityService interface {
	Heatmap(ctx context.Context, projectID string, typ activity.Type, days int) ([]activity.Point, error)
	GlobalHeatmap(ctx context.Context, typ activity.Type, days int) ([]activity.Point, error)
}

// SyncService defines the pipeline runs needed by MCP.
type SyncService interface {
	SyncGitHub(ctx context.Context) (ingest.Summary, error)
	SyncVercel(ctx context.Context) (ingest.Summary, error)
	IngestManifests(ctx context.Context) (ingest.Summary, error)
	RefreshActivity(ctx context.Context) (ingest.Summary, error)
	SyncAll(ctx context.Context) ([]ingest.Summary, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Catalog  CatalogService
	Activity ActivityService
	Sync     SyncService
}

// Config contains server configuration.
type Config struct {
	Services Services
	Metrics  *metrics.Metrics
	// DefaultDays is the heatmap window used when a call omits days.
	DefaultDays int
	Version     string
	Logger      *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.DefaultDays <= 0 {
		cfg.DefaultDays = 365
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "appcatalog",
		Version: cfg.Version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, newHandler(cfg))

	return server
}
