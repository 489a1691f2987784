package testserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rpggio/appcatalog/internal/domain/activity"
	"github.com/rpggio/appcatalog/internal/domain/project"
	"github.com/rpggio/appcatalog/internal/ingest"
	"github.com/rpggio/appcatalog/internal/mcp"
	"github.com/rpggio/appcatalog/internal/metrics"
	"github.com/rpggio/appcatalog/internal/sqlite"
	"github.com/rpggio/appcatalog/internal/transport"
	"github.com/stretchr/testify/require"
)

// Options configures a TestServer. Sources left nil are skipped by their
// pipelines.
type Options struct {
	Sources ingest.Sources
	Ingest  ingest.Options
}

// TestServer is the full HTTP surface over an in-memory catalog.
type TestServer struct {
	Server   *httptest.Server
	DB       *sqlite.DB
	Projects *project.Service
	Activity *activity.Service
	Ingest   *ingest.Service
	Registry *prometheus.Registry
}

func New(t *testing.T, opts Options) *TestServer {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, nil))

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	projectSvc := project.NewService(sqlite.NewProjectRepository(db), sqlite.NewSnapshotRepository(db), nil)
	activitySvc := activity.NewService(sqlite.NewActivityRepository(db), activity.DefaultPolicies(), nil, nil)
	ingestSvc := ingest.NewService(projectSvc, activitySvc, opts.Sources, opts.Ingest, m, nil)

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Catalog:  projectSvc,
			Activity: activitySvc,
			Sync:     ingestSvc,
		},
		Metrics: m,
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: time.Minute},
	)

	server := httptest.NewServer(transport.NewRouter(transport.Routes{
		MCP:     mcpHandler,
		Metrics: m.Handler(),
		Health:  db.PingContext,
	}, nil))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return &TestServer{
		Server:   server,
		DB:       db,
		Projects: projectSvc,
		Activity: activitySvc,
		Ingest:   ingestSvc,
		Registry: reg,
	}
}

// Connect opens an MCP client session against the /mcp endpoint.
func (ts *TestServer) Connect(t *testing.T) *sdkmcp.ClientSession {
	t.Helper()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "testserver-client", Version: "1.0.0"}, nil)
	cs, err := client.Connect(context.Background(), &sdkmcp.StreamableClientTransport{
		Endpoint: ts.Server.URL + "/mcp",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}
