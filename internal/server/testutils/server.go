// Package testutils builds fully wired servers on in-memory collaborators
// for tests.
package testutils

import (
	"context"

	"go.uber.org/zap"

	"github.com/vmelnikov/statadmin/internal/backend"
	"github.com/vmelnikov/statadmin/internal/config"
	"github.com/vmelnikov/statadmin/internal/push"
	"github.com/vmelnikov/statadmin/internal/registry"
	"github.com/vmelnikov/statadmin/internal/server"
	"github.com/vmelnikov/statadmin/internal/supervisor"
	"github.com/vmelnikov/statadmin/storage/inmemory"
)

const TestNode = "node-test"

// NewTestServer wires a server on an in-memory store, live backend and real
// supervisor, logging nowhere.
func NewTestServer(ctx context.Context) *server.Server {
	logger := zap.NewNop().Sugar()
	store := inmemory.NewMemStore(ctx)
	back := backend.NewLiveBackend()
	sup := supervisor.New(back, logger)

	return &server.Server{
		Registry: registry.New(store, back, TestNode, logger),
		Push:     push.NewManager(store, sup, TestNode, logger),
		Config: &config.ServerConfig{
			NodeID: TestNode,
			Logger: logger,
		},
	}
}
