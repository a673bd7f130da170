package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vmelnikov/statadmin/internal/backend"
	"github.com/vmelnikov/statadmin/internal/buildinfo"
	"github.com/vmelnikov/statadmin/internal/collector"
	"github.com/vmelnikov/statadmin/internal/config"
	"github.com/vmelnikov/statadmin/internal/push"
	"github.com/vmelnikov/statadmin/internal/registry"
	"github.com/vmelnikov/statadmin/internal/server"
	"github.com/vmelnikov/statadmin/internal/supervisor"
	"github.com/vmelnikov/statadmin/storage"
	"github.com/vmelnikov/statadmin/storage/inmemory"
	"github.com/vmelnikov/statadmin/storage/postgres"
)

func main() {
	buildinfo.PrintBuildInfo()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config := config.NewServerConfig()

	var store storage.Store
	if config.DatabaseDsn != "" {
		pg, err := postgres.NewPostgresStorage(ctx, config.DatabaseDsn)
		if err != nil {
			config.Logger.Fatal(err)
		}
		defer pg.Close()
		store = pg
	} else {
		mem := inmemory.NewMemStore(ctx)
		if config.Restore {
			if err := mem.LoadFromFile(config.FileStoragePath); err != nil {
				config.Logger.Fatal(err)
			}
		}
		go runFlusher(ctx, mem, config)
		store = mem
	}

	config.Logger.Infof("Node config: Addr=%s, NodeID=%s, StoreInterval=%d, FileStoragePath=%q, Restore=%t, DatabaseDSN set=%t",
		config.Addr,
		config.NodeID,
		config.StoreInterval,
		config.FileStoragePath,
		config.Restore,
		config.DatabaseDsn != "",
	)

	back := backend.NewLiveBackend()
	reg := registry.New(store, back, config.NodeID, config.Logger)
	sup := supervisor.New(back, config.Logger)
	pushMgr := push.NewManager(store, sup, config.NodeID, config.Logger)

	// worker handles do not survive a crash; bring records back into
	// agreement with the supervisor before serving operators
	if corrected, err := pushMgr.ReconcileRunning(ctx); err != nil {
		config.Logger.Fatal(err)
	} else if corrected > 0 {
		config.Logger.Infof("corrected %d stale push records", corrected)
	}

	coll := collector.New(reg, back, config.Logger, time.Duration(config.PollInterval)*time.Second)
	if err := coll.RegisterCounters(ctx); err != nil {
		config.Logger.Fatal(err)
	}
	go coll.Run(ctx)

	srv := server.NewServer(reg, pushMgr, config)
	if err := srv.Run(ctx); err != nil {
		config.Logger.Fatal(err)
	}

	sup.Shutdown(context.Background())
}

// runFlusher snapshots the in-memory store to file on the configured
// interval and once more on shutdown.
func runFlusher(ctx context.Context, mem *inmemory.MemStore, cfg *config.ServerConfig) {
	if cfg.StoreInterval <= 0 {
		return
	}
	ticker := time.NewTicker(time.Duration(cfg.StoreInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := mem.SaveToFile(cfg.FileStoragePath); err != nil {
				cfg.Logger.Errorf("failed to save store: %v", err)
			}
			return
		case <-ticker.C:
			if err := mem.SaveToFile(cfg.FileStoragePath); err != nil {
				cfg.Logger.Errorf("failed to save store: %v", err)
			}
		}
	}
}
