package main

import (
	"fmt"

	"github.com/liliang-cn/orion/internal/client"
	"github.com/liliang-cn/orion/internal/config"
	"github.com/liliang-cn/orion/internal/persist"
	"github.com/liliang-cn/orion/internal/repository"
	"github.com/liliang-cn/orion/internal/service"
	"github.com/liliang-cn/orion/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app wires the workspace together for one process
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *repository.DB
	store     *store.Store
	snapshots *persist.Adapter
	workspace *service.WorkspaceService
}

// newApp loads configuration, restores the last snapshot and starts
// persisting every state change. quiet lowers the log level for one-shot
// commands.
func newApp(quiet bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg, quiet && !verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}

	var kv persist.KeyValue
	if ephemeral {
		kv = persist.NewMemoryKV()
	} else {
		db, err := repository.NewDB(cfg.Storage.Path)
		if err != nil {
			logger.Sync()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.db = db
		kv = repository.NewKVRepository(db)
	}

	a.snapshots = persist.NewAdapter(kv, logger.Named("persist"), persist.WithTTL(cfg.Storage.HistoryTTL))
	a.store = store.New(store.NewReducer(), logger.Named("store"))

	a.snapshots.CleanupExpired()
	if saved, ok := a.snapshots.Load(); ok {
		a.store.Dispatch(store.LoadState{State: saved})
		logger.Info("Restored workspace",
			zap.Int("threads", len(saved.ChatThreads)),
			zap.String("active_thread", saved.ActiveThreadID),
		)
	}
	a.store.Subscribe(a.snapshots.Save)

	backend := client.New(cfg.API.BaseURL,
		client.WithTimeout(cfg.API.Timeout),
		client.WithLogger(logger.Named("client")),
	)
	a.workspace = service.NewWorkspaceService(a.store, backend, a.snapshots, logger.Named("workspace"))
	return a, nil
}

func newLogger(cfg *config.Config, quiet bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if quiet {
		zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	return zc.Build()
}

// Close releases the database and flushes logs
func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
