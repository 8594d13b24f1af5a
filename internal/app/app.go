package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	redisclient "github.com/driftwatch/anomaly-backend/internal/clients/redis"
	"github.com/driftwatch/anomaly-backend/internal/db"
	"github.com/driftwatch/anomaly-backend/internal/docstore"
	"github.com/driftwatch/anomaly-backend/internal/observability"
	"github.com/driftwatch/anomaly-backend/internal/persistence"
	"github.com/driftwatch/anomaly-backend/internal/platform/logger"
	"github.com/driftwatch/anomaly-backend/internal/repos"
	"github.com/driftwatch/anomaly-backend/internal/services"
	"github.com/driftwatch/anomaly-backend/internal/types"
)

// App wires the persistence core together for the worker binaries.
type App struct {
	Config    Config
	Log       *logger.Logger
	DB        *gorm.DB
	Store     docstore.Store
	Bus       redisclient.RefreshBus
	Persister *persistence.JobResultsPersister
	Jobs      services.JobService

	shutdownOTel func(context.Context) error
}

func New() (*App, error) {
	cfg := LoadConfig()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	shutdownOTel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "anomaly-backend",
		Environment: cfg.Environment,
	})

	a := &App{
		Config:       cfg,
		Log:          log,
		shutdownOTel: shutdownOTel,
	}

	switch cfg.StoreDriver {
	case StoreMemory:
		a.Store = docstore.NewMemoryStore()
		log.Warn("using in-memory document store; writes do not survive restarts")
	case StorePostgres:
		gdb, err := db.Connect(log)
		if err != nil {
			return nil, err
		}
		a.DB = gdb
		store := docstore.NewPostgresStore(gdb, log)
		if err := store.Migrate(); err != nil {
			return nil, err
		}
		if err := gdb.AutoMigrate(&types.JobConfigSnapshot{}); err != nil {
			return nil, fmt.Errorf("migrate job config snapshots: %w", err)
		}
		a.Store = store
	default:
		return nil, fmt.Errorf("unknown document store driver %q", cfg.StoreDriver)
	}

	if cfg.RedisAddr != "" {
		bus, err := redisclient.NewRefreshBus(cfg.RedisAddr, cfg.RedisChannel, log)
		if err != nil {
			return nil, fmt.Errorf("init refresh bus: %w", err)
		}
		a.Bus = bus
	}

	var notifier persistence.RefreshNotifier
	if a.Bus != nil {
		notifier = a.Bus
	}
	a.Persister = persistence.NewJobResultsPersister(a.Store, notifier, log)

	if a.DB != nil {
		configRepo := repos.NewJobConfigRepo(a.DB, log)
		a.Jobs = services.NewJobService(configRepo, log)
	}

	return a, nil
}

func (a *App) Close() {
	if a.Bus != nil {
		_ = a.Bus.Close()
	}
	if a.shutdownOTel != nil {
		_ = a.shutdownOTel(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
