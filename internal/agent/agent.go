package agent

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/mwantia/fabric/pkg/container"

	config "mediasync/internal/config/server"
	"mediasync/pkg/catalog"
	"mediasync/pkg/db/migrations"
	"mediasync/pkg/db/store"
	"mediasync/pkg/log"
)

// MediaSyncAgent owns the long-running process: the metadata store, the
// catalog engine and the periodic availability sweep.
type MediaSyncAgent struct {
	mutex sync.RWMutex
	wait  sync.WaitGroup

	cfg    *config.BaseServerConfig
	sc     *container.ServiceContainer
	log    log.LoggerService
	store  *store.SQLiteStore
	engine *catalog.Engine
}

func NewAgent(cfg *config.BaseServerConfig) *MediaSyncAgent {
	return &MediaSyncAgent{
		cfg: cfg,
		sc:  container.NewServiceContainer(),
		log: log.NewLoggerService("mediasync", cfg.Log),
	}
}

func (msa *MediaSyncAgent) setupStore(ctx context.Context) error {
	s, err := store.NewSQLiteStore(store.SQLiteConfig{
		Path: msa.cfg.Metadata.SQLite.Path,
	})
	if err != nil {
		return err
	}
	if err := s.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect metadata store: %w", err)
	}
	if err := migrations.NewMigrator(s.DB()).Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	msa.store = s
	msa.engine = catalog.NewEngine(s, nil, msa.log.Named("catalog"))

	name := msa.cfg.Sync.DeviceName
	if name == "" {
		name, _ = os.Hostname()
	}
	return msa.engine.Bootstrap(ctx, catalog.BootstrapConfig{
		AccountName: msa.cfg.Sync.AccountName,
		DeviceName:  name,
		DeviceClass: msa.cfg.Sync.DeviceClass,
		DeviceKey:   msa.cfg.Sync.DeviceKey,
		RootFolder:  msa.cfg.Sync.RootFolder,
	})
}

func (msa *MediaSyncAgent) setupServices() error {
	errs := container.Errors{}

	msa.log.Debug("Registering 'LoggerService'...")
	errs.Add(container.Register[log.LoggerServiceImpl](msa.sc,
		container.With[log.LoggerService](),
		container.WithInstance(msa.log)))

	msa.log.Debug("Registering 'MetadataStore'...")
	errs.Add(container.Register[store.SQLiteStore](msa.sc,
		container.With[store.MetadataStore](),
		container.WithInstance(msa.store)))

	msa.log.Debug("Registering 'Engine'...")
	errs.Add(container.Register[catalog.Engine](msa.sc,
		container.WithInstance(msa.engine)))

	return errs.Errors()
}

// runRefreshLoop periodically reconciles local file availability so a
// device that was offline converges without waiting for a catalog read.
func (msa *MediaSyncAgent) runRefreshLoop(ctx context.Context) {
	interval, err := time.ParseDuration(msa.cfg.Sync.RefreshInterval)
	if err != nil || interval <= 0 {
		msa.log.Debug("Availability refresh loop disabled")
		return
	}

	msa.wait.Add(1)
	go func() {
		defer msa.wait.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				changed, err := msa.engine.RefreshAll(ctx)
				if err != nil {
					msa.log.Warn("Availability sweep failed: %v", err)
					continue
				}
				if changed > 0 {
					msa.log.Info("Availability sweep updated %d locations", changed)
				}
			}
		}
	}()
}

func (msa *MediaSyncAgent) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt)
	defer cancel()

	msa.mutex.Lock()

	if err := msa.setupStore(ctx); err != nil {
		msa.mutex.Unlock()
		return err
	}
	if err := msa.setupServices(); err != nil {
		msa.mutex.Unlock()
		return err
	}

	msa.runRefreshLoop(ctx)

	msa.mutex.Unlock()
	<-ctx.Done()

	timeout, err := time.ParseDuration(msa.cfg.ShutdownTimeout)
	if err != nil {
		// Set default of 60 seconds if error
		timeout = 60 * time.Second
	}

	shutdown, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := msa.sc.Cleanup(shutdown); err != nil {
		return fmt.Errorf("failed to complete service container cleanup: %w", err)
	}

	msa.wait.Wait()

	if msa.store != nil {
		if err := msa.store.Close(); err != nil {
			return fmt.Errorf("failed to close metadata store: %w", err)
		}
	}
	return nil
}
