package simbus

import (
	"fmt"

	"github.com/swarmlab/simbus/pkg/simbus/config"
	"github.com/swarmlab/simbus/pkg/simbus/store"
)

// OptionsFromConfig translates a loaded config into bus options.
//
// Recognized keys (all optional):
//
//	log_capacity              int
//	retry_interval            duration string or milliseconds
//	max_retry_attempts        int
//	retry_queue_size          int
//	snapshot_every            int
//	snapshot_limit            int
//	snapshot_path             SQLite file path; opens a snapshot store
//	retry_failed_deliveries   bool
//
// When snapshot_path is set the returned options include the opened store;
// the caller owns it and must close it after stopping the bus.
func OptionsFromConfig(cfg config.Config) ([]Option, store.Store, error) {
	c := Config{
		LogCapacity:           cfg.Int("log_capacity", DefaultConfig.LogCapacity),
		RetryInterval:         cfg.Duration("retry_interval", DefaultConfig.RetryInterval),
		MaxRetryAttempts:      cfg.Int("max_retry_attempts", DefaultConfig.MaxRetryAttempts),
		RetryQueueSize:        cfg.Int("retry_queue_size", DefaultConfig.RetryQueueSize),
		SnapshotEvery:         cfg.Int("snapshot_every", DefaultConfig.SnapshotEvery),
		SnapshotLimit:         cfg.Int("snapshot_limit", DefaultConfig.SnapshotLimit),
		RetryFailedDeliveries: cfg.Bool("retry_failed_deliveries", false),
	}
	opts := []Option{WithConfig(c)}

	var st store.Store
	if path := cfg.String("snapshot_path", ""); path != "" {
		sqliteStore, err := store.NewSQLiteStore(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open snapshot store: %w", err)
		}
		st = sqliteStore
		opts = append(opts, WithSnapshotStore(st))
	}
	return opts, st, nil
}
