package storage

import (
	"context"
	"time"
)

// Storage abstracts persistence for suppliers, price snapshots, settings and
// scheduled job status. Lookups of missing rows return a nil value and a nil
// error.
type Storage interface {
	// Suppliers
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	UpsertSupplier(ctx context.Context, s Supplier) error

	// Price snapshots
	GetPriceSnapshot(ctx context.Context, supplier string) (*PriceSnapshot, error)
	SavePriceSnapshot(ctx context.Context, snap PriceSnapshot) error

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Scheduled jobs
	UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error
	GetScheduledJob(ctx context.Context, name string) (*ScheduledJob, error)

	Ping(ctx context.Context) error
	// Close releases any resources (no-op for in-memory).
	Close() error
}

// SettingRefreshInterval overrides the configured refresh interval.
const SettingRefreshInterval = "refresh_interval"
