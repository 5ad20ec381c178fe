package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Config controls how the storage backend is opened.
type Config struct {
	Driver string
	DSN    string
	// AutoMigrate creates missing tables on open. Leave it off when the
	// schema is managed with goose.
	AutoMigrate bool
	// Suppliers are upserted on open so listings work on a fresh database.
	Suppliers []Supplier
	Logger    *zap.Logger
}

type migrator interface {
	Migrate(ctx context.Context) error
}

// Open constructs a Storage based on the given configuration.
func Open(ctx context.Context, cfg Config) (Storage, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	drv := cfg.Driver
	if drv == "" {
		drv = "memory"
	}

	var st Storage
	switch drv {
	case "memory":
		log.Info("storage: using in-memory backend")
		return NewMemoryWithSuppliers(cfg.Suppliers), nil

	case "sqlite", "postgres":
		log.Info("storage: using gorm", zap.String("driver", drv))
		g, err := NewGormStorage(drv, cfg.DSN)
		if err != nil {
			return nil, err
		}
		st = g

	case "postgrespool":
		log.Info("storage: using pgx pool")
		p, err := OpenPostgresPool(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		st = p

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", drv)
	}

	if cfg.AutoMigrate {
		if err := st.(migrator).Migrate(ctx); err != nil {
			st.Close()
			return nil, fmt.Errorf("storage migrate: %w", err)
		}
	}
	for _, s := range cfg.Suppliers {
		if err := st.UpsertSupplier(ctx, s); err != nil {
			st.Close()
			return nil, fmt.Errorf("seed supplier %s: %w", s.Key, err)
		}
	}
	return st, nil
}
