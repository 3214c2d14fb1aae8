package storage

import (
	"fmt"
	"maps"
	"slices"

	"socialdash/internal/models"
)

type backend struct {
	open     func(Config) (Storage, error)
	validate func(models.StorageConfig) error
}

func requirePath(c models.StorageConfig) error {
	if c.Path == "" {
		return fmt.Errorf("path is required for %s storage", c.Type)
	}
	return nil
}

func requireDSN(c models.StorageConfig) error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required for %s storage", c.Type)
	}
	return nil
}

var backends = map[string]backend{
	models.StorageTypeJSON: {
		open:     func(c Config) (Storage, error) { return NewJSONStorage(c) },
		validate: requirePath,
	},
	models.StorageTypeMemory: {
		open: func(c Config) (Storage, error) { return NewMemoryStorage(c) },
	},
	models.StorageTypePostgres: {
		open:     func(c Config) (Storage, error) { return NewPostgresStorage(c) },
		validate: requireDSN,
	},
	models.StorageTypeSQLite: {
		open:     func(c Config) (Storage, error) { return NewSQLiteStorage(c) },
		validate: requireDSN,
	},
}

// Factory opens the post and metric store named by the storage config.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

// Create validates config and opens the matching backend. Backends with a
// schema (postgres, sqlite) create it on open.
func (f *Factory) Create(config models.StorageConfig) (Storage, error) {
	if err := f.ValidateConfig(config); err != nil {
		return nil, err
	}

	s, err := backends[config.Type].open(Config{
		Type:             config.Type,
		Path:             config.Path,
		ConnectionString: config.Database.DSN,
		MaxOpenConns:     config.Database.MaxOpenConns,
		MaxIdleConns:     config.Database.MaxIdleConns,
		ConnMaxLifetime:  config.Database.ConnMaxLifetime,
		ConnMaxIdleTime:  config.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", config.Type, err)
	}
	return s, nil
}

// GetSupportedProviders lists the storage types in sorted order.
func (f *Factory) GetSupportedProviders() []string {
	return slices.Sorted(maps.Keys(backends))
}

func (f *Factory) ValidateConfig(config models.StorageConfig) error {
	b, ok := backends[config.Type]
	if !ok {
		return fmt.Errorf("unsupported storage type: %q (supported: %v)", config.Type, f.GetSupportedProviders())
	}
	if b.validate == nil {
		return nil
	}
	return b.validate(config)
}
