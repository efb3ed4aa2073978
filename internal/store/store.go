package store

import (
	"context"
	"fmt"

	"github.com/Brownie44l1/cancer-api/internal/config"
	"github.com/Brownie44l1/cancer-api/internal/prediction"
)

// Closer is a prediction store holding external connections.
type Closer interface {
	prediction.Store
	Close() error
}

type nopCloser struct {
	prediction.Store
}

func (nopCloser) Close() error { return nil }

// Open connects the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Closer, error) {
	switch cfg.Driver {
	case config.DriverFirestore:
		fs, err := NewFirestore(ctx, cfg.ProjectID, cfg.CredentialsFile, cfg.Collection)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case config.DriverPostgres:
		pg, err := NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return pg, nil
	case config.DriverMemory:
		return nopCloser{NewMemory()}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
