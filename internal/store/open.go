package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/underwriting-cli/internal/config"
)

// Open connects to the backend named by c.Driver and runs its migration.
func Open(ctx context.Context, c config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch c.Driver {
	case "sqlite":
		s, err = NewSQLite(c.DatabaseURL)
	case "postgres":
		s, err = NewPostgres(ctx, c.DatabaseURL, nil)
	case "redis":
		s, err = NewRedis(ctx, c.DatabaseURL, time.Duration(c.TTLHours)*time.Hour)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", c.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}
