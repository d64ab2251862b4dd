// Package history persists a record of completed lead searches so past
// queries can be reviewed without rerunning them.
package history

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// Entry is one completed search.
type Entry struct {
	ID         string    `json:"id"`
	Query      string    `json:"query"`
	QueryCount int       `json:"query_count"`
	LeadCount  int       `json:"lead_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store defines the persistence interface for search history.
type Store interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and configures a history backend.
type Config struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// Open creates the store named by cfg.Driver and runs migrations. An empty
// driver disables history entirely and returns a nil store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "":
		return nil, nil
	case "sqlite":
		s, err = NewSQLite(cfg.Path)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("history: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
