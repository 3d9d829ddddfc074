package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/erkineren/repository-relay/internal/store/sqlstore"
)

// New connects to PostgreSQL and prepares the relay tables.
func New(ctx context.Context, dbURL string) (*sqlstore.Store, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s, err := sqlstore.New(ctx, db, sqlstore.Dollar)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
