package database

import (
	"context"
	stdsql "database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver for database/sql
)

// OMOPPool is a small dedicated connection pool to the OMOP vocabulary
// database. It is opened read-only against a separate database (often a
// separate physical instance, loaded once from OHDSI Athena vocabulary
// dumps) and is never migrated or written to by this service.
type OMOPPool struct {
	db *stdsql.DB
}

// DB returns the underlying *sql.DB for queries.
func (p *OMOPPool) DB() *stdsql.DB {
	return p.db
}

// Close closes the pool.
func (p *OMOPPool) Close() error {
	return p.db.Close()
}

// NewOMOPPool opens a dedicated, small connection pool against the OMOP
// vocabulary database addressed by dsn (OMOP_VOCAB_URL). Pool size is kept
// small since vocabulary lookups are short, read-only queries hit from the
// ground pipeline node's bounded fan-out, not general request traffic.
func NewOMOPPool(ctx context.Context, dsn string) (*OMOPPool, error) {
	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open omop vocabulary database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping omop vocabulary database: %w", err)
	}

	return &OMOPPool{db: db}, nil
}
