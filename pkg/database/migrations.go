package database

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql"
)

// CreateGINIndexes creates the full-text search GIN index on criteria text,
// which Ent cannot express as a schema-level index annotation.
func CreateGINIndexes(ctx context.Context, driver *sql.Driver) error {
	db := driver.DB()

	// GIN index for criterion text full-text search.
	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_criteria_text_gin
		ON criteria USING gin(to_tsvector('english', text))`)
	if err != nil {
		return fmt.Errorf("failed to create criteria text GIN index: %w", err)
	}

	return nil
}
