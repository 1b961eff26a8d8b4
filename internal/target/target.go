package target

import (
	"context"
	"fmt"

	"covermig/internal/domain"
)

// Target is a write destination for migrated records. Upsert must be
// idempotent and must report how many records it committed; a non-nil
// error means the batch as a whole is uncommitted.
type Target interface {
	Upsert(ctx context.Context, batch []domain.Artwork) (int, error)
	OnComplete(ctx context.Context) error
	Close() error
}

// New opens the target for the given driver name.
func New(ctx context.Context, driver, dsn string, refFormat int) (Target, error) {
	switch driver {
	case "sqlite", "mysql", "postgres":
		return NewSQLTarget(driver, dsn, refFormat)
	case "mongodb":
		return NewMongoTarget(ctx, dsn, refFormat)
	default:
		return nil, fmt.Errorf("unsupported target driver %q", driver)
	}
}
