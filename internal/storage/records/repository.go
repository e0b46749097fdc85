package records

import (
	"context"

	"readinglog/internal/types"
)

const tableName = "reading_record"

// Repository persists the flat collection of reading records in insertion order.
// Records sharing an isbn13 are possible; Replace and Delete target the first one.
type Repository interface {
	GetAll(ctx context.Context) ([]types.ReadingRecord, error)
	Create(ctx context.Context, rec *types.ReadingRecord) error
	// Replace shall return types.ErrNotFound when no record has the isbn13
	Replace(ctx context.Context, isbn13 string, rec *types.ReadingRecord) error
	Delete(ctx context.Context, isbn13 string) (bool, error)
}
