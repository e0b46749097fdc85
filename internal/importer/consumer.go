package importer

import (
	"context"
	"fmt"
	"log/slog"

	"readinglog/internal/types"
)

type Consumer interface {
	ConsumeRecords(ctx context.Context, recs []types.ReadingRecord) error
}

type LoggerConsumer struct {
	Logger *slog.Logger
}

func (c *LoggerConsumer) ConsumeRecords(_ context.Context, recs []types.ReadingRecord) error {
	for _, rec := range recs {
		author := rec.Author
		if author == "" {
			author = "without authors"
		} else {
			author = "by " + author
		}

		c.Logger.Info("Consumed record " + rec.Isbn13 + " (" + rec.Title + ") " + author)
	}

	return nil
}

// RecordStore is the part of records.Store the importer writes through.
type RecordStore interface {
	Isbns(ctx context.Context) (map[string]struct{}, error)
	Create(ctx context.Context, rec types.ReadingRecord) (types.ReadingRecord, error)
}

// StoringConsumer saves records whose ISBN is not in the store yet.
type StoringConsumer struct {
	Logger *slog.Logger
	Store  RecordStore

	Saved      int
	Duplicates int
}

// ConsumeRecords loads the stored ISBNs once per page and keeps the set current while saving.
func (s *StoringConsumer) ConsumeRecords(ctx context.Context, recs []types.ReadingRecord) error {
	known, err := s.Store.Isbns(ctx)
	if err != nil {
		return fmt.Errorf("loading stored ISBNs: %w", err)
	}

	for _, rec := range recs {
		if _, ok := known[rec.Isbn13]; ok {
			s.Logger.Debug("Skip already stored record " + rec.Isbn13)
			s.Duplicates++
			continue
		}

		if _, err := s.Store.Create(ctx, rec); err != nil {
			return fmt.Errorf("saving record %s: %w", rec.Isbn13, err)
		}
		known[rec.Isbn13] = struct{}{}
		s.Saved++
	}

	return nil
}
