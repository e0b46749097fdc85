package records

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"readinglog/internal/query"
	"readinglog/internal/types"
)

// Store loads the whole collection on every call and hands it to the query engine.
type Store struct {
	Repo    Repository
	Backend string
	Logger  *slog.Logger
}

func NewStore(repo Repository, backend string, l *slog.Logger) *Store {
	return &Store{Repo: repo, Backend: backend, Logger: l}
}

func (s *Store) all(ctx context.Context) ([]types.ReadingRecord, error) {
	all, err := s.Repo.GetAll(ctx)
	if err != nil {
		return nil, s.upstream(err, "loading records")
	}
	return all, nil
}

func (s *Store) FetchAll(ctx context.Context, req query.Request) (query.Result, error) {
	all, err := s.all(ctx)
	if err != nil {
		return query.Result{}, err
	}

	res := query.Records(all, req)
	s.Logger.DebugContext(ctx, "Fetched records", slog.Int("total", res.Total), slog.Int("returned", len(res.Data)))

	return res, nil
}

func (s *Store) Create(ctx context.Context, rec types.ReadingRecord) (types.ReadingRecord, error) {
	rec.Normalize()

	if rec.Title == "" || rec.Isbn13 == "" {
		return types.ReadingRecord{}, types.InvalidArgument("title and isbn13 are required")
	}
	if rec.Rating != nil && !types.ValidRating(rec.Rating) {
		return types.ReadingRecord{}, types.InvalidArgument("rating must be between 1 and 5, got %d", *rec.Rating)
	}
	if strings.TrimSpace(rec.ReadingStatus) == "" {
		rec.ReadingStatus = types.StatusUnread
	}

	err := s.Repo.Create(ctx, &rec)
	if err != nil {
		return types.ReadingRecord{}, s.upstream(err, "saving record")
	}

	s.Logger.InfoContext(ctx, "Saved record "+rec.Isbn13+" ("+rec.Title+")")
	return rec, nil
}

func (s *Store) Update(ctx context.Context, isbn13 string, patch types.RecordPatch) (types.ReadingRecord, error) {
	if strings.TrimSpace(isbn13) == "" {
		return types.ReadingRecord{}, types.InvalidArgument("isbn13 is required")
	}
	if patch.Rating != nil && !types.ValidRating(patch.Rating) {
		return types.ReadingRecord{}, types.InvalidArgument("rating must be between 1 and 5, got %d", *patch.Rating)
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return types.ReadingRecord{}, types.InvalidArgument("title cannot be emptied")
	}

	all, err := s.all(ctx)
	if err != nil {
		return types.ReadingRecord{}, err
	}

	_, updated, err := query.Update(all, isbn13, patch)
	if err != nil {
		return types.ReadingRecord{}, err
	}

	err = s.Repo.Replace(ctx, isbn13, &updated)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.ReadingRecord{}, err
		}
		return types.ReadingRecord{}, s.upstream(err, "updating record")
	}

	s.Logger.InfoContext(ctx, "Updated record "+isbn13)
	return updated, nil
}

// Delete removes the first record with isbn13. Repeated deletes succeed and report false.
func (s *Store) Delete(ctx context.Context, isbn13 string) (bool, error) {
	if strings.TrimSpace(isbn13) == "" {
		return false, types.InvalidArgument("isbn13 is required")
	}

	deleted, err := s.Repo.Delete(ctx, isbn13)
	if err != nil {
		return false, s.upstream(err, "deleting record")
	}

	if deleted {
		s.Logger.InfoContext(ctx, "Deleted record "+isbn13)
	} else {
		s.Logger.DebugContext(ctx, "Nothing to delete for "+isbn13)
	}

	return deleted, nil
}

func (s *Store) Stats(ctx context.Context) (query.Stats, error) {
	all, err := s.all(ctx)
	if err != nil {
		return query.Stats{}, err
	}
	return query.MonthlyCompletions(all), nil
}

func (s *Store) Summary(ctx context.Context, year int) (query.Summary, error) {
	all, err := s.all(ctx)
	if err != nil {
		return query.Summary{}, err
	}
	return query.Summarize(all, year), nil
}

func (s *Store) Months(ctx context.Context) ([]string, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	return query.Months(all), nil
}

// Isbns returns the set of stored ISBNs from a single load of the collection.
func (s *Store) Isbns(ctx context.Context) (map[string]struct{}, error) {
	all, err := s.all(ctx)
	if err != nil {
		return nil, err
	}

	ret := make(map[string]struct{}, len(all))
	for i := range all {
		ret[all[i].Isbn13] = struct{}{}
	}
	return ret, nil
}

func (s *Store) upstream(err error, op string) error {
	var uerr *types.UpstreamError
	if errors.As(err, &uerr) {
		return err
	}

	s.Logger.Error("Record store failure while " + op + ": " + err.Error())
	return &types.UpstreamError{Service: s.Backend, Message: op + " failed", Err: err}
}
