package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"readinglog/internal/types"
)

const sheetsServiceName = "Google Sheets API"

// NewSheetsService builds a Sheets client from inline JSON credentials, falling back to a key file.
func NewSheetsService(ctx context.Context, credentialsJson, credentialsFile string, extra ...option.ClientOption) (*sheets.Service, error) {
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}

	switch {
	case credentialsJson != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJson)))
	case credentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	case len(extra) == 0:
		return nil, errors.New("no Google credentials: set GOOGLE_CREDENTIALS_JSON or GOOGLE_APPLICATION_CREDENTIALS")
	}

	return sheets.NewService(ctx, append(opts, extra...)...)
}

func NewSheetsRepository(srv *sheets.Service, spreadsheetId, sheetName string, l *slog.Logger) Repository {
	return &sheetsRepo{srv: srv, spreadsheetId: spreadsheetId, sheet: sheetName, l: l}
}

// sheetsRepo keeps one record per row below a header row. Concurrent writers race; the last write wins.
type sheetsRepo struct {
	srv           *sheets.Service
	spreadsheetId string
	sheet         string
	l             *slog.Logger
}

func (s *sheetsRepo) rng(a1 string) string {
	return s.sheet + "!" + a1
}

func (s *sheetsRepo) rows(ctx context.Context) ([][]any, error) {
	res, err := s.srv.Spreadsheets.Values.
		Get(s.spreadsheetId, s.rng("A:"+lastSheetColumn)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, sheetsError(err, "reading rows")
	}

	return res.Values, nil
}

func (s *sheetsRepo) GetAll(ctx context.Context) ([]types.ReadingRecord, error) {
	rows, err := s.rows(ctx)
	if err != nil {
		return nil, err
	}

	s.l.DebugContext(ctx, fmt.Sprintf("Read %d rows from sheet %s", len(rows), s.sheet))
	return rowsToRecords(rows), nil
}

func (s *sheetsRepo) Create(ctx context.Context, rec *types.ReadingRecord) error {
	res, err := s.srv.Spreadsheets.Values.
		Append(s.spreadsheetId, s.rng("A1"), &sheets.ValueRange{Values: [][]any{RecordToRow(rec)}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return sheetsError(err, "appending row")
	}

	if res.Updates != nil {
		s.l.DebugContext(ctx, "Appended row at "+res.Updates.UpdatedRange)
	}

	return nil
}

func (s *sheetsRepo) Replace(ctx context.Context, isbn13 string, rec *types.ReadingRecord) error {
	rows, err := s.rows(ctx)
	if err != nil {
		return err
	}

	ix := findRow(rows, isbn13)
	if ix < 0 {
		return types.NotFound("no record with ISBN %s", isbn13)
	}
	rowNum := ix + 1

	updated := *rec
	updated.Isbn13 = isbn13

	a1 := fmt.Sprintf("A%d:%s%d", rowNum, lastSheetColumn, rowNum)
	_, err = s.srv.Spreadsheets.Values.
		Update(s.spreadsheetId, s.rng(a1), &sheets.ValueRange{Values: [][]any{RecordToRow(&updated)}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return sheetsError(err, "updating row")
	}

	return nil
}

// Delete removes the first row holding isbn13 with a single deleteDimension request. Other rows are never
// rewritten.
func (s *sheetsRepo) Delete(ctx context.Context, isbn13 string) (bool, error) {
	rows, err := s.rows(ctx)
	if err != nil {
		return false, err
	}

	ix := findRow(rows, isbn13)
	if ix < 0 {
		return false, nil
	}

	sheetId, err := s.sheetId(ctx)
	if err != nil {
		return false, err
	}

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:         sheetId,
					Dimension:       "ROWS",
					StartIndex:      int64(ix),
					EndIndex:        int64(ix + 1),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}

	_, err = s.srv.Spreadsheets.BatchUpdate(s.spreadsheetId, req).Context(ctx).Do()
	if err != nil {
		return false, sheetsError(err, "deleting row")
	}

	s.l.DebugContext(ctx, fmt.Sprintf("Deleted row %d of sheet %s", ix+1, s.sheet))
	return true, nil
}

// sheetId resolves the numeric id of the configured tab, which row deletion addresses instead of its title.
func (s *sheetsRepo) sheetId(ctx context.Context) (int64, error) {
	res, err := s.srv.Spreadsheets.Get(s.spreadsheetId).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).
		Do()
	if err != nil {
		return 0, sheetsError(err, "reading sheet properties")
	}

	for _, sh := range res.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.sheet {
			return sh.Properties.SheetId, nil
		}
	}

	return 0, &types.UpstreamError{Service: sheetsServiceName, Message: "no sheet named " + s.sheet}
}

// findRow returns the 0-based index of the first data row below the header holding isbn13, or -1.
func findRow(rows [][]any, isbn13 string) int {
	for ix := 1; ix < len(rows); ix++ {
		if RowToRecord(rows[ix]).Isbn13 == isbn13 {
			return ix
		}
	}
	return -1
}

func sheetsError(err error, op string) error {
	uerr := &types.UpstreamError{Service: sheetsServiceName, Err: fmt.Errorf("%s: %w", op, err)}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		uerr.Code = gerr.Code
		uerr.Message = gerr.Message
	}

	return uerr
}
