package records

import (
	"fmt"
	"strconv"
	"strings"

	"readinglog/internal/types"
)

// SheetColumns is the fixed column order of the spreadsheet, A through L.
var SheetColumns = []string{
	"isbn13",
	"title",
	"author",
	"description",
	"publishedDate",
	"publisher",
	"thumbnail",
	"readDate",
	"rating",
	"comment",
	"readingStatus",
	"amazonLink",
}

// lastSheetColumn is the letter of the last column, "L".
var lastSheetColumn = string(rune('A' + len(SheetColumns) - 1))

// RowToRecord maps one spreadsheet row onto a record. Missing trailing cells are empty; a rating cell that is not
// an integer in 1..5 leaves the record unrated.
func RowToRecord(row []any) types.ReadingRecord {
	cell := func(ix int) string {
		if ix >= len(row) || row[ix] == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(row[ix]))
	}

	rec := types.ReadingRecord{
		Isbn13:        cell(0),
		Title:         cell(1),
		Author:        cell(2),
		Description:   cell(3),
		PublishedDate: cell(4),
		Publisher:     cell(5),
		Thumbnail:     cell(6),
		ReadDate:      cell(7),
		Comment:       cell(9),
		ReadingStatus: cell(10),
		AmazonLink:    cell(11),
	}

	if r, err := strconv.Atoi(cell(8)); err == nil && r >= 1 && r <= 5 {
		rec.Rating = &r
	}

	return rec
}

// RecordToRow is the inverse of RowToRecord; absent values become empty cells.
func RecordToRow(rec *types.ReadingRecord) []any {
	rating := ""
	if rec.Rating != nil {
		rating = strconv.Itoa(*rec.Rating)
	}

	return []any{
		rec.Isbn13,
		rec.Title,
		rec.Author,
		rec.Description,
		rec.PublishedDate,
		rec.Publisher,
		rec.Thumbnail,
		rec.ReadDate,
		rating,
		rec.Comment,
		rec.ReadingStatus,
		rec.AmazonLink,
	}
}

// rowsToRecords skips the header row and rows that are entirely blank.
func rowsToRecords(rows [][]any) []types.ReadingRecord {
	if len(rows) <= 1 {
		return make([]types.ReadingRecord, 0)
	}

	ret := make([]types.ReadingRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := RowToRecord(row)
		if rec.Isbn13 == "" && rec.Title == "" {
			continue
		}
		ret = append(ret, rec)
	}

	return ret
}
