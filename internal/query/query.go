package query

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"readinglog/internal/types"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10

	// Sort orders accepted in sort=. An empty Sort keeps stored order.
	SortAdded    = "added"
	SortReadDate = "read_date"
	SortTitle    = "title"
)

type Request struct {
	Keyword       string
	ReadMonth     string
	Rating        string
	ReadingStatus string
	Sort          string
	Page          int
	Limit         int
}

type Result struct {
	Data       []types.ReadingRecord `json:"data"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	Limit      int                   `json:"limit"`
	TotalPages int                   `json:"totalPages"`
}

// Filter decides whether a record is part of the result.
type Filter func(rec *types.ReadingRecord) bool

// ParseRequest reads the get_books query string. Malformed or non-positive page and limit fall back to defaults.
func ParseRequest(q url.Values) Request {
	return Request{
		Keyword:       strings.TrimSpace(q.Get("keyword")),
		ReadMonth:     strings.TrimSpace(q.Get("read_month")),
		Rating:        strings.TrimSpace(q.Get("rating")),
		ReadingStatus: strings.TrimSpace(q.Get("reading_status")),
		Sort:          parseSort(q.Get("sort")),
		Page:          positiveOrDefault(q.Get("page"), DefaultPage),
		Limit:         positiveOrDefault(q.Get("limit"), DefaultLimit),
	}
}

// parseSort maps unknown orders to stored order.
func parseSort(s string) string {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case SortAdded, SortReadDate, SortTitle:
		return s
	}
	return ""
}

func positiveOrDefault(s string, default_ int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return default_
	}
	return n
}

// Filters returns one predicate per non-empty criterion of req.
func Filters(req Request) []Filter {
	var fs []Filter

	if req.Keyword != "" {
		needle := fold(req.Keyword)
		fs = append(fs, func(rec *types.ReadingRecord) bool {
			for _, field := range []string{rec.Title, rec.Author, rec.Comment, rec.Isbn13} {
				if field != "" && strings.Contains(fold(field), needle) {
					return true
				}
			}
			return false
		})
	}

	if req.ReadMonth != "" {
		fs = append(fs, func(rec *types.ReadingRecord) bool {
			return rec.ReadDate != "" && strings.HasPrefix(rec.ReadDate, req.ReadMonth)
		})
	}

	if req.Rating != "" {
		fs = append(fs, func(rec *types.ReadingRecord) bool {
			return types.ValidRating(rec.Rating) && strconv.Itoa(*rec.Rating) == req.Rating
		})
	}

	if req.ReadingStatus != "" {
		status := strings.ToLower(req.ReadingStatus)
		fs = append(fs, func(rec *types.ReadingRecord) bool {
			return rec.ReadingStatus != "" && strings.ToLower(rec.ReadingStatus) == status
		})
	}

	return fs
}

// Records filters all with req and returns the requested page. all is never modified.
func Records(all []types.ReadingRecord, req Request) Result {
	if req.Page < 1 {
		req.Page = DefaultPage
	}
	if req.Limit < 1 {
		req.Limit = DefaultLimit
	}

	filtered := Apply(all, Filters(req)...)
	Sort(filtered, req.Sort)

	total := len(filtered)
	totalPages := total / req.Limit
	if total%req.Limit != 0 {
		totalPages++
	}

	var data []types.ReadingRecord
	if req.Page <= totalPages {
		start := (req.Page - 1) * req.Limit
		end := start + min(req.Limit, total-start)
		data = make([]types.ReadingRecord, 0, end-start)
		data = append(data, filtered[start:end]...)
	} else {
		data = []types.ReadingRecord{}
	}

	return Result{
		Data:       data,
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: totalPages,
	}
}

// Apply keeps records passing every filter, in their original order.
func Apply(all []types.ReadingRecord, filters ...Filter) []types.ReadingRecord {
	ret := make([]types.ReadingRecord, 0, len(all))

outer:
	for i := range all {
		for _, f := range filters {
			if !f(&all[i]) {
				continue outer
			}
		}
		ret = append(ret, all[i])
	}

	return ret
}

// Sort orders recs in place. Unknown orders leave recs untouched.
func Sort(recs []types.ReadingRecord, order string) {
	switch order {
	case SortAdded:
		// stored order is insertion order, newest last
		for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
			recs[i], recs[j] = recs[j], recs[i]
		}
	case SortReadDate:
		sort.SliceStable(recs, func(i, j int) bool {
			a, b := recs[i].ReadDate, recs[j].ReadDate
			if a == "" || b == "" {
				return a != "" && b == ""
			}
			return a > b
		})
	case SortTitle:
		c := collate.New(language.Japanese, collate.Loose)
		sort.SliceStable(recs, func(i, j int) bool {
			return c.CompareString(recs[i].Title, recs[j].Title) < 0
		})
	}
}

// fold makes full-width and half-width forms compare equal, case-insensitively.
func fold(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}
