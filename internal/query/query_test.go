package query

import (
	"fmt"
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readinglog/internal/types"
)

func intPtr(i int) *int { return &i }

func twelveCompleted() []types.ReadingRecord {
	recs := make([]types.ReadingRecord, 0, 12)
	for m := 1; m <= 12; m++ {
		recs = append(recs, types.ReadingRecord{
			Isbn13:        fmt.Sprintf("97840000000%02d", m),
			Title:         fmt.Sprintf("Book %d", m),
			Author:        "Author",
			ReadDate:      fmt.Sprintf("2023-%02d-15", m),
			ReadingStatus: types.StatusCompleted,
		})
	}
	return recs
}

func sample() []types.ReadingRecord {
	return []types.ReadingRecord{
		{Isbn13: "9784101010014", Title: "こころ", Author: "夏目漱石", ReadDate: "2024-01-10", Rating: intPtr(5), ReadingStatus: "completed", Comment: "classic"},
		{Isbn13: "9784000000001", Title: "Go in Practice", Author: "山田太郎", ReadDate: "2024-02-01", Rating: intPtr(3), ReadingStatus: "Completed"},
		{Isbn13: "9784000000002", Title: "Unrated", Author: "山田太郎", ReadingStatus: "reading"},
		{Isbn13: "9784000000003", Title: "Four stars", Author: "Jane Doe", ReadDate: "2024-01-20", Rating: intPtr(4), ReadingStatus: "completed", Comment: "Loved the GOPHER"},
		{Isbn13: "9784000000004", Title: "Broken rating", Author: "Jane Doe", Rating: intPtr(9), ReadingStatus: "unread"},
	}
}

func TestRecords_Pagination(t *testing.T) {
	all := twelveCompleted()

	res := Records(all, Request{Page: 2, Limit: 10})
	assert.Len(t, res.Data, 2)
	assert.Equal(t, 12, res.Total)
	assert.Equal(t, 2, res.TotalPages)
	assert.Equal(t, 2, res.Page)
	assert.Equal(t, 10, res.Limit)
	assert.Equal(t, "Book 11", res.Data[0].Title)

	t.Run("page past the end is empty", func(t *testing.T) {
		res := Records(all, Request{Page: 5, Limit: 10})
		assert.NotNil(t, res.Data)
		assert.Empty(t, res.Data)
		assert.Equal(t, 12, res.Total)
	})

	t.Run("no matches", func(t *testing.T) {
		res := Records(all, Request{Keyword: "nothing matches", Page: 1, Limit: 10})
		assert.Equal(t, 0, res.Total)
		assert.Equal(t, 0, res.TotalPages)
		assert.Empty(t, res.Data)
	})

	t.Run("invalid page and limit default", func(t *testing.T) {
		res := Records(all, Request{Page: 0, Limit: -3})
		assert.Equal(t, DefaultPage, res.Page)
		assert.Equal(t, DefaultLimit, res.Limit)
		assert.Len(t, res.Data, 10)
	})
}

func TestRecords_HugePageAndLimit(t *testing.T) {
	all := twelveCompleted()

	res := Records(all, Request{Page: 1<<62 + 1, Limit: 4})
	assert.NotNil(t, res.Data)
	assert.Empty(t, res.Data)
	assert.Equal(t, 3, res.TotalPages)

	res = Records(all, Request{Page: math.MaxInt, Limit: math.MaxInt})
	assert.Empty(t, res.Data)
	assert.Equal(t, 1, res.TotalPages)

	res = Records(all, Request{Page: 1, Limit: math.MaxInt})
	assert.Len(t, res.Data, 12)
	assert.Equal(t, 12, cap(res.Data))
	assert.Equal(t, 1, res.TotalPages)

	q := url.Values{"page": {"9223372036854775807"}, "limit": {"9223372036854775807"}}
	res = Records(all, ParseRequest(q))
	assert.Empty(t, res.Data)
}

func TestRecords_Sort(t *testing.T) {
	all := []types.ReadingRecord{
		{Isbn13: "1", Title: "banana", ReadDate: "2024-03-01"},
		{Isbn13: "2", Title: "Apple"},
		{Isbn13: "3", Title: "cherry", ReadDate: "2024-05-01"},
		{Isbn13: "4", Title: "apricot", ReadDate: "2023-12-31"},
		{Isbn13: "5", Title: "date"},
	}
	before := fmt.Sprint(all)

	isbns := func(res Result) []string {
		ret := make([]string, 0, len(res.Data))
		for _, rec := range res.Data {
			ret = append(ret, rec.Isbn13)
		}
		return ret
	}

	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, isbns(Records(all, Request{Page: 1, Limit: 10})))
	assert.Equal(t, []string{"5", "4", "3", "2", "1"}, isbns(Records(all, Request{Sort: SortAdded, Page: 1, Limit: 10})))
	assert.Equal(t, []string{"3", "1", "4", "2", "5"}, isbns(Records(all, Request{Sort: SortReadDate, Page: 1, Limit: 10})))
	assert.Equal(t, []string{"2", "4", "1", "3", "5"}, isbns(Records(all, Request{Sort: SortTitle, Page: 1, Limit: 10})))

	t.Run("sorts before paging", func(t *testing.T) {
		res := Records(all, Request{Sort: SortReadDate, Page: 2, Limit: 2})
		assert.Equal(t, []string{"4", "2"}, isbns(res))
	})

	assert.Equal(t, before, fmt.Sprint(all))
}

func TestRecords_PagesCoverTotal(t *testing.T) {
	all := append(twelveCompleted(), sample()...)

	for _, limit := range []int{1, 3, 5, 7, 10, 50} {
		req := Request{Page: 1, Limit: limit}
		first := Records(all, req)

		sum := 0
		for p := 1; p <= first.TotalPages; p++ {
			req.Page = p
			page := Records(all, req)
			assert.LessOrEqual(t, len(page.Data), limit)
			sum += len(page.Data)
		}

		assert.Equal(t, first.Total, sum, "limit %d", limit)
	}
}

func TestRecords_Keyword(t *testing.T) {
	all := sample()

	res := Records(all, Request{Keyword: "夏目", Page: 1, Limit: 10})
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "夏目漱石", res.Data[0].Author)

	t.Run("case insensitive over comment", func(t *testing.T) {
		res := Records(all, Request{Keyword: "gopher", Page: 1, Limit: 10})
		require.Equal(t, 1, res.Total)
		assert.Equal(t, "Four stars", res.Data[0].Title)
	})

	t.Run("isbn substring", func(t *testing.T) {
		res := Records(all, Request{Keyword: "0000000002", Page: 1, Limit: 10})
		require.Equal(t, 1, res.Total)
		assert.Equal(t, "Unrated", res.Data[0].Title)
	})

	t.Run("full width input", func(t *testing.T) {
		res := Records(all, Request{Keyword: "ＧＯ", Page: 1, Limit: 10})
		assert.Equal(t, 2, res.Total)
	})
}

func TestRecords_Rating(t *testing.T) {
	all := sample()

	res := Records(all, Request{Rating: "3", Page: 1, Limit: 10})
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "Go in Practice", res.Data[0].Title)

	res = Records(all, Request{Rating: "9", Page: 1, Limit: 10})
	assert.Equal(t, 0, res.Total, "out of range ratings are treated as unrated")
}

func TestRecords_MonthAndStatus(t *testing.T) {
	all := sample()

	res := Records(all, Request{ReadMonth: "2024-01", Page: 1, Limit: 10})
	assert.Equal(t, 2, res.Total)

	res = Records(all, Request{ReadingStatus: "COMPLETED", Page: 1, Limit: 10})
	assert.Equal(t, 3, res.Total)

	res = Records(all, Request{ReadingStatus: "completed", ReadMonth: "2024-01", Rating: "4", Page: 1, Limit: 10})
	require.Equal(t, 1, res.Total)
	assert.Equal(t, "Four stars", res.Data[0].Title)
}

func TestFilters_OrderInvariant(t *testing.T) {
	all := append(twelveCompleted(), sample()...)
	req := Request{Keyword: "o", ReadMonth: "2024-01", Rating: "4", ReadingStatus: "completed"}

	fs := Filters(req)
	require.Len(t, fs, 4)

	want := len(Apply(all, fs...))
	reversed := []Filter{fs[3], fs[2], fs[1], fs[0]}
	shuffled := []Filter{fs[2], fs[0], fs[3], fs[1]}

	assert.Equal(t, want, len(Apply(all, reversed...)))
	assert.Equal(t, want, len(Apply(all, shuffled...)))
	assert.Equal(t, want, len(Apply(Apply(all, fs[1]), fs[0], fs[2], fs[3])))
}

func TestRecords_DoesNotMutateInput(t *testing.T) {
	all := sample()
	before := fmt.Sprint(all)

	_ = Records(all, Request{Keyword: "jane", Page: 1, Limit: 1})

	assert.Equal(t, before, fmt.Sprint(all))
}

func TestParseRequest(t *testing.T) {
	q := url.Values{}
	q.Set("keyword", "  夏目 ")
	q.Set("read_month", "2024-01")
	q.Set("rating", "5")
	q.Set("reading_status", "completed")
	q.Set("sort", " Title ")
	q.Set("page", "3")
	q.Set("limit", "abc")

	req := ParseRequest(q)
	assert.Equal(t, Request{
		Keyword:       "夏目",
		ReadMonth:     "2024-01",
		Rating:        "5",
		ReadingStatus: "completed",
		Sort:          SortTitle,
		Page:          3,
		Limit:         DefaultLimit,
	}, req)

	assert.Equal(t, Request{Page: DefaultPage, Limit: DefaultLimit}, ParseRequest(url.Values{"page": {"-2"}}))
	assert.Equal(t, "", ParseRequest(url.Values{"sort": {"rating"}}).Sort)
}
