package query

import (
	"fmt"
	"sort"
	"strings"

	"readinglog/internal/types"
)

type Stats struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

type RatingCount struct {
	Rating int `json:"rating"`
	Count  int `json:"count"`
}

type Summary struct {
	TotalBooks         int            `json:"totalBooks"`
	TotalCompleted     int            `json:"totalCompleted"`
	YearCompleted      int            `json:"yearCompleted"`
	Year               int            `json:"year"`
	AverageRating      float64        `json:"averageRating"`
	StatusCounts       map[string]int `json:"statusCounts"`
	RatingDistribution []RatingCount  `json:"ratingDistribution"`
}

// MonthlyCompletions counts completed records per YYYY-MM of their read date.
// Records whose read date does not start with a YYYY-MM month are skipped.
func MonthlyCompletions(all []types.ReadingRecord) Stats {
	counts := make(map[string]int)

	for i := range all {
		if !types.IsCompleted(all[i].ReadingStatus) {
			continue
		}

		month, ok := yearMonth(all[i].ReadDate)
		if !ok {
			continue
		}

		counts[month]++
	}

	ret := Stats{
		Labels: make([]string, 0, len(counts)),
		Data:   make([]int, 0, len(counts)),
	}

	for month := range counts {
		ret.Labels = append(ret.Labels, month)
	}
	sort.Strings(ret.Labels)

	for _, month := range ret.Labels {
		ret.Data = append(ret.Data, counts[month])
	}

	return ret
}

// Months lists distinct read months, newest first.
func Months(all []types.ReadingRecord) []string {
	seen := make(map[string]struct{})
	ret := make([]string, 0)

	for i := range all {
		month, ok := yearMonth(all[i].ReadDate)
		if !ok {
			continue
		}
		if _, dup := seen[month]; dup {
			continue
		}
		seen[month] = struct{}{}
		ret = append(ret, month)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(ret)))
	return ret
}

// Summarize gathers the overview numbers shown next to the monthly chart.
func Summarize(all []types.ReadingRecord, year int) Summary {
	s := Summary{
		TotalBooks:         len(all),
		Year:               year,
		StatusCounts:       make(map[string]int),
		RatingDistribution: make([]RatingCount, 5),
	}

	for i := range s.RatingDistribution {
		s.RatingDistribution[i].Rating = i + 1
	}

	yearPrefix := ""
	if year > 0 {
		yearPrefix = fmt.Sprintf("%04d-", year)
	}

	ratingSum, rated := 0, 0
	for i := range all {
		rec := &all[i]

		status := strings.ToLower(strings.TrimSpace(rec.ReadingStatus))
		if types.IsCompleted(status) {
			status = types.StatusCompleted
		}
		s.StatusCounts[status]++

		if status != types.StatusCompleted {
			continue
		}

		s.TotalCompleted++
		if yearPrefix != "" && strings.HasPrefix(rec.ReadDate, yearPrefix) {
			s.YearCompleted++
		}

		if types.ValidRating(rec.Rating) {
			ratingSum += *rec.Rating
			rated++
			s.RatingDistribution[*rec.Rating-1].Count++
		}
	}

	if rated > 0 {
		s.AverageRating = float64(ratingSum) / float64(rated)
	}

	return s
}

func yearMonth(date string) (string, bool) {
	date = strings.TrimSpace(date)
	if len(date) < 7 || date[4] != '-' {
		return "", false
	}

	for _, ix := range []int{0, 1, 2, 3, 5, 6} {
		if date[ix] < '0' || date[ix] > '9' {
			return "", false
		}
	}

	return date[:7], true
}
