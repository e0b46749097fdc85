package types

import (
	"net/url"
	"strings"
	"unicode"
)

const (
	StatusUnread    = "unread"
	StatusReading   = "reading"
	StatusCompleted = "completed"

	// Labels written by the original spreadsheet front-end
	StatusUnreadJa    = "未読"
	StatusReadingJa   = "読書中"
	StatusCompletedJa = "読了"

	amazonSearchTemplate = "https://www.amazon.co.jp/s?k="
)

type ReadingRecord struct {
	Isbn13        string `json:"isbn13" validate:"required"`
	Title         string `json:"title" validate:"required"`
	Author        string `json:"author"`
	Description   string `json:"description,omitempty"`
	PublishedDate string `json:"publishedDate,omitempty"`
	Publisher     string `json:"publisher,omitempty"`
	Thumbnail     string `json:"thumbnail,omitempty"`
	ReadDate      string `json:"readDate,omitempty" validate:"omitempty,readdate"`
	Rating        *int   `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Comment       string `json:"comment,omitempty"`
	ReadingStatus string `json:"readingStatus"`
	AmazonLink    string `json:"amazonLink,omitempty"`
}

// Normalize fills derived fields and upgrades insecure thumbnail URLs.
func (r *ReadingRecord) Normalize() {
	r.Isbn13 = strings.TrimSpace(r.Isbn13)
	r.Title = strings.TrimSpace(r.Title)
	r.Thumbnail = SecureURL(r.Thumbnail)
	if r.AmazonLink == "" && r.Isbn13 != "" && r.Title != "" {
		r.AmazonLink = AmazonLink(r.Isbn13, r.Title)
	}
}

// RecordPatch carries a partial update. Nil fields are left untouched.
type RecordPatch struct {
	Title         *string `json:"title,omitempty" validate:"omitempty,min=1"`
	Author        *string `json:"author,omitempty"`
	Description   *string `json:"description,omitempty"`
	PublishedDate *string `json:"publishedDate,omitempty"`
	Publisher     *string `json:"publisher,omitempty"`
	Thumbnail     *string `json:"thumbnail,omitempty"`
	ReadDate      *string `json:"readDate,omitempty" validate:"omitempty,readdate"`
	Rating        *int    `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Comment       *string `json:"comment,omitempty"`
	ReadingStatus *string `json:"readingStatus,omitempty"`
	AmazonLink    *string `json:"amazonLink,omitempty"`
}

// Apply returns a copy of rec with every present patch field overwritten.
func (p RecordPatch) Apply(rec ReadingRecord) ReadingRecord {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	set(&rec.Title, p.Title)
	set(&rec.Author, p.Author)
	set(&rec.Description, p.Description)
	set(&rec.PublishedDate, p.PublishedDate)
	set(&rec.Publisher, p.Publisher)
	set(&rec.Thumbnail, p.Thumbnail)
	set(&rec.ReadDate, p.ReadDate)
	set(&rec.Comment, p.Comment)
	set(&rec.ReadingStatus, p.ReadingStatus)
	set(&rec.AmazonLink, p.AmazonLink)

	if p.Rating != nil {
		r := *p.Rating
		rec.Rating = &r
	} else if rec.Rating != nil {
		r := *rec.Rating
		rec.Rating = &r
	}

	rec.Thumbnail = SecureURL(rec.Thumbnail)

	// the link is derived from the title unless the patch sets one
	if p.Title != nil && p.AmazonLink == nil && rec.Isbn13 != "" {
		rec.AmazonLink = AmazonLink(rec.Isbn13, rec.Title)
	}

	return rec
}

func (p RecordPatch) Empty() bool {
	return p == RecordPatch{}
}

type BookMetadata struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Description   string   `json:"description,omitempty"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
	Thumbnail     string   `json:"thumbnail,omitempty"`
	Isbn13        string   `json:"isbn13,omitempty"`
}

// IsCompleted reports whether status marks a finished book, in either label set.
func IsCompleted(status string) bool {
	status = strings.ToLower(strings.TrimSpace(status))
	return status == StatusCompleted || status == StatusCompletedJa
}

func ValidRating(r *int) bool {
	return r != nil && *r >= 1 && *r <= 5
}

// SanitizeISBN drops hyphens and whitespace.
func SanitizeISBN(isbn string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, isbn)
}

func AmazonLink(isbn13, title string) string {
	return amazonSearchTemplate + SanitizeISBN(isbn13) + "+" + url.QueryEscape(title)
}

// SecureURL rewrites an http:// URL to https://, leaving anything else as is.
func SecureURL(u string) string {
	if len(u) >= 7 && strings.EqualFold(u[:7], "http://") {
		return "https://" + u[7:]
	}
	return u
}
