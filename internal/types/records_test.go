package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmazonLink(t *testing.T) {
	assert.Equal(t,
		"https://www.amazon.co.jp/s?k=9784101010014+%E3%81%93%E3%81%93%E3%82%8D",
		AmazonLink("978-4-10-101001 4", "こころ"))
	assert.Equal(t, "https://www.amazon.co.jp/s?k=9780000000000+Go+%26+You", AmazonLink("9780000000000", "Go & You"))
}

func TestSecureURL(t *testing.T) {
	assert.Equal(t, "https://books.google.com/x.jpg", SecureURL("http://books.google.com/x.jpg"))
	assert.Equal(t, "https://books.google.com/x.jpg", SecureURL("HTTP://books.google.com/x.jpg"))
	assert.Equal(t, "https://a", SecureURL("https://a"))
	assert.Equal(t, "", SecureURL(""))
}

func TestNormalize(t *testing.T) {
	rec := ReadingRecord{Isbn13: " 9784101010014 ", Title: "Kokoro", Thumbnail: "http://img"}
	rec.Normalize()

	assert.Equal(t, "9784101010014", rec.Isbn13)
	assert.Equal(t, "https://img", rec.Thumbnail)
	assert.Equal(t, "https://www.amazon.co.jp/s?k=9784101010014+Kokoro", rec.AmazonLink)

	rec = ReadingRecord{Isbn13: "1", Title: "t", AmazonLink: "https://example.com/given"}
	rec.Normalize()
	assert.Equal(t, "https://example.com/given", rec.AmazonLink)
}

func TestIsCompleted(t *testing.T) {
	assert.True(t, IsCompleted("completed"))
	assert.True(t, IsCompleted(" Completed "))
	assert.True(t, IsCompleted("読了"))
	assert.False(t, IsCompleted("reading"))
	assert.False(t, IsCompleted(""))
}

func TestPatchApply(t *testing.T) {
	four := 4
	rec := ReadingRecord{Isbn13: "1", Title: "t", Rating: &four, Comment: "keep"}
	title := "new"

	out := RecordPatch{Title: &title}.Apply(rec)
	assert.Equal(t, "new", out.Title)
	assert.Equal(t, "keep", out.Comment)
	assert.Equal(t, 4, *out.Rating)

	*out.Rating = 1
	assert.Equal(t, 4, *rec.Rating)

	assert.True(t, RecordPatch{}.Empty())
	assert.False(t, RecordPatch{Title: &title}.Empty())
}

func TestPatchApply_AmazonLinkFollowsTitle(t *testing.T) {
	rec := ReadingRecord{Isbn13: "9784101010014", Title: "Kokoro"}
	rec.Normalize()

	title := "こころ"
	out := RecordPatch{Title: &title}.Apply(rec)
	assert.Equal(t, AmazonLink("9784101010014", "こころ"), out.AmazonLink)

	comment := "again"
	out = RecordPatch{Comment: &comment}.Apply(rec)
	assert.Equal(t, rec.AmazonLink, out.AmazonLink)

	link := "https://example.com/given"
	out = RecordPatch{Title: &title, AmazonLink: &link}.Apply(rec)
	assert.Equal(t, link, out.AmazonLink)
}

func TestUpstreamError(t *testing.T) {
	cause := errors.New("boom")
	err := &UpstreamError{Service: "google books", Message: "Daily Limit Exceeded", Code: 403, Err: cause}

	assert.Equal(t, "google books error: Daily Limit Exceeded (code: 403)", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.ErrorIs(t, InvalidArgument("isbn %q", "x"), ErrInvalidArgument)
	assert.EqualError(t, NotFound("isbn %s", "1"), "not found: isbn 1")
}
