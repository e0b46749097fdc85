package importer

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readinglog/internal/storage/migrations"
	"readinglog/internal/storage/records"
	"readinglog/internal/types"
)

const pageOne = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:dc="http://purl.org/dc/terms/">
  <id>urn:catalog:new</id>
  <title>New arrivals</title>
  <link rel="next" type="application/atom+xml;profile=opds-catalog;kind=acquisition" href="/feed?page=2"/>
  <entry>
    <title>こころ</title>
    <id>urn:isbn:978-4-10-101001-4</id>
    <author><name>夏目漱石</name></author>
    <author><name>夏目漱石</name></author>
    <dc:issued>1952</dc:issued>
    <content type="text">先生と私</content>
    <link rel="http://opds-spec.org/image" type="image/jpeg" href="/covers/1.jpg"/>
    <link rel="http://opds-spec.org/image/thumbnail" type="image/jpeg" href="/covers/1-thumb.jpg"/>
  </entry>
  <entry>
    <title>No identifier</title>
    <id>urn:uuid:6e8bc430-9c3a-11d9-9669-0800200c9a66</id>
  </entry>
</feed>`

const pageTwo = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <id>urn:catalog:new:2</id>
  <title>New arrivals, page 2</title>
  <link rel="next" type="application/atom+xml;profile=opds-catalog" href="/feed?page=1"/>
  <entry>
    <title>Second` + "\x01" + ` book</title>
    <id>urn:isbn:4003101014</id>
    <author><name>Soseki</name></author>
    <author><name>Translator</name></author>
    <link rel="http://opds-spec.org/image" type="image/png" href="https://covers.example/2.png"/>
  </entry>
</feed>`

func newFeedServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		switch r.URL.Query().Get("page") {
		case "2":
			_, _ = io.WriteString(w, pageTwo)
		case "", "1":
			_, _ = io.WriteString(w, pageOne)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type collecting struct {
	recs []types.ReadingRecord
}

func (c *collecting) ConsumeRecords(_ context.Context, recs []types.ReadingRecord) error {
	c.recs = append(c.recs, recs...)
	return nil
}

func TestOPDS_Import(t *testing.T) {
	srv := newFeedServer(t)
	feedUrl, _ := url.Parse(srv.URL + "/feed?page=1")

	var c collecting
	res, err := (&OPDS{Client: srv.Client(), Logger: discardLogger(), Status: "reading"}).
		Import(context.Background(), feedUrl, &c)
	require.NoError(t, err)

	// page 2 links back to page 1, the walk stops there
	assert.Equal(t, Result{Pages: 2, Entries: 3, Skipped: 1}, res)

	require.Len(t, c.recs, 2)
	first := c.recs[0]
	assert.Equal(t, "9784101010014", first.Isbn13)
	assert.Equal(t, "こころ", first.Title)
	assert.Equal(t, "夏目漱石", first.Author)
	assert.Equal(t, "先生と私", first.Description)
	assert.Equal(t, "1952", first.PublishedDate)
	assert.Equal(t, srv.URL+"/covers/1-thumb.jpg", first.Thumbnail)
	assert.Equal(t, "reading", first.ReadingStatus)

	second := c.recs[1]
	assert.Equal(t, "4003101014", second.Isbn13)
	assert.Equal(t, "Second book", second.Title)
	assert.Equal(t, "Soseki, Translator", second.Author)
	assert.Equal(t, "https://covers.example/2.png", second.Thumbnail)
}

func TestOPDS_MaxPages(t *testing.T) {
	srv := newFeedServer(t)
	feedUrl, _ := url.Parse(srv.URL + "/feed?page=1")

	var c collecting
	res, err := (&OPDS{Client: srv.Client(), Logger: discardLogger(), MaxPages: 1}).
		Import(context.Background(), feedUrl, &c)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, 2, res.Entries)
	require.Len(t, c.recs, 1)
	assert.Equal(t, types.StatusUnread, c.recs[0].ReadingStatus)
}

func TestOPDS_UpstreamFailure(t *testing.T) {
	srv := newFeedServer(t)
	feedUrl, _ := url.Parse(srv.URL + "/feed?page=9")

	_, err := (&OPDS{Client: srv.Client(), Logger: discardLogger()}).
		Import(context.Background(), feedUrl, &collecting{})

	var uerr *types.UpstreamError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, http.StatusNotFound, uerr.Code)
}

func TestStoringConsumer_SkipsKnownIsbn(t *testing.T) {
	l := discardLogger()
	db, err := records.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Up(context.Background(), db, migrations.DialectSQLite, l))

	store := records.NewStore(records.NewSQLiteRepository(db, l), "sqlite", l)
	_, err = store.Create(context.Background(), types.ReadingRecord{Isbn13: "9784101010014", Title: "こころ", ReadingStatus: "completed"})
	require.NoError(t, err)

	srv := newFeedServer(t)
	feedUrl, _ := url.Parse(srv.URL + "/feed?page=1")

	c := &StoringConsumer{Logger: l, Store: store}
	_, err = (&OPDS{Client: srv.Client(), Logger: l}).Import(context.Background(), feedUrl, c)
	require.NoError(t, err)

	assert.Equal(t, 1, c.Saved)
	assert.Equal(t, 1, c.Duplicates)

	isbns, err := store.Isbns(context.Background())
	require.NoError(t, err)
	assert.Len(t, isbns, 2)
	assert.Contains(t, isbns, "4003101014")
}

func TestIsbnFromId(t *testing.T) {
	assert.Equal(t, "9784101010014", isbnFromId("urn:isbn:978-4-10-101001-4"))
	assert.Equal(t, "9784101010014", isbnFromId("ISBN:9784101010014"))
	assert.Equal(t, "400310101X", isbnFromId("urn:isbn:400310101x"))
	assert.Equal(t, "", isbnFromId("urn:uuid:6e8bc430"))
	assert.Equal(t, "", isbnFromId("urn:isbn:12345"))
}

func TestRemoveDisallowedCodepoints(t *testing.T) {
	assert.Equal(t, []byte("ab"), removeDisallowedCodepoints([]byte("a\x01b"), discardLogger()))
	assert.Equal(t, []byte("a\xffb"), removeDisallowedCodepoints([]byte("a\xffb"), discardLogger()))
}

type countingStore struct {
	loads   int
	created []string
}

func (c *countingStore) Isbns(context.Context) (map[string]struct{}, error) {
	c.loads++
	ret := map[string]struct{}{"111": {}}
	for _, isbn := range c.created {
		ret[isbn] = struct{}{}
	}
	return ret, nil
}

func (c *countingStore) Create(_ context.Context, rec types.ReadingRecord) (types.ReadingRecord, error) {
	c.created = append(c.created, rec.Isbn13)
	return rec, nil
}

func TestStoringConsumer_LoadsIsbnsOncePerPage(t *testing.T) {
	store := &countingStore{}
	c := &StoringConsumer{Logger: discardLogger(), Store: store}

	err := c.ConsumeRecords(context.Background(), []types.ReadingRecord{
		{Isbn13: "111", Title: "stored"},
		{Isbn13: "222", Title: "new"},
		{Isbn13: "222", Title: "repeated in the same page"},
		{Isbn13: "333", Title: "another"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, store.loads)
	assert.Equal(t, []string{"222", "333"}, store.created)
	assert.Equal(t, 2, c.Saved)
	assert.Equal(t, 2, c.Duplicates)
}
