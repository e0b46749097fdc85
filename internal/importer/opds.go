package importer

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/opds-community/libopds2-go/opds1"

	"readinglog/internal/types"
)

const (
	linkTypeAtom     = "application/atom+xml"
	linkRelImage     = "http://opds-spec.org/image"
	linkRelThumbnail = "http://opds-spec.org/image/thumbnail"
	linkRelNext      = "next"
	defaultMaxPages  = 50
	maxFeedSize      = 16 << 20
)

var (
	regLinkTypeImage = regexp.MustCompile("^image/[^/]+$")
	regIdIsbn        = regexp.MustCompile("(?i)(?:^|:)isbn:\\s*([0-9][0-9\\s-]{8,16}[0-9x])$")
	regIsbn          = regexp.MustCompile("^(\\d{13}|\\d{9}[\\dX])$")
)

// Result counts what one import run went through.
type Result struct {
	Pages   int
	Entries int
	Skipped int
}

// OPDS walks an OPDS 1 acquisition feed page by page and hands each page's records to a Consumer.
type OPDS struct {
	Client   *http.Client
	Logger   *slog.Logger
	Status   string
	MaxPages int
}

func (o *OPDS) Import(ctx context.Context, feedUrl *url.URL, consumer Consumer) (Result, error) {
	var res Result

	maxPages := o.MaxPages
	if maxPages < 1 {
		maxPages = defaultMaxPages
	}

	seen := make(map[string]struct{})

	for next := feedUrl; next != nil; {
		if res.Pages >= maxPages {
			o.Logger.Warn(fmt.Sprintf("Stopping after %d pages, more are available at %s", maxPages, next))
			break
		}

		if _, ok := seen[next.String()]; ok {
			o.Logger.Warn("Feed pages loop back to " + next.String())
			break
		}
		seen[next.String()] = struct{}{}

		feed, err := o.fetch(ctx, next)
		if err != nil {
			return res, err
		}
		res.Pages++

		l := o.Logger.With(slog.String("feed", next.Path))

		recs := make([]types.ReadingRecord, 0, len(feed.Entries))
		for _, entry := range feed.Entries {
			res.Entries++

			rec, ok := o.record(&entry, next, l)
			if !ok {
				res.Skipped++
				continue
			}

			recs = append(recs, rec)
		}

		if len(recs) == 0 {
			l.Warn("No records parsed from feed page")
		} else if err := consumer.ConsumeRecords(ctx, recs); err != nil {
			return res, fmt.Errorf("consuming records: %w", err)
		}

		next = o.nextPage(feed, next, l)
	}

	return res, nil
}

func (o *OPDS) fetch(ctx context.Context, feedUrl *url.URL) (*opds1.Feed, error) {
	o.Logger.DebugContext(ctx, "Begin processing feed "+feedUrl.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedUrl.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building feed request: %w", err)
	}

	res, err := o.Client.Do(req)
	if err != nil {
		o.Logger.Error("Failed to fetch feed " + feedUrl.String() + ": " + err.Error())
		return nil, fmt.Errorf("fetching feed: %w", err)
	}

	var bs []byte
	func() {
		defer res.Body.Close()
		bs, err = io.ReadAll(io.LimitReader(res.Body, maxFeedSize))
	}()

	if err != nil {
		o.Logger.Error("Failed to read body of feed " + feedUrl.String() + ": " + err.Error())
		return nil, fmt.Errorf("fetching feed (reading response): %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		o.Logger.Error(fmt.Sprintf("Feed %s answered with status %d", feedUrl, res.StatusCode))
		return nil, &types.UpstreamError{Service: "OPDS feed", Message: res.Status, Code: res.StatusCode}
	}

	var feed opds1.Feed
	err = xml.Unmarshal(removeDisallowedCodepoints(bs, o.Logger), &feed)
	if err != nil {
		o.Logger.Error("Failed to unmarshal feed " + feedUrl.String() + ": " + err.Error())
		return nil, fmt.Errorf("unmarshalling feed: %w", err)
	}

	return &feed, nil
}

func (o *OPDS) record(entry *opds1.Entry, feedUrl *url.URL, l *slog.Logger) (types.ReadingRecord, bool) {
	entry.ID = strings.TrimSpace(entry.ID)
	title := strings.TrimSpace(entry.Title)

	isbn := isbnFromId(entry.ID)
	if isbn == "" {
		l.Warn("Skip entry without ISBN " + entry.ID + " (" + title + ")")
		return types.ReadingRecord{}, false
	}

	if title == "" {
		l.Warn("Skip entry without title " + entry.ID)
		return types.ReadingRecord{}, false
	}

	var authors []string
	seenAuthors := make(map[string]struct{}, len(entry.Author))
	for _, auth := range entry.Author {
		name := strings.TrimSpace(auth.Name)
		if name == "" {
			continue
		}

		if _, ok := seenAuthors[name]; ok {
			l.Warn("In the same entry found duplicate of author " + name)
			continue
		}
		seenAuthors[name] = struct{}{}

		authors = append(authors, name)
	}

	rec := types.ReadingRecord{
		Isbn13:        isbn,
		Title:         title,
		Author:        strings.Join(authors, ", "),
		Description:   strings.TrimSpace(entry.Content.Content),
		PublishedDate: strings.TrimSpace(entry.Issued),
		Thumbnail:     o.thumbnail(entry, feedUrl, l),
		ReadingStatus: o.Status,
	}

	if rec.ReadingStatus == "" {
		rec.ReadingStatus = types.StatusUnread
	}

	return rec, true
}

// thumbnail prefers the thumbnail rel over the full size image.
func (o *OPDS) thumbnail(entry *opds1.Entry, feedUrl *url.URL, l *slog.Logger) string {
	var link *opds1.Link
	for _, rel := range []string{linkRelThumbnail, linkRelImage} {
		link = chooseLink(entry, func(link *opds1.Link) string {
			if link.Rel != rel {
				return "unknown rel: " + link.Rel
			}

			if !regLinkTypeImage.MatchString(link.TypeLink) {
				return "unknown type: " + link.TypeLink
			}

			return ""
		}, clLogger{logger: l.With(slog.String("entry", entry.ID)), levelSkipLink: slog.LevelDebug})

		if link != nil {
			break
		}
	}

	if link == nil {
		l.Debug("Not found cover link " + entry.ID)
		return ""
	}

	coverUrl, err := url.Parse(link.Href)
	if err != nil {
		l.Error("Failed to parse cover link " + entry.ID + ": " + err.Error())
		return ""
	}

	return feedUrl.ResolveReference(coverUrl).String()
}

func (o *OPDS) nextPage(feed *opds1.Feed, feedUrl *url.URL, l *slog.Logger) *url.URL {
	linkNxtPage := chooseLink(&opds1.Entry{Links: feed.Links}, func(link *opds1.Link) string {
		if link.Rel != linkRelNext {
			return "unknown rel " + link.Rel
		}

		if link.TypeLink != "" && !strings.HasPrefix(link.TypeLink, linkTypeAtom) {
			return "unknown type: " + link.TypeLink
		}

		return ""
	}, clLogger{logger: l})

	if linkNxtPage == nil {
		return nil
	}

	l.Debug("Found link to the next page")

	urlNextPage, err := url.Parse(linkNxtPage.Href)
	if err != nil {
		l.Error("Failed to parse next page link " + linkNxtPage.Href + ": " + err.Error())
		return nil
	}

	return feedUrl.ResolveReference(urlNextPage)
}

// isbnFromId pulls an ISBN out of ids like urn:isbn:978-4-10-101001-4.
func isbnFromId(id string) string {
	s := regIdIsbn.FindStringSubmatch(id)
	if len(s) == 0 {
		return ""
	}

	isbn := strings.ToUpper(types.SanitizeISBN(s[1]))
	if !regIsbn.MatchString(isbn) {
		return ""
	}

	return isbn
}

type clLogger struct {
	logger        *slog.Logger
	levelSkipLink slog.Leveler
}

func chooseLink(e *opds1.Entry, matcher func(link *opds1.Link) string, l clLogger) *opds1.Link {
	var ret *opds1.Link

	for _, link := range e.Links {
		link.Rel = strings.TrimSpace(link.Rel)
		link.TypeLink = strings.TrimSpace(link.TypeLink)

		if matcher != nil {
			mismatch := matcher(&link)
			if mismatch != "" {
				if l.levelSkipLink != nil {
					l.logger.Log(context.Background(), l.levelSkipLink.Level(), "Skip non-matching link: "+mismatch)
				}

				continue
			}
		}

		if ret != nil {
			l.logger.Warn("Skip duplicate matching link: " + link.Href)
			continue
		}

		ret = &link
	}

	return ret
}

// Some feeds carry characters XML does not allow; drop them before parsing.
func removeDisallowedCodepoints(bs []byte, l *slog.Logger) []byte {
	ret := make([]byte, 0, len(bs))
	buf := bs

	for len(buf) > 0 {
		r, size := utf8.DecodeRune(buf)
		if r == utf8.RuneError && size == 1 {
			l.Warn("Going to fail XML parsing because the bytes do not represent valid UTF8")
			return bs
		}

		if isInCharacterRange(r) {
			ret = append(ret, buf[:size]...)
		} else {
			l.Warn("Removed invalid rune from XML")
		}

		buf = buf[size:]
	}

	return ret
}

// Char production of XML 1.0, section 2.2.
func isInCharacterRange(r rune) bool {
	return r == 0x09 ||
		r == 0x0A ||
		r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}
