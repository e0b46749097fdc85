package lookup

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/books/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"readinglog/internal/types"
)

const (
	serviceName    = "Google Books API"
	titleMaxResult = 10
	requestTimeout = 15 * time.Second
)

// Searcher finds book metadata by ISBN or title.
type Searcher interface {
	// SearchByISBN returns nil without error when nothing matched
	SearchByISBN(ctx context.Context, isbn string) (*types.BookMetadata, error)
	SearchByTitle(ctx context.Context, title string) ([]types.BookMetadata, error)
}

type Client struct {
	Service *books.Service
	Logger  *slog.Logger
	Limiter *rate.Limiter
}

// NewClient builds a Books API client keyed by apiKey, or an anonymous one when apiKey is empty.
// Requests are throttled to rps per second.
func NewClient(ctx context.Context, apiKey string, rps int, l *slog.Logger, extra ...option.ClientOption) (*Client, error) {
	if rps < 1 {
		rps = 1
	}

	opts := []option.ClientOption{option.WithoutAuthentication()}
	if apiKey != "" {
		opts = []option.ClientOption{option.WithAPIKey(apiKey)}
	}

	srv, err := books.NewService(ctx, append(opts, extra...)...)
	if err != nil {
		return nil, err
	}

	return &Client{
		Service: srv,
		Logger:  l,
		Limiter: rate.NewLimiter(rate.Every(time.Second/time.Duration(rps)), 1),
	}, nil
}

func intoCommon(v *books.VolumeVolumeInfo, isbn13 string) types.BookMetadata {
	thumbnail := ""
	if v.ImageLinks != nil {
		thumbnail = v.ImageLinks.Thumbnail
		if thumbnail == "" {
			thumbnail = v.ImageLinks.SmallThumbnail
		}
	}

	authors := v.Authors
	if authors == nil {
		authors = make([]string, 0)
	}

	return types.BookMetadata{
		Title:         v.Title,
		Authors:       authors,
		Description:   v.Description,
		PublishedDate: v.PublishedDate,
		Publisher:     v.Publisher,
		Thumbnail:     types.SecureURL(thumbnail),
		Isbn13:        isbn13,
	}
}

func volumeIsbn13(v *books.VolumeVolumeInfo) string {
	for _, id := range v.IndustryIdentifiers {
		if id != nil && id.Type == "ISBN_13" {
			return id.Identifier
		}
	}
	return ""
}

// ValidateISBN sanitizes isbn and requires exactly 10 or 13 digits.
func ValidateISBN(isbn string) (string, error) {
	if strings.TrimSpace(isbn) == "" {
		return "", types.InvalidArgument("ISBN is required")
	}

	sanitized := types.SanitizeISBN(isbn)
	if len(sanitized) != 10 && len(sanitized) != 13 {
		return "", types.InvalidArgument("ISBN must be 10 or 13 digits, got %q", sanitized)
	}

	for _, r := range sanitized {
		if r < '0' || r > '9' {
			return "", types.InvalidArgument("ISBN must be 10 or 13 digits, got %q", sanitized)
		}
	}

	return sanitized, nil
}

func (c *Client) SearchByISBN(ctx context.Context, isbn string) (*types.BookMetadata, error) {
	sanitized, err := ValidateISBN(isbn)
	if err != nil {
		return nil, err
	}

	res, err := c.volumes(ctx, "isbn:"+sanitized, 0)
	if err != nil {
		return nil, err
	}

	for _, item := range res.Items {
		if item != nil && item.VolumeInfo != nil {
			book := intoCommon(item.VolumeInfo, sanitized)
			return &book, nil
		}
	}

	c.Logger.DebugContext(ctx, "No volume found for ISBN "+sanitized)
	return nil, nil
}

func (c *Client) SearchByTitle(ctx context.Context, title string) ([]types.BookMetadata, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, types.InvalidArgument("title is required")
	}

	res, err := c.volumes(ctx, "intitle:"+title, titleMaxResult)
	if err != nil {
		return nil, err
	}

	ret := make([]types.BookMetadata, 0, len(res.Items))
	for _, item := range res.Items {
		if item == nil || item.VolumeInfo == nil {
			continue
		}
		ret = append(ret, intoCommon(item.VolumeInfo, volumeIsbn13(item.VolumeInfo)))
	}

	return ret, nil
}

func (c *Client) volumes(ctx context.Context, q string, maxResults int64) (*books.Volumes, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	call := c.Service.Volumes.List(q).Context(ctx)
	if maxResults > 0 {
		call = call.MaxResults(maxResults)
	}

	c.Logger.DebugContext(ctx, "Querying "+serviceName+" for "+q)

	res, err := call.Do()
	if err != nil {
		uerr := &types.UpstreamError{Service: serviceName, Err: err}

		var gerr *googleapi.Error
		if errors.As(err, &gerr) {
			uerr.Code = gerr.Code
			uerr.Message = gerr.Message
		}

		c.Logger.ErrorContext(ctx, "Upstream failure: "+uerr.Error())
		return nil, uerr
	}

	return res, nil
}
