package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"readinglog/internal/types"
)

const cacheKeyPrefix = "readinglog:lookup:"

// ErrCacheMiss is returned by Cache.Get when nothing is stored under the key.
var ErrCacheMiss = errors.New("cache miss")

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

type RedisCache struct {
	RDB *redis.Client
}

func NewRedisCache(redisUrl string) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisUrl)
	if err != nil {
		return nil, err
	}

	return &RedisCache{RDB: redis.NewClient(opt)}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	bs, err := c.RDB.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return bs, err
}

func (c *RedisCache) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return c.RDB.SetEx(ctx, key, val, ttl).Err()
}

// Cached remembers successful lookups, including "not found" answers, for TTL.
// Cache failures only get logged; the search falls through to Next.
type Cached struct {
	Next   Searcher
	Cache  Cache
	TTL    time.Duration
	Logger *slog.Logger
}

type cachedIsbn struct {
	Book *types.BookMetadata `json:"book"`
}

func (c *Cached) SearchByISBN(ctx context.Context, isbn string) (*types.BookMetadata, error) {
	sanitized, err := ValidateISBN(isbn)
	if err != nil {
		return nil, err
	}

	key := cacheKeyPrefix + "isbn:" + sanitized

	var hit cachedIsbn
	if c.load(ctx, key, &hit) {
		return hit.Book, nil
	}

	book, err := c.Next.SearchByISBN(ctx, sanitized)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, cachedIsbn{Book: book})
	return book, nil
}

func (c *Cached) SearchByTitle(ctx context.Context, title string) ([]types.BookMetadata, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, types.InvalidArgument("title is required")
	}

	key := cacheKeyPrefix + "title:" + strings.ToLower(title)

	var hit []types.BookMetadata
	if c.load(ctx, key, &hit) {
		return hit, nil
	}

	books, err := c.Next.SearchByTitle(ctx, title)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, books)
	return books, nil
}

func (c *Cached) load(ctx context.Context, key string, target any) bool {
	bs, err := c.Cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.Logger.WarnContext(ctx, "Failed to read lookup cache "+key+": "+err.Error())
		}
		return false
	}

	err = json.Unmarshal(bs, target)
	if err != nil {
		c.Logger.WarnContext(ctx, "Dropping malformed lookup cache entry "+key+": "+err.Error())
		return false
	}

	return true
}

func (c *Cached) store(ctx context.Context, key string, val any) {
	bs, err := json.Marshal(val)
	if err != nil {
		c.Logger.WarnContext(ctx, "Failed to marshal lookup cache entry "+key+": "+err.Error())
		return
	}

	err = c.Cache.Set(ctx, key, bs, c.TTL)
	if err != nil {
		c.Logger.WarnContext(ctx, "Failed to write lookup cache "+key+": "+err.Error())
	}
}
