package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/Reinhardt254/online-bookstore/internal/domain/book"
	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// BookCache keeps per-book records in redis so repeated catalog reads skip
// the database. Misses and redis failures both degrade to a DB read.
type BookCache struct {
	redisdb *redis.Client
	ttl     time.Duration
}

func NewBookCache(cfg RedisConfig) *BookCache {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ttl := cfg.TTL

	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &BookCache{redisdb: redisdb, ttl: ttl}
}

func bookKey(id int64) string {
	return "books:id:" + strconv.FormatInt(id, 10)
}

func (c *BookCache) Get(ctx context.Context, id int64) (book.Book, bool) {
	raw, err := c.redisdb.Get(ctx, bookKey(id)).Bytes()

	if err != nil {
		return book.Book{}, false
	}

	var b book.Book

	if err := json.Unmarshal(raw, &b); err != nil {
		return book.Book{}, false
	}

	return b, true
}

func (c *BookCache) Set(ctx context.Context, b book.Book) {
	raw, err := json.Marshal(b)

	if err != nil {
		return
	}

	// best effort; a failed write just means the next read hits the DB
	_ = c.redisdb.Set(ctx, bookKey(b.ID), raw, c.ttl).Err()
}

func (c *BookCache) Delete(ctx context.Context, id int64) {
	_ = c.redisdb.Del(ctx, bookKey(id)).Err()
}

// this ping function checks redis connectivity

func (c *BookCache) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

// this closes the client

func (c *BookCache) Close() error {
	return c.redisdb.Close()
}
