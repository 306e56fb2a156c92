package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jose-valero/lavamusic-bot/internal/domain"
)

const (
	KeyPrefixSearch = "lavamusic:search:"
	DefaultTTL      = 10 * time.Minute
)

// SearchKey normaliza la query (ya sanitizada) a la key de Redis.
func SearchKey(query string) string {
	return KeyPrefixSearch + strings.ToLower(strings.TrimSpace(query))
}

// SearchCache guarda resultados de /loadtracks como JSON con TTL.
type SearchCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewSearchCache(client redis.Cmdable, ttl time.Duration) *SearchCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SearchCache{client: client, ttl: ttl}
}

// Get: (nil, false, nil) si no hay entrada.
func (c *SearchCache) Get(ctx context.Context, query string) ([]domain.Track, bool, error) {
	data, err := c.client.Get(ctx, SearchKey(query)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("search cache get: %w", err)
	}
	var tracks []domain.Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		// entrada corrupta: se trata como miss y se pisa en el próximo Set
		return nil, false, fmt.Errorf("search cache decode: %w", err)
	}
	return tracks, true, nil
}

func (c *SearchCache) Set(ctx context.Context, query string, tracks []domain.Track) error {
	data, err := json.Marshal(tracks)
	if err != nil {
		return fmt.Errorf("search cache encode: %w", err)
	}
	if err := c.client.Set(ctx, SearchKey(query), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("search cache set: %w", err)
	}
	return nil
}

// Ping para /readyz.
func (c *SearchCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
