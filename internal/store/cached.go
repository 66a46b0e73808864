package store

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/voyagen/tvonline/internal/cache"
	"github.com/voyagen/tvonline/internal/models"
)

// ErrNoIndex is returned by vector operations when the wrapped store has no index.
var ErrNoIndex = errors.New("store: vector index unavailable")

const (
	ttlPlaylists = 2 * time.Minute
	ttlPlaylist  = 5 * time.Minute
	ttlSearch    = 2 * time.Minute
)

var (
	keyPlaylists    = cache.Key("playlists")
	patternPlaylist = cache.Key("playlist", "*")
	patternSearch   = cache.Key("search", "*")
)

// CachedStore wraps a Store with a Redis read cache. Playlist reads and
// semantic searches are served from cache; writes invalidate.
type CachedStore struct {
	inner Store
	index VectorIndex
	cache *cache.Redis
	log   *logrus.Entry
}

// NewCachedStore wraps inner. If inner is also a VectorIndex its vector
// operations are passed through (searches cached).
func NewCachedStore(inner Store, c *cache.Redis, log *logrus.Entry) *CachedStore {
	cs := &CachedStore{inner: inner, cache: c, log: log.WithField("component", "store-cache")}
	if idx, ok := inner.(VectorIndex); ok {
		cs.index = idx
	}
	return cs
}

// --- cached reads ---

func (c *CachedStore) ListPlaylists(ctx context.Context) ([]models.PlaylistSummary, error) {
	if v, err := cache.Get[[]models.PlaylistSummary](ctx, c.cache, keyPlaylists); err == nil {
		return v, nil
	}
	list, err := c.inner.ListPlaylists(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, keyPlaylists, list, ttlPlaylists)
	return list, nil
}

func (c *CachedStore) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	key := cache.Key("playlist", id)
	if v, err := cache.Get[models.Playlist](ctx, c.cache, key); err == nil {
		return &v, nil
	}
	p, err := c.inner.GetPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, p, ttlPlaylist)
	return p, nil
}

func (c *CachedStore) SemanticSearch(ctx context.Context, queryVec []float32, limit int) ([]SemanticResult, error) {
	if c.index == nil {
		return nil, ErrNoIndex
	}
	key := cache.Key("search", vecHash(queryVec), fmt.Sprintf("%d", limit))
	if v, err := cache.Get[[]SemanticResult](ctx, c.cache, key); err == nil {
		return v, nil
	}
	results, err := c.index.SemanticSearch(ctx, queryVec, limit)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, results, ttlSearch)
	return results, nil
}

// --- writes with invalidation ---

func (c *CachedStore) SavePlaylist(ctx context.Context, p models.Playlist) error {
	if err := c.inner.SavePlaylist(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, keyPlaylists, cache.Key("playlist", p.ID))
	c.invalidatePattern(ctx, patternSearch)
	return nil
}

func (c *CachedStore) DeletePlaylist(ctx context.Context, id string) error {
	if err := c.inner.DeletePlaylist(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, keyPlaylists, cache.Key("playlist", id))
	c.invalidatePattern(ctx, patternSearch)
	return nil
}

func (c *CachedStore) StoreEmbeddings(ctx context.Context, playlistID string, channels []models.Channel, embeddings [][]float32) error {
	if c.index == nil {
		return ErrNoIndex
	}
	if err := c.index.StoreEmbeddings(ctx, playlistID, channels, embeddings); err != nil {
		return err
	}
	c.invalidatePattern(ctx, patternSearch)
	return nil
}

// --- passthrough ---

func (c *CachedStore) LoadState(ctx context.Context) (models.State, error) {
	return c.inner.LoadState(ctx)
}

func (c *CachedStore) SaveFavorites(ctx context.Context, ids []string) error {
	return c.inner.SaveFavorites(ctx, ids)
}

func (c *CachedStore) SaveHistory(ctx context.Context, ids []string) error {
	return c.inner.SaveHistory(ctx, ids)
}

func (c *CachedStore) SaveSettings(ctx context.Context, s models.Settings) error {
	return c.inner.SaveSettings(ctx, s)
}

func (c *CachedStore) ChannelsWithoutEmbeddings(ctx context.Context, playlistID string, limit int) ([]models.Channel, error) {
	if c.index == nil {
		return nil, ErrNoIndex
	}
	return c.index.ChannelsWithoutEmbeddings(ctx, playlistID, limit)
}

// ClearAll drops every cached playlist and search entry.
func (c *CachedStore) ClearAll(ctx context.Context) {
	c.invalidate(ctx, keyPlaylists)
	c.invalidatePattern(ctx, patternPlaylist, patternSearch)
}

// --- helpers ---

func (c *CachedStore) set(ctx context.Context, key string, v any, ttl time.Duration) {
	if err := cache.Set(ctx, c.cache, key, v, ttl); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("cache set failed")
	}
}

func (c *CachedStore) invalidate(ctx context.Context, keys ...string) {
	if err := cache.Del(ctx, c.cache, keys...); err != nil {
		c.log.WithError(err).WithField("keys", keys).Warn("cache del failed")
	}
}

func (c *CachedStore) invalidatePattern(ctx context.Context, patterns ...string) {
	for _, p := range patterns {
		if err := cache.DelPattern(ctx, c.cache, p); err != nil {
			c.log.WithError(err).WithField("pattern", p).Warn("cache del pattern failed")
		}
	}
}

// vecHash produces a short hash of a vector for cache keys.
func vecHash(v []float32) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%v", v)))
	return fmt.Sprintf("%x", h[:8])
}
