// Package service implements the application operations behind the HTTP API:
// importing playlists, browsing, favorites, history, saved playlists,
// settings and semantic search. Every mutation is persisted before it returns.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/voyagen/tvonline/internal/cache"
	"github.com/voyagen/tvonline/internal/catalog"
	"github.com/voyagen/tvonline/internal/embedding"
	"github.com/voyagen/tvonline/internal/fetcher"
	"github.com/voyagen/tvonline/internal/metrics"
	"github.com/voyagen/tvonline/internal/models"
	"github.com/voyagen/tvonline/internal/store"
)

var (
	// ErrEmptyPlaylist is returned when an import yields no valid channel.
	ErrEmptyPlaylist = errors.New("service: no valid channels found in playlist")
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("service: invalid input")
	// ErrImportInProgress is returned when another import of the same URL holds the lock.
	ErrImportInProgress = errors.New("service: import of this playlist already running")
	// ErrSearchDisabled is returned when no embedder or vector index is configured.
	ErrSearchDisabled = errors.New("service: semantic search is not enabled")
	// ErrNotXtream is returned for EPG requests on channels without an Xtream stream.
	ErrNotXtream = errors.New("service: channel is not an Xtream stream")
)

const importLockTTL = 5 * time.Minute

// Service owns the catalog and keeps the store in step with it.
type Service struct {
	catalog *catalog.Catalog
	store   store.Store
	log     *logrus.Entry

	// optional collaborators
	index    store.VectorIndex
	embedder embedding.Embedder
	redis    *cache.Redis

	userAgent string
	timeout   time.Duration
	gen       fetcher.Generation

	// mu serializes mutation+persist pairs so writes reach the store in order.
	mu       sync.Mutex
	settings models.Settings
	xtream   *xtreamSession
}

// Option configures a Service.
type Option func(*Service)

// WithSearch enables semantic search and background indexing.
func WithSearch(idx store.VectorIndex, emb embedding.Embedder) Option {
	return func(s *Service) {
		s.index = idx
		s.embedder = emb
	}
}

// WithRedis enables the import lock and the indexing queue.
func WithRedis(r *cache.Redis) Option {
	return func(s *Service) { s.redis = r }
}

// WithFetcher sets the User-Agent and timeout for remote playlists and Xtream panels.
func WithFetcher(userAgent string, timeout time.Duration) Option {
	return func(s *Service) {
		s.userAgent = userAgent
		s.timeout = timeout
	}
}

// New creates a Service over cat and st.
func New(cat *catalog.Catalog, st store.Store, log *logrus.Entry, opts ...Option) *Service {
	s := &Service{
		catalog:  cat,
		store:    st,
		log:      log.WithField("component", "service"),
		timeout:  30 * time.Second,
		settings: models.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads persisted state into the catalog. Call once at start-up.
func (s *Service) Restore(ctx context.Context) error {
	st, err := s.store.LoadState(ctx)
	if err != nil {
		return fmt.Errorf("LoadState: %w", err)
	}
	s.catalog.Restore(st)

	s.mu.Lock()
	s.settings = st.Settings
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"favorites": len(st.Favorites),
		"history":   len(st.History),
		"playlists": len(st.Playlists),
	}).Info("state restored")
	return nil
}

// SearchEnabled reports whether semantic search is configured.
func (s *Service) SearchEnabled() bool {
	return s.index != nil && s.embedder != nil
}

// Catalog exposes the underlying catalog for read-only use.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

func (s *Service) updateSizeGauge() {
	metrics.CatalogChannels.Set(float64(s.catalog.Len()))
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
