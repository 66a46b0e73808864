package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/voyagen/tvonline/internal/cache"
	"github.com/voyagen/tvonline/internal/embedding"
	"github.com/voyagen/tvonline/internal/models"
	"github.com/voyagen/tvonline/internal/store"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	indexPageSize      = 512
	inlineIndexTimeout = 10 * time.Minute
)

// Search embeds query and returns the closest indexed channels. Hits whose
// channel is in the live collection carry its current favorite flag.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]store.SemanticResult, error) {
	if !s.SearchEnabled() {
		return nil, ErrSearchDisabled
	}
	if query == "" {
		return nil, invalid("query is required")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)

	vecs, err := s.embedder.Embed(ctx, []string{query}, embedding.InputQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := s.index.SemanticSearch(ctx, vecs[0], limit)
	if err != nil {
		return nil, err
	}
	for i := range results {
		if live, err := s.catalog.Channel(results[i].Channel.ID); err == nil {
			results[i].Channel.IsFavorite = live.IsFavorite
		}
	}
	return results, nil
}

// IndexPlaylist embeds every not yet indexed channel of a saved playlist
// and returns how many were embedded.
func (s *Service) IndexPlaylist(ctx context.Context, playlistID string) (int, error) {
	if !s.SearchEnabled() {
		return 0, ErrSearchDisabled
	}
	log := s.log.WithField("playlist", playlistID)
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, fmt.Errorf("indexing cancelled: %w", err)
		}
		chs, err := s.index.ChannelsWithoutEmbeddings(ctx, playlistID, indexPageSize)
		if err != nil {
			return total, err
		}
		if len(chs) == 0 {
			break
		}
		texts := make([]string, len(chs))
		for i, ch := range chs {
			texts[i] = embedding.ChannelDocument(ch)
		}
		vecs, err := s.embedder.EmbedBatch(ctx, texts, embedding.InputDocument, 0, func(batch, batches int) {
			log.WithFields(logrus.Fields{"batch": batch, "batches": batches}).Debug("embedding batch done")
		})
		if err != nil {
			return total, fmt.Errorf("embed channels: %w", err)
		}
		if err := s.index.StoreEmbeddings(ctx, playlistID, chs, vecs); err != nil {
			return total, err
		}
		total += len(chs)
	}
	log.WithField("embedded", total).Info("playlist indexed")
	return total, nil
}

// enqueueIndex schedules p for indexing: on the Redis queue when available,
// otherwise in a background goroutine.
func (s *Service) enqueueIndex(ctx context.Context, p models.Playlist) {
	if !s.SearchEnabled() {
		return
	}
	if s.redis != nil {
		job := cache.IndexJob{PlaylistID: p.ID, PlaylistName: p.Name, EnqueuedAt: time.Now().UTC()}
		if err := cache.Enqueue(ctx, s.redis, cache.IndexQueue, job); err != nil {
			s.log.WithError(err).WithField("playlist", p.ID).Warn("enqueue index job failed")
		}
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), inlineIndexTimeout)
		defer cancel()
		if _, err := s.IndexPlaylist(ctx, p.ID); err != nil {
			s.log.WithError(err).WithField("playlist", p.ID).Warn("indexing failed")
		}
	}()
}

// PendingIndexJobs reports how many index jobs wait in the Redis queue.
// ok is false when there is no queue.
func (s *Service) PendingIndexJobs(ctx context.Context) (n int64, ok bool) {
	if s.redis == nil {
		return 0, false
	}
	n, err := cache.Pending(ctx, s.redis, cache.IndexQueue)
	if err != nil {
		s.log.WithError(err).Warn("index queue length unavailable")
		return 0, false
	}
	return n, true
}

// RunIndexWorker consumes index jobs from Redis until ctx is cancelled.
func (s *Service) RunIndexWorker(ctx context.Context) {
	if s.redis == nil || !s.SearchEnabled() {
		return
	}
	log := s.log.WithField("worker", "index")
	log.Info("index worker started")
	for {
		select {
		case <-ctx.Done():
			log.Info("index worker stopping")
			return
		default:
		}

		job, err := cache.Dequeue(ctx, s.redis, cache.IndexQueue, 5*time.Second)
		if err != nil {
			log.WithError(err).Warn("dequeue failed")
			select {
			case <-ctx.Done():
			case <-time.After(2 * time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}

		jl := log.WithFields(logrus.Fields{"playlist": job.PlaylistID, "name": job.PlaylistName})
		jl.Info("processing index job")
		if _, err := s.IndexPlaylist(ctx, job.PlaylistID); err != nil {
			jl.WithError(err).Warn("index job failed")
		}
	}
}
