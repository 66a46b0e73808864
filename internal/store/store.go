// Package store persists favorites, history, saved playlists and settings.
package store

import (
	"context"
	"errors"

	"github.com/voyagen/tvonline/internal/models"
)

// ErrNotFound is returned when a playlist id does not exist.
var ErrNotFound = errors.New("store: not found")

// Store defines persistence for viewer state. Favorites and history are
// written as whole ordered lists; playlists one at a time.
type Store interface {
	// LoadState returns everything needed to rebuild the catalog at start-up.
	LoadState(ctx context.Context) (models.State, error)
	// SaveFavorites replaces the favorite id list.
	SaveFavorites(ctx context.Context, ids []string) error
	// SaveHistory replaces the history id list, most recent first.
	SaveHistory(ctx context.Context, ids []string) error
	// SaveSettings replaces viewer settings.
	SaveSettings(ctx context.Context, s models.Settings) error

	// SavePlaylist inserts or replaces a playlist by id.
	SavePlaylist(ctx context.Context, p models.Playlist) error
	// DeletePlaylist removes a playlist; ErrNotFound when absent.
	DeletePlaylist(ctx context.Context, id string) error
	// GetPlaylist returns a playlist with its channels.
	GetPlaylist(ctx context.Context, id string) (*models.Playlist, error)
	// ListPlaylists returns playlist summaries ordered by creation time.
	ListPlaylists(ctx context.Context) ([]models.PlaylistSummary, error)
}

// VectorIndex stores channel embeddings of saved playlists for semantic search.
// Only the Postgres store implements it.
type VectorIndex interface {
	// ChannelsWithoutEmbeddings returns up to limit channels of the playlist not yet indexed.
	ChannelsWithoutEmbeddings(ctx context.Context, playlistID string, limit int) ([]models.Channel, error)
	// StoreEmbeddings saves one embedding per channel (same order).
	StoreEmbeddings(ctx context.Context, playlistID string, channels []models.Channel, embeddings [][]float32) error
	// SemanticSearch returns the limit channels closest to queryVec.
	SemanticSearch(ctx context.Context, queryVec []float32, limit int) ([]SemanticResult, error)
}

// SemanticResult is one channel hit with its cosine similarity (1 = identical).
type SemanticResult struct {
	Channel    models.Channel `json:"channel"`
	PlaylistID string         `json:"playlistId"`
	Score      float64        `json:"score"`
}
