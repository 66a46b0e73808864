package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/voyagen/tvonline/internal/catalog"
	"github.com/voyagen/tvonline/internal/models"
	"github.com/voyagen/tvonline/internal/store"
	"github.com/voyagen/tvonline/internal/xtream"
)

// defaultEPGLimit is how many programmes ShortEPG asks for when none is given.
const defaultEPGLimit = 4

// ChannelQuery selects channels for listing.
type ChannelQuery struct {
	Category string
	Query    string
	// FavoritesFirst orders favorites first, then by name.
	FavoritesFirst bool
}

// Channels returns the filtered view of the live collection.
func (s *Service) Channels(q ChannelQuery) []models.Channel {
	if q.FavoritesFirst && q.Query == "" && (q.Category == "" || q.Category == models.AllCategories) {
		return s.catalog.Sorted()
	}
	chs := s.catalog.Filter(q.Category, q.Query)
	if q.FavoritesFirst {
		chs = catalog.SortForDisplay(chs)
	}
	return chs
}

// Channel returns one channel of the live collection.
func (s *Service) Channel(id string) (models.Channel, error) {
	return s.catalog.Channel(id)
}

// Categories returns the distinct groups of the live collection, sorted.
func (s *Service) Categories() []string {
	return s.catalog.Categories()
}

// Favorites returns favorite channels present in the live collection.
func (s *Service) Favorites() []models.Channel {
	return s.catalog.FavoriteChannels()
}

// History returns recently played channels, most recent first.
func (s *Service) History() []models.Channel {
	return s.catalog.HistoryChannels()
}

// ToggleFavorite flips a channel's favorite flag and persists the favorite list.
func (s *Service) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.catalog.Favorites()
	fav, err := s.catalog.ToggleFavorite(id)
	if err != nil {
		return false, err
	}
	if err := s.store.SaveFavorites(ctx, s.catalog.Favorites()); err != nil {
		s.catalog.SetFavorites(prev)
		return !fav, fmt.Errorf("persist favorites: %w", err)
	}
	return fav, nil
}

// Play records id in the history and returns the channel to play.
func (s *Service) Play(ctx context.Context, id string) (models.Channel, error) {
	ch, err := s.catalog.Channel(id)
	if err != nil {
		return models.Channel{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.catalog.History()
	s.catalog.RecordHistory(id)
	if err := s.store.SaveHistory(ctx, s.catalog.History()); err != nil {
		s.catalog.SetHistory(prev)
		return ch, fmt.Errorf("persist history: %w", err)
	}
	return ch, nil
}

// Clear empties the live collection. Favorites, history and saved playlists stay.
func (s *Service) Clear() {
	s.catalog.Clear()
	s.updateSizeGauge()
	s.log.Info("live collection cleared")
}

// SaveCurrent stores the live collection as a new playlist. Channels that
// several imports contributed are saved once.
func (s *Service) SaveCurrent(ctx context.Context, name string) (models.PlaylistSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.PlaylistSummary{}, invalid("name is required")
	}
	chs := catalog.Dedupe(s.catalog.Channels())
	if len(chs) == 0 {
		return models.PlaylistSummary{}, ErrEmptyPlaylist
	}

	s.mu.Lock()
	p := s.catalog.NewPlaylist(name, chs, models.SourceSaved)
	if err := s.store.SavePlaylist(ctx, p); err != nil {
		s.mu.Unlock()
		return models.PlaylistSummary{}, fmt.Errorf("persist playlist: %w", err)
	}
	s.catalog.PutPlaylist(p)
	s.mu.Unlock()
	s.enqueueIndex(ctx, p)
	return p.Summary(), nil
}

// Playlists lists saved playlists without their channels.
func (s *Service) Playlists(ctx context.Context) ([]models.PlaylistSummary, error) {
	return s.store.ListPlaylists(ctx)
}

// LoadPlaylist replaces the live collection with a saved playlist.
func (s *Service) LoadPlaylist(ctx context.Context, id string) ([]models.Channel, error) {
	chs, err := s.catalog.LoadPlaylist(id)
	if errors.Is(err, catalog.ErrNotFound) {
		// Saved by another instance sharing the database.
		p, gerr := s.store.GetPlaylist(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		s.catalog.PutPlaylist(*p)
		chs, err = s.catalog.LoadPlaylist(id)
	}
	if err != nil {
		return nil, err
	}
	s.updateSizeGauge()
	return chs, nil
}

// DeletePlaylist removes a saved playlist from the catalog and the store.
func (s *Service) DeletePlaylist(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.store.DeletePlaylist(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete playlist: %w", err)
	}
	if catErr := s.catalog.DeletePlaylist(id); catErr != nil && err != nil {
		return catErr
	}
	return nil
}

// SettingsPatch carries the settings fields to change; nil means keep.
type SettingsPatch struct {
	Theme  *string  `json:"theme"`
	Volume *float64 `json:"volume"`
}

// Settings returns the current viewer settings.
func (s *Service) Settings() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings validates and applies patch, then persists the result.
func (s *Service) UpdateSettings(ctx context.Context, patch SettingsPatch) (models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.settings
	if patch.Theme != nil {
		if *patch.Theme != models.ThemeDark && *patch.Theme != models.ThemeLight {
			return s.settings, invalid("theme must be %q or %q", models.ThemeDark, models.ThemeLight)
		}
		next.Theme = *patch.Theme
	}
	if patch.Volume != nil {
		if *patch.Volume < 0 || *patch.Volume > 1 {
			return s.settings, invalid("volume must be between 0 and 1")
		}
		next.Volume = *patch.Volume
	}
	if err := s.store.SaveSettings(ctx, next); err != nil {
		return s.settings, fmt.Errorf("persist settings: %w", err)
	}
	s.settings = next
	return next, nil
}

// EPG returns the panel's short EPG for an Xtream channel as raw JSON.
func (s *Service) EPG(ctx context.Context, id string, limit int) (json.RawMessage, error) {
	ch, err := s.catalog.Channel(id)
	if err != nil {
		return nil, err
	}
	acct, streamID, ok := xtream.ParseStreamURL(ch.URL)
	if ch.StreamID == 0 || !ok {
		return nil, ErrNotXtream
	}
	if limit <= 0 {
		limit = defaultEPGLimit
	}
	client := xtream.NewClient(acct.BaseURL, acct.Username, acct.Password, s.userAgent, s.timeout)
	return client.ShortEPG(ctx, streamID, limit)
}
