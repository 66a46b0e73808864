package store

import (
	"context"
	"slices"
	"sync"

	"github.com/voyagen/tvonline/internal/models"
)

// Memory is a process-local Store used when no database is configured.
type Memory struct {
	mu        sync.RWMutex
	favorites []string
	history   []string
	settings  models.Settings
	playlists map[string]models.Playlist
	// order holds playlist ids in insertion order.
	order []string
}

// NewMemory creates an empty in-memory store with default settings.
func NewMemory() *Memory {
	return &Memory{
		settings:  models.DefaultSettings(),
		playlists: make(map[string]models.Playlist),
	}
}

func (m *Memory) LoadState(ctx context.Context) (models.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := models.State{
		Favorites: append([]string{}, m.favorites...),
		History:   append([]string{}, m.history...),
		Playlists: make([]models.Playlist, 0, len(m.playlists)),
		Settings:  m.settings,
	}
	for _, id := range m.order {
		p := m.playlists[id]
		p.Channels = append([]models.Channel(nil), p.Channels...)
		st.Playlists = append(st.Playlists, p)
	}
	slices.SortStableFunc(st.Playlists, func(a, b models.Playlist) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return st, nil
}

func (m *Memory) SaveFavorites(ctx context.Context, ids []string) error {
	m.mu.Lock()
	m.favorites = append([]string{}, ids...)
	m.mu.Unlock()
	return nil
}

func (m *Memory) SaveHistory(ctx context.Context, ids []string) error {
	m.mu.Lock()
	m.history = append([]string{}, ids...)
	m.mu.Unlock()
	return nil
}

func (m *Memory) SaveSettings(ctx context.Context, s models.Settings) error {
	m.mu.Lock()
	m.settings = s
	m.mu.Unlock()
	return nil
}

func (m *Memory) SavePlaylist(ctx context.Context, p models.Playlist) error {
	p.Channels = append([]models.Channel(nil), p.Channels...)
	m.mu.Lock()
	if _, ok := m.playlists[p.ID]; !ok {
		m.order = append(m.order, p.ID)
	}
	m.playlists[p.ID] = p
	m.mu.Unlock()
	return nil
}

func (m *Memory) DeletePlaylist(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.playlists[id]; !ok {
		return ErrNotFound
	}
	delete(m.playlists, id)
	m.order = slices.DeleteFunc(m.order, func(v string) bool { return v == id })
	return nil
}

func (m *Memory) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.playlists[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.Channels = append([]models.Channel(nil), p.Channels...)
	return &p, nil
}

func (m *Memory) ListPlaylists(ctx context.Context) ([]models.PlaylistSummary, error) {
	st, _ := m.LoadState(ctx)
	out := make([]models.PlaylistSummary, len(st.Playlists))
	for i, p := range st.Playlists {
		out[i] = p.Summary()
	}
	return out, nil
}
