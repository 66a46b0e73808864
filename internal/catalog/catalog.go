// Package catalog holds the live channel collection together with the
// favorites, play history and saved playlists that belong to it.
package catalog

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/voyagen/tvonline/internal/models"
)

// ErrNotFound is returned when an id matches no channel or playlist.
var ErrNotFound = errors.New("catalog: not found")

// HistoryLimit is the number of most recently played channels kept.
const HistoryLimit = 20

// Catalog is the in-memory aggregate of loaded channels and viewer state.
// All methods are safe for concurrent use; returned slices are copies.
type Catalog struct {
	mu         sync.RWMutex
	channels   []models.Channel
	categories []string
	favorites  []string
	favSet     map[string]struct{}
	history    []string
	playlists  []models.Playlist

	now   func() time.Time
	newID func() string
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithClock overrides the clock used for playlist timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

// WithIDGenerator overrides playlist id generation.
func WithIDGenerator(fn func() string) Option {
	return func(c *Catalog) { c.newID = fn }
}

// New creates an empty catalog.
func New(opts ...Option) *Catalog {
	c := &Catalog{
		categories: []string{},
		favSet:     make(map[string]struct{}),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddChannels appends chs to the live collection and rebuilds the category
// index. Channels without a URL are skipped. No deduplication against the
// existing collection happens here; use Dedupe first if that is wanted.
// It returns the number of channels added.
func (c *Catalog) AddChannels(chs []models.Channel) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0
	for _, ch := range chs {
		valid, err := models.NewChannel(ch)
		if err != nil {
			continue
		}
		_, valid.IsFavorite = c.favSet[valid.ID]
		c.channels = append(c.channels, valid)
		added++
	}
	c.rebuildCategories()
	return added
}

// Clear empties the live collection. Favorites, history and saved playlists are kept.
func (c *Catalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels = nil
	c.rebuildCategories()
}

// Channels returns the live collection in insertion order.
func (c *Catalog) Channels() []models.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneChannels(c.channels)
}

// Len returns the size of the live collection.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.channels)
}

// Channel returns the first channel with the given id.
func (c *Catalog) Channel(id string) (models.Channel, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ch := range c.channels {
		if ch.ID == id {
			return ch, nil
		}
	}
	return models.Channel{}, ErrNotFound
}

// Categories returns the sorted distinct groups of the live collection.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.categories))
	copy(out, c.categories)
	return out
}

// Filter returns channels whose group equals category (any group for
// models.AllCategories or "") and whose name or group contains query,
// ignoring case (any channel for a blank query). Order is preserved.
func (c *Catalog) Filter(category, query string) []models.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	anyGroup := category == "" || category == models.AllCategories

	out := make([]models.Channel, 0, len(c.channels))
	for _, ch := range c.channels {
		if !anyGroup && ch.Group != category {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(ch.Name), q) && !strings.Contains(strings.ToLower(ch.Group), q) {
			continue
		}
		out = append(out, ch)
	}
	return out
}

// ToggleFavorite flips the favorite flag of every channel carrying id and
// returns the new value. Unknown ids leave the catalog untouched.
func (c *Catalog) ToggleFavorite(id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := -1
	for i := range c.channels {
		if c.channels[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, ErrNotFound
	}

	fav := !c.channels[idx].IsFavorite
	for i := range c.channels {
		if c.channels[i].ID == id {
			c.channels[i].IsFavorite = fav
		}
	}
	if fav {
		if _, ok := c.favSet[id]; !ok {
			c.favSet[id] = struct{}{}
			c.favorites = append(c.favorites, id)
		}
	} else {
		delete(c.favSet, id)
		c.favorites = removeString(c.favorites, id)
	}
	return fav, nil
}

// Favorites returns favorite channel ids in the order they were added.
func (c *Catalog) Favorites() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneStrings(c.favorites)
}

// FavoriteChannels returns the favorite channels of the live collection.
func (c *Catalog) FavoriteChannels() []models.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Channel, 0, len(c.favorites))
	for _, ch := range c.channels {
		if ch.IsFavorite {
			out = append(out, ch)
		}
	}
	return out
}

// RecordHistory moves id to the front of the play history, dropping the
// oldest entry once more than HistoryLimit are held.
func (c *Catalog) RecordHistory(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := make([]string, 0, len(c.history)+1)
	h = append(h, id)
	for _, v := range c.history {
		if v != id {
			h = append(h, v)
		}
	}
	if len(h) > HistoryLimit {
		h = h[:HistoryLimit]
	}
	c.history = h
}

// History returns played channel ids, most recent first.
func (c *Catalog) History() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneStrings(c.history)
}

// HistoryChannels resolves the history against the live collection,
// skipping ids that are no longer loaded.
func (c *Catalog) HistoryChannels() []models.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()

	byID := make(map[string]models.Channel, len(c.channels))
	for _, ch := range c.channels {
		if _, ok := byID[ch.ID]; !ok {
			byID[ch.ID] = ch
		}
	}
	out := make([]models.Channel, 0, len(c.history))
	for _, id := range c.history {
		if ch, ok := byID[id]; ok {
			out = append(out, ch)
		}
	}
	return out
}

// SavePlaylist stores chs as a new playlist record and returns it.
func (c *Catalog) SavePlaylist(name string, chs []models.Channel, source models.SourceKind) models.Playlist {
	p := c.NewPlaylist(name, chs, source)
	c.PutPlaylist(p)
	return p
}

// NewPlaylist builds a playlist record for chs without storing it, so the
// caller can persist it first and add it with PutPlaylist.
func (c *Catalog) NewPlaylist(name string, chs []models.Channel, source models.SourceKind) models.Playlist {
	saved := cloneChannels(chs)
	for i := range saved {
		if saved[i].ID == "" {
			saved[i].ID = "ch_" + c.newID()
		}
	}
	return models.Playlist{
		ID:        c.newID(),
		Name:      name,
		Channels:  saved,
		Source:    source,
		CreatedAt: c.now().UTC(),
		Count:     len(saved),
	}
}

// PutPlaylist adds an already persisted playlist, replacing one with the same id.
func (c *Catalog) PutPlaylist(p models.Playlist) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.playlists {
		if c.playlists[i].ID == p.ID {
			c.playlists[i] = clonePlaylist(p)
			return
		}
	}
	c.playlists = append(c.playlists, clonePlaylist(p))
}

// DeletePlaylist removes a saved playlist.
func (c *Catalog) DeletePlaylist(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, p := range c.playlists {
		if p.ID == id {
			c.playlists = append(c.playlists[:i], c.playlists[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// LoadPlaylist replaces the live collection with a saved playlist's channels.
func (c *Catalog) LoadPlaylist(id string) ([]models.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range c.playlists {
		if p.ID != id {
			continue
		}
		chs := make([]models.Channel, 0, len(p.Channels))
		for _, ch := range p.Channels {
			if ch.URL == "" {
				continue
			}
			_, ch.IsFavorite = c.favSet[ch.ID]
			chs = append(chs, ch)
		}
		c.channels = chs
		c.rebuildCategories()
		return cloneChannels(chs), nil
	}
	return nil, ErrNotFound
}

// Playlist returns a saved playlist by id.
func (c *Catalog) Playlist(id string) (models.Playlist, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.playlists {
		if p.ID == id {
			return clonePlaylist(p), nil
		}
	}
	return models.Playlist{}, ErrNotFound
}

// Playlists returns all saved playlists in the order they were saved.
func (c *Catalog) Playlists() []models.Playlist {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Playlist, len(c.playlists))
	for i, p := range c.playlists {
		out[i] = clonePlaylist(p)
	}
	return out
}

// Restore replaces favorites, history and saved playlists with persisted
// state. The live collection is left as is, but its favorite flags are
// recomputed.
func (c *Catalog) Restore(st models.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setFavorites(st.Favorites)
	c.setHistory(st.History)
	c.playlists = make([]models.Playlist, len(st.Playlists))
	for i, p := range st.Playlists {
		c.playlists[i] = clonePlaylist(p)
	}
}

// SetFavorites replaces the favorite ids and recomputes the favorite flags
// of the live collection.
func (c *Catalog) SetFavorites(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setFavorites(ids)
}

// SetHistory replaces the play history, most recent first.
func (c *Catalog) SetHistory(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setHistory(ids)
}

func (c *Catalog) setFavorites(ids []string) {
	c.favorites = nil
	c.favSet = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := c.favSet[id]; ok {
			continue
		}
		c.favSet[id] = struct{}{}
		c.favorites = append(c.favorites, id)
	}
	for i := range c.channels {
		_, c.channels[i].IsFavorite = c.favSet[c.channels[i].ID]
	}
}

func (c *Catalog) setHistory(ids []string) {
	c.history = nil
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		c.history = append(c.history, id)
		if len(c.history) == HistoryLimit {
			break
		}
	}
}

// Snapshot returns the persistable part of the catalog. Settings are not
// owned by the catalog and are left zero.
func (c *Catalog) Snapshot() models.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := models.State{
		Favorites: cloneStrings(c.favorites),
		History:   cloneStrings(c.history),
		Playlists: make([]models.Playlist, len(c.playlists)),
	}
	for i, p := range c.playlists {
		st.Playlists[i] = clonePlaylist(p)
	}
	return st
}

// rebuildCategories must be called with mu held for writing.
func (c *Catalog) rebuildCategories() {
	set := make(map[string]struct{})
	for _, ch := range c.channels {
		set[ch.Group] = struct{}{}
	}
	cats := make([]string, 0, len(set))
	for g := range set {
		cats = append(cats, g)
	}
	sort.Strings(cats)
	c.categories = cats
}

func cloneChannels(chs []models.Channel) []models.Channel {
	out := make([]models.Channel, len(chs))
	copy(out, chs)
	return out
}

func clonePlaylist(p models.Playlist) models.Playlist {
	p.Channels = cloneChannels(p.Channels)
	return p
}

func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func removeString(s []string, v string) []string {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
