package models

import "time"

// Playlist is a saved list of channels, the unit persisted by the store.
type Playlist struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Channels  []Channel  `json:"channels"`
	Source    SourceKind `json:"source"`
	CreatedAt time.Time  `json:"createdAt"`
	Count     int        `json:"count"`
}

// PlaylistSummary is a Playlist without its channels, for listings.
type PlaylistSummary struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Source    SourceKind `json:"source"`
	CreatedAt time.Time  `json:"createdAt"`
	Count     int        `json:"count"`
}

// Summary drops the channel list.
func (p Playlist) Summary() PlaylistSummary {
	return PlaylistSummary{ID: p.ID, Name: p.Name, Source: p.Source, CreatedAt: p.CreatedAt, Count: p.Count}
}
