package models

import (
	"errors"
	"strings"
)

// ErrMissingURL is returned by NewChannel when the stream URL is empty.
var ErrMissingURL = errors.New("channel url is required")

// Channel is a single playable entry, shared by the M3U and Xtream ingestion paths.
type Channel struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Logo       string       `json:"logo"`
	Group      string       `json:"group"`
	URL        string       `json:"url"`
	TvgID      string       `json:"tvgId,omitempty"`
	IsFavorite bool         `json:"isFavorite"`
	Headers    *HTTPHeaders `json:"headers,omitempty"`

	// Xtream only.
	StreamID int64  `json:"streamId,omitempty"`
	Num      int    `json:"num,omitempty"`
	Type     string `json:"type,omitempty"`
}

// NewChannel validates ch and fills the name/group sentinels.
// A channel without a URL cannot be played and is rejected.
func NewChannel(ch Channel) (Channel, error) {
	ch.URL = strings.TrimSpace(ch.URL)
	if ch.URL == "" {
		return Channel{}, ErrMissingURL
	}
	if strings.TrimSpace(ch.Name) == "" {
		ch.Name = DefaultChannelName
	}
	if strings.TrimSpace(ch.Group) == "" {
		ch.Group = DefaultGroup
	}
	return ch, nil
}

// Key identifies a channel for duplicate detection.
type Key struct {
	Name string
	URL  string
}

// Key returns the (name, url) pair used for deduplication.
func (c Channel) Key() Key {
	return Key{Name: c.Name, URL: c.URL}
}
