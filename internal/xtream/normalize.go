// Package xtream maps Xtream Codes player_api.php payloads onto channels.
//
// Stream URL format (HLS):
//
//	{baseURL}/live/{username}/{password}/{stream_id}.m3u8
package xtream

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/voyagen/tvonline/internal/models"
)

// ErrNotSequence is returned when a payload that must be a JSON array is not one.
var ErrNotSequence = errors.New("xtream: payload is not a JSON array")

// Account holds an already authenticated Xtream session.
// The password ends up in every stream URL; never log a Channel.URL built from it.
type Account struct {
	BaseURL  string `json:"server_url"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// FlexInt decodes a JSON number or a numeric string. Panels disagree on
// which one they send for stream_id and num.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("xtream: invalid number %q", s)
		}
		*f = FlexInt(n)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*f = FlexInt(i)
		return nil
	}
	fl, err := n.Float64()
	if err != nil {
		return err
	}
	*f = FlexInt(fl)
	return nil
}

// RawStream is one entry of get_live_streams.
type RawStream struct {
	StreamID     FlexInt `json:"stream_id"`
	Num          FlexInt `json:"num"`
	Name         string  `json:"name"`
	StreamIcon   string  `json:"stream_icon"`
	CategoryID   string  `json:"category_id"`
	CategoryName string  `json:"category_name"`
	EpgChannelID string  `json:"epg_channel_id"`
}

// RawCategory is one entry of get_live_categories.
type RawCategory struct {
	CategoryID   string `json:"category_id"`
	CategoryName string `json:"category_name"`
}

// DecodeStreams decodes a get_live_streams body.
func DecodeStreams(data []byte) ([]RawStream, error) {
	if err := requireArray(data); err != nil {
		return nil, err
	}
	var streams []RawStream
	if err := json.Unmarshal(data, &streams); err != nil {
		return nil, fmt.Errorf("xtream: decode streams: %w", err)
	}
	return streams, nil
}

// DecodeCategories decodes a get_live_categories body.
func DecodeCategories(data []byte) ([]RawCategory, error) {
	if err := requireArray(data); err != nil {
		return nil, err
	}
	var cats []RawCategory
	if err := json.Unmarshal(data, &cats); err != nil {
		return nil, fmt.Errorf("xtream: decode categories: %w", err)
	}
	return cats, nil
}

func requireArray(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return ErrNotSequence
	}
	return nil
}

// NormalizeStreams converts raw streams into channels, keeping input order.
// The API already lists each stream once, so no deduplication happens here.
func NormalizeStreams(streams []RawStream, acct Account) []models.Channel {
	channels := make([]models.Channel, 0, len(streams))
	for _, s := range streams {
		id := strconv.FormatInt(int64(s.StreamID), 10)
		ch := models.Channel{
			ID:       "xtream_" + id,
			Name:     strings.TrimSpace(s.Name),
			Logo:     s.StreamIcon,
			Group:    strings.TrimSpace(s.CategoryName),
			URL:      StreamURL(acct, int64(s.StreamID)),
			TvgID:    s.EpgChannelID,
			StreamID: int64(s.StreamID),
			Num:      int(s.Num),
			Type:     models.ChannelTypeLive,
		}
		if ch.Name == "" {
			ch.Name = "Channel " + id
		}
		if ch.Group == "" {
			ch.Group = models.DefaultGroup
		}
		channels = append(channels, ch)
	}
	return channels
}

// CategoryNames returns category names in the order the server sent them.
// Unlike the M3U path these are not sorted: panels order categories on purpose.
func CategoryNames(cats []RawCategory) []string {
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.CategoryName)
	}
	return names
}

// StreamURL builds the HLS URL for a live stream.
func StreamURL(acct Account, streamID int64) string {
	return fmt.Sprintf("%s/live/%s/%s/%d.m3u8", acct.BaseURL, acct.Username, acct.Password, streamID)
}

// NormalizeBaseURL trims input, drops a trailing slash and defaults the scheme to http.
func NormalizeBaseURL(raw string) string {
	u := strings.TrimSpace(raw)
	u = strings.TrimSuffix(u, "/")
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		u = "http://" + u
	}
	return u
}

// ParseStreamURL recovers the account and stream id from a URL built by
// StreamURL, so saved Xtream channels can still reach the panel.
func ParseStreamURL(raw string) (Account, int64, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return Account{}, 0, false
	}
	i := strings.LastIndex(u.Path, "/live/")
	if i < 0 {
		return Account{}, 0, false
	}
	parts := strings.Split(u.Path[i+len("/live/"):], "/")
	if len(parts) != 3 || parts[0] == "" {
		return Account{}, 0, false
	}
	id, err := strconv.ParseInt(strings.TrimSuffix(parts[2], path.Ext(parts[2])), 10, 64)
	if err != nil {
		return Account{}, 0, false
	}
	acct := Account{
		BaseURL:  u.Scheme + "://" + u.Host + u.Path[:i],
		Username: parts[0],
		Password: parts[1],
	}
	return acct, id, true
}
