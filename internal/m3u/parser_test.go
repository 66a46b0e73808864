package m3u

import (
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/voyagen/tvonline/internal/models"
)

const examplePlaylist = `#EXTM3U
#EXTINF:-1 tvg-logo="L1" group-title="Movies",Movie One
https://example.com/a.mp4
#EXTINF:-1 group-title="News",News Feed
not-a-valid-url
#EXTINF:-1,Movie One
https://example.com/a.mp4
`

func TestParseExampleScenario(t *testing.T) {
	res, err := Parse(examplePlaylist)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Channels) != 1 {
		t.Fatalf("expected 1 channel, got %d: %+v", len(res.Channels), res.Channels)
	}
	ch := res.Channels[0]
	if ch.Name != "Movie One" || ch.Logo != "L1" || ch.Group != "Movies" || ch.URL != "https://example.com/a.mp4" {
		t.Errorf("unexpected channel: %+v", ch)
	}
	if ch.IsFavorite {
		t.Error("new channel should not be a favorite")
	}
	if len(res.Categories) != 1 || res.Categories[0] != "Movies" {
		t.Errorf("categories = %v, want [Movies]", res.Categories)
	}
	if res.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", res.Dropped)
	}
	if res.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", res.Duplicates)
	}
}

func TestParseAttributes(t *testing.T) {
	tests := []struct {
		name string
		line string
		opts []Option
		want models.Channel
	}{
		{
			name: "all attributes",
			line: `#EXTINF:-1 tvg-id="bbc1.uk" tvg-name="BBC One" tvg-logo="http://logo/bbc.png" group-title="UK",BBC One HD`,
			want: models.Channel{Name: "BBC One", Logo: "http://logo/bbc.png", Group: "UK", TvgID: "bbc1.uk"},
		},
		{
			name: "case-insensitive keys",
			line: `#EXTINF:-1 TVG-NAME="Upper" Group-Title="Mixed",ignored`,
			want: models.Channel{Name: "Upper", Group: "Mixed"},
		},
		{
			name: "empty tvg-name falls back to title",
			line: `#EXTINF:-1 tvg-name="" group-title="Sports",  Sport 1  `,
			want: models.Channel{Name: "Sport 1", Group: "Sports"},
		},
		{
			name: "empty group keeps default",
			line: `#EXTINF:-1 group-title="",Plain`,
			want: models.Channel{Name: "Plain", Group: models.DefaultGroup},
		},
		{
			name: "no name anywhere",
			line: `#EXTINF:-1 tvg-id="x.id",`,
			want: models.Channel{Name: models.DefaultChannelName, Group: models.DefaultGroup, TvgID: "x.id"},
		},
		{
			name: "tvg-id fallback when enabled",
			line: `#EXTINF:-1 tvg-id="x.id",`,
			opts: []Option{WithTvgIDFallback()},
			want: models.Channel{Name: "x.id", Group: models.DefaultGroup, TvgID: "x.id"},
		},
		{
			name: "comma inside quoted group",
			line: `#EXTINF:-1 group-title="News, World",Headlines`,
			want: models.Channel{Name: "Headlines", Group: "News, World"},
		},
		{
			name: "quoted comma with empty title",
			line: `#EXTINF:-1 group-title="A, B",`,
			want: models.Channel{Name: models.DefaultChannelName, Group: "A, B"},
		},
		{
			name: "name taken after last comma",
			line: `#EXTINF:-1,Part A,Part B`,
			want: models.Channel{Name: "Part B", Group: models.DefaultGroup},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse(tt.line+"\nhttp://example.com/stream.m3u8\n", tt.opts...)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(res.Channels) != 1 {
				t.Fatalf("expected 1 channel, got %d", len(res.Channels))
			}
			got := res.Channels[0]
			if got.Name != tt.want.Name || got.Logo != tt.want.Logo || got.Group != tt.want.Group || got.TvgID != tt.want.TvgID {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseConsecutiveExtinfKeepsSecond(t *testing.T) {
	content := `#EXTINF:-1 group-title="First",First
#EXTINF:-1 group-title="Second",Second
http://example.com/live.ts`

	res, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Channels) != 1 || res.Channels[0].Name != "Second" {
		t.Fatalf("expected only Second, got %+v", res.Channels)
	}
	if len(res.Categories) != 1 || res.Categories[0] != "Second" {
		t.Errorf("categories = %v, want [Second]", res.Categories)
	}
	if res.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", res.Dropped)
	}
}

func TestParseWithoutHeaderAndTrailingExtinf(t *testing.T) {
	content := "#EXTINF:-1,A\r\nrtmp://media.example.com/live\r\n#EXTINF:-1,Orphan\r\n"
	res, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Channels) != 1 || res.Channels[0].URL != "rtmp://media.example.com/live" {
		t.Fatalf("unexpected channels: %+v", res.Channels)
	}
	if res.Dropped != 1 {
		t.Errorf("dropped = %d, want 1", res.Dropped)
	}
}

func TestParseURLWithoutExtinfIgnored(t *testing.T) {
	res, err := Parse("#EXTM3U\nhttp://example.com/lonely.m3u8\n# just a comment\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !res.Empty() {
		t.Fatalf("expected empty result, got %+v", res.Channels)
	}
	if res.Categories == nil || len(res.Categories) != 0 {
		t.Errorf("categories = %#v, want empty slice", res.Categories)
	}
}

func TestParseCategoriesSortedDistinct(t *testing.T) {
	content := `#EXTM3U
#EXTINF:-1 group-title="Sports",S1
http://e.com/1
#EXTINF:-1 group-title="Movies",M1
http://e.com/2
#EXTINF:-1 group-title="Sports",S2
http://e.com/3
#EXTINF:-1,NoGroup
http://e.com/4
#EXTINF:-1 group-title="Kids",Bad
ftp-not-a-url
`
	res, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"General", "Movies", "Sports"}
	if strings.Join(res.Categories, "|") != strings.Join(want, "|") {
		t.Errorf("categories = %v, want %v", res.Categories, want)
	}
	if !sort.StringsAreSorted(res.Categories) {
		t.Error("categories not sorted")
	}

	groups := map[string]bool{}
	for _, ch := range res.Channels {
		groups[ch.Group] = true
	}
	if len(groups) != len(res.Categories) {
		t.Errorf("categories %v do not match emitted groups %v", res.Categories, groups)
	}
}

func TestParseVLCOptHeaders(t *testing.T) {
	content := `#EXTM3U
#EXTINF:-1,With Headers
#EXTVLCOPT:http-referrer=https://site.example/
#EXTVLCOPT:http-user-agent=Mozilla/5.0
http://example.com/h.m3u8
#EXTINF:-1,Without
http://example.com/n.m3u8
`
	res, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Channels) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(res.Channels))
	}
	h := res.Channels[0].Headers
	if h == nil || h.Referrer != "https://site.example/" || h.UserAgent != "Mozilla/5.0" {
		t.Errorf("unexpected headers: %+v", h)
	}
	if res.Channels[1].Headers != nil {
		t.Errorf("expected no headers, got %+v", res.Channels[1].Headers)
	}
}

func TestParseStableIDs(t *testing.T) {
	first, err := Parse(examplePlaylist)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	second, err := Parse(examplePlaylist)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if first.Channels[0].ID != second.Channels[0].ID {
		t.Errorf("ids differ across parses: %s vs %s", first.Channels[0].ID, second.Channels[0].ID)
	}
	if !strings.HasPrefix(first.Channels[0].ID, "ch_") {
		t.Errorf("id %q missing ch_ prefix", first.Channels[0].ID)
	}
	if ChannelID("a", "http://x/1") == ChannelID("a", "http://x/2") {
		t.Error("different urls produced the same id")
	}
}

func TestParseVeryLongLine(t *testing.T) {
	logo := "http://logo/" + strings.Repeat("x", 2<<20)
	content := "#EXTM3U\r\n" +
		`#EXTINF:-1 tvg-logo="` + logo + `" group-title="Big",Wide` + "\r\n" +
		"http://e.com/wide.m3u8\r\n" +
		"#EXTINF:-1,Narrow\r\n" +
		"http://e.com/narrow.m3u8"

	res, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Channels) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(res.Channels))
	}
	if res.Channels[0].Logo != logo || res.Channels[0].Name != "Wide" {
		t.Errorf("first channel name = %q, logo length %d", res.Channels[0].Name, len(res.Channels[0].Logo))
	}
	if res.Channels[1].URL != "http://e.com/narrow.m3u8" {
		t.Errorf("last line without newline: url = %q", res.Channels[1].URL)
	}
}

func TestParseRejectsBinary(t *testing.T) {
	for _, content := range []string{"#EXTM3U\n\x00\x01\x02", "#EXTINF:-1,A\n\xff\xfe\n"} {
		res, err := Parse(content)
		if !errors.Is(err, ErrNotText) {
			t.Errorf("expected ErrNotText, got %v", err)
		}
		if res != nil {
			t.Errorf("expected nil result on failure, got %+v", res)
		}
	}
}

func TestValidURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/a.mp4", true},
		{"HTTP://EXAMPLE.COM/LIVE", true},
		{"rtmp://live.example.com/app/key", true},
		{"rtsp://cam.local:554/stream", true},
		{"mms://old.example.com/x", true},
		{"udp://239.0.0.1:1234", true},
		{"//cdn.example.com/live.m3u8", true},
		{"not-a-valid-url", false},
		{"not a url", false},
		{"ftp://x", false},
		{"/relative/path.ts", false},
		{"mailto:someone@example.com", false},
	}
	for _, tt := range tests {
		if got := ValidURL(tt.url); got != tt.want {
			t.Errorf("ValidURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}
