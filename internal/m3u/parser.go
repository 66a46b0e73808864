// Package m3u turns M3U/M3U8 playlist text into channels.
package m3u

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/voyagen/tvonline/internal/models"
)

// ErrNotText is returned when the input is binary rather than playlist text.
var ErrNotText = errors.New("m3u: content is not text")

var (
	reAttr          = regexp.MustCompile(`([A-Za-z0-9_-]+)="([^"]*)"`)
	reStreamScheme  = regexp.MustCompile(`(?i)^(https?|rtmp|rtsp|mms)://`)
	reHTTPOrigin    = regexp.MustCompile(`(?i)http-origin=(.+)`)
	reHTTPReferrer  = regexp.MustCompile(`(?i)http-referr?er=(.+)`)
	reHTTPUserAgent = regexp.MustCompile(`(?i)http-user-agent=(.+)`)
)

// Absolute URLs with one of these schemes are playable even when they do not
// match reStreamScheme.
var streamSchemes = map[string]bool{
	"http": true, "https": true,
	"rtmp": true, "rtmps": true, "rtmpe": true, "rtmpt": true,
	"rtsp": true, "rtsps": true,
	"mms": true, "mmsh": true, "mmst": true,
	"rtp": true, "udp": true, "srt": true,
}

var channelNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("tvonline:m3u-channel"))

// Result is the outcome of one parse call.
type Result struct {
	Channels   []models.Channel `json:"channels"`
	Categories []string         `json:"categories"`
	// Dropped counts entries discarded for a bad URL or a missing URL line.
	Dropped int `json:"dropped"`
	// Duplicates counts entries skipped because (name, url) was already emitted.
	Duplicates int `json:"duplicates"`
}

// Empty reports whether no channel survived parsing.
func (r *Result) Empty() bool {
	return r == nil || len(r.Channels) == 0
}

type options struct {
	useTvgID bool
}

// Option configures Parse.
type Option func(*options)

// WithTvgIDFallback names a channel after its tvg-id when neither tvg-name
// nor the trailing title is present.
func WithTvgIDFallback() Option {
	return func(o *options) { o.useTvgID = true }
}

// Parse parses M3U content held in memory.
func Parse(content string, opts ...Option) (*Result, error) {
	return ParseReader(strings.NewReader(content), opts...)
}

// ParseReader reads an M3U playlist from r. Lines may be of any length.
// Malformed entries are dropped; only non-text input or a read failure is an error.
func ParseReader(r io.Reader, opts ...Option) (*Result, error) {
	p := &parser{
		res:    &Result{Channels: []models.Channel{}},
		seen:   make(map[models.Key]struct{}),
		groups: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(&p.opts)
	}

	br := bufio.NewReader(r)
	for {
		raw, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("m3u: read: %w", err)
		}
		if raw != "" {
			if !isText(raw) {
				return nil, ErrNotText
			}
			p.line(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff")))
		}
		if err != nil {
			break
		}
	}
	return p.finish(), nil
}

// parser holds the state of one ParseReader call.
type parser struct {
	opts    options
	res     *Result
	seen    map[models.Key]struct{}
	groups  map[string]struct{}
	pending *models.Channel
}

func (p *parser) line(line string) {
	switch {
	case line == "":
	case hasPrefixFold(line, "#EXTM3U"):
	case hasPrefixFold(line, "#EXTINF:"):
		// An EXTINF that never got its URL is overwritten.
		if p.pending != nil {
			p.res.Dropped++
		}
		ch := parseExtinf(line, p.opts)
		p.pending = &ch
	case hasPrefixFold(line, "#EXTVLCOPT"):
		if p.pending != nil {
			applyVLCOpt(p.pending, line)
		}
	case strings.HasPrefix(line, "#"):
	case p.pending != nil:
		p.emit(line)
	}
}

func (p *parser) emit(streamURL string) {
	ch := *p.pending
	p.pending = nil
	ch.URL = streamURL
	if !ValidURL(streamURL) {
		p.res.Dropped++
		return
	}
	if _, dup := p.seen[ch.Key()]; dup {
		p.res.Duplicates++
		return
	}
	ch.ID = ChannelID(ch.Name, ch.URL)
	p.seen[ch.Key()] = struct{}{}
	p.groups[ch.Group] = struct{}{}
	p.res.Channels = append(p.res.Channels, ch)
}

func (p *parser) finish() *Result {
	if p.pending != nil {
		p.res.Dropped++
	}
	p.res.Categories = make([]string, 0, len(p.groups))
	for g := range p.groups {
		p.res.Categories = append(p.res.Categories, g)
	}
	sort.Strings(p.res.Categories)
	return p.res
}

// parseExtinf extracts attributes and the display name from
// `#EXTINF:<duration> key="value" ...,<name>`.
func parseExtinf(line string, o options) models.Channel {
	ch := models.Channel{
		Name:  models.DefaultChannelName,
		Group: models.DefaultGroup,
	}
	attrs, title := splitTitle(line[len("#EXTINF:"):])

	named := false
	for _, m := range reAttr.FindAllStringSubmatch(attrs, -1) {
		value := strings.TrimSpace(m[2])
		switch strings.ToLower(m[1]) {
		case "tvg-name":
			if value != "" {
				ch.Name = value
				named = true
			}
		case "tvg-logo":
			ch.Logo = value
		case "group-title":
			if value != "" {
				ch.Group = value
			}
		case "tvg-id":
			ch.TvgID = value
		}
	}
	if !named {
		if t := strings.TrimSpace(title); t != "" {
			ch.Name = t
		} else if o.useTvgID && ch.TvgID != "" {
			ch.Name = ch.TvgID
		}
	}
	return ch
}

// splitTitle cuts s at its last comma that is not inside a quoted value.
func splitTitle(s string) (attrs, title string) {
	cut := -1
	quoted := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			quoted = !quoted
		case ',':
			if !quoted {
				cut = i
			}
		}
	}
	if cut < 0 {
		return s, ""
	}
	return s[:cut], s[cut+1:]
}

func applyVLCOpt(ch *models.Channel, line string) {
	h := ch.Headers
	if h == nil {
		h = &models.HTTPHeaders{}
	}
	if s := matchFirst(reHTTPOrigin, line); s != "" {
		h.HTTPOrigin = s
	}
	if s := matchFirst(reHTTPReferrer, line); s != "" {
		h.Referrer = s
	}
	if s := matchFirst(reHTTPUserAgent, line); s != "" {
		h.UserAgent = s
	}
	if !h.Empty() {
		ch.Headers = h
	}
}

func matchFirst(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// ValidURL reports whether raw can be handed to a player: a well-formed
// absolute URL with a streaming scheme, an http(s)/rtmp/rtsp/mms prefix,
// or a protocol-relative "//" URL.
func ValidURL(raw string) bool {
	if strings.HasPrefix(raw, "//") || reStreamScheme.MatchString(raw) {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != "" && streamSchemes[strings.ToLower(u.Scheme)]
}

// ChannelID derives a stable id from the channel's name and URL so the same
// entry keeps its id (and its favorite/history status) across re-parses.
func ChannelID(name, streamURL string) string {
	return "ch_" + uuid.NewSHA1(channelNamespace, []byte(name+"\n"+streamURL)).String()
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func isText(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}
