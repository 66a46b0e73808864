package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/voyagen/tvonline/internal/cache"
	"github.com/voyagen/tvonline/internal/fetcher"
	"github.com/voyagen/tvonline/internal/m3u"
	"github.com/voyagen/tvonline/internal/metrics"
	"github.com/voyagen/tvonline/internal/models"
	"github.com/voyagen/tvonline/internal/xtream"
)

// ImportResult summarizes one import.
type ImportResult struct {
	Playlist   models.PlaylistSummary `json:"playlist"`
	Added      int                    `json:"added"`
	Dropped    int                    `json:"dropped"`
	Duplicates int                    `json:"duplicates"`
	Categories []string               `json:"categories"`
}

// XtreamLogin holds the credentials for an Xtream Codes panel.
type XtreamLogin struct {
	ServerURL string `json:"server"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	Name      string `json:"name"`
}

// xtreamSession remembers the last Xtream import for category listing.
type xtreamSession struct {
	host       string
	categories []string
}

// ImportText parses pasted M3U text and appends its channels to the catalog.
func (s *Service) ImportText(ctx context.Context, name, content string, opts ...m3u.Option) (*ImportResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, invalid("playlist content is empty")
	}
	res, err := m3u.Parse(content, opts...)
	return s.finishM3U(ctx, nameOr(name, "Text playlist"), models.SourceText, res, err)
}

// ImportFile parses an uploaded M3U file. name defaults to the file name without extension.
func (s *Service) ImportFile(ctx context.Context, name, filename string, r io.Reader, opts ...m3u.Option) (*ImportResult, error) {
	res, err := m3u.ParseReader(r, opts...)
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "." || base == "" {
		base = "Uploaded playlist"
	}
	return s.finishM3U(ctx, nameOr(name, base), models.SourceFile, res, err)
}

// ImportSample loads the built-in sample playlist.
func (s *Service) ImportSample(ctx context.Context) (*ImportResult, error) {
	res, err := m3u.Parse(samplePlaylist)
	return s.finishM3U(ctx, samplePlaylistName, models.SourceSample, res, err)
}

// ImportURL downloads and parses a remote playlist. Only the most recent
// remote import may publish its channels; an older one that finishes later
// fails with fetcher.ErrSuperseded.
func (s *Service) ImportURL(ctx context.Context, name, rawURL string, opts ...m3u.Option) (*ImportResult, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, invalid("url must be a valid http or https URL")
	}
	token := s.gen.Next()

	if s.redis != nil {
		unlock, err := cache.TryLock(ctx, s.redis, cache.ImportLockKey(u.String()), importLockTTL)
		switch {
		case errors.Is(err, cache.ErrLocked):
			return nil, ErrImportInProgress
		case err != nil:
			s.log.WithError(err).Warn("import lock unavailable, continuing without it")
		default:
			defer unlock()
		}
	}

	log := s.log.WithFields(logrus.Fields{"host": u.Host, "generation": token})
	log.Debug("fetching playlist")
	body, err := fetcher.Fetch(ctx, u.String(), s.userAgent, s.timeout)
	if err != nil {
		metrics.Imports.WithLabelValues(string(models.SourceURL), "error").Inc()
		return nil, fmt.Errorf("fetch %s: %w", u.Host, err)
	}
	res, err := m3u.Parse(string(body), opts...)
	if err == nil {
		if err = s.gen.Check(token); err != nil {
			metrics.Imports.WithLabelValues(string(models.SourceURL), "superseded").Inc()
			log.Info("discarding superseded playlist fetch")
			return nil, err
		}
	}
	return s.finishM3U(ctx, nameOr(name, urlName(u)), models.SourceURL, res, err)
}

// ImportXtream authenticates against a panel and imports its live streams.
func (s *Service) ImportXtream(ctx context.Context, login XtreamLogin) (*ImportResult, error) {
	if strings.TrimSpace(login.ServerURL) == "" || login.Username == "" || login.Password == "" {
		return nil, invalid("server, username and password are required")
	}
	token := s.gen.Next()
	client := xtream.NewClient(login.ServerURL, login.Username, login.Password, s.userAgent, s.timeout)
	host := xtream.SafeHost(client.Account().BaseURL)
	fail := func(result string, err error) (*ImportResult, error) {
		metrics.Imports.WithLabelValues(string(models.SourceXtream), result).Inc()
		return nil, err
	}

	if _, _, err := client.Authenticate(ctx); err != nil {
		return fail("error", err)
	}
	streams, cats, err := client.Live(ctx)
	if err != nil {
		return fail("error", err)
	}
	if err := s.gen.Check(token); err != nil {
		return fail("superseded", err)
	}
	chs := xtream.NormalizeStreams(streams, client.Account())
	if len(chs) == 0 {
		return fail("empty", ErrEmptyPlaylist)
	}
	categories := xtream.CategoryNames(cats)

	s.mu.Lock()
	s.xtream = &xtreamSession{host: host, categories: categories}
	s.mu.Unlock()

	return s.commit(ctx, nameOr(login.Name, "Xtream "+host), models.SourceXtream, chs, categories, 0, 0)
}

// XtreamCategories returns the categories of the last Xtream import in server order.
func (s *Service) XtreamCategories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.xtream == nil {
		return []string{}
	}
	return append([]string{}, s.xtream.categories...)
}

func (s *Service) finishM3U(ctx context.Context, name string, source models.SourceKind, res *m3u.Result, err error) (*ImportResult, error) {
	if err != nil {
		metrics.Imports.WithLabelValues(string(source), "error").Inc()
		return nil, err
	}
	metrics.EntriesDropped.WithLabelValues("invalid").Add(float64(res.Dropped))
	metrics.EntriesDropped.WithLabelValues("duplicate").Add(float64(res.Duplicates))
	if res.Empty() {
		metrics.Imports.WithLabelValues(string(source), "empty").Inc()
		return nil, ErrEmptyPlaylist
	}
	return s.commit(ctx, name, source, res.Channels, res.Categories, res.Dropped, res.Duplicates)
}

// commit appends chs to the live collection, saves them as a playlist and
// queues the playlist for indexing.
func (s *Service) commit(ctx context.Context, name string, source models.SourceKind, chs []models.Channel, categories []string, dropped, duplicates int) (*ImportResult, error) {
	s.mu.Lock()
	p := s.catalog.NewPlaylist(name, chs, source)
	if err := s.store.SavePlaylist(ctx, p); err != nil {
		s.mu.Unlock()
		metrics.Imports.WithLabelValues(string(source), "error").Inc()
		return nil, fmt.Errorf("persist playlist: %w", err)
	}
	s.catalog.PutPlaylist(p)
	added := s.catalog.AddChannels(chs)
	s.mu.Unlock()
	s.updateSizeGauge()

	metrics.Imports.WithLabelValues(string(source), "ok").Inc()
	metrics.ChannelsParsed.WithLabelValues(string(source)).Add(float64(len(chs)))
	s.log.WithFields(logrus.Fields{
		"playlist":   p.ID,
		"source":     source,
		"channels":   added,
		"dropped":    dropped,
		"duplicates": duplicates,
	}).Info("playlist imported")

	s.enqueueIndex(ctx, p)

	if categories == nil {
		categories = []string{}
	}
	return &ImportResult{
		Playlist:   p.Summary(),
		Added:      added,
		Dropped:    dropped,
		Duplicates: duplicates,
		Categories: categories,
	}, nil
}

func nameOr(name, fallback string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return fallback
}

// urlName derives a playlist name from the last path segment, else the host.
func urlName(u *url.URL) string {
	base := path.Base(u.Path)
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		return u.Host
	}
	return base
}
