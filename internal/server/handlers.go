package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/voyagen/tvonline/internal/m3u"
	"github.com/voyagen/tvonline/internal/models"
	"github.com/voyagen/tvonline/internal/service"
)

// maxBodyBytes bounds JSON bodies and uploads; playlists can be large.
const maxBodyBytes = 64 << 20

func invalidJSON(err error) error {
	return fmt.Errorf("%w: invalid JSON: %v", service.ErrInvalidInput, err)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":   "ok",
		"channels": s.svc.Catalog().Len(),
		"search":   s.svc.SearchEnabled(),
	}
	if n, ok := s.svc.PendingIndexJobs(r.Context()); ok {
		body["pendingIndexJobs"] = n
	}
	s.writeJSON(w, http.StatusOK, body)
}

// --- channels ---

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	chs := s.svc.Channels(service.ChannelQuery{
		Category:       q.Get("category"),
		Query:          q.Get("q"),
		FavoritesFirst: q.Get("sort") == "favorites",
	})
	s.writeJSON(w, http.StatusOK, chs)
}

func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	ch, err := s.svc.Channel(r.PathValue("id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ch)
}

func (s *Server) handleClearChannels(w http.ResponseWriter, _ *http.Request) {
	s.svc.Clear()
	writeNoContent(w)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	fav, err := s.svc.ToggleFavorite(r.Context(), id)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"id": id, "isFavorite": fav})
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	ch, err := s.svc.Play(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"channel": ch, "url": ch.URL})
}

func (s *Server) handleEPG(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeErr(w, err)
		return
	}
	epg, err := s.svc.EPG(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(epg)
}

func (s *Server) handleSearchChannels(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.writeErr(w, err)
		return
	}
	results, err := s.svc.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Categories())
}

func (s *Server) handleFavorites(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Favorites())
}

func (s *Server) handleHistory(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.History())
}

// --- imports ---

type importTextRequest struct {
	Name     string `json:"name"`
	Content  string `json:"content"`
	UseTvgID bool   `json:"useTvgId"`
}

func (s *Server) handleImportText(w http.ResponseWriter, r *http.Request) {
	var req importTextRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeImport(w)(s.svc.ImportText(r.Context(), req.Name, req.Content, parseOptions(req.UseTvgID)...))
}

type importURLRequest struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	UseTvgID bool   `json:"useTvgId"`
}

func (s *Server) handleImportURL(w http.ResponseWriter, r *http.Request) {
	var req importURLRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeImport(w)(s.svc.ImportURL(r.Context(), req.Name, req.URL, parseOptions(req.UseTvgID)...))
}

func (s *Server) handleImportFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeErr(w, fmt.Errorf("%w: multipart field \"file\" is required: %v", service.ErrInvalidInput, err))
		return
	}
	defer file.Close()
	useTvgID, _ := strconv.ParseBool(r.FormValue("useTvgId"))
	s.writeImport(w)(s.svc.ImportFile(r.Context(), r.FormValue("name"), header.Filename, file, parseOptions(useTvgID)...))
}

func (s *Server) handleImportSample(w http.ResponseWriter, r *http.Request) {
	s.writeImport(w)(s.svc.ImportSample(r.Context()))
}

func (s *Server) handleImportXtream(w http.ResponseWriter, r *http.Request) {
	var req service.XtreamLogin
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeImport(w)(s.svc.ImportXtream(r.Context(), req))
}

func (s *Server) handleXtreamCategories(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.XtreamCategories())
}

// parseOptions maps the request's parser flags onto m3u options.
func parseOptions(useTvgID bool) []m3u.Option {
	if useTvgID {
		return []m3u.Option{m3u.WithTvgIDFallback()}
	}
	return nil
}

// writeImport returns a writer for an import's (result, error) pair.
func (s *Server) writeImport(w http.ResponseWriter) func(*service.ImportResult, error) {
	return func(res *service.ImportResult, err error) {
		if err != nil {
			s.writeErr(w, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, res)
	}
}

// --- saved playlists ---

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Playlists(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	if list == nil {
		list = []models.PlaylistSummary{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

type savePlaylistRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleSavePlaylist(w http.ResponseWriter, r *http.Request) {
	var req savePlaylistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	p, err := s.svc.SaveCurrent(r.Context(), req.Name)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleLoadPlaylist(w http.ResponseWriter, r *http.Request) {
	chs, err := s.svc.LoadPlaylist(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"channels":   chs,
		"categories": s.svc.Categories(),
	})
}

func (s *Server) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeletePlaylist(r.Context(), r.PathValue("id")); err != nil {
		s.writeErr(w, err)
		return
	}
	writeNoContent(w)
}

// --- settings ---

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.svc.Settings())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch service.SettingsPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeErr(w, err)
		return
	}
	settings, err := s.svc.UpdateSettings(r.Context(), patch)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, settings)
}

// queryInt parses an optional integer query parameter; absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid %s: %s", service.ErrInvalidInput, name, v)
	}
	return n, nil
}
