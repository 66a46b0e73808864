package models

// HTTPHeaders holds optional request headers for a channel (from EXTVLCOPT).
type HTTPHeaders struct {
	Referrer   string `json:"referrer,omitempty"`
	UserAgent  string `json:"userAgent,omitempty"`
	HTTPOrigin string `json:"origin,omitempty"`
}

// Empty reports whether no header was set.
func (h *HTTPHeaders) Empty() bool {
	return h == nil || (h.Referrer == "" && h.UserAgent == "" && h.HTTPOrigin == "")
}
