package xtream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/voyagen/tvonline/internal/fetcher"
)

// ErrAuthFailed is returned when the panel rejects the credentials or the account expired.
var ErrAuthFailed = errors.New("xtream: invalid credentials or expired account")

// UserInfo is the user_info block of the handshake response.
type UserInfo struct {
	Username       string  `json:"username"`
	Auth           FlexInt `json:"auth"`
	Status         string  `json:"status"`
	ExpDate        string  `json:"exp_date"`
	MaxConnections string  `json:"max_connections"`
}

// ServerInfo is the server_info block of the handshake response.
type ServerInfo struct {
	URL            string `json:"url"`
	Port           string `json:"port"`
	HTTPSPort      string `json:"https_port"`
	ServerProtocol string `json:"server_protocol"`
	Timezone       string `json:"timezone"`
}

type handshake struct {
	UserInfo   UserInfo   `json:"user_info"`
	ServerInfo ServerInfo `json:"server_info"`
}

// Client talks to a panel's player_api.php. It only fetches; turning the
// payloads into channels is left to DecodeStreams and NormalizeStreams.
type Client struct {
	acct       Account
	userAgent  string
	httpClient *http.Client
	maxBody    int64
}

// NewClient returns a client for acct. serverURL is normalized with NormalizeBaseURL.
func NewClient(serverURL, username, password, userAgent string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		acct: Account{
			BaseURL:  NormalizeBaseURL(serverURL),
			Username: username,
			Password: password,
		},
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		maxBody:    fetcher.MaxBodySize,
	}
}

// Account returns the session the client was built for.
func (c *Client) Account() Account {
	return c.acct
}

// Authenticate performs the handshake; it fails with ErrAuthFailed unless user_info.auth is 1.
func (c *Client) Authenticate(ctx context.Context) (*UserInfo, *ServerInfo, error) {
	body, err := c.call(ctx, "", nil)
	if err != nil {
		return nil, nil, err
	}
	var hs handshake
	if err := json.Unmarshal(body, &hs); err != nil {
		return nil, nil, fmt.Errorf("xtream: decode handshake: %w", err)
	}
	if hs.UserInfo.Auth != 1 || hs.UserInfo.Status == "Expired" {
		return nil, nil, ErrAuthFailed
	}
	return &hs.UserInfo, &hs.ServerInfo, nil
}

// LiveStreams fetches get_live_streams and fills in category names from get_live_categories.
func (c *Client) LiveStreams(ctx context.Context) ([]RawStream, error) {
	streams, _, err := c.Live(ctx)
	return streams, err
}

// Live fetches live streams and categories in one go. Categories only
// decorate the streams, so failing to fetch them is not fatal and leaves cats nil.
func (c *Client) Live(ctx context.Context) (streams []RawStream, cats []RawCategory, err error) {
	body, err := c.call(ctx, "get_live_streams", nil)
	if err != nil {
		return nil, nil, err
	}
	streams, err = DecodeStreams(body)
	if err != nil {
		return nil, nil, err
	}
	cats, err = c.LiveCategories(ctx)
	if err != nil {
		return streams, nil, nil
	}
	ResolveCategories(streams, cats)
	return streams, cats, nil
}

// LiveCategories fetches get_live_categories.
func (c *Client) LiveCategories(ctx context.Context) ([]RawCategory, error) {
	body, err := c.call(ctx, "get_live_categories", nil)
	if err != nil {
		return nil, err
	}
	return DecodeCategories(body)
}

// ShortEPG returns the raw get_short_epg payload for a stream.
func (c *Client) ShortEPG(ctx context.Context, streamID int64, limit int) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("stream_id", strconv.FormatInt(streamID, 10))
	params.Set("limit", strconv.Itoa(limit))
	body, err := c.call(ctx, "get_short_epg", params)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("xtream: get_short_epg returned invalid JSON")
	}
	return json.RawMessage(body), nil
}

// ResolveCategories sets CategoryName on streams that only carry a category_id.
func ResolveCategories(streams []RawStream, cats []RawCategory) {
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.CategoryID] = c.CategoryName
	}
	for i := range streams {
		if streams[i].CategoryName != "" {
			continue
		}
		if name, ok := names[streams[i].CategoryID]; ok {
			streams[i].CategoryName = name
		}
	}
}

// call performs a player_api.php request. Credentials are part of the query
// string, so errors only ever mention the host.
func (c *Client) call(ctx context.Context, action string, extra url.Values) ([]byte, error) {
	q := url.Values{}
	q.Set("username", c.acct.Username)
	q.Set("password", c.acct.Password)
	if action != "" {
		q.Set("action", action)
	}
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	apiURL := c.acct.BaseURL + "/player_api.php?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("xtream: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("xtream: call action=%q host=%s: %w", action, SafeHost(c.acct.BaseURL), redact(err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("xtream: HTTP %d for action=%q host=%s", resp.StatusCode, action, SafeHost(c.acct.BaseURL))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("xtream: read body: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("xtream: action=%q host=%s: %w", action, SafeHost(c.acct.BaseURL), fetcher.ErrTooLarge)
	}
	return body, nil
}

// redact strips the request URL (which carries the password) from transport errors.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}

// SafeHost returns only the host portion of baseURL for log output.
func SafeHost(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "[unparseable]"
	}
	return u.Host
}
