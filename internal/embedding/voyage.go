// Package embedding turns channel descriptions and search queries into
// vectors using the VoyageAI embeddings API.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voyagen/tvonline/internal/models"
)

const (
	voyageAPIURL       = "https://api.voyageai.com/v1/embeddings"
	defaultModel       = "voyage-3-lite"
	defaultBatchSize   = 128
	defaultHTTPTimeout = 30 * time.Second

	// Dimensions is the vector size of defaultModel; the schema column matches it.
	Dimensions = 512
)

// Input types accepted by the API.
const (
	InputDocument = "document"
	InputQuery    = "query"
)

// Embedder is what the service needs from an embedding backend.
type Embedder interface {
	Embed(ctx context.Context, texts []string, inputType string) ([][]float32, error)
	EmbedBatch(ctx context.Context, texts []string, inputType string, batchSize int, onProgress ...ProgressFunc) ([][]float32, error)
}

// Client is a lightweight VoyageAI embeddings HTTP client.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint points the client at another embeddings URL.
func WithEndpoint(u string) Option {
	return func(c *Client) { c.endpoint = u }
}

// NewClient creates a VoyageAI client. An empty model means voyage-3-lite.
func NewClient(apiKey, model string, opts ...Option) *Client {
	if model == "" {
		model = defaultModel
	}
	c := &Client{
		apiKey:     apiKey,
		model:      model,
		endpoint:   voyageAPIURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type embeddingRequest struct {
	Input     []string `json:"input"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

type voyageError struct {
	Detail string `json:"detail"`
}

// Embed embeds texts in a single request. Results follow input order.
func (c *Client) Embed(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embeddingRequest{Input: texts, Model: c.model, InputType: inputType})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var ve voyageError
		_ = json.Unmarshal(respBody, &ve)
		return nil, fmt.Errorf("voyage API %d: %s", resp.StatusCode, ve.Detail)
	}

	var er embeddingResponse
	if err := json.Unmarshal(respBody, &er); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	out := make([][]float32, len(texts))
	for _, d := range er.Data {
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = d.Embedding
		}
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("voyage API: no embedding for input %d", i)
		}
	}
	return out, nil
}

// ProgressFunc is called after each batch of EmbedBatch; batchIndex is 1-based.
type ProgressFunc func(batchIndex, totalBatches int)

// EmbedBatch splits texts into batches of batchSize and embeds each in turn.
func (c *Client) EmbedBatch(ctx context.Context, texts []string, inputType string, batchSize int, onProgress ...ProgressFunc) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	total := (len(texts) + batchSize - 1) / batchSize

	all := make([][]float32, 0, len(texts))
	for i, n := 0, 1; i < len(texts); i, n = i+batchSize, n+1 {
		end := min(i+batchSize, len(texts))
		batch, err := c.Embed(ctx, texts[i:end], inputType)
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", i, end, err)
		}
		all = append(all, batch...)
		for _, fn := range onProgress {
			fn(n, total)
		}
	}
	return all, nil
}

// ChannelDocument is the text embedded for a channel: name, group and EPG id.
func ChannelDocument(ch models.Channel) string {
	parts := []string{ch.Name}
	if ch.Group != "" && ch.Group != models.DefaultGroup {
		parts = append(parts, "category: "+ch.Group)
	}
	if ch.TvgID != "" {
		parts = append(parts, "epg: "+ch.TvgID)
	}
	return strings.Join(parts, "; ")
}
