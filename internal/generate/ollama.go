package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// DefaultURL is the generate endpoint of a local Ollama server.
const DefaultURL = "http://localhost:11434/api/generate"

// maxErrorBody caps how much of a failed response is quoted in errors.
const maxErrorBody = 512

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	TopK        int     `json:"top_k"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// HTTPClient calls a service that accepts the Ollama generate contract:
// one synchronous request, no streaming, JSON body {"response": "..."}.
type HTTPClient struct {
	url        string
	opts       Options
	httpClient *http.Client
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient sets the underlying http.Client (useful for testing).
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) { h.httpClient = c }
}

// NewHTTPClient returns a client posting to endpoint. An empty endpoint
// means DefaultURL.
func NewHTTPClient(endpoint string, opts Options, options ...HTTPOption) *HTTPClient {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultURL
	}
	h := &HTTPClient{url: endpoint, opts: opts, httpClient: http.DefaultClient}
	for _, o := range options {
		o(h)
	}
	return h
}

// Name implements Generator.
func (h *HTTPClient) Name() string { return "ollama:" + h.opts.Model }

// Generate implements Generator. Deadlines come from ctx.
func (h *HTTPClient) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(ollamaRequest{
		Model:  h.opts.Model,
		Prompt: prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: h.opts.Temperature,
			TopP:        h.opts.TopP,
			TopK:        h.opts.TopK,
			NumPredict:  h.opts.MaxTokens,
		},
	})
	if err != nil {
		return "", Permanent(fmt.Errorf("encoding request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(payload))
	if err != nil {
		return "", Permanent(fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling generation service: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{Code: resp.StatusCode, Body: errorSnippet(body)}
		if retryableStatus(resp.StatusCode) {
			return "", serr
		}
		return "", Permanent(serr)
	}

	var out ollamaResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", Permanent(fmt.Errorf("parsing response JSON: %w", err))
	}
	if out.Error != "" {
		return "", Permanent(errors.New(out.Error))
	}
	if strings.TrimSpace(out.Response) == "" {
		return "", Permanent(errors.New("generation service returned an empty response"))
	}
	return out.Response, nil
}

// Ping checks that the service behind the endpoint answers at all. It
// requests the server root, which Ollama serves without loading a model.
func (h *HTTPClient) Ping(ctx context.Context) error {
	u, err := url.Parse(h.url)
	if err != nil {
		return fmt.Errorf("parsing service url %q: %w", h.url, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("service url %q needs a scheme and host", h.url)
	}
	root := u.Scheme + "://" + u.Host + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, root, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling generation service: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 500 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func errorSnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	var parsed ollamaResponse
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
		s = parsed.Error
	}
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return s
}
