// Package visionagent provides a client for an agentic object-detection API
// that locates regions in an image from a text prompt.
package visionagent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/underwriting-cli/internal/resilience"
)

const defaultBaseURL = "https://api.va.landing.ai/v1/tools/agentic-object-detection"

// Client defines the object-detection operations.
type Client interface {
	// Detect sends one image and one prompt and returns every detection.
	Detect(ctx context.Context, image []byte, filename, prompt string) (*Response, error)
}

// Response is the parsed detection response. Data holds one group of
// detections per prompt.
type Response struct {
	Data [][]Detection `json:"data"`
}

// Detection is a single located region.
type Detection struct {
	Label       string    `json:"label"`
	Score       float64   `json:"score"`
	BoundingBox []float64 `json:"bounding_box"`
}

// Detections flattens every group in the response.
func (r *Response) Detections() []Detection {
	var out []Detection
	for _, g := range r.Data {
		out = append(out, g...)
	}
	return out
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom endpoint (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithModel sets the detection model name sent with each request.
func WithModel(model string) Option {
	return func(c *httpClient) {
		c.model = model
	}
}

// WithRateLimit caps outgoing requests. A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a detection client. The key is sent as Basic credentials.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   "agentic",
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Detect(ctx context.Context, image []byte, filename, prompt string) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "visionagent: rate limit wait")
		}
	}

	body, contentType, err := buildForm(image, filename, prompt, c.model)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, body)
	if err != nil {
		return nil, eris.Wrap(err, "visionagent: create request")
	}
	req.Header.Set("Authorization", "Basic "+c.apiKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "visionagent: request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "visionagent: read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resilience.HTTPStatusError("visionagent", resp.StatusCode, string(raw))
	}

	var result Response
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, eris.Wrap(err, "visionagent: unmarshal response")
	}
	return &result, nil
}

func buildForm(image []byte, filename, prompt, model string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("image", filename)
	if err != nil {
		return nil, "", eris.Wrap(err, "visionagent: create image part")
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", eris.Wrap(err, "visionagent: write image part")
	}
	if err := w.WriteField("prompts", prompt); err != nil {
		return nil, "", eris.Wrap(err, "visionagent: write prompts field")
	}
	if err := w.WriteField("model", model); err != nil {
		return nil, "", eris.Wrap(err, "visionagent: write model field")
	}
	if err := w.Close(); err != nil {
		return nil, "", eris.Wrap(err, "visionagent: close form")
	}
	return &buf, w.FormDataContentType(), nil
}
