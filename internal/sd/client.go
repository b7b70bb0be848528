// Package sd is the client for a Stable Diffusion web-UI compatible HTTP
// backend. It exposes the two generation endpoints the dispatcher needs
// (txt2img and img2img) behind a narrow Generator interface so the dispatch
// loop and its tests never depend on a live backend.
package sd

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNoImages indicates the backend replied 200 but returned an empty image
// list. Treated the same as a failed call by the dispatcher.
var ErrNoImages = errors.New("sd: backend returned no images")

// Payload is the generation request body. Img2img calls additionally set
// InitImages and DenoisingStrength; both are omitted from txt2img bodies.
type Payload struct {
	Prompt            string   `json:"prompt"`
	NegativePrompt    string   `json:"negative_prompt,omitempty"`
	Steps             int      `json:"steps"`
	CfgScale          float64  `json:"cfg_scale"`
	SamplerIndex      string   `json:"sampler_index"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	BatchSize         int      `json:"batch_size"`
	InitImages        []string `json:"init_images,omitempty"`
	DenoisingStrength *float64 `json:"denoising_strength,omitempty"`
}

// Img2Img reports whether the payload targets the img2img endpoint.
func (p *Payload) Img2Img() bool { return len(p.InitImages) > 0 }

// Result holds the decoded first image of a successful generation.
type Result struct {
	Image []byte
}

// Generator is the remote procedure the dispatcher invokes. Implementations
// must honor ctx for cancellation; a ctx deadline bounds the call.
type Generator interface {
	Generate(ctx context.Context, p *Payload) (*Result, error)
}

// txt2imgResponse is the wire shape of a successful generation response.
// Images are base64-encoded PNGs.
type txt2imgResponse struct {
	Images []string `json:"images"`
}

// Client talks to the backend over HTTP. Safe for concurrent use, although
// the dispatcher only ever has one call in flight.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a Client for the backend at baseURL. timeout bounds each
// generation call end to end; a non-positive value falls back to 2 minutes,
// generous enough for high-step renders on slow hardware.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Generate posts the payload to the appropriate endpoint and returns the
// first generated image. Any non-200 status, transport error, or empty image
// list is an error; the caller treats all of them as terminal for the record.
func (c *Client) Generate(ctx context.Context, p *Payload) (*Result, error) {
	path := "/sdapi/v1/txt2img"
	if p.Img2Img() {
		path = "/sdapi/v1/img2img"
	}

	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("sd: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sd: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sd: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("sd: bad response from %s (status %d): %s", path, resp.StatusCode, snippet)
	}

	var decoded txt2imgResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("sd: parse response: %w", err)
	}
	if len(decoded.Images) == 0 {
		return nil, ErrNoImages
	}

	img, err := base64.StdEncoding.DecodeString(decoded.Images[0])
	if err != nil {
		return nil, fmt.Errorf("sd: decode image: %w", err)
	}
	return &Result{Image: img}, nil
}
