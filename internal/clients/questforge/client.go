package questforge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/questforge/roadmap-engine/internal/roadmap"
	"github.com/questforge/roadmap-engine/internal/stream"
	"github.com/questforge/roadmap-engine/internal/utils"
)

// Client talks to the upstream QuestForge AI backend: plain JSON for
// roadmap CRUD and check-ins, server-sent events for generation.
type Client struct {
	baseURL string
	apiKey  string

	timeout       time.Duration
	streamTimeout time.Duration
	maxRetries    int

	httpClient *http.Client
}

type Options struct {
	BaseURL string
	APIKey  string

	Timeout       time.Duration
	StreamTimeout time.Duration
	MaxRetries    int

	HTTPClient *http.Client
}

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("baseURL required")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		baseURL:       baseURL,
		apiKey:        strings.TrimSpace(opts.APIKey),
		timeout:       timeout,
		streamTimeout: opts.StreamTimeout,
		maxRetries:    maxRetries,
		httpClient:    hc,
	}, nil
}

func NewFromEnv() (*Client, error) {
	timeoutSeconds := utils.GetEnvAsInt("QF_UPSTREAM_TIMEOUT_SECONDS", 30, nil)
	streamTimeoutSeconds := utils.GetEnvAsInt("QF_UPSTREAM_STREAM_TIMEOUT_SECONDS", 0, nil)
	maxRetries := utils.GetEnvAsInt("QF_UPSTREAM_MAX_RETRIES", 2, nil)

	return New(Options{
		BaseURL:       utils.GetEnv("QF_UPSTREAM_BASE_URL", "http://localhost:8000", nil),
		APIKey:        strings.TrimSpace(os.Getenv("QF_UPSTREAM_API_KEY")),
		Timeout:       time.Duration(timeoutSeconds) * time.Second,
		StreamTimeout: time.Duration(streamTimeoutSeconds) * time.Second,
		MaxRetries:    maxRetries,
	})
}

func (c *Client) BaseURL() string { return c.baseURL }

// GetRoadmap fetches one roadmap and normalizes it into the canonical model.
func (c *Client) GetRoadmap(ctx context.Context, id string) (*roadmap.Roadmap, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("roadmap id required")
	}
	var sr roadmap.ServerRoadmap
	if err := c.doJSON(ctx, http.MethodGet, "/api/roadmaps/"+url.PathEscape(id), nil, &sr); err != nil {
		return nil, err
	}
	return roadmap.FromServer(sr), nil
}

// ListRoadmaps returns the upstream history, newest first, normalized.
func (c *Client) ListRoadmaps(ctx context.Context) ([]*roadmap.Roadmap, error) {
	var resp listRoadmapsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/roadmaps/", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]*roadmap.Roadmap, 0, len(resp.Roadmaps))
	for _, sr := range resp.Roadmaps {
		out = append(out, roadmap.FromServer(sr))
	}
	return out, nil
}

func (c *Client) DeleteRoadmap(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("roadmap id required")
	}
	return c.doJSON(ctx, http.MethodDelete, "/api/roadmaps/"+url.PathEscape(id), nil, nil)
}

// AnalyzeCheckIn sends a free-form progress message and returns the
// proposed per-node updates for the user to confirm or reject.
func (c *Client) AnalyzeCheckIn(ctx context.Context, roadmapID string, message string) (*CheckInAnalysis, error) {
	if strings.TrimSpace(roadmapID) == "" {
		return nil, errors.New("roadmap id required")
	}
	if strings.TrimSpace(message) == "" {
		return nil, errors.New("message required")
	}
	req := checkInAnalyzeRequest{RoadmapID: roadmapID, Message: message}
	var resp CheckInAnalysis
	if err := c.doJSON(ctx, http.MethodPost, "/api/checkins/analyze", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ConfirmCheckIn(ctx context.Context, checkInID string) ([]NodeUpdate, error) {
	if strings.TrimSpace(checkInID) == "" {
		return nil, errors.New("checkin id required")
	}
	var resp checkInConfirmResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/checkins/"+url.PathEscape(checkInID)+"/confirm", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Applied, nil
}

func (c *Client) RejectCheckIn(ctx context.Context, checkInID string) error {
	if strings.TrimSpace(checkInID) == "" {
		return errors.New("checkin id required")
	}
	return c.doJSON(ctx, http.MethodPost, "/api/checkins/"+url.PathEscape(checkInID)+"/reject", nil, nil)
}

// StreamRoadmap opens the generation stream and forwards each frame to
// onEvent in arrival order. It returns when the stream is drained or the
// context ends; per-frame semantics (dedup, ordering guards) are the
// caller's concern.
func (c *Client) StreamRoadmap(ctx context.Context, req GenerateRequest, onEvent func(event, data string) error) error {
	timeout := c.streamTimeout
	if timeout < 0 {
		timeout = 0
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req); err != nil {
		return err
	}

	ctx2 := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx2, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx2, http.MethodPost, c.baseURL+"/api/roadmaps/generate", &buf)
	if err != nil {
		return err
	}
	c.setHeaders(httpReq, "application/json", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("open roadmap stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return parseHTTPError(resp.StatusCode, raw)
	}

	return stream.ReadEvents(resp.Body, onEvent)
}

func (c *Client) setHeaders(req *http.Request, contentType string, accept string) {
	if strings.TrimSpace(contentType) != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if strings.TrimSpace(accept) != "" {
		req.Header.Set("Accept", accept)
	}
	if strings.TrimSpace(c.apiKey) != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.apiKey))
	}
}

func (c *Client) doJSON(ctx context.Context, method string, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	ctx2 := ctx
	var cancel context.CancelFunc
	if c.timeout > 0 {
		ctx2, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var lastErr error
	backoff := 250 * time.Millisecond
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx2.Err() != nil {
			return ctx2.Err()
		}

		req, err := http.NewRequestWithContext(ctx2, method, c.baseURL+path, bytes.NewReader(buf.Bytes()))
		if err != nil {
			return err
		}
		c.setHeaders(req, "application/json", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			_ = resp.Body.Close()
			if readErr != nil {
				return readErr
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				lastErr = parseHTTPError(resp.StatusCode, raw)
			} else {
				if out == nil {
					return nil
				}
				if err := json.Unmarshal(raw, out); err != nil {
					return err
				}
				return nil
			}
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx2.Done():
				return ctx2.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}
	}

	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	return lastErr
}
