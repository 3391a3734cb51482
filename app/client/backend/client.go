// Package backend is the HTTP client for the remote clinic assistant: one
// chat turn, voice transcription, booking confirmation and admin data sync.
// Every call is a single independent request/response exchange; no retries.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/samber/do"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/config"
)

// ErrNetwork marks a transport failure or a non-parseable response on any
// of the four remote operations.
var ErrNetwork = errors.New("backend unreachable")

const (
	StatusOK                   = "ok"
	StatusRequiresConfirmation = "requires_confirmation"
	StatusSuccess              = "success"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func New(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return NewClient(cfg.Backend.BaseURL, WithHTTPClient(&http.Client{
		Timeout: time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
	})), nil
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Chat sends one user message plus the reduced prior conversation and
// returns the assistant's reply: either a plain message, a list of offered
// slots, or a booking proposal requiring confirmation.
func (c *Client) Chat(ctx context.Context, message string, history []HistoryEntry) (*ChatResponse, error) {
	if history == nil {
		history = []HistoryEntry{}
	}

	body, err := json.Marshal(ChatRequest{Message: message, History: history})
	if err != nil {
		return nil, fmt.Errorf("backend: marshal chat request: %w", err)
	}

	c.logger.Debug("sending chat turn", "history_len", len(history))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("backend: create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result ChatResponse
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	return &result, nil
}

// Transcribe uploads a recorded clip as a multipart form and returns the
// recognized text.
func (c *Client) Transcribe(ctx context.Context, clip Clip) (*TranscribeResponse, error) {
	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", clip.Filename)
	if err != nil {
		return nil, fmt.Errorf("backend: create form file: %w", err)
	}
	if _, err = part.Write(clip.Data); err != nil {
		return nil, fmt.Errorf("backend: write audio payload: %w", err)
	}
	if err = writer.Close(); err != nil {
		return nil, fmt.Errorf("backend: finalize form: %w", err)
	}

	c.logger.Debug("uploading voice clip", "filename", clip.Filename, "bytes", len(clip.Data))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/transcribe", &buf)
	if err != nil {
		return nil, fmt.Errorf("backend: create transcribe request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result TranscribeResponse
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	return &result, nil
}

// Book submits a confirmed appointment. Success or failure is conveyed only
// through the returned message text.
func (c *Client) Book(ctx context.Context, details BookingDetails) (*BookResponse, error) {
	body, err := json.Marshal(BookRequest{
		SlotID:      details.SlotID,
		Time:        details.Time,
		PatientName: details.PatientName,
		PhoneNumber: details.PhoneNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("backend: marshal book request: %w", err)
	}

	c.logger.Info("booking appointment", "slot_id", details.SlotID, "time", details.Time)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/book", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("backend: create book request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result BookResponse
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("book: %w", err)
	}

	return &result, nil
}

// SyncAdminData uploads an arbitrary JSON document to the admin endpoint.
func (c *Client) SyncAdminData(ctx context.Context, payload json.RawMessage) (*SyncResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/admin/update-db", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("backend: create admin sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result SyncResponse
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("admin sync: %w", err)
	}

	return &result, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %w", ErrNetwork, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrNetwork, err)
	}

	return nil
}
