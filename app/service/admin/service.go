// Package admin handles the clinic database sync path: loading a JSON
// document from disk or pasted text, validating it, and pushing it to the
// backend. Failures here never touch conversational state.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/samber/do"
	"github.com/waqarhussain-diyainteractive/clinic-frontend/app/client/backend"
)

// ErrMalformedInput marks a document that is not valid JSON.
var ErrMalformedInput = errors.New("invalid JSON format")

const defaultSyncMessage = "Database Updated!"

type Service struct {
	backend *backend.Client
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		backend: do.MustInvoke[*backend.Client](di),
	}, nil
}

// LoadFile reads a JSON document from disk and returns it pretty-printed,
// matching the upload-then-edit flow of the admin surface.
func (s *Service) LoadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read admin document: %w", err)
	}

	return Normalize(string(data))
}

// Normalize re-indents a JSON document, rejecting malformed input.
func Normalize(text string) (string, error) {
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}

	pretty, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format admin document: %w", err)
	}

	return string(pretty), nil
}

// Sync validates the document and uploads it. Returns the server's message,
// or a default one when the server stays silent.
func (s *Service) Sync(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty document", ErrMalformedInput)
	}

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode admin document: %w", err)
	}

	resp, err := s.backend.SyncAdminData(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("failed to sync admin data: %w", err)
	}

	slog.Info("Admin data synced", "bytes", len(payload))

	if resp.Message == "" {
		return defaultSyncMessage, nil
	}

	return resp.Message, nil
}
