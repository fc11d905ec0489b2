// Package canvasclient provides the main entry point for creating Canvas
// API clients.
package canvasclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/edukit-io/canvas-client/internal/client"
	"github.com/edukit-io/canvas-client/pkg/canvas"
)

// ErrConfigRequired is returned when New is called with a nil config.
var ErrConfigRequired = errors.New("config is required")

// New creates a new Canvas API client.
func New(ctx context.Context, config *canvas.Config) (canvas.Client, error) {
	if config == nil {
		return nil, ErrConfigRequired
	}

	// Normalize an explicit base URL; the subdomain path needs none.
	if config.BaseURL != "" {
		baseURL := strings.TrimSuffix(config.BaseURL, "/")
		if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
			baseURL = "https://" + baseURL
		}

		config.BaseURL = baseURL
	}

	cli, err := client.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return cli, nil
}
