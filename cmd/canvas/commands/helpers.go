// Package commands implements the canvas CLI subcommands.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/edukit-io/canvas-client/pkg/canvas"
	"github.com/edukit-io/canvas-client/pkg/canvasclient"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Common string constants used throughout the commands package.
const (
	NotAvailable = "N/A"

	// Output formats.
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

// Common static errors used throughout the commands package.
var (
	ErrSubdomainRequired = errors.New("subdomain or API URL is required (use --subdomain, --api, or config)")
	ErrTokenRequired     = errors.New("access token is required (use --token or CANVAS_API_TOKEN)")
	ErrCourseIDRequired  = errors.New("course ID is required")
	ErrModuleIDRequired  = errors.New("module ID is required")
	ErrTitleRequired     = errors.New("title is required (--title)")
)

// zerologAdapter bridges a zerolog.Logger to the canvas.Logger interface.
type zerologAdapter struct {
	log zerolog.Logger
}

func newLogger(verbose bool) canvas.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	return &zerologAdapter{log: log}
}

func (z *zerologAdapter) Debug(msg string, fields map[string]interface{}) {
	z.log.Debug().Fields(fields).Msg(msg)
}

func (z *zerologAdapter) Info(msg string, fields map[string]interface{}) {
	z.log.Info().Fields(fields).Msg(msg)
}

func (z *zerologAdapter) Warn(msg string, fields map[string]interface{}) {
	z.log.Warn().Fields(fields).Msg(msg)
}

func (z *zerologAdapter) Error(msg string, fields map[string]interface{}) {
	z.log.Error().Fields(fields).Msg(msg)
}

// CreateClient builds an API client from viper configuration. When no token
// is configured and stdin is a terminal, the user is prompted for one.
func CreateClient(ctx context.Context) (canvas.Client, error) {
	subdomain := viper.GetString("subdomain")
	baseURL := viper.GetString("api")

	if subdomain == "" && baseURL == "" {
		return nil, ErrSubdomainRequired
	}

	token := viper.GetString("token")
	if token == "" {
		token = os.Getenv(canvas.TokenEnvVar)
	}

	if token == "" {
		if !term.IsTerminal(int(syscall.Stdin)) {
			return nil, ErrTokenRequired
		}

		fmt.Fprint(os.Stderr, "Access token: ")

		byteToken, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return nil, fmt.Errorf("failed to read token: %w", err)
		}

		fmt.Fprintln(os.Stderr)

		token = strings.TrimSpace(string(byteToken))
		if token == "" {
			return nil, ErrTokenRequired
		}
	}

	verbose := viper.GetBool("verbose")

	config := &canvas.Config{
		Subdomain:   subdomain,
		BaseURL:     baseURL,
		AccessToken: token,
		Debug:       verbose,
		Logger:      newLogger(verbose),
	}

	client, err := canvasclient.New(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}

// OutputRenderer handles different output formats.
type OutputRenderer[T any] struct {
	RenderJSON  func(data T) error
	RenderYAML  func(data T) error
	RenderTable func(data T) error
}

// Render outputs data in the specified format.
func (o *OutputRenderer[T]) Render(data T, format string) error {
	switch format {
	case OutputFormatJSON:
		return o.RenderJSON(data)
	case OutputFormatYAML:
		return o.RenderYAML(data)
	default:
		return o.RenderTable(data)
	}
}

// StandardRenderer builds a renderer whose JSON and YAML paths encode the
// data as-is, leaving only the table path to the caller.
func StandardRenderer[T any](renderTable func(data T) error) *OutputRenderer[T] {
	return &OutputRenderer[T]{
		RenderJSON: func(data T) error {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")

			if err := encoder.Encode(data); err != nil {
				return fmt.Errorf("encoding to JSON: %w", err)
			}

			return nil
		},
		RenderYAML: func(data T) error {
			encoder := yaml.NewEncoder(os.Stdout)

			if err := encoder.Encode(data); err != nil {
				return fmt.Errorf("encoding to YAML: %w", err)
			}

			return nil
		},
		RenderTable: renderTable,
	}
}

// nodeFieldString renders a node field for table output.
func nodeFieldString(n *canvas.Node, field string) string {
	value := n.Field(field)
	if value == nil {
		return NotAvailable
	}

	return fmt.Sprintf("%v", value)
}
