package convert

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"

	"darkroom/internal/services"
)

var commandContext = exec.CommandContext

// Client defines external image conversion behaviour.
type Client interface {
	Convert(ctx context.Context, inputPath, outputPath string, quality int) error
}

// Option configures the CLI client.
type Option func(*CLI)

// WithBinary overrides the default binary name.
func WithBinary(binary string) Option {
	return func(c *CLI) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// CLI wraps the ImageMagick command-line converter.
type CLI struct {
	binary string
}

// NewCLI constructs a CLI client using defaults.
func NewCLI(opts ...Option) *CLI {
	cli := &CLI{binary: "magick"}
	for _, opt := range opts {
		opt(cli)
	}
	return cli
}

// Convert renders inputPath as a JPEG at outputPath with the given quality.
// The jpeg: output prefix pins the encoder, so the caller is free to hand in
// a temp name without a recognizable extension.
func (c *CLI) Convert(ctx context.Context, inputPath, outputPath string, quality int) error {
	if strings.TrimSpace(inputPath) == "" {
		return errors.New("input path required")
	}
	if strings.TrimSpace(outputPath) == "" {
		return errors.New("output path required")
	}
	if quality < 1 || quality > 100 {
		return services.Wrap(services.ErrValidation, "convert", "convert", "quality "+strconv.Itoa(quality)+" out of range 1-100", nil)
	}

	args := []string{inputPath, "-quality", strconv.Itoa(quality), "jpeg:" + outputPath}
	cmd := commandContext(ctx, c.binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		diagnostic := strings.TrimSpace(stderr.String())
		if diagnostic == "" {
			diagnostic = err.Error()
		}
		return services.Wrap(services.ErrExternalTool, "convert", "convert", diagnostic, err)
	}
	return nil
}

var _ Client = (*CLI)(nil)
