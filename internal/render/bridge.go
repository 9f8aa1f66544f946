// Package render converts trusted HTML pages into PDF artifacts.
//
// Rendering is an optional capability: each backend probes its own
// availability at startup and is silently skipped when the underlying engine
// is not installed.
package render

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mweiler/primary-preserver/internal/pdftext"
)

// ErrNoBackend indicates every configured backend was unavailable or failed.
var ErrNoBackend = errors.New("no render backend produced a pdf")

// minArtifactBytes filters out trivially small files that cannot be a real
// rendered document.
const minArtifactBytes = 500

// Backend is one rendering engine.
type Backend interface {
	Name() string
	Available() bool
	RenderPDF(ctx context.Context, rawURL, outPath string) error
}

// Bridge tries backends in fixed preference order until one produces a sound
// PDF artifact.
type Bridge struct {
	backends []Backend
	logger   *zap.Logger
}

// NewBridge builds a Bridge over the given backends, in order.
func NewBridge(logger *zap.Logger, backends ...Backend) *Bridge {
	return &Bridge{backends: backends, logger: logger}
}

// RenderPDF renders the page at rawURL to outPath. It returns ErrNoBackend
// when no backend is available or none produced a usable artifact.
func (b *Bridge) RenderPDF(ctx context.Context, rawURL, outPath string) error {
	for _, backend := range b.backends {
		if !backend.Available() {
			b.logger.Debug("render backend unavailable", zap.String("backend", backend.Name()))
			continue
		}
		if err := backend.RenderPDF(ctx, rawURL, outPath); err != nil {
			b.logger.Debug("render backend failed",
				zap.String("backend", backend.Name()),
				zap.String("url", rawURL),
				zap.Error(err),
			)
			continue
		}
		if err := soundArtifact(outPath); err != nil {
			b.logger.Debug("render artifact rejected",
				zap.String("backend", backend.Name()),
				zap.Error(err),
			)
			os.Remove(outPath)
			continue
		}
		return nil
	}
	return ErrNoBackend
}

func soundArtifact(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat artifact: %w", err)
	}
	if info.Size() <= minArtifactBytes {
		return fmt.Errorf("artifact too small: %d bytes", info.Size())
	}
	if !pdftext.WellFormed(path) {
		return errors.New("artifact is not a parseable pdf")
	}
	return nil
}
