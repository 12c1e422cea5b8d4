// Package app holds the long-lived services a command needs: configuration,
// the logger, and the content source.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/topic-harvester/internal/config"
	"github.com/JakeFAU/topic-harvester/internal/harvest"
	"github.com/JakeFAU/topic-harvester/internal/logging"
	"github.com/JakeFAU/topic-harvester/internal/sanitize"
	"github.com/JakeFAU/topic-harvester/internal/source/wikipedia"
	"github.com/JakeFAU/topic-harvester/internal/storage"
)

// App is the service container handed to commands.
type App struct {
	cfg    config.Config
	logger *zap.Logger
	source harvest.ContentSource
}

// NewApp builds the logger and Wikipedia client described by cfg.
func NewApp(cfg config.Config) (*App, error) {
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Level:       cfg.Logging.Level,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return New(cfg, logger, wikipedia.New(cfg.Source, logger.Named("wikipedia"))), nil
}

// New assembles an App from prebuilt parts.
func New(cfg config.Config, logger *zap.Logger, source harvest.ContentSource) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{cfg: cfg, logger: logger, source: source}
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Source returns the content source.
func (a *App) Source() harvest.ContentSource { return a.source }

// OpenPipeline opens location and wires the processor and sink over it. The
// caller closes the returned store.
func (a *App) OpenPipeline(ctx context.Context, location string) (*harvest.Pipeline, *storage.Store, error) {
	store, err := storage.Open(ctx, location)
	if err != nil {
		return nil, nil, fmt.Errorf("open output location: %w", err)
	}
	pipeline := harvest.NewPipeline(
		harvest.NewProcessor(a.source, a.logger.Named("processor")),
		harvest.NewResultSink(store, sanitize.Filename),
		a.logger.Named("pipeline"),
	)
	return pipeline, store, nil
}

// Close flushes the logger.
func (a *App) Close() {
	// Sync on a terminal stderr reports EINVAL; nothing to act on.
	_ = a.logger.Sync()
}
