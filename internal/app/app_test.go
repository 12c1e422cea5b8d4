// Package app_test contains unit tests for the app package.
package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/topic-harvester/internal/app"
	"github.com/JakeFAU/topic-harvester/internal/config"
	"github.com/JakeFAU/topic-harvester/internal/harvest/harvesttest"
	"github.com/JakeFAU/topic-harvester/internal/source/wikipedia"
)

func TestNewApp_Success(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("")
	require.NoError(t, err)

	a, err := app.NewApp(cfg)
	require.NoError(t, err)
	require.NotNil(t, a)
	defer a.Close()

	assert.NotNil(t, a.Logger())
	assert.IsType(t, &wikipedia.Client{}, a.Source())
	assert.Equal(t, cfg, a.Config())
}

func TestNewApp_BadLogLevel(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Logging.Level = "loud"

	_, err = app.NewApp(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init logger")
}

func TestOpenPipelineWritesIntoLocation(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "out")
	a := app.New(config.Config{}, zap.NewNop(), harvesttest.Scenario())

	pipeline, store, err := a.OpenPipeline(context.Background(), dir)
	require.NoError(t, err)
	defer func() { require.NoError(t, store.Close()) }()

	res := pipeline.Handle(context.Background(), "A")
	require.True(t, res.OK())
	assert.Equal(t, "A.txt", res.Key)

	data, err := os.ReadFile(filepath.Join(dir, "A.txt"))
	require.NoError(t, err)
	assert.Equal(t, "r1\nr2", string(data))
}

func TestOpenPipelineRejectsEmptyLocation(t *testing.T) {
	t.Parallel()

	a := app.New(config.Config{}, nil, harvesttest.Scenario())
	_, _, err := a.OpenPipeline(context.Background(), "  ")
	require.Error(t, err)
}
