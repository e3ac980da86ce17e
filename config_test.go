package execkit_test

import (
	"context"
	"embed"
	"testing"

	"github.com/stretchr/testify/assert"
	_ "github.com/viant/afs/embed"

	"github.com/execkit/execkit"
)

//go:embed testdata/*
var embedFS embed.FS

func TestLoadConfig(t *testing.T) {
	ctx := context.Background()
	config, err := execkit.LoadConfig(ctx, "embed:///testdata/config.yaml", &embedFS)
	assert.Nil(t, err)
	assert.Equal(t, 8, config.Executor.MaxConcurrentTasks)
	assert.Equal(t, 64, config.Executor.MaxQueuedTasks)
	assert.Equal(t, 1024, config.Resources.MaxMemoryMB)
	assert.Equal(t, 128, config.Resources.MaxNetworkOps)
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	ctx := context.Background()
	config, err := execkit.LoadConfig(ctx, "embed:///testdata/partial.yaml", &embedFS)
	assert.Nil(t, err)
	assert.Equal(t, 3, config.Executor.MaxConcurrentTasks)
	assert.Equal(t, execkit.DefaultConfig().Executor.MaxQueuedTasks, config.Executor.MaxQueuedTasks)
	assert.Equal(t, execkit.DefaultConfig().Resources, config.Resources)
}

func TestLoadConfigInvalid(t *testing.T) {
	ctx := context.Background()
	_, err := execkit.LoadConfig(ctx, "embed:///testdata/invalid.yaml", &embedFS)
	assert.Error(t, err)

	_, err = execkit.LoadConfig(ctx, "embed:///testdata/missing.yaml", &embedFS)
	assert.Error(t, err)
}
