package app_test

import (
	"context"
	"testing"

	"github.com/grindlemire/graft"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/app"
	_ "go.trai.ch/kiln/internal/wiring"
)

func TestAppWiring(t *testing.T) {
	t.Chdir(t.TempDir())

	components, _, err := graft.ExecuteFor[*app.Components](context.Background())
	require.NoError(t, err)
	require.NotNil(t, components)

	assert.NotNil(t, components.App)
	assert.NotNil(t, components.Logger)
	assert.NotNil(t, components.ConfigLoader)
	assert.NotNil(t, components.Toolchains)
	assert.NotNil(t, components.Connector)
	assert.NotNil(t, components.Store)
	assert.NotNil(t, components.Hasher)

	// Without a kiln.yaml the wired application reports the missing configuration.
	err = components.App.Order(context.Background())
	require.ErrorContains(t, err, "failed to load configuration")
}
