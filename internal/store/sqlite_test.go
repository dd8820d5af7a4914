package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fitclub.db")
	backend, err := NewSQLiteBackend(path)
	require.NoError(t, err)
	ctx := context.Background()

	_, found, err := backend.Read(ctx, "fc_workouts")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, backend.Write(ctx, "fc_workouts", `[]`))
	require.NoError(t, backend.Write(ctx, "fc_workouts", `[{"type":"Run"}]`))
	require.NoError(t, backend.Write(ctx, "unrelated", `1`))

	value, found, err := backend.Read(ctx, "fc_workouts")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[{"type":"Run"}]`, value)

	require.NoError(t, backend.Clear(ctx))
	_, found, err = backend.Read(ctx, "unrelated")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, backend.Close())

	// reopening runs the migrations again as a no-op and keeps the file usable
	backend, err = NewSQLiteBackend(path)
	require.NoError(t, err)
	require.NoError(t, backend.Write(ctx, "fc_water_total", `250`))
	s := NewStore(backend, nil)
	assert.Equal(t, 250, Get(ctx, s, "fc_water_total", 0))
	require.NoError(t, s.Close())
}
