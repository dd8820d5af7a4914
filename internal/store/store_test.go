package store

import (
	"context"
	"strings"
	"testing"

	"github.com/2beens/fitclub/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestMain will run goleak after all tests have been run in the package
// to detect any goroutine leaks
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

type testEntry struct {
	Date   string  `json:"date"`
	Weight float64 `json:"weight"`
}

func newTestStore(t *testing.T) (*Store, *MemoryBackend, *metrics.Manager) {
	t.Helper()
	backend := NewMemoryBackend(16)
	m := metrics.NewTestManager()
	return NewStore(backend, m), backend, m
}

func TestStore_GetFallbackWhenAbsent(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	entries := Get(ctx, s, "fc_weights", []testEntry{})
	assert.NotNil(t, entries)
	assert.Empty(t, entries)

	assert.Equal(t, 0, Get(ctx, s, "fc_water_total", 0))
	assert.Equal(t, "", Get(ctx, s, "fc_diet_plan", ""))
}

func TestStore_SetThenGet(t *testing.T) {
	s, backend, _ := newTestStore(t)
	ctx := context.Background()

	weights := []testEntry{{Date: "2026-10-17", Weight: 70}, {Date: "2026-10-17", Weight: 71.5}}
	require.NoError(t, s.Set(ctx, "fc_weights", weights))
	require.NoError(t, s.Set(ctx, "fc_water_total", 750))
	require.NoError(t, s.Set(ctx, "fc_diet_plan", "oats\nchicken & rice"))

	assert.Equal(t, weights, Get(ctx, s, "fc_weights", []testEntry{}))
	assert.Equal(t, 750, Get(ctx, s, "fc_water_total", 0))
	assert.Equal(t, "oats\nchicken & rice", Get(ctx, s, "fc_diet_plan", ""))

	raw, found, err := backend.Read(ctx, "fc_weights")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `[{"date":"2026-10-17","weight":70},{"date":"2026-10-17","weight":71.5}]`, raw)

	// full overwrite, no merge
	require.NoError(t, s.Set(ctx, "fc_weights", []testEntry{{Date: "2026-10-18", Weight: 69}}))
	assert.Equal(t, []testEntry{{Date: "2026-10-18", Weight: 69}}, Get(ctx, s, "fc_weights", []testEntry{}))
}

func TestStore_GetFallbackOnDecodeFailure(t *testing.T) {
	s, backend, m := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, backend.Write(ctx, "fc_weights", "{not json"))
	require.NoError(t, backend.Write(ctx, "fc_water_total", `"a string"`))
	require.NoError(t, backend.Write(ctx, "fc_diet_plan", "null"))

	fallback := []testEntry{{Date: "fallback", Weight: 1}}
	assert.Equal(t, fallback, Get(ctx, s, "fc_weights", fallback))
	assert.Equal(t, 42, Get(ctx, s, "fc_water_total", 42))
	assert.Equal(t, "default", Get(ctx, s, "fc_diet_plan", "default"))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.CounterStoreErrors.WithLabelValues("decode")))
}

func TestStore_ClearAllWipesForeignKeys(t *testing.T) {
	s, backend, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "fc_water_total", 300))
	require.NoError(t, backend.Write(ctx, "some_other_app", "keep me?"))

	require.NoError(t, s.ClearAll(ctx))

	_, found, err := backend.Read(ctx, "fc_water_total")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = backend.Read(ctx, "some_other_app")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_SetOverQuota(t *testing.T) {
	s, _, m := newTestStore(t)
	ctx := context.Background()

	// 16MB cache takes at most 16KB per entry
	huge := strings.Repeat("x", 64*1024)
	err := s.Set(ctx, "fc_diet_plan", huge)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write [fc_diet_plan]")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CounterStoreErrors.WithLabelValues("write")))

	assert.Equal(t, "", Get(ctx, s, "fc_diet_plan", ""))
}

func TestStore_SetEncodeError(t *testing.T) {
	s, _, _ := newTestStore(t)
	err := s.Set(context.Background(), "bad", make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode [bad]")
}
