//go:build integration_test || all_tests

package test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/2beens/fitclub/internal/tracker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) do(ctx context.Context, method, target string, form url.Values) (int, []byte) {
	t := s.T()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, respBytes
}

func (s *IntegrationTestSuite) view(ctx context.Context, method, target string, form url.Values) tracker.View {
	t := s.T()
	status, body := s.do(ctx, method, target, form)
	require.Equal(t, http.StatusOK, status, string(body))

	var view tracker.View
	require.NoError(t, json.Unmarshal(body, &view))
	return view
}

func (s *IntegrationTestSuite) runScenario(ctx context.Context, endpoint string) {
	t := s.T()

	s.view(ctx, "DELETE", endpoint+"/data?confirm=true", nil)

	s.view(ctx, "POST", endpoint+"/weight", url.Values{"weight": {"70"}})
	view := s.view(ctx, "POST", endpoint+"/weight", url.Values{"weight": {"71.5"}})
	assert.Equal(t, "71.5 kg", view.Summary.Weight)
	assert.Len(t, view.WeightChart.Labels, 2)

	s.view(ctx, "POST", endpoint+"/workouts", url.Values{"type": {"Run"}, "duration": {"30"}, "notes": {""}})
	view = s.view(ctx, "POST", endpoint+"/workouts", url.Values{"type": {"Yoga"}, "duration": {"45"}, "notes": {"calm"}})
	require.Len(t, view.Workouts, 2)
	assert.Equal(t, "Yoga", view.Workouts[0].Type)
	assert.Equal(t, "Run", view.Workouts[1].Type)

	view = s.view(ctx, "DELETE", endpoint+"/workouts/0", nil)
	require.Len(t, view.Workouts, 1)
	assert.Equal(t, "Run", view.Workouts[0].Type)

	s.view(ctx, "POST", endpoint+"/steps", url.Values{"steps": {"3000"}})
	s.view(ctx, "POST", endpoint+"/calories", url.Values{"calories": {"2100"}})
	view = s.view(ctx, "POST", endpoint+"/water", url.Values{"water": {"500"}})
	assert.Equal(t, summary("3000", "2100", "500", "71.5 kg"), view.Summary)

	status, body := s.do(ctx, "POST", endpoint+"/weight", url.Values{"weight": {"zero"}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.JSONEq(t, `{"alert":"Enter a valid weight"}`, string(body))

	status, body = s.do(ctx, "GET", endpoint+"/export", nil)
	require.Equal(t, http.StatusOK, status)
	var exported tracker.State
	require.NoError(t, json.Unmarshal(body, &exported))
	assert.Len(t, exported.Weights, 2)
	assert.Len(t, exported.Workouts, 1)
	assert.Equal(t, 500, exported.WaterTotal)

	status, _ = s.do(ctx, "DELETE", endpoint+"/data", nil)
	assert.Equal(t, http.StatusPreconditionRequired, status)

	view = s.view(ctx, "DELETE", endpoint+"/data?confirm=true", nil)
	assert.Equal(t, summary("0", "0", "0", "—"), view.Summary)
}

func summary(steps, calories, water, weight string) tracker.Summary {
	return tracker.Summary{Steps: steps, Calories: calories, Water: water, Weight: weight}
}

func (s *IntegrationTestSuite) TestTrackerOnRedis() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	t := s.T()

	require.NoError(t, s.redisClient.Set(ctx, "someone_else", "1", 0).Err())
	s.runScenario(ctx, redisEndpoint)

	// the rate limiter shares the logical db
	keys, err := s.redisClient.Keys(ctx, "fc_*").Result()
	require.NoError(t, err)
	assert.Empty(t, keys)
	exists, err := s.redisClient.Exists(ctx, "someone_else").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)

	s.view(ctx, "PUT", redisEndpoint+"/diet", url.Values{"plan": {"soup"}})
	plan, err := s.redisClient.Get(ctx, tracker.KeyDietPlan).Result()
	require.NoError(t, err)
	assert.Equal(t, `"soup"`, plan)
}

func (s *IntegrationTestSuite) TestTrackerOnPostgres() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	t := s.T()

	s.runScenario(ctx, postgresEndpoint)

	var count int
	require.NoError(t, s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_store`).Scan(&count))
	assert.Equal(t, 0, count)

	s.view(ctx, "POST", postgresEndpoint+"/calories", url.Values{"calories": {"1500"}})
	var value string
	require.NoError(t, s.DB.QueryRowContext(ctx,
		`SELECT value FROM kv_store WHERE key = $1`, tracker.KeyCalories,
	).Scan(&value))
	assert.Contains(t, value, `"cal":1500`)
}
