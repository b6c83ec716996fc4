package telemetry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, v any) map[string]any {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func TestEnvelope(t *testing.T) {
	m := decode(t, NewStateTransition("LOADING", "READY"))
	assert.Equal(t, "state", m["type"])
	assert.Equal(t, Component, m["component"])
	assert.Equal(t, "READY", m["to"])

	ts, err := time.Parse(time.RFC3339Nano, m["ts"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), ts, time.Minute)
}

func TestDatasetEvents(t *testing.T) {
	m := decode(t, NewDatasetLoaded(3, "csv:/srv/antpos", 4, 41, 1500*time.Microsecond))
	assert.Equal(t, "dataset_loaded", m["type"])
	assert.EqualValues(t, 3, m["generation"])
	assert.EqualValues(t, 41, m["antennas"])
	assert.InDelta(t, 1.5, m["duration_ms"], 1e-9)

	m = decode(t, NewReloadFailed(3, errors.New("bad row")))
	assert.Equal(t, "reload_failed", m["type"])
	assert.Equal(t, "bad row", m["error"])

	m = decode(t, NewHeartbeat("READY", 90*time.Second, 3))
	assert.EqualValues(t, 90, m["uptime_seconds"])

	m = decode(t, NewLogLine("INFO", "dataset loaded", nil))
	assert.NotContains(t, m, "attrs")
}
