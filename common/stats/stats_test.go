package stats

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAndGauges(t *testing.T) {
	stat := DefaultStatsReceiver()

	stat.Counter("dispatchCounter").Inc(2)
	stat.Counter("dispatchCounter").Inc(1)
	assert.Equal(t, int64(3), stat.Counter("dispatchCounter").Count())

	stat.Gauge("activeGauge").Update(7)
	assert.Equal(t, int64(7), stat.Gauge("activeGauge").Value())

	stat.GaugeFloat("ratioGauge").Update(0.25)
	assert.Equal(t, 0.25, stat.GaugeFloat("ratioGauge").Value())
}

func TestScopedNames(t *testing.T) {
	stat := DefaultStatsReceiver()
	stat.Scope("controller").Counter("noOpCounter").Inc(1)
	stat.Scope("controller", "inner").Counter("noOpCounter").Inc(1)
	stat.Counter("weird/name").Inc(1)

	var snapshot map[string]interface{}
	require.NoError(t, json.Unmarshal(stat.Render(false), &snapshot))
	assert.Contains(t, snapshot, "controller/noOpCounter")
	assert.Contains(t, snapshot, "controller/inner/noOpCounter")
	assert.Contains(t, snapshot, "weird_SLASH_name")
}

func TestLatency(t *testing.T) {
	stat := DefaultStatsReceiver()
	stat.Latency("decisionLatency_ms").RecordDuration(5 * time.Millisecond)
	stat.Latency("decisionLatency_ms").Time().Stop()

	var snapshot map[string]interface{}
	require.NoError(t, json.Unmarshal(stat.Render(true), &snapshot))
	timer, ok := snapshot["decisionLatency_ms"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 2.0, timer["count"])
}

func TestNilStatsReceiverIsInert(t *testing.T) {
	stat := NilStatsReceiver()
	stat.Counter("anything").Inc(5)
	assert.Equal(t, int64(0), stat.Counter("anything").Count())
	assert.Equal(t, []byte("{}"), stat.Render(false))
	stat.Scope("a", "b").Latency("x").Time().Stop()
}
