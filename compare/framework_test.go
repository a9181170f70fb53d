package compare

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopsim/jobshop/sched"
	"github.com/shopsim/jobshop/sim"
)

const smallInstance = "2 2\n0 3 1 2\n1 4 0 1\n"

func newFramework(t *testing.T, episodes int) *Framework {
	t.Helper()
	inst, err := sim.ParseInstance(strings.NewReader(smallInstance))
	require.NoError(t, err)
	return &Framework{
		NewEnv:   func() (sim.Environment, error) { return sim.NewEnv(inst), nil },
		Episodes: episodes,
	}
}

func rulePolicy(name string) Policy {
	return Policy{Name: name, NewAgent: func() (sched.Agent, error) {
		return sched.NewRuleAgent(name)
	}}
}

func TestFrameworkRanksByMakespan(t *testing.T) {
	f := newFramework(t, 3)
	results := f.Run(context.Background(), []Policy{rulePolicy("SPT"), rulePolicy("MWR"), rulePolicy("FIFO")})

	require.Len(t, results, 3)
	for i, r := range results {
		require.NoError(t, r.Err, r.Name)
		assert.Equal(t, 3, r.Summary.Episodes)
		if i > 0 {
			assert.True(t, r.Summary.AvgMakespan >= results[i-1].Summary.AvgMakespan,
				"results out of order at rank %d", i)
		}
	}
}

func TestFrameworkRankingIsStable(t *testing.T) {
	policies := []Policy{rulePolicy("SPT"), rulePolicy("MWR"), rulePolicy("LWR")}

	first := newFramework(t, 2).Run(context.Background(), policies)
	second := newFramework(t, 2).Run(context.Background(), policies)

	require.Equal(t, len(first), len(second))
	for i := range first {
		// Execution times are wall clock and vary run to run; the ranking and
		// the makespan/reward series are what must reproduce.
		assert.Equal(t, first[i].Name, second[i].Name)
		assert.Equal(t, first[i].Metrics.Makespans, second[i].Metrics.Makespans)
		assert.Equal(t, first[i].Metrics.Rewards, second[i].Metrics.Rewards)
		assert.Equal(t, first[i].Summary.AvgMakespan, second[i].Summary.AvgMakespan)
		assert.Equal(t, first[i].Summary.StdMakespan, second[i].Summary.StdMakespan)
		assert.Equal(t, first[i].Summary.AvgReward, second[i].Summary.AvgReward)
	}
}

func TestFrameworkIsolatesFailures(t *testing.T) {
	broken := Policy{Name: "Broken", NewAgent: func() (sched.Agent, error) {
		return nil, errors.New("no such agent")
	}}

	f := newFramework(t, 2)
	results := f.Run(context.Background(), []Policy{rulePolicy("SPT"), broken})

	require.Len(t, results, 2)
	assert.Equal(t, "SPT", results[0].Name)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, "Broken", results[1].Name, "failed policies sort last")
	assert.Error(t, results[1].Err)
}

func TestFrameworkHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newFramework(t, 100)
	results := f.Run(ctx, []Policy{rulePolicy("SPT")})

	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
	assert.Equal(t, 0, results[0].Summary.Episodes)
}

func TestWriteSummary(t *testing.T) {
	results := []PolicyResult{
		{Name: "Good", Summary: Summary{Episodes: 2, AvgMakespan: 6, MinMakespan: 6, AvgReward: 1.5}},
		{Name: "Bad", Err: errors.New("exploded\nwith a very long\nmulti-line dump")},
	}

	var buf bytes.Buffer
	WriteSummary(&buf, results)
	out := buf.String()

	assert.Contains(t, out, "Good")
	assert.Contains(t, out, "FAILED: exploded")
	assert.NotContains(t, out, "multi-line dump", "failure rows stay single-line")
	assert.Contains(t, out, "Best performing method: Good")
}

func TestMetricsSummary(t *testing.T) {
	var m Metrics
	assert.Equal(t, Summary{}, m.Summary())

	m.AddEpisode(10, 1, 0.5)
	m.AddEpisode(20, 3, 1.5)
	s := m.Summary()

	assert.Equal(t, 2, s.Episodes)
	assert.Equal(t, 15.0, s.AvgMakespan)
	assert.Equal(t, 5.0, s.StdMakespan)
	assert.Equal(t, 10.0, s.MinMakespan)
	assert.Equal(t, 20.0, s.MaxMakespan)
	assert.Equal(t, 2.0, s.AvgReward)
	assert.Equal(t, 1.0, s.AvgExecTimeSec)
}
