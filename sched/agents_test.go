package sched

import (
	"math/rand"
	"testing"

	"github.com/shopsim/jobshop/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runToCompletion drives the env with the agent, checking every chosen action
// against the mask, and returns the makespan.
func runToCompletion(t *testing.T, env sim.Environment, agent Agent) float64 {
	t.Helper()
	obs := env.Reset()
	done := false
	for steps := 0; !done; steps++ {
		require.True(t, steps < 1000, "agent %s failed to finish", agent.Name())
		action, err := agent.Act(env, obs)
		require.NoError(t, err)
		mask := env.LegalActions()
		require.True(t, action >= 0 && action < len(mask), "action %d out of range", action)
		require.True(t, mask[action], "agent %s chose illegal action %d", agent.Name(), action)
		obs, _, done, err = env.Step(action)
		require.NoError(t, err)
	}
	return env.CurrentTime()
}

func TestPriorityScoringAgentCompletes(t *testing.T) {
	env := newTestEnv(t, smallInstance)
	makespan := runToCompletion(t, env, NewPriorityScoringAgent(nil))
	assert.True(t, makespan >= 6.0, "below the optimum: %v", makespan)
}

func TestPriorityScoringAgentDeterministicWithNilRng(t *testing.T) {
	first := runToCompletion(t, newTestEnv(t, smallInstance), NewPriorityScoringAgent(nil))
	second := runToCompletion(t, newTestEnv(t, smallInstance), NewPriorityScoringAgent(nil))
	assert.Equal(t, first, second)
}

func TestPriorityScoringAgentPrefersHigherScore(t *testing.T) {
	// Identical totals and routes; only the SPT term differs and it favors
	// job 1's shorter first op.
	env := newTestEnv(t, "2 2\n0 4 1 1\n0 1 1 4\n")
	agent := NewPriorityScoringAgent(nil)
	action, err := agent.Act(env, env.Reset())
	require.NoError(t, err)
	assert.Equal(t, 1, action)
}

func TestLookaheadAgentCompletes(t *testing.T) {
	env := newTestEnv(t, smallInstance)
	makespan := runToCompletion(t, env, NewLookaheadAgent())
	assert.True(t, makespan >= 6.0)
}

func TestLookaheadAgentPrefersShortOp(t *testing.T) {
	// Identical routes, only the first durations differ; the immediate term
	// dominates and picks the shorter one.
	env := newTestEnv(t, "2 2\n0 4 1 2\n0 1 1 2\n")
	agent := NewLookaheadAgent()
	action, err := agent.Act(env, env.Reset())
	require.NoError(t, err)
	assert.Equal(t, 1, action)
}

func TestRuleAgents(t *testing.T) {
	for _, name := range DispatchingRules {
		agent, err := NewRuleAgent(name)
		require.NoError(t, err)
		assert.Equal(t, name, agent.Name())
		env := newTestEnv(t, smallInstance)
		makespan := runToCompletion(t, env, agent)
		assert.True(t, makespan >= 6.0, "%s: %v", name, makespan)
	}

	_, err := NewRuleAgent("EDD")
	assert.Error(t, err)
}

func TestRuleAgentSelection(t *testing.T) {
	// Job 0: ops 4,1 (total 5, first op 4). Job 1: ops 1,2 (total 3, first 1).
	env := newTestEnv(t, "2 2\n0 4 1 1\n0 1 1 2\n")
	obs := env.Reset()

	cases := map[string]int{
		"SPT":  1, // shortest current op
		"MWR":  0, // most work remaining
		"LWR":  1,
		"FIFO": 0,
		"CR":   0, // 5/2 vs 3/2
	}
	for name, want := range cases {
		agent, err := NewRuleAgent(name)
		require.NoError(t, err)
		action, err := agent.Act(env, obs)
		require.NoError(t, err)
		assert.Equal(t, want, action, name)
	}
}

func TestRuleAgentNoOpWhenNothingLegal(t *testing.T) {
	env := newTestEnv(t, smallInstance)
	env.Reset()
	_, _, _, err := env.Step(0)
	require.NoError(t, err)
	_, _, _, err = env.Step(1)
	require.NoError(t, err)

	agent, err := NewRuleAgent("SPT")
	require.NoError(t, err)
	action, err := agent.Act(env, sim.Observation{ActionMask: env.LegalActions()})
	require.NoError(t, err)
	assert.Equal(t, env.Jobs(), action)
}

func TestRandomAgentStaysLegal(t *testing.T) {
	agent := NewRandomAgent(rand.New(rand.NewSource(42)))
	env := newTestEnv(t, smallInstance)
	makespan := runToCompletion(t, env, agent)
	assert.True(t, makespan >= 6.0)
}

func TestRandomAgentSeededDeterminism(t *testing.T) {
	first := runToCompletion(t, newTestEnv(t, smallInstance), NewRandomAgent(rand.New(rand.NewSource(7))))
	second := runToCompletion(t, newTestEnv(t, smallInstance), NewRandomAgent(rand.New(rand.NewSource(7))))
	assert.Equal(t, first, second)
}
