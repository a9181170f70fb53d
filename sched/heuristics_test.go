package sched

import (
	"strings"
	"testing"

	"github.com/shopsim/jobshop/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smallInstance = "2 2\n0 3 1 2\n1 4 0 1\n"

func newTestEnv(t *testing.T, text string) *sim.Env {
	t.Helper()
	inst, err := sim.ParseInstance(strings.NewReader(text))
	require.NoError(t, err)
	return sim.NewEnv(inst)
}

func TestShortestProcessingTime(t *testing.T) {
	assert.Equal(t, 1.0, ShortestProcessingTime(0, 4))
	assert.Equal(t, 0.0, ShortestProcessingTime(4, 4))
	assert.InDelta(t, 0.25, ShortestProcessingTime(3, 4), 1e-9)
	assert.Equal(t, 1.0, ShortestProcessingTime(3, 0), "zero divisor is neutral")
}

func TestWorkRemaining(t *testing.T) {
	env := newTestEnv(t, smallInstance)

	// Job 0 carries 3+2=5 of a possible 4*2=8.
	assert.InDelta(t, 5.0/8.0, WorkRemaining(env, 0), 1e-9)
	assert.InDelta(t, 5.0/8.0, WorkRemaining(env, 1), 1e-9)

	_, _, _, err := env.Step(0)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/8.0, WorkRemaining(env, 0), 1e-9)
}

func TestCriticalPath(t *testing.T) {
	env := newTestEnv(t, smallInstance)

	assert.Equal(t, 1.0, CriticalPath(env, 0))
	_, _, _, err := env.Step(0)
	require.NoError(t, err)
	assert.Equal(t, 0.5, CriticalPath(env, 0))
	assert.Equal(t, 1.0, CriticalPath(env, 1))
}

func TestMachineUtilization(t *testing.T) {
	env := newTestEnv(t, smallInstance)

	assert.Equal(t, 1.0, MachineUtilization(env, 0), "idle machine")
	_, _, _, err := env.Step(0) // machine 0 busy for 3 of max 4
	require.NoError(t, err)
	assert.InDelta(t, 0.25, MachineUtilization(env, 0), 1e-9)
	assert.Equal(t, 1.0, MachineUtilization(env, 1))
}

func TestBottleneckPressure(t *testing.T) {
	// Both jobs open on machine 0.
	env := newTestEnv(t, "2 2\n0 3 1 2\n0 4 1 1\n")

	assert.Equal(t, 1.0, BottleneckPressure(env, 0, 0), "both jobs contend")
	assert.Equal(t, 0.0, BottleneckPressure(env, 0, 1), "nobody needs machine 1 yet")
}

func TestFlowContinuity(t *testing.T) {
	env := newTestEnv(t, smallInstance)

	// Last operations always flow.
	assert.Equal(t, 1.0, FlowContinuity(env, 0, 1))
	// All machines idle: no implied wait.
	assert.Equal(t, 1.0, FlowContinuity(env, 0, 0))

	// Occupy machine 1 for 4; job 0's first op (3 on machine 0) would then
	// wait 1 before its second op.
	_, _, _, err := env.Step(1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0-1.0/4.0, FlowContinuity(env, 0, 0), 1e-9)
}

func TestHeuristicsStayInUnitRange(t *testing.T) {
	env := newTestEnv(t, smallInstance)
	done := false
	for !done {
		for j := 0; j < env.Jobs(); j++ {
			if op := env.NextOpIndex(j); op < env.NumOps(j) {
				for _, v := range []float64{
					ShortestProcessingTime(env.Operation(j, op).Duration, env.MaxOpTime()),
					WorkRemaining(env, j),
					CriticalPath(env, j),
					BottleneckPressure(env, j, op),
					FlowContinuity(env, j, op),
				} {
					assert.True(t, v >= 0 && v <= 1, "heuristic out of range: %v", v)
				}
			}
		}
		for m := 0; m < env.Machines(); m++ {
			v := MachineUtilization(env, m)
			assert.True(t, v >= 0 && v <= 1)
		}

		mask := env.LegalActions()
		action := env.Jobs()
		for j := 0; j < env.Jobs(); j++ {
			if mask[j] {
				action = j
				break
			}
		}
		var err error
		_, _, done, err = env.Step(action)
		require.NoError(t, err)
	}
}

func TestProgressRatio(t *testing.T) {
	env := newTestEnv(t, smallInstance)

	assert.Equal(t, 0.0, ProgressRatio(env))
	_, _, _, err := env.Step(0)
	require.NoError(t, err)
	assert.Equal(t, 0.25, ProgressRatio(env))
}
