package sim

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustInstance(t *testing.T, text string) *Instance {
	t.Helper()
	inst, err := ParseInstance(strings.NewReader(text))
	require.NoError(t, err)
	return inst
}

func TestEnvInitialLegality(t *testing.T) {
	env := NewEnv(mustInstance(t, smallInstance))

	obs := env.Reset()
	// Both jobs start on idle machines; nothing is running yet so the no-op
	// is not legal.
	assert.Equal(t, []bool{true, true, false}, obs.ActionMask)
	assert.Equal(t, 0.0, env.CurrentTime())
	assert.Equal(t, 0, env.NextOpIndex(0))
	assert.Equal(t, 0, env.NeededMachine(0))
	assert.Equal(t, 1, env.NeededMachine(1))
}

func TestEnvDispatchAndNoOp(t *testing.T) {
	env := NewEnv(mustInstance(t, smallInstance))
	env.Reset()

	obs, reward, done, err := env.Step(0) // job 0 on machine 0 for 3
	require.NoError(t, err)
	assert.False(t, done)
	assert.InDelta(t, 3.0/4.0, reward, 1e-9)
	assert.Equal(t, 1, env.NextOpIndex(0))
	// Job 0 and machine 0 are now busy; job 1 remains legal, and waiting
	// became legal.
	assert.Equal(t, []bool{false, true, true}, obs.ActionMask)

	_, _, done, err = env.Step(1) // job 1 on machine 1 for 4
	require.NoError(t, err)
	assert.False(t, done)

	// Only the no-op is legal; it advances the clock to the next completion.
	obs, reward, done, err = env.Step(2)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 3.0, env.CurrentTime())
	assert.InDelta(t, -3.0/4.0, reward, 1e-9)
	// Job 0 next needs machine 1, which is busy until t=4.
	assert.Equal(t, []bool{false, false, true}, obs.ActionMask)
}

func TestEnvFullEpisodeMakespan(t *testing.T) {
	env := NewEnv(mustInstance(t, smallInstance))
	env.Reset()

	// Greedy walk: dispatch any legal job, else no-op.
	steps := 0
	done := false
	for !done && steps < 100 {
		steps++
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
	require.True(t, done, "episode should finish")
	// J0: M0[0,3] M1[4,6]; J1: M1[0,4] M0[4,5].
	assert.Equal(t, 6.0, env.CurrentTime())
	assert.Equal(t, 2, env.NextOpIndex(0))
	assert.Equal(t, 2, env.NextOpIndex(1))
}

func TestEnvIllegalActions(t *testing.T) {
	env := NewEnv(mustInstance(t, smallInstance))
	env.Reset()

	_, _, _, err := env.Step(7)
	assert.Error(t, err, "out of range")
	_, _, _, err = env.Step(-1)
	assert.Error(t, err, "negative")

	_, _, _, err = env.Step(0)
	require.NoError(t, err)
	_, _, _, err = env.Step(0)
	assert.Error(t, err, "job 0 is busy")
}

func TestEnvZeroDurationInstance(t *testing.T) {
	env := NewEnv(mustInstance(t, "1 1\n0 0\n"))
	env.Reset()

	_, reward, done, err := env.Step(0)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 0.0, reward)
	assert.Equal(t, 0.0, env.CurrentTime())
}
