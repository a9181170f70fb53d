package controller

import (
	"reflect"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopsim/jobshop/runner"
	"github.com/shopsim/jobshop/sched"
	"github.com/shopsim/jobshop/sim"
)

func runControllerEpisode(t *testing.T, instance, controller string) runner.Result {
	t.Helper()
	inst := mustInstance(t, instance)
	ctrl := mustController(t, controller)
	require.NoError(t, ctrl.Validate(inst))
	agent := New(ctrl, 0, nil)
	res, err := runner.RunEpisode(sim.NewEnv(inst), agent, runner.Options{})
	require.NoError(t, err)
	return res
}

func TestAgentSchedulesSmallInstance(t *testing.T) {
	res := runControllerEpisode(t, smallInstance, fullCoverageHeader)

	assert.Equal(t, 6.0, res.Makespan)
	assert.False(t, res.CapHit)
	assert.Len(t, res.Schedule, 4, "one task per operation")
	assert.Equal(t, 0, res.MissingOps)

	for _, task := range res.Schedule {
		assert.True(t, task.Person == 1 || task.Person == 2, "unexpected person %d", task.Person)
		assert.True(t, task.End > task.Start || task.End == task.Start)
	}
	assertNoDoubleBooking(t, res.Schedule)
}

// assertNoDoubleBooking checks that no person holds two overlapping tasks.
func assertNoDoubleBooking(t *testing.T, schedule []sched.ScheduledTask) {
	t.Helper()
	byPerson := map[int][]sched.ScheduledTask{}
	for _, task := range schedule {
		if task.Person >= 0 {
			byPerson[task.Person] = append(byPerson[task.Person], task)
		}
	}
	for person, tasks := range byPerson {
		sort.Slice(tasks, func(i, j int) bool { return tasks[i].Start < tasks[j].Start })
		for i := 1; i < len(tasks); i++ {
			assert.True(t, tasks[i].Start >= tasks[i-1].End-1e-9,
				"person %d double-booked: [%v,%v] then [%v,%v]",
				person, tasks[i-1].Start, tasks[i-1].End, tasks[i].Start, tasks[i].End)
		}
	}
}

func TestAgentDeterministic(t *testing.T) {
	first := runControllerEpisode(t, smallInstance, fullCoverageHeader)
	second := runControllerEpisode(t, smallInstance, fullCoverageHeader)

	assert.Equal(t, first.Makespan, second.Makespan)
	assert.True(t, reflect.DeepEqual(first.Schedule, second.Schedule))
}

func TestAgentSinglePersonStillCompletes(t *testing.T) {
	// One person for everything is heavily contended; progress must still be
	// guaranteed and every operation recorded.
	res := runControllerEpisode(t, smallInstance, "1 0 1\n")

	assert.False(t, res.CapHit)
	assert.Len(t, res.Schedule, 4)
	assert.Equal(t, 0, res.MissingOps)
	for _, task := range res.Schedule {
		assert.Equal(t, 1, task.Person)
	}
}

func TestAgentResetClearsState(t *testing.T) {
	env := sim.NewEnv(mustInstance(t, smallInstance))
	ctrl := mustController(t, fullCoverageHeader)
	agent := New(ctrl, 0, nil)

	first, err := runner.RunEpisode(env, agent, runner.Options{})
	require.NoError(t, err)

	agent.Reset()
	second, err := runner.RunEpisode(env, agent, runner.Options{})
	require.NoError(t, err)

	assert.Equal(t, first.Makespan, second.Makespan)
	assert.Len(t, second.Schedule, 4, "stale tasks would accumulate here")
}

func TestAgentLimitsPeople(t *testing.T) {
	ctrl := mustController(t, "1 0 1\n2 0 1\n3 0 1\n")
	env := sim.NewEnv(mustInstance(t, smallInstance))
	agent := New(ctrl, 2, nil)

	res, err := runner.RunEpisode(env, agent, runner.Options{})
	require.NoError(t, err)
	for _, task := range res.Schedule {
		assert.True(t, task.Person == 1 || task.Person == 2, "person %d beyond the limit", task.Person)
	}
}

func TestAgentCoverageErrorIsFatal(t *testing.T) {
	// Machine 1 is needed by both jobs but nobody is qualified for it.
	env := sim.NewEnv(mustInstance(t, smallInstance))
	agent := New(mustController(t, "5 0\n8 0\n"), 0, nil)

	_, err := runner.RunEpisode(env, agent, runner.Options{})
	require.Error(t, err)
	coverage, ok := errCause(err).(*CoverageError)
	require.True(t, ok, "expected *CoverageError, got %T", err)
	assert.Equal(t, 1, coverage.Machine)
}

func TestAgentDesyncMaskReturnsNoOp(t *testing.T) {
	env := sim.NewEnv(mustInstance(t, smallInstance))
	env.Reset()
	agent := New(mustController(t, fullCoverageHeader), 0, nil)

	action, err := agent.Act(env, sim.Observation{ActionMask: []bool{true}})
	require.NoError(t, err)
	assert.Equal(t, env.Jobs(), action)
}

// errCause unwinds pkg/errors wrapping.
func errCause(err error) error {
	type causer interface {
		Cause() error
	}
	for err != nil {
		c, ok := err.(causer)
		if !ok {
			break
		}
		err = c.Cause()
	}
	return err
}
