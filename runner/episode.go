// Package runner drives one environment episode to completion under a chosen
// agent. It is a stateless driver: everything it holds is local to one
// episode.
package runner

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/shopsim/jobshop/common/stats"
	"github.com/shopsim/jobshop/sched"
	"github.com/shopsim/jobshop/sim"
)

// defaultIterationsPerOp scales the episode iteration cap: the loop is bound
// by cap = iterationsPerOp * jobs * machines so a buggy policy terminates
// instead of hanging.
const defaultIterationsPerOp = 10

// CaptureHooks is implemented by agents that keep their own schedule
// bookkeeping (the controller agent); the runner invokes the hooks around
// every applied environment step.
type CaptureHooks interface {
	BeforeStep(env sim.Environment, action int)
	AfterStep(env sim.Environment, action int)
}

// ScheduleVerifier is implemented by agents that can check their recorded
// schedule for completeness after the episode.
type ScheduleVerifier interface {
	VerifySchedule(env sim.Environment) int
}

// Options tunes one episode run.
type Options struct {
	// CaptureSchedule records a machine-level schedule (Person=-1) for
	// agents without their own bookkeeping.
	CaptureSchedule bool

	// IterationsPerOp overrides the safety-cap multiplier; zero means the
	// default.
	IterationsPerOp int

	Stat stats.StatsReceiver
}

// Result summarizes a completed episode.
type Result struct {
	Makespan    float64
	TotalReward float64
	ExecTime    time.Duration
	Iterations  int
	CapHit      bool

	// Schedule is the realized schedule: the agent's own if it keeps one,
	// else the runner's machine-level capture when requested.
	Schedule []sched.ScheduledTask

	// MissingOps is the completeness-check discrepancy count for verifying
	// agents, zero otherwise.
	MissingOps int
}

// RunEpisode drives env to completion under agent. Fatal agent errors abort
// the episode and propagate; everything else is handled internally.
func RunEpisode(env sim.Environment, agent sched.Agent, opts Options) (Result, error) {
	stat := opts.Stat
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	iterationsPerOp := opts.IterationsPerOp
	if iterationsPerOp <= 0 {
		iterationsPerOp = defaultIterationsPerOp
	}
	maxIterations := iterationsPerOp * env.Jobs() * env.Machines()

	hooks, _ := agent.(CaptureHooks)

	res := Result{}
	obs := env.Reset()
	start := time.Now()
	done := false

	for !done && res.Iterations < maxIterations {
		res.Iterations++

		action, err := agent.Act(env, obs)
		if err != nil {
			return res, errors.Wrapf(err, "agent %s failed at iteration %d", agent.Name(), res.Iterations)
		}
		action = sanitizeAction(env, obs, action, stat)

		if opts.CaptureSchedule && hooks == nil && action < env.Jobs() {
			res.Schedule = append(res.Schedule, captureTask(env, action))
		}
		if hooks != nil {
			hooks.BeforeStep(env, action)
		}

		var reward float64
		obs, reward, done, err = env.Step(action)
		if err != nil {
			// The action was sanitized against the mask, so a step error
			// means the environment contract broke; surface it.
			return res, errors.Wrap(err, "environment step failed")
		}
		res.TotalReward += reward

		if hooks != nil {
			hooks.AfterStep(env, action)
		}
	}

	res.ExecTime = time.Since(start)
	stat.Latency(stats.RunnerEpisodeLatency_ms).RecordDuration(res.ExecTime)
	res.Makespan = env.CurrentTime()

	if !done {
		res.CapHit = true
		stat.Counter(stats.RunnerIterationCapCounter).Inc(1)
		log.WithFields(log.Fields{
			"agent":         agent.Name(),
			"maxIterations": maxIterations,
		}).Warn("Episode terminated at iteration cap")
	}

	if provider, ok := agent.(sched.ScheduleProvider); ok {
		res.Schedule = provider.Schedule()
	}
	if verifier, ok := agent.(ScheduleVerifier); ok {
		res.MissingOps = verifier.VerifySchedule(env)
	}
	return res, nil
}

// sanitizeAction downgrades out-of-range, completed-job, or illegal actions
// to the no-op so an agent bug cannot crash the episode.
func sanitizeAction(env sim.Environment, obs sim.Observation, action int, stat stats.StatsReceiver) int {
	downgrade := func(reason string) int {
		stat.Counter(stats.RunnerDowngradedActionCounter).Inc(1)
		log.WithFields(log.Fields{
			"action": action,
			"reason": reason,
		}).Warn("Downgrading agent action to no-op")
		return env.Jobs()
	}

	if action < 0 || action > env.Jobs() {
		return downgrade("out of range")
	}
	if action == env.Jobs() {
		return action
	}
	if env.NextOpIndex(action) >= env.NumOps(action) {
		return downgrade("job complete")
	}
	mask := sim.Legal(env, obs)
	if action < len(mask) && !mask[action] {
		return downgrade("not legal")
	}
	return action
}

// captureTask records a machine-level task for a dispatch about to happen,
// mirroring what the environment will commit.
func captureTask(env sim.Environment, action int) sched.ScheduledTask {
	op := env.Operation(action, env.NextOpIndex(action))
	start := env.CurrentTime() + env.MachineFreeIn(op.Machine)
	return sched.ScheduledTask{
		Job:     action,
		Machine: op.Machine,
		Start:   start,
		End:     start + op.Duration,
		Person:  -1,
	}
}
