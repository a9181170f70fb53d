package sched

import "github.com/shopsim/jobshop/sim"

// LookaheadAgent evaluates each legal action with a cheap one-step proxy:
// an immediate term for the current operation plus, when the operation is
// not the job's last, a shallow future term for the next one. It is a
// passive, read-only evaluation over the current snapshot; no forward
// simulation or rollback is attempted, keeping each decision O(legal
// actions).
type LookaheadAgent struct{}

func NewLookaheadAgent() *LookaheadAgent { return &LookaheadAgent{} }

func (a *LookaheadAgent) Name() string { return "AdaptiveLookAhead" }

func (a *LookaheadAgent) Act(env sim.Environment, obs sim.Observation) (int, error) {
	mask := sim.Legal(env, obs)

	jobs := legalJobs(env, mask)
	if len(jobs) == 0 {
		return fallbackAction(env, mask), nil
	}
	if len(jobs) == 1 {
		return jobs[0], nil
	}

	best := jobs[0]
	bestScore := a.evaluate(env, jobs[0])
	for _, job := range jobs[1:] {
		// First encountered max wins ties.
		if s := a.evaluate(env, job); s > bestScore {
			best, bestScore = job, s
		}
	}
	return best, nil
}

func (a *LookaheadAgent) evaluate(env sim.Environment, job int) float64 {
	maxTime := env.MaxOpTime()
	if maxTime <= 0 {
		return 0.0
	}

	op := env.NextOpIndex(job)
	procTime := env.Operation(job, op).Duration
	machine := env.NeededMachine(job)

	immediate := (maxTime - procTime) / maxTime
	if env.MachineFreeIn(machine) == 0 {
		immediate += 0.5
	}

	future := 0.0
	if op < env.NumOps(job)-1 {
		next := env.Operation(job, op+1)
		if env.MachineFreeIn(next.Machine) <= procTime {
			future += 0.3
		}
		future += (maxTime - next.Duration) / (2 * maxTime)
	}
	return immediate + future
}
