package sched

import (
	"math/rand"

	"github.com/shopsim/jobshop/sim"
)

// earlyWaitProbability is the chance the priority agent deliberately waits
// when the no-op is legal during the early regime. Driven by the injected
// rand source; a nil source disables it for deterministic runs.
const earlyWaitProbability = 0.05

// PriorityScoringAgent combines the six scoring heuristics with
// progress-dependent weights to pick one legal job per decision point.
type PriorityScoringAgent struct {
	rng *rand.Rand

	episodeStep   int
	totalJobs     int
	totalMachines int
}

// NewPriorityScoringAgent returns the agent. rng seeds the documented
// early-wait exception; pass nil to disable it.
func NewPriorityScoringAgent(rng *rand.Rand) *PriorityScoringAgent {
	return &PriorityScoringAgent{rng: rng}
}

func (a *PriorityScoringAgent) Name() string { return "HybridPriorityScoring" }

func (a *PriorityScoringAgent) Act(env sim.Environment, obs sim.Observation) (int, error) {
	mask := sim.Legal(env, obs)

	jobs := legalJobs(env, mask)
	if len(jobs) == 0 {
		return fallbackAction(env, mask), nil
	}

	if a.episodeStep == 0 {
		a.totalJobs = env.Jobs()
		a.totalMachines = env.Machines()
	}
	a.episodeStep++

	progress := ProgressRatio(env)

	best := jobs[0]
	bestScore := a.score(env, jobs[0], progress)
	for _, job := range jobs[1:] {
		// Strict comparison keeps the lowest index on ties.
		if s := a.score(env, job, progress); s > bestScore {
			best, bestScore = job, s
		}
	}

	if a.rng != nil && len(mask) > env.Jobs() && mask[env.Jobs()] &&
		progress < earlyProgressBound && a.rng.Float64() < earlyWaitProbability {
		return env.Jobs(), nil
	}
	return best, nil
}

func (a *PriorityScoringAgent) score(env sim.Environment, job int, progress float64) float64 {
	op := env.NextOpIndex(job)
	machine := env.NeededMachine(job)
	procTime := env.Operation(job, op).Duration

	w := PriorityWeightsFor(progress)
	return w.SPT*ShortestProcessingTime(procTime, env.MaxOpTime()) +
		w.WorkRemaining*WorkRemaining(env, job) +
		w.CriticalPath*CriticalPath(env, job) +
		w.MachineUtil*MachineUtilization(env, machine) +
		w.Bottleneck*BottleneckPressure(env, job, op) +
		w.FlowContinuity*FlowContinuity(env, job, op)
}
