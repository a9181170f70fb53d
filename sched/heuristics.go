package sched

import "github.com/shopsim/jobshop/sim"

// Scoring heuristics used by the priority agents. Each returns a value in
// [0,1] where higher means "dispatch this sooner". All of them degenerate to
// a neutral value instead of erroring when a divisor is zero.

// ShortestProcessingTime scores shorter operations higher.
func ShortestProcessingTime(procTime, maxTime float64) float64 {
	if maxTime <= 0 {
		return 1.0
	}
	return clamp01(1.0 - procTime/maxTime)
}

// WorkRemaining scores jobs with more undispatched work higher, normalized
// by the largest amount of work a job could possibly carry.
func WorkRemaining(env sim.Environment, job int) float64 {
	maxPossible := env.MaxOpTime() * float64(env.Machines())
	if maxPossible <= 0 {
		return 0.0
	}
	return clamp01(remainingWork(env, job) / maxPossible)
}

// CriticalPath scores jobs with a larger fraction of their operations still
// ahead of them higher.
func CriticalPath(env sim.Environment, job int) float64 {
	total := env.NumOps(job)
	if total <= 0 {
		return 1.0
	}
	remaining := total - env.NextOpIndex(job)
	return clamp01(float64(remaining) / float64(total))
}

// MachineUtilization scores machines that free up sooner higher.
func MachineUtilization(env sim.Environment, machine int) float64 {
	if env.MaxOpTime() <= 0 {
		return 1.0
	}
	return clamp01(1.0 - env.MachineFreeIn(machine)/env.MaxOpTime())
}

// BottleneckPressure scores an operation by the fraction of currently legal
// jobs contending for its machine.
func BottleneckPressure(env sim.Environment, job, op int) float64 {
	if env.Jobs() == 0 {
		return 0.0
	}
	machine := env.Operation(job, op).Machine
	mask := env.LegalActions()
	demand := 0
	for j := 0; j < env.Jobs(); j++ {
		if mask[j] && env.NeededMachine(j) == machine {
			demand++
		}
	}
	return clamp01(float64(demand) / float64(env.Jobs()))
}

// FlowContinuity scores an operation by how smoothly the job can continue to
// its next operation: 1.0 for the last operation or when the next machine
// will be free by the time this operation finishes, otherwise a penalty
// proportional to the implied wait.
func FlowContinuity(env sim.Environment, job, op int) float64 {
	if op >= env.NumOps(job)-1 {
		return 1.0
	}
	next := env.Operation(job, op+1)
	procTime := env.Operation(job, op).Duration
	nextFreeIn := env.MachineFreeIn(next.Machine)
	if nextFreeIn <= procTime {
		return 1.0
	}
	if env.MaxOpTime() <= 0 {
		return 1.0
	}
	wait := nextFreeIn - procTime
	return clamp01(1.0 - wait/env.MaxOpTime())
}

// remainingWork sums the durations of the job's undispatched operations.
func remainingWork(env sim.Environment, job int) float64 {
	total := 0.0
	for op := env.NextOpIndex(job); op < env.NumOps(job); op++ {
		total += env.Operation(job, op).Duration
	}
	return total
}

// ProgressRatio is the fraction of all operations already dispatched, used to
// switch between weight regimes.
func ProgressRatio(env sim.Environment) float64 {
	total := env.Jobs() * env.Machines()
	if total == 0 {
		return 0.0
	}
	completed := 0
	for j := 0; j < env.Jobs(); j++ {
		completed += env.NextOpIndex(j)
	}
	return float64(completed) / float64(total)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
