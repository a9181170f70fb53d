package sched

import "github.com/shopsim/jobshop/sim"

// Agent selects exactly one action per environment decision point. The
// returned action is a job index in [0, Jobs()) or Jobs() for no-op, and is
// legal under the current mask. Only the controller-constrained agent can
// fail (fatal configuration errors); the simple agents always return nil.
type Agent interface {
	Name() string
	Act(env sim.Environment, obs sim.Observation) (int, error)
}

// ScheduledTask is one committed operation of the realized schedule. Person
// is -1 when the recording path had no workforce information.
type ScheduledTask struct {
	Job     int
	Machine int
	Start   float64
	End     float64
	Person  int
}

// ScheduleProvider is implemented by agents that keep their own schedule
// bookkeeping during an episode.
type ScheduleProvider interface {
	Schedule() []ScheduledTask
}

// legalJobs returns the indices of legal job actions in ascending order,
// which is what makes lowest-index tie-breaking deterministic.
func legalJobs(env sim.Environment, mask []bool) []int {
	jobs := []int{}
	for j := 0; j < env.Jobs() && j < len(mask); j++ {
		if mask[j] {
			jobs = append(jobs, j)
		}
	}
	return jobs
}

// fallbackAction answers "no-op if legal, else 0" when no job can be chosen.
func fallbackAction(env sim.Environment, mask []bool) int {
	if len(mask) > env.Jobs() && mask[env.Jobs()] {
		return env.Jobs()
	}
	return 0
}
