package controller

import (
	log "github.com/sirupsen/logrus"

	"github.com/shopsim/jobshop/common/stats"
	"github.com/shopsim/jobshop/sched"
	"github.com/shopsim/jobshop/sim"
)

const (
	// maxConsecutiveNoOps bounds deliberate waiting; once hit, the best
	// feasible job is forced regardless of its wait.
	maxConsecutiveNoOps = 5

	// immediateStartEpsilon is the slack within which a computed start time
	// counts as "now".
	immediateStartEpsilon = 0.1

	// noOpStalenessWindow resets the consecutive no-op counter once the
	// clock has advanced this far, so the counter measures stalling at one
	// instant rather than across the episode.
	noOpStalenessWindow = 1.0

	// highUtilizationBound is the busy fraction of the workforce above which
	// a short deliberate wait is preferred over a bad assignment.
	highUtilizationBound = 0.8
)

// jobPlan is the best feasible (person, start, end) found for one legal job.
type jobPlan struct {
	job     int
	opIndex int
	machine int
	person  int
	start   float64
	end     float64
}

// Agent schedules jobs under controller constraints: every dispatch needs an
// idle qualified person in addition to the machine the environment manages.
// It owns the assignment table and the realized schedule exclusively; the
// environment knows nothing about people.
//
// Agents carry per-episode mutable state and must not be shared across
// concurrent episodes.
type Agent struct {
	ctrl      Controller
	numPeople int
	stat      stats.StatsReceiver

	assignments      *assignmentTable
	lastActionTime   float64
	consecutiveNoOps int
	recorder         *scheduleRecorder
}

// New returns a controller-constrained agent using the numPeople lowest
// person ids of ctrl (everyone when numPeople is non-positive or exceeds the
// table).
func New(ctrl Controller, numPeople int, stat stats.StatsReceiver) *Agent {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	ctrl = ctrl.Limit(numPeople)
	a := &Agent{ctrl: ctrl, numPeople: len(ctrl), stat: stat}
	a.Reset()
	return a
}

func (a *Agent) Name() string { return "ControllerConstrained" }

// Reset clears all per-episode state so the agent can drive a fresh episode.
func (a *Agent) Reset() {
	a.assignments = newAssignmentTable(a.numPeople)
	a.lastActionTime = 0
	a.consecutiveNoOps = 0
	a.recorder = newScheduleRecorder(a.stat)
}

// Act picks one action per decision point. The only error it can return is a
// fatal *CoverageError: a legal job whose machine has no qualified people at
// all, which makes the configured problem infeasible.
func (a *Agent) Act(env sim.Environment, obs sim.Observation) (int, error) {
	defer a.stat.Latency(stats.SchedDecisionLatency_ms).Time().Stop()

	mask := sim.Legal(env, obs)
	if len(mask) != env.Jobs()+1 {
		// Environment/agent desync; answer safely instead of indexing out
		// of bounds.
		a.stat.Counter(stats.SchedDesyncCounter).Inc(1)
		log.WithFields(log.Fields{
			"maskLen":  len(mask),
			"expected": env.Jobs() + 1,
		}).Warn("Legality mask size mismatch, returning no-op")
		return env.Jobs(), nil
	}

	now := env.CurrentTime()
	a.assignments.expire(now)
	a.stat.Gauge(stats.SchedActiveAssignmentsGauge).Update(int64(a.assignments.active()))

	if now > a.lastActionTime+noOpStalenessWindow {
		a.consecutiveNoOps = 0
	}
	a.lastActionTime = now

	plans, legalIncomplete, err := a.feasiblePlans(env, mask, now)
	if err != nil {
		return env.Jobs(), err
	}

	if len(plans) == 0 {
		if len(legalIncomplete) > 0 {
			// Safety valve: transient bookkeeping issues must not stall the
			// episode while dispatchable work exists.
			a.stat.Counter(stats.SchedForcedProgressCounter).Inc(1)
			log.WithFields(log.Fields{
				"legalIncomplete": len(legalIncomplete),
			}).Warn("No feasible candidates for legal incomplete jobs, forcing first")
			return legalIncomplete[0], nil
		}
		return a.noOp(env, mask), nil
	}

	progress := sched.ProgressRatio(env)
	scores := make(map[int]float64, len(plans))
	for _, p := range plans {
		scores[p.job] = a.score(env, p, now, progress)
	}

	// Tier 1: among jobs that can start effectively now, take the best.
	if p, ok := bestPlan(plans, scores, func(p jobPlan) bool {
		return p.start <= now+immediateStartEpsilon
	}); ok {
		return a.dispatch(p), nil
	}

	// Tier 2: waiting has gone on long enough; force the best job.
	if a.consecutiveNoOps >= maxConsecutiveNoOps {
		p, _ := bestPlan(plans, scores, nil)
		return a.dispatch(p), nil
	}

	// Tier 3: a bounded wait is acceptable; choose the best-scored job among
	// those within a tolerance band of the minimum wait, not only the single
	// soonest one.
	minWait := plans[0].start - now
	for _, p := range plans[1:] {
		if w := p.start - now; w < minWait {
			minWait = w
		}
	}
	maxAcceptableWait := maxf(env.MaxOpTime()*0.1, 1.0)
	if minWait <= maxAcceptableWait {
		tolerance := maxf(1.0, minWait*0.2)
		p, _ := bestPlan(plans, scores, func(p jobPlan) bool {
			return p.start-now <= minWait+tolerance
		})
		return a.dispatch(p), nil
	}

	// Tier 4: with most people busy and relief coming soon, a brief
	// deliberate wait beats forcing a bad assignment.
	busyFraction, avgWait := a.assignments.utilization(now)
	if busyFraction > highUtilizationBound && avgWait <= maxAcceptableWait*0.5 {
		a.consecutiveNoOps++
		a.stat.Counter(stats.SchedDeferredCounter).Inc(1)
		return a.noOp(env, mask), nil
	}

	// Tier 5: guarantee forward progress.
	p, _ := bestPlan(plans, scores, nil)
	return a.dispatch(p), nil
}

// feasiblePlans computes the best (person, start, end) per legal incomplete
// job. A machine with no structurally qualified people is a fatal
// configuration error.
func (a *Agent) feasiblePlans(env sim.Environment, mask []bool, now float64) ([]jobPlan, []int, error) {
	var plans []jobPlan
	var legalIncomplete []int
	for j := 0; j < env.Jobs(); j++ {
		if !mask[j] || env.NextOpIndex(j) >= env.NumOps(j) {
			continue
		}
		legalIncomplete = append(legalIncomplete, j)

		opIdx := env.NextOpIndex(j)
		op := env.Operation(j, opIdx)
		person, availableAt, ok := earliestQualified(a.ctrl, a.assignments, op.Machine, now)
		if !ok {
			log.WithFields(log.Fields{
				"job":     j,
				"machine": op.Machine,
				"people":  a.ctrl.People(),
			}).Error("No people qualified for machine")
			return nil, nil, &CoverageError{Machine: op.Machine, Table: a.ctrl}
		}

		start := maxf(availableAt, now+env.MachineFreeIn(op.Machine))
		plans = append(plans, jobPlan{
			job:     j,
			opIndex: opIdx,
			machine: op.Machine,
			person:  person,
			start:   start,
			end:     start + op.Duration,
		})
	}
	return plans, legalIncomplete, nil
}

// score combines the seven scoring terms under the progress-regime weights.
func (a *Agent) score(env sim.Environment, p jobPlan, now, progress float64) float64 {
	maxTime := env.MaxOpTime()
	dur := env.Operation(p.job, p.opIndex).Duration

	spt := sched.ShortestProcessingTime(dur, maxTime)

	// Work remaining beyond the operation being planned.
	workRemaining := 0.0
	if maxPossible := maxTime * float64(env.Machines()); maxPossible > 0 {
		rem := 0.0
		for op := p.opIndex + 1; op < env.NumOps(p.job); op++ {
			rem += env.Operation(p.job, op).Duration
		}
		workRemaining = rem / maxPossible
	}

	maxWait := maxTime
	if maxWait <= 0 {
		maxWait = 1.0
	}
	wait := maxf(0, p.start-now)
	waitPenalty := maxf(0, 1.0-wait/maxWait)

	machineUtil := sched.MachineUtilization(env, p.machine)

	// How many people could take this machine; a proxy for how much
	// flexibility remains if we consume one of them now.
	personAvailability := 0.0
	if a.numPeople > 0 {
		personAvailability = float64(len(a.ctrl.Qualified(p.machine))) / float64(a.numPeople)
	}

	// Jobs with fewer operations left score higher here: close them out.
	criticalPath := 1.0
	if env.NumOps(p.job) > 0 {
		remainingOps := env.NumOps(p.job) - p.opIndex
		criticalPath = 1.0 - float64(remainingOps)/float64(env.NumOps(p.job))
	}

	resourceEfficiency := 1.0
	if wait > 0 {
		resourceEfficiency = maxf(0.1, 1.0-wait/maxWait)
	}

	w := sched.ControllerWeightsFor(progress)
	return w.SPT*spt +
		w.WorkRemaining*workRemaining +
		w.WaitPenalty*waitPenalty +
		w.MachineUtil*machineUtil +
		w.PersonAvailability*personAvailability +
		w.CriticalPath*criticalPath +
		w.ResourceEfficiency*resourceEfficiency
}

// dispatch commits the plan's person through the operation's end before
// returning the action, keeping the table consistent for the next decision
// even though the environment has not advanced yet.
func (a *Agent) dispatch(p jobPlan) int {
	a.assignments.commit(p.person, assignment{machine: p.machine, job: p.job, endTime: p.end})
	a.consecutiveNoOps = 0
	a.stat.Counter(stats.SchedDispatchCounter).Inc(1)
	return p.job
}

func (a *Agent) noOp(env sim.Environment, mask []bool) int {
	a.stat.Counter(stats.SchedNoOpCounter).Inc(1)
	if mask[env.Jobs()] {
		return env.Jobs()
	}
	return 0
}

// bestPlan returns the highest-scored plan passing the filter (nil means
// all); the lowest job index wins ties because plans are in job order.
func bestPlan(plans []jobPlan, scores map[int]float64, filter func(jobPlan) bool) (jobPlan, bool) {
	var best jobPlan
	bestScore := 0.0
	found := false
	for _, p := range plans {
		if filter != nil && !filter(p) {
			continue
		}
		if !found || scores[p.job] > bestScore {
			best, bestScore, found = p, scores[p.job], true
		}
	}
	return best, found
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
