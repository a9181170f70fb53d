package controller

import (
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/shopsim/jobshop/common/stats"
	"github.com/shopsim/jobshop/sched"
	"github.com/shopsim/jobshop/sim"
)

type opKey struct {
	job int
	op  int
}

// pendingRecord is a dispatch captured before the environment step, waiting
// to be confirmed afterwards.
type pendingRecord struct {
	op      int
	machine int
	start   float64
	end     float64
	person  int
}

// scheduleRecorder accumulates the realized schedule for one episode. Exactly
// one ScheduledTask is recorded per (job, operation); an operation the
// environment advanced without matching bookkeeping gets a synthesized
// best-effort record rather than being silently lost.
type scheduleRecorder struct {
	tasks    []sched.ScheduledTask
	recorded map[opKey]bool
	pending  map[int]pendingRecord
	stat     stats.StatsReceiver
}

func newScheduleRecorder(stat stats.StatsReceiver) *scheduleRecorder {
	return &scheduleRecorder{
		recorded: map[opKey]bool{},
		pending:  map[int]pendingRecord{},
		stat:     stat,
	}
}

// BeforeStep captures the expected (machine, person, start, end) for a job
// dispatch about to be applied to the environment.
func (a *Agent) BeforeStep(env sim.Environment, action int) {
	if action < 0 || action >= env.Jobs() {
		return
	}
	opIdx := env.NextOpIndex(action)
	if opIdx >= env.NumOps(action) {
		return
	}
	op := env.Operation(action, opIdx)

	person, ok := a.assignments.lookup(action, op.Machine)
	if !ok {
		// The decision path should have committed an assignment; fall back
		// to whoever could take the machine soonest.
		if p, _, qualified := earliestQualified(a.ctrl, a.assignments, op.Machine, env.CurrentTime()); qualified {
			person = p
		} else {
			log.WithFields(log.Fields{
				"job":     action,
				"machine": op.Machine,
			}).Warn("Could not determine person for dispatch record")
			person = -1
		}
	}

	start := env.CurrentTime() + env.MachineFreeIn(op.Machine)
	a.recorder.pending[action] = pendingRecord{
		op:      opIdx,
		machine: op.Machine,
		start:   start,
		end:     start + op.Duration,
		person:  person,
	}
}

// AfterStep reconciles the environment's operation advance against the
// captured dispatch and appends at most one task per operation. When the
// environment advanced without a pending record, a best-effort task is
// synthesized from the current clock (recovery path, logged).
func (a *Agent) AfterStep(env sim.Environment, action int) {
	if action < 0 || action >= env.Jobs() {
		return
	}
	rec := a.recorder

	if pd, ok := rec.pending[action]; ok {
		rec.add(action, pd.op, sched.ScheduledTask{
			Job:     action,
			Machine: pd.machine,
			Start:   pd.start,
			End:     pd.end,
			Person:  pd.person,
		})
		delete(rec.pending, action)
		return
	}

	opIdx := env.NextOpIndex(action) - 1
	if opIdx < 0 || rec.recorded[opKey{action, opIdx}] {
		return
	}
	op := env.Operation(action, opIdx)
	now := env.CurrentTime()
	person := -1
	if p, ok := a.assignments.lookup(action, op.Machine); ok {
		person = p
	}
	log.WithFields(log.Fields{
		"job":       action,
		"operation": opIdx,
	}).Warn("Recovering missing schedule record")
	rec.stat.Counter(stats.SchedRecoveredTaskCounter).Inc(1)
	rec.add(action, opIdx, sched.ScheduledTask{
		Job:     action,
		Machine: op.Machine,
		Start:   now - op.Duration,
		End:     now,
		Person:  person,
	})
}

func (r *scheduleRecorder) add(job, op int, task sched.ScheduledTask) {
	key := opKey{job, op}
	if r.recorded[key] {
		return
	}
	r.recorded[key] = true
	r.tasks = append(r.tasks, task)
}

// Schedule returns the tasks recorded so far.
func (a *Agent) Schedule() []sched.ScheduledTask {
	return a.recorder.tasks
}

// VerifySchedule checks end-of-episode completeness: every job should have
// one recorded task per operation. Discrepancies are logged per job with the
// missing operation indices and the total count is returned; a persistent
// non-zero count is a bug signal, not a correctness guarantee.
func (a *Agent) VerifySchedule(env sim.Environment) int {
	missing := 0
	for j := 0; j < env.Jobs(); j++ {
		var missingOps []int
		for op := 0; op < env.NumOps(j); op++ {
			if !a.recorder.recorded[opKey{j, op}] {
				missingOps = append(missingOps, op)
			}
		}
		if len(missingOps) > 0 {
			sort.Ints(missingOps)
			log.WithFields(log.Fields{
				"job":        j,
				"recorded":   env.NumOps(j) - len(missingOps),
				"total":      env.NumOps(j),
				"missingOps": missingOps,
			}).Warn("Schedule is missing operations for job")
			missing += len(missingOps)
		}
	}
	log.WithFields(log.Fields{
		"tasks":   len(a.recorder.tasks),
		"missing": missing,
	}).Info("Schedule completeness check")
	return missing
}
