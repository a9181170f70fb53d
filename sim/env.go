package sim

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Environment is the contract the scheduling core requires from a discrete
// event JSS simulator. Actions are job indices in [0, Jobs()); Jobs() itself
// is the no-op/wait action. The environment owns the simulation clock and
// operation-completion state; it has no notion of people.
type Environment interface {
	// Reset returns the environment to its initial state.
	Reset() Observation

	// Step applies the chosen action and advances the simulation. The error
	// is non-nil only for out-of-range or illegal actions.
	Step(action int) (obs Observation, reward float64, done bool, err error)

	Jobs() int
	Machines() int

	// CurrentTime is the simulation clock.
	CurrentTime() float64

	// NextOpIndex is the index of the job's next undispatched operation;
	// equals NumOps(job) once the job is fully dispatched.
	NextOpIndex(job int) int
	NumOps(job int) int
	Operation(job, op int) Op

	// NeededMachine is the machine required by the job's next operation, or
	// -1 if the job is complete.
	NeededMachine(job int) int

	// MachineFreeIn is the duration until the machine finishes its current
	// work; zero if it is idle.
	MachineFreeIn(machine int) float64

	// MaxOpTime is the scalar normalizer used by the scoring heuristics.
	MaxOpTime() float64

	LegalActions() []bool
}

// Env is the reference discrete-event implementation of Environment.
//
// A job is legal when it has a pending operation, the job itself is idle and
// its needed machine is idle. The no-op action is legal whenever a completion
// event is pending, and advances the clock to the next such event. A dispatch
// occupies both the job and the machine until now+duration and advances the
// job's operation index immediately. Once the last operation has been
// dispatched, the clock fast-forwards to the final completion and the episode
// is done; CurrentTime() is then the makespan.
//
// Reward shaping is not part of the measured contract (makespan is the
// objective): a dispatch pays duration/MaxOpTime and a no-op pays
// -advance/MaxOpTime, which rewards utilization and penalizes idling.
type Env struct {
	inst *Instance

	now           float64
	nextOp        []int
	jobFreeAt     []float64
	machineFreeAt []float64
	dispatched    int
	done          bool
}

func NewEnv(inst *Instance) *Env {
	e := &Env{inst: inst}
	e.Reset()
	return e
}

func (e *Env) Reset() Observation {
	e.now = 0
	e.nextOp = make([]int, e.inst.NumJobs)
	e.jobFreeAt = make([]float64, e.inst.NumJobs)
	e.machineFreeAt = make([]float64, e.inst.NumMachines)
	e.dispatched = 0
	e.done = false
	return e.observation()
}

func (e *Env) Step(action int) (Observation, float64, bool, error) {
	if e.done {
		log.Warn("Step called on a finished episode")
		return e.observation(), 0, true, nil
	}
	if action < 0 || action > e.inst.NumJobs {
		return e.observation(), 0, e.done, errors.Errorf("action %d out of range [0,%d]", action, e.inst.NumJobs)
	}

	if action == e.inst.NumJobs {
		return e.stepNoOp()
	}

	if !e.jobLegal(action) {
		return e.observation(), 0, e.done, errors.Errorf("illegal dispatch of job %d at t=%v", action, e.now)
	}

	op := e.inst.Ops[action][e.nextOp[action]]
	end := e.now + op.Duration
	e.jobFreeAt[action] = end
	e.machineFreeAt[op.Machine] = end
	e.nextOp[action]++
	e.dispatched++

	reward := 0.0
	if e.inst.maxOpTime > 0 {
		reward = op.Duration / e.inst.maxOpTime
	}

	if e.dispatched == e.inst.totalOps {
		// All work is placed; run the clock out to the last completion.
		for _, t := range e.jobFreeAt {
			if t > e.now {
				e.now = t
			}
		}
		e.done = true
	}
	return e.observation(), reward, e.done, nil
}

func (e *Env) stepNoOp() (Observation, float64, bool, error) {
	next := e.nextEventTime()
	if next <= e.now {
		log.WithFields(log.Fields{"time": e.now}).Warn("No-op with no pending completion; clock unchanged")
		return e.observation(), 0, e.done, nil
	}
	delta := next - e.now
	e.now = next
	reward := 0.0
	if e.inst.maxOpTime > 0 {
		reward = -delta / e.inst.maxOpTime
	}
	return e.observation(), reward, e.done, nil
}

// nextEventTime returns the earliest pending completion strictly after now,
// or now if nothing is pending.
func (e *Env) nextEventTime() float64 {
	next := e.now
	for _, t := range e.jobFreeAt {
		if t > e.now && (next == e.now || t < next) {
			next = t
		}
	}
	return next
}

func (e *Env) jobLegal(job int) bool {
	if e.nextOp[job] >= len(e.inst.Ops[job]) {
		return false
	}
	if e.jobFreeAt[job] > e.now {
		return false
	}
	machine := e.inst.Ops[job][e.nextOp[job]].Machine
	return e.machineFreeAt[machine] <= e.now
}

func (e *Env) LegalActions() []bool {
	mask := make([]bool, e.inst.NumJobs+1)
	if e.done {
		return mask
	}
	pending := false
	for j := 0; j < e.inst.NumJobs; j++ {
		mask[j] = e.jobLegal(j)
		if e.jobFreeAt[j] > e.now {
			pending = true
		}
	}
	mask[e.inst.NumJobs] = pending
	return mask
}

func (e *Env) observation() Observation {
	raw := make([]float64, e.inst.NumJobs)
	for j := 0; j < e.inst.NumJobs; j++ {
		raw[j] = float64(e.nextOp[j]) / float64(len(e.inst.Ops[j]))
	}
	return Observation{ActionMask: e.LegalActions(), Raw: raw}
}

func (e *Env) Jobs() int            { return e.inst.NumJobs }
func (e *Env) Machines() int        { return e.inst.NumMachines }
func (e *Env) CurrentTime() float64 { return e.now }
func (e *Env) MaxOpTime() float64   { return e.inst.maxOpTime }

func (e *Env) NextOpIndex(job int) int { return e.nextOp[job] }
func (e *Env) NumOps(job int) int      { return len(e.inst.Ops[job]) }

func (e *Env) Operation(job, op int) Op { return e.inst.Ops[job][op] }

func (e *Env) NeededMachine(job int) int {
	if e.nextOp[job] >= len(e.inst.Ops[job]) {
		return -1
	}
	return e.inst.Ops[job][e.nextOp[job]].Machine
}

func (e *Env) MachineFreeIn(machine int) float64 {
	if d := e.machineFreeAt[machine] - e.now; d > 0 {
		return d
	}
	return 0
}
