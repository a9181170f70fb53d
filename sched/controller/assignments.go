package controller

import (
	log "github.com/sirupsen/logrus"
)

// assignment marks one person as occupied until endTime servicing a job on a
// machine.
type assignment struct {
	machine int
	job     int
	endTime float64
}

// assignmentTable is the agent-owned side table of active person
// assignments. It persists across the whole episode, independent of
// environment state. At most one active assignment exists per person: a
// person stays unavailable while their assignment endTime exceeds the query
// time, and expired entries are dropped lazily at the start of each
// decision.
type assignmentTable struct {
	byPerson  map[int]assignment
	numPeople int
}

func newAssignmentTable(numPeople int) *assignmentTable {
	return &assignmentTable{byPerson: map[int]assignment{}, numPeople: numPeople}
}

func (t *assignmentTable) reset() {
	t.byPerson = map[int]assignment{}
}

// expire removes assignments that have run out by now.
func (t *assignmentTable) expire(now float64) {
	for person, a := range t.byPerson {
		if a.endTime <= now {
			delete(t.byPerson, person)
		}
	}
	if len(t.byPerson) > t.numPeople {
		log.WithFields(log.Fields{
			"assignments": len(t.byPerson),
			"people":      t.numPeople,
		}).Warn("More active assignments than people")
	}
}

// availableAt returns the earliest time the person can take new work.
func (t *assignmentTable) availableAt(person int, now float64) float64 {
	a, ok := t.byPerson[person]
	if !ok || a.endTime <= now {
		return now
	}
	return a.endTime
}

// commit books the person through a.endTime. The previous entry, if any, is
// replaced; callers only commit people whose availability they just checked.
func (t *assignmentTable) commit(person int, a assignment) {
	t.byPerson[person] = a
}

// lookup finds the person currently booked for the given job on the given
// machine.
func (t *assignmentTable) lookup(job, machine int) (int, bool) {
	for person, a := range t.byPerson {
		if a.job == job && a.machine == machine {
			return person, true
		}
	}
	return 0, false
}

// utilization returns the busy fraction of the workforce and the mean
// remaining wait until people free up, both over the configured headcount.
func (t *assignmentTable) utilization(now float64) (busyFraction, avgWait float64) {
	if t.numPeople == 0 {
		return 0, 0
	}
	busy := 0
	totalWait := 0.0
	for _, a := range t.byPerson {
		if a.endTime > now {
			busy++
			totalWait += a.endTime - now
		}
	}
	return float64(busy) / float64(t.numPeople), totalWait / float64(t.numPeople)
}

func (t *assignmentTable) active() int {
	return len(t.byPerson)
}

// earliestQualified finds the qualified person with the smallest
// availability for the machine; ties go to the lowest person id because
// Qualified iterates ascending. ok is false only when no person is
// structurally qualified for the machine.
func earliestQualified(ctrl Controller, t *assignmentTable, machine int, now float64) (person int, availableAt float64, ok bool) {
	first := true
	for _, p := range ctrl.Qualified(machine) {
		at := t.availableAt(p, now)
		if first || at < availableAt {
			person, availableAt, first = p, at, false
		}
	}
	return person, availableAt, !first
}
