// Package controller implements the resource-constrained scheduling agent:
// on top of the machine pool managed by the environment it allocates a
// scarce, qualification-restricted workforce, guaranteeing scheduling
// progress while both pools are contended.
package controller

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/errors"

	"github.com/shopsim/jobshop/sim"
)

// Controller maps a person id to the set of machine ids that person is
// qualified to operate. The mapping is fixed for the life of an episode.
type Controller map[int][]int

// ParseController reads a controller file. Two conventions exist in the
// wild and both are supported behind an explicit detection rule:
//
//   - header format: the first line is "{people} {machines}" and each of the
//     following {people} lines is one person's qualification list; people are
//     numbered 1..{people} in line order. Detected when the first line has
//     exactly two fields, the machine count is positive, exactly {people}
//     lines follow, and every id on those lines is within [0, machines).
//   - id format: every line, including the first, is
//     "{person_id} {machine_id} ...".
func ParseController(r io.Reader) (Controller, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var lines [][]int
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		raw := strings.Fields(text)
		fields := make([]int, len(raw))
		for i, s := range raw {
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, errors.Wrapf(err, "controller line %d: parsing %q", len(lines)+1, s)
			}
			fields[i] = v
		}
		lines = append(lines, fields)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading controller file")
	}
	if len(lines) == 0 {
		return nil, errors.New("controller file is empty")
	}

	ctrl := Controller{}
	if headerFormat(lines) {
		for i, fields := range lines[1:] {
			ctrl[i+1] = append([]int{}, fields...)
		}
		return ctrl, nil
	}

	for i, fields := range lines {
		if len(fields) < 2 {
			return nil, errors.Errorf("controller line %d: expected \"person_id machine...\", got %d fields", i+1, len(fields))
		}
		person := fields[0]
		if _, ok := ctrl[person]; ok {
			return nil, errors.Errorf("controller line %d: duplicate person id %d", i+1, person)
		}
		ctrl[person] = append([]int{}, fields[1:]...)
	}
	return ctrl, nil
}

// headerFormat reports whether the parsed lines match the header convention:
// a "{people} {machines}" first line with a positive machine count, exactly
// {people} following lines, and every id on those lines a valid machine.
// Anything else falls through to the id format, so an id-format file whose
// first person happens to list one machine is not misread as a header.
func headerFormat(lines [][]int) bool {
	if len(lines[0]) != 2 {
		return false
	}
	people, machines := lines[0][0], lines[0][1]
	if machines <= 0 || len(lines)-1 != people {
		return false
	}
	for _, fields := range lines[1:] {
		for _, m := range fields {
			if m < 0 || m >= machines {
				return false
			}
		}
	}
	return true
}

// LoadController parses the controller file at the given path.
func LoadController(path string) (Controller, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening controller %s", path)
	}
	defer f.Close()
	ctrl, err := ParseController(f)
	return ctrl, errors.Wrapf(err, "parsing controller %s", path)
}

// People returns the person ids in ascending order.
func (c Controller) People() []int {
	people := make([]int, 0, len(c))
	for p := range c {
		people = append(people, p)
	}
	sort.Ints(people)
	return people
}

// Limit returns a controller restricted to the n lowest person ids; the
// original is returned unchanged when n covers everyone or is non-positive.
func (c Controller) Limit(n int) Controller {
	if n <= 0 || n >= len(c) {
		return c
	}
	limited := Controller{}
	for _, p := range c.People()[:n] {
		limited[p] = c[p]
	}
	return limited
}

// Qualified returns the person ids qualified for the machine, ascending.
func (c Controller) Qualified(machine int) []int {
	people := []int{}
	for _, p := range c.People() {
		for _, m := range c[p] {
			if m == machine {
				people = append(people, p)
				break
			}
		}
	}
	return people
}

// Validate checks that every machine the instance uses has at least one
// qualified person. A machine with none makes the scheduling problem
// infeasible as configured, which is a fatal configuration error.
func (c Controller) Validate(inst *sim.Instance) error {
	used := inst.MachinesUsed()
	machines := make([]int, 0, len(used))
	for m := range used {
		machines = append(machines, m)
	}
	sort.Ints(machines)
	for _, m := range machines {
		if len(c.Qualified(m)) == 0 {
			return &CoverageError{Machine: m, Table: c}
		}
	}
	return nil
}

// CoverageError reports a machine with no qualified people at all. It aborts
// the episode: continuing would silently produce an infeasible schedule.
type CoverageError struct {
	Machine int
	Table   Controller
}

func (e *CoverageError) Error() string {
	return fmt.Sprintf("controller configuration error: no people qualified for machine %d; people: %v, table: %s",
		e.Machine, e.Table.People(), spew.Sdump(map[int][]int(e.Table)))
}
