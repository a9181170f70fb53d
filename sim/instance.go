package sim

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Op is one operation of a job: the machine it must run on and how long it
// holds that machine.
type Op struct {
	Machine  int
	Duration float64
}

// Instance is an immutable job shop problem definition. Jobs are identified
// by index; each job is an ordered list of operations.
type Instance struct {
	NumJobs     int
	NumMachines int
	Ops         [][]Op

	maxOpTime float64
	totalOps  int
}

// NewInstance builds an instance from in-memory operation lists, for callers
// that construct problems programmatically rather than parsing a file.
func NewInstance(ops [][]Op, numMachines int) *Instance {
	inst := &Instance{NumJobs: len(ops), NumMachines: numMachines, Ops: ops}
	for _, jobOps := range ops {
		inst.totalOps += len(jobOps)
		for _, op := range jobOps {
			if op.Duration > inst.maxOpTime {
				inst.maxOpTime = op.Duration
			}
		}
	}
	return inst
}

// MaxOpTime returns the largest single operation duration in the instance,
// used as the normalizer for the scoring heuristics.
func (inst *Instance) MaxOpTime() float64 { return inst.maxOpTime }

// TotalOps returns the number of operations summed over all jobs.
func (inst *Instance) TotalOps() int { return inst.totalOps }

// MachinesUsed returns the set of machine ids that appear in the instance.
func (inst *Instance) MachinesUsed() map[int]bool {
	used := map[int]bool{}
	for _, ops := range inst.Ops {
		for _, op := range ops {
			used[op.Machine] = true
		}
	}
	return used
}

// ParseInstance reads the standard benchmark format: a header line
// "{jobs} {machines}" followed by one line per job holding alternating
// (machine, duration) pairs in the job's required operation order.
func ParseInstance(r io.Reader) (*Instance, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	header, err := nextFields(scanner)
	if err != nil {
		return nil, errors.Wrap(err, "reading instance header")
	}
	if len(header) != 2 {
		return nil, errors.Errorf("instance header must be \"jobs machines\", got %d fields", len(header))
	}
	numJobs, numMachines := header[0], header[1]
	if numJobs <= 0 || numMachines <= 0 {
		return nil, errors.Errorf("instance must have positive job and machine counts, got %d jobs %d machines", numJobs, numMachines)
	}

	inst := &Instance{NumJobs: numJobs, NumMachines: numMachines}
	for j := 0; j < numJobs; j++ {
		fields, err := nextFields(scanner)
		if err != nil {
			return nil, errors.Wrapf(err, "reading job %d", j)
		}
		if len(fields)%2 != 0 || len(fields) == 0 {
			return nil, errors.Errorf("job %d: expected (machine, duration) pairs, got %d fields", j, len(fields))
		}
		ops := make([]Op, 0, len(fields)/2)
		for i := 0; i < len(fields); i += 2 {
			machine, duration := fields[i], fields[i+1]
			if machine < 0 || machine >= numMachines {
				return nil, errors.Errorf("job %d op %d: machine %d out of range [0,%d)", j, i/2, machine, numMachines)
			}
			if duration < 0 {
				return nil, errors.Errorf("job %d op %d: negative duration %d", j, i/2, duration)
			}
			d := float64(duration)
			if d > inst.maxOpTime {
				inst.maxOpTime = d
			}
			ops = append(ops, Op{Machine: machine, Duration: d})
		}
		inst.Ops = append(inst.Ops, ops)
		inst.totalOps += len(ops)
	}
	return inst, nil
}

// LoadInstance parses the instance file at the given path.
func LoadInstance(path string) (*Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening instance %s", path)
	}
	defer f.Close()
	inst, err := ParseInstance(f)
	return inst, errors.Wrapf(err, "parsing instance %s", path)
}

// nextFields returns the integer fields of the next non-empty line.
func nextFields(scanner *bufio.Scanner) ([]int, error) {
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		raw := strings.Fields(line)
		fields := make([]int, len(raw))
		for i, s := range raw {
			v, err := strconv.Atoi(s)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing field %q", s)
			}
			fields[i] = v
		}
		return fields, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, errors.New("unexpected end of file")
}
