package sched

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/shopsim/jobshop/sim"
)

// DispatchingRules lists the classic rule names the comparison framework
// evaluates alongside the scoring agents.
var DispatchingRules = []string{"SPT", "FIFO", "MWR", "LWR", "MOR", "LOR", "CR"}

// RuleAgent is a stateless dispatching rule: among legal jobs it picks the
// one minimizing its rule-specific key, ties broken by lowest job index.
type RuleAgent struct {
	name string
	key  func(env sim.Environment, job int) float64
}

// NewRuleAgent returns the named dispatching rule.
func NewRuleAgent(name string) (*RuleAgent, error) {
	switch name {
	case "SPT":
		// Shortest processing time of the current operation.
		return &RuleAgent{name, func(env sim.Environment, j int) float64 {
			return env.Operation(j, env.NextOpIndex(j)).Duration
		}}, nil
	case "FIFO":
		// Static instances have no arrival times; job order stands in for it.
		return &RuleAgent{name, func(env sim.Environment, j int) float64 {
			return float64(j)
		}}, nil
	case "MWR":
		return &RuleAgent{name, func(env sim.Environment, j int) float64 {
			return -remainingWork(env, j)
		}}, nil
	case "LWR":
		return &RuleAgent{name, func(env sim.Environment, j int) float64 {
			return remainingWork(env, j)
		}}, nil
	case "MOR":
		return &RuleAgent{name, func(env sim.Environment, j int) float64 {
			return -float64(env.NumOps(j) - env.NextOpIndex(j))
		}}, nil
	case "LOR":
		return &RuleAgent{name, func(env sim.Environment, j int) float64 {
			return float64(env.NumOps(j) - env.NextOpIndex(j))
		}}, nil
	case "CR":
		// Critical ratio: remaining work per remaining operation, most
		// loaded first.
		return &RuleAgent{name, func(env sim.Environment, j int) float64 {
			remOps := env.NumOps(j) - env.NextOpIndex(j)
			if remOps == 0 {
				return 0
			}
			return -remainingWork(env, j) / float64(remOps)
		}}, nil
	}
	return nil, errors.Errorf("unknown dispatching rule %q", name)
}

func (a *RuleAgent) Name() string { return a.name }

func (a *RuleAgent) Act(env sim.Environment, obs sim.Observation) (int, error) {
	mask := sim.Legal(env, obs)
	jobs := legalJobs(env, mask)
	if len(jobs) == 0 {
		return fallbackAction(env, mask), nil
	}
	best := jobs[0]
	bestKey := a.key(env, jobs[0])
	for _, job := range jobs[1:] {
		if k := a.key(env, job); k < bestKey {
			best, bestKey = job, k
		}
	}
	return best, nil
}

// RandomAgent is the uniform baseline over all legal actions (including the
// no-op when legal).
type RandomAgent struct {
	rng *rand.Rand
}

func NewRandomAgent(rng *rand.Rand) *RandomAgent { return &RandomAgent{rng: rng} }

func (a *RandomAgent) Name() string { return "Random" }

func (a *RandomAgent) Act(env sim.Environment, obs sim.Observation) (int, error) {
	mask := sim.Legal(env, obs)
	legal := []int{}
	for i, ok := range mask {
		if ok {
			legal = append(legal, i)
		}
	}
	if len(legal) == 0 {
		return 0, nil
	}
	return legal[a.rng.Intn(len(legal))], nil
}
