// Package compare evaluates scheduling policies over repeated episodes and
// aggregates their performance.
package compare

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"

	"github.com/shopsim/jobshop/common/stats"
	"github.com/shopsim/jobshop/runner"
	"github.com/shopsim/jobshop/sched"
	"github.com/shopsim/jobshop/sim"
)

// Policy names one evaluation participant. NewAgent is called once per
// episode so each episode gets a fresh agent (agents carry per-episode
// mutable state and are not shareable).
type Policy struct {
	Name     string
	NewAgent func() (sched.Agent, error)
}

// PolicyResult is the outcome of evaluating one policy. Err is set when the
// evaluation aborted (fatal configuration error); Metrics holds whatever
// episodes completed before that.
type PolicyResult struct {
	Name    string
	Metrics Metrics
	Summary Summary
	Err     error
}

// Framework runs N episodes per policy against environments produced by
// NewEnv. Policies are evaluated in parallel, each in its own goroutine with
// its own environment, agent, and metrics; no mutable state crosses episode
// boundaries. A policy failing fatally does not stop the others.
type Framework struct {
	NewEnv   func() (sim.Environment, error)
	Episodes int
	Stat     stats.StatsReceiver
}

// Run evaluates all policies. Cancellation is checked between episodes, not
// mid-decision. Results come back sorted by average makespan (failed
// policies last), ties broken by name, so repeated invocations with the same
// seeds produce the same ranking.
func (f *Framework) Run(ctx context.Context, policies []Policy) []PolicyResult {
	stat := f.Stat
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}

	results := make([]PolicyResult, len(policies))
	var wg sync.WaitGroup
	for i, p := range policies {
		wg.Add(1)
		go func(i int, p Policy) {
			defer wg.Done()
			results[i] = f.evaluate(ctx, p, stat)
		}(i, p)
	}
	wg.Wait()

	sort.SliceStable(results, func(i, j int) bool {
		ri, rj := results[i], results[j]
		if (ri.Err == nil) != (rj.Err == nil) {
			return ri.Err == nil
		}
		if ri.Summary.AvgMakespan != rj.Summary.AvgMakespan {
			return ri.Summary.AvgMakespan < rj.Summary.AvgMakespan
		}
		return ri.Name < rj.Name
	})
	return results
}

func (f *Framework) evaluate(ctx context.Context, p Policy, stat stats.StatsReceiver) PolicyResult {
	res := PolicyResult{Name: p.Name}
	log.WithFields(log.Fields{"policy": p.Name, "episodes": f.Episodes}).Info("Evaluating policy")

	for episode := 0; episode < f.Episodes; episode++ {
		select {
		case <-ctx.Done():
			res.Err = ctx.Err()
			res.Summary = res.Metrics.Summary()
			return res
		default:
		}

		env, err := f.NewEnv()
		if err != nil {
			res.Err = err
			break
		}
		agent, err := p.NewAgent()
		if err != nil {
			res.Err = err
			break
		}

		episodeRes, err := runner.RunEpisode(env, agent, runner.Options{Stat: stat.Scope(p.Name)})
		if err != nil {
			// Fatal configuration errors abort this policy only; the other
			// policies keep running.
			stat.Counter(stats.CompareFailedPoliciesCounter).Inc(1)
			log.WithFields(log.Fields{
				"policy": p.Name,
				"err":    err,
			}).Error("Policy evaluation aborted")
			res.Err = err
			break
		}
		stat.Counter(stats.CompareEpisodesCounter).Inc(1)
		res.Metrics.AddEpisode(episodeRes.Makespan, episodeRes.TotalReward, episodeRes.ExecTime.Seconds())
	}

	res.Summary = res.Metrics.Summary()
	return res
}

// WriteSummary prints the ranked comparison table.
func WriteSummary(w io.Writer, results []PolicyResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Rank\tMethod\tAvg Makespan\tMin Makespan\tAvg Reward")
	for rank, r := range results {
		if r.Err != nil {
			fmt.Fprintf(tw, "%d\t%s\tFAILED: %s\t\t\n", rank+1, r.Name, errSummary(r.Err))
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%.2f\t%.2f\n",
			rank+1, r.Name, r.Summary.AvgMakespan, r.Summary.MinMakespan, r.Summary.AvgReward)
	}
	tw.Flush()
	for _, r := range results {
		if r.Err == nil {
			fmt.Fprintf(w, "\nBest performing method: %s (avg makespan %.2f)\n", r.Name, r.Summary.AvgMakespan)
			break
		}
	}
}

// errSummary keeps failure messages to a single table-safe line; multi-line
// diagnostics go to the log, not the summary.
func errSummary(err error) string {
	msg := err.Error()
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	if len(msg) > 120 {
		msg = msg[:117] + "..."
	}
	return msg
}
