package main

import (
	"os"
	"path/filepath"

	uuid "github.com/nu7hatch/gouuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shopsim/jobshop/common/stats"
	"github.com/shopsim/jobshop/compare"
	"github.com/shopsim/jobshop/runner"
	"github.com/shopsim/jobshop/sched/controller"
	"github.com/shopsim/jobshop/sim"
)

type runCmd struct {
	instancePath   string
	controllerPath string
	numPeople      int
	outDir         string
}

func (c *runCmd) registerFlags() *cobra.Command {
	r := &cobra.Command{
		Use:   "run",
		Short: "run one controller-constrained scheduling episode",
	}
	r.Flags().StringVar(&c.instancePath, "instance", "", "instance file path")
	r.Flags().StringVar(&c.controllerPath, "controller", "", "controller file path")
	r.Flags().IntVar(&c.numPeople, "people", 0, "number of people to use (0 = all in the controller file)")
	r.Flags().StringVar(&c.outDir, "out", "results", "output directory root")
	return r
}

func (c *runCmd) run(cmd *cobra.Command, args []string) error {
	if c.instancePath == "" || c.controllerPath == "" {
		return errors.New("--instance and --controller are required")
	}

	inst, err := sim.LoadInstance(c.instancePath)
	if err != nil {
		return err
	}
	ctrl, err := controller.LoadController(c.controllerPath)
	if err != nil {
		return err
	}
	ctrl = ctrl.Limit(c.numPeople)
	if err := ctrl.Validate(inst); err != nil {
		return err
	}

	stat := stats.DefaultStatsReceiver()
	agent := controller.New(ctrl, c.numPeople, stat.Scope("controller"))
	env := sim.NewEnv(inst)

	log.WithFields(log.Fields{
		"instance":   c.instancePath,
		"controller": c.controllerPath,
		"people":     len(ctrl),
	}).Info("Running constrained scheduling episode")

	res, err := runner.RunEpisode(env, agent, runner.Options{Stat: stat.Scope("runner")})
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"makespan": res.Makespan,
		"reward":   res.TotalReward,
		"tasks":    len(res.Schedule),
		"execTime": res.ExecTime,
	}).Info("Episode complete")

	runID, err := uuid.NewV4()
	if err != nil {
		return errors.Wrap(err, "generating run id")
	}
	dir := filepath.Join(c.outDir, runID.String())
	if err := os.MkdirAll(dir, 0777); err != nil {
		return errors.Wrapf(err, "creating result dir %s", dir)
	}

	st := compare.AnalyzeSchedule(res.Schedule, res.Makespan, ctrl)
	cfg := compare.ReportConfig{
		AgentName:      agent.Name(),
		InstancePath:   c.instancePath,
		ControllerPath: c.controllerPath,
		NumPeople:      len(ctrl),
	}
	if err := writeFile(filepath.Join(dir, "report.txt"), func(f *os.File) error {
		compare.WriteReport(f, cfg, res.Makespan, res.TotalReward, st)
		return nil
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "schedule.csv"), func(f *os.File) error {
		return compare.WriteScheduleCSV(f, res.Schedule)
	}); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, "schedule.json"), func(f *os.File) error {
		return compare.WriteScheduleJSON(f, res.Schedule)
	}); err != nil {
		return err
	}

	log.WithFields(log.Fields{"dir": dir}).Info("Results written")
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}
	defer f.Close()
	return write(f)
}
