package compare

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/shopsim/jobshop/sched"
	"github.com/shopsim/jobshop/sched/controller"
)

// ScheduleStats is the downstream analysis of one realized schedule.
type ScheduleStats struct {
	TotalTasks          int
	TotalProcessingTime float64
	Makespan            float64
	OverallEfficiency   float64 // busy time / makespan, percent

	MachineUsage    map[int]float64 // percent of makespan busy
	MachineIdleTime map[int]float64 // gaps between consecutive tasks

	PeopleUsage    map[int]float64 // percent of makespan busy
	PeopleWorkload map[int]int     // task count per person

	JobCompletionTimes map[int]float64

	// Controller efficiency, populated when a controller table is supplied.
	CombinationsUsed     int
	CombinationsPossible int
	BottleneckPeople     []int
	UnusedPeople         []int
}

// AnalyzeSchedule derives utilization and workload statistics from a
// schedule. ctrl may be nil for schedules without workforce data.
func AnalyzeSchedule(schedule []sched.ScheduledTask, makespan float64, ctrl controller.Controller) ScheduleStats {
	st := ScheduleStats{
		TotalTasks:         len(schedule),
		Makespan:           makespan,
		MachineUsage:       map[int]float64{},
		MachineIdleTime:    map[int]float64{},
		PeopleUsage:        map[int]float64{},
		PeopleWorkload:     map[int]int{},
		JobCompletionTimes: map[int]float64{},
	}
	if len(schedule) == 0 {
		return st
	}

	byMachine := map[int][]sched.ScheduledTask{}
	for _, t := range schedule {
		st.TotalProcessingTime += t.End - t.Start
		byMachine[t.Machine] = append(byMachine[t.Machine], t)
		if t.Person >= 0 {
			st.PeopleWorkload[t.Person]++
			st.PeopleUsage[t.Person] += t.End - t.Start
		}
		if t.End > st.JobCompletionTimes[t.Job] {
			st.JobCompletionTimes[t.Job] = t.End
		}
	}
	if makespan > 0 {
		st.OverallEfficiency = st.TotalProcessingTime / makespan * 100
	}

	for machine, tasks := range byMachine {
		sort.Slice(tasks, func(i, j int) bool { return tasks[i].Start < tasks[j].Start })
		busy := 0.0
		idle := 0.0
		for i, t := range tasks {
			busy += t.End - t.Start
			if i > 0 {
				if gap := t.Start - tasks[i-1].End; gap > 0 {
					idle += gap
				}
			}
		}
		if makespan > 0 {
			st.MachineUsage[machine] = busy / makespan * 100
		}
		st.MachineIdleTime[machine] = idle
	}
	for person, busy := range st.PeopleUsage {
		if makespan > 0 {
			st.PeopleUsage[person] = busy / makespan * 100
		}
	}

	if ctrl != nil {
		combinations := map[[2]int]bool{}
		for _, t := range schedule {
			if t.Person >= 0 {
				combinations[[2]int{t.Person, t.Machine}] = true
			}
		}
		st.CombinationsUsed = len(combinations)
		for _, machines := range ctrl {
			st.CombinationsPossible += len(machines)
		}

		totalTasks := 0
		for _, n := range st.PeopleWorkload {
			totalTasks += n
		}
		if len(st.PeopleWorkload) > 0 {
			avg := float64(totalTasks) / float64(len(st.PeopleWorkload))
			for _, p := range ctrl.People() {
				if float64(st.PeopleWorkload[p]) > avg*1.5 {
					st.BottleneckPeople = append(st.BottleneckPeople, p)
				}
				if st.PeopleWorkload[p] == 0 {
					st.UnusedPeople = append(st.UnusedPeople, p)
				}
			}
		}
	}
	return st
}

// ReportConfig names the inputs echoed at the top of a report.
type ReportConfig struct {
	AgentName      string
	InstancePath   string
	ControllerPath string
	NumPeople      int
}

// WriteReport renders the plain-text performance report for one episode.
func WriteReport(w io.Writer, cfg ReportConfig, makespan, totalReward float64, st ScheduleStats) {
	line := func(format string, args ...interface{}) { fmt.Fprintf(w, format+"\n", args...) }
	rule := func() { line("----------------------------------------") }

	line("================================================================")
	line("CONTROLLER SCHEDULING PERFORMANCE REPORT")
	line("================================================================")
	line("Generated: %s", time.Now().Format("2006-01-02 15:04:05"))
	line("Agent: %s", cfg.AgentName)
	line("")

	line("CONFIGURATION")
	rule()
	line("Instance: %s", cfg.InstancePath)
	line("Controller: %s", cfg.ControllerPath)
	line("Number of People: %d", cfg.NumPeople)
	line("")

	line("PERFORMANCE SUMMARY")
	rule()
	line("Makespan: %.2f time units", makespan)
	line("Total Reward: %.2f", totalReward)
	line("Total Tasks Scheduled: %d", st.TotalTasks)
	line("Overall Efficiency: %.2f%%", st.OverallEfficiency)
	line("")

	line("RESOURCE UTILIZATION")
	rule()
	line("Machines Used: %d", len(st.MachineUsage))
	line("People Used: %d", len(st.PeopleWorkload))
	line("")

	if len(st.MachineUsage) > 0 {
		line("MACHINE UTILIZATION DETAILS")
		rule()
		for _, m := range sortedKeys(st.MachineUsage) {
			line("Machine %2d: %6.2f%% utilization (idle: %.2f)", m, st.MachineUsage[m], st.MachineIdleTime[m])
		}
		line("")
	}

	if len(st.PeopleUsage) > 0 {
		line("PEOPLE UTILIZATION DETAILS")
		rule()
		for _, p := range sortedKeys(st.PeopleUsage) {
			line("Person %2d: %6.2f%% utilization (%d tasks)", p, st.PeopleUsage[p], st.PeopleWorkload[p])
		}
		line("")
	}

	if st.CombinationsPossible > 0 {
		line("CONTROLLER EFFICIENCY ANALYSIS")
		rule()
		line("Person-Machine Combinations Used: %d", st.CombinationsUsed)
		line("Total Possible Combinations: %d", st.CombinationsPossible)
		line("Combination Utilization Rate: %.2f%%",
			float64(st.CombinationsUsed)/float64(st.CombinationsPossible)*100)
		if len(st.BottleneckPeople) > 0 {
			line("Bottleneck People (overutilized): %v", st.BottleneckPeople)
		}
		if len(st.UnusedPeople) > 0 {
			line("Unused People: %v", st.UnusedPeople)
		}
		line("")
	}

	if len(st.JobCompletionTimes) > 0 {
		line("JOB COMPLETION ANALYSIS")
		rule()
		times := make([]float64, 0, len(st.JobCompletionTimes))
		for _, t := range st.JobCompletionTimes {
			times = append(times, t)
		}
		avg, _ := meanStd(times)
		min, max := minMax(times)
		line("Average Job Completion Time: %.2f", avg)
		line("Earliest Job Completion: %.2f", min)
		line("Latest Job Completion: %.2f", max)
		line("")
	}

	line("================================================================")
	line("END OF REPORT")
	line("================================================================")
}

// scheduleColumns is the flat export layout shared by CSV and JSON.
var scheduleColumns = []string{"Job_ID", "Machine_ID", "Start_Time", "End_Time", "Person_ID"}

// WriteScheduleCSV exports the schedule with one row per task.
func WriteScheduleCSV(w io.Writer, schedule []sched.ScheduledTask) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(scheduleColumns); err != nil {
		return errors.Wrap(err, "writing schedule header")
	}
	for _, t := range schedule {
		row := []string{
			strconv.Itoa(t.Job),
			strconv.Itoa(t.Machine),
			strconv.FormatFloat(t.Start, 'f', -1, 64),
			strconv.FormatFloat(t.End, 'f', -1, 64),
			strconv.Itoa(t.Person),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "writing schedule row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing schedule csv")
}

// WriteScheduleJSON exports the schedule as a JSON array of task objects.
func WriteScheduleJSON(w io.Writer, schedule []sched.ScheduledTask) error {
	type jsonTask struct {
		JobID     int     `json:"Job_ID"`
		MachineID int     `json:"Machine_ID"`
		StartTime float64 `json:"Start_Time"`
		EndTime   float64 `json:"End_Time"`
		PersonID  int     `json:"Person_ID"`
	}
	tasks := make([]jsonTask, len(schedule))
	for i, t := range schedule {
		tasks[i] = jsonTask{t.Job, t.Machine, t.Start, t.End, t.Person}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(tasks), "encoding schedule json")
}

// WriteResultsCSV exports per-episode results for every policy.
func WriteResultsCSV(w io.Writer, results []PolicyResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Method", "Episode", "Makespan", "Reward"}); err != nil {
		return errors.Wrap(err, "writing results header")
	}
	for _, r := range results {
		for i := range r.Metrics.Makespans {
			row := []string{
				r.Name,
				strconv.Itoa(i + 1),
				strconv.FormatFloat(r.Metrics.Makespans[i], 'f', -1, 64),
				strconv.FormatFloat(r.Metrics.Rewards[i], 'f', -1, 64),
			}
			if err := cw.Write(row); err != nil {
				return errors.Wrap(err, "writing results row")
			}
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing results csv")
}

func sortedKeys(m map[int]float64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
