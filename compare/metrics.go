package compare

import "math"

// Metrics accumulates per-episode results for one policy. Append-only during
// the episode loop, read-only once summarized.
type Metrics struct {
	Makespans []float64
	Rewards   []float64
	ExecTimes []float64
}

func (m *Metrics) AddEpisode(makespan, reward, execTimeSec float64) {
	m.Makespans = append(m.Makespans, makespan)
	m.Rewards = append(m.Rewards, reward)
	m.ExecTimes = append(m.ExecTimes, execTimeSec)
}

// Summary is the derived per-policy aggregate.
type Summary struct {
	Episodes int

	AvgMakespan float64
	StdMakespan float64
	MinMakespan float64
	MaxMakespan float64

	AvgReward float64
	StdReward float64

	AvgExecTimeSec float64
}

func (m *Metrics) Summary() Summary {
	if len(m.Makespans) == 0 {
		return Summary{}
	}
	s := Summary{Episodes: len(m.Makespans)}
	s.AvgMakespan, s.StdMakespan = meanStd(m.Makespans)
	s.MinMakespan, s.MaxMakespan = minMax(m.Makespans)
	s.AvgReward, s.StdReward = meanStd(m.Rewards)
	s.AvgExecTimeSec, _ = meanStd(m.ExecTimes)
	return s
}

func meanStd(xs []float64) (mean, std float64) {
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		std += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(std / float64(len(xs)))
}

func minMax(xs []float64) (min, max float64) {
	min, max = xs[0], xs[0]
	for _, x := range xs[1:] {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	return min, max
}
