package sched

// Single source of truth for the heuristic weight tables. Both agents switch
// between three fixed regimes on the progress ratio; every vector sums to 1.0
// (verified by tests).

// Regime boundaries over the progress ratio.
const (
	earlyProgressBound = 0.3
	lateProgressBound  = 0.7
)

// PriorityWeights is the 6-term weight vector used by the priority-scoring
// agent.
type PriorityWeights struct {
	SPT            float64
	WorkRemaining  float64
	CriticalPath   float64
	MachineUtil    float64
	Bottleneck     float64
	FlowContinuity float64
}

func (w PriorityWeights) Sum() float64 {
	return w.SPT + w.WorkRemaining + w.CriticalPath + w.MachineUtil + w.Bottleneck + w.FlowContinuity
}

var (
	// Early stage: emphasize critical path and work remaining.
	priorityWeightsEarly = PriorityWeights{
		SPT: 0.15, WorkRemaining: 0.25, CriticalPath: 0.25,
		MachineUtil: 0.15, Bottleneck: 0.10, FlowContinuity: 0.10,
	}
	// Middle stage: balance all factors.
	priorityWeightsMiddle = PriorityWeights{
		SPT: 0.20, WorkRemaining: 0.20, CriticalPath: 0.15,
		MachineUtil: 0.20, Bottleneck: 0.15, FlowContinuity: 0.10,
	}
	// Late stage: emphasize SPT and machine availability.
	priorityWeightsLate = PriorityWeights{
		SPT: 0.30, WorkRemaining: 0.10, CriticalPath: 0.15,
		MachineUtil: 0.25, Bottleneck: 0.10, FlowContinuity: 0.10,
	}
)

// PriorityWeightsFor returns the weight vector for the given progress ratio.
func PriorityWeightsFor(progress float64) PriorityWeights {
	switch {
	case progress < earlyProgressBound:
		return priorityWeightsEarly
	case progress < lateProgressBound:
		return priorityWeightsMiddle
	default:
		return priorityWeightsLate
	}
}

// AllPriorityWeights lists every regime vector, for normalization checks.
func AllPriorityWeights() []PriorityWeights {
	return []PriorityWeights{priorityWeightsEarly, priorityWeightsMiddle, priorityWeightsLate}
}

// ControllerWeights is the 7-term weight vector used by the
// controller-constrained agent.
type ControllerWeights struct {
	SPT                float64
	WorkRemaining      float64
	WaitPenalty        float64
	MachineUtil        float64
	PersonAvailability float64
	CriticalPath       float64
	ResourceEfficiency float64
}

func (w ControllerWeights) Sum() float64 {
	return w.SPT + w.WorkRemaining + w.WaitPenalty + w.MachineUtil +
		w.PersonAvailability + w.CriticalPath + w.ResourceEfficiency
}

var (
	controllerWeightsEarly = ControllerWeights{
		SPT: 0.15, WorkRemaining: 0.25, WaitPenalty: 0.20, MachineUtil: 0.15,
		PersonAvailability: 0.10, CriticalPath: 0.10, ResourceEfficiency: 0.05,
	}
	controllerWeightsMiddle = ControllerWeights{
		SPT: 0.20, WorkRemaining: 0.20, WaitPenalty: 0.20, MachineUtil: 0.15,
		PersonAvailability: 0.15, CriticalPath: 0.05, ResourceEfficiency: 0.05,
	}
	controllerWeightsLate = ControllerWeights{
		SPT: 0.30, WorkRemaining: 0.15, WaitPenalty: 0.25, MachineUtil: 0.10,
		PersonAvailability: 0.10, CriticalPath: 0.05, ResourceEfficiency: 0.05,
	}
)

// ControllerWeightsFor returns the weight vector for the given progress ratio.
func ControllerWeightsFor(progress float64) ControllerWeights {
	switch {
	case progress < earlyProgressBound:
		return controllerWeightsEarly
	case progress < lateProgressBound:
		return controllerWeightsMiddle
	default:
		return controllerWeightsLate
	}
}

// AllControllerWeights lists every regime vector, for normalization checks.
func AllControllerWeights() []ControllerWeights {
	return []ControllerWeights{controllerWeightsEarly, controllerWeightsMiddle, controllerWeightsLate}
}
