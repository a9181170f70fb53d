package sim

// Observation is the normalized view of an environment snapshot handed to
// agents. Upstream environments expose either a structured object with an
// action-mask field or a raw feature array; this type always carries the
// legality mask and keeps any raw payload opaque.
type Observation struct {
	// ActionMask marks legal actions over {jobs ∪ no-op}; index Jobs() is
	// the no-op action. May be nil if the source observation had no mask.
	ActionMask []bool

	// Raw is the untyped feature payload, unused by the decision core.
	Raw []float64
}

// Legal returns the legality mask from the observation when present, falling
// back to querying the environment directly.
func Legal(env Environment, obs Observation) []bool {
	if obs.ActionMask != nil {
		return obs.ActionMask
	}
	return env.LegalActions()
}
