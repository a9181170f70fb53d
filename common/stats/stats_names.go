package stats

/*
This file defines all the metrics being collected. As new metrics are added
please follow this pattern.
*/

const (
	/************************* Scheduling Metrics *************************/

	/*
		latency of a single controller agent decision
	*/
	SchedDecisionLatency_ms = "decisionLatency_ms"

	/*
		the number of job dispatches returned by the controller agent
	*/
	SchedDispatchCounter = "dispatchCounter"

	/*
		the number of no-op (wait) actions returned by the controller agent
	*/
	SchedNoOpCounter = "noOpCounter"

	/*
		the number of times the forced-progress safety valve selected a job
		because the feasibility pass produced no candidates
	*/
	SchedForcedProgressCounter = "forcedProgressCounter"

	/*
		the number of deliberate load-balancing deferrals (high person
		utilization with a short expected wait)
	*/
	SchedDeferredCounter = "deferredCounter"

	/*
		the number of legality-mask size mismatches observed (environment and
		agent desync; the agent answers with a no-op)
	*/
	SchedDesyncCounter = "desyncCounter"

	/*
		the number of schedule records that had to be synthesized because the
		environment advanced an operation without a matching assignment
	*/
	SchedRecoveredTaskCounter = "recoveredTaskCounter"

	/*
		the number of currently active person assignments
	*/
	SchedActiveAssignmentsGauge = "activeAssignmentsGauge"

	/************************* Episode Runner Metrics *************************/

	/*
		wall-clock latency of one full episode
	*/
	RunnerEpisodeLatency_ms = "episodeLatency_ms"

	/*
		the number of episodes that tripped the iteration safety cap
	*/
	RunnerIterationCapCounter = "iterationCapCounter"

	/*
		the number of agent actions the runner downgraded to a no-op because
		they were illegal, out of range, or aimed at a completed job
	*/
	RunnerDowngradedActionCounter = "downgradedActionCounter"

	/************************* Comparison Metrics *************************/

	/*
		the number of episodes completed across all evaluated policies
	*/
	CompareEpisodesCounter = "episodesCounter"

	/*
		the number of policies whose evaluation aborted with a fatal error
	*/
	CompareFailedPoliciesCounter = "failedPoliciesCounter"
)
