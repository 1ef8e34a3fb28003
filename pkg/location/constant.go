package location

const (
	LIVE_ACCURACY_THRESHOLD   = 150.0 // meter
	LIVE_NOISE_GATE_FACTOR    = 0.3
	MAX_LOCATIONS             = 64000
	COURSE_ACCURACY_THRESHOLD = 10.0 // meter
	MATCHING_THRESHOLD        = 10.0 // meter
	MIN_SECONDS_EVAL          = 3.0
	HISTORY_MATCH_TOLERANCE   = 1.0 // meter, restoring a course cursor from exported waypoints
)

const (
	LIVE_PROCESSOR_NAME   = "GPS"
	COURSE_PROCESSOR_NAME = "Co"
)

// LiveConfig. thresholds of the free ride processor
type LiveConfig struct {
	AccuracyThreshold float64 // fixes with a worse accuracy radius are discarded
	NoiseGateFactor   float64 // displacement*factor must reach the accuracy radius
	MinSecondsEval    float64
	HistoryCapacity   int
}

func DefaultLiveConfig() LiveConfig {
	return LiveConfig{
		AccuracyThreshold: LIVE_ACCURACY_THRESHOLD,
		NoiseGateFactor:   LIVE_NOISE_GATE_FACTOR,
		MinSecondsEval:    MIN_SECONDS_EVAL,
		HistoryCapacity:   MAX_LOCATIONS,
	}
}

// CourseConfig. thresholds of the course processor
type CourseConfig struct {
	AccuracyThreshold float64
	MatchingThreshold float64 // max distance between a fix and the waypoint it is matched to
	MinSecondsEval    float64
}

func DefaultCourseConfig() CourseConfig {
	return CourseConfig{
		AccuracyThreshold: COURSE_ACCURACY_THRESHOLD,
		MatchingThreshold: MATCHING_THRESHOLD,
		MinSecondsEval:    MIN_SECONDS_EVAL,
	}
}
