package engine

// EMA applies one exponential-moving-average step: alpha weights the new
// observation, (1-alpha) the running average.
func EMA(current, value, alpha float64) float64 {
	return alpha*value + (1-alpha)*current
}
