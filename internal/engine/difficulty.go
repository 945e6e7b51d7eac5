package engine

// AdjustDifficulty nudges difficulty to keep the learner inside the target
// success band: accuracy above the high-water mark raises difficulty one
// step, below the low-water mark lowers it one step.
func AdjustDifficulty(current, emaAccuracy float64, p Params) float64 {
	switch {
	case emaAccuracy > p.AccuracyRaiseAbove:
		current += p.DifficultyStep
	case emaAccuracy < p.AccuracyLowerBelow:
		current -= p.DifficultyStep
	}
	return clampFloat(current, p.DifficultyMin, p.DifficultyMax)
}
