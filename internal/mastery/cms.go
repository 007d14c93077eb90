package mastery

import "math"

// DefaultAvgTime is the per-concept baseline solve time in seconds.
const DefaultAvgTime = 90.0

const (
	accuracyWeight = 0.60
	timeWeight     = 0.25
	hintWeight     = 0.15

	// timeSlack stretches the baseline so that answering at the average
	// time still earns some time credit.
	timeSlack = 1.6
)

// Attempt holds the observable outcome of one answer.
type Attempt struct {
	Correct   bool
	TimeTaken float64 // seconds
	Retries   int
	HintUsed  bool
}

// Score computes the mastery score (CMS) of an attempt in [0, 1], rounded
// to four decimal places. avgTime <= 0 selects DefaultAvgTime.
func Score(a Attempt, avgTime float64) float64 {
	if avgTime <= 0 {
		avgTime = DefaultAvgTime
	}

	score := accuracyWeight*AccuracyScore(a.Correct, a.Retries) +
		timeWeight*TimeScore(a.TimeTaken, avgTime) +
		hintWeight*HintScore(a.HintUsed)

	return round4(clamp(score, 0, 1))
}

// AccuracyScore is full credit for a first-try correct answer and half
// credit for a correct answer after retries.
func AccuracyScore(correct bool, retries int) float64 {
	switch {
	case correct && retries <= 0:
		return 1.0
	case correct:
		return 0.5
	default:
		return 0.0
	}
}

// TimeScore decays linearly from 1 at zero seconds to 0 at 1.6x avgTime.
func TimeScore(timeTaken, avgTime float64) float64 {
	if avgTime <= 0 {
		avgTime = DefaultAvgTime
	}
	return clamp(1-timeTaken/(timeSlack*avgTime), 0, 1)
}

func HintScore(hintUsed bool) float64 {
	if hintUsed {
		return 0.0
	}
	return 1.0
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
