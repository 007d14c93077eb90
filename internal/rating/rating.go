// Package rating implements the ELO-style skill estimate kept per learner
// and concept, and the difficulty band served at a given rating.
package rating

import "math"

const (
	// Default is the rating of a (user, concept) pair never observed.
	Default = 1000.0

	// K is the update step size.
	K = 20.0

	// itemBase is the rating of a difficulty-1 item; each difficulty step
	// adds itemStep.
	itemBase = 1000.0
	itemStep = 200.0

	scale = 400.0
)

// ItemRating maps an item difficulty in [1, 5] to a rating in [1000, 1800].
func ItemRating(difficulty int) float64 {
	return itemBase + float64(difficulty-1)*itemStep
}

// Expected returns the expected score of a learner at rating against an
// item of the given difficulty.
func Expected(rating float64, difficulty int) float64 {
	return 1 / (1 + math.Pow(10, (ItemRating(difficulty)-rating)/scale))
}

// Update returns the new rating after an attempt with the given mastery
// score in [0, 1]. The result is not clamped and is rounded to four
// decimal places.
func Update(rating float64, difficulty int, mastery float64) float64 {
	return Round4(rating + K*(mastery-Expected(rating, difficulty)))
}

// Round4 rounds x to four decimal places.
func Round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}
