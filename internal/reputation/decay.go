package reputation

import (
	"math"
	"time"
)

// minDecayElapsed suppresses decay on rapid successive reads.
const minDecayElapsed = time.Second

// Decay returns the time-discounted score after the elapsed interval. It
// pulls the deviation from baseline toward the baseline with the given
// half-life, from either side; it never amplifies a score away from the
// baseline. Elapsed intervals under one second leave the score unchanged.
func Decay(score, baseline float64, lastUpdate, now time.Time, halfLife time.Duration) float64 {
	elapsed := now.Sub(lastUpdate)
	if elapsed < minDecayElapsed {
		return score
	}

	periods := elapsed.Seconds() / halfLife.Seconds()
	factor := math.Pow(0.5, periods)
	return baseline + (score-baseline)*factor
}
