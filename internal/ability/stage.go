package ability

import "github.com/l1jgo/encounter/internal/data"

// SelectStage returns the index of the last stage, in definition order,
// whose threshold is not exceeded by healthFraction. Order matters, not
// threshold values: tables list the widest gate first so deeper stages
// take over as health drops.
func SelectStage(stages []data.Stage, healthFraction float64) (int, bool) {
	idx := -1
	for i := range stages {
		if healthFraction <= stages[i].Threshold {
			idx = i
		}
	}
	return idx, idx >= 0
}
