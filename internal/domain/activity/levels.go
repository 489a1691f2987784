package activity

// Lower bounds of levels 1..4 per event type. Deployments are rarer than
// commits, so their bounds are lower.
var (
	commitThresholds     = [4]int{1, 2, 4, 7}
	deploymentThresholds = [4]int{1, 2, 3, 5}
)

// Level maps a day's event count to an intensity level in 0..4.
func Level(typ Type, count int) int {
	thresholds := commitThresholds
	if typ == TypeDeployment {
		thresholds = deploymentThresholds
	}
	level := 0
	for _, lower := range thresholds {
		if count >= lower {
			level++
		}
	}
	return level
}
