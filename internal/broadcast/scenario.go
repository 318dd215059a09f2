package broadcast

import (
	"fmt"
	"strings"
)

// Scenario selects which message sequence the agent sends each tick.
type Scenario string

const (
	// ScenarioComplete sends drone, pilot, and home tracks plus a
	// ground-station status event.
	ScenarioComplete Scenario = "complete"
	// ScenarioFPV sends only the FPV feed: a detection on the first tick,
	// updates after.
	ScenarioFPV Scenario = "fpv"
	// ScenarioMixed interleaves the drone track with the FPV feed and a
	// status event.
	ScenarioMixed Scenario = "mixed"
	// ScenarioFlight sends the drone track and status only, paced for a
	// fast position feed.
	ScenarioFlight Scenario = "flight"
	// ScenarioEverything drives every output at once: the complete set,
	// the FPV feed, broker publishes, and the TAK server feed.
	ScenarioEverything Scenario = "everything"
)

// ParseScenario maps a name to its Scenario, ignoring case.
func ParseScenario(s string) (Scenario, error) {
	sc := Scenario(strings.ToLower(strings.TrimSpace(s)))
	switch sc {
	case ScenarioComplete, ScenarioFPV, ScenarioMixed, ScenarioFlight, ScenarioEverything:
		return sc, nil
	}
	return "", fmt.Errorf("broadcast: unknown scenario %q", s)
}
