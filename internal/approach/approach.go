// Package approach computes descent estimates for an inbound flight. All
// functions are pure; the scheduler drives them once per refresh tick.
package approach

import "time"

const (
	// Nominal 3° descent gradient used to project distance from altitude:
	// 2000ft over 5NM.
	glideFtPerNM = 400.0

	// A projection this far below touchdown elevation means the flight has
	// landed and tracking should reset.
	releaseMarginFt = 250.0

	// Above this height over the touchdown zone the flight is still on
	// approach rather than final.
	finalThresholdFt = 2000.0
)

// Estimate is the result of comparing a flight's actual altitude against
// the altitude a nominal descent profile predicts at its current distance.
// Valid is false when groundspeed was zero or unreported, in which case the
// numeric fields are meaningless.
type Estimate struct {
	ETAMinutes         float64
	ExpectedAltitudeFt float64
	DeviationFt        float64
	Valid              bool
}

// EstimateApproach projects the expected altitude at the flight's current
// distance from a constant descent rate, and the time to touchdown from the
// current groundspeed. Zero or negative groundspeed yields an invalid
// estimate rather than a division by zero.
func EstimateApproach(altFt, groundspeedKt, distanceNM, tdzeFt, descentFpm float64) Estimate {
	if groundspeedKt <= 0 {
		return Estimate{}
	}

	nmPerMinute := groundspeedKt / 60
	ftPerNM := descentFpm / nmPerMinute
	expected := tdzeFt + distanceNM*ftPerNM

	return Estimate{
		ETAMinutes:         distanceNM / groundspeedKt * 60,
		ExpectedAltitudeFt: expected,
		DeviationFt:        altFt - expected,
		Valid:              true,
	}
}

// Phase classifies where a tracked flight sits on the descent.
type Phase string

const (
	PhaseApproach Phase = "APPROACH"
	PhaseFinal    Phase = "FINAL"
	PhaseLanded   Phase = "LANDED"
)

// ClassifyPhase returns the descent phase for a projected altitude.
func ClassifyPhase(altFt, tdzeFt float64) Phase {
	switch {
	case altFt > finalThresholdFt:
		return PhaseApproach
	case altFt > tdzeFt:
		return PhaseFinal
	default:
		return PhaseLanded
	}
}

// ProjectAltitude extrapolates a captured flight's altitude forward at the
// configured descent rate. The result may fall below the touchdown zone
// elevation; callers check Released to decide when to stop tracking.
func ProjectAltitude(capturedAltFt float64, elapsed time.Duration, descentFpm float64) float64 {
	return capturedAltFt - descentFpm*elapsed.Minutes()
}

// ProjectDistance converts a projected altitude back into a distance to the
// runway using the nominal descent gradient.
func ProjectDistance(altFt, tdzeFt float64) float64 {
	agl := altFt - tdzeFt
	if agl <= 0 {
		return 0
	}
	return agl / glideFtPerNM
}

// Released reports whether a projected altitude has descended far enough
// below the touchdown zone that tracking should reset and polling resume.
func Released(projectedAltFt, tdzeFt float64) bool {
	return projectedAltFt < tdzeFt-releaseMarginFt
}
