package approach

import (
	"math"
	"testing"
	"time"
)

func TestEstimateApproach(t *testing.T) {
	est := EstimateApproach(3000, 150, 10, 17, 800)

	if !est.Valid {
		t.Fatal("Valid = false, want a finite estimate")
	}
	if math.IsNaN(est.DeviationFt) || math.IsInf(est.DeviationFt, 0) {
		t.Fatalf("DeviationFt = %v, want finite", est.DeviationFt)
	}

	// 10NM at 150kt is 4 minutes out.
	if got, want := est.ETAMinutes, 4.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("ETAMinutes = %v, want %v", got, want)
	}
	// 800fpm at 2.5NM/min is 320ft per NM: expected 17 + 3200 = 3217.
	if got, want := est.ExpectedAltitudeFt, 3217.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("ExpectedAltitudeFt = %v, want %v", got, want)
	}
	if got, want := est.DeviationFt, -217.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("DeviationFt = %v, want %v", got, want)
	}
}

func TestEstimateApproachZeroGroundspeed(t *testing.T) {
	for _, gs := range []float64{0, -5} {
		est := EstimateApproach(3000, gs, 10, 17, 800)
		if est.Valid {
			t.Errorf("groundspeed %v: Valid = true, want unknown estimate", gs)
		}
	}
}

func TestEstimateApproachHighProfile(t *testing.T) {
	// Well above the profile reads as a positive deviation.
	est := EstimateApproach(6000, 150, 10, 17, 800)
	if !est.Valid || est.DeviationFt <= 0 {
		t.Errorf("deviation = %v, want positive", est.DeviationFt)
	}
}

func TestClassifyPhase(t *testing.T) {
	tests := []struct {
		name  string
		altFt float64
		want  Phase
	}{
		{"high altitude", 3500, PhaseApproach},
		{"just above threshold", 2001, PhaseApproach},
		{"short final", 800, PhaseFinal},
		{"over the fence", 60, PhaseFinal},
		{"at touchdown elevation", 17, PhaseLanded},
		{"below field", -100, PhaseLanded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyPhase(tt.altFt, 17); got != tt.want {
				t.Errorf("ClassifyPhase(%v) = %s, want %s", tt.altFt, got, tt.want)
			}
		})
	}
}

func TestProjectAltitude(t *testing.T) {
	// 800fpm for 90 seconds is 1200ft of descent.
	got := ProjectAltitude(3000, 90*time.Second, 800)
	if math.Abs(got-1800) > 1e-9 {
		t.Errorf("ProjectAltitude = %v, want 1800", got)
	}
}

func TestProjectDistance(t *testing.T) {
	// 2000ft AGL on a 400ft/NM gradient is 5NM out.
	if got := ProjectDistance(2017, 17); math.Abs(got-5) > 1e-9 {
		t.Errorf("ProjectDistance = %v, want 5", got)
	}
	if got := ProjectDistance(10, 17); got != 0 {
		t.Errorf("ProjectDistance below field = %v, want 0", got)
	}
}

func TestReleased(t *testing.T) {
	if Released(0, 17) {
		t.Error("Released at field elevation margin, want false")
	}
	if !Released(-300, 17) {
		t.Error("not Released well below field, want true")
	}
}
