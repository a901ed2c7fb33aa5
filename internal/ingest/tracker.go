package ingest

import (
	"sync"
	"time"

	"github.com/lexpierrot/plane-display/internal/approach"
	"github.com/lexpierrot/plane-display/internal/models"
)

// staleAfter is how long a captured flight's live data is trusted before the
// tracker switches to dead reckoning. Covers a few missed poll cycles.
const staleAfter = 45 * time.Second

// Tracker holds the most recently captured inbound flight and dead-reckons
// its approach when the feed stops reporting it. Safe for concurrent use by
// the scheduler and the HTTP server.
type Tracker struct {
	mu          sync.Mutex
	captured    *models.InboundFlight
	capturedAt  time.Time
	capturedAlt float64

	tdzeFt     float64
	descentFpm float64
}

// Status is a point-in-time view of the tracked approach.
type Status struct {
	Flight     models.InboundFlight
	Phase      approach.Phase
	AltitudeFt float64
	DistanceNM float64
	Estimate   approach.Estimate
	CapturedAt time.Time
	Projected  bool
}

func NewTracker(tdzeFt, descentFpm float64) *Tracker {
	return &Tracker{tdzeFt: tdzeFt, descentFpm: descentFpm}
}

// Observe records a fresh position report. Reports without an altitude are
// ignored since dead reckoning needs a starting point. A nil flight means
// the feed returned nothing; the current capture is kept and extrapolated.
func (t *Tracker) Observe(flight *models.InboundFlight, now time.Time) {
	if flight == nil || !flight.AltitudeFt.Valid {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.captured = flight
	t.capturedAt = now
	t.capturedAlt = float64(flight.AltitudeFt.Int64)
}

// Snapshot returns the current approach status, or false when no flight is
// being tracked. Once a dead-reckoned flight descends through the landing
// margin the capture is released.
func (t *Tracker) Snapshot(now time.Time) (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.captured == nil {
		return Status{}, false
	}

	elapsed := now.Sub(t.capturedAt)
	alt := t.capturedAlt
	dist := 0.0
	if t.captured.DistanceNM.Valid {
		dist = t.captured.DistanceNM.Float64
	}

	projected := elapsed >= staleAfter
	if projected {
		alt = approach.ProjectAltitude(t.capturedAlt, elapsed, t.descentFpm)
		if approach.Released(alt, t.tdzeFt) {
			t.captured = nil
			return Status{}, false
		}
		dist = approach.ProjectDistance(alt, t.tdzeFt)
	}

	gs := 0.0
	if t.captured.GroundspeedKt.Valid {
		gs = float64(t.captured.GroundspeedKt.Int64)
	}

	return Status{
		Flight:     *t.captured,
		Phase:      approach.ClassifyPhase(alt, t.tdzeFt),
		AltitudeFt: alt,
		DistanceNM: dist,
		Estimate:   approach.EstimateApproach(alt, gs, dist, t.tdzeFt, t.descentFpm),
		CapturedAt: t.capturedAt,
		Projected:  projected,
	}, true
}

// Tracking reports whether a flight is currently captured.
func (t *Tracker) Tracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.captured != nil
}
