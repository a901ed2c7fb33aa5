package ingest

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lexpierrot/plane-display/internal/approach"
	"github.com/lexpierrot/plane-display/internal/metar"
	"github.com/lexpierrot/plane-display/internal/models"
	"github.com/lexpierrot/plane-display/internal/store"

	_ "modernc.org/sqlite"
)

const (
	testPositionsBody = `{"data":[{"fr24_id":"391f1bb1","callsign":"SKW3412","painted_as":"UAL","orig_iata":"SFO","dest_iata":"SAN","type":"E75L","alt":4200,"gspeed":180,"lat":32.9,"lon":-117.2,"timestamp":"2025-06-15T21:00:00Z"}]}`
	testSummaryBody   = `{"data":[{"fr24_id":"391f1bb1","datetime_takeoff":"2025-06-15T19:45:00Z","eta":"2025-06-15T21:08:00Z","actual_distance":37.04}]}`
)

func newTestFlightServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/live/flight-positions/full", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		if got := r.URL.Query().Get("airports"); got != "inbound:SAN" {
			t.Errorf("airports param = %q, want inbound:SAN", got)
		}
		w.Write([]byte(testPositionsBody))
	})
	mux.HandleFunc("/api/flight-summary/full", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("flight_ids"); got != "391f1bb1" {
			t.Errorf("flight_ids param = %q, want 391f1bb1", got)
		}
		w.Write([]byte(testSummaryBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchInbound(t *testing.T) {
	srv := newTestFlightServer(t)
	client := NewFlightClient("test-key", "SAN", "33.5,32.5,-118.0,-116.0", 10000).WithBaseURL(srv.URL)

	flight, raw, err := client.FetchInbound(context.Background())
	if err != nil {
		t.Fatalf("FetchInbound: %v", err)
	}
	if flight == nil {
		t.Fatal("expected a flight, got nil")
	}
	if raw == "" {
		t.Error("expected raw body to be returned")
	}

	if flight.Callsign != "SKW3412" {
		t.Errorf("Callsign = %q, want SKW3412", flight.Callsign)
	}
	if flight.AircraftType != "E75L" {
		t.Errorf("AircraftType = %q, want E75L", flight.AircraftType)
	}
	if !flight.AltitudeFt.Valid || flight.AltitudeFt.Int64 != 4200 {
		t.Errorf("AltitudeFt = %+v, want 4200", flight.AltitudeFt)
	}
	if !flight.GroundspeedKt.Valid || flight.GroundspeedKt.Int64 != 180 {
		t.Errorf("GroundspeedKt = %+v, want 180", flight.GroundspeedKt)
	}

	// 37.04 km is exactly 20 NM.
	if !flight.DistanceNM.Valid {
		t.Fatal("expected DistanceNM from summary enrichment")
	}
	if got := flight.DistanceNM.Float64; got < 19.99 || got > 20.01 {
		t.Errorf("DistanceNM = %v, want 20", got)
	}
	if !flight.ETA.Valid || !flight.ETA.Time.Equal(time.Date(2025, 6, 15, 21, 8, 0, 0, time.UTC)) {
		t.Errorf("ETA = %+v, want 2025-06-15T21:08:00Z", flight.ETA)
	}
}

func TestFetchInboundEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	t.Cleanup(srv.Close)

	client := NewFlightClient("test-key", "SAN", "", 10000).WithBaseURL(srv.URL)
	flight, _, err := client.FetchInbound(context.Background())
	if err != nil {
		t.Fatalf("FetchInbound: %v", err)
	}
	if flight != nil {
		t.Errorf("expected nil flight for empty feed, got %+v", flight)
	}
}

func TestFetchInboundAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	client := NewFlightClient("bad-key", "SAN", "", 10000).WithBaseURL(srv.URL)
	if _, _, err := client.FetchInbound(context.Background()); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestMetarSourceFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ids"); got != "KSAN" {
			t.Errorf("ids param = %q, want KSAN", got)
		}
		w.Write([]byte("KSAN 151851Z 27010KT 10SM FEW015 21/14 A2992\nKSAN 151751Z 26008KT 10SM FEW015 20/14 A2993\n"))
	}))
	t.Cleanup(srv.Close)

	source := NewMetarSource().WithBaseURL(srv.URL)
	raw, err := source.Fetch(context.Background(), "KSAN")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := "KSAN 151851Z 27010KT 10SM FEW015 21/14 A2992"
	if raw != want {
		t.Errorf("Fetch = %q, want %q", raw, want)
	}
}

func TestMetarSourceFetchEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("\n"))
	}))
	t.Cleanup(srv.Close)

	source := NewMetarSource().WithBaseURL(srv.URL)
	if _, err := source.Fetch(context.Background(), "KSAN"); err == nil {
		t.Fatal("expected error for empty response")
	}
}

func TestParseCycleFile(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		station string
		want    string
		wantErr bool
	}{
		{
			name:    "single line report",
			body:    "2025/06/15 18:51\nKSAN 151851Z 27010KT 10SM FEW015 21/14 A2992\n",
			station: "KSAN",
			want:    "KSAN 151851Z 27010KT 10SM FEW015 21/14 A2992",
		},
		{
			name:    "wrapped continuation line",
			body:    "2025/06/15 18:51\nKSAN 151851Z 27010KT 10SM FEW015 SCT030 BKN048 21/14 A2992 RMK AO2\n     SLP132 T02110139\n",
			station: "KSAN",
			want:    "KSAN 151851Z 27010KT 10SM FEW015 SCT030 BKN048 21/14 A2992 RMK AO2 SLP132 T02110139",
		},
		{
			name:    "lowercase station accepted",
			body:    "2025/06/15 18:51\nKSAN 151851Z 00000KT 10SM CLR 21/14 A2992\n",
			station: "ksan",
			want:    "KSAN 151851Z 00000KT 10SM CLR 21/14 A2992",
		},
		{
			name:    "station missing",
			body:    "2025/06/15 18:51\nKLAX 151853Z 25012KT 10SM CLR 22/13 A2990\n",
			station: "KSAN",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCycleFile(strings.NewReader(tt.body), tt.station)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseCycleFile: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseCycleFile = %q, want %q", got, tt.want)
			}
		})
	}
}

func testFlight(altFt, gsKt int64, distNM float64) *models.InboundFlight {
	return &models.InboundFlight{
		FR24ID:        "391f1bb1",
		Callsign:      "SKW3412",
		AltitudeFt:    sql.NullInt64{Int64: altFt, Valid: true},
		GroundspeedKt: sql.NullInt64{Int64: gsKt, Valid: true},
		DistanceNM:    sql.NullFloat64{Float64: distNM, Valid: true},
		SeenAt:        time.Date(2025, 6, 15, 21, 0, 0, 0, time.UTC),
	}
}

func TestTrackerLiveSnapshot(t *testing.T) {
	tracker := NewTracker(17, 800)
	capturedAt := time.Date(2025, 6, 15, 21, 0, 0, 0, time.UTC)
	tracker.Observe(testFlight(3000, 150, 10), capturedAt)

	status, ok := tracker.Snapshot(capturedAt.Add(10 * time.Second))
	if !ok {
		t.Fatal("expected a tracked flight")
	}
	if status.Projected {
		t.Error("fresh capture should not be projected")
	}
	if status.AltitudeFt != 3000 {
		t.Errorf("AltitudeFt = %v, want live 3000", status.AltitudeFt)
	}
	if status.Phase != approach.PhaseApproach {
		t.Errorf("Phase = %v, want APPROACH", status.Phase)
	}
	if !status.Estimate.Valid {
		t.Fatal("expected valid estimate")
	}
	if status.Estimate.ETAMinutes != 4 {
		t.Errorf("ETAMinutes = %v, want 4", status.Estimate.ETAMinutes)
	}
}

func TestTrackerProjectsWhenStale(t *testing.T) {
	tracker := NewTracker(17, 800)
	capturedAt := time.Date(2025, 6, 15, 21, 0, 0, 0, time.UTC)
	tracker.Observe(testFlight(3000, 150, 10), capturedAt)

	// 90 seconds at 800 fpm is a 1200 ft descent.
	status, ok := tracker.Snapshot(capturedAt.Add(90 * time.Second))
	if !ok {
		t.Fatal("expected a tracked flight")
	}
	if !status.Projected {
		t.Error("stale capture should be projected")
	}
	if status.AltitudeFt != 1800 {
		t.Errorf("AltitudeFt = %v, want projected 1800", status.AltitudeFt)
	}
	if status.Phase != approach.PhaseFinal {
		t.Errorf("Phase = %v, want FINAL", status.Phase)
	}
	// (1800-17)/400 ≈ 4.46 NM on the nominal gradient.
	if status.DistanceNM < 4.4 || status.DistanceNM > 4.5 {
		t.Errorf("DistanceNM = %v, want ~4.46", status.DistanceNM)
	}
}

func TestTrackerReleasesAfterLanding(t *testing.T) {
	tracker := NewTracker(17, 800)
	capturedAt := time.Date(2025, 6, 15, 21, 0, 0, 0, time.UTC)
	tracker.Observe(testFlight(3000, 150, 10), capturedAt)

	// 3000 ft at 800 fpm is gone in under 4 minutes; by 5 the projection is
	// well below the release margin.
	if _, ok := tracker.Snapshot(capturedAt.Add(5 * time.Minute)); ok {
		t.Fatal("expected capture to be released after projected landing")
	}
	if tracker.Tracking() {
		t.Error("tracker should be empty after release")
	}
}

func TestTrackerIgnoresNilAndAltitudeless(t *testing.T) {
	tracker := NewTracker(17, 800)
	capturedAt := time.Date(2025, 6, 15, 21, 0, 0, 0, time.UTC)
	tracker.Observe(testFlight(3000, 150, 10), capturedAt)

	tracker.Observe(nil, capturedAt.Add(15*time.Second))
	noAlt := testFlight(0, 150, 10)
	noAlt.AltitudeFt = sql.NullInt64{}
	tracker.Observe(noAlt, capturedAt.Add(30*time.Second))

	status, ok := tracker.Snapshot(capturedAt.Add(35 * time.Second))
	if !ok {
		t.Fatal("capture should survive nil and altitudeless reports")
	}
	if !status.CapturedAt.Equal(capturedAt) {
		t.Errorf("CapturedAt = %v, want original %v", status.CapturedAt, capturedAt)
	}
}

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		t.Fatal(err)
	}
	return st
}

func TestSchedulerIngestMetar(t *testing.T) {
	st := setupTestStore(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("KSAN 151851Z 27010KT 5SM BR BKN008 18/16 A2990\n"))
	}))
	t.Cleanup(srv.Close)

	tracker := NewTracker(17, 800)
	flights := NewFlightClient("test-key", "SAN", "", 10000).WithBaseURL(srv.URL)
	sched := NewScheduler(st, flights, NewMetarSource().WithBaseURL(srv.URL), tracker, "KSAN")

	sched.ingestMetar(context.Background())

	rec, err := st.GetLatestMetar("KSAN")
	if err != nil {
		t.Fatalf("GetLatestMetar: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a stored report")
	}
	if rec.Category != "IFR" {
		t.Errorf("Category = %q, want IFR for 5SM/BKN008", rec.Category)
	}
	if !rec.CeilingFt.Valid || rec.CeilingFt.Int64 != 800 {
		t.Errorf("CeilingFt = %+v, want 800", rec.CeilingFt)
	}
}

func TestSchedulerCaptureSuppressesPolling(t *testing.T) {
	st := setupTestStore(t)

	var positionCalls atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/live/flight-positions/full", func(w http.ResponseWriter, r *http.Request) {
		positionCalls.Add(1)
		w.Write([]byte(testPositionsBody))
	})
	mux.HandleFunc("/api/flight-summary/full", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testSummaryBody))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	tracker := NewTracker(17, 800)
	flights := NewFlightClient("test-key", "SAN", "", 10000).WithBaseURL(srv.URL)
	sched := NewScheduler(st, flights, NewMetarSource(), tracker, "KSAN")

	sched.ingestFlights(context.Background())
	if !tracker.Tracking() {
		t.Fatal("expected a captured flight after the first poll")
	}

	sightings, err := st.GetSightings(time.Now().UTC().Add(-time.Minute), time.Now().UTC().Add(time.Minute))
	if err != nil {
		t.Fatalf("GetSightings: %v", err)
	}
	if len(sightings) != 1 {
		t.Fatalf("stored %d sightings, want 1", len(sightings))
	}

	// While the capture rides the projection the feed is left alone.
	sched.ingestFlights(context.Background())
	if got := positionCalls.Load(); got != 1 {
		t.Errorf("positions endpoint called %d times, want 1", got)
	}
}

func TestRecordFromReport(t *testing.T) {
	report, err := metar.ParseAt("KSAN 151851Z 27010G18KT 10SM FEW015 BKN048 21/14 A2992", time.Date(2025, 6, 15, 21, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ParseAt: %v", err)
	}

	rec := recordFromReport(report)
	if rec.Station != "KSAN" {
		t.Errorf("Station = %q, want KSAN", rec.Station)
	}
	if rec.Category != "VFR" {
		t.Errorf("Category = %q, want VFR", rec.Category)
	}
	if !rec.WindDirDeg.Valid || rec.WindDirDeg.Int64 != 270 {
		t.Errorf("WindDirDeg = %+v, want 270", rec.WindDirDeg)
	}
	if !rec.WindGustKt.Valid || rec.WindGustKt.Int64 != 18 {
		t.Errorf("WindGustKt = %+v, want 18", rec.WindGustKt)
	}
	if !rec.CeilingFt.Valid || rec.CeilingFt.Int64 != 4800 {
		t.Errorf("CeilingFt = %+v, want 4800", rec.CeilingFt)
	}
	if !rec.VisibilitySM.Valid || rec.VisibilitySM.Float64 != 10 {
		t.Errorf("VisibilitySM = %+v, want 10", rec.VisibilitySM)
	}

	// Variable wind has no direction; clear sky has no ceiling.
	report, err = metar.ParseAt("KSAN 151851Z VRB03KT 10SM CLR 21/14 A2992", time.Date(2025, 6, 15, 21, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ParseAt: %v", err)
	}
	rec = recordFromReport(report)
	if rec.WindDirDeg.Valid {
		t.Errorf("WindDirDeg = %+v, want invalid for VRB", rec.WindDirDeg)
	}
	if rec.CeilingFt.Valid {
		t.Errorf("CeilingFt = %+v, want invalid for CLR", rec.CeilingFt)
	}
}
