package ingest

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/lexpierrot/plane-display/internal/metar"
	"github.com/lexpierrot/plane-display/internal/metrics"
	"github.com/lexpierrot/plane-display/internal/models"
	"github.com/lexpierrot/plane-display/internal/store"
)

// Scheduler polls the flight feed and the weather sources on independent
// tickers and persists what it sees.
type Scheduler struct {
	store       *store.Store
	flights     *FlightClient
	metarSource *MetarSource
	noaa        *NOAAClient
	tracker     *Tracker
	station     string
	flightPoll  time.Duration
	metarPoll   time.Duration
}

func NewScheduler(st *store.Store, flights *FlightClient, metarSource *MetarSource, tracker *Tracker, station string) *Scheduler {
	return &Scheduler{
		store:       st,
		flights:     flights,
		metarSource: metarSource,
		noaa:        NewNOAAClient(),
		tracker:     tracker,
		station:     station,
		flightPoll:  15 * time.Second,
		metarPoll:   5 * time.Minute,
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	s.ingestMetar(ctx)
	s.ingestFlights(ctx)

	flightTicker := time.NewTicker(s.flightPoll)
	metarTicker := time.NewTicker(s.metarPoll)
	defer flightTicker.Stop()
	defer metarTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: shutting down")
			return
		case <-flightTicker.C:
			s.ingestFlights(ctx)
		case <-metarTicker.C:
			s.ingestMetar(ctx)
		}
	}
}

// RunOnce performs a single poll of each source. Used by the --once flag.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.ingestMetar(ctx)
	s.ingestFlights(ctx)
}

func (s *Scheduler) ingestFlights(ctx context.Context) {
	// A captured flight rides the descent projection; polling resumes once
	// the tracker releases it.
	if _, ok := s.tracker.Snapshot(time.Now().UTC()); ok {
		return
	}

	start := time.Now()
	flight, _, err := s.flights.FetchInbound(ctx)
	metrics.FlightAPILatency.WithLabelValues("positions").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FlightAPICallsTotal.WithLabelValues("positions", "error").Inc()
		if flight == nil {
			log.Printf("scheduler: fetch flights: %v", err)
			return
		}
		// Enrichment failed but the position is usable.
		log.Printf("scheduler: fetch flights: %v", err)
	} else {
		metrics.FlightAPICallsTotal.WithLabelValues("positions", "ok").Inc()
	}

	if flight == nil {
		return
	}

	s.tracker.Observe(flight, time.Now().UTC())
	metrics.FlightsCaptured.Inc()
	log.Printf("scheduler: captured %s (%s) inbound %s", flight.Callsign, flight.AircraftType, flight.DestIATA)

	if err := s.store.InsertSighting(*flight); err != nil {
		log.Printf("scheduler: insert sighting: %v", err)
	}
}

func (s *Scheduler) ingestMetar(ctx context.Context) {
	raw, err := s.metarSource.Fetch(ctx, s.station)
	if err != nil {
		metrics.MetarFetchesTotal.WithLabelValues("awc", "error").Inc()
		log.Printf("scheduler: fetch metar: %v, trying ftp fallback", err)
		raw, err = s.noaa.FetchLatest(s.station)
		if err != nil {
			metrics.MetarFetchesTotal.WithLabelValues("noaa_ftp", "error").Inc()
			log.Printf("scheduler: fetch metar fallback: %v", err)
			return
		}
		metrics.MetarFetchesTotal.WithLabelValues("noaa_ftp", "ok").Inc()
	} else {
		metrics.MetarFetchesTotal.WithLabelValues("awc", "ok").Inc()
	}

	report, err := metar.Parse(raw)
	if err != nil {
		metrics.MetarParseFailures.Inc()
		log.Printf("scheduler: parse metar %q: %v", raw, err)
		return
	}

	rec := recordFromReport(report)
	if err := s.store.InsertMetar(rec); err != nil {
		log.Printf("scheduler: insert metar: %v", err)
		return
	}
	log.Printf("scheduler: %s %s observed %s", report.Station, report.Category, report.ObservedAt.Format(time.RFC3339))
}

func recordFromReport(r *metar.Report) models.MetarRecord {
	rec := models.MetarRecord{
		Station:    r.Station,
		ObservedAt: r.ObservedAt,
		Raw:        r.Raw,
		Category:   string(r.Category),
	}
	if r.Wind != nil {
		if !r.Wind.Variable {
			rec.WindDirDeg = sql.NullInt64{Int64: int64(r.Wind.DirectionDeg), Valid: true}
		}
		rec.WindSpeedKt = sql.NullInt64{Int64: int64(r.Wind.SpeedKt), Valid: true}
		if r.Wind.GustKt > 0 {
			rec.WindGustKt = sql.NullInt64{Int64: int64(r.Wind.GustKt), Valid: true}
		}
	}
	if r.Visibility != nil {
		rec.VisibilitySM = sql.NullFloat64{Float64: r.Visibility.SM, Valid: true}
	}
	if ceiling := r.CeilingFt(); ceiling >= 0 {
		rec.CeilingFt = sql.NullInt64{Int64: int64(ceiling), Valid: true}
	}
	if r.TempC != nil {
		rec.TempC = sql.NullInt64{Int64: int64(*r.TempC), Valid: true}
	}
	if r.DewpointC != nil {
		rec.DewpointC = sql.NullInt64{Int64: int64(*r.DewpointC), Valid: true}
	}
	if r.AltimeterInHg != nil {
		rec.AltimeterInHg = sql.NullFloat64{Float64: *r.AltimeterInHg, Valid: true}
	}
	return rec
}
