package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lexpierrot/plane-display/internal/imagegen"
	"github.com/lexpierrot/plane-display/internal/ingest"
	"github.com/lexpierrot/plane-display/internal/store"
)

// metarStaleAfter marks the weather panel degraded when the newest report is
// older than this. Reports normally arrive hourly with specials in between.
const metarStaleAfter = 90 * time.Minute

type Server struct {
	store      *store.Store
	tracker    *ingest.Tracker
	station    string
	airport    string
	port       string
	loc        *time.Location
	imageCache *imagegen.Cache
	imageGen   *imagegen.Generator
	genMu      sync.Mutex
}

func NewServer(st *store.Store, tracker *ingest.Tracker, station, airport, port string, loc *time.Location) *Server {
	var imageGen *imagegen.Generator
	if gen, err := imagegen.NewGenerator(); err != nil {
		log.Printf("api: banner generation disabled: %v", err)
	} else {
		imageGen = gen
	}

	return &Server{
		store:      st,
		tracker:    tracker,
		station:    station,
		airport:    airport,
		port:       port,
		loc:        loc,
		imageCache: imagegen.NewCache("data/images"),
		imageGen:   imageGen,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/display", s.handleDisplay)
	mux.HandleFunc("/api/weather", s.handleWeather)
	mux.HandleFunc("/api/flight", s.handleFlight)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/banner", s.handleBanner)
	mux.HandleFunc("/card.png", s.handleCard)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    ":" + s.port,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) snapshot(now time.Time) (*DisplaySnapshot, error) {
	rec, err := s.store.GetLatestMetar(s.station)
	if err != nil {
		return nil, err
	}

	snap := &DisplaySnapshot{
		Weather:     weatherView(rec, now),
		GeneratedAt: now,
	}

	if status, ok := s.tracker.Snapshot(now); ok {
		city, err := s.store.CityName(status.Flight.OriginIATA)
		if err != nil {
			city = status.Flight.OriginIATA
		}
		snap.Flight = flightView(status, city)
	}
	return snap, nil
}

func (s *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshot(time.Now().UTC())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetLatestMetar(s.station)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(weatherView(rec, time.Now().UTC()))
}

func (s *Server) handleFlight(w http.ResponseWriter, r *http.Request) {
	var view *FlightView
	if status, ok := s.tracker.Snapshot(time.Now().UTC()); ok {
		city, err := s.store.CityName(status.Flight.OriginIATA)
		if err != nil {
			city = status.Flight.OriginIATA
		}
		view = flightView(status, city)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

// handleHistory serves recent records for charting: parsed weather reports
// by default, flight sightings with kind=flights (optionally filtered by
// callsign).
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 24*7 {
			hours = n
		}
	}

	end := time.Now().UTC()
	start := end.Add(-time.Duration(hours) * time.Hour)

	var records any
	var err error
	switch kind := r.URL.Query().Get("kind"); kind {
	case "", "metar":
		records, err = s.store.GetMetarHistory(s.station, start, end)
	case "flights":
		if callsign := r.URL.Query().Get("callsign"); callsign != "" {
			records, err = s.store.GetSightingsByCallsign(callsign, start, end)
		} else {
			records, err = s.store.GetSightings(start, end)
		}
	default:
		http.Error(w, "unknown kind: "+kind, http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

type healthStatus struct {
	Status             string `json:"status"`
	MetarAgeMinutes    int    `json:"metar_age_minutes"`
	SightingAgeMinutes int    `json:"sighting_age_minutes"`
	Tracking           bool   `json:"tracking"`
	Error              string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	rec, err := s.store.GetLatestMetar(s.station)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(healthStatus{Status: "error", Error: err.Error()})
		return
	}

	health := healthStatus{
		Status:             "ok",
		Tracking:           s.tracker.Tracking(),
		MetarAgeMinutes:    -1,
		SightingAgeMinutes: -1,
	}
	if rec == nil {
		health.Status = "degraded"
	} else {
		age := time.Since(rec.ObservedAt)
		health.MetarAgeMinutes = int(age.Minutes())
		if age > metarStaleAfter {
			health.Status = "degraded"
		}
	}

	// Sighting age is informational; quiet approach corridors are normal.
	if sighting, err := s.store.GetLatestSighting(); err == nil && sighting != nil {
		health.SightingAgeMinutes = int(time.Since(sighting.SeenAt).Minutes())
	}

	json.NewEncoder(w).Encode(health)
}

// handleBanner serves the scene image for the current flight category and
// time of day, generating and caching it on demand.
func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	category := "VFR"
	if rec, err := s.store.GetLatestMetar(s.station); err == nil && rec != nil {
		category = rec.Category
	}
	tod := imagegen.TimeOfDayFor(time.Now().In(s.loc))
	condition := imagegen.ConditionFor(category, tod)

	if data, ok := s.imageCache.Get(condition); ok {
		serveImage(w, data)
		return
	}

	if s.imageGen != nil {
		s.genMu.Lock()
		defer s.genMu.Unlock()

		// Another request may have generated it while we waited.
		if data, ok := s.imageCache.Get(condition); ok {
			serveImage(w, data)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		defer cancel()
		data, err := s.imageGen.Generate(ctx, category, tod)
		if err == nil {
			if err := s.imageCache.Set(condition, data); err != nil {
				log.Printf("api: cache banner: %v", err)
			}
			serveImage(w, data)
			return
		}
		log.Printf("api: generate banner: %v", err)
	}

	if data, ok := s.imageCache.GetAny(); ok {
		serveImage(w, data)
		return
	}
	http.Error(w, "no banner available", http.StatusNotFound)
}

func (s *Server) handleCard(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetLatestMetar(s.station)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.Error(w, "no report available", http.StatusNotFound)
		return
	}

	city, err := s.store.CityName(s.airport)
	if err != nil {
		city = s.airport
	}

	data, err := imagegen.RenderCard(imagegen.CardData{
		Station:     rec.Station,
		City:        city,
		Category:    rec.Category,
		ObservedAt:  rec.ObservedAt,
		Wind:        formatWind(rec),
		Visibility:  formatVisibility(rec),
		Ceiling:     formatCeiling(rec),
		Altimeter:   formatAltimeter(rec),
		Temperature: formatTemperature(rec),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	serveImage(w, data)
}

func serveImage(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.Write(data)
}
