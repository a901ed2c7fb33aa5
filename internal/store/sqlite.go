package store

import (
	"database/sql"
	"time"

	"github.com/lexpierrot/plane-display/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) UpsertAirport(a models.Airport) error {
	_, err := s.db.Exec(`
		INSERT INTO airports (iata, city)
		VALUES (?, ?)
		ON CONFLICT(iata) DO UPDATE SET city = excluded.city
	`, a.IATA, a.City)
	return err
}

func (s *Store) GetAirports() ([]models.Airport, error) {
	rows, err := s.db.Query(`SELECT iata, city FROM airports ORDER BY iata`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var airports []models.Airport
	for rows.Next() {
		var a models.Airport
		if err := rows.Scan(&a.IATA, &a.City); err != nil {
			return nil, err
		}
		airports = append(airports, a)
	}
	return airports, rows.Err()
}

func (s *Store) InsertMetar(m models.MetarRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO metar_reports (station, observed_at, raw, category, wind_dir_deg, wind_speed_kt, wind_gust_kt, visibility_sm, ceiling_ft, temp_c, dewpoint_c, altimeter_inhg)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(station, observed_at) DO NOTHING
	`, m.Station, m.ObservedAt, m.Raw, m.Category, m.WindDirDeg, m.WindSpeedKt, m.WindGustKt, m.VisibilitySM, m.CeilingFt, m.TempC, m.DewpointC, m.AltimeterInHg)
	return err
}

func (s *Store) GetLatestMetar(station string) (*models.MetarRecord, error) {
	row := s.db.QueryRow(`
		SELECT id, station, observed_at, raw, category, wind_dir_deg, wind_speed_kt, wind_gust_kt, visibility_sm, ceiling_ft, temp_c, dewpoint_c, altimeter_inhg, created_at
		FROM metar_reports
		WHERE station = ?
		ORDER BY observed_at DESC
		LIMIT 1
	`, station)

	var m models.MetarRecord
	err := row.Scan(&m.ID, &m.Station, &m.ObservedAt, &m.Raw, &m.Category, &m.WindDirDeg, &m.WindSpeedKt, &m.WindGustKt, &m.VisibilitySM, &m.CeilingFt, &m.TempC, &m.DewpointC, &m.AltimeterInHg, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) GetMetarHistory(station string, start, end time.Time) ([]models.MetarRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, station, observed_at, raw, category, wind_dir_deg, wind_speed_kt, wind_gust_kt, visibility_sm, ceiling_ft, temp_c, dewpoint_c, altimeter_inhg, created_at
		FROM metar_reports
		WHERE station = ? AND observed_at >= ? AND observed_at <= ?
		ORDER BY observed_at ASC
	`, station, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []models.MetarRecord
	for rows.Next() {
		var m models.MetarRecord
		if err := rows.Scan(&m.ID, &m.Station, &m.ObservedAt, &m.Raw, &m.Category, &m.WindDirDeg, &m.WindSpeedKt, &m.WindGustKt, &m.VisibilitySM, &m.CeilingFt, &m.TempC, &m.DewpointC, &m.AltimeterInHg, &m.CreatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, m)
	}
	return reports, rows.Err()
}

func (s *Store) InsertSighting(f models.InboundFlight) error {
	_, err := s.db.Exec(`
		INSERT INTO flight_sightings (fr24_id, callsign, painted_as, orig_iata, dest_iata, aircraft_type, altitude_ft, groundspeed_kt, distance_nm, takeoff_time, eta, seen_at, raw_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.FR24ID, f.Callsign, f.PaintedAs, f.OriginIATA, f.DestIATA, f.AircraftType, f.AltitudeFt, f.GroundspeedKt, f.DistanceNM, f.TakeoffTime, f.ETA, f.SeenAt, f.RawJSON)
	return err
}

func (s *Store) GetLatestSighting() (*models.InboundFlight, error) {
	row := s.db.QueryRow(`
		SELECT id, fr24_id, callsign, painted_as, orig_iata, dest_iata, aircraft_type, altitude_ft, groundspeed_kt, distance_nm, takeoff_time, eta, seen_at, raw_json, created_at
		FROM flight_sightings
		ORDER BY seen_at DESC
		LIMIT 1
	`)

	var f models.InboundFlight
	err := row.Scan(&f.ID, &f.FR24ID, &f.Callsign, &f.PaintedAs, &f.OriginIATA, &f.DestIATA, &f.AircraftType, &f.AltitudeFt, &f.GroundspeedKt, &f.DistanceNM, &f.TakeoffTime, &f.ETA, &f.SeenAt, &f.RawJSON, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *Store) GetSightings(start, end time.Time) ([]models.InboundFlight, error) {
	rows, err := s.db.Query(`
		SELECT id, fr24_id, callsign, painted_as, orig_iata, dest_iata, aircraft_type, altitude_ft, groundspeed_kt, distance_nm, takeoff_time, eta, seen_at, raw_json, created_at
		FROM flight_sightings
		WHERE seen_at >= ? AND seen_at <= ?
		ORDER BY seen_at ASC
	`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flights []models.InboundFlight
	for rows.Next() {
		var f models.InboundFlight
		if err := rows.Scan(&f.ID, &f.FR24ID, &f.Callsign, &f.PaintedAs, &f.OriginIATA, &f.DestIATA, &f.AircraftType, &f.AltitudeFt, &f.GroundspeedKt, &f.DistanceNM, &f.TakeoffTime, &f.ETA, &f.SeenAt, &f.RawJSON, &f.CreatedAt); err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

func (s *Store) GetSightingsByCallsign(callsign string, start, end time.Time) ([]models.InboundFlight, error) {
	rows, err := s.db.Query(`
		SELECT id, fr24_id, callsign, painted_as, orig_iata, dest_iata, aircraft_type, altitude_ft, groundspeed_kt, distance_nm, takeoff_time, eta, seen_at, raw_json, created_at
		FROM flight_sightings
		WHERE callsign = ? AND seen_at >= ? AND seen_at <= ?
		ORDER BY seen_at ASC
	`, callsign, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flights []models.InboundFlight
	for rows.Next() {
		var f models.InboundFlight
		if err := rows.Scan(&f.ID, &f.FR24ID, &f.Callsign, &f.PaintedAs, &f.OriginIATA, &f.DestIATA, &f.AircraftType, &f.AltitudeFt, &f.GroundspeedKt, &f.DistanceNM, &f.TakeoffTime, &f.ETA, &f.SeenAt, &f.RawJSON, &f.CreatedAt); err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

func (s *Store) CityName(iata string) (string, error) {
	var city string
	err := s.db.QueryRow(`SELECT city FROM airports WHERE iata = ?`, iata).Scan(&city)
	if err == sql.ErrNoRows {
		return iata, nil
	}
	if err != nil {
		return "", err
	}
	return city, nil
}
