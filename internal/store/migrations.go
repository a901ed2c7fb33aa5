package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS airports (
    iata TEXT PRIMARY KEY,
    city TEXT
);

CREATE TABLE IF NOT EXISTS metar_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    station TEXT NOT NULL,
    observed_at DATETIME NOT NULL,
    raw TEXT NOT NULL,
    category TEXT NOT NULL,
    wind_dir_deg INTEGER,
    wind_speed_kt INTEGER,
    wind_gust_kt INTEGER,
    visibility_sm REAL,
    ceiling_ft INTEGER,
    temp_c INTEGER,
    dewpoint_c INTEGER,
    altimeter_inhg REAL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(station, observed_at)
);

CREATE TABLE IF NOT EXISTS flight_sightings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    fr24_id TEXT NOT NULL,
    callsign TEXT,
    painted_as TEXT,
    orig_iata TEXT,
    dest_iata TEXT,
    aircraft_type TEXT,
    altitude_ft INTEGER,
    groundspeed_kt INTEGER,
    distance_nm REAL,
    takeoff_time DATETIME,
    eta DATETIME,
    seen_at DATETIME NOT NULL,
    raw_json TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_metar_station_time ON metar_reports(station, observed_at);
CREATE INDEX IF NOT EXISTS idx_sightings_seen ON flight_sightings(seen_at);
`,
	},
	{
		Version:     2,
		Description: "Index sightings by callsign for history lookups",
		SQL: `
CREATE INDEX IF NOT EXISTS idx_sightings_callsign ON flight_sightings(callsign);
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
