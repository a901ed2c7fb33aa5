package models

import (
	"database/sql"
	"time"
)

// Airport is a display-name lookup entry, seeded at startup from the
// embedded airport list.
type Airport struct {
	IATA string
	City string
}

// InboundFlight is one polled sighting of an aircraft inbound to the
// configured airport. Rebuilt from scratch on every poll cycle; only the
// callsign carries display continuity between cycles.
type InboundFlight struct {
	ID            int64
	FR24ID        string
	Callsign      string
	PaintedAs     string
	OriginIATA    string
	DestIATA      string
	AircraftType  string
	AltitudeFt    sql.NullInt64
	GroundspeedKt sql.NullInt64
	DistanceNM    sql.NullFloat64
	TakeoffTime   sql.NullTime
	ETA           sql.NullTime
	SeenAt        time.Time
	RawJSON       string
	CreatedAt     time.Time
}

// MetarRecord is a parsed weather report as persisted. Optional METAR
// fields that were not reported stay null.
type MetarRecord struct {
	ID            int64
	Station       string
	ObservedAt    time.Time
	Raw           string
	Category      string
	WindDirDeg    sql.NullInt64
	WindSpeedKt   sql.NullInt64
	WindGustKt    sql.NullInt64
	VisibilitySM  sql.NullFloat64
	CeilingFt     sql.NullInt64
	TempC         sql.NullInt64
	DewpointC     sql.NullInt64
	AltimeterInHg sql.NullFloat64
	CreatedAt     time.Time
}
