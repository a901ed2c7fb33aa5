package api

import (
	"fmt"
	"time"

	"github.com/lexpierrot/plane-display/internal/ingest"
	"github.com/lexpierrot/plane-display/internal/models"
)

// Display hex colors, one per flight category plus a neutral for no data.
const (
	colorGood     = "#017100"
	colorMarginal = "#DC582A"
	colorPoor     = "#B51700"
	colorNeutral  = "#5E5E5E"

	colorApproach = "#004D80"
	colorFinal    = "#E57301"
	colorLanded   = "#017100"
)

// CategoryColor maps a flight category to its display color.
func CategoryColor(category string) string {
	switch category {
	case "VFR":
		return colorGood
	case "MVFR":
		return colorMarginal
	case "IFR", "LIFR":
		return colorPoor
	default:
		return colorNeutral
	}
}

// PhaseColor maps a descent phase to its display color.
func PhaseColor(phase string) string {
	switch phase {
	case "APPROACH":
		return colorApproach
	case "FINAL":
		return colorFinal
	case "LANDED":
		return colorLanded
	default:
		return colorNeutral
	}
}

// WeatherView is the JSON shape of the current conditions panel.
type WeatherView struct {
	Station       string    `json:"station"`
	ObservedAt    time.Time `json:"observed_at"`
	Raw           string    `json:"raw"`
	Category      string    `json:"category"`
	CategoryColor string    `json:"category_color"`
	Wind          string    `json:"wind"`
	Visibility    string    `json:"visibility"`
	Ceiling       string    `json:"ceiling"`
	Altimeter     string    `json:"altimeter"`
	Temperature   string    `json:"temperature"`
	AgeMinutes    int       `json:"age_minutes"`
}

// FlightView is the JSON shape of the inbound flight panel.
type FlightView struct {
	Callsign       string    `json:"callsign"`
	Airline        string    `json:"airline,omitempty"`
	OriginIATA     string    `json:"origin_iata"`
	OriginCity     string    `json:"origin_city"`
	DestIATA       string    `json:"dest_iata"`
	AircraftType   string    `json:"aircraft_type"`
	AltitudeFt     int       `json:"altitude_ft"`
	GroundspeedKt  int       `json:"groundspeed_kt"`
	DistanceNM     float64   `json:"distance_nm"`
	ETAMinutes     float64   `json:"eta_minutes,omitempty"`
	ExpectedAltFt  float64   `json:"expected_altitude_ft,omitempty"`
	DeviationFt    float64   `json:"deviation_ft,omitempty"`
	EstimateValid  bool      `json:"estimate_valid"`
	Phase          string    `json:"phase"`
	PhaseColor     string    `json:"phase_color"`
	Projected      bool      `json:"projected"`
	CapturedAt     time.Time `json:"captured_at"`
}

// DisplaySnapshot is the full payload the display polls for.
type DisplaySnapshot struct {
	Weather     *WeatherView `json:"weather"`
	Flight      *FlightView  `json:"flight"`
	GeneratedAt time.Time    `json:"generated_at"`
}

func weatherView(rec *models.MetarRecord, now time.Time) *WeatherView {
	if rec == nil {
		return nil
	}
	return &WeatherView{
		Station:       rec.Station,
		ObservedAt:    rec.ObservedAt,
		Raw:           rec.Raw,
		Category:      rec.Category,
		CategoryColor: CategoryColor(rec.Category),
		Wind:          formatWind(rec),
		Visibility:    formatVisibility(rec),
		Ceiling:       formatCeiling(rec),
		Altimeter:     formatAltimeter(rec),
		Temperature:   formatTemperature(rec),
		AgeMinutes:    int(now.Sub(rec.ObservedAt).Minutes()),
	}
}

func flightView(status ingest.Status, originCity string) *FlightView {
	view := &FlightView{
		Callsign:      status.Flight.Callsign,
		Airline:       status.Flight.PaintedAs,
		OriginIATA:    status.Flight.OriginIATA,
		OriginCity:    originCity,
		DestIATA:      status.Flight.DestIATA,
		AircraftType:  status.Flight.AircraftType,
		AltitudeFt:    int(status.AltitudeFt),
		DistanceNM:    status.DistanceNM,
		Phase:         string(status.Phase),
		PhaseColor:    PhaseColor(string(status.Phase)),
		Projected:     status.Projected,
		CapturedAt:    status.CapturedAt,
		EstimateValid: status.Estimate.Valid,
	}
	if status.Flight.GroundspeedKt.Valid {
		view.GroundspeedKt = int(status.Flight.GroundspeedKt.Int64)
	}
	if status.Estimate.Valid {
		view.ETAMinutes = status.Estimate.ETAMinutes
		view.ExpectedAltFt = status.Estimate.ExpectedAltitudeFt
		view.DeviationFt = status.Estimate.DeviationFt
	}
	return view
}

func formatWind(rec *models.MetarRecord) string {
	if !rec.WindSpeedKt.Valid {
		return "--"
	}
	if rec.WindSpeedKt.Int64 == 0 {
		return "calm"
	}
	dir := "variable"
	if rec.WindDirDeg.Valid {
		dir = fmt.Sprintf("%03d", rec.WindDirDeg.Int64)
	}
	s := fmt.Sprintf("%s at %d kt", dir, rec.WindSpeedKt.Int64)
	if rec.WindGustKt.Valid {
		s += fmt.Sprintf(" gusting %d", rec.WindGustKt.Int64)
	}
	return s
}

func formatVisibility(rec *models.MetarRecord) string {
	if !rec.VisibilitySM.Valid {
		return "--"
	}
	return fmt.Sprintf("%g SM", rec.VisibilitySM.Float64)
}

func formatCeiling(rec *models.MetarRecord) string {
	if !rec.CeilingFt.Valid {
		return "unlimited"
	}
	return fmt.Sprintf("%d ft", rec.CeilingFt.Int64)
}

func formatAltimeter(rec *models.MetarRecord) string {
	if !rec.AltimeterInHg.Valid {
		return "--"
	}
	return fmt.Sprintf("%.2f inHg", rec.AltimeterInHg.Float64)
}

func formatTemperature(rec *models.MetarRecord) string {
	if !rec.TempC.Valid {
		return "--"
	}
	s := fmt.Sprintf("%d C", rec.TempC.Int64)
	if rec.DewpointC.Valid {
		s += fmt.Sprintf(" / %d C", rec.DewpointC.Int64)
	}
	return s
}
