package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lexpierrot/plane-display/internal/models"
)

const defaultFlightAPIBase = "https://fr24api.flightradar24.com"

// kmPerNM converts the feed's actual_distance (kilometres) to nautical miles.
const kmPerNM = 1.852

// FlightClient fetches live inbound traffic for a single airport from the
// Flightradar24 API and enriches it with flight-summary data.
type FlightClient struct {
	apiKey       string
	baseURL      string
	airportIATA  string
	bounds       string
	altCeilingFt int
	client       *http.Client
}

func NewFlightClient(apiKey, airportIATA, bounds string, altCeilingFt int) *FlightClient {
	return &FlightClient{
		apiKey:       apiKey,
		baseURL:      defaultFlightAPIBase,
		airportIATA:  airportIATA,
		bounds:       bounds,
		altCeilingFt: altCeilingFt,
		client:       newPollClient(),
	}
}

// WithBaseURL overrides the API base URL. Used by tests.
func (c *FlightClient) WithBaseURL(base string) *FlightClient {
	c.baseURL = base
	return c
}

type positionsResponse struct {
	Data []positionRecord `json:"data"`
}

type positionRecord struct {
	FR24ID    string   `json:"fr24_id"`
	Callsign  string   `json:"callsign"`
	PaintedAs string   `json:"painted_as"`
	OrigIATA  string   `json:"orig_iata"`
	DestIATA  string   `json:"dest_iata"`
	Type      string   `json:"type"`
	Alt       *int     `json:"alt"`
	Gspeed    *int     `json:"gspeed"`
	Timestamp string   `json:"timestamp"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
}

type summaryResponse struct {
	Data []summaryRecord `json:"data"`
}

type summaryRecord struct {
	FR24ID          string   `json:"fr24_id"`
	DatetimeTakeoff *string  `json:"datetime_takeoff"`
	ETA             *string  `json:"eta"`
	ActualDistance  *float64 `json:"actual_distance"`
}

// FetchInbound returns the closest aircraft currently inbound to the
// configured airport, or nil when nothing is on approach. The raw positions
// body is returned alongside for archival.
func (c *FlightClient) FetchInbound(ctx context.Context) (*models.InboundFlight, string, error) {
	params := url.Values{}
	params.Set("airports", "inbound:"+c.airportIATA)
	params.Set("bounds", c.bounds)
	params.Set("altitude_ranges", fmt.Sprintf("0-%d", c.altCeilingFt))
	params.Set("categories", "P,C")

	body, err := c.get(ctx, "/api/live/flight-positions/full", params)
	if err != nil {
		return nil, "", err
	}

	var positions positionsResponse
	if err := json.Unmarshal(body, &positions); err != nil {
		return nil, "", fmt.Errorf("unmarshal positions: %w", err)
	}
	if len(positions.Data) == 0 {
		return nil, string(body), nil
	}

	// The feed orders inbound traffic by proximity; the first record is the
	// one on approach.
	pos := positions.Data[0]
	flight := &models.InboundFlight{
		FR24ID:       pos.FR24ID,
		Callsign:     pos.Callsign,
		PaintedAs:    pos.PaintedAs,
		OriginIATA:   pos.OrigIATA,
		DestIATA:     pos.DestIATA,
		AircraftType: pos.Type,
		SeenAt:       time.Now().UTC(),
		RawJSON:      string(body),
	}
	if pos.Alt != nil {
		flight.AltitudeFt = sql.NullInt64{Int64: int64(*pos.Alt), Valid: true}
	}
	if pos.Gspeed != nil {
		flight.GroundspeedKt = sql.NullInt64{Int64: int64(*pos.Gspeed), Valid: true}
	}

	if err := c.enrich(ctx, flight); err != nil {
		// Summary data is best-effort; the position alone is still usable.
		return flight, string(body), fmt.Errorf("enrich %s: %w", pos.FR24ID, err)
	}
	return flight, string(body), nil
}

// enrich fills takeoff time, ETA and distance remaining from the
// flight-summary endpoint.
func (c *FlightClient) enrich(ctx context.Context, flight *models.InboundFlight) error {
	params := url.Values{}
	params.Set("flight_ids", flight.FR24ID)

	body, err := c.get(ctx, "/api/flight-summary/full", params)
	if err != nil {
		return err
	}

	var summary summaryResponse
	if err := json.Unmarshal(body, &summary); err != nil {
		return fmt.Errorf("unmarshal summary: %w", err)
	}
	if len(summary.Data) == 0 {
		return fmt.Errorf("no summary for %s", flight.FR24ID)
	}

	rec := summary.Data[0]
	if rec.DatetimeTakeoff != nil {
		if t, err := time.Parse(time.RFC3339, *rec.DatetimeTakeoff); err == nil {
			flight.TakeoffTime = sql.NullTime{Time: t.UTC(), Valid: true}
		}
	}
	if rec.ETA != nil {
		if t, err := time.Parse(time.RFC3339, *rec.ETA); err == nil {
			flight.ETA = sql.NullTime{Time: t.UTC(), Valid: true}
		}
	}
	if rec.ActualDistance != nil {
		flight.DistanceNM = sql.NullFloat64{Float64: *rec.ActualDistance / kmPerNM, Valid: true}
	}
	return nil
}

func (c *FlightClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := c.baseURL + path + "?" + params.Encode()

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept-Version", "v1")

		resp, err := c.client.Do(req)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("fetch %s: %w", path, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("rate limited: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch %s: status %d: %s", path, resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}
