package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const defaultMetarAPIBase = "https://aviationweather.gov"

// MetarSource fetches raw METAR text from the Aviation Weather Center data
// API.
type MetarSource struct {
	baseURL string
	client  *http.Client
}

func NewMetarSource() *MetarSource {
	return &MetarSource{
		baseURL: defaultMetarAPIBase,
		client:  newPollClient(),
	}
}

// WithBaseURL overrides the API base URL. Used by tests.
func (s *MetarSource) WithBaseURL(base string) *MetarSource {
	s.baseURL = base
	return s
}

// Fetch returns the latest raw METAR line for the station.
func (s *MetarSource) Fetch(ctx context.Context, station string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/data/metar?ids=%s&format=raw", s.baseURL, url.QueryEscape(station))

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch metar: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("fetch metar: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch metar: status %d: %s", resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return "", err
	}

	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return "", fmt.Errorf("no report returned for %s", station)
	}
	// The raw format returns one report per line; the first is the latest.
	if i := strings.IndexByte(raw, '\n'); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	return raw, nil
}
