package ingest

import (
	"net/http"
	"time"
)

// pollTimeout bounds any single upstream request. Both feeds are polled on
// short cycles, so a slow response is abandoned rather than left to queue
// behind the next tick.
const pollTimeout = 30 * time.Second

func newPollClient() *http.Client {
	return &http.Client{Timeout: pollTimeout}
}
