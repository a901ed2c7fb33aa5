package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FlightAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planedisplay_flight_api_calls_total",
			Help: "Total flight-tracking API calls",
		},
		[]string{"endpoint", "status"},
	)

	FlightAPILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "planedisplay_flight_api_latency_seconds",
			Help:    "Flight-tracking API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	MetarFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planedisplay_metar_fetches_total",
			Help: "Total METAR fetch attempts by source and outcome",
		},
		[]string{"source", "status"},
	)

	MetarParseFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "planedisplay_metar_parse_failures_total",
			Help: "METAR reports rejected by the parser",
		},
	)

	FlightsCaptured = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "planedisplay_flights_captured_total",
			Help: "Inbound flights captured for descent tracking",
		},
	)
)
