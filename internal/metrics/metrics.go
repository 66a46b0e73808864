// Package metrics provides Prometheus instrumentation.
//
// Metrics registered here:
//
//	tvonline_imports_total                 counter: imports by source and result
//	tvonline_channels_parsed_total         counter: channels emitted by parsers, by source
//	tvonline_entries_dropped_total         counter: playlist entries discarded, by reason
//	tvonline_catalog_channels              gauge:   size of the live collection
//	tvonline_http_requests_total           counter: HTTP requests by method, route and status
//	tvonline_http_request_duration_seconds histogram: HTTP latency by method and route
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Imports counts import attempts by source kind and result (ok, empty, error, superseded).
var Imports = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tvonline_imports_total",
	Help: "Playlist imports by source and result.",
}, []string{"source", "result"})

// ChannelsParsed counts channels produced by the M3U parser and Xtream normalizer.
var ChannelsParsed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tvonline_channels_parsed_total",
	Help: "Channels produced by parsing, by source.",
}, []string{"source"})

// EntriesDropped counts playlist entries that never became channels.
var EntriesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tvonline_entries_dropped_total",
	Help: "Playlist entries discarded during parsing, by reason.",
}, []string{"reason"})

// CatalogChannels tracks the live collection size.
var CatalogChannels = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "tvonline_catalog_channels",
	Help: "Channels currently loaded in the catalog.",
})

// HTTPRequests counts HTTP requests.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tvonline_http_requests_total",
	Help: "Total HTTP requests handled.",
}, []string{"method", "route", "status"})

// HTTPDuration tracks HTTP request latency.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "tvonline_http_request_duration_seconds",
	Help:    "HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "route"})

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one finished HTTP request.
func ObserveRequest(method, route string, status int, elapsed time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
