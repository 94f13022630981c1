package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	VenuePrice = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sharkspread_venue_price_usd",
		Help: "Last fetched price (USD) per venue and symbol",
	}, []string{"venue", "symbol"})

	SpreadPct = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sharkspread_spread_percent",
		Help: "CEX/DEX spread percent per symbol and DEX",
	}, []string{"symbol", "dex"})

	FetchErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sharkspread_fetch_errors_total",
		Help: "Number of failed venue fetches",
	}, []string{"venue"})

	FetchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sharkspread_fetch_latency_seconds",
		Help:    "Time to obtain a venue quote",
		Buckets: prometheus.DefBuckets,
	}, []string{"venue"})

	VenueUp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sharkspread_venue_up",
		Help: "Venue websocket reachability, 1 when the last handshake succeeded",
	}, []string{"venue"})

	SamplesStored = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sharkspread_samples_stored_total",
		Help: "Number of spread samples written to history",
	})

	SamplesPruned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sharkspread_samples_pruned_total",
		Help: "Number of spread samples removed by retention",
	})

	FeedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sharkspread_feed_clients",
		Help: "Connected websocket feed clients",
	})

	ProxyRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sharkspread_proxy_requests_total",
		Help: "Proxied upstream requests by venue and status",
	}, []string{"venue", "status"})
)

func init() {
	prometheus.MustRegister(
		VenuePrice,
		SpreadPct,
		FetchErrors,
		FetchLatency,
		VenueUp,
		SamplesStored,
		SamplesPruned,
		FeedClients,
		ProxyRequests,
	)
}
