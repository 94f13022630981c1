// Package proxy implements the stateless pass-through handlers that
// let browser clients reach the venue APIs without CORS trouble. Each
// handler rewrites the inbound path onto a fixed upstream base URL and
// re-emits the upstream body with cache and timing headers.
package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"sharkspread/internal/domain"
	"sharkspread/internal/observability"
)

// UpstreamTimeout is the fixed ceiling on one upstream fetch.
const UpstreamTimeout = 30 * time.Second

// ClientAPIKeyHeader is the header browsers send their MEXC key in.
const ClientAPIKeyHeader = "x-api-key"

// mexcAPIKeyHeader is what the keyed MEXC upstream expects instead.
const mexcAPIKeyHeader = "X-MEXC-APIKEY"

// Handler proxies GET requests for one venue.
type Handler struct {
	venue    domain.Venue
	prefix   string // mount prefix stripped from the inbound path
	freeBase string // upstream for unauthenticated requests
	keyBase  string // upstream when an API key is present (MEXC only)
	client   *http.Client
	log      *zap.Logger
}

// Options configures a proxy Handler.
type Options struct {
	Venue    domain.Venue
	Prefix   string // e.g. "/api/mexc/"
	FreeBase string // e.g. "https://api.mexc.com"
	KeyBase  string // keyed-tier base; empty means FreeBase
	Client   *http.Client
	Logger   *zap.Logger
}

// New creates a proxy handler for one venue.
func New(opts Options) *Handler {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: UpstreamTimeout}
	}
	keyBase := opts.KeyBase
	if keyBase == "" {
		keyBase = opts.FreeBase
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		venue:    opts.Venue,
		prefix:   opts.Prefix,
		freeBase: strings.TrimRight(opts.FreeBase, "/"),
		keyBase:  strings.TrimRight(keyBase, "/"),
		client:   client,
		log:      log,
	}
}

// Prefix returns the mount prefix the handler expects to serve under.
func (h *Handler) Prefix() string {
	return h.prefix
}

// ServeHTTP forwards the request upstream and mirrors the response.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	writeCORS(w)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodGet:
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	base := h.freeBase
	apiKey := r.Header.Get(ClientAPIKeyHeader)
	if h.venue == domain.VenueMEXC && apiKey != "" {
		base = h.keyBase
	}

	upstreamURL := base + "/" + strings.TrimPrefix(r.URL.Path, h.prefix)
	if r.URL.RawQuery != "" {
		upstreamURL += "?" + r.URL.RawQuery
	}

	ctx, cancel := context.WithTimeout(r.Context(), UpstreamTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, upstreamURL, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build upstream request")
		return
	}
	req.Header.Set("Accept", "application/json")
	if h.venue == domain.VenueMEXC && apiKey != "" {
		req.Header.Set(mexcAPIKeyHeader, apiKey)
	}

	fetchStart := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		h.log.Warn("upstream fetch failed",
			zap.String("venue", h.venue.String()),
			zap.String("url", upstreamURL),
			zap.Error(err))
		observability.ProxyRequests.WithLabelValues(h.venue.String(), "error").Inc()
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("%s proxy: upstream fetch failed", h.venue))
		return
	}
	defer resp.Body.Close()
	fetchTime := time.Since(fetchStart)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("%s proxy: reading upstream response failed", h.venue))
		return
	}

	w.Header().Set("Content-Type", contentTypeOr(resp, "application/json"))
	w.Header().Set("Cache-Control", "public, max-age=60, s-maxage=60")
	w.Header().Set("X-Fetch-Time", fetchTime.String())
	w.Header().Set("X-Response-Time", time.Since(start).String())

	observability.ProxyRequests.WithLabelValues(h.venue.String(), strconv.Itoa(resp.StatusCode)).Inc()

	// Upstream failures mirror the upstream status, body included.
	w.WriteHeader(resp.StatusCode)
	w.Write(body)
}

func contentTypeOr(resp *http.Response, fallback string) string {
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return fallback
}

func writeCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, x-api-key")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
