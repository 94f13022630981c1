package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"sharkspread/internal/apperr"
	"sharkspread/internal/domain"
)

// Backend reads everything from a sharkspread gateway's REST API.
type Backend struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// BackendOptions configures a Backend source.
type BackendOptions struct {
	BaseURL string
	Client  *http.Client // default: 15s timeout
	Logger  *zap.Logger
}

// NewBackend creates a gateway-backed source. An empty BaseURL yields
// a source whose every call fails with a not-configured error, which
// is what hybrid mode expects when no gateway is known.
func NewBackend(opts BackendOptions) *Backend {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Backend{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  client,
		log:     log,
	}
}

// Tokens lists the tracked tokens from the gateway.
func (b *Backend) Tokens(ctx context.Context) ([]domain.Token, error) {
	var dtos []TokenDTO
	if err := b.getJSON(ctx, "/api/v1/tokens", &dtos); err != nil {
		return nil, err
	}
	out := make([]domain.Token, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, TokenFromDTO(d))
	}
	return out, nil
}

// Price fetches one venue quote from the gateway.
func (b *Backend) Price(ctx context.Context, venue domain.Venue, tok domain.Token) (*domain.TokenPrice, error) {
	q := url.Values{}
	q.Set("venue", venue.String())
	q.Set("symbol", tok.Symbol)

	var dto PriceDTO
	if err := b.getJSON(ctx, "/api/v1/price?"+q.Encode(), &dto); err != nil {
		return nil, err
	}
	return PriceFromDTO(dto), nil
}

// Snapshot fetches the assembled spread view from the gateway.
func (b *Backend) Snapshot(ctx context.Context, tok domain.Token) (*domain.SpreadSnapshot, error) {
	q := url.Values{}
	q.Set("symbol", tok.Symbol)
	q.Set("chain", tok.Chain.String())

	var dto SnapshotDTO
	if err := b.getJSON(ctx, "/api/v1/spread?"+q.Encode(), &dto); err != nil {
		return nil, err
	}
	return SnapshotFromDTO(dto), nil
}

// History fetches stored samples from the gateway.
func (b *Backend) History(ctx context.Context, symbol string, tf domain.Timeframe, limit int) ([]*domain.SpreadPoint, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("timeframe", string(tf))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var dtos []PointDTO
	if err := b.getJSON(ctx, "/api/v1/spread/history?"+q.Encode(), &dtos); err != nil {
		return nil, err
	}
	out := make([]*domain.SpreadPoint, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, PointFromDTO(d))
	}
	return out, nil
}

// Healthz probes the gateway's health endpoint. Used by hybrid mode's
// recovery ticker.
func (b *Backend) Healthz(ctx context.Context) error {
	return b.getJSON(ctx, "/healthz", nil)
}

func (b *Backend) getJSON(ctx context.Context, path string, out interface{}) error {
	if b.baseURL == "" {
		return apperr.New(apperr.KindUnavailable, "backend URL not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		kind := apperr.KindUnavailable
		if ctx.Err() != nil {
			kind = apperr.KindTimeout
		}
		return apperr.Wrap(kind, "backend unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		// The gateway answers errors as {"error": "..."}.
		var envelope struct {
			Error string `json:"error"`
		}
		message := fmt.Sprintf("backend returned %d", resp.StatusCode)
		if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
			message = envelope.Error
		}
		kind := apperr.KindUpstream
		if resp.StatusCode == http.StatusNotFound {
			kind = apperr.KindNotFound
		}
		return apperr.New(kind, message)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
