package adapter

import (
	"context"

	"go.uber.org/zap"

	"sharkspread/internal/domain"
)

// Lenient wraps a Source and converts every failure into an empty or
// nil result, logging the cause. Callers get a renderable zero state;
// anyone needing to react to failure uses the wrapped Source directly.
type Lenient struct {
	src Source
	log *zap.Logger
}

// NewLenient wraps src. log may be nil.
func NewLenient(src Source, log *zap.Logger) *Lenient {
	if log == nil {
		log = zap.NewNop()
	}
	return &Lenient{src: src, log: log}
}

// Tokens returns the token list, or an empty list on failure.
func (l *Lenient) Tokens(ctx context.Context) []domain.Token {
	tokens, err := l.src.Tokens(ctx)
	if err != nil {
		l.log.Warn("tokens unavailable", zap.Error(err))
		return []domain.Token{}
	}
	return tokens
}

// Price returns one venue quote, or nil on failure.
func (l *Lenient) Price(ctx context.Context, venue domain.Venue, tok domain.Token) *domain.TokenPrice {
	p, err := l.src.Price(ctx, venue, tok)
	if err != nil {
		l.log.Warn("price unavailable",
			zap.String("venue", venue.String()),
			zap.String("symbol", tok.Symbol),
			zap.Error(err))
		return nil
	}
	return p
}

// Snapshot returns the spread view, or nil on failure.
func (l *Lenient) Snapshot(ctx context.Context, tok domain.Token) *domain.SpreadSnapshot {
	s, err := l.src.Snapshot(ctx, tok)
	if err != nil {
		l.log.Warn("snapshot unavailable",
			zap.String("symbol", tok.Symbol),
			zap.Error(err))
		return nil
	}
	return s
}

// History returns stored samples, or an empty sequence on failure.
func (l *Lenient) History(ctx context.Context, symbol string, tf domain.Timeframe, limit int) []*domain.SpreadPoint {
	points, err := l.src.History(ctx, symbol, tf, limit)
	if err != nil {
		l.log.Warn("history unavailable",
			zap.String("symbol", symbol),
			zap.String("timeframe", string(tf)),
			zap.Error(err))
		return []*domain.SpreadPoint{}
	}
	return points
}
