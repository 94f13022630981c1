// Package adapter presents one stable surface for token, price, spread
// and history reads regardless of transport: direct venue calls, a
// sharkspread gateway, or a hybrid of the two with fallback.
package adapter

import (
	"context"

	"sharkspread/internal/domain"
)

// Source is the uniform read surface. Implementations return explicit
// errors; callers wanting a renderable zero state instead wrap one in
// Lenient.
type Source interface {
	// Tokens lists the tracked tokens.
	Tokens(ctx context.Context) ([]domain.Token, error)

	// Price returns one venue's current quote for a token.
	Price(ctx context.Context, venue domain.Venue, tok domain.Token) (*domain.TokenPrice, error)

	// Snapshot assembles the full per-venue view with derived spreads.
	Snapshot(ctx context.Context, tok domain.Token) (*domain.SpreadSnapshot, error)

	// History returns stored spread samples for a symbol within the
	// timeframe, oldest first, bounded to at most limit newest points.
	// limit <= 0 means no bound.
	History(ctx context.Context, symbol string, tf domain.Timeframe, limit int) ([]*domain.SpreadPoint, error)
}

// boundHistory keeps the newest limit points of an ascending sequence.
func boundHistory(points []*domain.SpreadPoint, limit int) []*domain.SpreadPoint {
	if limit <= 0 || len(points) <= limit {
		return points
	}
	return points[len(points)-limit:]
}
