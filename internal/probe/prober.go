// Package probe classifies endpoint reachability by periodically
// opening a short-lived WebSocket handshake and recording the outcome.
package probe

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"sharkspread/internal/domain"
)

// Default probe timings.
const (
	DefaultInterval         = 30 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
)

// Status is the prober's current view plus its attempt counters.
type Status struct {
	State    domain.ConnState
	Attempts int       // total probe cycles run
	Failures int       // cycles that did not reach connected
	LastAt   time.Time // when the last cycle finished
}

// Listener receives state transitions. Called outside the lock, from
// the probe goroutine.
type Listener func(old, new domain.ConnState)

// Prober runs the probe cycle. Failures are terminal for their cycle;
// the next tick is the only recovery mechanism, with no backoff.
type Prober struct {
	endpoint  string
	interval  time.Duration
	handshake time.Duration
	listener  Listener
	log       *zap.Logger

	mu     sync.RWMutex
	status Status
}

// Options configures a Prober.
type Options struct {
	Endpoint         string
	Interval         time.Duration // default 30s
	HandshakeTimeout time.Duration // default 10s
	Listener         Listener
	Logger           *zap.Logger
}

// New creates a Prober. The initial state is connecting until the
// first cycle completes.
func New(opts Options) *Prober {
	interval := opts.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	handshake := opts.HandshakeTimeout
	if handshake == 0 {
		handshake = DefaultHandshakeTimeout
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Prober{
		endpoint:  opts.Endpoint,
		interval:  interval,
		handshake: handshake,
		listener:  opts.Listener,
		log:       log,
		status:    Status{State: domain.ConnConnecting},
	}
}

// Status returns the last probe outcome and counters.
func (p *Prober) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// State returns just the connection state.
func (p *Prober) State() domain.ConnState {
	return p.Status().State
}

// Check runs a single probe cycle and returns the resulting state.
func (p *Prober) Check(ctx context.Context) domain.ConnState {
	p.probe(ctx)
	return p.State()
}

// Run probes immediately and then on every interval tick regardless of
// the current state. It blocks until the context is cancelled, which
// also aborts any in-flight dial.
func (p *Prober) Run(ctx context.Context) error {
	p.probe(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.probe(ctx)
		}
	}
}

// probe runs one cycle: dial, classify, close immediately on success.
func (p *Prober) probe(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	p.transition(domain.ConnConnecting, false)

	dialCtx, cancel := context.WithTimeout(ctx, p.handshake)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: p.handshake}
	conn, _, err := dialer.DialContext(dialCtx, p.endpoint, nil)
	if err != nil {
		state := domain.ConnError
		if dialCtx.Err() != nil {
			state = domain.ConnDisconnected
		}
		p.log.Warn("probe failed",
			zap.String("endpoint", p.endpoint),
			zap.String("state", state.String()),
			zap.Error(err))
		p.transition(state, true)
		return
	}

	// Handshake confirmed; the socket has served its purpose.
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	p.transition(domain.ConnConnected, true)
}

// transition updates status and notifies the listener on change.
// countCycle marks the end of a cycle for the counters.
func (p *Prober) transition(state domain.ConnState, countCycle bool) {
	p.mu.Lock()
	old := p.status.State
	p.status.State = state
	if countCycle {
		p.status.Attempts++
		if state != domain.ConnConnected {
			p.status.Failures++
		}
		p.status.LastAt = time.Now()
	}
	p.mu.Unlock()

	if p.listener != nil && old != state {
		p.listener(old, state)
	}
}
