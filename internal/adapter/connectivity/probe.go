// Package connectivity watches network reachability by periodically dialing
// a probe target and debouncing the offline-to-online transition.
package connectivity

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/pos-sync/internal/port"
)

// DialFunc probes reachability once. A nil error means the remote is up.
type DialFunc func(ctx context.Context) error

// TCPDialer probes a host:port address over TCP.
func TCPDialer(addr string, timeout time.Duration) DialFunc {
	return func(ctx context.Context) error {
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

// Probe implements port.ConnectivityMonitor. The link counts as online only
// after it stayed up for the debounce interval; a flap shorter than that
// never produces a BecameOnline edge.
type Probe struct {
	dial     DialFunc
	interval time.Duration
	debounce time.Duration
	log      *logrus.Logger

	online atomic.Bool
	events chan port.Edge

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewProbe(dial DialFunc, interval, debounce time.Duration, log *logrus.Logger) *Probe {
	return &Probe{
		dial:     dial,
		interval: interval,
		debounce: debounce,
		log:      log,
		events:   make(chan port.Edge, 16),
	}
}

func (p *Probe) Online() bool {
	return p.online.Load()
}

func (p *Probe) Events() <-chan port.Edge {
	return p.events
}

// Start begins polling. The initial state is probed synchronously so callers
// can rely on Online() right away; no edge is emitted for it.
func (p *Probe) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.online.Store(p.probe(ctx))

	p.wg.Add(1)
	go p.loop(ctx)
}

// Stop halts polling and closes the event channel.
func (p *Probe) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	close(p.events)
}

func (p *Probe) probe(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()
	return p.dial(probeCtx) == nil
}

func (p *Probe) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var upSince time.Time
	if p.online.Load() {
		upSince = time.Now().Add(-p.debounce)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		up := p.probe(ctx)
		now := time.Now()

		switch {
		case !up:
			upSince = time.Time{}
			if p.online.Load() {
				p.online.Store(false)
				p.log.Warn("connectivity lost")
				p.emit(ctx, port.BecameOffline)
			}
		case p.online.Load():
			// Already stable online.
		default:
			if upSince.IsZero() {
				upSince = now
			}
			if now.Sub(upSince) >= p.debounce {
				p.online.Store(true)
				p.log.WithField("debounce", p.debounce).Info("connectivity restored")
				p.emit(ctx, port.BecameOnline)
			}
		}
	}
}

func (p *Probe) emit(ctx context.Context, edge port.Edge) {
	select {
	case p.events <- edge:
	case <-ctx.Done():
	}
}
