// Package readiness holds the process-wide startup flag read by the probes.
package readiness

import "sync/atomic"

// Probe reports whether startup has completed
type Probe struct {
	up atomic.Bool
}

// Up marks the process as ready to receive events
func (p *Probe) Up() {
	p.up.Store(true)
}

// Down marks the process as not ready, e.g. while draining
func (p *Probe) Down() {
	p.up.Store(false)
}

// Ready reports the current state
func (p *Probe) Ready() bool {
	return p.up.Load()
}
