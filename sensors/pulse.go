package sensors

import "sync/atomic"

// PulseCounter accumulates wind pulses. OnPulse is the only writer;
// ReadAndReset drains it once per acquisition cycle.
type PulseCounter struct {
	count atomic.Uint64
}

// OnPulse is called from the edge handler for every pulse.
func (p *PulseCounter) OnPulse() {
	p.count.Add(1)
}

// ReadAndReset returns the pulses since the previous call. The read and the
// reset are one atomic exchange, so a concurrent pulse lands in exactly one window.
func (p *PulseCounter) ReadAndReset() uint64 {
	return p.count.Swap(0)
}

// Count peeks at the current count without resetting it.
func (p *PulseCounter) Count() uint64 {
	return p.count.Load()
}
