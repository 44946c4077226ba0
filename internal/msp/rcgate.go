package msp

import "sync"

// RCSink consumes RC override channel sets delivered over MSP.
type RCSink interface {
	AcceptRCChannels(channels []uint16)
}

// RCGate sits between the SET_RAW_RC handler and the RC consumer. The
// flight core suspends the gate around storage writes so a half-written
// configuration can never race an RC-driven state change; suspended
// deliveries are counted and dropped.
type RCGate struct {
	mu        sync.Mutex
	suspended bool
	dropped   int
	sink      RCSink
}

func NewRCGate(sink RCSink) *RCGate {
	return &RCGate{sink: sink}
}

func (g *RCGate) SuspendRxSignal() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.suspended = true
}

func (g *RCGate) ResumeRxSignal() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.suspended = false
}

// Deliver forwards one channel set to the sink. It reports false while
// the gate is suspended or when no sink is attached.
func (g *RCGate) Deliver(channels []uint16) bool {
	g.mu.Lock()
	if g.suspended || g.sink == nil {
		if g.suspended {
			g.dropped++
		}
		g.mu.Unlock()

		return false
	}
	sink := g.sink
	g.mu.Unlock()

	sink.AcceptRCChannels(channels)

	return true
}

// Dropped reports how many channel sets were discarded while suspended.
func (g *RCGate) Dropped() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.dropped
}
