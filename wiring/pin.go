// Package wiring holds the electrical model: Pins and Nets kept in flat
// arenas indexed by integer handles instead of pointer-linked structs, per
// the arena-plus-indices redesign for Part -> Pin -> Net -> {Pin} cyclic
// ownership. Net rebuild is an allocation-light pass over two slices, the
// way the teacher's internal/core package keeps claimed pin/bus resources
// in flat, handle-addressed tables rather than an object graph.
package wiring

import "mcusim/types"

// PinHandle indexes Graph.Pins. The zero value is not a sentinel — use
// InvalidPin for "no pin".
type PinHandle int32

// InvalidPin marks the absence of a pin reference.
const InvalidPin PinHandle = -1

// NetHandle indexes Graph.Nets.
type NetHandle int32

// InvalidNet marks a pin that has not yet been placed in a net (valid
// during Part construction, before the first UpdateNets call).
const InvalidNet NetHandle = -1

// Pin is one named terminal of a Part. It is created exactly once when its
// Part is built and lives for the Part's lifetime; Removed tombstones it on
// part removal rather than compacting the arena, so handles held elsewhere
// (a Part's own pin-name -> PinHandle map) never dangle or get reused.
type Pin struct {
	PartID string
	Name   string
	Mode   types.PinMode

	// State is this pin's own requested drive: what it pushes onto its
	// net, independent of what the net ultimately resolves to.
	State types.PinState
	PWM   *types.PWMExtra

	Net NetHandle

	// lastSeen/everSeen back notifyPinUpdate's "only on change" rule.
	lastSeen types.PinState
	everSeen bool

	Removed bool
}

// IsOutput reports whether the pin is actively driving its net (a strong
// low/high/pwm level) as opposed to floating or biased with a pull —
// Pin.set(high) and reading a driven level are only meaningful when this is
// true.
func (p *Pin) IsOutput() bool {
	switch p.State {
	case types.StateLow, types.StateHigh, types.StatePWM:
		return true
	default:
		return false
	}
}

// Ref returns the "<partId>.<pinName>" identifier used on the wire.
func (p *Pin) Ref() string { return p.PartID + "." + p.Name }
