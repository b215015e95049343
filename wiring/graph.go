package wiring

import (
	"math/rand/v2"

	"mcusim/types"
)

// Wire is a resolved undirected edge between two pins.
type Wire struct {
	A, B PinHandle
}

// InternalLinker lets a Part fold its own pins into a single net without a
// user-visible wire — the mechanism a closed Button uses to tie its A and B
// terminals into one net only while pressed. Graph.UpdateNets asks every
// registered linker for its current pairs on every rebuild, exactly the
// way it asks the wire list for its pairs.
type InternalLinker interface {
	InternalLinks() [][2]PinHandle
}

// Update describes one pin whose net-resolved state changed since the last
// rebuild and that is not itself driving (i.e. an input pin, the only kind
// notifyPinUpdate is delivered to).
type Update struct {
	Pin   PinHandle
	State types.PinState
	PWM   *types.PWMExtra
}

// Graph is the Pin/Net arena plus the wire list. It is owned and mutated
// exclusively by the Schematic actor goroutine, so — like the teacher's
// internal/core resource tables, which are likewise touched only from
// HAL.Run's single loop — it carries no internal locking.
type Graph struct {
	Pins  []Pin
	Nets  []Net
	Wires []Wire

	byRef   map[string]PinHandle
	linkers map[string]InternalLinker // partID -> linker, if it has one
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		byRef:   make(map[string]PinHandle),
		linkers: make(map[string]InternalLinker),
	}
}

// AddPin creates a new pin for partID, returning its handle. A pin is
// created exactly once, when its Part is built.
func (g *Graph) AddPin(partID, name string, mode types.PinMode) PinHandle {
	h := PinHandle(len(g.Pins))
	g.Pins = append(g.Pins, Pin{
		PartID: partID,
		Name:   name,
		Mode:   mode,
		State:  types.StateFloating,
		Net:    InvalidNet,
	})
	g.byRef[partID+"."+name] = h
	return h
}

// Lookup resolves a "<partId>.<pinName>" reference to a handle.
func (g *Graph) Lookup(ref string) (PinHandle, bool) {
	h, ok := g.byRef[ref]
	return h, ok
}

// RegisterLinker attaches a Part's InternalLinker so UpdateNets folds its
// internal pin pairs into the rebuild.
func (g *Graph) RegisterLinker(partID string, linker InternalLinker) {
	g.linkers[partID] = linker
}

// AddWire records a wire between two existing pins.
func (g *Graph) AddWire(a, b PinHandle) {
	g.Wires = append(g.Wires, Wire{A: a, B: b})
}

// RemoveWire removes the first wire matching either orientation of (a, b).
func (g *Graph) RemoveWire(a, b PinHandle) bool {
	for i, w := range g.Wires {
		if (w.A == a && w.B == b) || (w.A == b && w.B == a) {
			g.Wires = append(g.Wires[:i], g.Wires[i+1:]...)
			return true
		}
	}
	return false
}

// RemovePart tombstones every pin owned by partID and drops wires and
// linkers that reference it. Handles are never reused or compacted.
func (g *Graph) RemovePart(partID string) {
	for i := range g.Pins {
		if g.Pins[i].PartID == partID {
			g.Pins[i].Removed = true
			delete(g.byRef, g.Pins[i].Ref())
		}
	}
	delete(g.linkers, partID)

	kept := g.Wires[:0]
	for _, w := range g.Wires {
		if g.Pins[w.A].Removed || g.Pins[w.B].Removed {
			continue
		}
		kept = append(kept, w)
	}
	g.Wires = kept
}

// UpdateNets is the full rebuild: every pin starts in its own singleton
// net, wires and Part-internal links are folded in with union-by-size, and
// each resulting net is resolved once. It returns the pin groupings (for
// the UI's `connections` message), the set of input pins whose resolved
// state changed since the previous rebuild, and any short-circuit
// diagnostics.
func (g *Graph) UpdateNets() (connections [][]string, updates []Update, diags []types.Diagnostic) {
	n := len(g.Pins)
	parent := make([]int32, n)
	size := make([]int32, n)
	for i := range parent {
		parent[i] = int32(i)
		size[i] = 1
	}
	var find func(int32) int32
	find = func(x int32) int32 {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int32) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if size[ra] < size[rb] {
			ra, rb = rb, ra
		}
		parent[rb] = ra
		size[ra] += size[rb]
	}

	for _, w := range g.Wires {
		if g.Pins[w.A].Removed || g.Pins[w.B].Removed {
			continue
		}
		union(int32(w.A), int32(w.B))
	}
	for _, linker := range g.linkers {
		for _, pair := range linker.InternalLinks() {
			a, b := pair[0], pair[1]
			if int(a) >= n || int(b) >= n || g.Pins[a].Removed || g.Pins[b].Removed {
				continue
			}
			union(int32(a), int32(b))
		}
	}

	groups := make(map[int32][]PinHandle)
	var order []int32
	for i := range g.Pins {
		if g.Pins[i].Removed {
			continue
		}
		r := find(int32(i))
		if _, ok := groups[r]; !ok {
			order = append(order, r)
		}
		groups[r] = append(groups[r], PinHandle(i))
	}

	g.Nets = make([]Net, 0, len(order))
	connections = make([][]string, 0, len(order))
	for _, r := range order {
		members := groups[r]
		netIdx := NetHandle(len(g.Nets))
		state, pwm, short := resolveNet(g.Pins, members)
		g.Nets = append(g.Nets, Net{Pins: members, State: state, PWM: pwm, Short: short})

		refs := make([]string, len(members))
		for i, h := range members {
			g.Pins[h].Net = netIdx
			refs[i] = g.Pins[h].Ref()
		}
		connections = append(connections, refs)

		if short {
			diags = append(diags, types.Diagnostic{
				Code:    "short_circuit",
				Message: "conflicting drivers on net",
				PartID:  g.Pins[members[0]].PartID,
			})
		}

		for _, h := range members {
			p := &g.Pins[h]
			if p.IsOutput() {
				continue // notifyPinUpdate goes only to input pins
			}
			if p.everSeen && p.lastSeen == state {
				continue
			}
			p.lastSeen = state
			p.everSeen = true
			updates = append(updates, Update{Pin: h, State: state, PWM: pwm})
		}
	}
	return connections, updates, diags
}

// UpdateNet recomputes the resolved state of the single net containing h,
// without touching topology — the per-pin Net.updateState() counterpart to
// UpdateNets' full rebuild, used after an electrical change (a pin driven
// by the program, a display's busy line) rather than a structural one. It
// returns the input-pin updates and short diagnostic for just that net.
func (g *Graph) UpdateNet(h PinHandle) (updates []Update, diag *types.Diagnostic) {
	if int(h) < 0 || int(h) >= len(g.Pins) {
		return nil, nil
	}
	nh := g.Pins[h].Net
	if nh == InvalidNet || int(nh) >= len(g.Nets) {
		return nil, nil
	}
	members := g.Nets[nh].Pins
	state, pwm, short := resolveNet(g.Pins, members)
	g.Nets[nh].State = state
	g.Nets[nh].PWM = pwm
	g.Nets[nh].Short = short

	if short {
		diag = &types.Diagnostic{
			Code:    "short_circuit",
			Message: "conflicting drivers on net",
			PartID:  g.Pins[members[0]].PartID,
		}
	}
	for _, mh := range members {
		p := &g.Pins[mh]
		if p.IsOutput() {
			continue
		}
		if p.everSeen && p.lastSeen == state {
			continue
		}
		p.lastSeen = state
		p.everSeen = true
		updates = append(updates, Update{Pin: mh, State: state, PWM: pwm})
	}
	return updates, diag
}

// NetOf returns the net a pin currently resolves to, or (Net{}, false) if
// the pin has never been placed in a net.
func (g *Graph) NetOf(h PinHandle) (Net, bool) {
	if int(h) < 0 || int(h) >= len(g.Pins) {
		return Net{}, false
	}
	nh := g.Pins[h].Net
	if nh == InvalidNet || int(nh) >= len(g.Nets) {
		return Net{}, false
	}
	return g.Nets[nh], true
}

// Get returns the boolean level a pin reads, per the net it currently
// belongs to. Reading a floating net is non-deterministic and reported via
// diag=true; reading a driven or biased net is well-defined.
func (g *Graph) Get(h PinHandle) (value bool, diag bool) {
	net, ok := g.NetOf(h)
	if !ok {
		return false, true
	}
	switch net.State {
	case types.StateHigh, types.StatePullup:
		return true, false
	case types.StateLow, types.StatePulldown:
		return false, false
	case types.StatePWM:
		if net.PWM != nil {
			return net.PWM.DutyCycle >= 0.5, false
		}
		return false, false
	default: // floating
		return rand.IntN(2) == 1, true
	}
}

// SetState mutates a pin's own drive state and optional PWM extra — the
// general form used to configure a mode (floating, pulled, output) before
// the next UpdateNets propagates the change.
func (g *Graph) SetState(h PinHandle, state types.PinState, pwm *types.PWMExtra) {
	p := &g.Pins[h]
	p.State = state
	p.PWM = pwm
}

// SetOutput is the set(high) convenience: it only ever changes the level of
// a pin already configured as an output. Calling it on a non-output pin is
// a no-op and is reported via diag=true.
func (g *Graph) SetOutput(h PinHandle, high bool) (diag bool) {
	p := &g.Pins[h]
	if !p.IsOutput() {
		return true
	}
	if high {
		p.State = types.StateHigh
	} else {
		p.State = types.StateLow
	}
	p.PWM = nil
	return false
}
