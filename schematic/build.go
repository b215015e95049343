package schematic

import (
	"mcusim/errcode"
	"mcusim/parts"
	"mcusim/types"
	"mcusim/wiring"
)

// buildPart constructs one part from cfg into sess, registering its pins in
// byPin so deliverUpdates can route a net update to the part that owns the
// pin. A failure here is scoped to the referring part only (§7): the caller
// still finishes the rest of the batch.
func (s *Service) buildPart(sess *session, cfg types.PartConfig) error {
	p, err := parts.Build(parts.BuildInput{
		ID:             cfg.ID,
		Config:         cfg,
		Graph:          sess.graph,
		Clock:          sess.clock,
		SPIRegistry:    sess.spiReg,
		I2CRegistry:    sess.i2cReg,
		WS2812Registry: sess.ws2812Reg,
		SharedBuffer:   sess.buf,
		RunnerStarted:  sess.started,
	})
	if err != nil {
		s.publishDiag(types.Diagnostic{Code: string(errcode.UnknownPart), Message: err.Error(), PartID: cfg.ID})
		return err
	}
	sess.byID[cfg.ID] = p
	for _, h := range p.PinsByName() {
		sess.byPin[h] = p
	}
	if mcu, ok := p.(*parts.MCU); ok {
		sess.mcu = mcu
	}
	return nil
}

// addWire resolves both endpoints of w and records the wire; an unknown pin
// reference fails only this wire, per §7.
func (s *Service) addWire(sess *session, w types.WireConfig) {
	a, ok := sess.graph.Lookup(w.From)
	if !ok {
		s.publishDiag(types.Diagnostic{Code: string(errcode.UnknownPin), Message: "unknown pin " + w.From, Pin: w.From})
		return
	}
	b, ok := sess.graph.Lookup(w.To)
	if !ok {
		s.publishDiag(types.Diagnostic{Code: string(errcode.UnknownPin), Message: "unknown pin " + w.To, Pin: w.To})
		return
	}
	sess.graph.AddWire(a, b)
}

func (s *Service) removeWire(sess *session, w types.WireConfig) {
	a, ok := sess.graph.Lookup(w.From)
	if !ok {
		return
	}
	b, ok := sess.graph.Lookup(w.To)
	if !ok {
		return
	}
	sess.graph.RemoveWire(a, b)
}

// removePart tombstones a part's pins in the graph and drops it from both
// lookup maps. The graph keeps the pin slots (handles are never reused) so
// this never invalidates a handle another part still holds.
func (s *Service) removePart(sess *session, id string) {
	p, ok := sess.byID[id]
	if !ok {
		return
	}
	for _, h := range p.PinsByName() {
		delete(sess.byPin, h)
	}
	sess.graph.RemovePart(id)
	delete(sess.byID, id)
	if sess.mcu != nil && sess.mcu.ID() == id {
		sess.mcu = nil
	}
}

// deliverUpdates hands each net-resolved input-pin update to the part that
// owns the pin, the same dispatch parts_test.go's deliverNet helper does for
// a single net — generalized here to a whole rebuild's worth of updates.
func (s *Service) deliverUpdates(sess *session, updates []wiring.Update) {
	for _, u := range updates {
		if p, ok := sess.byPin[u.Pin]; ok {
			p.NotifyPinUpdate(u.Pin, u.State, u.PWM)
		}
	}
	s.checkDirty(sess)
}

// rebuild runs the full topology rebuild (structural change or an input
// event, which can change Button-style internal links) and publishes the
// resulting connection list and any short-circuit diagnostics.
func (s *Service) rebuild(sess *session) {
	connections, updates, diags := sess.graph.UpdateNets()
	s.deliverUpdates(sess, updates)
	s.publishEvt("connections", types.ConnectionsMsg{PinLists: connections})
	for _, d := range diags {
		s.publishDiag(d)
	}
}

// publishProperties emits the static, structural property descriptors (the
// human-readable name declared at part-build time) — the top-level
// `properties` event of §6, distinct from a dirty part's own per-snapshot
// `properties` payload.
func (s *Service) publishProperties(sess *session, cfgs []types.PartConfig) {
	var descs []types.PropertyDescriptor
	for _, cfg := range cfgs {
		if cfg.HumanName == "" {
			continue
		}
		descs = append(descs, types.PropertyDescriptor{PartID: cfg.ID, Name: "humanName", Value: cfg.HumanName})
	}
	if len(descs) > 0 {
		s.publishEvt("properties", types.PropertiesMsg{Properties: descs})
	}
}

// checkDirty edge-triggers the `notifyUpdate` event (§6): the first part to
// go dirty after the last `getUpdate` wakes the UI; later ones are folded
// into the same pending batch without repeating the wake.
func (s *Service) checkDirty(sess *session) {
	if sess.pendingNotify {
		return
	}
	for _, p := range sess.byID {
		if p.Dirty() {
			sess.pendingNotify = true
			s.publishEvt("notifyUpdate", types.NotifyUpdateMsg{})
			return
		}
	}
}
