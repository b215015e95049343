package schematic

import (
	"context"
	"sync/atomic"

	"mcusim/bus"
	"mcusim/clock"
	"mcusim/errcode"
	"mcusim/parts"
	"mcusim/protocols"
	"mcusim/types"
	"mcusim/wiring"
)

// handleCmd dispatches on the verb token of a `schematic/cmd/<verb>` topic —
// the same Topic.At(depth) pattern the teacher's internal/core uses to
// route a capability-control topic to its verb, generalized to a flat
// command set instead of a per-capability tree.
func (s *Service) handleCmd(ctx context.Context, msg *bus.Message) {
	verb, _ := msg.Topic.At(2).(string)
	switch verb {
	case "start":
		s.cmdStart(ctx, msg)
	case "add":
		s.cmdAdd(msg)
	case "remove":
		s.cmdRemove(msg)
	case "playpause":
		s.cmdPlayPause(msg)
	case "input":
		s.cmdInput(msg)
	case "getUpdate":
		s.cmdGetUpdate(msg)
	}
}

// cmdStart tears down any running session and builds a fresh graph, shared
// buffer, and Runner from scratch — the Runner and its WebAssembly instance
// live for exactly one simulation session (spec.md's Lifecycle note), so a
// second `start` never reuses the first session's state.
func (s *Service) cmdStart(ctx context.Context, msg *bus.Message) {
	in, ok := msg.Payload.(types.StartMsg)
	if !ok {
		return
	}
	s.teardown()

	sess := &session{
		graph:     wiring.NewGraph(),
		buf:       wiring.NewSharedBuffer(maxI2CBuses),
		spiReg:    parts.NewSPIRegistry(),
		i2cReg:    parts.NewI2CRegistry(),
		ws2812Reg: parts.NewWS2812Registry(),
		byID:      make(map[string]parts.Part),
		byPin:     make(map[wiring.PinHandle]parts.Part),
		spiBuses:  make(map[int]*protocols.SPIBus),
		i2cBuses:  make(map[int]*protocols.I2CBus),
		started:   new(atomic.Bool),
		clock:     clock.New(),
	}
	s.sess = sess

	for _, cfg := range in.Config.Parts {
		_ = s.buildPart(sess, cfg)
	}
	for _, w := range in.Config.Wires {
		s.addWire(sess, w)
	}
	s.rebuild(sess)
	s.publishProperties(sess, in.Config.Parts)
	s.publishPower(sess)

	mainRef, ok := types.ParsePinRef(in.Config.MainPart)
	if !ok {
		s.publishDiag(types.Diagnostic{Code: string(errcode.UnknownPart), Message: "mainPart must be \"<partId>.<pin>\"", PartID: in.Config.MainPart})
		return
	}
	mcu, ok := sess.byID[mainRef.PartID].(*parts.MCU)
	if !ok {
		s.publishDiag(types.Diagnostic{Code: string(errcode.UnknownPart), Message: "mainPart does not name an mcu part", PartID: mainRef.PartID})
		return
	}
	sess.mcu = mcu

	if len(in.Binary.Bytes) == 0 {
		s.publishDiag(types.Diagnostic{Code: string(errcode.CompileFailed), Message: "binary fetch is not implemented; pass binary.bytes directly"})
		return
	}
	s.spawnRunner(ctx, sess, in.Binary.Bytes, s.argsLine(sess, in.Config.Parts))
}

// argsLine reads the command line off whichever part is configured as the
// board, the source buildArgv/shlex split before handing it to the Runner.
func (s *Service) argsLine(sess *session, cfgs []types.PartConfig) string {
	for _, cfg := range cfgs {
		if cfg.Type == "board" && cfg.Board != nil {
			return cfg.Board.ArgsLine
		}
	}
	return ""
}

// cmdAdd applies a structural delta after a session is already running:
// more parts, more wires, one full topology rebuild.
func (s *Service) cmdAdd(msg *bus.Message) {
	sess := s.sess
	if sess == nil {
		return
	}
	in, ok := msg.Payload.(types.AddMsg)
	if !ok {
		return
	}
	for _, cfg := range in.Parts {
		_ = s.buildPart(sess, cfg)
	}
	for _, w := range in.Wires {
		s.addWire(sess, w)
	}
	s.rebuild(sess)
	s.publishProperties(sess, in.Parts)
	s.publishPower(sess)
}

func (s *Service) cmdRemove(msg *bus.Message) {
	sess := s.sess
	if sess == nil {
		return
	}
	in, ok := msg.Payload.(types.RemoveMsg)
	if !ok {
		return
	}
	for _, w := range in.Wires {
		s.removeWire(sess, w)
	}
	for _, id := range in.Parts {
		s.removePart(sess, id)
	}
	s.rebuild(sess)
	s.publishPower(sess)
}

// cmdPlayPause toggles the session's virtual clock and mirrors the flag into
// the shared buffer's speed cell. A sleeping Runner waits on a Clock
// timeout, and pausing the Clock stops that timeout until Start resumes it;
// the Runner does not read the speed cell. Clock.Pause/Start are called
// directly from this goroutine, which owns the Clock exactly as it owns the
// graph.
func (s *Service) cmdPlayPause(*bus.Message) {
	sess := s.sess
	if sess == nil {
		return
	}
	sess.running = !sess.running
	if sess.running {
		sess.clock.Start()
	} else {
		sess.clock.Pause()
	}
	sess.buf.SetSpeed(sess.running)

	var speed uint8
	if sess.running {
		speed = 1
	}
	s.publishEvt("speed", types.SpeedMsg{Speed: speed})
}

// cmdInput delivers a UI-originated interaction to its target part and
// always runs a full rebuild afterward: a Button's pressed state changes
// its InternalLinker topology, which only a full UpdateNets sees.
func (s *Service) cmdInput(msg *bus.Message) {
	sess := s.sess
	if sess == nil {
		return
	}
	in, ok := msg.Payload.(types.InputMsg)
	if !ok {
		return
	}
	p, ok := sess.byID[in.ID]
	if !ok {
		s.publishDiag(types.Diagnostic{Code: string(errcode.UnknownPart), Message: "unknown part " + in.ID, PartID: in.ID})
		return
	}
	p.HandleInput(in.Event)
	s.rebuild(sess)
}

// cmdGetUpdate collects every dirty part's snapshot, clears the dirty flags,
// and publishes the batch plus a fresh power tree — the accumulate-many/
// clear-once cycle spec.md's addUpdate/getUpdates names.
func (s *Service) cmdGetUpdate(*bus.Message) {
	sess := s.sess
	if sess == nil {
		return
	}
	var updates []types.PartSnapshot
	for _, p := range sess.byID {
		if !p.Dirty() {
			continue
		}
		updates = append(updates, p.GetState())
		p.ClearDirty()
	}
	sess.pendingNotify = false
	s.publishEvt("update", types.UpdateMsg{Updates: updates})
	s.publishPower(sess)
}

func (s *Service) publishPower(sess *session) {
	tree := make(map[string]types.PowerSnapshot)
	for id, p := range sess.byID {
		if pw := p.GetState().Power; pw != nil {
			tree[id] = *pw
		}
	}
	s.publishEvt("power", types.PowerMsg{PowerTree: tree})
}
