// Package schematic is the simulation core's single-threaded actor: it owns
// the wiring graph, the bus state machines, the part map, and the one
// WebAssembly Runner a session may have running. Its Run loop is grounded
// line-for-line on the teacher's services/hal/internal/core/loop.go: a
// structural-command channel, a hardware-mutation channel, a runner-status
// channel, all serviced from one goroutine that is the sole mutator of
// shared state (§5's concurrency model).
package schematic

import (
	"context"
	"sync/atomic"

	"mcusim/bus"
	"mcusim/clock"
	"mcusim/parts"
	"mcusim/protocols"
	"mcusim/types"
	"mcusim/wiring"
	"mcusim/x/fmtx"
)

// maxI2CBuses bounds the shared buffer's per-bus status region the same way
// wiring.MaxPins bounds its pin-state region: a fixed-size register file,
// not a growable one.
const maxI2CBuses = 8

// session holds everything torn down and rebuilt on every `start` command:
// a fresh graph, a fresh shared buffer, and the one Runner goroutine bound
// to them. Nil until the first `start`; when the Runner exits the session
// stays in place with running cleared, until the next `start` replaces it.
type session struct {
	cancel context.CancelFunc

	graph *wiring.Graph
	buf   *wiring.SharedBuffer

	spiReg    *parts.SPIRegistry
	i2cReg    *parts.I2CRegistry
	ws2812Reg *parts.WS2812Registry

	byID  map[string]parts.Part
	byPin map[wiring.PinHandle]parts.Part

	mcu *parts.MCU

	spiBuses map[int]*protocols.SPIBus
	i2cBuses map[int]*protocols.I2CBus

	started *atomic.Bool
	clock   *clock.Clock
	running bool

	pendingNotify bool
}

// Service is the schematic actor. One Service handles one simulation
// session at a time; a second `start` tears down the first.
type Service struct {
	bus  *bus.Bus
	conn *bus.Connection

	sess *session
}

// NewService creates a Service bound to b, taking its own named connection
// the way bus/cmd/selftest's reqConn/respConn pattern gives each logical
// actor its own Connection over a shared Bus rather than sharing one.
func NewService(b *bus.Bus) *Service {
	return &Service{bus: b, conn: b.NewConnection("schematic")}
}

// Run subscribes to the schematic's three inbound surfaces and services them
// from this goroutine until ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	cmdSub := s.conn.Subscribe(bus.T("schematic", "cmd", "+"))
	hwSub := s.conn.Subscribe(bus.T("schematic", "hw", "+"))
	runnerSub := s.conn.Subscribe(bus.T("schematic", "runner", "status"))
	defer s.conn.Unsubscribe(cmdSub)
	defer s.conn.Unsubscribe(hwSub)
	defer s.conn.Unsubscribe(runnerSub)

	for {
		select {
		case <-ctx.Done():
			s.teardown()
			return
		case msg := <-cmdSub.Channel():
			s.handleCmd(ctx, msg)
		case msg := <-hwSub.Channel():
			s.handleHW(msg)
		case msg := <-runnerSub.Channel():
			s.handleRunnerStatus(msg)
		}
	}
}

func (s *Service) teardown() {
	if s.sess != nil && s.sess.cancel != nil {
		s.sess.cancel()
	}
	s.sess = nil
}

// handleRunnerStatus only watches for the program ending, so a crashed or
// exited Runner's session state doesn't linger as if it were still live;
// the status payload itself is already the UI-facing message (§6), so this
// never republishes it.
func (s *Service) handleRunnerStatus(msg *bus.Message) {
	st, ok := msg.Payload.(types.RunnerStatusMsg)
	if !ok || s.sess == nil {
		return
	}
	switch st.Status {
	case types.StatusExited, types.StatusError:
		s.sess.running = false
	}
}

func (s *Service) publishEvt(name string, payload any) {
	s.conn.Publish(s.conn.NewMessage(bus.T("schematic", "evt", name), payload, false))
}

// publishDiag both logs and surfaces a diagnostic, so a host UI can render
// it without scraping logs while a terminal-attached run still sees it.
func (s *Service) publishDiag(d types.Diagnostic) {
	fmtx.Printf("schematic: diag %s: %s (part=%q pin=%q)\n", d.Code, d.Message, d.PartID, d.Pin)
	s.conn.Publish(s.conn.NewMessage(bus.T("schematic", "diag"), d, false))
}
