package parts

import (
	"sync/atomic"

	"mcusim/types"
	"mcusim/wiring"
)

func init() {
	RegisterBuilder("mcu", mcuBuilder{})
}

type mcuBuilder struct{}

func (mcuBuilder) Build(in BuildInput) (Part, error) {
	m := &MCU{
		Base:     NewBase(in.ID),
		buf:      in.SharedBuffer,
		started:  in.RunnerStarted,
		byNumber: make(map[int]wiring.PinHandle),
		numberOf: make(map[wiring.PinHandle]int),
	}
	cfg := in.Config.MCU
	if cfg != nil {
		for name, num := range cfg.Pins {
			h := in.Graph.AddPin(in.ID, name, types.PinGPIO)
			m.addPin(name, h)
			m.byNumber[num] = h
			m.numberOf[h] = num
		}
	}
	return m, nil
}

// MCU exposes GPIO/SPI/I2C/PWM/WS2812 facilities to the running program.
// Every program-side hardware operation is forwarded to the Schematic as a
// message by the Runner (mcusim/runner), which then calls the graph
// directly; MCU itself only owns the pin-number <-> PinHandle mapping and
// the shared-buffer mirror of resolved pin state.
type MCU struct {
	Base

	buf     *wiring.SharedBuffer
	started *atomic.Bool

	byNumber map[int]wiring.PinHandle
	numberOf map[wiring.PinHandle]int
}

// PinHandleForNumber resolves a program-facing pin number to its graph
// handle, used by the Runner when servicing __tinygo_gpio_* calls.
func (m *MCU) PinHandleForNumber(num int) (wiring.PinHandle, bool) {
	h, ok := m.byNumber[num]
	return h, ok
}

// NotifyPinUpdate mirrors the pin's resolved state into the shared buffer
// once the Runner has started; before that there is no program reading it,
// so the write is skipped entirely rather than racing construction.
func (m *MCU) NotifyPinUpdate(pin wiring.PinHandle, state types.PinState, pwm *types.PWMExtra) {
	if m.buf == nil || m.started == nil || !m.started.Load() {
		return
	}
	num, ok := m.numberOf[pin]
	if !ok {
		return
	}
	m.buf.SetPinState(num, state)
}

func (m *MCU) HandleInput(types.InputEvent) {}

func (m *MCU) GetState() types.PartSnapshot { return types.PartSnapshot{ID: m.ID()} }
