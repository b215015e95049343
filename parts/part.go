// Package parts holds the fixed variant set of simulated hardware blocks —
// MCU, Board, Button, LED, RGBLED, WS2812, EPD2IN13, EPD2IN13X, ST7789,
// Servo, Dummy — behind one small capability interface, the way the source
// system's prototype-based part hierarchy is re-architected into a tagged
// variant set (see the design notes on that redesign).
package parts

import (
	"sync/atomic"

	"mcusim/clock"
	"mcusim/protocols"
	"mcusim/types"
	"mcusim/wiring"
)

// Part is the capability set every variant implements: getState,
// notifyPinUpdate, handleInput, pinsByName.
type Part interface {
	ID() string
	PinsByName() map[string]wiring.PinHandle

	// NotifyPinUpdate is delivered only for input pins whose resolved net
	// state changed, per wiring.Graph.UpdateNets.
	NotifyPinUpdate(pin wiring.PinHandle, state types.PinState, pwm *types.PWMExtra)

	// HandleInput applies a UI-originated interaction (a button press, say).
	// Parts that accept no input simply ignore it.
	HandleInput(event types.InputEvent)

	// Dirty reports whether GetState should be included in the next batch,
	// and ClearDirty resets the flag once it has been collected.
	Dirty() bool
	ClearDirty()

	// GetState renders the part's current snapshot for the UI. Implicitly
	// clears nothing; ClearDirty is a separate step so a caller can peek
	// without consuming the flag.
	GetState() types.PartSnapshot
}

// Base holds what every concrete part needs regardless of variant: its ID,
// its pin-name table, and the accumulate-many/clear-once dirty flag
// (addUpdate/getUpdates in the spec's vocabulary). Embed it rather than
// reimplementing Dirty/ClearDirty/PinsByName/ID on every variant.
type Base struct {
	id    string
	pins  map[string]wiring.PinHandle
	dirty bool
}

func NewBase(id string) Base {
	return Base{id: id, pins: make(map[string]wiring.PinHandle)}
}

func (b *Base) ID() string                             { return b.id }
func (b *Base) PinsByName() map[string]wiring.PinHandle { return b.pins }
func (b *Base) addPin(name string, h wiring.PinHandle)  { b.pins[name] = h }
func (b *Base) pin(name string) wiring.PinHandle        { return b.pins[name] }
func (b *Base) MarkDirty()                              { b.dirty = true }
func (b *Base) Dirty() bool                             { return b.dirty }
func (b *Base) ClearDirty()                             { b.dirty = false }

// BuildInput is handed to a Builder to construct one Part: the part's own
// ID and config, plus the shared collaborators every variant may need to
// wire pins, register an internal link, or place itself on a bus.
type BuildInput struct {
	ID     string
	Config types.PartConfig
	Graph  *wiring.Graph
	Clock  *clock.Clock

	// SPIRegistry/I2CRegistry/WS2812Registry let a part register itself as
	// the peripheral behind one of its own pins (an SPI display, say);
	// Runner-facing buses are built by the caller and given these
	// registries once every part has registered.
	SPIRegistry    *SPIRegistry
	I2CRegistry    *I2CRegistry
	WS2812Registry *WS2812Registry

	// SharedBuffer and RunnerStarted are only meaningful to the MCU
	// builder: the buffer is the program-visible register file, and
	// RunnerStarted gates the "once the Runner has started" clause on
	// writing pin state into it.
	SharedBuffer  *wiring.SharedBuffer
	RunnerStarted *atomic.Bool
}

// Builder constructs one Part from config. Every concrete variant
// self-registers a Builder under its type tag via init(), the way the
// teacher's device packages self-register under services/hal.RegisterBuilder.
type Builder interface {
	Build(in BuildInput) (Part, error)
}

// SPIRegistry and I2CRegistry are the resolver-building counterparts to
// protocols.SPIResolver/I2CResolver: parts register themselves as they are
// built, and the Schematic later hands the populated registry to whichever
// SPIBus/I2CBus values it owns.
type SPIRegistry struct {
	byPin map[wiring.PinHandle]protocols.SPIPeripheral
}

func NewSPIRegistry() *SPIRegistry {
	return &SPIRegistry{byPin: make(map[wiring.PinHandle]protocols.SPIPeripheral)}
}
func (r *SPIRegistry) Register(pin wiring.PinHandle, p protocols.SPIPeripheral) { r.byPin[pin] = p }
func (r *SPIRegistry) SPIPeripheralFor(pin wiring.PinHandle) (protocols.SPIPeripheral, bool) {
	p, ok := r.byPin[pin]
	return p, ok
}

type I2CRegistry struct {
	byAddr map[uint16]protocols.I2CPeripheral
}

func NewI2CRegistry() *I2CRegistry {
	return &I2CRegistry{byAddr: make(map[uint16]protocols.I2CPeripheral)}
}
func (r *I2CRegistry) Register(addr uint16, p protocols.I2CPeripheral) { r.byAddr[addr] = p }
func (r *I2CRegistry) I2CPeripheralAt(addr uint16) (protocols.I2CPeripheral, bool) {
	p, ok := r.byAddr[addr]
	return p, ok
}

// WS2812Registry maps a din pin to the strip part behind it, mirroring
// SPIRegistry/I2CRegistry so ForwardWS2812 never needs to know about the
// part registry itself.
type WS2812Registry struct {
	byPin map[wiring.PinHandle]protocols.WS2812Sink
}

func NewWS2812Registry() *WS2812Registry {
	return &WS2812Registry{byPin: make(map[wiring.PinHandle]protocols.WS2812Sink)}
}
func (r *WS2812Registry) Register(pin wiring.PinHandle, s protocols.WS2812Sink) { r.byPin[pin] = s }
func (r *WS2812Registry) WS2812SinkFor(pin wiring.PinHandle) (protocols.WS2812Sink, bool) {
	s, ok := r.byPin[pin]
	return s, ok
}
