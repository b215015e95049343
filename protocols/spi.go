// Package protocols implements the bus state machines that sit on top of
// the wiring graph: SPI, I2C, and the WS2812 one-wire byte stream. Each bus
// type is a narrow, single-purpose interface injected into the part that
// owns it, the way the teacher's internal/core package hands devices an
// I2COwner or StreamOwner rather than a do-everything bus object.
package protocols

import (
	"math/rand/v2"

	"mcusim/types"
	"mcusim/wiring"
)

// SPIRole is which side of the bus a configured SPIBus plays.
type SPIRole uint8

const (
	SPIUnconfigured SPIRole = iota
	SPIController
	SPIPeripheral
)

// SPIPeripheral is implemented by any Part that can answer a transfer on
// its SCK pin — an SPI display, for instance.
type SPIPeripheral interface {
	TransferSPI(sck wiring.PinHandle, w byte) (resp byte, responded bool)
}

// SPIResolver looks up the Part-provided SPIPeripheral behind a given pin
// handle, so SPIBus never needs to know about the part registry itself.
type SPIResolver interface {
	SPIPeripheralFor(pin wiring.PinHandle) (SPIPeripheral, bool)
}

// SPIBus is a state machine with two configurable roles: controller, which
// drives transfers, and peripheral, which only ever responds to one.
// Transfer below follows tinygo.org/x/drivers.SPI's Transfer(byte) but
// returns only the response byte, with no error result.
type SPIBus struct {
	graph    *wiring.Graph
	resolver SPIResolver

	role          SPIRole
	sck, sdo, sdi wiring.PinHandle
}

// NewSPIBus returns an unconfigured bus bound to a graph and a peripheral
// resolver (typically the owning Part's registry view).
func NewSPIBus(graph *wiring.Graph, resolver SPIResolver) *SPIBus {
	return &SPIBus{graph: graph, resolver: resolver}
}

// ConfigureAsController marks sck as an output driven low and records the
// bus's three pins.
func (b *SPIBus) ConfigureAsController(sck, sdo, sdi wiring.PinHandle) {
	b.role = SPIController
	b.sck, b.sdo, b.sdi = sck, sdo, sdi
	b.graph.Pins[sck].Mode = types.PinSPISCKOut
	b.graph.SetState(sck, types.StateLow, nil)
}

// ConfigureAsPeripheral marks sck as an input and records the bus's three
// pins.
func (b *SPIBus) ConfigureAsPeripheral(sck, sdo, sdi wiring.PinHandle) {
	b.role = SPIPeripheral
	b.sck, b.sdo, b.sdi = sck, sdo, sdi
	b.graph.Pins[sck].Mode = types.PinSPISCKIn
	b.graph.SetState(sck, types.StateLow, nil)
}

// Transfer clocks one byte out as a controller: every peripheral pin on the
// SCK net is offered the byte, and at most one is expected to answer. If
// none does, the line state on SDI decides the fallback (all-zero when
// low, all-one when high, otherwise a random byte).
func (b *SPIBus) Transfer(w byte) byte {
	net, ok := b.graph.NetOf(b.sck)
	if !ok {
		return b.fallback()
	}
	var resp byte
	responded := false
	for _, h := range net.Pins {
		if b.graph.Pins[h].Mode != types.PinSPISCKIn {
			continue
		}
		periph, ok := b.resolver.SPIPeripheralFor(h)
		if !ok {
			continue
		}
		r, ok := periph.TransferSPI(h, w)
		if ok && !responded {
			resp, responded = r, true
		}
	}
	if responded {
		return resp
	}
	return b.fallback()
}

func (b *SPIBus) fallback() byte {
	net, ok := b.graph.NetOf(b.sdi)
	if ok {
		switch net.State {
		case types.StateLow:
			return 0x00
		case types.StateHigh:
			return 0xff
		}
	}
	return byte(rand.IntN(256))
}
