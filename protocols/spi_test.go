package protocols

import (
	"testing"

	"mcusim/types"
	"mcusim/wiring"
)

type fakeSPIPeripheral struct {
	resp     byte
	responds bool
}

func (f fakeSPIPeripheral) TransferSPI(sck wiring.PinHandle, w byte) (byte, bool) {
	return f.resp, f.responds
}

type fakeSPIResolver struct {
	byPin map[wiring.PinHandle]SPIPeripheral
}

func (r fakeSPIResolver) SPIPeripheralFor(pin wiring.PinHandle) (SPIPeripheral, bool) {
	p, ok := r.byPin[pin]
	return p, ok
}

func newSPIGraph(t *testing.T) (*wiring.Graph, wiring.PinHandle, wiring.PinHandle, wiring.PinHandle) {
	t.Helper()
	g := wiring.NewGraph()
	ctrlSCK := g.AddPin("mcu", "sck", types.PinGPIO)
	periphSCK := g.AddPin("display", "sck", types.PinGPIO)
	sdi := g.AddPin("mcu", "sdi", types.PinGPIO)
	g.AddWire(ctrlSCK, periphSCK)
	return g, ctrlSCK, periphSCK, sdi
}

func TestSPITransferReturnsPeripheralResponse(t *testing.T) {
	g, ctrlSCK, periphSCK, sdi := newSPIGraph(t)
	sdo := g.AddPin("mcu", "sdo", types.PinGPIO)

	resolver := fakeSPIResolver{byPin: map[wiring.PinHandle]SPIPeripheral{
		periphSCK: fakeSPIPeripheral{resp: 0x42, responds: true},
	}}
	bus := NewSPIBus(g, resolver)
	bus.ConfigureAsController(ctrlSCK, sdo, sdi)
	g.Pins[periphSCK].Mode = types.PinSPISCKIn
	g.UpdateNets()

	if got := bus.Transfer(0x01); got != 0x42 {
		t.Fatalf("Transfer = %#x, want 0x42", got)
	}
}

func TestSPITransferFallsBackOnNoResponder(t *testing.T) {
	g, ctrlSCK, _, sdi := newSPIGraph(t)
	sdo := g.AddPin("mcu", "sdo", types.PinGPIO)

	bus := NewSPIBus(g, fakeSPIResolver{byPin: map[wiring.PinHandle]SPIPeripheral{}})
	bus.ConfigureAsController(ctrlSCK, sdo, sdi)
	g.SetState(sdi, types.StateHigh, nil)
	g.UpdateNets()

	if got := bus.Transfer(0x01); got != 0xff {
		t.Fatalf("Transfer = %#x, want 0xff fallback for SDI high", got)
	}
}

func TestSPIOnlyFirstResponderWins(t *testing.T) {
	g, ctrlSCK, periphSCK, sdi := newSPIGraph(t)
	sdo := g.AddPin("mcu", "sdo", types.PinGPIO)
	secondSCK := g.AddPin("display2", "sck", types.PinGPIO)
	g.AddWire(ctrlSCK, secondSCK)

	resolver := fakeSPIResolver{byPin: map[wiring.PinHandle]SPIPeripheral{
		periphSCK: fakeSPIPeripheral{resp: 0x11, responds: true},
		secondSCK: fakeSPIPeripheral{resp: 0x22, responds: true},
	}}
	bus := NewSPIBus(g, resolver)
	bus.ConfigureAsController(ctrlSCK, sdo, sdi)
	g.Pins[periphSCK].Mode = types.PinSPISCKIn
	g.Pins[secondSCK].Mode = types.PinSPISCKIn
	g.UpdateNets()

	if got := bus.Transfer(0x00); got != 0x11 {
		t.Fatalf("Transfer = %#x, want first-scanned responder 0x11", got)
	}
}
