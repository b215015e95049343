package wiring

import (
	"sort"
	"testing"

	"mcusim/types"
)

func TestNetMembershipInvariant(t *testing.T) {
	g := NewGraph()
	a := g.AddPin("p1", "a", types.PinGPIO)
	b := g.AddPin("p2", "b", types.PinGPIO)
	c := g.AddPin("p3", "c", types.PinGPIO)
	g.AddWire(a, b)

	g.UpdateNets()

	netA, ok := g.NetOf(a)
	if !ok {
		t.Fatal("pin a has no net after rebuild")
	}
	for _, p := range []PinHandle{a, b} {
		found := false
		for _, m := range netA.Pins {
			if m == p {
				found = true
			}
		}
		if !found {
			t.Fatalf("pin %d not a member of its own net", p)
		}
	}
	netC, _ := g.NetOf(c)
	if len(netC.Pins) != 1 || netC.Pins[0] != c {
		t.Fatalf("unwired pin c should be alone in its net, got %v", netC.Pins)
	}
}

func TestNetResolutionIsPure(t *testing.T) {
	g := NewGraph()
	a := g.AddPin("p1", "a", types.PinGPIO)
	b := g.AddPin("p2", "b", types.PinGPIO)
	g.AddWire(a, b)
	g.SetState(a, types.StateHigh, nil)

	g.UpdateNets()
	n1, _ := g.NetOf(a)

	g.UpdateNets() // rerun with no state change
	n2, _ := g.NetOf(a)

	if n1.State != n2.State {
		t.Fatalf("resolution not stable across reruns: %v vs %v", n1.State, n2.State)
	}
	if n1.State != types.StateHigh {
		t.Fatalf("expected StateHigh, got %v", n1.State)
	}
}

func TestPrecedence_StrongBeatsPullBeatsFloating(t *testing.T) {
	g := NewGraph()
	drv := g.AddPin("p1", "drv", types.PinGPIO)
	pull := g.AddPin("p2", "pull", types.PinGPIO)
	float := g.AddPin("p3", "float", types.PinGPIO)
	g.AddWire(drv, pull)
	g.AddWire(pull, float)

	g.SetState(drv, types.StateHigh, nil)
	g.SetState(pull, types.StatePulldown, nil)

	g.UpdateNets()
	net, _ := g.NetOf(drv)
	if net.State != types.StateHigh {
		t.Fatalf("strong drive should win over pull/floating, got %v", net.State)
	}
}

func TestShortCircuitDiagnostic(t *testing.T) {
	g := NewGraph()
	a := g.AddPin("p1", "a", types.PinGPIO)
	b := g.AddPin("p2", "b", types.PinGPIO)
	g.AddWire(a, b)
	g.SetState(a, types.StateLow, nil)
	g.SetState(b, types.StateHigh, nil)

	_, _, diags := g.UpdateNets()
	if len(diags) != 1 || diags[0].Code != "short_circuit" {
		t.Fatalf("expected one short_circuit diagnostic, got %v", diags)
	}
	net, _ := g.NetOf(a)
	if net.State != types.StateLow {
		t.Fatalf("first-scanned driver should win deterministically, got %v", net.State)
	}
}

func TestUpdateNetsIdempotentWithoutStructuralChange(t *testing.T) {
	g := NewGraph()
	a := g.AddPin("p1", "a", types.PinGPIO)
	b := g.AddPin("p2", "b", types.PinGPIO)
	g.AddWire(a, b)
	g.SetState(a, types.StateHigh, nil)

	g.UpdateNets()
	before, _ := g.NetOf(a)
	g.UpdateNets()
	after, _ := g.NetOf(a)

	if before.State != after.State {
		t.Fatalf("repeated UpdateNets changed resolved state: %v -> %v", before.State, after.State)
	}
}

func TestAddThenRemoveWireRestoresTopology(t *testing.T) {
	g := NewGraph()
	a := g.AddPin("p1", "a", types.PinGPIO)
	b := g.AddPin("p2", "b", types.PinGPIO)

	g.UpdateNets()
	beforeNetA, _ := g.NetOf(a)
	beforeSingleton := len(beforeNetA.Pins) == 1

	g.AddWire(a, b)
	g.UpdateNets()
	merged, _ := g.NetOf(a)
	if len(merged.Pins) != 2 {
		t.Fatalf("expected merged net of 2 pins, got %d", len(merged.Pins))
	}

	g.RemoveWire(a, b)
	g.UpdateNets()
	afterNetA, _ := g.NetOf(a)

	if beforeSingleton != (len(afterNetA.Pins) == 1) {
		t.Fatalf("wire add-then-remove did not restore singleton topology")
	}
}

func TestButtonInternalLinkMergesNets(t *testing.T) {
	g := NewGraph()
	gnd := g.AddPin("gnd", "out", types.PinGPIO)
	btnA := g.AddPin("btn", "a", types.PinGPIO)
	btnB := g.AddPin("btn", "b", types.PinGPIO)
	mcuPin := g.AddPin("mcu", "p", types.PinGPIO)

	g.AddWire(gnd, btnA)
	g.AddWire(btnB, mcuPin)
	g.SetState(gnd, types.StateLow, nil)
	g.SetState(mcuPin, types.StatePullup, nil)

	link := &fakeLinker{}
	g.RegisterLinker("btn", link)

	_, _, _ = g.UpdateNets()
	releasedNet, _ := g.NetOf(mcuPin)
	if releasedNet.State != types.StatePullup {
		t.Fatalf("released button should leave mcu pin pulled up, got %v", releasedNet.State)
	}

	link.pressed = true
	_, _, _ = g.UpdateNets()
	pressedNet, _ := g.NetOf(mcuPin)
	if pressedNet.State != types.StateLow {
		t.Fatalf("pressed button should short mcu pin to ground's net, got %v", pressedNet.State)
	}
}

type fakeLinker struct{ pressed bool }

func (f *fakeLinker) InternalLinks() [][2]PinHandle {
	if !f.pressed {
		return nil
	}
	return [][2]PinHandle{{1, 2}} // btn.a, btn.b handles in the test above
}

func TestUpdateNetReflectsElectricalChangeWithoutRebuild(t *testing.T) {
	g := NewGraph()
	drv := g.AddPin("mcu", "p17", types.PinGPIO)
	led := g.AddPin("led", "cathode", types.PinGPIO)
	g.AddWire(drv, led)
	g.SetState(drv, types.StateHigh, nil)
	g.UpdateNets()

	net, _ := g.NetOf(drv)
	if net.State != types.StateHigh {
		t.Fatalf("expected StateHigh after initial rebuild, got %v", net.State)
	}

	g.SetState(drv, types.StateLow, nil)
	updates, diag := g.UpdateNet(drv)
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %v", diag)
	}
	net, _ = g.NetOf(drv)
	if net.State != types.StateLow {
		t.Fatalf("UpdateNet did not re-resolve the net, got %v", net.State)
	}
	if len(updates) != 1 || updates[0].Pin != led {
		t.Fatalf("expected one update for input pin led, got %v", updates)
	}
}

func TestConnectionsGroupedByNet(t *testing.T) {
	g := NewGraph()
	a := g.AddPin("p1", "a", types.PinGPIO)
	b := g.AddPin("p2", "b", types.PinGPIO)
	_ = g.AddPin("p3", "c", types.PinGPIO)
	g.AddWire(a, b)

	connections, _, _ := g.UpdateNets()
	if len(connections) != 2 {
		t.Fatalf("expected 2 nets, got %d", len(connections))
	}
	var sizes []int
	for _, c := range connections {
		sizes = append(sizes, len(c))
	}
	sort.Ints(sizes)
	if sizes[0] != 1 || sizes[1] != 2 {
		t.Fatalf("unexpected net sizes: %v", sizes)
	}
}
