package parts

import (
	"mcusim/types"
	"mcusim/wiring"
)

func init() {
	RegisterBuilder("button", buttonBuilder{})
}

type buttonBuilder struct{}

func (buttonBuilder) Build(in BuildInput) (Part, error) {
	b := &Button{Base: NewBase(in.ID)}
	b.addPin("a", in.Graph.AddPin(in.ID, "a", types.PinGPIO))
	b.addPin("b", in.Graph.AddPin(in.ID, "b", types.PinGPIO))
	in.Graph.RegisterLinker(in.ID, b)
	b.MarkDirty()
	return b, nil
}

// Button has two terminals, A and B. While pressed both are folded into one
// net via wiring.InternalLinker rather than driving a state directly — see
// the "Button short via net merge" decision in DESIGN.md for why
// StateConnected alone can't express this.
type Button struct {
	Base
	pressed bool
}

// InternalLinks implements wiring.InternalLinker: A and B merge into one net
// only while pressed.
func (b *Button) InternalLinks() [][2]wiring.PinHandle {
	if !b.pressed {
		return nil
	}
	return [][2]wiring.PinHandle{{b.pin("a"), b.pin("b")}}
}

func (b *Button) NotifyPinUpdate(wiring.PinHandle, types.PinState, *types.PWMExtra) {}

func (b *Button) HandleInput(event types.InputEvent) {
	switch event {
	case types.EventPress:
		b.pressed = true
	case types.EventRelease:
		b.pressed = false
	default:
		return
	}
	b.MarkDirty()
}

func (b *Button) GetState() types.PartSnapshot {
	text := "released"
	if b.pressed {
		text = "pressed"
	}
	return types.PartSnapshot{
		ID:         b.ID(),
		Properties: &types.PropertiesPayload{Text: text},
	}
}
