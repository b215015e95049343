package parts

import (
	"mcusim/types"
	"mcusim/wiring"
)

func init() {
	RegisterBuilder("board", boardBuilder{})
}

type boardBuilder struct{}

func (boardBuilder) Build(in BuildInput) (Part, error) {
	cfg := in.Config.Board
	names := []string{"vcc", "gnd"}
	if cfg != nil {
		names = append(names, cfg.Pins...)
	}

	b := &Board{Base: NewBase(in.ID)}
	for _, name := range names {
		h := in.Graph.AddPin(in.ID, name, types.PinGPIO)
		b.addPin(name, h)
	}
	in.Graph.SetState(b.pin("vcc"), types.StateHigh, nil)
	in.Graph.SetState(b.pin("gnd"), types.StateLow, nil)
	return b, nil
}

// Board is a passive container: every configured pin plus a fixed vcc
// (always high) and gnd (always low), and nothing else.
type Board struct {
	Base
}

func (b *Board) NotifyPinUpdate(wiring.PinHandle, types.PinState, *types.PWMExtra) {}
func (b *Board) HandleInput(types.InputEvent)                                     {}
func (b *Board) GetState() types.PartSnapshot                                     { return types.PartSnapshot{ID: b.ID()} }
