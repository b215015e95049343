package parts

import (
	"mcusim/types"
	"mcusim/wiring"
)

func init() {
	RegisterBuilder("dummy", dummyBuilder{})
}

type dummyBuilder struct{}

func (dummyBuilder) Build(in BuildInput) (Part, error) {
	d := &Dummy{Base: NewBase(in.ID)}
	if cfg := in.Config.Dummy; cfg != nil {
		d.current = cfg.Current
	}
	d.MarkDirty()
	return d, nil
}

// Dummy models baseline consumption: a fixed current with no pins and no
// behavior beyond reporting it every frame it is included in.
type Dummy struct {
	Base
	current float64
}

func (d *Dummy) NotifyPinUpdate(wiring.PinHandle, types.PinState, *types.PWMExtra) {}
func (d *Dummy) HandleInput(types.InputEvent)                                     {}

func (d *Dummy) GetState() types.PartSnapshot {
	return types.PartSnapshot{
		ID:    d.ID(),
		Power: &types.PowerSnapshot{Current: d.current, MaxCurrent: d.current, AvgCurrent: d.current},
	}
}
