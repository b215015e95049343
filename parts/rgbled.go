package parts

import (
	"mcusim/types"
	"mcusim/wiring"
)

func init() {
	RegisterBuilder("rgbled", rgbledBuilder{})
}

type rgbledBuilder struct{}

func (rgbledBuilder) Build(in BuildInput) (Part, error) {
	r := &RGBLED{Base: NewBase(in.ID)}
	if cfg := in.Config.RGBLED; cfg != nil {
		r.channelCurrent = cfg.ChannelCurrent
	}
	r.addPin("anode", in.Graph.AddPin(in.ID, "anode", types.PinGPIO))
	for i, name := range []string{"r", "g", "b"} {
		r.addPin(name, in.Graph.AddPin(in.ID, name, types.PinGPIO))
		r.channels[i] = false
	}
	r.MarkDirty()
	return r, nil
}

// RGBLED is common-anode: each of the three cathodes lights its channel
// exactly when that cathode's net is low, independent of the other two.
type RGBLED struct {
	Base

	channelCurrent [3]float64
	channels       [3]bool // r, g, b
}

var rgbledChannelPins = [3]string{"r", "g", "b"}

func (r *RGBLED) NotifyPinUpdate(pin wiring.PinHandle, state types.PinState, _ *types.PWMExtra) {
	for i, name := range rgbledChannelPins {
		if pin == r.pin(name) {
			r.channels[i] = state == types.StateLow
			r.MarkDirty()
			return
		}
	}
}

func (r *RGBLED) HandleInput(types.InputEvent) {}

func (r *RGBLED) GetState() types.PartSnapshot {
	var color [3]uint8
	var current float64
	for i, on := range r.channels {
		if on {
			color[i] = 255
			current += r.channelCurrent[i]
		}
	}
	return types.PartSnapshot{
		ID:       r.ID(),
		LEDStrip: []types.LEDStripEntry{{Color: color, Shadow: color}},
		Power:    &types.PowerSnapshot{Current: current, MaxCurrent: r.channelCurrent[0] + r.channelCurrent[1] + r.channelCurrent[2], AvgCurrent: current},
	}
}
