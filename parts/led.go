package parts

import (
	"fmt"

	"mcusim/types"
	"mcusim/wiring"
)

func init() {
	RegisterBuilder("led", ledBuilder{})
}

type ledBuilder struct{}

func (ledBuilder) Build(in BuildInput) (Part, error) {
	cfg := in.Config.LED
	l := &LED{Base: NewBase(in.ID)}
	if cfg != nil {
		l.color = cfg.Color
		l.current = cfg.Current
	}
	l.addPin("anode", in.Graph.AddPin(in.ID, "anode", types.PinGPIO))
	l.addPin("cathode", in.Graph.AddPin(in.ID, "cathode", types.PinGPIO))
	l.MarkDirty()
	return l, nil
}

// blinkThresholdMs is the period above which a PWM drive is rendered as a
// discrete on/off blink instead of a continuously dimmed brightness — the
// "long period" clause in spec §4.5.
const blinkThresholdMs = 33

// LED has two pins, anode and cathode. It is lit when the anode is sourcing
// (high or PWM-high) and the cathode is sinking (low or PWM-low); a PWM
// drive on either terminal either blinks (long period) or dims (short
// period) the rendered brightness.
type LED struct {
	Base

	color   [3]uint8
	current float64

	anodeState, cathodeState types.PinState
	anodePWM, cathodePWM     *types.PWMExtra
}

func (l *LED) NotifyPinUpdate(pin wiring.PinHandle, state types.PinState, pwm *types.PWMExtra) {
	switch pin {
	case l.pin("anode"):
		l.anodeState, l.anodePWM = state, pwm
	case l.pin("cathode"):
		l.cathodeState, l.cathodePWM = state, pwm
	default:
		return
	}
	l.MarkDirty()
}

func (l *LED) HandleInput(types.InputEvent) {}

func (l *LED) driving() (on bool, pwm *types.PWMExtra) {
	anodeOn := l.anodeState == types.StateHigh || l.anodeState == types.StatePWM
	cathodeOn := l.cathodeState == types.StateLow || l.cathodeState == types.StatePWM
	if !anodeOn || !cathodeOn {
		return false, nil
	}
	if l.anodePWM != nil {
		return true, l.anodePWM
	}
	return true, l.cathodePWM
}

func (l *LED) GetState() types.PartSnapshot {
	snap := types.PartSnapshot{ID: l.ID()}
	on, pwm := l.driving()

	if !on {
		snap.CSSProperties = map[string]string{"opacity": "0"}
		snap.Power = &types.PowerSnapshot{}
		return snap
	}

	switch {
	case pwm != nil && pwm.PeriodMs > blinkThresholdMs:
		snap.CSSBlink = &types.CSSBlink{
			PeriodMs:         pwm.PeriodMs,
			DutyCycle:        pwm.DutyCycle,
			CSSPropertiesOff: map[string]string{"opacity": "0"},
		}
		snap.CSSProperties = map[string]string{"opacity": "1"}
		snap.Power = &types.PowerSnapshot{Current: l.current * pwm.DutyCycle, MaxCurrent: l.current, AvgCurrent: l.current * pwm.DutyCycle}
	case pwm != nil:
		snap.CSSProperties = map[string]string{"opacity": fmt.Sprintf("%.3f", pwm.DutyCycle)}
		snap.Power = &types.PowerSnapshot{Current: l.current * pwm.DutyCycle, MaxCurrent: l.current, AvgCurrent: l.current * pwm.DutyCycle}
	default:
		snap.CSSProperties = map[string]string{"opacity": "1"}
		snap.Power = &types.PowerSnapshot{Current: l.current, MaxCurrent: l.current, AvgCurrent: l.current}
	}
	return snap
}
