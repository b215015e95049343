package wiring

import "mcusim/types"

// Net is the equivalence class of pins joined by wires (directly or through
// a Part's own internal link, e.g. a closed button). It carries one
// resolved electrical state.
type Net struct {
	Pins  []PinHandle
	State types.PinState
	PWM   *types.PWMExtra

	// Short is set when resolveNet found two conflicting strong drivers on
	// this net; resolution still completes deterministically.
	Short bool
}

// resolveNet computes a net's state from its member pins' own drive states:
// an actively driven low/high/pwm wins over a pull, which wins over
// floating. Pins in the StateConnected state (a closed switch) never drive;
// they only contribute their membership, which is how a Part's internal
// link folds two otherwise-independent sides into one resolved net. Ties
// among strong drivers are broken by scan order — the first one encountered
// wins, and any disagreement among them is flagged as a short.
func resolveNet(pins []Pin, handles []PinHandle) (state types.PinState, pwm *types.PWMExtra, short bool) {
	strongIdx := -1
	pullIdx := -1
	for _, h := range handles {
		p := &pins[h]
		switch p.State {
		case types.StateLow, types.StateHigh, types.StatePWM:
			if strongIdx == -1 {
				strongIdx = int(h)
				continue
			}
			if !sameDrive(pins[strongIdx], *p) {
				short = true
			}
		case types.StatePullup, types.StatePulldown:
			if pullIdx == -1 {
				pullIdx = int(h)
			}
		}
	}
	if strongIdx != -1 {
		return pins[strongIdx].State, pins[strongIdx].PWM, short
	}
	if pullIdx != -1 {
		return pins[pullIdx].State, nil, false
	}
	return types.StateFloating, nil, false
}

// sameDrive reports whether two strong-driving pins agree, so that two
// pins both asserting "low" on the same net isn't flagged as a short.
func sameDrive(a, b Pin) bool {
	if a.State != b.State {
		return false
	}
	if a.State != types.StatePWM {
		return true
	}
	if a.PWM == nil || b.PWM == nil {
		return a.PWM == b.PWM
	}
	return *a.PWM == *b.PWM
}
