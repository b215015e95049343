// Package types holds the wire-format structs the simulation core moves
// across the bus: pin/net state encodings, part/wire configuration, and the
// UI<->core message surface. As in the teacher's own types package, every
// payload is an explicit struct rather than a map[string]any.
package types

// PinState is the resolved electrical state of a pin or a net, encoded
// numerically for the shared buffer (§6 of the board-level contract) and
// named here for use everywhere else.
type PinState uint8

const (
	StateFloating PinState = 0
	StateLow      PinState = 1
	StateHigh     PinState = 2
	StatePulldown PinState = 3
	StatePullup   PinState = 4
	StatePWM      PinState = 5

	// StateConnected is an internal resolver state (an ohmic link through a
	// closed switch) that never reaches the shared buffer directly — it
	// resolves to Low or High depending on what else shares the net.
	StateConnected PinState = 255
)

func (s PinState) String() string {
	switch s {
	case StateFloating:
		return "floating"
	case StateLow:
		return "low"
	case StateHigh:
		return "high"
	case StatePulldown:
		return "pulldown"
	case StatePullup:
		return "pullup"
	case StatePWM:
		return "pwm"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// GPIOMode is the mode a guest program requests via __tinygo_gpio_configure.
type GPIOMode uint8

const (
	ModeFloating GPIOMode = 0
	ModeOutput   GPIOMode = 1
	ModePullup   GPIOMode = 2
	ModePulldown GPIOMode = 3
)

// PinMode names what a pin is wired to do beyond plain GPIO. Bus pins carry
// a role-specific mode so the net resolver and the bus state machines can
// tell a controller SCK from a peripheral SCK, or a WS2812 data pin from an
// ordinary one.
type PinMode string

const (
	PinGPIO       PinMode = "gpio"
	PinSPISCKIn   PinMode = "spi-sck-in"
	PinSPISCKOut  PinMode = "spi-sck-out"
	PinWS2812Din  PinMode = "ws2812-din"
	PinWS2812Dout PinMode = "ws2812-dout"
)

// PWMExtra carries the period/duty pair a net resolves to when its driving
// pin is in the PWM state.
type PWMExtra struct {
	PeriodMs   float64 `json:"periodMs"`
	DutyCycle  float64 `json:"dutyCycle"` // 0..1
	ActiveHigh bool    `json:"activeHigh"`
}
