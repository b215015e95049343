package parts

import (
	"fmt"

	"mcusim/clock"
	"mcusim/types"
	"mcusim/wiring"
	"mcusim/x/mathx"
)

func init() {
	RegisterBuilder("servo", servoBuilder{})
}

type servoBuilder struct{}

func (servoBuilder) Build(in BuildInput) (Part, error) {
	s := &Servo{Base: NewBase(in.ID), clock: in.Clock, fullRotation: 180}
	if cfg := in.Config.Servo; cfg != nil && cfg.FullRotationDeg > 0 {
		s.fullRotation = cfg.FullRotationDeg
	}
	s.addPin("control", in.Graph.AddPin(in.ID, "control", types.PinGPIO))
	s.MarkDirty()
	return s, nil
}

const (
	servoMinPulseMs   = 0.8
	servoMaxPulseMs   = 2.2
	servoAngularSpeed = 0.3 // degrees per virtual millisecond
	servoIdleCurrent  = 0.01
	servoMoveCurrent  = 0.2
)

// Servo reads PWM on its control net and maps pulse width to a target
// rotation, animating toward it at a fixed angular speed rather than
// jumping instantly — current distinguishes idle (at target) from stall
// (still moving).
type Servo struct {
	Base

	clock        *clock.Clock
	fullRotation float64

	haveTarget    bool
	targetAngle   float64
	currentAngle  float64
	lastUpdatedMs int64
}

func (s *Servo) NotifyPinUpdate(pin wiring.PinHandle, state types.PinState, pwm *types.PWMExtra) {
	if pin != s.pin("control") {
		return
	}
	s.settle()
	if state != types.StatePWM || pwm == nil || pwm.PeriodMs < 3 || pwm.PeriodMs > 100 {
		return
	}
	pulseMs := mathx.Clamp(pwm.DutyCycle*pwm.PeriodMs, servoMinPulseMs, servoMaxPulseMs)
	frac := (pulseMs - servoMinPulseMs) / (servoMaxPulseMs - servoMinPulseMs)
	s.targetAngle = -s.fullRotation/2 + frac*s.fullRotation
	s.haveTarget = true
	s.MarkDirty()
}

func (s *Servo) HandleInput(types.InputEvent) {}

// settle advances currentAngle toward targetAngle by however much virtual
// time has elapsed since the last observation, called before reading or
// updating state so GetState never needs its own ticking goroutine.
func (s *Servo) settle() {
	if s.clock == nil {
		return
	}
	now := s.clock.Now()
	elapsed := now - s.lastUpdatedMs
	s.lastUpdatedMs = now
	if !s.haveTarget || elapsed <= 0 {
		return
	}
	maxStep := servoAngularSpeed * float64(elapsed)
	delta := mathx.Clamp(s.targetAngle-s.currentAngle, -maxStep, maxStep)
	s.currentAngle += delta
	if s.currentAngle != s.targetAngle {
		s.MarkDirty()
	}
}

func (s *Servo) GetState() types.PartSnapshot {
	s.settle()
	current := servoIdleCurrent
	if s.currentAngle != s.targetAngle {
		current = servoMoveCurrent
	}
	return types.PartSnapshot{
		ID:            s.ID(),
		CSSProperties: map[string]string{"--rotation-deg": fmt.Sprintf("%.1f", s.currentAngle)},
		Power:         &types.PowerSnapshot{Current: current, MaxCurrent: servoMoveCurrent, AvgCurrent: current},
	}
}
