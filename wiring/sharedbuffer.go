package wiring

import (
	"context"
	"sync/atomic"

	"mcusim/types"
)

// Shared buffer cell layout (§6): a fixed-layout int32 register file rather
// than shmring's byte ring, but the same idiom — atomic indices plus a
// size-1 buffered wake channel that is edge-coalesced and safe to
// over-signal, so a waiter always re-checks state after waking instead of
// trusting the wake itself to carry a value.
const (
	CellSemaphore = 0
	CellSpeed     = 1
	pinCellBase   = 2
)

// MaxPins bounds the pin-number space the shared buffer can address; pin
// numbers 0..254 map to cells 2..256.
const MaxPins = 255

const busStatusBase = pinCellBase + MaxPins

// SharedBuffer is the MCU's shared integer buffer: a task semaphore, a
// speed cell, per-pin state cells, and per-I2C-bus status cells, all
// accessed with sync/atomic so the Schematic (writer) and Runner (reader)
// never need a mutex between them.
type SharedBuffer struct {
	cells []int32

	semaphoreWake chan struct{}
	speedWake     chan struct{}
}

// NewSharedBuffer allocates a buffer sized for numI2CBuses status cells
// beyond the fixed semaphore/speed/pin-state region.
func NewSharedBuffer(numI2CBuses int) *SharedBuffer {
	if numI2CBuses < 0 {
		numI2CBuses = 0
	}
	return &SharedBuffer{
		cells:         make([]int32, busStatusBase+numI2CBuses),
		semaphoreWake: make(chan struct{}, 1),
		speedWake:     make(chan struct{}, 1),
	}
}

// IncSemaphore is called by the Runner before sending a hardware-mutating
// message to the Schematic.
func (b *SharedBuffer) IncSemaphore() {
	atomic.AddInt32(&b.cells[CellSemaphore], 1)
}

// DecSemaphore is called by the Schematic once a message is fully
// processed; it wakes anyone waiting for quiescence when the count reaches
// zero.
func (b *SharedBuffer) DecSemaphore() {
	if atomic.AddInt32(&b.cells[CellSemaphore], -1) == 0 {
		b.wake(b.semaphoreWake)
	}
}

// WaitSemaphoreZero blocks until the task semaphore reads zero, the way the
// Runner waits before trusting pin state it is about to read.
func (b *SharedBuffer) WaitSemaphoreZero(ctx context.Context) error {
	for atomic.LoadInt32(&b.cells[CellSemaphore]) != 0 {
		select {
		case <-b.semaphoreWake:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// SetSpeed stores the pause/resume flag and wakes anyone blocked in a sleep
// on the speed cell.
func (b *SharedBuffer) SetSpeed(running bool) {
	var v int32
	if running {
		v = 1
	}
	atomic.StoreInt32(&b.cells[CellSpeed], v)
	b.wake(b.speedWake)
}

// Speed reports the current run/pause flag.
func (b *SharedBuffer) Speed() bool {
	return atomic.LoadInt32(&b.cells[CellSpeed]) != 0
}

// SpeedWake returns the edge-coalesced channel SetSpeed signals on every
// change; the Runner's sleep does not select on it.
func (b *SharedBuffer) SpeedWake() <-chan struct{} { return b.speedWake }

// SetPinState writes a pin's numeric state, e.g. from notifyPinUpdate.
func (b *SharedBuffer) SetPinState(pin int, state types.PinState) {
	if pin < 0 || pin >= MaxPins {
		return
	}
	atomic.StoreInt32(&b.cells[pinCellBase+pin], int32(state))
}

// PinState reads a pin's numeric state without round-tripping to the
// Schematic.
func (b *SharedBuffer) PinState(pin int) types.PinState {
	if pin < 0 || pin >= MaxPins {
		return types.StateFloating
	}
	return types.PinState(atomic.LoadInt32(&b.cells[pinCellBase+pin]))
}

// SetBusStatus records the last-transfer status for an I2C bus index.
func (b *SharedBuffer) SetBusStatus(busIdx int, status int32) {
	idx := busStatusBase + busIdx
	if busIdx < 0 || idx >= len(b.cells) {
		return
	}
	atomic.StoreInt32(&b.cells[idx], status)
}

// BusStatus reads the last-transfer status for an I2C bus index.
func (b *SharedBuffer) BusStatus(busIdx int) int32 {
	idx := busStatusBase + busIdx
	if busIdx < 0 || idx >= len(b.cells) {
		return 0
	}
	return atomic.LoadInt32(&b.cells[idx])
}

func (b *SharedBuffer) wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
