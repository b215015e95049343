package protocols

import (
	"mcusim/errcode"
	"mcusim/wiring"
)

// I2CStatus is the small enumerated result set a transfer resolves to.
type I2CStatus uint8

const (
	I2CSuccess I2CStatus = iota
	I2CNoAck
	I2COther
)

func (s I2CStatus) Code() errcode.Code {
	switch s {
	case I2CSuccess:
		return errcode.OK
	case I2CNoAck:
		return errcode.NoPeripheral
	default:
		return errcode.Error
	}
}

// I2CPeripheral answers a transfer addressed to it. readLen is how many
// bytes the controller wants back; the peripheral returns exactly that
// many on success.
type I2CPeripheral interface {
	TransferI2C(addr uint16, w []byte, readLen int) (resp []byte, ok bool)
}

// I2CResolver maps a bus address to the Part-provided peripheral behind it.
type I2CResolver interface {
	I2CPeripheralAt(addr uint16) (I2CPeripheral, bool)
}

// I2CBus is a controller-only state machine: configureAsController binds
// the SCL/SDA pins, and Transfer locates the addressed peripheral through
// the resolver rather than scanning the nets directly, since I2C
// addressing is a bus-level concept independent of wiring topology.
type I2CBus struct {
	resolver   I2CResolver
	scl, sda   wiring.PinHandle
	configured bool
}

// NewI2CBus returns an unconfigured bus bound to a peripheral resolver.
func NewI2CBus(resolver I2CResolver) *I2CBus {
	return &I2CBus{resolver: resolver}
}

// ConfigureAsController records the SCL/SDA pins the bus runs over.
func (b *I2CBus) ConfigureAsController(scl, sda wiring.PinHandle) {
	b.scl, b.sda = scl, sda
	b.configured = true
}

// Transfer addresses a peripheral, writes writeBytes to it, and reads
// readLen bytes back.
func (b *I2CBus) Transfer(address uint16, writeBytes []byte, readLen int) ([]byte, I2CStatus) {
	if !b.configured {
		return nil, I2COther
	}
	periph, ok := b.resolver.I2CPeripheralAt(address)
	if !ok {
		return nil, I2CNoAck
	}
	resp, ok := periph.TransferI2C(address, writeBytes, readLen)
	if !ok {
		return nil, I2COther
	}
	return resp, I2CSuccess
}

// Tx implements tinygo.org/x/drivers.I2C's Tx(addr uint16, w, r []byte)
// error signature, so parts written against that driver family can use an
// I2CBus as their bus handle without an adapter.
func (b *I2CBus) Tx(addr uint16, w, r []byte) error {
	resp, status := b.Transfer(addr, w, len(r))
	if status != I2CSuccess {
		return status.Code()
	}
	copy(r, resp)
	return nil
}
