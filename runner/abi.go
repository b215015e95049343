package runner

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"mcusim/bus"
	"mcusim/types"
)

// registerHostABI installs the custom `__tinygo_*` pin/SPI/I²C/WS2812 calls
// plus runtime.ticks/sleepTicks (§4.6), under module "env" — the module
// name TinyGo's `//go:wasmimport env ...` directive expects for an import
// that isn't part of any standard ABI.
func (r *Runner) registerHostABI(ctx context.Context) error {
	b := r.rt.NewHostModuleBuilder("env")
	b.NewFunctionBuilder().WithFunc(r.abiTicks).Export("runtime.ticks")
	b.NewFunctionBuilder().WithFunc(r.abiSleepTicks).Export("runtime.sleepTicks")
	b.NewFunctionBuilder().WithFunc(r.abiGPIOSet).Export("__tinygo_gpio_set")
	b.NewFunctionBuilder().WithFunc(r.abiGPIOGet).Export("__tinygo_gpio_get")
	b.NewFunctionBuilder().WithFunc(r.abiGPIOConfigure).Export("__tinygo_gpio_configure")
	b.NewFunctionBuilder().WithFunc(r.abiSPIConfigure).Export("__tinygo_spi_configure")
	b.NewFunctionBuilder().WithFunc(r.abiSPITransfer).Export("__tinygo_spi_transfer")
	b.NewFunctionBuilder().WithFunc(r.abiSPITx).Export("__tinygo_spi_tx")
	b.NewFunctionBuilder().WithFunc(r.abiI2CConfigure).Export("__tinygo_i2c_configure")
	b.NewFunctionBuilder().WithFunc(r.abiI2CTx).Export("__tinygo_i2c_tx")
	b.NewFunctionBuilder().WithFunc(r.abiWS2812WriteByte).Export("__tinygo_ws2812_write_byte")
	_, err := b.Instantiate(ctx)
	return err
}

func (r *Runner) abiTicks(context.Context, api.Module) uint64 {
	return uint64(r.clock.Now())
}

// abiSleepTicks arms the shared virtual clock exactly as heartbeat.Service
// arms a time.Ticker, generalized to a one-shot pausable timer (SPEC_FULL.md
// §4.6) — the direct, non-WASI sleep path a program built against this ABI
// uses instead of poll_oneoff.
func (r *Runner) abiSleepTicks(ctx context.Context, _ api.Module, ms uint64) {
	_ = r.sleepMs(ctx, int64(ms))
}

func (r *Runner) abiGPIOSet(_ context.Context, _ api.Module, pin, high uint32) {
	r.postSchematic(bus.T("schematic", "hw", "gpioSet"), types.GPIOSetMsg{Pin: int(pin), High: high != 0})
}

// abiGPIOGet is the one pure read among the custom ABI: it never posts a
// message, only waits for every prior mutating call to have been applied
// (§5's ordering guarantee) before trusting the shared buffer's mirror.
func (r *Runner) abiGPIOGet(ctx context.Context, _ api.Module, pin uint32) uint32 {
	if err := r.buf.WaitSemaphoreZero(ctx); err != nil {
		return 0
	}
	switch r.buf.PinState(int(pin)) {
	case types.StateHigh, types.StatePullup:
		return 1
	default:
		return 0
	}
}

func (r *Runner) abiGPIOConfigure(_ context.Context, _ api.Module, pin, mode uint32) {
	r.postSchematic(bus.T("schematic", "hw", "gpioConfigure"), types.GPIOConfigureMsg{Pin: int(pin), Mode: types.GPIOMode(mode)})
}

func (r *Runner) abiSPIConfigure(_ context.Context, _ api.Module, busIdx, sck, sdo, sdi uint32) {
	r.postSchematic(bus.T("schematic", "hw", "spiConfigure"), types.SPIConfigureMsg{Bus: int(busIdx), SCK: int(sck), SDO: int(sdo), SDI: int(sdi)})
}

// abiSPITransfer round-trips through the Schematic's SPIBus so an
// unconfigured or unanswered transfer resolves to the same SDI-line/random
// fallback protocols.SPIBus.Transfer already implements, rather than
// duplicating that logic here.
func (r *Runner) abiSPITransfer(ctx context.Context, _ api.Module, busIdx, w uint32) uint32 {
	reply, err := r.callSchematic(ctx, bus.T("schematic", "hw", "spiTransfer"), types.SPITransferMsg{Bus: int(busIdx), W: byte(w)})
	if err != nil {
		return 0
	}
	payload, ok := reply.Payload.(types.SPITransferReplyMsg)
	if !ok {
		return 0
	}
	return uint32(payload.Resp)
}

func (r *Runner) abiSPITx(ctx context.Context, m api.Module, busIdx, wptr, wlen, rptr, rlen uint32) {
	mem := m.Memory()
	w, ok := mem.Read(wptr, wlen)
	if !ok {
		return
	}
	reply, err := r.callSchematic(ctx, bus.T("schematic", "hw", "spiTx"), types.SPITxMsg{
		Bus: int(busIdx), W: append([]byte(nil), w...), ReadLen: int(rlen),
	})
	if err != nil {
		return
	}
	payload, ok := reply.Payload.(types.SPITxReplyMsg)
	if !ok {
		return
	}
	mem.Write(rptr, payload.Resp)
}

func (r *Runner) abiI2CConfigure(_ context.Context, _ api.Module, busIdx, scl, sda uint32) {
	r.postSchematic(bus.T("schematic", "hw", "i2cConfigure"), types.I2CConfigureMsg{Bus: int(busIdx), SCL: int(scl), SDA: int(sda)})
}

// abiI2CTx is the supplemented I²C counterpart to abiSPITx (see
// types.I2CTxMsg); it also mirrors the transfer status into the shared
// buffer's per-bus status cell, the one piece of I²C state §4.4 says the
// program can read without a round trip.
func (r *Runner) abiI2CTx(ctx context.Context, m api.Module, busIdx, addr, wptr, wlen, rptr, rlen uint32) uint32 {
	const i2cOther = 2
	mem := m.Memory()
	w, ok := mem.Read(wptr, wlen)
	if !ok {
		return i2cOther
	}
	reply, err := r.callSchematic(ctx, bus.T("schematic", "hw", "i2cTx"), types.I2CTxMsg{
		Bus: int(busIdx), Addr: uint16(addr), W: append([]byte(nil), w...), ReadLen: int(rlen),
	})
	if err != nil {
		return i2cOther
	}
	payload, ok := reply.Payload.(types.I2CTxReplyMsg)
	if !ok {
		return i2cOther
	}
	r.buf.SetBusStatus(int(busIdx), int32(payload.Status))
	if payload.Status == 0 {
		mem.Write(rptr, payload.Resp)
	}
	return uint32(payload.Status)
}

// abiWS2812WriteByte only buffers locally; the buffered bytes are not
// forwarded to the Schematic until flushWS2812 runs, just before the next
// sleep (§4.6).
func (r *Runner) abiWS2812WriteByte(_ context.Context, _ api.Module, pin, b uint32) {
	r.ws2812Buf[int(pin)] = append(r.ws2812Buf[int(pin)], byte(b))
}

// flushWS2812 posts one WS2812WriteMsg per pin with pending bytes and
// clears the buffers. Called from sleepMs so a sleep always sees the
// stream up to that point delivered in order.
func (r *Runner) flushWS2812() {
	for pin, data := range r.ws2812Buf {
		if len(data) == 0 {
			continue
		}
		r.postSchematic(bus.T("schematic", "hw", "ws2812Write"), types.WS2812WriteMsg{Pin: pin, Data: data})
		delete(r.ws2812Buf, pin)
	}
}
