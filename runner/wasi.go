package runner

import (
	"context"
	"math/rand/v2"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"

	"mcusim/types"
)

// WASI errno values this Runner's subset actually returns (a handful of the
// standard preview1 set; anything else falls back to wasiErrnoNosys).
const (
	wasiErrnoSuccess uint32 = 0
	wasiErrnoFault   uint32 = 21
	wasiErrnoNosys   uint32 = 52
)

// registerWASI installs the WASI subset named in §4.6: args/environ
// (program argv, empty environment), clock_time_get against the virtual
// clock, fd_write routed to the Schematic's log, random_get, poll_oneoff as
// the sleep primitive, and proc_exit. Every other WASI import the guest
// might reference is simply absent from this host module, which wazero
// surfaces as a link error rather than a runtime ENOSYS — close enough for
// a program compiled specifically against this ABI.
func (r *Runner) registerWASI(ctx context.Context) error {
	b := r.rt.NewHostModuleBuilder("wasi_snapshot_preview1")
	b.NewFunctionBuilder().WithFunc(r.wasiArgsSizesGet).Export("args_sizes_get")
	b.NewFunctionBuilder().WithFunc(r.wasiArgsGet).Export("args_get")
	b.NewFunctionBuilder().WithFunc(r.wasiEnvironSizesGet).Export("environ_sizes_get")
	b.NewFunctionBuilder().WithFunc(r.wasiEnvironGet).Export("environ_get")
	b.NewFunctionBuilder().WithFunc(r.wasiClockTimeGet).Export("clock_time_get")
	b.NewFunctionBuilder().WithFunc(r.wasiFdWrite).Export("fd_write")
	b.NewFunctionBuilder().WithFunc(r.wasiRandomGet).Export("random_get")
	b.NewFunctionBuilder().WithFunc(r.wasiPollOneoff).Export("poll_oneoff")
	b.NewFunctionBuilder().WithFunc(r.wasiProcExit).Export("proc_exit")
	_, err := b.Instantiate(ctx)
	return err
}

func (r *Runner) wasiArgsSizesGet(_ context.Context, m api.Module, argcPtr, argvBufSizePtr uint32) uint32 {
	count, bufSize := argvSizes(r.argv)
	mem := m.Memory()
	if !mem.WriteUint32Le(argcPtr, count) || !mem.WriteUint32Le(argvBufSizePtr, bufSize) {
		return wasiErrnoFault
	}
	return wasiErrnoSuccess
}

func (r *Runner) wasiArgsGet(_ context.Context, m api.Module, argvPtr, argvBufPtr uint32) uint32 {
	mem := m.Memory()
	buf, offsets := encodeArgv(r.argv)
	if len(buf) > 0 && !mem.Write(argvBufPtr, buf) {
		return wasiErrnoFault
	}
	for i, off := range offsets {
		if !mem.WriteUint32Le(argvPtr+uint32(i*4), argvBufPtr+off) {
			return wasiErrnoFault
		}
	}
	return wasiErrnoSuccess
}

func (r *Runner) wasiEnvironSizesGet(_ context.Context, m api.Module, countPtr, bufSizePtr uint32) uint32 {
	mem := m.Memory()
	if !mem.WriteUint32Le(countPtr, 0) || !mem.WriteUint32Le(bufSizePtr, 0) {
		return wasiErrnoFault
	}
	return wasiErrnoSuccess
}

func (r *Runner) wasiEnvironGet(context.Context, api.Module, uint32, uint32) uint32 {
	return wasiErrnoSuccess
}

// wasiClockTimeGet answers with the Schematic's virtual clock, not wall
// time — pausing the simulation must pause what the guest program sees too.
func (r *Runner) wasiClockTimeGet(_ context.Context, m api.Module, _ uint32, _ uint64, resultPtr uint32) uint32 {
	nowNs := uint64(r.clock.Now()) * 1_000_000
	if !m.Memory().WriteUint64Le(resultPtr, nowNs) {
		return wasiErrnoFault
	}
	return wasiErrnoSuccess
}

// wasiFdWrite only accepts fd 1 (stdout) and 2 (stderr); everything written
// to either is forwarded as a stdout status event (§4.6's narrow status
// protocol doesn't distinguish the two streams).
func (r *Runner) wasiFdWrite(_ context.Context, m api.Module, fd, iovsPtr, iovsLen, nwrittenPtr uint32) uint32 {
	if fd != 1 && fd != 2 {
		return wasiErrnoNosys
	}
	mem := m.Memory()
	var data []byte
	for i := uint32(0); i < iovsLen; i++ {
		base := iovsPtr + i*8
		ptr, ok1 := mem.ReadUint32Le(base)
		ln, ok2 := mem.ReadUint32Le(base + 4)
		if !ok1 || !ok2 {
			return wasiErrnoFault
		}
		if ln == 0 {
			continue
		}
		chunk, ok := mem.Read(ptr, ln)
		if !ok {
			return wasiErrnoFault
		}
		data = append(data, chunk...)
	}
	if len(data) > 0 {
		r.publishStatus(types.RunnerStatusMsg{Status: types.StatusStdout, Stdout: &types.StdoutMsg{Data: data}})
	}
	if !mem.WriteUint32Le(nwrittenPtr, uint32(len(data))) {
		return wasiErrnoFault
	}
	return wasiErrnoSuccess
}

func (r *Runner) wasiRandomGet(_ context.Context, m api.Module, bufPtr, bufLen uint32) uint32 {
	buf := make([]byte, bufLen)
	for i := range buf {
		buf[i] = byte(rand.IntN(256))
	}
	if len(buf) > 0 && !m.Memory().Write(bufPtr, buf) {
		return wasiErrnoFault
	}
	return wasiErrnoSuccess
}

// wasiPollOneoff is used as the sleep primitive (§4.6): it supports exactly
// one relative- or absolute-clock subscription, the only shape a program's
// time.Sleep compiles down to, and blocks via sleepMs so a pause freezes it
// like everything else.
func (r *Runner) wasiPollOneoff(ctx context.Context, m api.Module, inPtr, outPtr, nsubscriptions, neventsPtr uint32) uint32 {
	mem := m.Memory()
	if nsubscriptions == 0 {
		mem.WriteUint32Le(neventsPtr, 0)
		return wasiErrnoSuccess
	}
	raw, ok := mem.Read(inPtr, wasiSubscriptionSize)
	if !ok {
		return wasiErrnoFault
	}
	sub, ok := decodeClockSubscription(raw)
	if !ok {
		mem.WriteUint32Le(neventsPtr, 0)
		return wasiErrnoSuccess
	}
	ms := nsToMs(sub.timeout)
	if sub.absolute {
		ms -= r.clock.Now()
		if ms < 0 {
			ms = 0
		}
	}
	if err := r.sleepMs(ctx, ms); err != nil {
		return wasiErrnoNosys
	}
	if !mem.Write(outPtr, encodeClockEvent(sub.userdata)) {
		return wasiErrnoFault
	}
	if !mem.WriteUint32Le(neventsPtr, 1) {
		return wasiErrnoFault
	}
	return wasiErrnoSuccess
}

// wasiProcExit raises the sentinel sys.ExitError wazero itself uses for the
// real WASI proc_exit, caught at Run's top frame — the "exceptions for
// exit" redesign flag's explicit Exit{code} result, expressed through the
// one exit mechanism wazero's host-function contract actually supports.
func (r *Runner) wasiProcExit(_ context.Context, _ api.Module, code uint32) {
	panic(sys.NewExitError(code))
}
