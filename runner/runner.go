// Package runner hosts the user's compiled WebAssembly program and
// implements the host ABI it imports: a WASI subset plus the custom
// `__tinygo_*` pin/SPI/I²C/WS2812 calls (§4.6). It is the Go generalization
// of the source system's worker-hosted program: one task, blocking only at
// the two points spec.md names — a sleep, and a read that must observe
// every prior write.
//
// WebAssembly hosting is github.com/tetratelabs/wazero, registered as two
// host modules: "wasi_snapshot_preview1" (a from-scratch, simulator-aware
// subset — not wazero's own WASI implementation, since clock_time_get must
// read the virtual clock and fd_write must route to the Schematic's log
// rather than the real stdout) and "env" for the custom ABI, following the
// module name TinyGo's `//go:wasmimport env ...` directive expects.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"

	"mcusim/bus"
	"mcusim/clock"
	"mcusim/types"
	"mcusim/wiring"
	"mcusim/x/fmtx"
)

// Config wires a Runner to its collaborators. Conn is the Runner's own bus
// connection, used to publish hardware-mutation messages to the Schematic
// and status events to whoever is watching the run; Clock and SharedBuffer
// are the same instances the Schematic and the MCU part were built with.
type Config struct {
	Conn         *bus.Connection
	Clock        *clock.Clock
	SharedBuffer *wiring.SharedBuffer
	Started      *atomic.Bool
	ArgsLine     string
	Binary       []byte
}

// Runner owns one WebAssembly instance for the lifetime of one simulation
// session; pause/resume never recreates it (§4.4 Lifecycle).
type Runner struct {
	conn    *bus.Connection
	clock   *clock.Clock
	buf     *wiring.SharedBuffer
	started *atomic.Bool
	argv    []string
	binary  []byte

	ws2812Buf map[int][]byte

	rt  wazero.Runtime
	mem api.Memory
}

// New constructs a Runner. The WebAssembly module is not compiled or
// instantiated until Run.
func New(cfg Config) (*Runner, error) {
	argv, err := buildArgv(cfg.ArgsLine)
	if err != nil {
		return nil, fmt.Errorf("runner: parsing args line: %w", err)
	}
	return &Runner{
		conn:      cfg.Conn,
		clock:     cfg.Clock,
		buf:       cfg.SharedBuffer,
		started:   cfg.Started,
		argv:      argv,
		binary:    cfg.Binary,
		ws2812Buf: make(map[int][]byte),
	}, nil
}

func (r *Runner) publishStatus(msg types.RunnerStatusMsg) {
	if msg.Status != types.StatusStdout {
		fmtx.Printf("runner: status %s\n", msg.Status)
	}
	r.conn.Publish(r.conn.NewMessage(bus.T("schematic", "runner", "status"), msg, true))
}

// Run compiles and instantiates the program, runs it to completion (or
// until ctx is cancelled), and returns its exit code. The WebAssembly
// instance's `_start` runs on the calling goroutine; every host call it
// makes is therefore serviced on that same goroutine, matching the
// single-threaded Runner task of §5.
func (r *Runner) Run(ctx context.Context) (exitCode int, err error) {
	r.publishStatus(types.RunnerStatusMsg{Status: types.StatusCompiling})

	r.rt = wazero.NewRuntime(ctx)
	defer r.rt.Close(ctx)

	if err := r.registerWASI(ctx); err != nil {
		return 0, r.fail(err)
	}
	if err := r.registerHostABI(ctx); err != nil {
		return 0, r.fail(err)
	}

	compiled, err := r.rt.CompileModule(ctx, r.binary)
	if err != nil {
		return 0, r.fail(fmt.Errorf("compiling module: %w", err))
	}

	r.publishStatus(types.RunnerStatusMsg{Status: types.StatusLoading})

	modCfg := wazero.NewModuleConfig().WithStartFunctions() // don't auto-run _start
	mod, err := r.rt.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return 0, r.fail(fmt.Errorf("instantiating module: %w", err))
	}
	r.mem = mod.Memory()

	start := mod.ExportedFunction("_start")
	if start == nil {
		return 0, r.fail(errors.New("module exports no _start"))
	}

	if r.started != nil {
		r.started.Store(true)
	}
	r.publishStatus(types.RunnerStatusMsg{Status: types.StatusStarted})

	_, callErr := start.Call(ctx)
	if r.started != nil {
		r.started.Store(false)
	}

	var exitErr *sys.ExitError
	switch {
	case errors.As(callErr, &exitErr):
		exitCode = int(exitErr.ExitCode())
		r.publishStatus(types.RunnerStatusMsg{Status: types.StatusExited, Exited: &types.ExitedMsg{ExitCode: exitCode}})
		return exitCode, nil
	case callErr != nil:
		return 0, r.fail(callErr)
	default:
		r.publishStatus(types.RunnerStatusMsg{Status: types.StatusExited, Exited: &types.ExitedMsg{ExitCode: 0}})
		return 0, nil
	}
}

func (r *Runner) fail(err error) error {
	r.publishStatus(types.RunnerStatusMsg{Status: types.StatusError, Error: &types.ErrorMsg{Message: err.Error()}})
	return err
}

// callSchematic increments the task semaphore, round-trips msg through the
// Schematic via bus.Connection's Request/RequestWait pattern, and
// decrements the semaphore once the reply arrives. Used only by host calls
// that must observe the result of the operation they post (SPI/I²C
// transfers); plain mutating calls use postSchematic instead, which never
// blocks the program.
func (r *Runner) callSchematic(ctx context.Context, topic bus.Topic, payload any) (*bus.Message, error) {
	r.buf.IncSemaphore()
	defer r.buf.DecSemaphore()
	msg := r.conn.NewMessage(topic, payload, false)
	return r.conn.RequestWait(ctx, msg)
}

// postSchematic increments the task semaphore and publishes msg without
// waiting for a reply — the Schematic is responsible for decrementing the
// semaphore itself once the operation is fully applied, so a later
// __tinygo_gpio_get's WaitSemaphoreZero still observes it.
func (r *Runner) postSchematic(topic bus.Topic, payload any) {
	r.buf.IncSemaphore()
	r.conn.Publish(r.conn.NewMessage(topic, payload, false))
}

// sleepMs blocks the calling host call for ms milliseconds of virtual time,
// backed by clock.Clock's own pausable timer — Pause/Start on the Clock
// stops and rearms it exactly as it does any other scheduled callback, so a
// paused simulation suspends a sleeping program instead of burning through
// its delay in the background.
func (r *Runner) sleepMs(ctx context.Context, ms int64) error {
	r.flushWS2812()
	if ms <= 0 {
		return nil
	}
	done := make(chan struct{})
	r.clock.SetTimeout(func() { close(done) }, ms)
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
