// Command mcusim hosts one schematic.Service on a bus.Bus and leaves every
// simulation command to arrive over the bus — from a WebSocket bridge, a
// wasm-exec'd browser host, or (as here) nothing but the process's own
// lifetime, the same way the teacher's cmd/pico-demo does nothing but start
// hal.Service and wait for the platform to feed it work.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"mcusim/bus"
	"mcusim/schematic"
	"mcusim/x/fmtx"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := bus.NewBus(256)
	svc := schematic.NewService(b)

	fmtx.Printf("mcusim: schematic service starting\n")
	svc.Run(ctx)
	fmtx.Printf("mcusim: schematic service stopped\n")
}
