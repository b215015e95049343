package schematic

import (
	"context"

	"mcusim/runner"
)

// spawnRunner starts the WebAssembly program on its own goroutine, bound to
// a context this session can cancel independently of the service's own
// lifetime (on a later `start`, or on Run's ctx ending). The Runner gets its
// own named bus connection, the same multi-connection-per-bus idiom
// bus/cmd/selftest uses for its requester/responder pair, so its messages
// are attributable to "runner" rather than arriving as if the Schematic
// itself sent them.
func (s *Service) spawnRunner(ctx context.Context, sess *session, binary []byte, argsLine string) {
	runCtx, cancel := context.WithCancel(ctx)
	sess.cancel = cancel

	r, err := runner.New(runner.Config{
		Conn:         s.bus.NewConnection("runner"),
		Clock:        sess.clock,
		SharedBuffer: sess.buf,
		Started:      sess.started,
		ArgsLine:     argsLine,
		Binary:       binary,
	})
	if err != nil {
		return
	}
	sess.running = true
	go func() {
		_, _ = r.Run(runCtx)
	}()
}
