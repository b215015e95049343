package protocols

import (
	"mcusim/types"
	"mcusim/wiring"
)

// WS2812Sink is implemented by any Part that consumes a WS2812 byte
// stream — the strip part's write entry point.
type WS2812Sink interface {
	WriteWS2812(buf []byte)
}

// WS2812Resolver maps a din pin to the Part-provided sink behind it.
type WS2812Resolver interface {
	WS2812SinkFor(pin wiring.PinHandle) (WS2812Sink, bool)
}

// ForwardWS2812 walks the net an output pin currently belongs to and
// forwards buf to every connected pin in ws2812-din mode. This is
// Pin.writeWS2812 from the wiring model, kept in protocols because it is
// bus-protocol behavior (the WS2812 wire format), not graph topology.
func ForwardWS2812(graph *wiring.Graph, resolver WS2812Resolver, from wiring.PinHandle, buf []byte) {
	net, ok := graph.NetOf(from)
	if !ok {
		return
	}
	for _, h := range net.Pins {
		if graph.Pins[h].Mode != types.PinWS2812Din {
			continue
		}
		if sink, ok := resolver.WS2812SinkFor(h); ok {
			sink.WriteWS2812(buf)
		}
	}
}
