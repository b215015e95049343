package parts

import (
	"math"

	"mcusim/protocols"
	"mcusim/types"
	"mcusim/wiring"
)

func init() {
	RegisterBuilder("ws2812", ws2812Builder{})
}

type ws2812Builder struct{}

func (ws2812Builder) Build(in BuildInput) (Part, error) {
	cfg := in.Config.WS2812
	s := &WS2812Strip{
		Base:  NewBase(in.ID),
		graph: in.Graph,
		res:   in.WS2812Registry,
	}
	if cfg != nil {
		s.n = cfg.Length
		s.channelCurrent = cfg.ChannelCurrent
	}
	din := in.Graph.AddPin(in.ID, "din", types.PinWS2812Din)
	s.addPin("din", din)
	s.addPin("dout", in.Graph.AddPin(in.ID, "dout", types.PinWS2812Dout))
	s.pixels = make([][3]uint8, s.n)
	if in.WS2812Registry != nil {
		in.WS2812Registry.Register(din, s)
	}
	s.MarkDirty()
	return s, nil
}

// ws2812Gamma approximates the perceptual gamma correction real WS2812
// driver code applies before handing raw linear values to the LED.
const ws2812Gamma = 2.8

// WS2812Strip is a sequence of N LEDs addressed by GRB triples. Writing more
// than 3N bytes re-emits the overflow on dout to cascade to the next strip
// in the chain, via protocols.ForwardWS2812.
type WS2812Strip struct {
	Base

	graph *wiring.Graph
	res   protocols.WS2812Resolver

	n              int
	channelCurrent [3]float64
	pixels         [][3]uint8 // linear RGB, index 0 = nearest to the controller
}

// WriteWS2812 implements protocols.WS2812Sink.
func (s *WS2812Strip) WriteWS2812(buf []byte) {
	take := s.n * 3
	if take > len(buf) {
		take = len(buf)
	}
	for i := 0; i+3 <= take; i += 3 {
		g, r, b := buf[i], buf[i+1], buf[i+2]
		s.pixels[i/3] = [3]uint8{r, g, b}
	}
	s.MarkDirty()

	if rest := buf[take:]; len(rest) > 0 {
		protocols.ForwardWS2812(s.graph, s.res, s.pin("dout"), rest)
	}
}

func (s *WS2812Strip) NotifyPinUpdate(wiring.PinHandle, types.PinState, *types.PWMExtra) {}
func (s *WS2812Strip) HandleInput(types.InputEvent)                                      {}

func gammaEncode(v uint8) uint8 {
	return uint8(math.Round(math.Pow(float64(v)/255, 1/ws2812Gamma) * 255))
}

func (s *WS2812Strip) GetState() types.PartSnapshot {
	entries := make([]types.LEDStripEntry, len(s.pixels))
	var current float64
	for i, px := range s.pixels {
		entries[i] = types.LEDStripEntry{
			Color:  [3]uint8{gammaEncode(px[0]), gammaEncode(px[1]), gammaEncode(px[2])},
			Shadow: px,
		}
		for ch, v := range px {
			current += s.channelCurrent[ch] * float64(v) / 255
		}
	}
	return types.PartSnapshot{
		ID:       s.ID(),
		LEDStrip: entries,
		Power:    &types.PowerSnapshot{Current: current},
	}
}
