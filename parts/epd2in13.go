package parts

import (
	"mcusim/protocols"
	"mcusim/types"
	"mcusim/wiring"
)

func init() {
	RegisterBuilder("epd2in13", epd2in13Builder{})
}

type epd2in13Builder struct{}

func (epd2in13Builder) Build(in BuildInput) (Part, error) {
	cfg := in.Config.EPD
	d := &EPD2IN13{Base: NewBase(in.ID), graph: in.Graph}
	if cfg != nil {
		d.width, d.height, d.rotation = cfg.Width, cfg.Height, cfg.Rotation
	}
	if d.width == 0 {
		d.width = 122
	}
	if d.height == 0 {
		d.height = 250
	}
	d.rowBytes = (d.width + 7) / 8
	d.buffer = make([]byte, d.rowBytes*d.height)
	for i := range d.buffer {
		d.buffer[i] = 0xff // default white
	}

	d.addPin("cs", in.Graph.AddPin(in.ID, "cs", types.PinGPIO))
	d.addPin("dc", in.Graph.AddPin(in.ID, "dc", types.PinGPIO))
	sck := in.Graph.AddPin(in.ID, "sck", types.PinGPIO)
	d.addPin("sck", sck)
	d.addPin("sdi", in.Graph.AddPin(in.ID, "sdi", types.PinGPIO))
	busy := in.Graph.AddPin(in.ID, "busy", types.PinGPIO)
	d.addPin("busy", busy)
	in.Graph.SetState(busy, types.StateLow, nil) // idle = low, per the EPD2IN13 open-question decision

	if in.SPIRegistry != nil {
		in.SPIRegistry.Register(sck, d)
	}
	d.MarkDirty()
	return d, nil
}

// EPD2IN13 is the monochrome e-paper's SPI peripheral side: a 1-bpp frame
// buffer addressed by an X/Y RAM counter, written byte-by-byte while
// selected. Its busy line idles low (see DESIGN.md's Open Question
// decision).
type EPD2IN13 struct {
	Base

	graph *wiring.Graph

	width, height, rotation int
	rowBytes                int
	buffer                  []byte

	cs, dc bool // observed electrical level; true = high

	currentCmd   byte
	addrX, addrY int
	cmdAccum     []byte
}

func (d *EPD2IN13) NotifyPinUpdate(pin wiring.PinHandle, state types.PinState, _ *types.PWMExtra) {
	switch pin {
	case d.pin("cs"):
		d.cs = state == types.StateHigh
	case d.pin("dc"):
		d.dc = state == types.StateHigh
	}
}

func (d *EPD2IN13) HandleInput(types.InputEvent) {}

// TransferSPI implements protocols.SPIPeripheral. EPD2IN13 is write-only
// over SPI — it never drives SDO — so it always reports "did not respond".
func (d *EPD2IN13) TransferSPI(sck wiring.PinHandle, w byte) (byte, bool) {
	if d.cs { // chip select deasserted
		return 0, false
	}
	if !d.dc {
		d.currentCmd = w
		d.cmdAccum = d.cmdAccum[:0]
		if w == 0x20 {
			d.MarkDirty() // activate display update
		}
		return 0, false
	}

	switch d.currentCmd {
	case 0x24:
		idx := d.addrX + d.addrY*d.rowBytes
		if idx >= 0 && idx < len(d.buffer) {
			d.buffer[idx] = w
		}
		d.addrX++
		d.MarkDirty()
	case 0x4e:
		d.cmdAccum = append(d.cmdAccum, w)
		d.addrX = leInt(d.cmdAccum)
	case 0x4f:
		d.cmdAccum = append(d.cmdAccum, w)
		d.addrY = leInt(d.cmdAccum)
	case 0x44:
		d.cmdAccum = append(d.cmdAccum, w) // window-in-Y data, not applied to rendering
	}
	return 0, false
}

// leInt decodes up to 4 little-endian bytes into an int.
func leInt(b []byte) int {
	v := 0
	for i, x := range b {
		v |= int(x) << (8 * i)
	}
	return v
}

func (d *EPD2IN13) GetState() types.PartSnapshot {
	rgba := renderMono(d.buffer, d.width, d.height, d.rowBytes, d.rotation)
	w, h := d.width, d.height
	if d.rotation == 1 || d.rotation == 3 {
		w, h = h, w
	}
	return types.PartSnapshot{
		ID:     d.ID(),
		Canvas: &types.CanvasSnapshot{Width: w, Height: h, RGBA: rgba},
	}
}

// renderMono turns a 1-bpp row-major buffer (1 = white, 0 = black) into an
// RGBA image, applying a quarter-turn rotation. Pixels beyond the
// configured width within a padded row are never sampled.
func renderMono(buf []byte, width, height, rowBytes, rotation int) []byte {
	outW, outH := width, height
	if rotation == 1 || rotation == 3 {
		outW, outH = height, width
	}
	rgba := make([]byte, outW*outH*4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			byteIdx := y*rowBytes + x/8
			bit := byte(0x80) >> uint(x%8)
			white := byteIdx < len(buf) && buf[byteIdx]&bit != 0

			ox, oy := rotatePoint(x, y, width, height, rotation)
			if ox < 0 || ox >= outW || oy < 0 || oy >= outH {
				continue
			}
			off := (oy*outW + ox) * 4
			v := byte(0)
			if white {
				v = 0xff
			}
			rgba[off], rgba[off+1], rgba[off+2], rgba[off+3] = v, v, v, 0xff
		}
	}
	return rgba
}

func rotatePoint(x, y, w, h, rotation int) (int, int) {
	switch rotation {
	case 1:
		return h - 1 - y, x
	case 2:
		return w - 1 - x, h - 1 - y
	case 3:
		return y, w - 1 - x
	default:
		return x, y
	}
}

var _ protocols.SPIPeripheral = (*EPD2IN13)(nil)
