package parts

import (
	"mcusim/protocols"
	"mcusim/types"
	"mcusim/wiring"
)

func init() {
	RegisterBuilder("st7789", st7789Builder{})
}

type st7789Builder struct{}

func (st7789Builder) Build(in BuildInput) (Part, error) {
	cfg := in.Config.ST7789
	d := &ST7789{Base: NewBase(in.ID), graph: in.Graph}
	d.width, d.height = 240, 320
	if cfg != nil {
		if cfg.Width > 0 {
			d.width = cfg.Width
		}
		if cfg.Height > 0 {
			d.height = cfg.Height
		}
	}
	d.image = make([]byte, d.width*d.height*4)
	d.softReset()

	d.addPin("cs", in.Graph.AddPin(in.ID, "cs", types.PinGPIO))
	d.addPin("dc", in.Graph.AddPin(in.ID, "dc", types.PinGPIO))
	sck := in.Graph.AddPin(in.ID, "sck", types.PinGPIO)
	d.addPin("sck", sck)
	d.addPin("sdi", in.Graph.AddPin(in.ID, "sdi", types.PinGPIO))
	d.addPin("reset", in.Graph.AddPin(in.ID, "reset", types.PinGPIO))

	if in.SPIRegistry != nil {
		in.SPIRegistry.Register(sck, d)
	}
	d.MarkDirty()
	return d, nil
}

// st7789NativeW/H are the controller's fixed physical coordinate space; the
// MADCTL mirror transform ("x = 239 - x", "y = 319 - y") is expressed in
// this space regardless of the configured display width/height (a panel
// smaller than 240x320 is just a window onto it).
const (
	st7789NativeW = 240
	st7789NativeH = 320
)

// ST7789 is the 16-bpp RGB565 LCD controller: a command/data state machine
// over a CASET/RASET-defined window, with a MADCTL rotation/mirror register
// applied transpose-then-mirrorX-then-mirrorY (see DESIGN.md's Open
// Question decision).
type ST7789 struct {
	Base

	graph *wiring.Graph

	width, height int
	image         []byte // RGBA

	cs, dc, lastReset bool

	xs, xe, ys, ye   int
	xcursor, ycursor int
	madctl           byte
	inverted, asleep bool
	currentCmd       byte
	cmdAccum         []byte
	pendingHi        byte
	havePendingHi    bool
}

func (d *ST7789) softReset() {
	d.xs, d.xe = 0, st7789NativeW-1
	d.ys, d.ye = 0, st7789NativeH-1
	d.xcursor, d.ycursor = 0, 0
	d.madctl = 0
	d.inverted = false
	d.asleep = true
	d.currentCmd = 0
	d.cmdAccum = nil
	d.havePendingHi = false
}

func (d *ST7789) NotifyPinUpdate(pin wiring.PinHandle, state types.PinState, _ *types.PWMExtra) {
	switch pin {
	case d.pin("cs"):
		d.cs = state == types.StateHigh
	case d.pin("dc"):
		d.dc = state == types.StateHigh
	case d.pin("reset"):
		high := state == types.StateHigh
		if d.lastReset && !high {
			d.softReset()
			d.MarkDirty()
		}
		d.lastReset = high
	}
}

func (d *ST7789) HandleInput(types.InputEvent) {}

// TransferSPI implements protocols.SPIPeripheral. ST7789 never drives SDO.
func (d *ST7789) TransferSPI(sck wiring.PinHandle, w byte) (byte, bool) {
	if d.cs {
		return 0, false
	}
	if !d.dc {
		d.handleCommand(w)
		return 0, false
	}
	d.handleData(w)
	return 0, false
}

func (d *ST7789) handleCommand(cmd byte) {
	d.currentCmd = cmd
	d.cmdAccum = d.cmdAccum[:0]
	d.havePendingHi = false
	switch cmd {
	case 0x01: // SWRESET
		d.softReset()
	case 0x11: // SLPOUT
		d.asleep = false
	case 0x20: // INVOFF
		d.inverted = false
	case 0x21: // INVON
		d.inverted = true
	case 0x29: // DISPON
	case 0x13: // NORON
	case 0x2c: // RAMWR
		d.xcursor, d.ycursor = d.xs, d.ys
	}
}

func (d *ST7789) handleData(b byte) {
	switch d.currentCmd {
	case 0x2a: // CASET: xs_hi xs_lo xe_hi xe_lo, big-endian pairs
		d.cmdAccum = append(d.cmdAccum, b)
		if len(d.cmdAccum) == 4 {
			xs := int(d.cmdAccum[0])<<8 | int(d.cmdAccum[1])
			xe := int(d.cmdAccum[2])<<8 | int(d.cmdAccum[3])
			if xs <= xe {
				d.xs, d.xe = xs, xe
			}
		}
	case 0x2b: // RASET
		d.cmdAccum = append(d.cmdAccum, b)
		if len(d.cmdAccum) == 4 {
			ys := int(d.cmdAccum[0])<<8 | int(d.cmdAccum[1])
			ye := int(d.cmdAccum[2])<<8 | int(d.cmdAccum[3])
			if ys <= ye {
				d.ys, d.ye = ys, ye
			}
		}
	case 0x2c: // RAMWR: two bytes per RGB565 word
		if !d.havePendingHi {
			d.pendingHi = b
			d.havePendingHi = true
			return
		}
		word := uint16(d.pendingHi)<<8 | uint16(b)
		d.havePendingHi = false
		d.writePixel(word)
		d.advanceCursor()
	case 0x36: // MADCTL
		d.madctl = b
	case 0x3a: // COLMOD, must be 0x55; accepted either way
	}
}

func (d *ST7789) writePixel(word uint16) {
	if d.xcursor < 0 || d.ycursor < 0 {
		return
	}
	px, py := d.madctlTransform(d.xcursor, d.ycursor)
	if px < 0 || px >= d.width || py < 0 || py >= d.height {
		return
	}
	r5 := byte((word >> 11) & 0x1f)
	g6 := byte((word >> 5) & 0x3f)
	b5 := byte(word & 0x1f)
	r := r5<<3 | r5>>2
	g := g6<<2 | g6>>4
	b := b5<<3 | b5>>2
	if d.inverted {
		r, g, b = 0xff-r, 0xff-g, 0xff-b
	}
	off := (py*d.width + px) * 4
	d.image[off], d.image[off+1], d.image[off+2], d.image[off+3] = r, g, b, 0xff
	d.MarkDirty()
}

// madctlTransform applies MV (transpose) then MX (mirror x) then MY
// (mirror y), in that order — the Open Question decision in DESIGN.md.
func (d *ST7789) madctlTransform(x, y int) (int, int) {
	const mv, mx, my = 0x20, 0x40, 0x80
	if d.madctl&mv != 0 {
		x, y = y, x
	}
	if d.madctl&mx != 0 {
		x = st7789NativeW - 1 - x
	}
	if d.madctl&my != 0 {
		y = st7789NativeH - 1 - y
	}
	return x, y
}

func (d *ST7789) advanceCursor() {
	d.xcursor++
	if d.xcursor > d.xe {
		d.xcursor = d.xs
		d.ycursor++
		if d.ycursor > d.ye {
			d.ycursor = d.ys
		}
	}
}

func (d *ST7789) GetState() types.PartSnapshot {
	return types.PartSnapshot{
		ID:     d.ID(),
		Canvas: &types.CanvasSnapshot{Width: d.width, Height: d.height, RGBA: d.image},
	}
}

var _ protocols.SPIPeripheral = (*ST7789)(nil)
