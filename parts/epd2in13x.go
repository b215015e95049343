package parts

import (
	"mcusim/protocols"
	"mcusim/types"
	"mcusim/wiring"
)

func init() {
	RegisterBuilder("epd2in13x", epd2in13xBuilder{})
}

type epd2in13xBuilder struct{}

func (epd2in13xBuilder) Build(in BuildInput) (Part, error) {
	cfg := in.Config.EPD
	d := &EPD2IN13X{Base: NewBase(in.ID), graph: in.Graph}
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
	d.black = make([]byte, d.rowBytes*d.height)
	d.color = make([]byte, d.rowBytes*d.height)
	for i := range d.black {
		d.black[i] = 0xff
		d.color[i] = 0xff
	}

	d.addPin("cs", in.Graph.AddPin(in.ID, "cs", types.PinGPIO))
	d.addPin("dc", in.Graph.AddPin(in.ID, "dc", types.PinGPIO))
	sck := in.Graph.AddPin(in.ID, "sck", types.PinGPIO)
	d.addPin("sck", sck)
	d.addPin("sdi", in.Graph.AddPin(in.ID, "sdi", types.PinGPIO))
	busy := in.Graph.AddPin(in.ID, "busy", types.PinGPIO)
	d.addPin("busy", busy)
	in.Graph.SetState(busy, types.StateHigh, nil) // idle = high, per the EPD2IN13X open-question decision

	if in.SPIRegistry != nil {
		in.SPIRegistry.Register(sck, d)
	}
	d.MarkDirty()
	return d, nil
}

// EPD2IN13X is the tri-color revision: a black buffer and a color buffer,
// selected by the 0x10/0x13 write commands and composited on 0x12. Its busy
// line idles high, the inverse of EPD2IN13 — see DESIGN.md's Open Question
// decision.
type EPD2IN13X struct {
	Base

	graph *wiring.Graph

	width, height, rotation int
	rowBytes                int
	black, color            []byte

	cs, dc bool

	currentCmd   byte
	addrX, addrY int
	cmdAccum     []byte
	active       []byte // black or color, selected by 0x10/0x13
}

func (d *EPD2IN13X) NotifyPinUpdate(pin wiring.PinHandle, state types.PinState, _ *types.PWMExtra) {
	switch pin {
	case d.pin("cs"):
		d.cs = state == types.StateHigh
	case d.pin("dc"):
		d.dc = state == types.StateHigh
	}
}

func (d *EPD2IN13X) HandleInput(types.InputEvent) {}

func (d *EPD2IN13X) TransferSPI(sck wiring.PinHandle, w byte) (byte, bool) {
	if d.cs {
		return 0, false
	}
	if !d.dc {
		d.currentCmd = w
		d.cmdAccum = d.cmdAccum[:0]
		switch w {
		case 0x10:
			d.active = d.black
		case 0x13:
			d.active = d.color
		case 0x12:
			d.MarkDirty() // commit
		}
		return 0, false
	}

	switch d.currentCmd {
	case 0x10, 0x13:
		if d.active != nil {
			idx := d.addrX + d.addrY*d.rowBytes
			if idx >= 0 && idx < len(d.active) {
				d.active[idx] = w
			}
			d.addrX++
		}
	case 0x4e:
		d.cmdAccum = append(d.cmdAccum, w)
		d.addrX = leInt(d.cmdAccum)
	case 0x4f:
		d.cmdAccum = append(d.cmdAccum, w)
		d.addrY = leInt(d.cmdAccum)
	}
	return 0, false
}

func (d *EPD2IN13X) GetState() types.PartSnapshot {
	outW, outH := d.width, d.height
	if d.rotation == 1 || d.rotation == 3 {
		outW, outH = outH, outW
	}
	rgba := make([]byte, outW*outH*4)
	for y := 0; y < d.height; y++ {
		for x := 0; x < d.width; x++ {
			byteIdx := y*d.rowBytes + x/8
			bit := byte(0x80) >> uint(x%8)
			blackBitClear := byteIdx < len(d.black) && d.black[byteIdx]&bit == 0
			colorBitSet := byteIdx < len(d.color) && d.color[byteIdx]&bit != 0
			colorBitClear := !colorBitSet

			var r, g, b byte
			switch {
			case blackBitClear && colorBitSet:
				r, g, b = 0, 0, 0 // black
			case colorBitClear:
				r, g, b = 0xff, 0, 0 // third color, rendered as red
			default:
				r, g, b = 0xff, 0xff, 0xff
			}

			ox, oy := rotatePoint(x, y, d.width, d.height, d.rotation)
			if ox < 0 || ox >= outW || oy < 0 || oy >= outH {
				continue
			}
			off := (oy*outW + ox) * 4
			rgba[off], rgba[off+1], rgba[off+2], rgba[off+3] = r, g, b, 0xff
		}
	}
	return types.PartSnapshot{
		ID:     d.ID(),
		Canvas: &types.CanvasSnapshot{Width: outW, Height: outH, RGBA: rgba},
	}
}

var _ protocols.SPIPeripheral = (*EPD2IN13X)(nil)
