package schematic

import (
	"mcusim/bus"
	"mcusim/errcode"
	"mcusim/protocols"
	"mcusim/types"
	"mcusim/wiring"
)

// handleHW dispatches a Runner-originated hardware-mutation message on the
// verb token of its `schematic/hw/<verb>` topic. Fire-and-forget verbs
// (everything but the three transfer calls) must call buf.DecSemaphore once
// applied, since the Runner incremented it before publishing and never
// blocks for a reply; the transfer verbs reply instead, and the Runner's own
// callSchematic decrements the semaphore around the round trip.
func (s *Service) handleHW(msg *bus.Message) {
	sess := s.sess
	if sess == nil {
		return
	}
	verb, _ := msg.Topic.At(2).(string)
	switch verb {
	case "gpioSet":
		s.hwGPIOSet(sess, msg)
	case "gpioConfigure":
		s.hwGPIOConfigure(sess, msg)
	case "spiConfigure":
		s.hwSPIConfigure(sess, msg)
	case "spiTransfer":
		s.hwSPITransfer(sess, msg)
	case "spiTx":
		s.hwSPITx(sess, msg)
	case "i2cConfigure":
		s.hwI2CConfigure(sess, msg)
	case "i2cTx":
		s.hwI2CTx(sess, msg)
	case "ws2812Write":
		s.hwWS2812Write(sess, msg)
	}
}

// mcuPin resolves a program-facing pin number through the cached MCU part;
// a number the board never declared is an UnknownPin diagnostic, not a
// panic, since a guest program is free to pass garbage.
func (s *Service) mcuPin(sess *session, num int) (wiring.PinHandle, bool) {
	if sess.mcu == nil {
		return wiring.InvalidPin, false
	}
	h, ok := sess.mcu.PinHandleForNumber(num)
	if !ok {
		s.publishDiag(types.Diagnostic{Code: string(errcode.UnknownPin), Message: "unknown pin number"})
	}
	return h, ok
}

func (s *Service) hwGPIOSet(sess *session, msg *bus.Message) {
	defer sess.buf.DecSemaphore()
	in, ok := msg.Payload.(types.GPIOSetMsg)
	if !ok {
		return
	}
	h, ok := s.mcuPin(sess, in.Pin)
	if !ok {
		return
	}
	if diag := sess.graph.SetOutput(h, in.High); diag {
		s.publishDiag(types.Diagnostic{Code: string(errcode.NotOutput), Message: "gpioSet on a pin not configured as output"})
		return
	}
	updates, shortDiag := sess.graph.UpdateNet(h)
	s.deliverUpdates(sess, updates)
	if shortDiag != nil {
		s.publishDiag(*shortDiag)
	}
}

// hwGPIOConfigure maps the requested mode onto the pin's own drive state:
// output starts low until the program calls gpioSet, floating/pullup/
// pulldown are themselves the full story. Mode never changes the pin's
// wiring.PinMode here — that stays "gpio" except for the bus pins SPI
// configure reassigns (I2C configure only records its pin handles).
func (s *Service) hwGPIOConfigure(sess *session, msg *bus.Message) {
	defer sess.buf.DecSemaphore()
	in, ok := msg.Payload.(types.GPIOConfigureMsg)
	if !ok {
		return
	}
	h, ok := s.mcuPin(sess, in.Pin)
	if !ok {
		return
	}
	var state types.PinState
	switch in.Mode {
	case types.ModeOutput:
		state = types.StateLow
	case types.ModePullup:
		state = types.StatePullup
	case types.ModePulldown:
		state = types.StatePulldown
	default:
		state = types.StateFloating
	}
	sess.graph.SetState(h, state, nil)
	updates, shortDiag := sess.graph.UpdateNet(h)
	s.deliverUpdates(sess, updates)
	if shortDiag != nil {
		s.publishDiag(*shortDiag)
	}
}

func (s *Service) spiBus(sess *session, idx int) *protocols.SPIBus {
	b, ok := sess.spiBuses[idx]
	if !ok {
		b = protocols.NewSPIBus(sess.graph, sess.spiReg)
		sess.spiBuses[idx] = b
	}
	return b
}

func (s *Service) i2cBus(sess *session, idx int) *protocols.I2CBus {
	b, ok := sess.i2cBuses[idx]
	if !ok {
		b = protocols.NewI2CBus(sess.i2cReg)
		sess.i2cBuses[idx] = b
	}
	return b
}

// hwSPIConfigure always configures the bus as controller: the program's MCU
// is the only side that ever issues this call, while an SPI peripheral (a
// display) registers itself directly in sess.spiReg at part-build time.
func (s *Service) hwSPIConfigure(sess *session, msg *bus.Message) {
	defer sess.buf.DecSemaphore()
	in, ok := msg.Payload.(types.SPIConfigureMsg)
	if !ok {
		return
	}
	sck, ok1 := s.mcuPin(sess, in.SCK)
	sdo, ok2 := s.mcuPin(sess, in.SDO)
	sdi, ok3 := s.mcuPin(sess, in.SDI)
	if !ok1 || !ok2 || !ok3 {
		return
	}
	s.spiBus(sess, in.Bus).ConfigureAsController(sck, sdo, sdi)
	updates, shortDiag := sess.graph.UpdateNet(sck)
	s.deliverUpdates(sess, updates)
	if shortDiag != nil {
		s.publishDiag(*shortDiag)
	}
}

func (s *Service) hwSPITransfer(sess *session, msg *bus.Message) {
	in, ok := msg.Payload.(types.SPITransferMsg)
	if !ok {
		return
	}
	resp := s.spiBus(sess, in.Bus).Transfer(in.W)
	s.conn.Reply(msg, types.SPITransferReplyMsg{Resp: resp}, false)
}

// hwSPITx clocks the write bytes, discarding their responses, then clocks
// readLen dummy 0xff bytes to read the reply — the manual Transfer loop a
// tinygo.org/x/drivers.SPI implementation without DMA support uses for its
// Tx, generalized here since protocols.SPIBus exposes only Transfer.
func (s *Service) hwSPITx(sess *session, msg *bus.Message) {
	in, ok := msg.Payload.(types.SPITxMsg)
	if !ok {
		return
	}
	spi := s.spiBus(sess, in.Bus)
	for _, wb := range in.W {
		spi.Transfer(wb)
	}
	resp := make([]byte, in.ReadLen)
	for i := range resp {
		resp[i] = spi.Transfer(0xff)
	}
	s.conn.Reply(msg, types.SPITxReplyMsg{Resp: resp}, false)
}

func (s *Service) hwI2CConfigure(sess *session, msg *bus.Message) {
	defer sess.buf.DecSemaphore()
	in, ok := msg.Payload.(types.I2CConfigureMsg)
	if !ok {
		return
	}
	scl, ok1 := s.mcuPin(sess, in.SCL)
	sda, ok2 := s.mcuPin(sess, in.SDA)
	if !ok1 || !ok2 {
		return
	}
	s.i2cBus(sess, in.Bus).ConfigureAsController(scl, sda)
}

func (s *Service) hwI2CTx(sess *session, msg *bus.Message) {
	in, ok := msg.Payload.(types.I2CTxMsg)
	if !ok {
		return
	}
	resp, status := s.i2cBus(sess, in.Bus).Transfer(in.Addr, in.W, in.ReadLen)
	sess.buf.SetBusStatus(in.Bus, int32(status))
	s.conn.Reply(msg, types.I2CTxReplyMsg{Resp: resp, Status: uint8(status)}, false)
}

func (s *Service) hwWS2812Write(sess *session, msg *bus.Message) {
	defer sess.buf.DecSemaphore()
	in, ok := msg.Payload.(types.WS2812WriteMsg)
	if !ok {
		return
	}
	h, ok := s.mcuPin(sess, in.Pin)
	if !ok {
		return
	}
	protocols.ForwardWS2812(sess.graph, sess.ws2812Reg, h, in.Data)
	s.checkDirty(sess)
}
