package types

// Hardware-mutation messages the Runner posts to the Schematic, one struct
// per §4.6 host call that reaches the wiring graph or a bus state machine.
// Fire-and-forget calls (GPIOSet, GPIOConfigure, SPIConfigure, I2CConfigure,
// WS2812Write) get no reply: the Schematic decrements the Runner's task
// semaphore in the shared buffer once each is applied. Calls that must
// return data to the program (SPITransfer, SPITx, I2CTx) carry their result
// in their own reply type.

// HWAckMsg is an empty hardware reply type; no handler in this module
// sends it.
type HWAckMsg struct{}

type GPIOSetMsg struct {
	Pin  int  `json:"pin"`
	High bool `json:"high"`
}

type GPIOConfigureMsg struct {
	Pin  int      `json:"pin"`
	Mode GPIOMode `json:"mode"`
}

type SPIConfigureMsg struct {
	Bus  int `json:"bus"`
	SCK  int `json:"sck"`
	SDO  int `json:"sdo"`
	SDI  int `json:"sdi"`
}

type SPITransferMsg struct {
	Bus int  `json:"bus"`
	W   byte `json:"w"`
}

type SPITransferReplyMsg struct {
	Resp byte `json:"resp"`
}

type SPITxMsg struct {
	Bus     int    `json:"bus"`
	W       []byte `json:"w"`
	ReadLen int    `json:"readLen"`
}

type SPITxReplyMsg struct {
	Resp []byte `json:"resp"`
}

type I2CConfigureMsg struct {
	Bus int `json:"bus"`
	SCL int `json:"scl"`
	SDA int `json:"sda"`
}

// I2CTxMsg is the supplemented I²C counterpart to SPITxMsg: spec.md's shared
// buffer layout reserves a status cell per I²C bus (§4.4) but the §4.6 host
// call list only ever names the SPI calls explicitly, an omission this
// fills in the same shape as the SPI pair.
type I2CTxMsg struct {
	Bus     int    `json:"bus"`
	Addr    uint16 `json:"addr"`
	W       []byte `json:"w"`
	ReadLen int    `json:"readLen"`
}

// I2CTxReplyMsg.Status mirrors protocols.I2CStatus numerically
// (0 success, 1 no-ack, 2 other) without types importing protocols.
type I2CTxReplyMsg struct {
	Resp   []byte `json:"resp"`
	Status uint8  `json:"status"`
}

// WS2812WriteMsg carries a whole per-pin buffer rather than one byte:
// `runtime.sleepTicks`/poll_oneoff flush the Runner's pending
// __tinygo_ws2812_write_byte calls as one batch per pin right before
// blocking, matching the "buffered per-pin, flushed before each sleep"
// behavior spec.md's §4.6 calls out.
type WS2812WriteMsg struct {
	Pin  int    `json:"pin"`
	Data []byte `json:"data"`
}
