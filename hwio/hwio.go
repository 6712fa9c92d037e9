// Package hwio defines the hardware contracts the board core is written
// against. Providers adapt these to a real target (machine, uartx) under
// build tags; tests and the host simulator supply in-memory implementations.
package hwio

// ---- GPIO handles ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

type GPIOHandle interface {
	Number() int
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(bool)
	Get() bool
	Toggle()
}

// ---- IR transmit ----

// GenericTiming is an explicit µs-level frame description for protocols
// transmitted without a canonical encoder. Space encoding: a constant bit
// mark, with the bit value carried by the following space.
type GenericTiming struct {
	HeaderMarkUS  uint32
	HeaderSpaceUS uint32
	BitMarkUS     uint32
	OneSpaceUS    uint32
	ZeroSpaceUS   uint32
	FooterMarkUS  uint32
	GapUS         uint32
	MinFrameUS    uint32
	CarrierKHz    uint16
	MSBFirst      bool
	DutyPercent   uint8
}

// IRSender is one gpio bound for IR transmission. SendProtocol dispatches to
// the provider's canonical encoder for a named protocol; SendGeneric
// transmits from an explicit timing tuple.
type IRSender interface {
	GPIO() int
	SendProtocol(name string, value uint64, bits int) error
	SendGeneric(t GenericTiming, value uint64, bits int) error
	Close()
}

// ---- IR receive ----

// RawDecode is a completed hardware decode.
type RawDecode struct {
	Protocol string
	Value    uint64
	Bits     int
}

// IRReceiver is a decode binding on one gpio. The hardware holds at most one
// completed frame; Resume re-arms capture and must be called after every
// consumed decode or the receiver stalls.
type IRReceiver interface {
	GPIO() int
	Poll() (RawDecode, bool)
	Resume()
	Close()
}

// ---- Serial ----

// SerialPort is a secondary UART with non-blocking reads.
type SerialPort interface {
	Write(p []byte) (int, error)
	ReadByte() (byte, bool)
	Buffered() int
	Close() error
}

// ---- Provider surface ----

// Hardware is the injected factory for every physical binding the core
// creates or destroys. Open* calls hand ownership to the caller; Close on the
// returned binding releases the underlying pin or peripheral.
type Hardware interface {
	Pin(gpio int) GPIOHandle
	OpenIRSender(gpio int) (IRSender, error)
	OpenIRReceiver(gpio int) (IRReceiver, error)
	OpenSerial(rx, tx, baud int) (SerialPort, error)

	// UniqueID returns a stable hardware identifier used to derive the
	// default board id.
	UniqueID() uint32

	// DelayMicros busy-waits. Used only by the bit-banged diagnostic pulse.
	DelayMicros(us int)
}
