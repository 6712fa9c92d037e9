// Package irx is the IR transceiver subsystem: per-port transmit bindings, the
// single shared receive binding, and protocol dispatch.
package irx

import (
	"strconv"
	"strings"

	"irbridge-go/errcode"
	"irbridge-go/hwio"
	"irbridge-go/types"
)

// DefaultProtocol is transmitted when a request names a protocol nothing here
// recognises.
const DefaultProtocol = "nec"

// Protocols with a canonical encoder in the provider. Pioneer is absent on
// purpose: it always goes out via the explicit generic timing below.
var canonical = map[string]bool{
	"nec":       true,
	"samsung":   true,
	"sony":      true,
	"rc5":       true,
	"rc6":       true,
	"lg":        true,
	"panasonic": true,
}

// PioneerTiming is the fixed frame description for pioneer transmissions.
func PioneerTiming() hwio.GenericTiming {
	return hwio.GenericTiming{
		HeaderMarkUS:  8506,
		HeaderSpaceUS: 4191,
		BitMarkUS:     568,
		OneSpaceUS:    1542,
		ZeroSpaceUS:   487,
		FooterMarkUS:  568,
		GapUS:         25181,
		MinFrameUS:    84906,
		CarrierKHz:    40,
		MSBFirst:      true,
		DutyPercent:   33,
	}
}

// txPlan is the resolved dispatch for one protocol name: exactly one of
// canonical or generic is set.
type txPlan struct {
	canonical string
	generic   *hwio.GenericTiming
}

func resolve(name string) txPlan {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "pioneer" {
		t := PioneerTiming()
		return txPlan{generic: &t}
	}
	if canonical[name] {
		return txPlan{canonical: name}
	}
	return txPlan{canonical: DefaultProtocol}
}

// Transceiver owns every live IR hardware binding. It is not safe for
// concurrent use; the board loop serialises access.
type Transceiver struct {
	hw       hwio.Hardware
	senders  map[int]hwio.IRSender
	receiver hwio.IRReceiver
}

func New(hw hwio.Hardware) *Transceiver {
	return &Transceiver{hw: hw, senders: map[int]hwio.IRSender{}}
}

// BindSender attaches a transmit binding on gpio, tearing down any existing
// binding on the same gpio first.
func (x *Transceiver) BindSender(gpio int) error {
	if s, ok := x.senders[gpio]; ok {
		s.Close()
		delete(x.senders, gpio)
	}
	s, err := x.hw.OpenIRSender(gpio)
	if err != nil {
		return err
	}
	x.senders[gpio] = s
	return nil
}

// UnbindSender releases the transmit binding on gpio, if any.
func (x *Transceiver) UnbindSender(gpio int) {
	if s, ok := x.senders[gpio]; ok {
		s.Close()
		delete(x.senders, gpio)
	}
}

func (x *Transceiver) HasSender(gpio int) bool {
	_, ok := x.senders[gpio]
	return ok
}

// Send transmits value on gpio's bound sender. Unrecognised protocol names
// fall back to DefaultProtocol rather than failing.
func (x *Transceiver) Send(gpio int, protocol string, value uint64, bits int) error {
	s, ok := x.senders[gpio]
	if !ok {
		return errcode.PortNotBound
	}
	if bits <= 0 || bits > 64 {
		bits = 32
	}
	p := resolve(protocol)
	if p.generic != nil {
		return s.SendGeneric(*p.generic, value, bits)
	}
	return s.SendProtocol(p.canonical, value, bits)
}

// StartReceiver binds the shared receiver to gpio. Any previous receiver is
// torn down first, unconditionally, even when it sits on the same gpio.
func (x *Transceiver) StartReceiver(gpio int) error {
	x.StopReceiver()
	r, err := x.hw.OpenIRReceiver(gpio)
	if err != nil {
		return err
	}
	x.receiver = r
	return nil
}

// StopReceiver tears down the receive binding. Safe to call when none exists.
func (x *Transceiver) StopReceiver() {
	if x.receiver != nil {
		x.receiver.Close()
		x.receiver = nil
	}
}

// ReceiverGPIO reports where the receiver is bound.
func (x *Transceiver) ReceiverGPIO() (int, bool) {
	if x.receiver == nil {
		return 0, false
	}
	return x.receiver.GPIO(), true
}

// PollDecode drains at most one completed decode. Capture is resumed before
// returning, whether or not a frame was ready, so the receiver never stalls.
func (x *Transceiver) PollDecode() (types.DecodedSignal, bool) {
	if x.receiver == nil {
		return types.DecodedSignal{}, false
	}
	d, ok := x.receiver.Poll()
	if !ok {
		return types.DecodedSignal{}, false
	}
	x.receiver.Resume()
	return types.DecodedSignal{
		Protocol: d.Protocol,
		ValueHex: FormatValue(d.Value),
		Bits:     d.Bits,
	}, true
}

// RawPulse bit-bangs count on/off cycles on gpio. It busy-waits for the full
// pulse train and only returns when the line is back low.
func (x *Transceiver) RawPulse(gpio, onUS, offUS, count int) error {
	pin := x.hw.Pin(gpio)
	if err := pin.ConfigureOutput(false); err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		pin.Set(true)
		x.hw.DelayMicros(onUS)
		pin.Set(false)
		x.hw.DelayMicros(offUS)
	}
	return nil
}

// Close releases every live binding.
func (x *Transceiver) Close() {
	for gpio, s := range x.senders {
		s.Close()
		delete(x.senders, gpio)
	}
	x.StopReceiver()
}

// FormatValue renders an IR code the way it appears on the wire and in logs.
func FormatValue(v uint64) string {
	return "0x" + strings.ToUpper(strconv.FormatUint(v, 16))
}
