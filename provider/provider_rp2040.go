//go:build rp2040

package provider

import (
	"machine"
	"time"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
	"tinygo.org/x/drivers/irremote"

	"irbridge-go/boards"
	"irbridge-go/errcode"
	"irbridge-go/hwio"
)

// HW implements hwio.Hardware on the RP2040. Logical gpio numbers from the
// board definition go through the variant pin map before touching machine.
type HW struct{}

func New() hwio.Hardware { return &HW{} }

// ActiveBoard is the variant compiled into this image.
func ActiveBoard() boards.Definition { return activeBoard }

func physPin(gpio int) machine.Pin {
	if p, ok := pinMap[gpio]; ok {
		return p
	}
	return machine.Pin(gpio)
}

func (h *HW) Pin(gpio int) hwio.GPIOHandle {
	return &rpPin{n: gpio, p: physPin(gpio)}
}

func (h *HW) UniqueID() uint32 {
	id := machine.DeviceID()
	var v uint32
	for _, b := range id {
		v = v<<8 | uint32(b)
		v ^= v >> 15
	}
	return v
}

func (h *HW) DelayMicros(us int) { delayUS(uint32(us)) }

// delayUS spins for short waits where the scheduler's sleep granularity would
// wreck the pulse timing, and sleeps for long ones.
func delayUS(us uint32) {
	d := time.Duration(us) * time.Microsecond
	if d >= 2*time.Millisecond {
		time.Sleep(d)
		return
	}
	t0 := time.Now()
	for time.Since(t0) < d {
	}
}

// ---- GPIO ----

type rpPin struct {
	n int
	p machine.Pin
}

func (p *rpPin) Number() int { return p.n }

func (p *rpPin) ConfigureInput(pull hwio.Pull) error {
	mode := machine.PinInput
	switch pull {
	case hwio.PullUp:
		mode = machine.PinInputPullup
	case hwio.PullDown:
		mode = machine.PinInputPulldown
	}
	p.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (p *rpPin) ConfigureOutput(initial bool) error {
	p.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.p.Set(initial)
	return nil
}

func (p *rpPin) Set(v bool) { p.p.Set(v) }
func (p *rpPin) Get() bool  { return p.p.Get() }
func (p *rpPin) Toggle()    { p.p.Set(!p.p.Get()) }

// ---- IR transmit ----

// pwmGroup is the slice of machine's PWM peripherals we use.
type pwmGroup interface {
	Configure(machine.PWMConfig) error
	Channel(machine.Pin) (uint8, error)
	SetPeriod(uint64) error
	Set(ch uint8, value uint32)
	Top() uint32
}

func pwmFor(p machine.Pin) (pwmGroup, error) {
	slice, err := machine.PWMPeripheral(p)
	if err != nil {
		return nil, err
	}
	switch slice {
	case 0:
		return machine.PWM0, nil
	case 1:
		return machine.PWM1, nil
	case 2:
		return machine.PWM2, nil
	case 3:
		return machine.PWM3, nil
	case 4:
		return machine.PWM4, nil
	case 5:
		return machine.PWM5, nil
	case 6:
		return machine.PWM6, nil
	case 7:
		return machine.PWM7, nil
	}
	return nil, &errcode.E{C: errcode.Error, Op: "provider.pwmFor", Msg: "no pwm slice"}
}

// rpSender gates a PWM carrier on and off to shape the frame. It satisfies
// the carrier interface consumed by the encoders.
type rpSender struct {
	gpio int
	pin  machine.Pin
	pg   pwmGroup
	ch   uint8
	duty uint32
}

func (h *HW) OpenIRSender(gpio int) (hwio.IRSender, error) {
	pin := physPin(gpio)
	pin.Configure(machine.PinConfig{Mode: machine.PinPWM})
	pg, err := pwmFor(pin)
	if err != nil {
		return nil, &errcode.E{C: errcode.Error, Op: "provider.OpenIRSender", Err: err}
	}
	if err := pg.Configure(machine.PWMConfig{Period: uint64(1e9) / 38000}); err != nil {
		return nil, &errcode.E{C: errcode.Error, Op: "provider.OpenIRSender", Err: err}
	}
	ch, err := pg.Channel(pin)
	if err != nil {
		return nil, &errcode.E{C: errcode.Error, Op: "provider.OpenIRSender", Err: err}
	}
	pg.Set(ch, 0)
	s := &rpSender{gpio: gpio, pin: pin, pg: pg, ch: ch}
	s.setCarrier(38, defaultDuty)
	return s, nil
}

func (s *rpSender) GPIO() int { return s.gpio }

func (s *rpSender) setCarrier(khz uint16, dutyPercent uint8) {
	if khz == 0 {
		khz = 38
	}
	_ = s.pg.SetPeriod(uint64(1e9) / (uint64(khz) * 1000))
	s.duty = s.pg.Top() * uint32(dutyPercent) / 100
}

func (s *rpSender) mark(us uint32) {
	s.pg.Set(s.ch, s.duty)
	delayUS(us)
	s.pg.Set(s.ch, 0)
}

func (s *rpSender) space(us uint32) {
	s.pg.Set(s.ch, 0)
	delayUS(us)
}

func (s *rpSender) SendProtocol(name string, value uint64, bits int) error {
	return sendCanonical(s, name, value, bits)
}

func (s *rpSender) SendGeneric(t hwio.GenericTiming, value uint64, bits int) error {
	sendGenericFrame(s, t, value, bits)
	return nil
}

func (s *rpSender) Close() {
	s.pg.Set(s.ch, 0)
	s.pin.Configure(machine.PinConfig{Mode: machine.PinInput})
}

// ---- IR receive ----

// rpReceiver wraps the hardware NEC decoder. The command handler runs from an
// interrupt and performs a single pointer store into pending, which Poll then
// consumes. There is no lock: a store that races a Poll at worst drops one
// frame, never tears it.
type rpReceiver struct {
	gpio    int
	dev     irremote.ReceiverDevice
	armed   bool
	closed  bool
	pending *hwio.RawDecode
}

func (h *HW) OpenIRReceiver(gpio int) (hwio.IRReceiver, error) {
	pin := physPin(gpio)
	dev := irremote.NewReceiver(pin)
	dev.Configure()
	r := &rpReceiver{gpio: gpio, dev: dev, armed: true}
	dev.SetCommandHandler(r.onCommand)
	return r, nil
}

func (r *rpReceiver) onCommand(d irremote.Data) {
	if r.closed || !r.armed {
		return
	}
	r.pending = &hwio.RawDecode{Protocol: "nec", Value: uint64(d.Code), Bits: 32}
}

func (r *rpReceiver) GPIO() int { return r.gpio }

func (r *rpReceiver) Poll() (hwio.RawDecode, bool) {
	if r.pending == nil {
		return hwio.RawDecode{}, false
	}
	d := *r.pending
	r.pending = nil
	r.armed = false
	return d, true
}

func (r *rpReceiver) Resume() { r.armed = true }

func (r *rpReceiver) Close() {
	r.closed = true
	r.armed = false
	r.pending = nil
}

// ---- Serial ----

type rpSerial struct{ u *uartx.UART }

func (h *HW) OpenSerial(rx, tx, baud int) (hwio.SerialPort, error) {
	route, ok := uartFor(rx, tx)
	if !ok {
		return nil, errcode.InvalidPins
	}
	if err := route.u.Configure(uartx.UARTConfig{
		BaudRate: uint32(baud),
		TX:       route.tx,
		RX:       route.rx,
	}); err != nil {
		return nil, &errcode.E{C: errcode.Error, Op: "provider.OpenSerial", Err: err}
	}
	return &rpSerial{u: route.u}, nil
}

func (p *rpSerial) Write(b []byte) (int, error) { return p.u.Write(b) }

func (p *rpSerial) ReadByte() (byte, bool) {
	if p.u.Buffered() == 0 {
		return 0, false
	}
	b, err := p.u.ReadByte()
	if err != nil {
		return 0, false
	}
	return b, true
}

func (p *rpSerial) Buffered() int { return p.u.Buffered() }

// Close leaves the peripheral configured; the next Configure repurposes it.
func (p *rpSerial) Close() error { return nil }
