// Package simio is an in-memory hwio.Hardware used by package tests and the
// host simulator. Bindings are strict: opening a resource that is already
// owned fails, so code that skips a teardown is caught instead of papered
// over.
package simio

import (
	"sync"
	"time"

	"irbridge-go/errcode"
	"irbridge-go/hwio"
)

type Hardware struct {
	mu       sync.Mutex
	pins     map[int]*Pin
	senders  map[int]*Sender
	receiver *Receiver
	serial   *Serial

	// ID is returned by UniqueID. Settable so identity derivation is testable.
	ID uint32

	// SerialFactory, when set, replaces the built-in loopback serial port.
	// The host simulator uses it to splice in a real tty.
	SerialFactory func(rx, tx, baud int) (hwio.SerialPort, error)
}

func New() *Hardware {
	return &Hardware{
		pins:    map[int]*Pin{},
		senders: map[int]*Sender{},
		ID:      0xC0FFEE42,
	}
}

func (h *Hardware) Pin(gpio int) hwio.GPIOHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.pins[gpio]
	if !ok {
		p = &Pin{num: gpio}
		h.pins[gpio] = p
	}
	return p
}

// PinState returns the recorded pin, creating it if needed. Test accessor.
func (h *Hardware) PinState(gpio int) *Pin {
	return h.Pin(gpio).(*Pin)
}

func (h *Hardware) OpenIRSender(gpio int) (hwio.IRSender, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, taken := h.senders[gpio]; taken {
		return nil, &errcode.E{C: errcode.Busy, Op: "simio.OpenIRSender", Msg: "gpio already bound"}
	}
	s := &Sender{hw: h, gpio: gpio}
	h.senders[gpio] = s
	return s, nil
}

func (h *Hardware) OpenIRReceiver(gpio int) (hwio.IRReceiver, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.receiver != nil {
		return nil, &errcode.E{C: errcode.Busy, Op: "simio.OpenIRReceiver", Msg: "receiver already bound"}
	}
	r := &Receiver{hw: h, gpio: gpio, armed: true}
	h.receiver = r
	return r, nil
}

func (h *Hardware) OpenSerial(rx, tx, baud int) (hwio.SerialPort, error) {
	if h.SerialFactory != nil {
		return h.SerialFactory(rx, tx, baud)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.serial != nil {
		return nil, &errcode.E{C: errcode.Busy, Op: "simio.OpenSerial", Msg: "port already open"}
	}
	s := &Serial{hw: h, RX: rx, TX: tx, Baud: baud}
	h.serial = s
	return s, nil
}

func (h *Hardware) UniqueID() uint32 { return h.ID }

func (h *Hardware) DelayMicros(us int) { time.Sleep(time.Duration(us) * time.Microsecond) }

// ActiveReceiver returns the currently bound receiver, or nil. Test accessor.
func (h *Hardware) ActiveReceiver() *Receiver {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.receiver
}

// ActiveSerial returns the currently open built-in port, or nil. Test accessor.
func (h *Hardware) ActiveSerial() *Serial {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.serial
}

// SenderOn returns the sender bound on gpio, or nil. Test accessor.
func (h *Hardware) SenderOn(gpio int) *Sender {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.senders[gpio]
}

// ---- Pin ----

type Pin struct {
	mu          sync.Mutex
	num         int
	level       bool
	output      bool
	Transitions int
}

func (p *Pin) Number() int { return p.num }

func (p *Pin) ConfigureInput(_ hwio.Pull) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = false
	return nil
}

func (p *Pin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = true
	p.level = initial
	return nil
}

func (p *Pin) Set(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.level != v {
		p.Transitions++
	}
	p.level = v
}

func (p *Pin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *Pin) Toggle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = !p.level
	p.Transitions++
}

// ---- IR sender ----

// SentFrame records one transmission request, canonical or generic.
type SentFrame struct {
	Protocol string
	Generic  *hwio.GenericTiming
	Value    uint64
	Bits     int
}

type Sender struct {
	mu     sync.Mutex
	hw     *Hardware
	gpio   int
	closed bool
	Sent   []SentFrame
}

func (s *Sender) GPIO() int { return s.gpio }

func (s *Sender) SendProtocol(name string, value uint64, bits int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sent = append(s.Sent, SentFrame{Protocol: name, Value: value, Bits: bits})
	return nil
}

func (s *Sender) SendGeneric(t hwio.GenericTiming, value uint64, bits int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sent = append(s.Sent, SentFrame{Generic: &t, Value: value, Bits: bits})
	return nil
}

func (s *Sender) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.hw.mu.Lock()
	delete(s.hw.senders, s.gpio)
	s.hw.mu.Unlock()
}

// Frames returns a copy of everything sent so far.
func (s *Sender) Frames() []SentFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentFrame(nil), s.Sent...)
}

// ---- IR receiver ----

type Receiver struct {
	mu      sync.Mutex
	hw      *Hardware
	gpio    int
	armed   bool
	pending *hwio.RawDecode
	closed  bool
	Resumes int
}

func (r *Receiver) GPIO() int { return r.gpio }

// Inject queues a decode as if the hardware captured a frame. Dropped when
// capture is paused, like a real decoder between Poll and Resume.
func (r *Receiver) Inject(protocol string, value uint64, bits int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.armed {
		return
	}
	r.pending = &hwio.RawDecode{Protocol: protocol, Value: value, Bits: bits}
}

func (r *Receiver) Poll() (hwio.RawDecode, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil {
		return hwio.RawDecode{}, false
	}
	d := *r.pending
	r.pending = nil
	r.armed = false
	return d, true
}

func (r *Receiver) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed = true
	r.Resumes++
}

func (r *Receiver) Armed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.armed
}

func (r *Receiver) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()
	r.hw.mu.Lock()
	if r.hw.receiver == r {
		r.hw.receiver = nil
	}
	r.hw.mu.Unlock()
}

func (r *Receiver) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// ---- Serial ----

// Serial is a scripted port: Write appends to the TX log, FeedRX queues bytes
// for ReadByte.
type Serial struct {
	mu     sync.Mutex
	hw     *Hardware
	RX     int
	TX     int
	Baud   int
	closed bool
	tx     []byte
	rx     []byte
}

func (s *Serial) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tx = append(s.tx, p...)
	return len(p), nil
}

func (s *Serial) ReadByte() (byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rx) == 0 {
		return 0, false
	}
	b := s.rx[0]
	s.rx = s.rx[1:]
	return b, true
}

func (s *Serial) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rx)
}

func (s *Serial) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.hw.mu.Lock()
	if s.hw.serial == s {
		s.hw.serial = nil
	}
	s.hw.mu.Unlock()
	return nil
}

// FeedRX queues incoming bytes.
func (s *Serial) FeedRX(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rx = append(s.rx, p...)
}

// FeedRXAfter queues incoming bytes from a goroutine after d elapses.
func (s *Serial) FeedRXAfter(d time.Duration, p []byte) {
	time.AfterFunc(d, func() { s.FeedRX(p) })
}

// TXLog returns a copy of everything written.
func (s *Serial) TXLog() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.tx...)
}

// ResetTX clears the TX log.
func (s *Serial) ResetTX() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tx = nil
}

func (s *Serial) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
