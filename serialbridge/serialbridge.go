// Package serialbridge drives the secondary UART used to talk to attached
// equipment (projectors, matrix switchers). It is a two-state machine:
// unconfigured until the first successful Configure, then configured with
// exactly one open port. Reconfiguring tears the old port down first.
package serialbridge

import (
	"strconv"
	"strings"
	"time"

	"irbridge-go/errcode"
	"irbridge-go/hwio"
	"irbridge-go/types"
)

const (
	pollInterval = 10 * time.Millisecond
	// graceWindow is how long we keep reading after the first reply bytes,
	// to pick up the tail of replies that arrive in bursts.
	graceWindow = 50 * time.Millisecond
)

type Bridge struct {
	hw   hwio.Hardware
	port hwio.SerialPort
	rx   int
	tx   int
	baud int
}

func New(hw hwio.Hardware) *Bridge {
	return &Bridge{hw: hw}
}

// Configure opens the UART on the given pins, replacing any previous port.
// The receive buffer starts empty: anything the peer sent before we were
// listening is discarded.
func (b *Bridge) Configure(rx, tx, baud int) error {
	if rx < 0 || tx < 0 {
		return errcode.InvalidPins
	}
	if baud <= 0 {
		baud = 9600
	}
	if b.port != nil {
		_ = b.port.Close()
		b.port = nil
	}
	p, err := b.hw.OpenSerial(rx, tx, baud)
	if err != nil {
		return err
	}
	b.port = p
	b.rx, b.tx, b.baud = rx, tx, baud
	b.discard()
	return nil
}

// Configured reports whether the bridge holds an open port.
func (b *Bridge) Configured() bool { return b.port != nil }

// Send writes one payload and optionally awaits a reply.
//
// The receive buffer is cleared first so the reply cannot be polluted by
// stale bytes. With timeout <= 0 the call returns immediately after the
// write. Otherwise it polls for reply bytes until the deadline; the first
// poll that yields any bytes ends the wait after a short grace window for
// trailing bytes, so only a silent peer can run out the clock. Expiry with
// nothing received is not an error: the result is the empty string.
func (b *Bridge) Send(payload string, format types.PayloadFormat, ending types.LineEnding, timeout time.Duration) (string, error) {
	if b.port == nil {
		return "", errcode.NotConfigured
	}
	data, err := encode(payload, format)
	if err != nil {
		return "", err
	}
	data = append(data, ending.Bytes()...)

	b.discard()
	if _, err := b.port.Write(data); err != nil {
		return "", &errcode.E{C: errcode.Error, Op: "serialbridge.Send", Err: err}
	}
	if timeout <= 0 {
		return "", nil
	}
	return b.await(timeout), nil
}

func (b *Bridge) await(timeout time.Duration) string {
	var reply []byte
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		got := false
		for {
			c, ok := b.port.ReadByte()
			if !ok {
				break
			}
			got = true
			reply = append(reply, c)
		}
		if got {
			// Replies may arrive in bursts; absorb the tail, with or
			// without a terminator byte, then stop.
			time.Sleep(graceWindow)
			for {
				c, ok := b.port.ReadByte()
				if !ok {
					break
				}
				reply = append(reply, c)
			}
			break
		}
		time.Sleep(pollInterval)
	}
	return strings.TrimSpace(string(reply))
}

// Drain discards everything buffered and reports how many bytes went.
func (b *Bridge) Drain() (int, error) {
	if b.port == nil {
		return 0, errcode.NotConfigured
	}
	return b.discard(), nil
}

// Read returns everything currently buffered without waiting.
func (b *Bridge) Read() (string, error) {
	if b.port == nil {
		return "", errcode.NotConfigured
	}
	var buf []byte
	for {
		c, ok := b.port.ReadByte()
		if !ok {
			return string(buf), nil
		}
		buf = append(buf, c)
	}
}

// Status reports the bridge configuration and buffer depth.
func (b *Bridge) Status() types.SerialStatus {
	st := types.SerialStatus{Enabled: b.port != nil}
	if b.port != nil {
		st.RxPin = b.rx
		st.TxPin = b.tx
		st.Baud = b.baud
		st.BytesAvailable = b.port.Buffered()
	}
	return st
}

// Close releases the port and returns the bridge to unconfigured.
func (b *Bridge) Close() {
	if b.port != nil {
		_ = b.port.Close()
		b.port = nil
	}
}

func (b *Bridge) discard() int {
	n := 0
	for {
		if _, ok := b.port.ReadByte(); !ok {
			return n
		}
		n++
	}
}

// encode turns the request payload into wire bytes. Hex payloads may use
// spaces, colons or dashes between octets.
func encode(payload string, format types.PayloadFormat) ([]byte, error) {
	if format == types.FormatText {
		return []byte(payload), nil
	}
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ':', '-':
			return -1
		}
		return r
	}, payload)
	if len(clean)%2 != 0 {
		return nil, &errcode.E{C: errcode.MalformedRequest, Op: "serialbridge.encode", Msg: "odd hex length"}
	}
	out := make([]byte, 0, len(clean)/2)
	for i := 0; i < len(clean); i += 2 {
		v, err := strconv.ParseUint(clean[i:i+2], 16, 8)
		if err != nil {
			return nil, &errcode.E{C: errcode.MalformedRequest, Op: "serialbridge.encode", Msg: "bad hex byte " + clean[i:i+2]}
		}
		out = append(out, byte(v))
	}
	return out, nil
}
