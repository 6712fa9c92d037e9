package main

import (
	"sync"
	"time"

	"github.com/tarm/serial"

	"irbridge-go/hwio"
)

// ttyPort adapts a real tty to hwio.SerialPort. The port's blocking reads run
// in a pump goroutine; the board side sees the same non-blocking byte
// interface a UART gives it.
type ttyPort struct {
	p      *serial.Port
	mu     sync.Mutex
	buf    []byte
	closed chan struct{}
}

func openTTY(device string, baud int) (hwio.SerialPort, error) {
	p, err := serial.OpenPort(&serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: 20 * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	t := &ttyPort{p: p, closed: make(chan struct{})}
	go t.pump()
	return t, nil
}

func (t *ttyPort) pump() {
	tmp := make([]byte, 256)
	for {
		select {
		case <-t.closed:
			return
		default:
		}
		n, err := t.p.Read(tmp)
		if n > 0 {
			t.mu.Lock()
			t.buf = append(t.buf, tmp[:n]...)
			t.mu.Unlock()
		}
		if err != nil || n == 0 {
			// Timeout or transient error; don't spin flat out.
			time.Sleep(5 * time.Millisecond)
		}
	}
}

func (t *ttyPort) Write(p []byte) (int, error) { return t.p.Write(p) }

func (t *ttyPort) ReadByte() (byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.buf) == 0 {
		return 0, false
	}
	b := t.buf[0]
	t.buf = t.buf[1:]
	return b, true
}

func (t *ttyPort) Buffered() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buf)
}

func (t *ttyPort) Close() error {
	select {
	case <-t.closed:
		return nil
	default:
		close(t.closed)
	}
	return t.p.Close()
}
