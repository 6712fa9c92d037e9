package serialbridge

import (
	"testing"
	"time"

	"irbridge-go/errcode"
	"irbridge-go/hwio/simio"
	"irbridge-go/types"
)

func configured(t *testing.T) (*Bridge, *simio.Hardware) {
	t.Helper()
	hw := simio.New()
	b := New(hw)
	if err := b.Configure(16, 17, 9600); err != nil {
		t.Fatalf("configure: %v", err)
	}
	return b, hw
}

func TestUnconfiguredOperationsFail(t *testing.T) {
	b := New(simio.New())
	if _, err := b.Send("x", types.FormatText, types.EndNone, 0); errcode.Of(err) != errcode.NotConfigured {
		t.Errorf("send err = %v", err)
	}
	if _, err := b.Drain(); errcode.Of(err) != errcode.NotConfigured {
		t.Errorf("drain err = %v", err)
	}
	if st := b.Status(); st.Enabled {
		t.Error("status reports enabled")
	}
}

func TestConfigureRejectsNegativePins(t *testing.T) {
	b := New(simio.New())
	if err := b.Configure(-1, 17, 9600); errcode.Of(err) != errcode.InvalidPins {
		t.Errorf("negative rx err = %v", err)
	}
	if err := b.Configure(16, -1, 9600); errcode.Of(err) != errcode.InvalidPins {
		t.Errorf("negative tx err = %v", err)
	}
	// Equal pins are the wiring's problem, not ours.
	if err := b.Configure(5, 5, 9600); err != nil {
		t.Errorf("rx==tx err = %v", err)
	}
}

func TestReconfigureClosesOldPort(t *testing.T) {
	b, hw := configured(t)
	old := hw.ActiveSerial()
	if err := b.Configure(25, 26, 115200); err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if !old.IsClosed() {
		t.Error("previous port left open")
	}
	st := b.Status()
	if st.RxPin != 25 || st.TxPin != 26 || st.Baud != 115200 {
		t.Errorf("status = %+v", st)
	}
}

func TestConfigureStartsWithEmptyBuffer(t *testing.T) {
	hw := simio.New()
	b := New(hw)
	if err := b.Configure(16, 17, 9600); err != nil {
		t.Fatalf("configure: %v", err)
	}
	hw.ActiveSerial().FeedRX([]byte("stale"))
	// Reconfigure opens a fresh port; simio gives it an empty buffer, and the
	// bridge additionally discards anything already there.
	if err := b.Configure(16, 18, 9600); err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if st := b.Status(); st.BytesAvailable != 0 {
		t.Fatalf("available = %d after configure", st.BytesAvailable)
	}
}

func TestSendTextWithEnding(t *testing.T) {
	b, hw := configured(t)
	if _, err := b.Send("PWR ON", types.FormatText, types.EndCRLF, 0); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got := string(hw.ActiveSerial().TXLog()); got != "PWR ON\r\n" {
		t.Fatalf("wire = %q", got)
	}
}

func TestSendHexPayload(t *testing.T) {
	b, hw := configured(t)
	if _, err := b.Send("02 41 44 5A 5A 3B", types.FormatHex, types.EndNone, 0); err != nil {
		t.Fatalf("send: %v", err)
	}
	want := []byte{0x02, 0x41, 0x44, 0x5A, 0x5A, 0x3B}
	got := hw.ActiveSerial().TXLog()
	if string(got) != string(want) {
		t.Fatalf("wire = % X, want % X", got, want)
	}
}

func TestSendMalformedHex(t *testing.T) {
	b, _ := configured(t)
	if _, err := b.Send("ABC", types.FormatHex, types.EndNone, 0); errcode.Of(err) != errcode.MalformedRequest {
		t.Errorf("odd length err = %v", err)
	}
	if _, err := b.Send("GG", types.FormatHex, types.EndNone, 0); errcode.Of(err) != errcode.MalformedRequest {
		t.Errorf("non-hex err = %v", err)
	}
}

func TestSendClearsStaleBytesBeforeWrite(t *testing.T) {
	b, hw := configured(t)
	port := hw.ActiveSerial()
	port.FeedRX([]byte("OLD\r"))
	port.FeedRXAfter(20*time.Millisecond, []byte("OK\r"))
	got, err := b.Send("PWR?", types.FormatText, types.EndCR, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got != "OK" {
		t.Fatalf("reply = %q, want OK", got)
	}
}

func TestSendAwaitTerminatorEndsEarly(t *testing.T) {
	b, hw := configured(t)
	hw.ActiveSerial().FeedRXAfter(20*time.Millisecond, []byte("%1POWR=1\r"))
	start := time.Now()
	got, err := b.Send("%1POWR ?", types.FormatText, types.EndCR, 2*time.Second)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got != "%1POWR=1" {
		t.Fatalf("reply = %q", got)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("waited full timeout (%v) despite terminator", elapsed)
	}
}

func TestSendGraceWindowCollectsTail(t *testing.T) {
	b, hw := configured(t)
	port := hw.ActiveSerial()
	port.FeedRXAfter(10*time.Millisecond, []byte("LINE1\r"))
	// Arrives inside the post-terminator grace window.
	port.FeedRXAfter(30*time.Millisecond, []byte("LINE2"))
	got, err := b.Send("q", types.FormatText, types.EndCR, time.Second)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got != "LINE1\rLINE2" {
		t.Fatalf("reply = %q", got)
	}
}

func TestSendNonTerminatedReplyEndsWait(t *testing.T) {
	b, hw := configured(t)
	// "OK" with no terminator at all: the first burst still ends the wait,
	// only a silent peer runs out the full timeout.
	hw.ActiveSerial().FeedRXAfter(10*time.Millisecond, []byte("OK"))
	start := time.Now()
	got, err := b.Send("PWR?", types.FormatText, types.EndCR, 500*time.Millisecond)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if got != "OK" {
		t.Fatalf("reply = %q", got)
	}
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Fatalf("waited %v for a reply that arrived in 10ms", elapsed)
	}
}

func TestSendTimeoutReturnsEmptyNotError(t *testing.T) {
	b, _ := configured(t)
	start := time.Now()
	got, err := b.Send("ping", types.FormatText, types.EndLF, 60*time.Millisecond)
	if err != nil {
		t.Fatalf("timeout surfaced as error: %v", err)
	}
	if got != "" {
		t.Fatalf("reply = %q, want empty", got)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("returned after %v, before the deadline", elapsed)
	}
}

func TestSendZeroTimeoutSkipsWait(t *testing.T) {
	b, hw := configured(t)
	hw.ActiveSerial().FeedRX([]byte("unread"))
	got, err := b.Send("fire", types.FormatText, types.EndNone, 0)
	if err != nil || got != "" {
		t.Fatalf("got %q, %v", got, err)
	}
}

func TestDrain(t *testing.T) {
	b, hw := configured(t)
	hw.ActiveSerial().FeedRX([]byte("abcde"))
	n, err := b.Drain()
	if err != nil || n != 5 {
		t.Fatalf("drain = %d, %v", n, err)
	}
	n, _ = b.Drain()
	if n != 0 {
		t.Fatalf("second drain = %d", n)
	}
}

func TestRead(t *testing.T) {
	b, hw := configured(t)
	hw.ActiveSerial().FeedRX([]byte("hello"))
	got, err := b.Read()
	if err != nil || got != "hello" {
		t.Fatalf("read = %q, %v", got, err)
	}
	got, _ = b.Read()
	if got != "" {
		t.Fatalf("second read = %q", got)
	}
}

func TestStatusReportsBufferDepth(t *testing.T) {
	b, hw := configured(t)
	hw.ActiveSerial().FeedRX([]byte("xyz"))
	st := b.Status()
	if !st.Enabled || st.BytesAvailable != 3 {
		t.Fatalf("status = %+v", st)
	}
}

func TestCloseReturnsToUnconfigured(t *testing.T) {
	b, hw := configured(t)
	b.Close()
	if b.Configured() {
		t.Fatal("still configured after close")
	}
	if hw.ActiveSerial() != nil {
		t.Fatal("port still registered after close")
	}
	if _, err := b.Send("x", types.FormatText, types.EndNone, 0); errcode.Of(err) != errcode.NotConfigured {
		t.Fatalf("send err = %v", err)
	}
}
