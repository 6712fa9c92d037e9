// Package board is the device core. A single loop owns every mutable piece of
// state (port table, IR bindings, serial bridge, LED, identity); external
// callers submit work to the loop and block until it has run. One request runs
// to completion before the next starts, so handlers never observe each other
// half-done.
package board

import (
	"context"
	"strconv"
	"time"

	"irbridge-go/boards"
	"irbridge-go/errcode"
	"irbridge-go/hwio"
	"irbridge-go/irx"
	"irbridge-go/led"
	"irbridge-go/ports"
	"irbridge-go/serialbridge"
	"irbridge-go/store"
	"irbridge-go/types"
)

const FirmwareVersion = "1.3.0"

const (
	// Diagnostic pulse train: 13µs on, 13µs off, long enough to see on a
	// scope or a phone camera.
	testPulseOnUS      = 13
	testPulseOffUS     = 13
	testPulseDefaultMS = 500

	tickInterval   = 10 * time.Millisecond
	activityWindow = time.Second
)

var errStopped = &errcode.E{C: errcode.Error, Op: "board", Msg: "loop stopped"}

type Board struct {
	hw     hwio.Hardware
	kv     store.KV
	def    boards.Definition
	table  *ports.Table
	ir     *irx.Transceiver
	serial *serialbridge.Bridge
	status *led.Controller

	identity   types.BoardIdentity
	lastDecode *types.DecodedSignal
	bootTime   time.Time
	activeTill time.Time
	faulted    bool

	reqs chan func()
	done chan struct{}
}

// New restores state from the store and rebinds hardware for every persisted
// role. The loop is not running yet; call Run.
func New(hw hwio.Hardware, kv store.KV, def boards.Definition) *Board {
	b := &Board{
		hw:       hw,
		kv:       kv,
		def:      def,
		table:    ports.Load(def, kv),
		ir:       irx.New(hw),
		serial:   serialbridge.New(hw),
		status:   led.New(hw, def.StatusLED),
		bootTime: time.Now(),
		reqs:     make(chan func()),
		done:     make(chan struct{}),
	}
	b.identity = types.BoardIdentity{
		ID:      kv.GetString("boardId", defaultID(hw.UniqueID())),
		Name:    kv.GetString("boardName", ""),
		Adopted: kv.GetBool("adopted", false),
	}
	if b.identity.Name == "" {
		b.identity.Name = b.identity.ID
	}
	b.bindFromTable()
	return b
}

func defaultID(uid uint32) string {
	return "ir-bridge-" + strconv.FormatUint(uint64(uid), 16)
}

// bindFromTable attaches hardware per the restored roles. Output ports each
// get a sender; the receiver lands on the last input port in table order.
func (b *Board) bindFromTable() {
	lastInput := -1
	b.table.Each(func(p ports.Port) {
		switch p.Role {
		case types.RoleIrOutput:
			if err := b.ir.BindSender(p.GPIO); err != nil {
				println("board: bind sender gpio", p.GPIO, "failed:", err.Error())
				b.faulted = true
			}
		case types.RoleIrInput:
			lastInput = p.GPIO
		}
	})
	if lastInput >= 0 {
		if err := b.ir.StartReceiver(lastInput); err != nil {
			println("board: bind receiver gpio", lastInput, "failed:", err.Error())
			b.faulted = true
		}
	}
}

// Run executes the loop until ctx is cancelled. Exactly one Run per Board.
func (b *Board) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			b.cleanup()
			close(b.done)
			return
		case fn := <-b.reqs:
			fn()
		case <-ticker.C:
		}
		b.tick()
	}
}

// tick is the per-iteration housekeeping that runs between requests.
func (b *Board) tick() {
	if sig, ok := b.ir.PollDecode(); ok {
		s := sig
		b.lastDecode = &s
	}
	b.status.Set(b.ledState(time.Now()))
	b.status.Update(time.Now())
}

func (b *Board) ledState(now time.Time) led.State {
	switch {
	case b.faulted:
		return led.DoubleBlink
	case now.Before(b.activeTill):
		return led.FastBlink
	case b.identity.Adopted:
		return led.On
	default:
		return led.SlowBlink
	}
}

func (b *Board) cleanup() {
	b.ir.Close()
	b.serial.Close()
	b.status.Set(led.Off)
	b.status.Update(time.Now())
}

// do hands fn to the loop and waits for it to finish. The requests channel is
// unbuffered: once the send completes the loop is committed to running fn.
func (b *Board) do(fn func()) error {
	ran := make(chan struct{})
	select {
	case b.reqs <- func() { fn(); close(ran) }:
		<-ran
		return nil
	case <-b.done:
		return errStopped
	}
}

// ---- Identity ----

func (b *Board) Info() (types.BoardInfo, error) {
	var info types.BoardInfo
	err := b.do(func() {
		outs, ins := b.table.Counts()
		info = types.BoardInfo{
			BoardIdentity:   b.identity,
			FirmwareVersion: FirmwareVersion,
			TotalPorts:      b.table.Len(),
			OutputCount:     outs,
			InputCount:      ins,
			Variant:         b.def.Name,
		}
	})
	return info, err
}

func (b *Board) Status() (types.BoardStatus, error) {
	var st types.BoardStatus
	err := b.do(func() {
		st = types.BoardStatus{
			BoardID:       b.identity.ID,
			Online:        true,
			UptimeSeconds: int64(time.Since(b.bootTime) / time.Second),
		}
	})
	return st, err
}

// Adopt marks the board as owned by a controller. The controller may assign
// its own id and name; empty fields keep the current values.
func (b *Board) Adopt(newID, name string) (types.BoardIdentity, error) {
	var id types.BoardIdentity
	err := b.do(func() {
		b.identity.Adopted = true
		if newID != "" {
			b.identity.ID = newID
		}
		if name != "" {
			b.identity.Name = name
		}
		b.kv.PutBool("adopted", true)
		b.kv.PutString("boardName", b.identity.Name)
		b.kv.PutString("boardId", b.identity.ID)
		id = b.identity
	})
	return id, err
}

// DiscoveryName is the identifier announced on the network.
func (b *Board) DiscoveryName() string {
	name := ""
	_ = b.do(func() { name = b.identity.ID })
	return name
}

// ---- Ports ----

func (b *Board) ListPorts() ([]types.PortSnapshot, error) {
	var out []types.PortSnapshot
	err := b.do(func() { out = b.table.List() })
	return out, err
}

// ConfigurePort assigns a role to a gpio. Old hardware bindings on the gpio
// are torn down, the new role is bound, and the table is persisted before the
// call returns, in that order.
func (b *Board) ConfigurePort(gpio int, role types.Role, label string) (types.PortSnapshot, error) {
	var snap types.PortSnapshot
	var opErr error
	err := b.do(func() { snap, opErr = b.configurePort(gpio, role, label) })
	if err != nil {
		return snap, err
	}
	return snap, opErr
}

func (b *Board) configurePort(gpio int, role types.Role, label string) (types.PortSnapshot, error) {
	snap, err := b.table.Configure(gpio, role, label)
	if err != nil {
		return types.PortSnapshot{}, err
	}

	// Release whatever the gpio was doing before.
	b.ir.UnbindSender(gpio)
	if rg, ok := b.ir.ReceiverGPIO(); ok && rg == gpio && role != types.RoleIrInput {
		b.ir.StopReceiver()
	}

	switch role {
	case types.RoleIrOutput:
		if err := b.ir.BindSender(gpio); err != nil {
			b.table.Configure(gpio, types.RoleDisabled, label)
			b.table.Save(b.kv)
			return types.PortSnapshot{}, err
		}
	case types.RoleIrInput:
		if err := b.ir.StartReceiver(gpio); err != nil {
			b.table.Configure(gpio, types.RoleDisabled, label)
			b.table.Save(b.kv)
			return types.PortSnapshot{}, err
		}
	}

	b.table.Save(b.kv)
	return snap, nil
}

// ---- IR ----

// SendIR transmits value on an output port.
func (b *Board) SendIR(gpio int, protocol string, value uint64, bits int) error {
	var opErr error
	err := b.do(func() {
		role, ok := b.table.Role(gpio)
		if !ok {
			opErr = errcode.UnknownPort
			return
		}
		if role != types.RoleIrOutput {
			opErr = errcode.PortNotBound
			return
		}
		opErr = b.ir.Send(gpio, protocol, value, bits)
		if opErr == nil {
			b.activeTill = time.Now().Add(activityWindow)
		}
	})
	if err != nil {
		return err
	}
	return opErr
}

// TestOutput emits the diagnostic pulse train. It bypasses the sender
// binding and works on any table port regardless of role, so a pin can be
// checked before it is committed to a role. The loop is occupied for the
// whole train; concurrent requests queue behind it.
func (b *Board) TestOutput(gpio, durationMS int) error {
	if durationMS <= 0 {
		durationMS = testPulseDefaultMS
	}
	var opErr error
	err := b.do(func() {
		if _, ok := b.table.Role(gpio); !ok {
			opErr = errcode.UnknownPort
			return
		}
		cycles := durationMS * 1000 / (testPulseOnUS + testPulseOffUS)
		opErr = b.ir.RawPulse(gpio, testPulseOnUS, testPulseOffUS, cycles)
	})
	if err != nil {
		return err
	}
	return opErr
}

// ---- Learning ----

// StartLearning points the shared receiver at an input port and clears any
// previously captured code.
func (b *Board) StartLearning(gpio int) error {
	var opErr error
	err := b.do(func() {
		role, ok := b.table.Role(gpio)
		if !ok {
			opErr = errcode.UnknownPort
			return
		}
		if role != types.RoleIrInput {
			opErr = &errcode.E{C: errcode.RoleNotSupported, Op: "board.StartLearning", Msg: "port is not an ir input"}
			return
		}
		b.lastDecode = nil
		opErr = b.ir.StartReceiver(gpio)
	})
	if err != nil {
		return err
	}
	return opErr
}

// StopLearning releases the receiver. Safe when none is active.
func (b *Board) StopLearning() error {
	return b.do(func() {
		b.ir.StopReceiver()
		b.lastDecode = nil
	})
}

// LearningStatus reports the receiver state. A captured code is handed out
// once and cleared.
func (b *Board) LearningStatus() (types.LearningStatus, error) {
	var st types.LearningStatus
	err := b.do(func() {
		gpio, active := b.ir.ReceiverGPIO()
		st = types.LearningStatus{Active: active, GPIO: gpio}
		if b.lastDecode != nil {
			st.Received = b.lastDecode
			b.lastDecode = nil
		}
	})
	return st, err
}

// ---- Serial bridge ----

func (b *Board) ConfigureSerial(rx, tx, baud int) error {
	var opErr error
	err := b.do(func() { opErr = b.serial.Configure(rx, tx, baud) })
	if err != nil {
		return err
	}
	return opErr
}

// SerialSend runs on the loop like everything else, so a long await blocks
// all other requests for its duration. That is the contract: handlers are
// serialised, never interleaved.
func (b *Board) SerialSend(payload string, format types.PayloadFormat, ending types.LineEnding, timeout time.Duration) (string, error) {
	var reply string
	var opErr error
	err := b.do(func() { reply, opErr = b.serial.Send(payload, format, ending, timeout) })
	if err != nil {
		return "", err
	}
	return reply, opErr
}

func (b *Board) SerialRead() (string, error) {
	var out string
	var opErr error
	err := b.do(func() { out, opErr = b.serial.Read() })
	if err != nil {
		return "", err
	}
	return out, opErr
}

func (b *Board) SerialDrain() (int, error) {
	var n int
	var opErr error
	err := b.do(func() { n, opErr = b.serial.Drain() })
	if err != nil {
		return 0, err
	}
	return n, opErr
}

func (b *Board) SerialStatus() (types.SerialStatus, error) {
	var st types.SerialStatus
	err := b.do(func() {
		st = b.serial.Status()
		st.BoardVariant = b.def.Name
		st.Recommended = b.def.SerialHints
	})
	return st, err
}
