//go:build rp2040

// ir-board is the device firmware image. The board loop runs in its own
// goroutine; main stays on the USB console and feeds it requests.
package main

import (
	"context"
	"strconv"
	"strings"
	"time"

	"machine"

	"irbridge-go/board"
	"irbridge-go/provider"
	"irbridge-go/store"
	"irbridge-go/types"
)

func main() {
	time.Sleep(2 * time.Second) // let the USB console enumerate

	hw := provider.New()
	def := provider.ActiveBoard()
	b := board.New(hw, store.OpenFlash(), def)
	go b.Run(context.Background())

	println("ir-bridge", board.FirmwareVersion, "variant", def.Name, "id", b.DiscoveryName())

	var line []byte
	for {
		if machine.Serial.Buffered() == 0 {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		c, err := machine.Serial.ReadByte()
		if err != nil {
			continue
		}
		if c == '\r' || c == '\n' {
			if len(line) > 0 {
				dispatch(b, string(line))
				line = line[:0]
			}
			continue
		}
		line = append(line, c)
	}
}

func dispatch(b *board.Board, line string) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return
	}
	switch args[0] {
	case "info":
		info, err := b.Info()
		if err != nil {
			fail(err)
			return
		}
		println("id:", info.ID, "name:", info.Name, "fw:", info.FirmwareVersion,
			"variant:", info.Variant, "adopted:", info.Adopted)
		println("ports:", info.TotalPorts, "outputs:", info.OutputCount, "inputs:", info.InputCount)
	case "status":
		st, err := b.Status()
		if err != nil {
			fail(err)
			return
		}
		println("id:", st.BoardID, "uptime:", st.UptimeSeconds, "s")
	case "adopt":
		name := ""
		if len(args) > 1 {
			name = args[1]
		}
		id, err := b.Adopt("", name)
		if err != nil {
			fail(err)
			return
		}
		println("adopted as", id.Name)
	case "ports":
		list, err := b.ListPorts()
		if err != nil {
			fail(err)
			return
		}
		for _, p := range list {
			println("gpio", p.GPIO, p.Role.String(), p.Label)
		}
	case "set":
		if len(args) < 3 {
			println("usage: set <gpio> <disabled|ir_output|ir_input> [name]")
			return
		}
		role, ok := types.ParseRole(args[2])
		if !ok {
			println("err: unknown mode", args[2])
			return
		}
		label := ""
		if len(args) > 3 {
			label = args[3]
		}
		snap, err := b.ConfigurePort(atoi(args[1]), role, label)
		if err != nil {
			fail(err)
			return
		}
		println("gpio", snap.GPIO, "->", snap.Role.String())
	case "send":
		if len(args) < 4 {
			println("usage: send <gpio> <protocol> <hexcode> [bits]")
			return
		}
		value, err := strconv.ParseUint(strings.TrimPrefix(args[3], "0x"), 16, 64)
		if err != nil {
			println("err: bad code", args[3])
			return
		}
		bits := 32
		if len(args) > 4 {
			bits = atoi(args[4])
		}
		if err := b.SendIR(atoi(args[1]), args[2], value, bits); err != nil {
			fail(err)
			return
		}
		println("sent")
	case "pulse":
		if len(args) < 2 {
			println("usage: pulse <gpio> [ms]")
			return
		}
		ms := 0
		if len(args) > 2 {
			ms = atoi(args[2])
		}
		if err := b.TestOutput(atoi(args[1]), ms); err != nil {
			fail(err)
			return
		}
		println("pulsed")
	case "learn":
		learn(b, args[1:])
	case "serial":
		serial(b, args[1:])
	default:
		println("commands: info status adopt ports set send pulse learn serial")
	}
}

func learn(b *board.Board, args []string) {
	if len(args) == 0 {
		println("usage: learn <gpio>|stop|status")
		return
	}
	switch args[0] {
	case "stop":
		if err := b.StopLearning(); err != nil {
			fail(err)
			return
		}
		println("stopped")
	case "status":
		st, err := b.LearningStatus()
		if err != nil {
			fail(err)
			return
		}
		if !st.Active {
			println("inactive")
			return
		}
		if st.Received != nil {
			println("gpio", st.GPIO, "got", st.Received.Protocol, st.Received.ValueHex)
			return
		}
		println("gpio", st.GPIO, "waiting")
	default:
		if err := b.StartLearning(atoi(args[0])); err != nil {
			fail(err)
			return
		}
		println("learning")
	}
}

func serial(b *board.Board, args []string) {
	if len(args) == 0 {
		println("usage: serial cfg|send|read|drain|status ...")
		return
	}
	switch args[0] {
	case "cfg":
		if len(args) < 4 {
			println("usage: serial cfg <rx> <tx> <baud>")
			return
		}
		if err := b.ConfigureSerial(atoi(args[1]), atoi(args[2]), atoi(args[3])); err != nil {
			fail(err)
			return
		}
		println("configured")
	case "send":
		if len(args) < 2 {
			println("usage: serial send <text...>")
			return
		}
		payload := strings.Join(args[1:], " ")
		reply, err := b.SerialSend(payload, types.FormatText, types.EndCR, 2*time.Second)
		if err != nil {
			fail(err)
			return
		}
		println("reply:", reply)
	case "read":
		data, err := b.SerialRead()
		if err != nil {
			fail(err)
			return
		}
		println("data:", data)
	case "drain":
		n, err := b.SerialDrain()
		if err != nil {
			fail(err)
			return
		}
		println("drained", n, "bytes")
	case "status":
		st, err := b.SerialStatus()
		if err != nil {
			fail(err)
			return
		}
		if !st.Enabled {
			println("disabled, board:", st.BoardVariant)
			return
		}
		println("rx", st.RxPin, "tx", st.TxPin, "baud", st.Baud, "buffered", st.BytesAvailable)
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func fail(err error) { println("err:", err.Error()) }
