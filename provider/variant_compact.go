//go:build rp2040 && !extended

package provider

import (
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"irbridge-go/boards"
)

var activeBoard = boards.Compact

// Logical gpio numbers keep the controller-facing port contract stable; this
// table is where they meet the actual package pins.
var pinMap = map[int]machine.Pin{
	0:  machine.GPIO2,
	1:  machine.GPIO3,
	2:  machine.GPIO4,
	3:  machine.GPIO5,
	4:  machine.GPIO6,
	5:  machine.GPIO7,
	13: machine.GPIO8,
	14: machine.GPIO9,
	15: machine.GPIO10,
	16: machine.GPIO11,
	32: machine.GPIO12,
	33: machine.GPIO13,
	34: machine.GPIO14,
	35: machine.GPIO15,
	36: machine.GPIO26,
	39: machine.GPIO27,
}

type uartRoute struct {
	u  *uartx.UART
	rx machine.Pin
	tx machine.Pin
}

func uartFor(rx, tx int) (uartRoute, bool) {
	if rx == 9 && tx == 10 {
		return uartRoute{u: uartx.UART0, rx: machine.GPIO1, tx: machine.GPIO0}, true
	}
	return uartRoute{}, false
}
