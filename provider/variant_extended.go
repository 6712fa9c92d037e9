//go:build rp2040 && extended

package provider

import (
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"irbridge-go/boards"
)

var activeBoard = boards.Extended

var pinMap = map[int]machine.Pin{
	2:  machine.GPIO25, // status LED
	4:  machine.GPIO2,
	5:  machine.GPIO3,
	12: machine.GPIO6,
	13: machine.GPIO7,
	14: machine.GPIO10,
	15: machine.GPIO11,
	16: machine.GPIO9,
	17: machine.GPIO8,
	18: machine.GPIO14,
	19: machine.GPIO15,
	21: machine.GPIO16,
	22: machine.GPIO17,
	23: machine.GPIO18,
	25: machine.GPIO13,
	26: machine.GPIO12,
	27: machine.GPIO19,
	32: machine.GPIO20,
	33: machine.GPIO21,
	34: machine.GPIO22,
	35: machine.GPIO26,
	36: machine.GPIO27,
	39: machine.GPIO28,
}

type uartRoute struct {
	u  *uartx.UART
	rx machine.Pin
	tx machine.Pin
}

func uartFor(rx, tx int) (uartRoute, bool) {
	switch {
	case rx == 16 && tx == 17:
		return uartRoute{u: uartx.UART1, rx: machine.GPIO9, tx: machine.GPIO8}, true
	case rx == 25 && tx == 26:
		return uartRoute{u: uartx.UART0, rx: machine.GPIO13, tx: machine.GPIO12}, true
	}
	return uartRoute{}, false
}
