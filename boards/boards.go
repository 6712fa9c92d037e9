// Package boards holds the compiled-in pin plans for the supported board
// variants. A variant fixes which gpios exist as ports, which of them are
// input-only, the port table capacity, and the suggested serial wiring.
package boards

import "irbridge-go/types"

type Definition struct {
	Name          string
	OutputCapable []int
	InputOnly     []int
	MaxPorts      int
	StatusLED     int // -1 when the variant has no user LED
	SerialHints   types.PinHint
}

// Compact is the PoE/LAN variant: the network PHY reserves a block of gpios,
// leaving twelve output-capable pins and no user LED.
var Compact = Definition{
	Name:          "compact",
	OutputCapable: []int{0, 1, 2, 3, 4, 5, 13, 14, 15, 16, 32, 33},
	InputOnly:     []int{34, 35, 36, 39},
	MaxPorts:      16,
	StatusLED:     -1,
	SerialHints:   types.PinHint{"uart1_rx": 9, "uart1_tx": 10},
}

// Extended is the devkit variant: no PHY, so eighteen output-capable pins and
// the on-board LED on gpio 2 (which is therefore excluded from port use).
var Extended = Definition{
	Name:          "extended",
	OutputCapable: []int{4, 5, 12, 13, 14, 15, 16, 17, 18, 19, 21, 22, 23, 25, 26, 27, 32, 33},
	InputOnly:     []int{34, 35, 36, 39},
	MaxPorts:      22,
	StatusLED:     2,
	SerialHints:   types.PinHint{"uart1_rx": 16, "uart1_tx": 17, "uart2_rx": 25, "uart2_tx": 26},
}

// IsInputOnly reports whether gpio can never drive an output.
func (d Definition) IsInputOnly(gpio int) bool {
	for _, p := range d.InputOnly {
		if p == gpio {
			return true
		}
	}
	return false
}

// AllPins returns every port-eligible gpio, outputs first, in plan order.
func (d Definition) AllPins() []int {
	out := make([]int, 0, len(d.OutputCapable)+len(d.InputOnly))
	out = append(out, d.OutputCapable...)
	out = append(out, d.InputOnly...)
	return out
}
