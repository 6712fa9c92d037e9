// Package led drives the status LED. Blink phases derive from the clock
// passed to Update, so the pattern stays steady no matter how often the loop
// runs.
package led

import (
	"time"

	"irbridge-go/hwio"
)

type State uint8

const (
	Off State = iota
	On
	SlowBlink   // idle, not adopted
	FastBlink   // activity
	DoubleBlink // error: two short flashes per second
)

const (
	slowPeriod = 500 * time.Millisecond
	fastPeriod = 150 * time.Millisecond
)

// Controller owns the LED pin. On boards without a user LED it is inert.
type Controller struct {
	pin   hwio.GPIOHandle
	state State
}

// New configures gpio as the LED output. gpio < 0 yields an inert controller.
func New(hw hwio.Hardware, gpio int) *Controller {
	c := &Controller{}
	if gpio >= 0 {
		c.pin = hw.Pin(gpio)
		_ = c.pin.ConfigureOutput(false)
	}
	return c
}

func (c *Controller) Set(s State) { c.state = s }

func (c *Controller) State() State { return c.state }

// Update drives the pin for the current state at time now.
func (c *Controller) Update(now time.Time) {
	if c.pin == nil {
		return
	}
	c.pin.Set(c.levelAt(now))
}

func (c *Controller) levelAt(now time.Time) bool {
	ms := now.UnixMilli()
	switch c.state {
	case On:
		return true
	case SlowBlink:
		return (ms/int64(slowPeriod/time.Millisecond))%2 == 0
	case FastBlink:
		return (ms/int64(fastPeriod/time.Millisecond))%2 == 0
	case DoubleBlink:
		phase := (ms / 100) % 10
		return phase == 0 || phase == 2
	default:
		return false
	}
}
