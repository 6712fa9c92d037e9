// Package provider implements hwio.Hardware for real targets. The protocol
// encoders live here, target-free, on top of a small carrier abstraction; the
// build-tagged files supply the carrier, pins and peripherals.
package provider

import (
	"strings"

	"irbridge-go/errcode"
	"irbridge-go/hwio"
)

// carrier is the modulated-output primitive: mark emits the carrier for a
// duration, space holds the line idle.
type carrier interface {
	setCarrier(khz uint16, dutyPercent uint8)
	mark(us uint32)
	space(us uint32)
}

type encKind uint8

const (
	// constant bit mark, value in the space length
	encSpace encKind = iota
	// constant space, value in the mark length
	encMark
	// manchester halves, RC5 flavour
	encManchester
	// manchester with RC6 leader and double-width trailer bit
	encManchesterRC6
)

type protoSpec struct {
	kind encKind

	headerMarkUS  uint32
	headerSpaceUS uint32
	bitMarkUS     uint32 // half-bit length for manchester kinds
	oneSpaceUS    uint32
	zeroSpaceUS   uint32
	oneMarkUS     uint32 // encMark only
	footerMarkUS  uint32
	frameUS       uint32 // minimum frame-to-frame period
	carrierKHz    uint16
	repeats       int // extra frames after the first

	// prefix bits sent before the value, MSB first (kaseikyo vendor id)
	prefix     uint64
	prefixBits int
}

// Timings follow the de-facto consumer IR constants.
var protoTable = map[string]protoSpec{
	"nec": {
		kind: encSpace,
		headerMarkUS: 9000, headerSpaceUS: 4500,
		bitMarkUS: 560, oneSpaceUS: 1690, zeroSpaceUS: 560,
		footerMarkUS: 560, frameUS: 110000, carrierKHz: 38,
	},
	"samsung": {
		kind: encSpace,
		headerMarkUS: 4500, headerSpaceUS: 4500,
		bitMarkUS: 560, oneSpaceUS: 1690, zeroSpaceUS: 560,
		footerMarkUS: 560, frameUS: 110000, carrierKHz: 38,
	},
	"lg": {
		kind: encSpace,
		headerMarkUS: 8500, headerSpaceUS: 4250,
		bitMarkUS: 560, oneSpaceUS: 1600, zeroSpaceUS: 560,
		footerMarkUS: 560, frameUS: 110000, carrierKHz: 38,
	},
	"panasonic": {
		kind: encSpace,
		headerMarkUS: 3502, headerSpaceUS: 1750,
		bitMarkUS: 502, oneSpaceUS: 1244, zeroSpaceUS: 400,
		footerMarkUS: 502, frameUS: 130000, carrierKHz: 37,
		prefix: 0x4004, prefixBits: 16,
	},
	"sony": {
		kind: encMark,
		headerMarkUS: 2400, headerSpaceUS: 600,
		oneMarkUS: 1200, bitMarkUS: 600, zeroSpaceUS: 600,
		frameUS: 45000, carrierKHz: 40, repeats: 2,
	},
	"rc5": {
		kind: encManchester,
		bitMarkUS: 889, frameUS: 114000, carrierKHz: 36,
	},
	"rc6": {
		kind: encManchesterRC6,
		headerMarkUS: 2666, headerSpaceUS: 889,
		bitMarkUS: 444, frameUS: 107000, carrierKHz: 36,
	},
}

const defaultDuty = 33

// sendCanonical transmits value with the named protocol's fixed timing.
func sendCanonical(c carrier, name string, value uint64, bits int) error {
	spec, ok := protoTable[strings.ToLower(name)]
	if !ok {
		return &errcode.E{C: errcode.Error, Op: "provider.sendCanonical", Msg: "no encoder for " + name}
	}
	c.setCarrier(spec.carrierKHz, defaultDuty)
	for n := 0; n <= spec.repeats; n++ {
		sendFrame(c, spec, value, bits)
	}
	return nil
}

func sendFrame(c carrier, spec protoSpec, value uint64, bits int) {
	var elapsed uint32
	switch spec.kind {
	case encSpace, encMark:
		if spec.headerMarkUS > 0 {
			c.mark(spec.headerMarkUS)
			c.space(spec.headerSpaceUS)
			elapsed += spec.headerMarkUS + spec.headerSpaceUS
		}
		if spec.prefixBits > 0 {
			elapsed += sendBits(c, spec, spec.prefix, spec.prefixBits)
		}
		elapsed += sendBits(c, spec, value, bits)
		if spec.footerMarkUS > 0 {
			c.mark(spec.footerMarkUS)
			elapsed += spec.footerMarkUS
		}
	case encManchester:
		elapsed += sendManchester(c, spec, value, bits, -1)
	case encManchesterRC6:
		c.mark(spec.headerMarkUS)
		c.space(spec.headerSpaceUS)
		elapsed += spec.headerMarkUS + spec.headerSpaceUS
		// Bit index 4 from the MSB end is the trailer, sent double width.
		elapsed += sendManchester(c, spec, value, bits, 4)
	}
	if elapsed < spec.frameUS {
		c.space(spec.frameUS - elapsed)
	}
}

// sendBits emits bits MSB first for the pulse-distance and pulse-width kinds
// and returns the time spent.
func sendBits(c carrier, spec protoSpec, value uint64, bits int) uint32 {
	var elapsed uint32
	for i := bits - 1; i >= 0; i-- {
		one := value>>uint(i)&1 == 1
		switch spec.kind {
		case encSpace:
			c.mark(spec.bitMarkUS)
			elapsed += spec.bitMarkUS
			if one {
				c.space(spec.oneSpaceUS)
				elapsed += spec.oneSpaceUS
			} else {
				c.space(spec.zeroSpaceUS)
				elapsed += spec.zeroSpaceUS
			}
		case encMark:
			if one {
				c.mark(spec.oneMarkUS)
				elapsed += spec.oneMarkUS
			} else {
				c.mark(spec.bitMarkUS)
				elapsed += spec.bitMarkUS
			}
			c.space(spec.zeroSpaceUS)
			elapsed += spec.zeroSpaceUS
		}
	}
	return elapsed
}

// sendManchester emits bits MSB first, one as mark-then-space. doubleAt, when
// >= 0, names the bit index (from the MSB end) emitted at double width.
func sendManchester(c carrier, spec protoSpec, value uint64, bits int, doubleAt int) uint32 {
	var elapsed uint32
	for i := 0; i < bits; i++ {
		half := spec.bitMarkUS
		if i == doubleAt {
			half *= 2
		}
		if value>>uint(bits-1-i)&1 == 1 {
			c.mark(half)
			c.space(half)
		} else {
			c.space(half)
			c.mark(half)
		}
		elapsed += 2 * half
	}
	return elapsed
}

// sendGenericFrame transmits value from an explicit timing tuple.
func sendGenericFrame(c carrier, t hwio.GenericTiming, value uint64, bits int) {
	duty := t.DutyPercent
	if duty == 0 {
		duty = defaultDuty
	}
	c.setCarrier(t.CarrierKHz, duty)

	var elapsed uint32
	c.mark(t.HeaderMarkUS)
	c.space(t.HeaderSpaceUS)
	elapsed += t.HeaderMarkUS + t.HeaderSpaceUS
	for i := 0; i < bits; i++ {
		shift := uint(bits - 1 - i)
		if !t.MSBFirst {
			shift = uint(i)
		}
		c.mark(t.BitMarkUS)
		elapsed += t.BitMarkUS
		if value>>shift&1 == 1 {
			c.space(t.OneSpaceUS)
			elapsed += t.OneSpaceUS
		} else {
			c.space(t.ZeroSpaceUS)
			elapsed += t.ZeroSpaceUS
		}
	}
	if t.FooterMarkUS > 0 {
		c.mark(t.FooterMarkUS)
		elapsed += t.FooterMarkUS
	}
	gap := t.GapUS
	if t.MinFrameUS > elapsed && t.MinFrameUS-elapsed > gap {
		gap = t.MinFrameUS - elapsed
	}
	if gap > 0 {
		c.space(gap)
	}
}
