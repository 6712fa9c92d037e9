package types

// ---- Port roles ----

// Role is the closed set of assignments a port can hold.
type Role uint8

const (
	RoleDisabled Role = iota
	RoleIrOutput
	RoleIrInput
)

// Wire names match the persisted/HTTP representation.
const (
	roleDisabledStr = "disabled"
	roleIrOutputStr = "ir_output"
	roleIrInputStr  = "ir_input"
)

func (r Role) String() string {
	switch r {
	case RoleIrOutput:
		return roleIrOutputStr
	case RoleIrInput:
		return roleIrInputStr
	default:
		return roleDisabledStr
	}
}

// ParseRole maps a wire string to a Role. Unknown strings report ok=false.
func ParseRole(s string) (Role, bool) {
	switch s {
	case roleDisabledStr:
		return RoleDisabled, true
	case roleIrOutputStr:
		return RoleIrOutput, true
	case roleIrInputStr:
		return RoleIrInput, true
	default:
		return RoleDisabled, false
	}
}

func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Role) UnmarshalText(b []byte) error {
	v, _ := ParseRole(string(b))
	*r = v
	return nil
}

// PortSnapshot is the externally visible view of one port table entry.
type PortSnapshot struct {
	GPIO      int    `json:"gpio"`
	Role      Role   `json:"mode"`
	Label     string `json:"name"`
	CanInput  bool   `json:"can_input"`
	CanOutput bool   `json:"can_output"`
}

// ---- IR ----

// DecodedSignal is one captured and decoded IR frame.
type DecodedSignal struct {
	Protocol string `json:"protocol"`
	ValueHex string `json:"code"`
	Bits     int    `json:"bits"`
}

// LearningStatus reports the active-receiver state and, if a frame arrived
// since the last report, the decoded code.
type LearningStatus struct {
	Active   bool           `json:"active"`
	GPIO     int            `json:"port"`
	Received *DecodedSignal `json:"received_code,omitempty"`
}

// ---- Serial bridge ----

// PayloadFormat selects how serial send data is interpreted.
type PayloadFormat uint8

const (
	FormatText PayloadFormat = iota
	FormatHex
)

// ParsePayloadFormat defaults to text for unknown strings.
func ParsePayloadFormat(s string) PayloadFormat {
	if s == "hex" {
		return FormatHex
	}
	return FormatText
}

// LineEnding is the terminator appended after a serial payload.
type LineEnding uint8

const (
	EndNone LineEnding = iota
	EndCR
	EndLF
	EndCRLF
	EndBang
)

// ParseLineEnding defaults to none for unknown strings.
func ParseLineEnding(s string) LineEnding {
	switch s {
	case "cr":
		return EndCR
	case "lf":
		return EndLF
	case "crlf":
		return EndCRLF
	case "!":
		return EndBang
	default:
		return EndNone
	}
}

// Bytes returns the terminator byte sequence.
func (e LineEnding) Bytes() []byte {
	switch e {
	case EndCR:
		return []byte{'\r'}
	case EndLF:
		return []byte{'\n'}
	case EndCRLF:
		return []byte{'\r', '\n'}
	case EndBang:
		return []byte{'!'}
	default:
		return nil
	}
}

// SerialStatus is the bridge status report.
type SerialStatus struct {
	Enabled        bool    `json:"enabled"`
	RxPin          int     `json:"rx_pin"`
	TxPin          int     `json:"tx_pin"`
	Baud           int     `json:"baud_rate"`
	BytesAvailable int     `json:"available"`
	BoardVariant   string  `json:"board_type,omitempty"`
	Recommended    PinHint `json:"recommended_pins,omitempty"`
}

// PinHint carries the board variant's suggested UART wiring.
type PinHint map[string]int

// ---- Board identity and reports ----

// BoardIdentity is the persisted device identity.
type BoardIdentity struct {
	ID      string `json:"board_id"`
	Name    string `json:"board_name"`
	Adopted bool   `json:"adopted"`
}

// BoardInfo is the full descriptive report.
type BoardInfo struct {
	BoardIdentity
	FirmwareVersion string `json:"firmware_version"`
	TotalPorts      int    `json:"total_ports"`
	OutputCount     int    `json:"output_count"`
	InputCount      int    `json:"input_count"`
	Variant         string `json:"board_type"`
}

// BoardStatus is the lightweight liveness report.
type BoardStatus struct {
	BoardID       string `json:"board_id"`
	Online        bool   `json:"online"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}
