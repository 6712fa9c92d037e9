package types

import "testing"

func TestRoleRoundTrip(t *testing.T) {
	for _, r := range []Role{RoleDisabled, RoleIrOutput, RoleIrInput} {
		got, ok := ParseRole(r.String())
		if !ok || got != r {
			t.Errorf("round trip %v -> %q -> %v,%v", r, r.String(), got, ok)
		}
	}
	if _, ok := ParseRole("sideways"); ok {
		t.Error("unknown role parsed")
	}
}

func TestLineEndingBytes(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"none", ""},
		{"cr", "\r"},
		{"lf", "\n"},
		{"crlf", "\r\n"},
		{"!", "!"},
		{"mystery", ""},
	}
	for _, c := range cases {
		if got := string(ParseLineEnding(c.in).Bytes()); got != c.want {
			t.Errorf("ending %q -> %q, want %q", c.in, got, c.want)
		}
	}
}

func TestPayloadFormatDefaultsToText(t *testing.T) {
	if ParsePayloadFormat("hex") != FormatHex {
		t.Error("hex not recognised")
	}
	if ParsePayloadFormat("") != FormatText || ParsePayloadFormat("binary") != FormatText {
		t.Error("default is not text")
	}
}
