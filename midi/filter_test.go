package midi

import (
	"testing"

	"github.com/NetKeyer/NetKeyer/core"
)

var suppressAll = core.InputConfig{
	IgnoreSysEx:         true,
	IgnoreTiming:        true,
	IgnoreActiveSensing: true,
}

func TestAcceptedSuppression(t *testing.T) {
	testcases := []struct {
		name string
		msg  []byte
		cfg  core.InputConfig
		want bool
	}{
		{"note on passes", []byte{0x90, 0x3c, 0x40}, suppressAll, true},
		{"note off passes", []byte{0x80, 0x3c, 0x00}, suppressAll, true},
		{"control change passes", []byte{0xb0, 0x07, 0x7f}, suppressAll, true},
		{"pitch bend passes", []byte{0xe0, 0x00, 0x40}, suppressAll, true},

		{"sysex suppressed", []byte{0xf0, 0x7e, 0x7f, 0x09, 0x01, 0xf7}, suppressAll, false},
		{"timing clock suppressed", []byte{0xf8}, suppressAll, false},
		{"mtc quarter frame suppressed", []byte{0xf1, 0x01}, suppressAll, false},
		{"active sensing suppressed", []byte{0xfe}, suppressAll, false},

		{"sysex passes when wanted", []byte{0xf0, 0x7e, 0x7f, 0x09, 0x01, 0xf7}, core.InputConfig{}, true},
		{"timing clock passes when wanted", []byte{0xf8}, core.InputConfig{}, true},
		{"active sensing passes when wanted", []byte{0xfe}, core.InputConfig{}, true},
	}
	for _, tc := range testcases {
		if got := Accepted(tc.msg, tc.cfg); got != tc.want {
			t.Errorf("%s: Accepted(% x) = %v, want %v", tc.name, tc.msg, got, tc.want)
		}
	}
}
