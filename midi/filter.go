package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/NetKeyer/NetKeyer/core"
)

// Accepted reports whether msg survives the configured source-side
// suppression. Hardware backends filter these categories natively; the
// emulator and any future engine without native filtering call this
// before the receive callback, so suppressed categories never reach the
// bridge at all.
func Accepted(msg []byte, cfg core.InputConfig) bool {
	m := gomidi.Message(msg)
	switch {
	case cfg.IgnoreSysEx && m.Is(gomidi.SysExMsg):
		return false
	case cfg.IgnoreTiming && (m.Is(gomidi.TimingClockMsg) || m.Is(gomidi.MTCMsg)):
		return false
	case cfg.IgnoreActiveSensing && m.Is(gomidi.ActiveSenseMsg):
		return false
	}
	return true
}
