package core

// Package with the core logic of MIDI input discovery and
// input-session lifecycle.
//
// The midi package is not imported here - native engines (rtmidi via
// cgo, the UDP emulator) are reached through the abstract interfaces
// below, so this package builds and tests on its own with a scripted
// engine standing in for the native layer.

// Engine* interfaces are implemented in the midi package.

// API identifies a native MIDI subsystem selectable at enumeration time.
type API int

const (
	// APIUnspecified lets the native layer pick the platform default.
	APIUnspecified API = iota
	APICoreMIDI
	APIALSASeq
	APIPipeWire
	APIWinMM
	APIEmulator
)

func (a API) String() string {
	switch a {
	case APIUnspecified:
		return "unspecified"
	case APICoreMIDI:
		return "coremidi"
	case APIALSASeq:
		return "alsa_seq"
	case APIPipeWire:
		return "pipewire"
	case APIWinMM:
		return "winmm"
	case APIEmulator:
		return "emulator"
	}
	return "unknown"
}

// Capabilities describe quirks of an engine's default backend that the
// observer must work around. Resolved at runtime so the fallback policy
// is explicit and testable on any platform.
type Capabilities struct {
	// EnumerationBlindSpot is true when the default backend only sees
	// devices explicitly bridged into a secondary device graph (PipeWire
	// on Linux) and reports zero ports for everything else.
	EnumerationBlindSpot bool

	// FallbackAPI queries the kernel-level device list directly and is
	// retried when the blind spot produced an empty enumeration.
	FallbackAPI API
}

// EnumeratorConfig configures a one-shot synchronous enumeration.
// There is deliberately no continuous device-watch mode and no
// notification-on-construction: enumeration must not require a backend
// client object that can block or fail on threads without a native run
// loop or in sandboxed processes.
type EnumeratorConfig struct {
	TrackHardware bool
	TrackVirtual  bool
}

// InputConfig configures an open input. The three Ignore categories are
// suppressed by the engine at the source, before the receive callback.
// Only the base MIDI 1 protocol is decoded.
type InputConfig struct {
	IgnoreSysEx         bool
	IgnoreTiming        bool
	IgnoreActiveSensing bool
}

// ReceiveFunc is invoked with the raw bytes of each accepted message.
// It runs on whatever thread the native capture mechanism chooses, so
// implementations must be safe to call concurrently with the goroutine
// that opened the input. The slice is only valid during the call.
type ReceiveFunc func(msg []byte)

// Engine is one native MIDI subsystem wrapper.
type Engine interface {
	// NewEnumerator creates an enumeration context for the given backend.
	NewEnumerator(cfg EnumeratorConfig, api API) (Enumerator, error)

	// OpenInput binds a live input to a previously enumerated port using
	// the given backend; recv receives accepted messages until Close.
	OpenInput(port Port, api API, cfg InputConfig, recv ReceiveFunc) (Input, error)

	Capabilities() Capabilities
}

// Enumerator is a native enumeration context.
type Enumerator interface {
	// InputPorts visits every currently attached input source via a
	// direct system query. Visited ports are transient - valid only for
	// the duration of the callback; Clone to retain one.
	InputPorts(visit func(Port)) error

	Close() error
}

// Port is an opaque descriptor of one MIDI input device.
type Port interface {
	Name() (string, error)

	// Clone returns an independently owned copy that stays valid after
	// the enumeration callback returns.
	Clone() (Port, error)

	Close() error
}

// Input is an open native input handle.
type Input interface {
	Close() error
}
