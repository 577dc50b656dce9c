package midi

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/NetKeyer/NetKeyer/core"
	"github.com/NetKeyer/NetKeyer/memorywriter"
)

func testWriter(t *testing.T) *memorywriter.MemoryWriter {
	t.Helper()
	mw, err := memorywriter.New(90000, 200, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	return mw
}

func collectNames(t *testing.T, e core.Engine, api core.API) []string {
	t.Helper()
	enum, err := e.NewEnumerator(core.EnumeratorConfig{TrackHardware: true, TrackVirtual: true}, api)
	if err != nil {
		t.Fatalf("NewEnumerator: %s", err)
	}
	defer func() {
		if err := enum.Close(); err != nil {
			t.Errorf("enumerator close: %s", err)
		}
	}()

	var names []string
	err = enum.InputPorts(func(p core.Port) {
		n, err := p.Name()
		if err != nil {
			t.Fatalf("Name: %s", err)
		}
		names = append(names, n)
	})
	if err != nil {
		t.Fatalf("InputPorts: %s", err)
	}
	return names
}

func TestMultiEngineEnumeration(t *testing.T) {
	a, err := InitEmulator([]int{21401}, false, testWriter(t))
	if err != nil {
		t.Fatal(err)
	}
	b, err := InitEmulator([]int{21402, 21403}, false, testWriter(t))
	if err != nil {
		t.Fatal(err)
	}

	m := Init(a, b)
	names := collectNames(t, m, core.APIUnspecified)
	want := []string{"emulator21401", "emulator21402", "emulator21403"}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestEmulatorBlindSpot(t *testing.T) {
	e, err := InitEmulator([]int{21404}, true, testWriter(t))
	if err != nil {
		t.Fatal(err)
	}
	m := Init(e)

	caps := m.Capabilities()
	if !caps.EnumerationBlindSpot || caps.FallbackAPI != core.APIEmulator {
		t.Fatalf("capabilities = %+v", caps)
	}

	if names := collectNames(t, m, core.APIUnspecified); len(names) != 0 {
		t.Errorf("default backend sees %v, want nothing", names)
	}
	if names := collectNames(t, m, core.APIEmulator); len(names) != 1 {
		t.Errorf("fallback backend sees %v, want one port", names)
	}
}

// The full path: observer falls back to the emulator backend, a session
// opens on the recorded backend, datagrams come out as messages and
// suppressed categories never show up.
func TestObserverOverEmulator(t *testing.T) {
	const udpPort = 21405

	e, err := InitEmulator([]int{udpPort}, true, testWriter(t))
	if err != nil {
		t.Fatal(err)
	}
	m := Init(e)

	o, err := core.NewObserver(m, testWriter(t))
	if err != nil {
		t.Fatalf("NewObserver: %s", err)
	}
	defer o.Close()

	if o.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", o.Count())
	}
	if o.API() != core.APIEmulator {
		t.Fatalf("API() = %s, want emulator", o.API())
	}

	received := make(chan []byte, 16)
	s, err := o.Open(0, func(msg []byte) {
		b := make([]byte, len(msg))
		copy(b, msg)
		received <- b
	})
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	defer s.Close()

	conn, err := net.Dial("udp", "127.0.0.1:21405")
	if err != nil {
		t.Fatalf("dial: %s", err)
	}
	defer conn.Close()

	noteOn := []byte{0x90, 0x3c, 0x40}
	sysex := []byte{0xf0, 0x7e, 0x7f, 0x09, 0x01, 0xf7}
	noteOff := []byte{0x80, 0x3c, 0x00}

	// the read loop may not be scheduled yet when Open returns, so
	// resend the first note until it comes through
	var first []byte
	for attempt := 0; first == nil; attempt++ {
		if attempt > 100 {
			t.Fatal("first message never arrived")
		}
		if _, err := conn.Write(noteOn); err != nil {
			t.Fatalf("write: %s", err)
		}
		select {
		case first = <-received:
		case <-time.After(50 * time.Millisecond):
		}
	}
	if !bytes.Equal(first, noteOn) {
		t.Fatalf("received % x, want % x", first, noteOn)
	}

	for _, msg := range [][]byte{sysex, noteOff} {
		if _, err := conn.Write(msg); err != nil {
			t.Fatalf("write: %s", err)
		}
	}

	// sysex is suppressed at the source; only notes arrive, the note off
	// last. Duplicates of the resent note on may still drain through.
	for {
		select {
		case got := <-received:
			if bytes.Equal(got, noteOff) {
				return
			}
			if !bytes.Equal(got, noteOn) {
				t.Fatalf("received % x", got)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("note off did not arrive")
		}
	}
}

func TestOpenInputRejectsForeignPort(t *testing.T) {
	e, err := InitEmulator([]int{21406}, false, testWriter(t))
	if err != nil {
		t.Fatal(err)
	}
	m := Init(e)

	if _, err := m.OpenInput(&emulatorPort{udp: 21406, e: e}, core.APIUnspecified, core.InputConfig{}, func([]byte) {}); !errors.Is(err, ErrNotFound) {
		// ports opened through the combiner must carry the engine tag
		t.Errorf("OpenInput error = %v, want ErrNotFound", err)
	}
}
