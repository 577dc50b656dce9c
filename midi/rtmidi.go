package midi

import (
	"fmt"
	"sync"

	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/NetKeyer/NetKeyer/core"
	"github.com/NetKeyer/NetKeyer/memorywriter"
)

// Hardware is the engine for real devices, backed by rtmidi (CoreMIDI on
// macOS, ALSA sequencer on Linux, WinMM on Windows). rtmidi enumerates
// input sources with a direct system query - no client object that could
// block on threads without a native run loop.
type Hardware struct {
	drv *rtmididrv.Driver
	mw  *memorywriter.MemoryWriter
}

func InitHardware(mw *memorywriter.MemoryWriter) (*Hardware, error) {
	mw.Log("rtmidi - init")
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, err
	}
	mw.Log("rtmidi - init done")
	return &Hardware{
		drv: drv,
		mw:  mw,
	}, nil
}

func (h *Hardware) Close() {
	h.mw.Log("rtmidi - close (should happen only on exit)")
	if err := h.drv.Close(); err != nil {
		h.mw.Log("rtmidi - driver close: " + err.Error())
	}
}

// Capabilities: rtmidi's Linux backend talks to the ALSA sequencer,
// which sees all kernel MIDI clients directly, so there is no
// enumeration blind spot to fall back from.
func (h *Hardware) Capabilities() core.Capabilities {
	return core.Capabilities{}
}

// serves reports whether rtmidi can address the backend at all. Under
// a foreign backend (the UDP emulator) hardware simply has no ports.
func serves(api core.API) bool {
	switch api {
	case core.APIUnspecified, core.APICoreMIDI, core.APIALSASeq, core.APIWinMM:
		return true
	}
	return false
}

func (h *Hardware) NewEnumerator(cfg core.EnumeratorConfig, api core.API) (core.Enumerator, error) {
	return &hardwareEnumerator{h: h, api: api}, nil
}

type hardwareEnumerator struct {
	h   *Hardware
	api core.API
}

func (e *hardwareEnumerator) InputPorts(visit func(core.Port)) error {
	if !serves(e.api) {
		return nil
	}
	ins, err := e.h.drv.Ins()
	if err != nil {
		return err
	}
	for _, in := range ins {
		visit(&hardwarePort{in: in, h: e.h})
	}
	return nil
}

// Close is a no-op: the underlying driver outlives enumerations and is
// torn down by Hardware.Close on exit.
func (e *hardwareEnumerator) Close() error {
	return nil
}

type hardwarePort struct {
	in drivers.In
	h  *Hardware
}

func (p *hardwarePort) Name() (string, error) {
	return p.in.String(), nil
}

// Clone copies the handle; rtmidi port handles stay valid for the
// driver's lifetime, so a copy is an independently usable descriptor.
func (p *hardwarePort) Clone() (core.Port, error) {
	return &hardwarePort{in: p.in, h: p.h}, nil
}

func (p *hardwarePort) Close() error {
	return nil
}

func (h *Hardware) OpenInput(port core.Port, api core.API, cfg core.InputConfig, recv core.ReceiveFunc) (core.Input, error) {
	p, ok := port.(*hardwarePort)
	if !ok {
		return nil, ErrNotFound
	}
	if !serves(api) {
		return nil, fmt.Errorf("rtmidi does not serve backend %s", api)
	}

	h.mw.Log("rtmidi - opening " + p.in.String())
	if err := p.in.Open(); err != nil {
		return nil, err
	}

	// rtmidi suppresses the ignored categories at the source; they never
	// reach the callback. The native timestamp is dropped here.
	stop, err := p.in.Listen(func(msg []byte, timestampms int32) {
		recv(msg)
	}, drivers.ListenConfig{
		SysEx:       !cfg.IgnoreSysEx,
		TimeCode:    !cfg.IgnoreTiming,
		ActiveSense: !cfg.IgnoreActiveSensing,
		OnErr: func(err error) {
			h.mw.Log("rtmidi - listen: " + err.Error())
		},
	})
	if err != nil {
		if errClose := p.in.Close(); errClose != nil {
			h.mw.Log("rtmidi - close after failed listen: " + errClose.Error())
		}
		return nil, err
	}

	return &hardwareInput{in: p.in, stop: stop}, nil
}

type hardwareInput struct {
	in   drivers.In
	stop func()
	once sync.Once
}

func (i *hardwareInput) Close() error {
	var err error
	i.once.Do(func() {
		i.stop()
		err = i.in.Close()
	})
	return err
}
