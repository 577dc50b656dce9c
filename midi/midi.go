package midi

import (
	"fmt"

	"github.com/NetKeyer/NetKeyer/core"
)

var (
	ErrNotFound = fmt.Errorf("port not found")
)

// MIDI combines several engines (hardware, emulators) behind one
// core.Engine, so the rest of the bridge does not care where a port
// came from.
type MIDI struct {
	engines []core.Engine
}

func Init(engines ...core.Engine) *MIDI {
	return &MIDI{
		engines: engines,
	}
}

// Capabilities reports a blind spot as soon as any combined engine has
// one; the observer then retries the whole enumeration with that
// engine's fallback backend. Engines without the blind spot simply
// repeat their result under the fallback.
func (m *MIDI) Capabilities() core.Capabilities {
	for _, e := range m.engines {
		if caps := e.Capabilities(); caps.EnumerationBlindSpot {
			return caps
		}
	}
	return core.Capabilities{}
}

func (m *MIDI) NewEnumerator(cfg core.EnumeratorConfig, api core.API) (core.Enumerator, error) {
	enums := make([]core.Enumerator, 0, len(m.engines))
	for _, e := range m.engines {
		en, err := e.NewEnumerator(cfg, api)
		if err != nil {
			for _, open := range enums {
				_ = open.Close()
			}
			return nil, err
		}
		enums = append(enums, en)
	}
	return &multiEnumerator{engines: m.engines, enums: enums}, nil
}

func (m *MIDI) OpenInput(port core.Port, api core.API, cfg core.InputConfig, recv core.ReceiveFunc) (core.Input, error) {
	ep, ok := port.(*enginePort)
	if !ok {
		return nil, ErrNotFound
	}
	return ep.engine.OpenInput(ep.Port, api, cfg, recv)
}

type multiEnumerator struct {
	engines []core.Engine
	enums   []core.Enumerator
}

func (me *multiEnumerator) InputPorts(visit func(core.Port)) error {
	for i, en := range me.enums {
		engine := me.engines[i]
		err := en.InputPorts(func(p core.Port) {
			visit(&enginePort{Port: p, engine: engine})
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (me *multiEnumerator) Close() error {
	var first error
	for _, en := range me.enums {
		if err := en.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// enginePort tags a port with the engine that enumerated it, so opening
// dispatches back to the right native layer.
type enginePort struct {
	core.Port
	engine core.Engine
}

func (p *enginePort) Clone() (core.Port, error) {
	clone, err := p.Port.Clone()
	if err != nil {
		return nil, err
	}
	return &enginePort{Port: clone, engine: p.engine}, nil
}
