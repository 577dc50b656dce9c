package core

import (
	"errors"
	"fmt"

	"github.com/NetKeyer/NetKeyer/memorywriter"
)

var (
	// ErrObserverCreation means both the default and the fallback backend
	// attempts failed. Zero discovered ports is not an error.
	ErrObserverCreation = errors.New("midi observer creation failed")

	// ErrInputOpen means native input construction failed for a valid
	// port/backend pair; the observer stays valid and reusable.
	ErrInputOpen = errors.New("midi input open failed")

	ErrIndexOutOfRange = errors.New("port index out of range")
	ErrNilReceiver     = errors.New("nil receive callback")
	ErrEmptyBuffer     = errors.New("empty name buffer")
)

// Observer owns one successful enumeration: the native enumeration
// context, the backend it settled on, and a cache of cloned port
// descriptors. The cache is populated once, during NewObserver, and only
// read afterwards; concurrent enumerations on one observer are not
// supported.
type Observer struct {
	engine Engine
	enum   Enumerator
	ports  []Port
	api    API
	log    *memorywriter.MemoryWriter
}

// NewObserver enumerates input ports, trying the platform default
// backend first. If the default succeeds but finds zero ports and the
// engine reports an enumeration blind spot, the whole enumeration is
// redone from scratch against the engine's fallback backend; partial
// state of the first attempt is discarded, never merged. Zero ports
// from a backend without the blind spot is a valid result.
func NewObserver(engine Engine, log *memorywriter.MemoryWriter) (*Observer, error) {
	o := &Observer{engine: engine, api: APIUnspecified, log: log}

	enum, ports, err := o.attempt(APIUnspecified)
	if err != nil {
		o.log.Log("observer - default backend failed: " + err.Error())
		return nil, fmt.Errorf("%w: %s", ErrObserverCreation, err)
	}

	caps := engine.Capabilities()
	if len(ports) == 0 && caps.EnumerationBlindSpot {
		o.log.Log(fmt.Sprintf(
			"observer - default backend found 0 ports, retrying with %s",
			caps.FallbackAPI))
		releasePorts(ports, enum, o.log)

		enum, ports, err = o.attempt(caps.FallbackAPI)
		if err != nil {
			o.log.Log("observer - fallback backend failed: " + err.Error())
			return nil, fmt.Errorf("%w: %s", ErrObserverCreation, err)
		}
		o.api = caps.FallbackAPI
	}

	o.enum = enum
	o.ports = ports
	o.log.Log(fmt.Sprintf("observer - %d ports via %s", len(ports), o.api))
	return o, nil
}

// attempt runs one full enumeration against a single backend. It has no
// side effects on the observer; the caller decides whether to keep or
// discard the result.
func (o *Observer) attempt(api API) (Enumerator, []Port, error) {
	cfg := EnumeratorConfig{
		TrackHardware: true,
		TrackVirtual:  true,
	}

	enum, err := o.engine.NewEnumerator(cfg, api)
	if err != nil {
		return nil, nil, err
	}

	var ports []Port
	err = enum.InputPorts(func(p Port) {
		clone, errClone := p.Clone()
		if errClone != nil {
			// one device is omitted from the cache, the rest survive
			o.log.Log("observer - port clone failed, skipping: " + errClone.Error())
			return
		}
		ports = append(ports, clone)
	})
	if err != nil {
		releasePorts(ports, enum, o.log)
		return nil, nil, err
	}

	return enum, ports, nil
}

// releasePorts frees cloned descriptors before the enumeration context
// that produced them; the native layer may hold back-references from the
// context to its ports.
func releasePorts(ports []Port, enum Enumerator, log *memorywriter.MemoryWriter) {
	for _, p := range ports {
		if err := p.Close(); err != nil {
			log.Log("observer - port close: " + err.Error())
		}
	}
	if err := enum.Close(); err != nil {
		log.Log("observer - enumerator close: " + err.Error())
	}
}

// Count returns the number of cached ports. Zero means no devices were
// available at enumeration time.
func (o *Observer) Count() int {
	return len(o.ports)
}

// API returns the backend the enumeration settled on. Every input opened
// through this observer uses it, so the entity a descriptor was obtained
// from and the entity used to open it always agree.
func (o *Observer) API() API {
	return o.api
}

// PortName fetches the human-readable name of the port at index lazily
// from the native descriptor.
func (o *Observer) PortName(index int) (string, error) {
	if index < 0 || index >= len(o.ports) {
		return "", ErrIndexOutOfRange
	}
	name, err := o.ports[index].Name()
	if err != nil {
		o.log.Log("observer - name query failed: " + err.Error())
		return "", err
	}
	return name, nil
}

// CopyPortName copies the port name into buf, silently truncating to the
// buffer capacity, and returns the number of bytes written. On failure
// no bytes are written. Never writes past len(buf).
func (o *Observer) CopyPortName(index int, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, ErrEmptyBuffer
	}
	name, err := o.PortName(index)
	if err != nil {
		return 0, err
	}
	return copy(buf, name), nil
}

// Open binds a new input session to the port at index, using the backend
// recorded during enumeration - never the platform default. System
// exclusive, timing and active sensing are suppressed at the source.
// recv runs on the engine's capture thread; Open does not block waiting
// for messages. On failure no resources are retained.
func (o *Observer) Open(index int, recv ReceiveFunc) (*Session, error) {
	if recv == nil {
		return nil, ErrNilReceiver
	}
	if index < 0 || index >= len(o.ports) {
		return nil, ErrIndexOutOfRange
	}

	cfg := InputConfig{
		IgnoreSysEx:         true,
		IgnoreTiming:        true,
		IgnoreActiveSensing: true,
	}

	input, err := o.engine.OpenInput(o.ports[index], o.api, cfg, recv)
	if err != nil {
		o.log.Log("observer - input open failed: " + err.Error())
		return nil, fmt.Errorf("%w: %s", ErrInputOpen, err)
	}

	return &Session{input: input, api: o.api, log: o.log}, nil
}

// Close releases every cloned descriptor, then the enumeration context,
// in that order. Sessions opened through this observer must be closed
// first; descriptors must outlive the sessions bound to them.
func (o *Observer) Close() {
	if o == nil || o.enum == nil {
		return
	}
	releasePorts(o.ports, o.enum, o.log)
	o.ports = nil
	o.enum = nil
}
