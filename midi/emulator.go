package midi

import (
	"net"
	"strconv"

	"github.com/NetKeyer/NetKeyer/core"
	"github.com/NetKeyer/NetKeyer/memorywriter"
)

const emulatorPrefix = "emulator"

// Emulator is a synthetic engine for testing environments without MIDI
// hardware: one input port per configured UDP port, one raw MIDI message
// per datagram. With simulateBlindSpot it also mimics a backend whose
// default enumeration path sees nothing (the PipeWire quirk), which
// exercises the observer's fallback on any platform.
type Emulator struct {
	ports             []int
	simulateBlindSpot bool
	mw                *memorywriter.MemoryWriter
}

func InitEmulator(udpPorts []int, simulateBlindSpot bool, mw *memorywriter.MemoryWriter) (*Emulator, error) {
	return &Emulator{
		ports:             udpPorts,
		simulateBlindSpot: simulateBlindSpot,
		mw:                mw,
	}, nil
}

func (e *Emulator) Capabilities() core.Capabilities {
	return core.Capabilities{
		EnumerationBlindSpot: e.simulateBlindSpot,
		FallbackAPI:          core.APIEmulator,
	}
}

func (e *Emulator) NewEnumerator(cfg core.EnumeratorConfig, api core.API) (core.Enumerator, error) {
	return &emulatorEnumerator{e: e, api: api}, nil
}

type emulatorEnumerator struct {
	e   *Emulator
	api core.API
}

func (en *emulatorEnumerator) InputPorts(visit func(core.Port)) error {
	// the simulated blind spot: the default backend reports zero ports,
	// only the explicit fallback sees the device list
	if en.e.simulateBlindSpot && en.api != core.APIEmulator {
		return nil
	}
	for _, p := range en.e.ports {
		visit(&emulatorPort{udp: p, e: en.e})
	}
	return nil
}

func (en *emulatorEnumerator) Close() error {
	return nil
}

type emulatorPort struct {
	udp int
	e   *Emulator
}

func (p *emulatorPort) Name() (string, error) {
	return emulatorPrefix + strconv.Itoa(p.udp), nil
}

func (p *emulatorPort) Clone() (core.Port, error) {
	return &emulatorPort{udp: p.udp, e: p.e}, nil
}

func (p *emulatorPort) Close() error {
	return nil
}

func (e *Emulator) OpenInput(port core.Port, api core.API, cfg core.InputConfig, recv core.ReceiveFunc) (core.Input, error) {
	p, ok := port.(*emulatorPort)
	if !ok {
		return nil, ErrNotFound
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{
		IP:   net.IPv4(127, 0, 0, 1),
		Port: p.udp,
	})
	if err != nil {
		return nil, err
	}

	go e.readLoop(conn, cfg, recv)
	return &emulatorInput{conn: conn}, nil
}

// readLoop delivers datagrams until the socket is closed. Suppressed
// message categories are dropped here, before the receive callback, the
// same place a hardware backend drops them.
func (e *Emulator) readLoop(conn *net.UDPConn, cfg core.InputConfig, recv core.ReceiveFunc) {
	buf := make([]byte, 1024)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			// socket closed by Input.Close
			return
		}
		if n == 0 {
			continue
		}
		msg := make([]byte, n)
		copy(msg, buf[:n])
		if !Accepted(msg, cfg) {
			continue
		}
		recv(msg)
	}
}

type emulatorInput struct {
	conn *net.UDPConn
}

func (i *emulatorInput) Close() error {
	return i.conn.Close()
}
