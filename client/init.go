package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/NetKeyer/NetKeyer/core"
	"github.com/NetKeyer/NetKeyer/memorywriter"
	"github.com/NetKeyer/NetKeyer/midi"
)

// See https://dave.cheney.net/2014/10/17/functional-options-for-friendly-apis
// and https://commandcenter.blogspot.com/2014/01/self-referential-functions-and-design.html
// for notes on the initializer design

type Client struct {
	udpPorts []int

	c transport

	// init options
	writer           io.Writer
	withMidi         bool
	emulateBlindSpot bool

	bridge    bool
	bridgeURL string
}

var defaultClient = Client{
	withMidi: true,
	writer:   ioutil.Discard,

	bridge:    true,
	bridgeURL: "http://127.0.0.1:21327",
}

type InitOption func(*Client)

func BridgeURL(s string) InitOption {
	return func(c *Client) {
		c.bridgeURL = s
		c.bridge = true
	}
}

func DisableBridge() InitOption {
	return func(c *Client) {
		c.bridge = false
		c.bridgeURL = ""
	}
}

func WithMIDI(b bool) InitOption {
	return func(c *Client) {
		c.withMidi = b
	}
}

func LogWriter(w io.Writer) InitOption {
	return func(c *Client) {
		c.writer = w
	}
}

func AddUDPPort(i int) InitOption {
	return func(c *Client) {
		c.udpPorts = append(c.udpPorts, i)
	}
}

func EmulateBlindSpot(b bool) InitOption {
	return func(c *Client) {
		c.emulateBlindSpot = b
	}
}

func New(options ...InitOption) (*Client, error) {
	client := defaultClient // copy struct
	for _, option := range options {
		option(&client)
	}

	var t transport
	if client.bridge {
		b, err := newBridge(client.bridgeURL)
		if err == nil {
			t = b
		}
	}

	// note - if bridge initialized, nothing else is (including UDP)
	if t == nil {
		c, err := client.initInProcess()
		if err != nil {
			return nil, err
		}
		t = c
	}
	client.c = t
	return &client, nil
}

func (c *Client) initInProcess() (transport, error) {
	mw, err := memorywriter.New(90000, 200, true, c.writer)
	if err != nil {
		return nil, err
	}

	var engines []core.Engine

	if c.withMidi {
		mw.Log("initing hardware midi")
		h, err := midi.InitHardware(mw)
		if err != nil {
			return nil, fmt.Errorf("hardware midi: %s", err)
		}
		engines = append(engines, h)
	}

	mw.Log(fmt.Sprintf("UDP port count - %d", len(c.udpPorts)))

	if len(c.udpPorts) > 0 {
		e, err := midi.InitEmulator(c.udpPorts, c.emulateBlindSpot, mw)
		if err != nil {
			return nil, err
		}
		engines = append(engines, e)
	}

	if len(engines) == 0 {
		return nil, errors.New("no input engines enabled")
	}

	b := midi.Init(engines...)

	mw.Log("creating core")
	return &inProcess{core: core.New(b, mw)}, nil
}

func (c *Client) Close() {
	c.c.Close()
}

// inProcess serves the transport interface straight from a local core,
// with no daemon in between.
type inProcess struct {
	core *core.Core
}

func (p *inProcess) Enumerate() ([]core.EnumerateEntry, error) {
	return p.core.Enumerate()
}

func (p *inProcess) Listen(ctx context.Context, entries []core.EnumerateEntry) ([]core.EnumerateEntry, error) {
	return p.core.Listen(ctx, entries)
}

func (p *inProcess) Acquire(index int, prev string) (string, error) {
	return p.core.Acquire(index, prev)
}

func (p *inProcess) Release(session string) error {
	return p.core.Release(session)
}

func (p *inProcess) Stream(ctx context.Context, session string) (<-chan []byte, error) {
	messages, done, err := p.core.Stream(session)
	if err != nil {
		return nil, err
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		for {
			select {
			case msg := <-messages:
				select {
				case out <- msg:
				case <-done:
					return
				case <-ctx.Done():
					return
				}
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (p *inProcess) Close() {
	p.core.Close()
}
