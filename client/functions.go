package client

import (
	"context"

	"github.com/NetKeyer/NetKeyer/core"
)

// EnumerateEntry describes one visible input port.
type EnumerateEntry = core.EnumerateEntry

// Enumerate returns the input ports currently visible to the bridge.
func (c *Client) Enumerate() ([]EnumerateEntry, error) {
	return c.c.Enumerate()
}

// Listen blocks until the set of ports differs from previousEntries,
// or the context ends.
func (c *Client) Listen(ctx context.Context, previousEntries []EnumerateEntry) ([]EnumerateEntry, error) {
	return c.c.Listen(ctx, previousEntries)
}

// Acquire opens an input session on the port at index. previousSession
// names the session currently holding the port, or "" when unheld.
func (c *Client) Acquire(index int, previousSession string) (string, error) {
	return c.c.Acquire(index, previousSession)
}

// Release closes the session and frees its port.
func (c *Client) Release(session string) error {
	return c.c.Release(session)
}

// Stream delivers the raw MIDI messages of an open session. The channel
// closes when the session is released or the context ends.
func (c *Client) Stream(ctx context.Context, session string) (<-chan []byte, error) {
	return c.c.Stream(ctx, session)
}
