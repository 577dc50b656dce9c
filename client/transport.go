package client

import (
	"context"

	"github.com/NetKeyer/NetKeyer/core"
)

type transport interface {
	Enumerate() ([]core.EnumerateEntry, error)
	Listen(
		ctx context.Context,
		entries []core.EnumerateEntry,
	) ([]core.EnumerateEntry, error)
	Acquire(
		index int,
		prev string,
	) (string, error)
	Release(
		session string,
	) error
	Stream(
		ctx context.Context,
		session string,
	) (<-chan []byte, error)
	Close()
}
