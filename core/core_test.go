package core

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"
)

func TestEnumerateEntriesSort(t *testing.T) {
	entries := []EnumerateEntry{
		{Index: 2, Name: "c"},
		{Index: 0, Name: "a"},
		{Index: 1, Name: "b"},
	}
	EnumerateEntries(entries).Sort()
	if entries[0].Index != 0 || entries[1].Index != 1 || entries[2].Index != 2 {
		t.Errorf("EnumerateEntries(entries).Sort() did not work well. The result: %v", entries)
	}
}

func TestCoreEnumerate(t *testing.T) {
	engine := &mockEngine{
		ports: map[API][]string{
			APIUnspecified: {"kbd", "pad"},
		},
	}
	c := New(engine, testWriter(t))
	defer c.Close()

	entries, err := c.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate: %s", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %v", entries)
	}
	if entries[0].Name != "kbd" || entries[1].Name != "pad" {
		t.Errorf("names = %q, %q", entries[0].Name, entries[1].Name)
	}
	if entries[0].Backend != "unspecified" {
		t.Errorf("backend = %q", entries[0].Backend)
	}
	if entries[0].Session != nil || entries[1].Session != nil {
		t.Errorf("fresh enumeration reports sessions: %v", entries)
	}
}

func TestCoreAcquireReleaseStream(t *testing.T) {
	engine := &mockEngine{
		ports: map[API][]string{
			APIUnspecified: {"kbd"},
		},
	}
	c := New(engine, testWriter(t))
	defer c.Close()

	id, err := c.Acquire(0, "")
	if err != nil {
		t.Fatalf("Acquire: %s", err)
	}

	entries, err := c.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate: %s", err)
	}
	if entries[0].Session == nil || *entries[0].Session != id {
		t.Errorf("entry session = %v, want %q", entries[0].Session, id)
	}

	messages, done, err := c.Stream(id)
	if err != nil {
		t.Fatalf("Stream: %s", err)
	}

	msg := []byte{0x90, 0x3c, 0x40}
	engine.recv(msg)
	msg[2] = 0x00 // the stream must hold a copy, not the engine's slice

	select {
	case got := <-messages:
		if !bytes.Equal(got, []byte{0x90, 0x3c, 0x40}) {
			t.Errorf("streamed message = %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no message on stream")
	}

	if err := c.Release(id); err != nil {
		t.Fatalf("Release: %s", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("done not closed on release")
	}

	if _, _, err := c.Stream(id); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Stream after release error = %v, want ErrSessionNotFound", err)
	}
	if err := c.Release(id); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("double release error = %v, want ErrSessionNotFound", err)
	}
}

func TestCoreAcquirePrevSession(t *testing.T) {
	engine := &mockEngine{
		ports: map[API][]string{
			APIUnspecified: {"kbd"},
		},
	}
	c := New(engine, testWriter(t))
	defer c.Close()

	id, err := c.Acquire(0, "")
	if err != nil {
		t.Fatalf("Acquire: %s", err)
	}

	// a second client must not steal the port without naming the holder
	if _, err := c.Acquire(0, ""); !errors.Is(err, ErrWrongPrevSession) {
		t.Errorf("steal error = %v, want ErrWrongPrevSession", err)
	}
	if _, err := c.Acquire(0, "bogus"); !errors.Is(err, ErrWrongPrevSession) {
		t.Errorf("bogus prev error = %v, want ErrWrongPrevSession", err)
	}

	// takeover with the right previous session
	id2, err := c.Acquire(0, id)
	if err != nil {
		t.Fatalf("takeover Acquire: %s", err)
	}
	if id2 == id {
		t.Errorf("takeover reused session id %q", id)
	}
}

func TestCoreAcquireBadIndex(t *testing.T) {
	engine := &mockEngine{ports: map[API][]string{}}
	c := New(engine, testWriter(t))
	defer c.Close()

	if _, err := c.Acquire(0, ""); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Acquire error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestCoreStreamBacklogDrop(t *testing.T) {
	engine := &mockEngine{
		ports: map[API][]string{
			APIUnspecified: {"kbd"},
		},
	}
	c := New(engine, testWriter(t))
	defer c.Close()

	id, err := c.Acquire(0, "")
	if err != nil {
		t.Fatalf("Acquire: %s", err)
	}

	// overflow without a consumer; the capture side must never block
	for i := 0; i < streamBacklog+10; i++ {
		engine.recv([]byte{0x90, byte(i), 0x40})
	}

	messages, _, err := c.Stream(id)
	if err != nil {
		t.Fatalf("Stream: %s", err)
	}
	if len(messages) != streamBacklog {
		t.Errorf("buffered = %d, want %d", len(messages), streamBacklog)
	}
}

// An engine may begin delivering on its capture thread the instant the
// input opens, before Acquire has returned. The overflow log path reads
// the session id there, so the id must be published before the open.
// Run with -race.
func TestCoreAcquireDeliveryDuringOpen(t *testing.T) {
	engine := &mockEngine{
		ports: map[API][]string{
			APIUnspecified: {"kbd"},
		},
		deliverOnOpen: streamBacklog + 50,
		deliveredAll:  make(chan struct{}),
	}
	c := New(engine, testWriter(t))
	defer c.Close()

	id, err := c.Acquire(0, "")
	if err != nil {
		t.Fatalf("Acquire: %s", err)
	}
	if id == "" {
		t.Fatal("empty session id")
	}

	select {
	case <-engine.deliveredAll:
	case <-time.After(2 * time.Second):
		t.Fatal("capture goroutine did not finish")
	}

	messages, _, err := c.Stream(id)
	if err != nil {
		t.Fatalf("Stream: %s", err)
	}
	if len(messages) != streamBacklog {
		t.Errorf("buffered = %d, want %d", len(messages), streamBacklog)
	}
}

func TestCoreListenReturnsOnChange(t *testing.T) {
	engine := &mockEngine{
		ports: map[API][]string{
			APIUnspecified: {"kbd"},
		},
	}
	c := New(engine, testWriter(t))
	defer c.Close()

	// stale view: the caller saw no devices, one exists now
	res, err := c.Listen(context.Background(), nil)
	if err != nil {
		t.Fatalf("Listen: %s", err)
	}
	if len(res) != 1 || res[0].Name != "kbd" {
		t.Errorf("Listen result = %v", res)
	}
}

func TestCoreListenContextCancel(t *testing.T) {
	engine := &mockEngine{
		ports: map[API][]string{
			APIUnspecified: {"kbd"},
		},
	}
	c := New(engine, testWriter(t))
	defer c.Close()

	current, err := c.Enumerate()
	if err != nil {
		t.Fatalf("Enumerate: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	res, err := c.Listen(ctx, current)
	if err != nil {
		t.Fatalf("Listen: %s", err)
	}
	if res != nil {
		t.Errorf("canceled Listen returned %v", res)
	}
}
