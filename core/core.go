package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NetKeyer/NetKeyer/memorywriter"
)

// Core is the bridge-level logic on top of the Observer: it hands out
// session ids, tracks which port is acquired by whom, and buffers
// incoming messages for the streaming endpoint.

var (
	ErrWrongPrevSession = errors.New("wrong previous session")
	ErrSessionNotFound  = errors.New("session not found")
)

// streamBacklog is the per-session message buffer. The capture thread
// never blocks on a slow consumer; overflow messages are dropped and
// logged.
const streamBacklog = 256

type session struct {
	id     string
	index  int
	name   string
	input  *Session
	stream chan []byte
	done   chan struct{}
	closed int32 // atomic; stops deliveries racing the close
}

type EnumerateEntry struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Backend string `json:"backend"`

	Session *string `json:"session"`
}

type EnumerateEntries []EnumerateEntry

func (entries EnumerateEntries) Len() int {
	return len(entries)
}
func (entries EnumerateEntries) Less(i, j int) bool {
	return entries[i].Index < entries[j].Index
}
func (entries EnumerateEntries) Swap(i, j int) {
	entries[i], entries[j] = entries[j], entries[i]
}

func (entries EnumerateEntries) Sort() {
	sort.Sort(entries)
}

type Core struct {
	engine Engine

	observer *Observer

	sessions      map[string]*session
	sessionsMutex sync.Mutex // for atomic access to sessions and observer

	latestSessionID int

	log *memorywriter.MemoryWriter
}

func New(engine Engine, log *memorywriter.MemoryWriter) *Core {
	return &Core{
		engine:   engine,
		sessions: make(map[string]*session),
		log:      log,
	}
}

func (c *Core) Log(s string) {
	c.log.Log("core - " + s)
}

// refreshObserver rebuilds the port cache. While sessions are open the
// current observer is reused as-is: its cloned descriptors must outlive
// the sessions bound to them, and the cache is stable between
// enumerations by design.
func (c *Core) refreshObserver() error {
	if c.observer != nil {
		if len(c.sessions) > 0 {
			c.Log("enumerate - sessions open, using cached ports")
			return nil
		}
		c.observer.Close()
		c.observer = nil
	}

	c.Log("enumerate - creating observer")
	o, err := NewObserver(c.engine, c.log)
	if err != nil {
		return err
	}
	c.observer = o
	return nil
}

func (c *Core) Enumerate() ([]EnumerateEntry, error) {
	c.sessionsMutex.Lock()
	defer c.sessionsMutex.Unlock()

	if err := c.refreshObserver(); err != nil {
		return nil, err
	}

	return c.createEnumerateEntries(), nil
}

func (c *Core) createEnumerateEntries() EnumerateEntries {
	o := c.observer
	entries := make(EnumerateEntries, 0, o.Count())
	for i := 0; i < o.Count(); i++ {
		name, err := o.PortName(i)
		if err != nil {
			// advisory only; the port is still listed
			c.Log(fmt.Sprintf("enumerate - name of port %d: %s", i, err))
		}
		e := EnumerateEntry{
			Index:   i,
			Name:    name,
			Backend: o.API().String(),
		}
		c.findSession(&e, i)
		entries = append(entries, e)
	}
	entries.Sort()
	return entries
}

func (c *Core) findSession(e *EnumerateEntry, index int) {
	for _, ss := range c.sessions {
		if ss.index == index {
			// Copying to prevent overwriting on Acquire and
			// wrong comparison in Listen.
			ssidCopy := ss.id
			e.Session = &ssidCopy
		}
	}
}

// Listen long-polls until the set of devices or sessions differs from
// what the caller already knows, the timeout elapses, or the request
// context ends.
func (c *Core) Listen(ctx context.Context, entries []EnumerateEntry) ([]EnumerateEntry, error) {
	c.Log("listen starting")

	const (
		iterMax   = 600
		iterDelay = 500 // ms
	)

	EnumerateEntries(entries).Sort()

	for i := 0; i < iterMax; i++ {
		e, enumErr := c.Enumerate()
		if enumErr != nil {
			return nil, enumErr
		}
		if reflect.DeepEqual(entries, e) {
			select {
			case <-ctx.Done():
				c.Log("listen request closed")
				return nil, nil
			case <-time.After(iterDelay * time.Millisecond):
			}
		} else {
			c.Log("listen different")
			entries = e
			break
		}
	}
	c.Log("listen exiting")
	return entries, nil
}

func (c *Core) findPrevSession(index int) string {
	// sessionsMutex must be locked before entering this
	for _, ss := range c.sessions {
		if ss.index == index {
			return ss.id
		}
	}
	return ""
}

// Acquire opens an input session on the port at index. prev must name
// the session currently holding the port ("" when unheld); a matching
// prev is released first, so a new client can take over a port it lost
// track of, but never unknowingly steal a live one.
func (c *Core) Acquire(index int, prev string) (string, error) {
	c.sessionsMutex.Lock()
	defer c.sessionsMutex.Unlock()

	c.Log(fmt.Sprintf("acquire - index %d prev %q", index, prev))

	if c.observer == nil {
		if err := c.refreshObserver(); err != nil {
			return "", err
		}
	}

	prevSession := c.findPrevSession(index)
	if prevSession != prev {
		return "", ErrWrongPrevSession
	}
	if prev != "" {
		c.Log("acquire - releasing previous")
		if err := c.release(prev); err != nil {
			return "", err
		}
	}

	name, err := c.observer.PortName(index)
	if err != nil {
		if errors.Is(err, ErrIndexOutOfRange) {
			return "", err
		}
		// name is advisory; the session still opens against the descriptor
		name = ""
	}

	// the id must be set before Open; an engine may start delivering on
	// its capture thread the moment the input opens, and the closure
	// below reads the id there
	ss := &session{
		id:     c.newSession(),
		index:  index,
		name:   name,
		stream: make(chan []byte, streamBacklog),
		done:   make(chan struct{}),
	}

	recv := func(msg []byte) {
		if atomic.LoadInt32(&ss.closed) != 0 {
			return
		}
		// the engine owns msg only for the duration of the callback
		b := make([]byte, len(msg))
		copy(b, msg)
		select {
		case ss.stream <- b:
		default:
			c.Log("dropping message, stream backlog full on session " + ss.id)
		}
	}

	input, err := c.observer.Open(index, recv)
	if err != nil {
		return "", err
	}
	ss.input = input
	c.sessions[ss.id] = ss

	c.Log(fmt.Sprintf("acquire - new session is %s", ss.id))
	return ss.id, nil
}

func (c *Core) newSession() string {
	c.latestSessionID++
	return strconv.Itoa(c.latestSessionID)
}

func (c *Core) Release(id string) error {
	c.sessionsMutex.Lock()
	defer c.sessionsMutex.Unlock()
	return c.release(id)
}

func (c *Core) release(id string) error {
	c.Log("inner release - session " + id)
	acquired := c.sessions[id]
	if acquired == nil {
		c.Log("inner release - session not found")
		return ErrSessionNotFound
	}
	delete(c.sessions, id)

	atomic.StoreInt32(&acquired.closed, 1)
	acquired.input.Close()
	close(acquired.done)
	return nil
}

// Stream hands out the message channel of an open session. The messages
// channel is never closed; done is closed on Release and ends consumers.
func (c *Core) Stream(id string) (messages <-chan []byte, done <-chan struct{}, err error) {
	c.sessionsMutex.Lock()
	defer c.sessionsMutex.Unlock()

	acquired := c.sessions[id]
	if acquired == nil {
		return nil, nil, ErrSessionNotFound
	}
	return acquired.stream, acquired.done, nil
}

// Close releases every open session and the observer.
func (c *Core) Close() {
	c.sessionsMutex.Lock()
	defer c.sessionsMutex.Unlock()

	for id := range c.sessions {
		if err := c.release(id); err != nil {
			c.Log("close - release: " + err.Error())
		}
	}
	if c.observer != nil {
		c.observer.Close()
		c.observer = nil
	}
}
