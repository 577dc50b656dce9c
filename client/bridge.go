package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/NetKeyer/NetKeyer/core"
	"github.com/gorilla/websocket"
)

// bridge talks to a running netkeyerd over its localhost HTTP API.
type bridge struct {
	url     string
	Version string
}

func (b *bridge) post(
	ctx context.Context,
	url string,
	body io.Reader,
	decode func(r io.Reader) error,
) error {
	req, err := http.NewRequest("POST", b.url+url, body)
	if err != nil {
		return err
	}
	req = req.WithContext(ctx)

	r, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		err := r.Body.Close()
		if err != nil {
			// ??
			fmt.Println(err)
		}
	}()
	if r.StatusCode != http.StatusOK {
		return fmt.Errorf("wrong status code %d", r.StatusCode)
	}

	return decode(r.Body)
}

func newBridge(url string) (*bridge, error) {
	b := &bridge{url: url}

	var version struct {
		Version string `json:"version"`
	}
	err := b.post(context.Background(), "/", nil, func(d io.Reader) error {
		return json.NewDecoder(d).Decode(&version)
	})

	if err != nil {
		return nil, err
	}

	if strings.Split(version.Version, ".")[0] != "1" {
		return nil, fmt.Errorf("incompatible version of bridge %s", version.Version)
	}
	b.Version = version.Version
	return b, nil
}

func (b *bridge) Enumerate() ([]core.EnumerateEntry, error) {
	var entries []core.EnumerateEntry
	err := b.post(context.Background(), "/enumerate", nil, func(d io.Reader) error {
		return json.NewDecoder(d).Decode(&entries)
	})

	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (b *bridge) Listen(ctx context.Context, entries []core.EnumerateEntry) ([]core.EnumerateEntry, error) {
	var bufEntries bytes.Buffer
	err := json.NewEncoder(&bufEntries).Encode(entries)
	if err != nil {
		return nil, err
	}

	var resEntries []core.EnumerateEntry

	// context cancels request with err as expected
	err = b.post(ctx, "/listen", &bufEntries, func(d io.Reader) error {
		return json.NewDecoder(d).Decode(&resEntries)
	})

	if err != nil {
		return nil, err
	}
	return resEntries, nil
}

func (b *bridge) Acquire(index int, prev string) (string, error) {
	if prev == "" {
		prev = "null"
	}
	url := fmt.Sprintf("/acquire/%d/%s", index, prev)

	var session struct {
		Session string `json:"session"`
	}

	err := b.post(context.Background(), url, nil, func(d io.Reader) error {
		return json.NewDecoder(d).Decode(&session)
	})
	if err != nil {
		return "", err
	}
	return session.Session, nil
}

func (b *bridge) Release(session string) error {
	url := fmt.Sprintf("/release/%s", session)
	return b.post(context.Background(), url, nil, func(d io.Reader) error {
		return nil // just ignore input
	})
}

// Stream dials the per-session websocket and forwards binary frames.
// The returned channel is closed when the session is released, the
// context is canceled or the connection drops.
func (b *bridge) Stream(ctx context.Context, session string) (<-chan []byte, error) {
	wsURL := strings.Replace(b.url, "http", "ws", 1) + "/stream/" + session

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	messages := make(chan []byte)
	go func() {
		defer close(messages)
		defer func() {
			_ = conn.Close()
		}()
		go func() {
			<-ctx.Done()
			_ = conn.Close()
		}()
		for {
			t, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if t != websocket.BinaryMessage {
				continue
			}
			select {
			case messages <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return messages, nil
}

func (b *bridge) Close() {
	// nothing held open between calls
}
