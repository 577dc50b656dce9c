package api

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"

	"github.com/NetKeyer/NetKeyer/core"
	"github.com/NetKeyer/NetKeyer/memorywriter"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// This package serves the actual bridge API. The logic of enumeration
// and sessions is in the core package; here we only convert request
// data and format the replies. Incoming MIDI is pushed over a
// per-session websocket as binary frames of raw message bytes.

type api struct {
	core     *core.Core
	version  string
	logger   *memorywriter.MemoryWriter
	upgrader websocket.Upgrader
}

func ServeAPI(r *mux.Router, c *core.Core, v string, l *memorywriter.MemoryWriter) error {
	corsv, err := corsValidator()
	if err != nil {
		return err
	}
	api := &api{
		core:    c,
		version: v,
		logger:  l,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return corsv(r.Header.Get("Origin"))
			},
		},
	}
	sr := r.Methods("POST").Subrouter()
	sr.HandleFunc("/", api.Info)
	sr.HandleFunc("/configure", api.Info)
	sr.HandleFunc("/listen", api.Listen)
	sr.HandleFunc("/enumerate", api.Enumerate)
	sr.HandleFunc("/acquire/{index}", api.Acquire)
	sr.HandleFunc("/acquire/{index}/{session}", api.Acquire)
	sr.HandleFunc("/release/{session}", api.Release)
	r.Methods("GET").Path("/stream/{session}").HandlerFunc(api.Stream)
	sr.Use(CORS(corsv))
	return nil
}

func (a *api) Info(w http.ResponseWriter, r *http.Request) {
	a.logger.Log("api - version " + a.version)

	type info struct {
		Version string `json:"version"`
	}
	err := json.NewEncoder(w).Encode(info{
		Version: a.version,
	})
	a.checkJSONError(w, err)
}

func (a *api) Enumerate(w http.ResponseWriter, r *http.Request) {
	a.logger.Log("api - enumerate start")
	e, err := a.core.Enumerate()
	if err != nil {
		a.respondError(w, err)
		return
	}
	a.logger.Log("api - enumerate encoding and exiting")
	err = json.NewEncoder(w).Encode(e)
	a.checkJSONError(w, err)
}

func (a *api) Listen(w http.ResponseWriter, r *http.Request) {
	a.logger.Log("api - listen starting")
	var entries []core.EnumerateEntry

	err := json.NewDecoder(r.Body).Decode(&entries)
	defer func() {
		errClose := r.Body.Close()
		if errClose != nil {
			// just log
			a.logger.Log("api - error on request close: " + errClose.Error())
		}
	}()

	if err != nil {
		a.respondError(w, err)
		return
	}

	res, err := a.core.Listen(r.Context(), entries)
	if err != nil {
		a.respondError(w, err)
		return
	}

	err = json.NewEncoder(w).Encode(res)
	a.checkJSONError(w, err)
}

func (a *api) Acquire(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		a.respondError(w, err)
		return
	}
	prev := vars["session"]
	if prev == "null" {
		prev = ""
	}

	res, err := a.core.Acquire(index, prev)
	if err != nil {
		a.respondError(w, err)
		return
	}

	type result struct {
		Session string `json:"session"`
	}
	err = json.NewEncoder(w).Encode(result{
		Session: res,
	})
	a.checkJSONError(w, err)
}

func (a *api) Release(w http.ResponseWriter, r *http.Request) {
	a.logger.Log("api - release start")

	vars := mux.Vars(r)
	session := vars["session"]

	err := a.core.Release(session)
	if err != nil {
		a.respondError(w, err)
		return
	}

	a.logger.Log("api - release done, encoding")
	err = json.NewEncoder(w).Encode(vars)
	a.checkJSONError(w, err)
}

// Stream upgrades to a websocket and forwards each accepted MIDI
// message of the session as one binary frame, until the session is
// released or the client goes away. Messages already filtered out at
// the native source never show up here.
func (a *api) Stream(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	session := vars["session"]

	messages, done, err := a.core.Stream(session)
	if err != nil {
		a.respondError(w, err)
		return
	}

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Log("api - stream upgrade: " + err.Error())
		return
	}
	defer func() {
		if errClose := conn.Close(); errClose != nil {
			a.logger.Log("api - stream close: " + errClose.Error())
		}
	}()

	a.logger.Log("api - streaming session " + session)

	// the read side only notices the client hanging up
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, errRead := conn.ReadMessage(); errRead != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg := <-messages:
			if errWrite := conn.WriteMessage(websocket.BinaryMessage, msg); errWrite != nil {
				a.logger.Log("api - stream write: " + errWrite.Error())
				return
			}
		case <-done:
			a.logger.Log("api - stream session released")
			closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session released")
			if errWrite := conn.WriteMessage(websocket.CloseMessage, closeMsg); errWrite != nil {
				a.logger.Log("api - stream close write: " + errWrite.Error())
			}
			return
		case <-clientGone:
			a.logger.Log("api - stream client gone")
			return
		}
	}
}

func corsValidator() (OriginValidator, error) {
	// Non-browser host applications send no Origin at all.
	// Browsers get localhost only; the bridge binds to loopback anyway.
	lregex, err := regexp.Compile(`^https?://(localhost|127\.0\.0\.1)(:[[:digit:]]+)?$`)
	if err != nil {
		return nil, err
	}
	v := func(origin string) bool {
		if origin == "" {
			return true
		}
		return lregex.MatchString(origin)
	}

	return v, nil
}

func (a *api) checkJSONError(w http.ResponseWriter, err error) {
	if err != nil {
		a.respondError(w, err)
	}
}

func (a *api) respondError(w http.ResponseWriter, err error) {
	type jsonError struct {
		Error string `json:"error"`
	}
	a.logger.Log("api - returning error: " + err.Error())
	w.WriteHeader(http.StatusBadRequest)

	// if even the encoder of the error errors, just log the error
	err = json.NewEncoder(w).Encode(jsonError{
		Error: err.Error(),
	})
	if err != nil {
		a.logger.Log("api - error while writing error: " + err.Error())
	}
}
