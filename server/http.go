package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/NetKeyer/NetKeyer/core"
	"github.com/NetKeyer/NetKeyer/memorywriter"
	"github.com/NetKeyer/NetKeyer/server/api"
	"github.com/NetKeyer/NetKeyer/server/status"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// Server glues the bridge API and the status page to one localhost
// listener. Host applications (the keyer, a browser UI) talk to this
// port only.

const bridgeAddr = "127.0.0.1:21327"

type Server struct {
	https  *http.Server
	core   *core.Core
	writer io.Writer
}

func New(
	c *core.Core,
	stderrWriter io.Writer,
	shortWriter *memorywriter.MemoryWriter,
	longWriter *memorywriter.MemoryWriter,
	version string,
) (*Server, error) {
	longWriter.Log("server - starting")

	https := &http.Server{
		Addr: bridgeAddr,
	}

	allWriter := io.MultiWriter(stderrWriter, longWriter)
	s := &Server{
		https:  https,
		core:   c,
		writer: allWriter,
	}

	r := mux.NewRouter()
	statusRouter := r.PathPrefix("/status").Subrouter()
	redirectRouter := r.Methods("GET").Path("/").Subrouter()

	status.ServeStatus(statusRouter, c, version, shortWriter, longWriter)
	status.ServeStatusRedirect(redirectRouter)

	if err := api.ServeAPI(r, c, version, longWriter); err != nil {
		return nil, err
	}

	var h http.Handler = r
	// Log after the request is done, in the Apache format.
	h = handlers.LoggingHandler(allWriter, h)
	// Log when the request is received.
	h = s.logRequest(h)

	https.Handler = h

	longWriter.Log("server - created")
	return s, nil
}

func (s *Server) logRequest(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		text := fmt.Sprintf("%s %s\n", r.Method, r.URL)
		_, err := s.writer.Write([]byte(text))
		if err != nil {
			// give up, just print on stdout
			fmt.Println(err)
		}
		handler.ServeHTTP(w, r)
	})
}

func (s *Server) Run() error {
	return s.https.ListenAndServe()
}

func (s *Server) Close() error {
	return s.https.Close()
}
