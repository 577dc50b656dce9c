package core

import "github.com/NetKeyer/NetKeyer/memorywriter"

// Session is an open, live binding to one port. The native handle is
// bound to exactly one (port, backend) pair at creation and is immutable
// afterwards. The port descriptor stays owned by the observer that
// enumerated it and must outlive the session.
type Session struct {
	input Input
	api   API
	log   *memorywriter.MemoryWriter
}

// API returns the backend this session was opened against.
func (s *Session) API() API {
	return s.api
}

// Close releases the native input. It is a no-op on a nil or already
// closed session. Close does not wait for an in-flight delivery on the
// capture thread to drain; a final message may race the close and the
// receive callback must tolerate that.
func (s *Session) Close() {
	if s == nil || s.input == nil {
		return
	}
	if err := s.input.Close(); err != nil {
		s.log.Log("session - input close: " + err.Error())
	}
	s.input = nil
}
