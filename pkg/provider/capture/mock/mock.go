// Package mock provides test doubles for the capture package interfaces.
//
// Use Provider to verify that the caller starts sessions with the expected
// StreamConfig and to hand out scripted sessions. Use Session to feed
// controlled Event sequences and to simulate engine ends (silence timeouts,
// permission denials) by closing EventsCh with the desired EndErr.
//
// Example:
//
//	sess := mock.NewSession()
//	p := &mock.Provider{Sessions: []capture.SessionHandle{sess}}
//	handle, _ := p.StartStream(ctx, cfg)
package mock

import (
	"context"
	"sync"

	"github.com/voxtutor/voxtutor/pkg/provider/capture"
)

// StartStreamCall records a single invocation of Provider.StartStream.
type StartStreamCall struct {
	// Ctx is the context passed to StartStream.
	Ctx context.Context
	// Cfg is the StreamConfig passed to StartStream.
	Cfg capture.StreamConfig
}

// Provider is a mock implementation of capture.Provider.
type Provider struct {
	mu sync.Mutex

	// Sessions are handed out in order by successive StartStream calls. When
	// the slice is exhausted (or nil), StartStream returns a fresh default
	// Session.
	Sessions []capture.SessionHandle

	// StartStreamErrs are returned in order by successive StartStream calls;
	// a nil entry means that call succeeds. When exhausted, calls succeed.
	StartStreamErrs []error

	// StartStreamCalls records every call to StartStream.
	StartStreamCalls []StartStreamCall
}

// StartStream records the call and returns the next scripted session or error.
func (p *Provider) StartStream(ctx context.Context, cfg capture.StreamConfig) (capture.SessionHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.StartStreamCalls)
	p.StartStreamCalls = append(p.StartStreamCalls, StartStreamCall{Ctx: ctx, Cfg: cfg})
	if n < len(p.StartStreamErrs) && p.StartStreamErrs[n] != nil {
		return nil, p.StartStreamErrs[n]
	}
	if n < len(p.Sessions) {
		return p.Sessions[n], nil
	}
	return NewSession(), nil
}

// StartStreamCallCount returns the number of StartStream invocations so far.
func (p *Provider) StartStreamCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.StartStreamCalls)
}

// Calls returns a copy of the recorded StartStream invocations.
func (p *Provider) Calls() []StartStreamCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]StartStreamCall(nil), p.StartStreamCalls...)
}

// Ensure Provider implements capture.Provider at compile time.
var _ capture.Provider = (*Provider)(nil)

// Session is a mock implementation of capture.SessionHandle. Callers own
// EventsCh: send scripted events on it and close it (optionally after
// setting EndErr) to simulate the engine ending the session.
type Session struct {
	mu sync.Mutex

	// EventsCh is the channel returned by Events.
	EventsCh chan capture.Event

	// EndErr is returned by EndReason after EventsCh is closed.
	EndErr error

	// CloseCallCount is the number of times Close was called.
	CloseCallCount int

	closeOnce sync.Once
}

// NewSession returns a Session with a buffered EventsCh ready for scripting.
func NewSession() *Session {
	return &Session{EventsCh: make(chan capture.Event, 16)}
}

// Events returns EventsCh.
func (s *Session) Events() <-chan capture.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.EventsCh
}

// EndReason returns EndErr.
func (s *Session) EndReason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.EndErr
}

// End sets EndErr and closes EventsCh, simulating an engine-side session end.
// Safe to call once per session.
func (s *Session) End(err error) {
	s.mu.Lock()
	s.EndErr = err
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.EventsCh) })
}

// Closes returns the number of Close invocations so far.
func (s *Session) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CloseCallCount
}

// Close records the call and closes EventsCh.
func (s *Session) Close() error {
	s.mu.Lock()
	s.CloseCallCount++
	s.mu.Unlock()
	s.closeOnce.Do(func() { close(s.EventsCh) })
	return nil
}

// Ensure Session implements capture.SessionHandle at compile time.
var _ capture.SessionHandle = (*Session)(nil)
