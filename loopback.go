// loopback.go

// Copyright (C) 2026  The apexlink authors

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package apex

import (
	"github.com/apexlink/apex/internal/syncutil"
)

// LoopbackSession is an in-memory Session for tests and simulations. Sent
// packets are recorded for inspection and inbound notifications can be
// injected with Notify.
type LoopbackSession struct {
	mu       syncutil.Mutex
	sent     [][]byte
	failures int
	closed   bool
	notifC   chan []byte
}

// NewLoopbackSession creates an unconnected in-memory session.
func NewLoopbackSession() *LoopbackSession {
	return &LoopbackSession{notifC: make(chan []byte, notifyBuffer)}
}

// Send records the packet. If FailSends has armed failures, it returns a
// SendError instead.
func (s *LoopbackSession) Send(pkt []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &SendError{Err: ErrClosed}
	}
	if s.failures > 0 {
		s.failures--
		return &SendError{Err: ErrLinkLost}
	}
	cp := make([]byte, len(pkt))
	copy(cp, pkt)
	s.sent = append(s.sent, cp)
	return nil
}

// Notifications delivers buffers injected with Notify.
func (s *LoopbackSession) Notifications() <-chan []byte {
	return s.notifC
}

// Close marks the session closed and closes the notification channel.
// Safe to call more than once.
func (s *LoopbackSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.notifC)
	}
	return nil
}

// Notify injects one inbound notification, simulating the drone. Dropped if
// the session is closed or the consumer lags.
func (s *LoopbackSession) Notify(buf []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	select {
	case s.notifC <- cp:
	default:
	}
}

// FailSends arms the next n Send calls to fail.
func (s *LoopbackSession) FailSends(n int) {
	s.mu.Lock()
	s.failures = n
	s.mu.Unlock()
}

// Sent returns a copy of every packet sent so far.
func (s *LoopbackSession) Sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.sent))
	copy(out, s.sent)
	return out
}

// Closed reports whether Close has been called.
func (s *LoopbackSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
