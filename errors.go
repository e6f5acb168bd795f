// errors.go

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
	"errors"
	"fmt"
)

// Frame decode errors. These are always recoverable: the telemetry decoder
// discards the offending buffer and keeps the previous snapshot.
var (
	// ErrTooShort is returned when a received buffer is below the minimum
	// notification length for its transport.
	ErrTooShort = errors.New("frame too short")
	// ErrBadFormat is returned when a structurally required marker is absent,
	// eg. the NOTIFY envelope on the Wi-Fi link.
	ErrBadFormat = errors.New("frame format marker missing")
)

// ErrLinkLost is raised after the keep-alive transmitter exhausts its retry
// threshold. Unlike frame errors it is fatal to the flight: it always routes
// through the SafetySupervisor, never past it.
var ErrLinkLost = errors.New("link lost")

// ErrClosed is returned when sending on a session that has been closed.
var ErrClosed = errors.New("session closed")

// ErrSequenceActive is returned when manual commands are issued while the
// sequence engine owns the command state.
var ErrSequenceActive = errors.New("sequence in progress")

// ErrLandUnconfirmed is returned by the SafetySupervisor when it could not
// confirm that at least one land-flagged frame was passed to the session
// before forced termination. Callers should treat this as critical.
var ErrLandUnconfirmed = errors.New("could not confirm land frame was transmitted")

// SendError wraps a transport write failure. A single SendError is
// recoverable; the keep-alive transmitter retries on its next tick and only
// escalates to ErrLinkLost after consecutive failures.
type SendError struct {
	Err error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send failed: %v", e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// ConnError wraps a session establishment failure. No automatic retry is
// attempted inside this package; connection retry policy belongs to the
// caller.
type ConnError struct {
	Endpoint string
	Err      error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("connect to %s failed: %v", e.Endpoint, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }
