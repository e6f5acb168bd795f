// session.go

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

// Session abstracts a connected command link to the drone. Implementations
// own the underlying socket or BLE connection and guarantee its release on
// Close. The transport provides whole-notification framing: each buffer
// delivered on Notifications is one complete inbound notification, never a
// fragment.
type Session interface {
	// Send transmits one fully-encoded command packet. Failures are
	// returned as *SendError; a single failure is not fatal.
	Send(pkt []byte) error

	// Notifications delivers inbound telemetry buffers. The channel is
	// closed when the session closes. Buffers are dropped, not queued,
	// when the consumer lags.
	Notifications() <-chan []byte

	// Close releases the underlying link. It is idempotent.
	Close() error
}

// notifyBuffer is the channel depth for inbound notifications.
const notifyBuffer = 16
