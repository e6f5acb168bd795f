// keepalive.go

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
	"log"
	"sync"
	"time"
)

// KeepAlivePeriod is the default resend cadence. It must stay well inside
// the vehicle's failsafe timeout (roughly 500 ms of silence).
const KeepAlivePeriod = 100 * time.Millisecond

// sendRetryLimit is the number of consecutive send failures tolerated before
// the transmitter escalates a link-lost event.
const sendRetryLimit = 3

// keepAlive resends the current command at a fixed rate so the drone never
// drops into its failsafe hover merely because no new command was issued.
// The tick source is a real ticker in production and an injected channel in
// tests; either way the loop is fixed-rate, not fixed-delay, so a slow send
// cannot accumulate drift.
type keepAlive struct {
	session    Session
	state      *commandState
	period     time.Duration
	onLinkLost func() // called exactly once per failure streak

	stopOnce sync.Once
	stopC    chan struct{}
	doneC    chan struct{}
}

func newKeepAlive(s Session, cs *commandState, period time.Duration, onLinkLost func()) *keepAlive {
	if period <= 0 {
		period = KeepAlivePeriod
	}
	return &keepAlive{
		session:    s,
		state:      cs,
		period:     period,
		onLinkLost: onLinkLost,
		stopC:      make(chan struct{}),
		doneC:      make(chan struct{}),
	}
}

// start launches the transmitter goroutine with a real ticker.
func (k *keepAlive) start() {
	ticker := time.NewTicker(k.period)
	go func() {
		defer ticker.Stop()
		k.run(ticker.C)
	}()
}

// run is the transmit loop. Each tick is independent: it reads the latest
// command snapshot, encodes it outside any lock, and sends with a bounded
// timeout, so a blocked send never stalls the producer.
func (k *keepAlive) run(ticks <-chan time.Time) {
	defer close(k.doneC)
	failures := 0
	for {
		select {
		case <-k.stopC:
			return
		case <-ticks:
			frame, _ := k.state.get()
			if err := k.session.Send(frame.Encode()); err != nil {
				failures++
				log.Printf("Keep-alive send failed (%d consecutive) - %v\n", failures, err)
				if failures == sendRetryLimit && k.onLinkLost != nil {
					k.onLinkLost()
				}
			} else {
				failures = 0
			}
		}
	}
}

// stop halts the transmitter and waits for the loop to exit. The safety
// supervisor is the only caller; it flushes the final land frame first.
func (k *keepAlive) stop() {
	k.stopOnce.Do(func() { close(k.stopC) })
	<-k.doneC
}
