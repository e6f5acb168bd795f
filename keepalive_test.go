// keepalive_test.go

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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startManualKeepAlive runs the transmit loop against an injected tick
// channel, so tests control time exactly.
func startManualKeepAlive(k *keepAlive) chan time.Time {
	ticks := make(chan time.Time) // unbuffered: each send is a full cycle
	go k.run(ticks)
	return ticks
}

func TestKeepAliveSendsOncePerTick(t *testing.T) {
	lb := NewLoopbackSession()
	cs := &commandState{}
	cs.set(CommandFrame{Transport: ShortRange})

	k := newKeepAlive(lb, cs, KeepAlivePeriod, nil)
	ticks := startManualKeepAlive(k)
	const n = 7
	for i := 0; i < n; i++ {
		ticks <- time.Now()
	}
	k.stop()

	sent := lb.Sent()
	require.Len(t, sent, n)
	hover := CommandFrame{Transport: ShortRange}.Encode()
	for _, pkt := range sent {
		assert.Equal(t, hover, pkt)
	}
}

func TestKeepAlivePicksUpNewCommand(t *testing.T) {
	lb := NewLoopbackSession()
	cs := &commandState{}
	cs.set(CommandFrame{Transport: ShortRange})

	k := newKeepAlive(lb, cs, KeepAlivePeriod, nil)
	ticks := startManualKeepAlive(k)
	ticks <- time.Now()
	cs.set(CommandFrame{Pitch: 70, Transport: ShortRange})
	ticks <- time.Now()
	k.stop()

	sent := lb.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, CommandFrame{Transport: ShortRange}.Encode(), sent[0])
	assert.Equal(t, CommandFrame{Pitch: 70, Transport: ShortRange}.Encode(), sent[1])
}

func TestKeepAliveEscalatesOncePerFailureStreak(t *testing.T) {
	lb := NewLoopbackSession()
	cs := &commandState{}
	cs.set(CommandFrame{Transport: ShortRange})

	var lost atomic.Int32
	k := newKeepAlive(lb, cs, KeepAlivePeriod, func() { lost.Add(1) })
	ticks := startManualKeepAlive(k)

	// a streak longer than the limit still escalates exactly once
	lb.FailSends(sendRetryLimit + 2)
	for i := 0; i < sendRetryLimit+2; i++ {
		ticks <- time.Now()
	}

	// a success resets the streak; handing over this tick also proves the
	// previous iteration (and any escalation) has completed
	ticks <- time.Now()
	assert.Equal(t, int32(1), lost.Load())

	// the next streak escalates again
	lb.FailSends(sendRetryLimit)
	for i := 0; i < sendRetryLimit; i++ {
		ticks <- time.Now()
	}
	k.stop()
	assert.Equal(t, int32(2), lost.Load())
}

func TestKeepAliveBelowLimitNeverEscalates(t *testing.T) {
	lb := NewLoopbackSession()
	cs := &commandState{}
	cs.set(CommandFrame{Transport: ShortRange})

	var lost atomic.Int32
	k := newKeepAlive(lb, cs, KeepAlivePeriod, func() { lost.Add(1) })
	ticks := startManualKeepAlive(k)
	for i := 0; i < 5; i++ {
		lb.FailSends(sendRetryLimit - 1)
		for j := 0; j < sendRetryLimit-1; j++ {
			ticks <- time.Now()
		}
		ticks <- time.Now() // success, streak resets
	}
	k.stop()
	assert.Equal(t, int32(0), lost.Load())
}
