// drone.go

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
	"log"
	"net"
	"sync/atomic"
	"time"

	"github.com/apexlink/apex/internal/syncutil"
)

// Default sequence-engine timings. All three can be overridden per Drone.
const (
	defaultTakeoffBurst   = 500 * time.Millisecond
	defaultLandBurst      = 500 * time.Millisecond
	defaultStabilizePause = 500 * time.Millisecond
)

// Drone holds the current state of a connection to an APEX drone: the
// session, the shared command state read by the keep-alive transmitter, the
// latest telemetry snapshot, and the sequence engine when one is running.
type Drone struct {
	// Tunables; set before Connect, zero selects the default.
	KeepAliveInterval time.Duration
	TakeoffBurst      time.Duration
	LandBurst         time.Duration
	StabilizePause    time.Duration

	// OnSequenceState, if non-nil, is called on every sequence engine
	// state transition. The callback must not block.
	OnSequenceState func(state SequenceState, step int)

	session   Session
	transport Transport
	cmd       commandState
	keepalive *keepAlive
	sup       *SafetySupervisor
	closedC   chan struct{}
	linkLost  atomic.Bool

	tmMu        syncutil.RWMutex
	tm          TelemetrySnapshot
	tmStreaming bool

	seqMu  syncutil.Mutex
	engine *seqEngine

	videoConn  *net.UDPConn
	videoChan  chan []byte
	videoStopC chan struct{}
}

// Connect attaches the Drone to an established Session and starts the
// telemetry listener and the keep-alive transmitter. The command state
// starts at hover.
func (d *Drone) Connect(s Session, tr Transport) error {
	if d.session != nil {
		return errors.New("drone already connected")
	}
	d.session = s
	d.transport = tr
	d.closedC = make(chan struct{})
	d.cmd.set(CommandFrame{Transport: tr})
	d.sup = newSupervisor(d)
	d.keepalive = newKeepAlive(s, &d.cmd, d.keepAlivePeriod(), d.onLinkLost)
	go d.telemetryListener()
	d.keepalive.start()
	return nil
}

// ConnectWifiDefault dials the drone's default Wi-Fi control endpoint and
// attaches to it.
func (d *Drone) ConnectWifiDefault() error {
	s, err := DialWifiDefault()
	if err != nil {
		return err
	}
	return d.Connect(s, Wifi)
}

// Connected returns true while the session is attached and not shut down.
func (d *Drone) Connected() bool {
	if d.session == nil {
		return false
	}
	select {
	case <-d.closedC:
		return false
	default:
		return true
	}
}

// Supervisor returns the drone's safety supervisor, for installing the
// process signal handler.
func (d *Drone) Supervisor() *SafetySupervisor {
	return d.sup
}

// RequestShutdown drives the full safe-landing shutdown path and blocks
// until the session is closed. The returned error is ErrLandUnconfirmed if
// no land frame could be confirmed sent - callers should treat that as a
// critical condition.
func (d *Drone) RequestShutdown() error {
	return d.sup.Shutdown()
}

// LinkLost reports whether the keep-alive transmitter has escalated a
// link-lost event.
func (d *Drone) LinkLost() bool {
	return d.linkLost.Load()
}

func (d *Drone) onLinkLost() {
	if d.linkLost.Swap(true) {
		return
	}
	log.Println("Landing - link lost")
	go d.sup.Shutdown()
}

func (d *Drone) keepAlivePeriod() time.Duration {
	if d.KeepAliveInterval > 0 {
		return d.KeepAliveInterval
	}
	return KeepAlivePeriod
}

func (d *Drone) takeoffBurst() time.Duration {
	if d.TakeoffBurst > 0 {
		return d.TakeoffBurst
	}
	return defaultTakeoffBurst
}

func (d *Drone) landBurst() time.Duration {
	if d.LandBurst > 0 {
		return d.LandBurst
	}
	return defaultLandBurst
}

func (d *Drone) stabilizePause() time.Duration {
	if d.StabilizePause > 0 {
		return d.StabilizePause
	}
	return defaultStabilizePause
}

// StartSequence hands command-state ownership to the sequence engine and
// starts the given manoeuvre. The caller may optionally listen on the
// 'done' channel: true means the sequence completed, false that it was
// aborted. Manual commands are refused until then.
func (d *Drone) StartSequence(seq Sequence) (done <-chan bool, err error) {
	d.seqMu.Lock()
	defer d.seqMu.Unlock()
	if d.engine != nil {
		if st, _ := d.engine.currentState(); st != SeqDone {
			return nil, ErrSequenceActive
		}
	}
	e := newSeqEngine(&d.cmd, d.transport,
		d.takeoffBurst(), d.landBurst(), d.stabilizePause(), d.OnSequenceState)
	d.engine = e
	go func() {
		e.run(seq)
		d.seqMu.Lock()
		if d.engine == e {
			d.engine = nil // hand ownership back to the manual producer
		}
		d.seqMu.Unlock()
	}()
	return e.doneC, nil
}

// StartSequenceByName starts a built-in manoeuvre; see BuiltinSequence.
func (d *Drone) StartSequenceByName(name string) (<-chan bool, error) {
	seq, ok := BuiltinSequence(name)
	if !ok {
		return nil, errors.New("unknown sequence " + name)
	}
	return d.StartSequence(seq)
}

// SequenceState returns the engine's current state and step index, or
// SeqIdle when no sequence is running.
func (d *Drone) SequenceState() (SequenceState, int) {
	d.seqMu.Lock()
	e := d.engine
	d.seqMu.Unlock()
	if e == nil {
		return SeqIdle, 0
	}
	return e.currentState()
}

// AbortSequence asks a running sequence to skip straight to its landing
// burst. No-op when nothing is running.
func (d *Drone) AbortSequence() {
	d.abortSequence()
}

func (d *Drone) abortSequence() *seqEngine {
	d.seqMu.Lock()
	e := d.engine
	d.seqMu.Unlock()
	if e != nil {
		e.abort()
	}
	return e
}

// abortSequenceAndWait aborts any running sequence and waits (bounded) for
// its landing burst to finish, so the caller's own frames are not fought
// over by the engine.
func (d *Drone) abortSequenceAndWait(timeout time.Duration) {
	e := d.abortSequence()
	if e == nil {
		return
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-e.stoppedC:
	case <-t.C:
		log.Println("Timed out waiting for aborted sequence to land")
	}
}

func (d *Drone) sequenceActive() bool {
	d.seqMu.Lock()
	defer d.seqMu.Unlock()
	return d.engine != nil
}
