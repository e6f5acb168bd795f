// supervisor.go

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
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// landBurstCount is how many direct land frames the supervisor fires
// during shutdown, over and above whatever the keep-alive loop resends.
const landBurstCount = 5

// abortWait bounds how long shutdown waits for an aborted sequence to
// finish its own landing burst before taking over.
const abortWait = 5 * time.Second

// SafetySupervisor owns the one shutdown path for a Drone. However the
// process exits - normal completion, a signal, or a lost link - the
// supervisor drives the same ordered teardown, and a land-flagged frame
// is handed to the session before the session is closed.
type SafetySupervisor struct {
	drone    *Drone
	once     sync.Once
	err      error
	landSent bool
	doneC    chan struct{}
}

func newSupervisor(d *Drone) *SafetySupervisor {
	return &SafetySupervisor{drone: d, doneC: make(chan struct{})}
}

// Shutdown runs the safe-landing teardown exactly once; later calls block
// until the first finishes and return its result. ErrLandUnconfirmed means
// no land frame was accepted by the session - the vehicle may still be
// airborne.
func (sup *SafetySupervisor) Shutdown() error {
	sup.once.Do(func() {
		defer close(sup.doneC)
		sup.err = sup.teardown()
	})
	<-sup.doneC
	return sup.err
}

// LandConfirmed reports whether at least one land-flagged frame was
// accepted by the session during shutdown.
func (sup *SafetySupervisor) LandConfirmed() bool {
	<-sup.doneC
	return sup.landSent
}

func (sup *SafetySupervisor) teardown() error {
	d := sup.drone

	// Any running sequence lands itself; give it the chance before we
	// start writing frames of our own.
	d.abortSequenceAndWait(abortWait)

	// Level out, and let the keep-alive loop carry the hover for one
	// interval so the vehicle is stable before the land order.
	d.cmd.set(CommandFrame{Transport: d.transport})
	time.Sleep(d.keepAlivePeriod())

	// The land flag goes into the shared command state (so keep-alive
	// resends it) and is also fired directly, ahead of stopping anything.
	land := CommandFrame{Flags: FlagLand, Transport: d.transport}
	d.cmd.set(land)
	pkt := land.Encode()
	for i := 0; i < landBurstCount; i++ {
		if err := d.session.Send(pkt); err == nil {
			sup.landSent = true
		}
		time.Sleep(d.keepAlivePeriod())
	}
	if !sup.landSent {
		log.Println("Shutdown: could not confirm a land frame was sent")
	}

	d.keepalive.stop()
	d.VideoDisconnect()
	close(d.closedC)
	if cerr := d.session.Close(); cerr != nil {
		log.Printf("Shutdown: session close: %v", cerr)
	}
	if !sup.landSent {
		return ErrLandUnconfirmed
	}
	return nil
}

// InstallSignalHandler arranges for SIGINT or SIGTERM to trigger the
// supervisor's shutdown. The returned channel is closed once teardown has
// finished, so main can wait on it before exiting.
func (sup *SafetySupervisor) InstallSignalHandler() <-chan struct{} {
	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sigC
		log.Printf("Caught %v - landing", s)
		sup.Shutdown()
	}()
	return sup.doneC
}
