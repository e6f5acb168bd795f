// apexfly is a minimal command-line flight runner: it connects to the drone
// over Wi-Fi, flies one named built-in manoeuvre under the safety
// supervisor, and exits non-zero if a safe landing could not be confirmed.

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

package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/apexlink/apex"
)

func main() {
	var (
		addr = flag.String("addr", apex.DefaultDroneAddr, "drone control address")
		seq  = flag.String("seq", "loop",
			"manoeuvre to fly: "+strings.Join(apex.BuiltinSequenceNames(), ", "))
		telemetry = flag.Bool("telemetry", true, "print telemetry while flying")
		list      = flag.Bool("list", false, "list manoeuvres and exit")
	)
	flag.Parse()

	if *list {
		for _, n := range apex.BuiltinSequenceNames() {
			fmt.Println(n)
		}
		return
	}

	session, err := apex.DialWifi(*addr, apex.DefaultControlPort)
	if err != nil {
		log.Fatalf("Could not reach drone at %s: %v", *addr, err)
	}

	drone := new(apex.Drone)
	if err := drone.Connect(session, apex.Wifi); err != nil {
		log.Fatalf("Connect failed: %v", err)
	}
	drone.SetTelemetryLogging(*telemetry)
	drone.OnSequenceState = func(s apex.SequenceState, step int) {
		if s == apex.SeqRunning {
			log.Printf("Sequence: %v (step %d)", s, step)
		} else {
			log.Printf("Sequence: %v", s)
		}
	}

	// Ctrl-C lands the drone before the process exits.
	supDone := drone.Supervisor().InstallSignalHandler()

	done, err := drone.StartSequenceByName(*seq)
	if err != nil {
		drone.RequestShutdown()
		log.Fatalf("Could not start %q: %v", *seq, err)
	}

	select {
	case ok := <-done:
		if !ok {
			log.Println("Sequence aborted")
		}
	case <-supDone:
		// a signal or link loss already drove the landing
	}

	err = drone.RequestShutdown()
	if tm := drone.Telemetry(); tm.Valid {
		log.Printf("Final altitude %.1fcm, battery %d%%", tm.AltitudeCm, tm.Battery)
	}
	if errors.Is(err, apex.ErrLandUnconfirmed) {
		log.Println("WARNING: landing unconfirmed")
		os.Exit(1)
	}
	if err != nil {
		log.Printf("Shutdown: %v", err)
		os.Exit(1)
	}
	// give the vehicle a moment to spin down before we drop the link state
	time.Sleep(500 * time.Millisecond)
}
