// command.go

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
	"time"

	"github.com/apexlink/apex/internal/syncutil"
)

// commandState is the single shared "current desired command". The producer
// (manual caller or sequence engine) replaces the frame atomically; the
// keep-alive transmitter reads it on every tick. The version counter is
// monotonic and bumps on every replacement, so a reader can tell whether the
// command changed underneath it.
type commandState struct {
	mu      syncutil.RWMutex
	frame   CommandFrame
	version uint64
}

// set atomically replaces the current command with a clamped copy of f.
// No reader can ever observe a torn mix of old and new fields.
func (cs *commandState) set(f CommandFrame) uint64 {
	f = f.Clamp()
	cs.mu.Lock()
	cs.frame = f
	cs.version++
	v := cs.version
	cs.mu.Unlock()
	return v
}

// get returns the current command and its version.
func (cs *commandState) get() (CommandFrame, uint64) {
	cs.mu.RLock()
	f, v := cs.frame, cs.version
	cs.mu.RUnlock()
	return f, v
}

// defaultMagnitude is the stick deflection used by the macro commands and
// by sequence steps with no override.
const defaultMagnitude = 70

// burstPeriod spaces the frames of a takeoff/land/calibrate burst.
const burstPeriod = 100 * time.Millisecond

func clampMagnitude(pct int) int8 {
	if pct <= 0 {
		return defaultMagnitude
	}
	return clampAxis(pct)
}

// SetManualCommand replaces the current command from a manual producer
// (keyboard, menu, GUI). It returns ErrSequenceActive while the sequence
// engine owns the command state.
func (d *Drone) SetManualCommand(f CommandFrame) error {
	if d.sequenceActive() {
		return ErrSequenceActive
	}
	f.Transport = d.transport
	d.cmd.set(f)
	return nil
}

// *** The following are 'macro' commands which are here purely
// *** to make the drone easier to use from keyboard/menu handlers.

// Hover zeroes the sticks - useful as a panic action!
func (d *Drone) Hover() error {
	return d.SetManualCommand(CommandFrame{})
}

// Forward starts the drone moving forward at a percentage of full deflection.
// Zero or negative selects the default magnitude.
func (d *Drone) Forward(pct int) error {
	return d.SetManualCommand(CommandFrame{Pitch: clampMagnitude(pct)})
}

// Backward starts the drone moving backward.
func (d *Drone) Backward(pct int) error {
	return d.SetManualCommand(CommandFrame{Pitch: -clampMagnitude(pct)})
}

// Ascend starts the drone climbing.
func (d *Drone) Ascend(pct int) error {
	return d.SetManualCommand(CommandFrame{Throttle: clampMagnitude(pct)})
}

// Descend starts the drone descending.
func (d *Drone) Descend(pct int) error {
	return d.SetManualCommand(CommandFrame{Throttle: -clampMagnitude(pct)})
}

// StrafeLeft starts sideways movement to the left.
func (d *Drone) StrafeLeft(pct int) error {
	return d.SetManualCommand(CommandFrame{Roll: -clampMagnitude(pct)})
}

// StrafeRight starts sideways movement to the right.
func (d *Drone) StrafeRight(pct int) error {
	return d.SetManualCommand(CommandFrame{Roll: clampMagnitude(pct)})
}

// YawLeft starts anticlockwise rotation.
func (d *Drone) YawLeft(pct int) error {
	return d.SetManualCommand(CommandFrame{Yaw: -clampMagnitude(pct)})
}

// YawRight starts clockwise rotation.
func (d *Drone) YawRight(pct int) error {
	return d.SetManualCommand(CommandFrame{Yaw: clampMagnitude(pct)})
}

// TakeOff sends a takeoff burst: the flag is held for a short window so a
// lost packet or two doesn't matter, then the sticks return to hover.
func (d *Drone) TakeOff() error {
	return d.flagBurst(FlagTakeOff)
}

// Land sends a land burst, analogous to TakeOff.
func (d *Drone) Land() error {
	return d.flagBurst(FlagLand)
}

// Calibrate requests a gyro calibration. Only sensible on the ground.
func (d *Drone) Calibrate() error {
	return d.flagBurst(FlagCalibrate)
}

// flagBurst holds a flagged frame for the burst window, then restores hover
// unless the caller has set something newer in the meantime.
func (d *Drone) flagBurst(fl Flags) error {
	if err := d.SetManualCommand(CommandFrame{Flags: fl}); err != nil {
		return err
	}
	_, v := d.cmd.get()
	time.AfterFunc(d.takeoffBurst(), func() {
		d.cmd.mu.Lock()
		if d.cmd.version == v { // nothing newer - drop back to hover
			d.cmd.frame = CommandFrame{Transport: d.transport}
			d.cmd.version++
		}
		d.cmd.mu.Unlock()
	})
	return nil
}

// EmergencyStop aborts any running sequence and spams alternating hover and
// land frames directly at the session for a short window, overriding
// whatever else is in flight. It blocks until the window has elapsed.
func (d *Drone) EmergencyStop() {
	d.abortSequence()
	land := CommandFrame{Flags: FlagLand, Transport: d.transport}
	hover := CommandFrame{Transport: d.transport}
	d.cmd.set(land)
	for i := 0; i < 10; i++ {
		d.session.Send(hover.Encode())
		d.session.Send(land.Encode())
		time.Sleep(burstPeriod)
	}
	d.cmd.set(hover)
}
