// sequence.go

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
	"sync"
	"time"

	"github.com/apexlink/apex/internal/syncutil"
)

// StepAction is the primitive command kind of a sequence step.
type StepAction int

// Step actions. The Orbit actions combine forward pitch with yaw, which is
// how the vehicle flies an arc - it has no onboard path planner, only raw
// stick mixing.
const (
	StepHold StepAction = iota // stop/stabilise
	StepForward
	StepBackward
	StepAscend
	StepDescend
	StepStrafeLeft
	StepStrafeRight
	StepYawLeft
	StepYawRight
	StepOrbitRight
	StepOrbitLeft
)

// SequenceStep is one timed leg of an autonomous manoeuvre.
type SequenceStep struct {
	Action   StepAction
	Duration time.Duration
	// Magnitude overrides the stick deflection for this leg (1-100);
	// zero selects the default.
	Magnitude int8
}

// frame maps the step onto a stick command.
func (st SequenceStep) frame() CommandFrame {
	m := st.Magnitude
	if m == 0 {
		m = defaultMagnitude
	}
	m = clampAxis(int(m))
	switch st.Action {
	case StepForward:
		return CommandFrame{Pitch: m}
	case StepBackward:
		return CommandFrame{Pitch: -m}
	case StepAscend:
		return CommandFrame{Throttle: m}
	case StepDescend:
		return CommandFrame{Throttle: -m}
	case StepStrafeLeft:
		return CommandFrame{Roll: -m}
	case StepStrafeRight:
		return CommandFrame{Roll: m}
	case StepYawLeft:
		return CommandFrame{Yaw: -m}
	case StepYawRight:
		return CommandFrame{Yaw: m}
	case StepOrbitRight:
		return CommandFrame{Pitch: m, Yaw: m}
	case StepOrbitLeft:
		return CommandFrame{Pitch: m, Yaw: -m}
	default:
		return CommandFrame{} // hover
	}
}

// Sequence is a named, ordered list of timed steps realising an autonomous
// manoeuvre. The engine brackets every sequence with a takeoff burst and,
// unless ManualLand is set, a land burst.
type Sequence struct {
	Name  string
	Steps []SequenceStep
	// ManualLand holds the final hover instead of landing, handing
	// control back to the manual producer while still airborne.
	ManualLand bool
}

// SequenceState is the engine's finite-state-machine state.
type SequenceState int

// Engine states...
const (
	SeqIdle SequenceState = iota
	SeqRunning
	SeqStabilizing
	SeqLanding
	SeqDone
	SeqAborted
)

func (s SequenceState) String() string {
	switch s {
	case SeqIdle:
		return "Idle"
	case SeqRunning:
		return "Running"
	case SeqStabilizing:
		return "Stabilizing"
	case SeqLanding:
		return "Landing"
	case SeqDone:
		return "Done"
	case SeqAborted:
		return "Aborted"
	default:
		return "?"
	}
}

// seqEngine drives the command state through one Sequence. It is the only
// producer while it runs; the Drone suspends manual command ownership until
// Done. A new engine is built per sequence - they are re-entrant from Idle
// only, never restartable mid-flight.
type seqEngine struct {
	cmd       *commandState
	transport Transport

	takeoffBurst   time.Duration
	landBurst      time.Duration
	stabilizePause time.Duration

	notify func(state SequenceState, step int)

	abortOnce sync.Once
	abortC    chan struct{}
	doneC     chan bool
	stoppedC  chan struct{} // closed when run has fully finished

	mu    syncutil.RWMutex
	state SequenceState
	step  int
}

func newSeqEngine(cmd *commandState, tr Transport, takeoff, land, stabilize time.Duration,
	notify func(SequenceState, int)) *seqEngine {
	return &seqEngine{
		cmd:            cmd,
		transport:      tr,
		takeoffBurst:   takeoff,
		landBurst:      land,
		stabilizePause: stabilize,
		notify:         notify,
		abortC:         make(chan struct{}),
		doneC:          make(chan bool, 1), // buffered so completion never blocks
		stoppedC:       make(chan struct{}),
		state:          SeqIdle,
	}
}

// abort requests the engine skip whatever remains of the current step and
// proceed directly to the landing burst. Observable within one wait.
func (e *seqEngine) abort() {
	e.abortOnce.Do(func() { close(e.abortC) })
}

func (e *seqEngine) currentState() (SequenceState, int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state, e.step
}

func (e *seqEngine) setState(s SequenceState, step int) {
	e.mu.Lock()
	e.state = s
	e.step = step
	e.mu.Unlock()
	if e.notify != nil {
		e.notify(s, step)
	}
}

func (e *seqEngine) apply(f CommandFrame) {
	f.Transport = e.transport
	e.cmd.set(f)
}

// wait pauses for d or until the engine is aborted, whichever comes first.
// Returns false on abort.
func (e *seqEngine) wait(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-e.abortC:
		return false
	}
}

// run executes the sequence. An aborted mid-step wait is never resumed; the
// engine goes straight to the landing burst.
func (e *seqEngine) run(seq Sequence) {
	defer close(e.stoppedC)
	e.setState(SeqRunning, 0)
	e.apply(CommandFrame{Flags: FlagTakeOff})
	aborted := !e.wait(e.takeoffBurst)

	for i := 0; i < len(seq.Steps) && !aborted; i++ {
		if i > 0 {
			// a short stop between legs kills the momentum carried
			// over from the previous one
			e.setState(SeqStabilizing, i-1)
			e.apply(CommandFrame{})
			if !e.wait(e.stabilizePause) {
				aborted = true
				break
			}
			e.setState(SeqRunning, i)
		}
		e.apply(seq.Steps[i].frame())
		if !e.wait(seq.Steps[i].Duration) {
			aborted = true
		}
	}

	if aborted {
		e.setState(SeqAborted, -1)
	} else {
		e.setState(SeqLanding, -1)
	}
	if aborted || !seq.ManualLand {
		// the forced descent burst completes even under abort
		e.apply(CommandFrame{Flags: FlagLand})
		time.Sleep(e.landBurst)
	}
	e.apply(CommandFrame{}) // settle at hover; final state for manual-land
	e.setState(SeqDone, -1)
	e.doneC <- !aborted
}

// *** Built-in manoeuvres. These are data, not separate engines: every one
// *** is an ordered step list fed to the same state machine.

// LoopSequence is a vertical loop: out, up, back over the start point, down,
// and out again to regain forward attitude.
func LoopSequence() Sequence {
	return Sequence{
		Name: "loop",
		Steps: []SequenceStep{
			{Action: StepForward, Duration: 2500 * time.Millisecond},
			{Action: StepAscend, Duration: 2 * time.Second},
			{Action: StepBackward, Duration: 2500 * time.Millisecond},
			{Action: StepDescend, Duration: 1500 * time.Millisecond},
			{Action: StepForward, Duration: 2500 * time.Millisecond},
		},
	}
}

// RectangleSequence flies four forward legs separated by clockwise quarter
// turns. The turn duration approximates 90 degrees at the default yaw rate;
// with no closed-loop heading the corners are only as square as the gyro.
func RectangleSequence(leg, turn time.Duration) Sequence {
	var steps []SequenceStep
	for i := 0; i < 4; i++ {
		steps = append(steps,
			SequenceStep{Action: StepForward, Duration: leg},
			SequenceStep{Action: StepYawRight, Duration: turn},
		)
	}
	return Sequence{Name: "rectangle", Steps: steps}
}

// CircleSequence approximates an arc with many short orbit legs.
func CircleSequence(segments int, segment time.Duration) Sequence {
	if segments < 1 {
		segments = 1
	}
	steps := make([]SequenceStep, segments)
	for i := range steps {
		steps[i] = SequenceStep{Action: StepOrbitRight, Duration: segment}
	}
	return Sequence{Name: "circle", Steps: steps}
}

// StaircaseSequence alternates forward treads and climbing risers, each
// flight slightly more aggressive than the last.
func StaircaseSequence(flights int, tread, riser time.Duration) Sequence {
	if flights < 1 {
		flights = 1
	}
	var steps []SequenceStep
	for i := 0; i < flights; i++ {
		m := clampAxis(defaultMagnitude + i*10)
		steps = append(steps,
			SequenceStep{Action: StepForward, Duration: tread, Magnitude: m},
			SequenceStep{Action: StepAscend, Duration: riser, Magnitude: m},
		)
	}
	return Sequence{Name: "staircase", Steps: steps}
}

// CustomSequence wraps a user-specified ordered step list.
func CustomSequence(name string, steps []SequenceStep) Sequence {
	return Sequence{Name: name, Steps: steps}
}

// BuiltinSequence returns a named built-in manoeuvre with its default
// geometry. Known names: "loop", "rectangle", "circle", "staircase".
func BuiltinSequence(name string) (Sequence, bool) {
	switch name {
	case "loop":
		return LoopSequence(), true
	case "rectangle":
		return RectangleSequence(2*time.Second, 1500*time.Millisecond), true
	case "circle":
		return CircleSequence(12, 500*time.Millisecond), true
	case "staircase":
		return StaircaseSequence(3, time.Second, 500*time.Millisecond), true
	default:
		return Sequence{}, false
	}
}

// BuiltinSequenceNames lists the names accepted by BuiltinSequence.
func BuiltinSequenceNames() []string {
	return []string{"circle", "loop", "rectangle", "staircase"}
}
