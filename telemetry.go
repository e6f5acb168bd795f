// telemetry.go

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
	"time"
)

// telemetryListener consumes the session's notification channel and folds
// each decodable buffer into the latest snapshot. Undecodable buffers are
// dropped; the previous snapshot stays visible unchanged.
func (d *Drone) telemetryListener() {
	for buf := range d.session.Notifications() {
		snap, err := DecodeTelemetry(buf, d.transport)
		if err != nil {
			continue // not telemetry, or truncated on the wire
		}
		d.tmMu.Lock()
		d.tm = snap
		streaming := d.tmStreaming
		d.tmMu.Unlock()
		if streaming {
			log.Printf("Alt: %.1fcm  Batt: %d%%", snap.AltitudeCm, snap.Battery)
		}
	}
}

// Telemetry returns the most recent telemetry snapshot. Valid is false
// until the first decodable report has arrived.
func (d *Drone) Telemetry() TelemetrySnapshot {
	d.tmMu.RLock()
	defer d.tmMu.RUnlock()
	return d.tm
}

// Altitude returns the last reported height above the takeoff point in
// centimetres. Negative values mean below the takeoff point.
func (d *Drone) Altitude() float64 {
	return d.Telemetry().AltitudeCm
}

// Battery returns the last reported battery percentage.
func (d *Drone) Battery() uint8 {
	return d.Telemetry().Battery
}

// SetTelemetryLogging switches logging of each decoded telemetry report
// on or off.
func (d *Drone) SetTelemetryLogging(on bool) {
	d.tmMu.Lock()
	d.tmStreaming = on
	d.tmMu.Unlock()
}

// StreamTelemetry returns a channel that delivers a copy of the latest
// snapshot every period until the drone shuts down. Slow consumers miss
// updates rather than blocking the sender.
func (d *Drone) StreamTelemetry(period time.Duration) <-chan TelemetrySnapshot {
	ch := make(chan TelemetrySnapshot, 1)
	go func() {
		tick := time.NewTicker(period)
		defer tick.Stop()
		defer close(ch)
		for {
			select {
			case <-d.closedC:
				return
			case <-tick.C:
				select {
				case ch <- d.Telemetry():
				default:
				}
			}
		}
	}()
	return ch
}
