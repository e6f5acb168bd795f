// shortrange.go

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

	"tinygo.org/x/bluetooth"

	"github.com/apexlink/apex/internal/syncutil"
)

// The vendor-defined GATT characteristics of the short-range link. Commands
// are written (without response) to AE01; telemetry notifications arrive on
// AE02. Advertised device names start with "APEX".
var (
	uuidCommandChar = bluetooth.New16BitUUID(0xae01)
	uuidNotifyChar  = bluetooth.New16BitUUID(0xae02)
)

// DeviceNamePrefix is the advertised name prefix of APEX-family drones,
// for callers implementing their own scan.
const DeviceNamePrefix = "APEX"

// ShortRangeSession is a Session over the drone's BLE link. Device scanning
// and connection are the caller's concern; the session takes over from an
// already-connected bluetooth.Device.
type ShortRangeSession struct {
	dev     bluetooth.Device
	cmdChar bluetooth.DeviceCharacteristic
	notifC  chan []byte

	mu     syncutil.Mutex // guards closed against the notification callback
	closed bool
}

// OpenShortRange discovers the command and notification characteristics on a
// connected device, subscribes to telemetry, and returns the session.
func OpenShortRange(dev bluetooth.Device) (*ShortRangeSession, error) {
	s := &ShortRangeSession{
		dev:    dev,
		notifC: make(chan []byte, notifyBuffer),
	}

	svcs, err := dev.DiscoverServices(nil)
	if err != nil {
		return nil, &ConnError{Endpoint: "ble", Err: err}
	}
	var haveCmd, haveNotify bool
	for _, svc := range svcs {
		chars, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			continue
		}
		for _, ch := range chars {
			switch ch.UUID() {
			case uuidCommandChar:
				s.cmdChar = ch
				haveCmd = true
			case uuidNotifyChar:
				if err := ch.EnableNotifications(s.onNotify); err != nil {
					return nil, &ConnError{Endpoint: "ble", Err: err}
				}
				haveNotify = true
			}
		}
	}
	if !haveCmd || !haveNotify {
		dev.Disconnect()
		return nil, &ConnError{Endpoint: "ble", Err: errors.New("command/notify characteristics not found")}
	}
	return s, nil
}

func (s *ShortRangeSession) onNotify(buf []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	cp := make([]byte, len(buf))
	copy(cp, buf)
	select {
	case s.notifC <- cp:
	default: // so we don't block the BLE event loop
	}
}

// Send writes one raw 13-byte command frame to the command characteristic.
func (s *ShortRangeSession) Send(pkt []byte) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return &SendError{Err: ErrClosed}
	}
	if _, err := s.cmdChar.WriteWithoutResponse(pkt); err != nil {
		return &SendError{Err: err}
	}
	return nil
}

// Notifications delivers raw telemetry notification buffers.
func (s *ShortRangeSession) Notifications() <-chan []byte {
	return s.notifC
}

// Close disconnects the BLE device. Safe to call more than once.
func (s *ShortRangeSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.notifC)
	s.mu.Unlock()
	return s.dev.Disconnect()
}
