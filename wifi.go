// wifi.go

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
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/apexlink/apex/internal/syncutil"
)

const (
	// DefaultDroneAddr is the drone's address on its own Wi-Fi network.
	DefaultDroneAddr = "192.168.1.1"
	// DefaultControlPort is the fixed TCP control port.
	DefaultControlPort = 3333

	wifiSendTimeout = 1 * time.Second
	wifiReadTimeout = 500 * time.Millisecond
)

// WifiSession is a Session over the drone's TCP control connection. A reader
// goroutine reassembles CTP envelopes from the byte stream so that consumers
// always see whole notifications.
type WifiSession struct {
	conn      net.Conn
	wrMu      syncutil.Mutex // serialises writes to the socket
	notifC    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

// DialWifi connects to the drone's control port at the given address and
// starts the notification reader. Failures are returned as *ConnError; no
// retry is attempted here.
func DialWifi(addr string, port int) (*WifiSession, error) {
	endpoint := net.JoinHostPort(addr, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", endpoint, 3*time.Second)
	if err != nil {
		return nil, &ConnError{Endpoint: endpoint, Err: err}
	}
	s := &WifiSession{
		conn:   conn,
		notifC: make(chan []byte, notifyBuffer),
		closed: make(chan struct{}),
	}
	go s.reader()
	return s, nil
}

// DialWifiDefault connects using the drone's default address and port.
func DialWifiDefault() (*WifiSession, error) {
	return DialWifi(DefaultDroneAddr, DefaultControlPort)
}

// Send transmits one encoded packet with a bounded write deadline, so a
// stalled link surfaces as a SendError rather than blocking the caller.
func (s *WifiSession) Send(pkt []byte) error {
	select {
	case <-s.closed:
		return &SendError{Err: ErrClosed}
	default:
	}
	s.wrMu.Lock()
	defer s.wrMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(wifiSendTimeout))
	if _, err := s.conn.Write(pkt); err != nil {
		return &SendError{Err: err}
	}
	return nil
}

// Notifications delivers the content of each inbound CTP envelope.
func (s *WifiSession) Notifications() <-chan []byte {
	return s.notifC
}

// Close shuts the connection down and releases the socket. Safe to call
// more than once.
func (s *WifiSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.conn.Close()
	})
	return nil
}

// reader accumulates the TCP stream and emits whole CTP contents. A read
// timeout just means no telemetry this cycle; the prior snapshot stays
// current downstream.
func (s *WifiSession) reader() {
	defer close(s.notifC)
	var acc []byte
	buf := make([]byte, 4096)
	for {
		select {
		case <-s.closed:
			return
		default:
		}
		s.conn.SetReadDeadline(time.Now().Add(wifiReadTimeout))
		n, err := s.conn.Read(buf)
		if n > 0 {
			acc = append(acc, buf[:n]...)
			var contents [][]byte
			contents, acc = splitCTP(acc)
			for _, c := range contents {
				select {
				case s.notifC <- c:
				default: // so we don't block
				}
			}
		}
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-s.closed:
			default:
				log.Printf("Network read error - %v\n", err)
			}
			return
		}
	}
}
