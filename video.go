// video.go

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
	"encoding/binary"
	"fmt"
	"log"
	"net"
	"time"
)

// DefaultVideoPort is the UDP port the drone streams H.264 video on.
const DefaultVideoPort = 2224

const (
	videoHdrLen   = 20
	videoPktLen   = 2048
	videoChanSize = 100
	// how many partially-assembled frames to keep before evicting the oldest
	maxPendingFrames = 8
)

// videoFragment is one UDP packet's worth of an H.264 frame. Frames larger
// than a single packet arrive as several fragments sharing a timestamp.
type videoFragment struct {
	fragType  uint8
	payload   []byte
	sequence  uint32
	frameSize uint32
	offset    uint32
	timestamp uint32
}

// parseVideoFragment decodes the 20-byte little-endian fragment header.
// The payload slice aliases buf.
func parseVideoFragment(buf []byte) (videoFragment, error) {
	var f videoFragment
	if len(buf) < videoHdrLen {
		return f, ErrTooShort
	}
	f.fragType = buf[0]
	payloadLen := int(binary.LittleEndian.Uint16(buf[2:4]))
	f.sequence = binary.LittleEndian.Uint32(buf[4:8])
	f.frameSize = binary.LittleEndian.Uint32(buf[8:12])
	f.offset = binary.LittleEndian.Uint32(buf[12:16])
	f.timestamp = binary.LittleEndian.Uint32(buf[16:20])
	if len(buf) < videoHdrLen+payloadLen {
		return f, ErrTooShort
	}
	if f.frameSize == 0 || uint32(payloadLen)+f.offset > f.frameSize {
		return f, ErrBadFormat
	}
	f.payload = buf[videoHdrLen : videoHdrLen+payloadLen]
	return f, nil
}

// frameAssembler rebuilds H.264 frames from out-of-order fragments, keyed
// by timestamp.
type frameAssembler struct {
	pending map[uint32]*pendingFrame
	order   []uint32
}

type pendingFrame struct {
	data   []byte
	filled uint32
}

func newFrameAssembler() *frameAssembler {
	return &frameAssembler{pending: make(map[uint32]*pendingFrame)}
}

// add folds one fragment in and returns the completed frame, or nil if the
// frame is still missing fragments.
func (a *frameAssembler) add(f videoFragment) []byte {
	p, ok := a.pending[f.timestamp]
	if !ok {
		if len(a.order) >= maxPendingFrames {
			oldest := a.order[0]
			a.order = a.order[1:]
			delete(a.pending, oldest)
		}
		p = &pendingFrame{data: make([]byte, f.frameSize)}
		a.pending[f.timestamp] = p
		a.order = append(a.order, f.timestamp)
	}
	if int(f.offset)+len(f.payload) > len(p.data) {
		return nil // inconsistent with the first fragment's frame size
	}
	copy(p.data[f.offset:], f.payload)
	p.filled += uint32(len(f.payload))
	if p.filled < uint32(len(p.data)) {
		return nil
	}
	delete(a.pending, f.timestamp)
	for i, ts := range a.order {
		if ts == f.timestamp {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	return p.data
}

// VideoConnect opens the UDP video port on the given drone address and
// returns a channel of raw H.264 frames, each beginning with a NAL start
// code. StartVideo must also be called to make the drone transmit.
func (d *Drone) VideoConnect(droneAddr string) (<-chan []byte, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", droneAddr, DefaultVideoPort))
	if err != nil {
		return nil, &ConnError{Endpoint: droneAddr, Err: err}
	}
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: DefaultVideoPort})
	if err != nil {
		return nil, &ConnError{Endpoint: addr.String(), Err: err}
	}
	d.videoConn = conn
	d.videoChan = make(chan []byte, videoChanSize)
	d.videoStopC = make(chan struct{})
	go d.videoListener()
	return d.videoChan, nil
}

// VideoConnectDefault opens the video port for the default drone address.
func (d *Drone) VideoConnectDefault() (<-chan []byte, error) {
	return d.VideoConnect(DefaultDroneAddr)
}

// StartVideo asks the drone to begin streaming. Safe to call repeatedly,
// e.g. on a timer, as some firmware stops sending after a few seconds
// without it.
func (d *Drone) StartVideo() error {
	if err := d.session.Send(encodeCTPSetup(topicAppAccess, nil)); err != nil {
		return err
	}
	return d.session.Send(encodeCTPSetup(topicOpenStream, nil))
}

// videoHeartbeat keeps the stream session open; the drone stops streaming
// if it hears nothing on this topic for a few seconds.
func (d *Drone) videoHeartbeat() error {
	return d.session.Send(encodeCTPSetup(topicKeepAlive, nil))
}

// VideoDisconnect stops the video listener and closes the UDP port. No-op
// if video was never connected.
func (d *Drone) VideoDisconnect() {
	if d.videoConn == nil {
		return
	}
	close(d.videoStopC)
	d.videoConn.Close()
	d.videoConn = nil
}

func (d *Drone) videoListener() {
	assembler := newFrameAssembler()
	buf := make([]byte, videoPktLen)
	for {
		n, _, err := d.videoConn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-d.videoStopC:
			default:
				log.Printf("Video read error: %v", err)
			}
			close(d.videoChan)
			return
		}
		f, err := parseVideoFragment(buf[:n])
		if err != nil {
			continue
		}
		// the assembler keeps the payload, so detach it from buf
		f.payload = append([]byte(nil), f.payload...)
		frame := assembler.add(f)
		if frame == nil {
			continue
		}
		select {
		case d.videoChan <- frame:
		default: // consumer fell behind, drop the frame
		}
	}
}

// KeepVideoAlive re-requests the stream every interval until the drone
// shuts down.
func (d *Drone) KeepVideoAlive(interval time.Duration) {
	go func() {
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case <-d.closedC:
				return
			case <-tick.C:
				if err := d.videoHeartbeat(); err != nil {
					return
				}
			}
		}
	}()
}
