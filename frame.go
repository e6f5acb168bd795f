// frame.go

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
	"encoding/json"
	"strconv"
	"time"
)

// Transport selects the wire encoding of a CommandFrame.
type Transport int

// The two physical links the drone accepts commands on.
const (
	Wifi       Transport = iota // TCP, JSON-wrapped 14-byte structure
	ShortRange                  // BLE, raw 13-byte structure
)

// Flags is the command flag bitset.
type Flags byte

// Command flags...
const (
	FlagTakeOff Flags = 1 << iota
	FlagLand
	FlagCalibrate
	FlagEmergencyStop
)

const (
	frameHdr   = 0xcc // 204
	frameFtr   = 0x33 // 51
	axisCentre = 0x80 // sticks at rest
	trimCentre = 0x40

	// function1 bits. NB takeoff and land share a single toggle bit on
	// the wire; the vehicle decides which based on its flying state.
	fnTakeOffLand = 0x08
	fnEmergency   = 0x04

	// function byte (D3 / raw byte 3)
	fnCalibrate = 0x01

	shortFrameLen = 13
	rawPayloadLen = 10 // bytes between header and checksum on the BLE link

	// minTelemetryLen is the documented minimum notification length on
	// both transports.
	minTelemetryLen = 16

	altLowOffset  = 8
	altHighOffset = 9
	battOffset    = 10

	// the barometer reports millimetres; we expose centimetres
	altScale = 10.0
)

// CommandFrame is one logical command to the drone. Construct it fresh per
// command; it is immutable once encoded. Axis fields range -100..100 and are
// clamped before encoding, so Encode is total over the valid domain.
type CommandFrame struct {
	Throttle  int8
	Yaw       int8
	Pitch     int8
	Roll      int8
	Flags     Flags
	Transport Transport
}

// TelemetrySnapshot is the latest decoded notification from the drone.
// A stale snapshot is retained (not cleared) when a malformed or short
// notification arrives.
type TelemetrySnapshot struct {
	AltitudeCm float64 // signed; negative values are legal ground-level jitter
	Battery    uint8   // percentage, 0-100
	Valid      bool
	Received   time.Time
}

func clampAxis(v int) int8 {
	if v > 100 {
		return 100
	}
	if v < -100 {
		return -100
	}
	return int8(v)
}

// Clamp returns the frame with every axis field forced into -100..100 and
// mutually exclusive flags normalised (land wins over takeoff if both are
// set - landing is always the safer interpretation).
func (f CommandFrame) Clamp() CommandFrame {
	f.Throttle = clampAxis(int(f.Throttle))
	f.Yaw = clampAxis(int(f.Yaw))
	f.Pitch = clampAxis(int(f.Pitch))
	f.Roll = clampAxis(int(f.Roll))
	if f.Flags&FlagLand != 0 {
		f.Flags &^= FlagTakeOff
	}
	return f
}

func axisByte(v int8) byte {
	return byte(axisCentre + int(v))
}

func axisValue(b byte) int8 {
	return clampAxis(int(b) - axisCentre)
}

func (f CommandFrame) fnByte() byte {
	var fn byte
	if f.Flags&FlagCalibrate != 0 {
		fn |= fnCalibrate
	}
	return fn
}

func (f CommandFrame) fn1Byte() byte {
	var fn1 byte
	if f.Flags&(FlagTakeOff|FlagLand) != 0 {
		fn1 |= fnTakeOffLand
	}
	if f.Flags&FlagEmergencyStop != 0 {
		fn1 |= fnEmergency
	}
	return fn1
}

// rawPayload is the 10-byte control payload shared (modulo one padding byte)
// by both wire layouts:
// throttle, yaw, fn, pitch, roll, pitch-trim, roll-trim, fn1, fn2, fn3
func (f CommandFrame) rawPayload() [rawPayloadLen]byte {
	f = f.Clamp()
	return [rawPayloadLen]byte{
		axisByte(f.Throttle),
		axisByte(f.Yaw),
		f.fnByte(),
		axisByte(f.Pitch),
		axisByte(f.Roll),
		trimCentre,
		trimCentre,
		f.fn1Byte(),
		0,
		0,
	}
}

// Encode renders the frame into its single wire representation for the
// frame's transport tag. It never fails and is deterministic.
func (f CommandFrame) Encode() []byte {
	if f.Transport == ShortRange {
		return f.encodeShortRange()
	}
	return f.encodeWifi()
}

// encodeShortRange produces the raw 13-byte structure written to the BLE
// command characteristic. The checksum is the XOR of the payload bytes,
// XORed with 0x80.
func (f CommandFrame) encodeShortRange() []byte {
	p := f.rawPayload()
	csum := byte(axisCentre)
	for _, b := range p {
		csum ^= b
	}
	buf := make([]byte, 0, shortFrameLen)
	buf = append(buf, frameHdr)
	buf = append(buf, p[:]...)
	buf = append(buf, csum, frameFtr)
	return buf
}

// ctpJSON is the JSON document carried inside a CTP envelope, for both
// outbound PUT commands and inbound NOTIFY telemetry.
type ctpJSON struct {
	Op    string            `json:"op"`
	Param map[string]string `json:"param"`
}

// encodeWifi produces the JSON-wrapped 14-byte control structure inside a
// CTP envelope. D0/D13 are the usual header/footer, D12 is the additive
// complement of D1..D11.
func (f CommandFrame) encodeWifi() []byte {
	p := f.rawPayload()
	sum := 0
	param := map[string]string{
		"D0":  strconv.Itoa(frameHdr),
		"D13": strconv.Itoa(frameFtr),
	}
	for i, b := range p {
		sum += int(b)
		param["D"+strconv.Itoa(i+1)] = strconv.Itoa(int(b))
	}
	param["D11"] = "0" // padding byte only present in the 14-byte layout
	param["D12"] = strconv.Itoa(255 - (sum & 255))

	// encoding/json sorts map keys, so this is deterministic
	content, _ := json.Marshal(ctpJSON{Op: opPut, Param: param})
	return encodeCTP(topicGenericCmd, content)
}

// DecodeShortRangeCommand parses a raw 13-byte command frame. It exists for
// diagnostics and round-trip testing of the codec. NB the wire cannot
// distinguish takeoff from land (shared toggle bit); the toggle decodes as
// FlagTakeOff.
func DecodeShortRangeCommand(buf []byte) (CommandFrame, error) {
	if len(buf) < shortFrameLen {
		return CommandFrame{}, ErrTooShort
	}
	if buf[0] != frameHdr || buf[shortFrameLen-1] != frameFtr {
		return CommandFrame{}, ErrBadFormat
	}
	csum := byte(axisCentre)
	for _, b := range buf[1 : 1+rawPayloadLen] {
		csum ^= b
	}
	if csum != buf[shortFrameLen-2] {
		return CommandFrame{}, ErrBadFormat
	}
	return decodeRawPayload(buf[1:1+rawPayloadLen], ShortRange), nil
}

// DecodeWifiCommand parses the JSON content of a GENERIC_CMD envelope.
// See DecodeShortRangeCommand for the takeoff/land toggle caveat.
func DecodeWifiCommand(content []byte) (CommandFrame, error) {
	if len(content) < minTelemetryLen {
		return CommandFrame{}, ErrTooShort
	}
	var doc ctpJSON
	if err := json.Unmarshal(content, &doc); err != nil {
		return CommandFrame{}, ErrBadFormat
	}
	if doc.Op != opPut || doc.Param == nil {
		return CommandFrame{}, ErrBadFormat
	}
	if doc.Param["D0"] != strconv.Itoa(frameHdr) || doc.Param["D13"] != strconv.Itoa(frameFtr) {
		return CommandFrame{}, ErrBadFormat
	}
	var p [rawPayloadLen]byte
	sum := 0
	for i := range p {
		v, err := strconv.Atoi(doc.Param["D"+strconv.Itoa(i+1)])
		if err != nil || v < 0 || v > 255 {
			return CommandFrame{}, ErrBadFormat
		}
		p[i] = byte(v)
		sum += v
	}
	if v, err := strconv.Atoi(doc.Param["D11"]); err == nil {
		sum += v
	}
	if doc.Param["D12"] != strconv.Itoa(255-(sum&255)) {
		return CommandFrame{}, ErrBadFormat
	}
	return decodeRawPayload(p[:], Wifi), nil
}

func decodeRawPayload(p []byte, tr Transport) CommandFrame {
	f := CommandFrame{
		Throttle:  axisValue(p[0]),
		Yaw:       axisValue(p[1]),
		Pitch:     axisValue(p[3]),
		Roll:      axisValue(p[4]),
		Transport: tr,
	}
	if p[2]&fnCalibrate != 0 {
		f.Flags |= FlagCalibrate
	}
	if p[7]&fnTakeOffLand != 0 {
		f.Flags |= FlagTakeOff
	}
	if p[7]&fnEmergency != 0 {
		f.Flags |= FlagEmergencyStop
	}
	return f
}

// DecodeTelemetry parses one inbound notification buffer for the given
// transport. On the short-range link the buffer is the raw notification; on
// the Wi-Fi link it is the JSON content of a CTP envelope. Failures are
// always recoverable - callers discard the buffer and keep their prior
// snapshot.
func DecodeTelemetry(buf []byte, tr Transport) (TelemetrySnapshot, error) {
	if tr == ShortRange {
		return decodeTelemetryRaw(buf)
	}
	return decodeTelemetryNotify(buf)
}

// decodeTelemetryRaw decodes the fixed-layout notification: altitude is a
// little-endian signed 16-bit millimetre value at bytes [8,9], battery the
// raw percentage at byte 10.
func decodeTelemetryRaw(buf []byte) (TelemetrySnapshot, error) {
	if len(buf) < minTelemetryLen {
		return TelemetrySnapshot{}, ErrTooShort
	}
	mm := int16(uint16(buf[altLowOffset]) | uint16(buf[altHighOffset])<<8)
	return TelemetrySnapshot{
		AltitudeCm: float64(mm) / altScale,
		Battery:    buf[battOffset],
		Valid:      true,
		Received:   time.Now(),
	}, nil
}

// decodeTelemetryNotify decodes the Wi-Fi NOTIFY document: the same sensor
// bytes arrive as decimal strings D8 (altitude low), D9 (altitude high) and
// D10 (battery).
func decodeTelemetryNotify(buf []byte) (TelemetrySnapshot, error) {
	if len(buf) < minTelemetryLen {
		return TelemetrySnapshot{}, ErrTooShort
	}
	var doc ctpJSON
	if err := json.Unmarshal(buf, &doc); err != nil {
		return TelemetrySnapshot{}, ErrBadFormat
	}
	if doc.Op != opNotify || doc.Param == nil {
		return TelemetrySnapshot{}, ErrBadFormat
	}
	low, err := strconv.Atoi(doc.Param["D8"])
	if err != nil || low < 0 || low > 255 {
		return TelemetrySnapshot{}, ErrBadFormat
	}
	high, err := strconv.Atoi(doc.Param["D9"])
	if err != nil || high < 0 || high > 255 {
		return TelemetrySnapshot{}, ErrBadFormat
	}
	batt, err := strconv.Atoi(doc.Param["D10"])
	if err != nil || batt < 0 || batt > 255 {
		return TelemetrySnapshot{}, ErrBadFormat
	}
	mm := int16(uint16(low) | uint16(high)<<8)
	return TelemetrySnapshot{
		AltitudeCm: float64(mm) / altScale,
		Battery:    uint8(batt),
		Valid:      true,
		Received:   time.Now(),
	}, nil
}
