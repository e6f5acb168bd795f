// frame_test.go

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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeShortRangeHover(t *testing.T) {
	f := CommandFrame{Transport: ShortRange}
	want := []byte{
		0xcc, 0x80, 0x80, 0x00, 0x80, 0x80, 0x40, 0x40, 0x00, 0x00, 0x00,
		0x80, // checksum of an all-neutral payload
		0x33,
	}
	assert.Equal(t, want, f.Encode())
}

func TestEncodeShortRangeDeterministic(t *testing.T) {
	f := CommandFrame{Throttle: 30, Yaw: -10, Pitch: 55, Roll: -90, Transport: ShortRange}
	assert.Equal(t, f.Encode(), f.Encode())
}

func TestEncodeWifiHoverChecksum(t *testing.T) {
	contents, rest := splitCTP(CommandFrame{Transport: Wifi}.Encode())
	require.Len(t, contents, 1)
	assert.Empty(t, rest)

	var doc ctpJSON
	require.NoError(t, json.Unmarshal(contents[0], &doc))
	assert.Equal(t, "PUT", doc.Op)
	assert.Equal(t, "204", doc.Param["D0"])
	assert.Equal(t, "51", doc.Param["D13"])
	// additive complement of the neutral payload
	assert.Equal(t, "127", doc.Param["D12"])
}

func TestShortRangeRoundTrip(t *testing.T) {
	cases := []CommandFrame{
		{},
		{Throttle: 100, Yaw: -100, Pitch: 1, Roll: -1},
		{Throttle: -42, Yaw: 17, Pitch: -100, Roll: 100},
		{Flags: FlagCalibrate},
		{Pitch: 70, Flags: FlagTakeOff},
		{Flags: FlagEmergencyStop},
	}
	for _, f := range cases {
		f.Transport = ShortRange
		got, err := DecodeShortRangeCommand(f.Encode())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
}

func TestShortRangeLandDecodesAsToggle(t *testing.T) {
	// takeoff and land share one wire bit, so a land frame comes back
	// with the toggle reported as takeoff
	f := CommandFrame{Flags: FlagLand, Transport: ShortRange}
	got, err := DecodeShortRangeCommand(f.Encode())
	require.NoError(t, err)
	assert.Equal(t, FlagTakeOff, got.Flags)
}

func TestWifiRoundTrip(t *testing.T) {
	cases := []CommandFrame{
		{},
		{Throttle: 99, Yaw: -3, Pitch: 64, Roll: -64},
		{Flags: FlagCalibrate, Throttle: -50},
	}
	for _, f := range cases {
		f.Transport = Wifi
		contents, _ := splitCTP(f.Encode())
		require.Len(t, contents, 1)
		got, err := DecodeWifiCommand(contents[0])
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
}

func TestDecodeShortRangeErrors(t *testing.T) {
	_, err := DecodeShortRangeCommand([]byte{0xcc, 0x80})
	assert.ErrorIs(t, err, ErrTooShort)

	good := CommandFrame{Transport: ShortRange}.Encode()

	bad := append([]byte(nil), good...)
	bad[0] = 0xcd
	_, err = DecodeShortRangeCommand(bad)
	assert.ErrorIs(t, err, ErrBadFormat)

	bad = append([]byte(nil), good...)
	bad[3] ^= 0xff // corrupt payload, checksum no longer matches
	_, err = DecodeShortRangeCommand(bad)
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestDecodeWifiErrors(t *testing.T) {
	_, err := DecodeWifiCommand([]byte(`{"op":"PUT"`))
	assert.ErrorIs(t, err, ErrTooShort)

	_, err = DecodeWifiCommand([]byte(`{"op":"GET","param":{"D0":"204"}}`))
	assert.ErrorIs(t, err, ErrBadFormat)

	// valid shape, wrong checksum
	contents, _ := splitCTP(CommandFrame{Transport: Wifi}.Encode())
	var doc ctpJSON
	require.NoError(t, json.Unmarshal(contents[0], &doc))
	doc.Param["D12"] = "0"
	buf, _ := json.Marshal(doc)
	_, err = DecodeWifiCommand(buf)
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestClamp(t *testing.T) {
	f := CommandFrame{Throttle: 127, Yaw: -128, Pitch: 101, Roll: -101}
	c := f.Clamp()
	assert.Equal(t, int8(100), c.Throttle)
	assert.Equal(t, int8(-100), c.Yaw)
	assert.Equal(t, int8(100), c.Pitch)
	assert.Equal(t, int8(-100), c.Roll)

	both := CommandFrame{Flags: FlagTakeOff | FlagLand}.Clamp()
	assert.Equal(t, FlagLand, both.Flags)
}

func TestDecodeTelemetryAltitude(t *testing.T) {
	buf := make([]byte, minTelemetryLen)
	buf[altLowOffset] = 0xe8 // 1000 mm
	buf[altHighOffset] = 0x03
	buf[battOffset] = 87
	snap, err := DecodeTelemetry(buf, ShortRange)
	require.NoError(t, err)
	assert.True(t, snap.Valid)
	assert.Equal(t, 100.0, snap.AltitudeCm)
	assert.Equal(t, uint8(87), snap.Battery)

	buf[altLowOffset] = 0x18 // -1000 mm
	buf[altHighOffset] = 0xfc
	snap, err = DecodeTelemetry(buf, ShortRange)
	require.NoError(t, err)
	assert.Equal(t, -100.0, snap.AltitudeCm)
}

func TestDecodeTelemetryTooShort(t *testing.T) {
	_, err := DecodeTelemetry(make([]byte, minTelemetryLen-1), ShortRange)
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestDecodeTelemetryNotify(t *testing.T) {
	buf := []byte(`{"op":"NOTIFY","param":{"D8":"232","D9":"3","D10":"64"}}`)
	snap, err := DecodeTelemetry(buf, Wifi)
	require.NoError(t, err)
	assert.Equal(t, 100.0, snap.AltitudeCm)
	assert.Equal(t, uint8(64), snap.Battery)

	_, err = DecodeTelemetry([]byte(`{"op":"NOTIFY","param":{"D8":"boom","D9":"0","D10":"0"}}`), Wifi)
	assert.ErrorIs(t, err, ErrBadFormat)
}
