// video_test.go

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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildFragment assembles a wire-format video packet for tests.
func buildFragment(seq, frameSize, offset, ts uint32, payload []byte) []byte {
	buf := make([]byte, videoHdrLen, videoHdrLen+len(payload))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(len(payload)))
	binary.LittleEndian.PutUint32(buf[4:8], seq)
	binary.LittleEndian.PutUint32(buf[8:12], frameSize)
	binary.LittleEndian.PutUint32(buf[12:16], offset)
	binary.LittleEndian.PutUint32(buf[16:20], ts)
	return append(buf, payload...)
}

func TestParseVideoFragment(t *testing.T) {
	payload := []byte{0, 0, 0, 1, 0x67, 0x42}
	f, err := parseVideoFragment(buildFragment(9, uint32(len(payload)), 0, 1234, payload))
	require.NoError(t, err)
	assert.Equal(t, uint32(9), f.sequence)
	assert.Equal(t, uint32(1234), f.timestamp)
	assert.Equal(t, uint32(0), f.offset)
	assert.Equal(t, payload, f.payload)
}

func TestParseVideoFragmentErrors(t *testing.T) {
	_, err := parseVideoFragment(make([]byte, videoHdrLen-1))
	assert.ErrorIs(t, err, ErrTooShort)

	// header promises more payload than the packet holds
	short := buildFragment(0, 100, 0, 1, make([]byte, 10))
	binary.LittleEndian.PutUint16(short[2:4], 50)
	_, err = parseVideoFragment(short)
	assert.ErrorIs(t, err, ErrTooShort)

	// payload overruns the declared frame size
	bad := buildFragment(0, 4, 2, 1, make([]byte, 10))
	_, err = parseVideoFragment(bad)
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestFrameAssemblerTwoFragments(t *testing.T) {
	a := newFrameAssembler()
	whole := []byte{0, 0, 0, 1, 0x65, 0xaa, 0xbb, 0xcc}

	f1, err := parseVideoFragment(buildFragment(1, 8, 0, 42, whole[:4]))
	require.NoError(t, err)
	f2, err := parseVideoFragment(buildFragment(2, 8, 4, 42, whole[4:]))
	require.NoError(t, err)

	assert.Nil(t, a.add(f1))
	got := a.add(f2)
	require.NotNil(t, got)
	assert.Equal(t, whole, got)
}

func TestFrameAssemblerOutOfOrder(t *testing.T) {
	a := newFrameAssembler()
	whole := []byte{1, 2, 3, 4, 5, 6}

	f2, _ := parseVideoFragment(buildFragment(2, 6, 3, 7, whole[3:]))
	f1, _ := parseVideoFragment(buildFragment(1, 6, 0, 7, whole[:3]))
	assert.Nil(t, a.add(f2))
	assert.Equal(t, whole, a.add(f1))
}

func TestFrameAssemblerInterleavedFrames(t *testing.T) {
	a := newFrameAssembler()
	frameA := []byte{0xa1, 0xa2, 0xa3, 0xa4}
	frameB := []byte{0xb1, 0xb2}

	fa1, _ := parseVideoFragment(buildFragment(1, 4, 0, 100, frameA[:2]))
	fb1, _ := parseVideoFragment(buildFragment(2, 2, 0, 200, frameB))
	fa2, _ := parseVideoFragment(buildFragment(3, 4, 2, 100, frameA[2:]))

	assert.Nil(t, a.add(fa1))
	assert.Equal(t, frameB, a.add(fb1))
	assert.Equal(t, frameA, a.add(fa2))
}

func TestFrameAssemblerEvictsOldest(t *testing.T) {
	a := newFrameAssembler()
	// half-filled frames up to the pending limit, plus one more
	for ts := uint32(0); ts <= maxPendingFrames; ts++ {
		f, _ := parseVideoFragment(buildFragment(ts, 4, 0, ts, []byte{1, 2}))
		assert.Nil(t, a.add(f))
	}
	assert.Len(t, a.pending, maxPendingFrames)
	_, evicted := a.pending[0]
	assert.False(t, evicted)

	// the evicted frame's tail starts a fresh pending entry rather than
	// completing the old one
	tail, _ := parseVideoFragment(buildFragment(99, 4, 2, 0, []byte{3, 4}))
	assert.Nil(t, a.add(tail))
	assert.Len(t, a.pending, maxPendingFrames)
}
