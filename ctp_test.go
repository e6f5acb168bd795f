// ctp_test.go

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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCTPEnvelopeLayout(t *testing.T) {
	env := encodeCTP(topicGenericCmd, []byte("hi"))
	assert.Equal(t, "CTP:", string(env[:4]))
	// little-endian topic length
	assert.Equal(t, byte(len(topicGenericCmd)), env[4])
	assert.Equal(t, byte(0), env[5])
	assert.Equal(t, topicGenericCmd, string(env[6:6+len(topicGenericCmd)]))
}

func TestCTPSetupIsBigEndian(t *testing.T) {
	env := encodeCTPSetup(topicAppAccess, nil)
	assert.Equal(t, byte(0), env[4])
	assert.Equal(t, byte(len(topicAppAccess)), env[5])
}

func TestSplitCTPWholeAndPartial(t *testing.T) {
	a := encodeCTP("T1", []byte("alpha"))
	b := encodeCTP("TOPIC2", []byte("bravo"))
	stream := append(append([]byte{}, a...), b...)

	// both envelopes in one read
	contents, rest := splitCTP(stream)
	require.Len(t, contents, 2)
	assert.Equal(t, "alpha", string(contents[0]))
	assert.Equal(t, "bravo", string(contents[1]))
	assert.Empty(t, rest)

	// split mid-envelope: nothing until the tail arrives
	cut := len(a) + 3
	contents, rest = splitCTP(stream[:cut])
	require.Len(t, contents, 1)
	assert.Equal(t, "alpha", string(contents[0]))

	rest = append(rest, stream[cut:]...)
	contents, rest = splitCTP(rest)
	require.Len(t, contents, 1)
	assert.Equal(t, "bravo", string(contents[1-1]))
	assert.Empty(t, rest)
}

func TestSplitCTPResyncsPastGarbage(t *testing.T) {
	good := encodeCTP("T", []byte("payload"))
	stream := append([]byte("noise noise"), good...)
	contents, rest := splitCTP(stream)
	require.Len(t, contents, 1)
	assert.Equal(t, "payload", string(contents[0]))
	assert.Empty(t, rest)
}

func TestSplitCTPInsaneLengthSkipsMagic(t *testing.T) {
	bad := encodeCTP("T", []byte("x"))
	bad[4], bad[5] = 0xff, 0xff // absurd topic length
	good := encodeCTP("T", []byte("y"))
	contents, _ := splitCTP(append(bad, good...))
	require.Len(t, contents, 1)
	assert.Equal(t, "y", string(contents[0]))
}
