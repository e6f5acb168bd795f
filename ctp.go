// ctp.go

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
	"bytes"
	"encoding/binary"
)

// The Wi-Fi link carries everything in CTP envelopes:
//   "CTP:" | topic length (int16) | topic | content length (int32) | content
// The command/telemetry channel uses little-endian length fields; the
// stream-session topics (APP_ACCESS etc.) use big-endian. Vendor quirk.

const ctpMagic = "CTP:"

const (
	topicGenericCmd = "GENERIC_CMD"
	topicKeepAlive  = "CTP_KEEP_ALIVE"
	topicAppAccess  = "APP_ACCESS"
	topicOpenStream = "OPEN_RT_STREAM"
)

const (
	opPut    = "PUT"
	opNotify = "NOTIFY"
)

const (
	ctpHdrLen     = 10 // magic + both length fields
	maxCTPContent = 1 << 16
)

// encodeCTP wraps content in the little-endian envelope used on the
// command/telemetry channel.
func encodeCTP(topic string, content []byte) []byte {
	return encodeCTPOrder(binary.LittleEndian, topic, content)
}

// encodeCTPSetup wraps content in the big-endian envelope used by the
// stream-session topics.
func encodeCTPSetup(topic string, content []byte) []byte {
	return encodeCTPOrder(binary.BigEndian, topic, content)
}

func encodeCTPOrder(order binary.AppendByteOrder, topic string, content []byte) []byte {
	buf := make([]byte, 0, ctpHdrLen+len(topic)+len(content))
	buf = append(buf, ctpMagic...)
	buf = order.AppendUint16(buf, uint16(len(topic)))
	buf = append(buf, topic...)
	buf = order.AppendUint32(buf, uint32(len(content)))
	buf = append(buf, content...)
	return buf
}

// splitCTP extracts the content of every complete little-endian envelope at
// the head of buf and returns the remaining unconsumed bytes. Corrupt input
// is resynchronised by skipping to the next magic marker, so a lossy stream
// cannot wedge the reader.
func splitCTP(buf []byte) (contents [][]byte, rest []byte) {
	for {
		if len(buf) < ctpHdrLen {
			return contents, buf
		}
		if !bytes.HasPrefix(buf, []byte(ctpMagic)) {
			idx := bytes.Index(buf[1:], []byte(ctpMagic))
			if idx < 0 {
				// keep a partial magic at the tail, drop the rest
				return contents, buf[len(buf)-(len(ctpMagic)-1):]
			}
			buf = buf[1+idx:]
			continue
		}
		topicLen := int(binary.LittleEndian.Uint16(buf[4:6]))
		if topicLen > 255 {
			buf = buf[len(ctpMagic):]
			continue
		}
		if len(buf) < ctpHdrLen+topicLen {
			return contents, buf
		}
		contentLen := int(int32(binary.LittleEndian.Uint32(buf[6+topicLen : ctpHdrLen+topicLen])))
		if contentLen < 0 || contentLen > maxCTPContent {
			buf = buf[len(ctpMagic):]
			continue
		}
		end := ctpHdrLen + topicLen + contentLen
		if len(buf) < end {
			return contents, buf
		}
		content := make([]byte, contentLen)
		copy(content, buf[ctpHdrLen+topicLen:end])
		contents = append(contents, content)
		buf = buf[end:]
	}
}
