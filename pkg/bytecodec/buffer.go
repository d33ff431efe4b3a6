package bytecodec

import "bytes"

// BufferLen is sized well above the largest frame the adapter can return
// before the prompt byte, so a full buffer always means a framing problem.
const BufferLen = 256

type buffer struct {
	buf [BufferLen]byte
	end int
}

func (b *buffer) Append(c byte) bool {
	if b.end >= BufferLen {
		return false
	}
	b.buf[b.end] = c
	b.end++
	return true
}

// Reset logically clears the buffer so its storage can be reused.
func (b *buffer) Reset() {
	b.end = 0
}

// Bytes returns the populated part of the buffer. The slice is only valid
// until the next Append or Reset.
func (b *buffer) Bytes() []byte {
	return b.buf[:b.end]
}

func (b *buffer) Len() int {
	return b.end
}

// RawBuffer holds raw ASCII bytes exactly as received from the adapter.
type RawBuffer struct {
	buffer
}

// NibbleBuffer holds decoded hex digits, each a value 0..15.
type NibbleBuffer struct {
	buffer
}

// ByteBuffer holds fully assembled bytes, two nibbles each.
type ByteBuffer struct {
	buffer
}

// AppendString appends every byte of s, reporting false if the buffer
// fills up before the whole string fits.
func (b *RawBuffer) AppendString(s string) bool {
	for i := 0; i < len(s); i++ {
		if !b.Append(s[i]) {
			return false
		}
	}
	return true
}

var noDataResponse = []byte("NO DATA\r\r")

// IsNoData reports whether the buffer holds the adapter's literal
// "no answer from the ECU" response, byte for byte.
func (b *RawBuffer) IsNoData() bool {
	return bytes.Equal(b.Bytes(), noDataResponse)
}
