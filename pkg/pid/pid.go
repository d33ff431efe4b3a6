// Package pid encodes OBD parameter requests for an ELM327-class adapter
// and validates the framed responses that come back.
//
// Requests use mode 21 with an "01" suffix: "21" + two hex digits of the
// PID + "01" + CR. With headers enabled (ATH1) and the custom 8210F0
// header set, a response carries a fixed 6 bytes of framing around the
// payload: three header bytes, the mode echo, the PID echo at offset 4 and
// a trailing additive checksum. Those constants hold for this header
// configuration only and must be revisited if the adapter header setup
// changes.
package pid

import (
	"errors"
	"fmt"
)

const (
	// RequestLen is the fixed length of an encoded PID request.
	RequestLen = 7

	frameOverhead = 6
	pidOffset     = 4
	payloadOffset = 5
)

var (
	ErrLengthMismatch   = errors.New("response length does not match the requested PID")
	ErrPIDMismatch      = errors.New("response does not echo the requested PID")
	ErrChecksumMismatch = errors.New("response failed the checksum test")
)

var hexDigit = [16]byte{
	'0', '1', '2', '3', '4', '5', '6', '7',
	'8', '9', 'A', 'B', 'C', 'D', 'E', 'F',
}

// EncodeRequest renders the ASCII request bytes for a PID.
func EncodeRequest(pid byte) [RequestLen]byte {
	return [RequestLen]byte{
		'2', '1',
		hexDigit[pid>>4], hexDigit[pid&0x0F],
		'0', '1',
		'\r',
	}
}

// DecodeFunc turns a validated payload into a reading.
type DecodeFunc func(payload []byte) float64

// Command is an immutable descriptor for one pollable parameter. The
// request bytes are precomputed so the poll loop never formats anything.
type Command struct {
	PID        byte
	PayloadLen int
	Decode     DecodeFunc
	Request    [RequestLen]byte
}

// New builds a Command for the given PID.
func New(pid byte, payloadLen int, decode DecodeFunc) Command {
	return Command{
		PID:        pid,
		PayloadLen: payloadLen,
		Decode:     decode,
		Request:    EncodeRequest(pid),
	}
}

// Validate checks the framing of an assembled response and, if it is
// intact, decodes the payload into a reading. Checks run in order: total
// length, PID echo, checksum. The checksum is the 8-bit wrap-around sum of
// every byte except the last, which carries the expected value.
func (c Command) Validate(response []byte) (float64, error) {
	want := c.PayloadLen + frameOverhead
	if len(response) != want {
		return 0, fmt.Errorf("%w: got %d bytes, want %d", ErrLengthMismatch, len(response), want)
	}
	if response[pidOffset] != c.PID {
		return 0, fmt.Errorf("%w: got 0x%02X, want 0x%02X", ErrPIDMismatch, response[pidOffset], c.PID)
	}
	var sum byte
	for _, b := range response[:len(response)-1] {
		sum += b
	}
	if got := response[len(response)-1]; sum != got {
		return 0, fmt.Errorf("%w: computed 0x%02X, trailing byte 0x%02X", ErrChecksumMismatch, sum, got)
	}
	return c.Decode(response[payloadOffset : payloadOffset+c.PayloadLen]), nil
}

// Built-in commands. RPM comes back as a quarter-turn count in two bytes,
// coolant temperature as a single byte offset by 40 degrees. SupportedPIDs
// is only polled as a heartbeat during initialization; its bitmask value
// is not displayed anywhere.
var (
	RPM = New(0x0C, 2, func(p []byte) float64 {
		return float64(uint16(p[0])<<8|uint16(p[1])) / 4
	})

	CoolantTemp = New(0x05, 1, func(p []byte) float64 {
		return float64(p[0]) - 40
	})

	SupportedPIDs = New(0x00, 4, func(p []byte) float64 {
		return float64(uint32(p[0])<<24 | uint32(p[1])<<16 | uint32(p[2])<<8 | uint32(p[3]))
	})
)
