// Package bytecodec converts the raw ASCII byte stream received from an
// ELM327-class adapter into usable values. Responses pass through three
// representations, each with its own buffer type: raw characters, decoded
// hex nibbles and assembled bytes. A buffer can only be produced by the
// stage that precedes it, so mixing stages up is a compile error rather
// than a runtime surprise.
package bytecodec

import (
	"errors"
	"fmt"
)

var (
	ErrBadHexChar = errors.New("byte is not an ASCII hex digit")
	ErrNibblePair = errors.New("cannot combine nibble pair")
)

// DecodeHexChar maps '0'..'9', 'A'..'F' and 'a'..'f' to their values.
func DecodeHexChar(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	}
	return 0, fmt.Errorf("%w: 0x%02X", ErrBadHexChar, c)
}

// CombineNibblePair assembles a byte from a high and a low nibble.
func CombineNibblePair(hi, lo byte) (byte, error) {
	if hi > 15 || lo > 15 {
		return 0, fmt.Errorf("%w: values %d %d", ErrNibblePair, hi, lo)
	}
	return hi<<4 | lo, nil
}

// Nibbles decodes every raw character into dst. Bytes that are not hex
// digits are silently dropped: the stream legitimately contains CR, the
// echoed prompt remainder and the occasional stray character, and an
// unpaired trailing digit is dealt with at the next stage.
func (b *RawBuffer) Nibbles(dst *NibbleBuffer) {
	dst.Reset()
	for _, c := range b.Bytes() {
		v, err := DecodeHexChar(c)
		if err != nil {
			continue
		}
		if !dst.Append(v) {
			// dst has the same capacity as the source buffer.
			panic("bytecodec: nibble buffer shorter than its source")
		}
	}
}

// FromNibbles consumes src two nibbles at a time. Any pairing failure,
// including a trailing unpaired nibble, aborts the conversion and leaves
// the receiver poisoned: it is reset and the caller must not use its
// contents until it has been repopulated.
func (b *ByteBuffer) FromNibbles(src *NibbleBuffer) error {
	b.Reset()
	nibbles := src.Bytes()
	for i := 0; i+1 < len(nibbles); i += 2 {
		v, err := CombineNibblePair(nibbles[i], nibbles[i+1])
		if err != nil {
			b.Reset()
			return err
		}
		if !b.Append(v) {
			panic("bytecodec: byte buffer shorter than its source")
		}
	}
	if len(nibbles)%2 != 0 {
		b.Reset()
		return fmt.Errorf("%w: odd number of nibbles (%d)", ErrNibblePair, len(nibbles))
	}
	return nil
}
