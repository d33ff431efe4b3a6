package bytecodec

import (
	"errors"
	"math"
)

var (
	ErrNoDecimalPoint = errors.New("voltage response has no decimal point")
	ErrTooManyDigits  = errors.New("voltage response has too many digits")
)

const maxVoltageDigits = 4

// ParseVoltage extracts a fixed-point reading from a plain ASCII adapter
// response such as "12.6V\r\r". Up to four digits are collected along with
// the position of the decimal point; everything else (the trailing 'V',
// carriage returns) is skipped. The value is rebuilt most significant digit
// first and rescaled so the decimal point lands where it was seen.
func ParseVoltage(b *RawBuffer) (float64, error) {
	var digits [maxVoltageDigits]byte
	n := 0
	decimalIndex := -1

	for _, c := range b.Bytes() {
		switch {
		case c >= '0' && c <= '9':
			if n >= maxVoltageDigits {
				return 0, ErrTooManyDigits
			}
			digits[n] = c - '0'
			n++
		case c == '.':
			decimalIndex = n
		}
	}
	if decimalIndex < 0 {
		return 0, ErrNoDecimalPoint
	}

	var value float64
	multiplier := 1.0
	for _, d := range digits {
		value += float64(d) * multiplier
		multiplier /= 10
	}
	for i := 0; i < decimalIndex-1; i++ {
		value *= 10
	}
	return value, nil
}

// FormatFixedPoint renders the decimal places placeEnd..placeStart of value
// into buf as ASCII, inserting a '.' when place -1 is within range. Place 0
// is the ones digit, place 2 the hundreds, place -1 the tenths. Digits are
// emitted least significant first and reversed in place. The caller must
// provide at least placeStart-placeEnd+2 bytes. Returns the number of bytes
// written, so the rendered text is buf[:n].
func FormatFixedPoint(value float64, buf []byte, placeStart, placeEnd int) int {
	if placeStart < placeEnd {
		panic("bytecodec: placeStart must be the most significant place")
	}
	n := 0
	for place := placeEnd; place <= placeStart; place++ {
		digit := byte(math.Mod(value/math.Pow(10, float64(place)), 10))
		buf[n] = '0' + digit
		n++
		if place == -1 {
			buf[n] = '.'
			n++
		}
	}
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return n
}
