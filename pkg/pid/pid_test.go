package pid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// frame assembles a response the way the adapter produces it with ATH1 and
// the 8210F0 custom header: three header bytes, mode echo, PID echo,
// payload, additive checksum.
func frame(pid byte, payload ...byte) []byte {
	resp := append([]byte{0x82, 0xF0, 0x10, 0x61, pid}, payload...)
	var sum byte
	for _, b := range resp {
		sum += b
	}
	return append(resp, sum)
}

func TestEncodeRequest(t *testing.T) {
	tests := []struct {
		pid  byte
		want string
	}{
		{pid: 0x0C, want: "210C01\r"},
		{pid: 0x05, want: "210501\r"},
		{pid: 0x00, want: "210001\r"},
		{pid: 0xAF, want: "21AF01\r"},
	}
	for _, tt := range tests {
		got := EncodeRequest(tt.pid)
		assert.Equal(t, tt.want, string(got[:]), "pid 0x%02X", tt.pid)
	}
}

func TestValidateDecodesRPM(t *testing.T) {
	v, err := RPM.Validate(frame(0x0C, 0x1A, 0x00))
	require.NoError(t, err)
	assert.Equal(t, 1664.0, v)
}

func TestValidateDecodesCoolant(t *testing.T) {
	v, err := CoolantTemp.Validate(frame(0x05, 0x8C))
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)

	v, err = CoolantTemp.Validate(frame(0x05, 0x00))
	require.NoError(t, err)
	assert.Equal(t, -40.0, v)
}

func TestValidateRejectsWrongLength(t *testing.T) {
	short := frame(0x0C, 0x1A)
	_, err := RPM.Validate(short)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	long := frame(0x0C, 0x1A, 0x00, 0x00)
	_, err = RPM.Validate(long)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestValidateRejectsWrongPID(t *testing.T) {
	resp := frame(0x05, 0x1A, 0x00)
	_, err := RPM.Validate(resp)
	assert.ErrorIs(t, err, ErrPIDMismatch)
}

func TestValidateRejectsBadChecksum(t *testing.T) {
	resp := frame(0x0C, 0x1A, 0x00)
	resp[len(resp)-1]++
	_, err := RPM.Validate(resp)
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestValidateChecksOrder(t *testing.T) {
	// a response that is both too short and corrupted reports the length first
	resp := frame(0x0C, 0x1A)
	resp[len(resp)-1]++
	_, err := RPM.Validate(resp)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}
