package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNetworkAddress(t *testing.T) {
	tests := []struct {
		address string
		want    bool
	}{
		{"tcp://192.168.1.20:4001", true},
		{"tcp://gateway.local:4001", true},
		{"192.168.1.20:4001", true},
		{"gateway.local:4001", true},
		{"localhost:10001", true},
		{"/dev/ttyUSB0", false},
		{"/dev/serial/by-id/usb-FTDI_USB-RS232", false},
		{"COM3", false},
		{"", false},
		{":4001", false},                // no host
		{"192.168.1.20:notaport", false}, // non-numeric port
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNetworkAddress(tt.address))
		})
	}
}

func TestDial_EmptyAddress(t *testing.T) {
	_, err := Dial("", DefaultSettings())
	assert.Error(t, err)
}

func TestIsLineTerminated(t *testing.T) {
	assert.False(t, isLineTerminated(nil))
	assert.False(t, isLineTerminated([]byte("1.25")))
	assert.False(t, isLineTerminated([]byte("1.25\r")))
	assert.True(t, isLineTerminated([]byte("1.25\r\n")))
	assert.True(t, isLineTerminated([]byte("*")))
	assert.True(t, isLineTerminated([]byte("^U1\r\n")))
}

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	assert.Equal(t, 9600, s.BaudRate)
	assert.Equal(t, 8, s.DataBits)
	assert.Equal(t, ParityNone, s.Parity)
	assert.Equal(t, 1, s.StopBits)
	assert.NotNil(t, s.Logger)
}
