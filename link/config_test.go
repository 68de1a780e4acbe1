package link

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluidline/regloicc/transport"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig("/dev/ttyUSB0")
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", cfg.Address())
	assert.Equal(t, DefaultPollTimeout, cfg.PollTimeout())
	assert.Equal(t, DefaultReplyTimeout, cfg.ReplyTimeout())
	assert.Equal(t, DefaultSendTimeout, cfg.sendTimeout)
	assert.Equal(t, DefaultQueueSize, cfg.queueSize)
	assert.Equal(t, 9600, cfg.settings.BaudRate)
	assert.Equal(t, transport.ParityNone, cfg.settings.Parity)
	assert.NotNil(t, cfg.GetLogger())
}

func TestNewConfigOptions(t *testing.T) {
	cfg, err := NewConfig("10.0.0.5:4001",
		WithBaudRate(115200),
		WithDataBits(7),
		WithParity(transport.ParityEven),
		WithStopBits(2),
		WithPollTimeout(25*time.Millisecond),
		WithReplyTimeout(time.Second),
		WithSendTimeout(5*time.Second),
		WithQueueSize(32),
		WithConnectTimeout(10*time.Second),
	)
	require.NoError(t, err)

	assert.Equal(t, 115200, cfg.settings.BaudRate)
	assert.Equal(t, 7, cfg.settings.DataBits)
	assert.Equal(t, transport.ParityEven, cfg.settings.Parity)
	assert.Equal(t, 2, cfg.settings.StopBits)
	assert.Equal(t, 25*time.Millisecond, cfg.PollTimeout())
	assert.Equal(t, time.Second, cfg.ReplyTimeout())
	assert.Equal(t, 5*time.Second, cfg.sendTimeout)
	assert.Equal(t, 32, cfg.queueSize)
	assert.Equal(t, 10*time.Second, cfg.settings.ConnectTimeout)
}

func TestNewConfigInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"zero baud rate", WithBaudRate(0)},
		{"data bits too small", WithDataBits(4)},
		{"data bits too large", WithDataBits(9)},
		{"bad parity", WithParity(transport.Parity('X'))},
		{"bad stop bits", WithStopBits(3)},
		{"zero poll timeout", WithPollTimeout(0)},
		{"negative reply timeout", WithReplyTimeout(-time.Second)},
		{"zero send timeout", WithSendTimeout(0)},
		{"zero queue size", WithQueueSize(0)},
		{"zero connect timeout", WithConnectTimeout(0)},
		{"nil logger", WithLogger(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig("/dev/ttyUSB0", tt.opt)
			assert.Error(t, err)
		})
	}
}
