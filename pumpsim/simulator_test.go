package pumpsim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluidline/regloicc/transport"
)

const readTimeout = 100 * time.Millisecond

func exchange(t *testing.T, sim *Simulator, cmd string) string {
	t.Helper()

	require.NoError(t, sim.Write([]byte(cmd+"\r")))

	line, err := sim.ReadLine(readTimeout)
	require.NoError(t, err)

	return line
}

func TestSimulatorQueries(t *testing.T) {
	sim := New(4)
	defer sim.Close()

	assert.Equal(t, "4\r\n", exchange(t, sim, "1xA"))
	assert.Equal(t, Version+"\r\n", exchange(t, sim, "1#"))
	assert.Equal(t, "8\r\n", exchange(t, sim, "2x!"))
	assert.Equal(t, "J\r\n", exchange(t, sim, "1xD"))
	assert.Equal(t, "L\r\n", exchange(t, sim, "1xM"))
	assert.Equal(t, "0.13 mm\r\n", exchange(t, sim, "3+"))
}

func TestSimulatorCommandsChangeState(t *testing.T) {
	sim := New(4)
	defer sim.Close()

	assert.Equal(t, "*", exchange(t, sim, "2K"))
	assert.Equal(t, "K\r\n", exchange(t, sim, "2xD"))

	assert.Equal(t, "*", exchange(t, sim, "2+0102"))
	assert.Equal(t, "1.02 mm\r\n", exchange(t, sim, "2+"))

	assert.Equal(t, "*", exchange(t, sim, "2S004250"))
	assert.Equal(t, "42.50\r\n", exchange(t, sim, "2S"))

	// Reset restores defaults on every channel.
	assert.Equal(t, "*", exchange(t, sim, "10"))
	assert.Equal(t, "J\r\n", exchange(t, sim, "2xD"))
	assert.Equal(t, "0.13 mm\r\n", exchange(t, sim, "2+"))
}

func TestSimulatorBroadcast(t *testing.T) {
	sim := New(3)
	defer sim.Close()

	assert.Equal(t, "*", exchange(t, sim, "0K"))
	for ch := 1; ch <= 3; ch++ {
		assert.Equal(t, "K\r\n", exchange(t, sim, string(byte('0'+ch))+"xD"))
	}
}

func TestSimulatorStartRefusals(t *testing.T) {
	sim := New(4)
	defer sim.Close()

	// Flow rate mode with a zero rate.
	assert.Equal(t, "*", exchange(t, sim, "1M"))
	assert.Equal(t, "-\r\n", exchange(t, sim, "1H"))
	assert.False(t, sim.Running(1))
	assert.Equal(t, "R 1386E-1\r\n", exchange(t, sim, "1xe"))

	// Volume pause mode with a zero cycle count.
	assert.Equal(t, "*", exchange(t, sim, "2Q"))
	assert.Equal(t, "-\r\n", exchange(t, sim, "2H"))
	assert.Equal(t, "C 0000E+1\r\n", exchange(t, sim, "2xe"))

	// Volume setpoint over the maximum.
	assert.Equal(t, "*", exchange(t, sim, "3O"))
	assert.Equal(t, "*", exchange(t, sim, "3v9999+3"))
	assert.Equal(t, "-\r\n", exchange(t, sim, "3H"))
	assert.Equal(t, "V 8308E+3\r\n", exchange(t, sim, "3xe"))
}

func TestSimulatorEventSuppression(t *testing.T) {
	sim := New(4)
	defer sim.Close()

	// Default RPM mode starts freely. Events are disabled, so the status
	// line is held back.
	assert.Equal(t, "*", exchange(t, sim, "1H"))
	assert.True(t, sim.Running(1))

	_, err := sim.ReadLine(20 * time.Millisecond)
	assert.ErrorIs(t, err, transport.ErrTimeout)

	// Re-enabling releases the held status line after the ack.
	assert.Equal(t, "*", exchange(t, sim, "1xE1"))

	line, err := sim.ReadLine(readTimeout)
	require.NoError(t, err)
	assert.Equal(t, "^U1\r\n", line)

	// With events enabled, a stop emits immediately after the ack.
	assert.Equal(t, "*", exchange(t, sim, "1I"))
	line, err = sim.ReadLine(readTimeout)
	require.NoError(t, err)
	assert.Equal(t, "^X1\r\n", line)
}

func TestSimulatorUnknownCommand(t *testing.T) {
	sim := New(4)
	defer sim.Close()

	assert.Equal(t, "#\r\n", exchange(t, sim, "9f"))
	assert.Equal(t, "#\r\n", exchange(t, sim, ""))
}
