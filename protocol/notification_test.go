package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNotification(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		channel int
		running bool
	}{
		{"channel started", "^U1", 1, true},
		{"channel stopped", "^X1", 1, false},
		{"high channel", "^U9", 9, true},
		{"channel zero", "^X0", 0, false},
		{"trailing CRLF stripped", "^U2\r\n", 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := ParseNotification(tt.line)
			require.True(t, ok)
			assert.Equal(t, tt.channel, n.Channel)
			assert.Equal(t, tt.running, n.Running)
		})
	}
}

func TestParseNotification_Rejects(t *testing.T) {
	lines := []string{
		"",
		"*",
		"^U",        // missing channel digit
		"^Ux",       // non-digit channel
		"^Y1",       // unknown prefix
		"U1",        // missing caret
		"^U12",      // too long
		"1.25",      // query response
		"REGLO ICC", // version payload
	}

	for _, line := range lines {
		_, ok := ParseNotification(line)
		assert.False(t, ok, "line %q must not parse as a notification", line)
		assert.False(t, IsNotification(line))
	}
}
