package protocol

import "strings"

// Notification prefixes for unsolicited channel status lines.
const (
	channelStartedPrefix = "^U"
	channelStoppedPrefix = "^X"
)

// Notification is a decoded unsolicited status line: a channel either
// started or stopped pumping.
type Notification struct {
	Channel int
	Running bool
}

// ParseNotification decodes an unsolicited status line of the form "^U<d>"
// (channel started) or "^X<d>" (channel stopped), where <d> is a single
// ASCII decimal digit. It reports ok=false for any other line, including
// responses and garbage; callers decide how to handle those.
func ParseNotification(line string) (Notification, bool) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) != 3 {
		return Notification{}, false
	}

	var running bool
	switch line[:2] {
	case channelStartedPrefix:
		running = true
	case channelStoppedPrefix:
		running = false
	default:
		return Notification{}, false
	}

	d := line[2]
	if d < '0' || d > '9' {
		return Notification{}, false
	}

	return Notification{Channel: int(d - '0'), Running: running}, true
}

// IsNotification reports whether line is an unsolicited channel status line.
func IsNotification(line string) bool {
	_, ok := ParseNotification(line)
	return ok
}
