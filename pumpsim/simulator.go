package pumpsim

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fluidline/regloicc/logger"
	"github.com/fluidline/regloicc/protocol"
	"github.com/fluidline/regloicc/transport"
)

// Version is the model/firmware/head string reported for "1#".
const Version = "REGLO ICC 0208 306"

// maxVolumeSetpoint is the volume above which the simulated pump refuses to
// start a volume-based mode.
const maxVolumeSetpoint = 1256.0

// channelState is the independent state of one pump channel.
type channelState struct {
	flowRate float64 // mL/min
	rotation protocol.Rotation
	mode     protocol.Mode
	diameter float64 // mm
	setpoint protocol.Setpoint
	rpm      float64
	volume   float64 // mL
	runtime  float64 // minutes
	cycles   int
	running  bool
}

func defaultChannelState() channelState {
	return channelState{
		rotation: protocol.Clockwise,
		mode:     protocol.ModeRPM,
		diameter: protocol.TubingDiameters[0],
		setpoint: protocol.SetpointRPM,
	}
}

// Simulator is an in-memory pump. It implements transport.Transport, so a
// link engine can be opened directly on it.
type Simulator struct {
	mu sync.Mutex

	channels []channelState

	eventMessaging    bool
	channelAddressing bool

	// pending holds status lines produced while event messaging was
	// suppressed, released when it is re-enabled.
	pending []string

	data      chan byte
	closed    chan struct{}
	closeOnce sync.Once

	logger logger.Logger
}

var _ transport.Transport = (*Simulator)(nil)

// New creates a simulator with the given number of channels (the hardware
// ships with 2, 3 or 4).
func New(channels int) *Simulator {
	if channels < 1 || channels > 9 {
		channels = 4
	}

	s := &Simulator{
		channels: make([]channelState, channels),
		data:     make(chan byte, 8192),
		closed:   make(chan struct{}),
		logger:   logger.GetLogger(),
	}
	for i := range s.channels {
		s.channels[i] = defaultChannelState()
	}

	return s
}

// ChannelCount returns the number of simulated channels.
func (s *Simulator) ChannelCount() int {
	return len(s.channels)
}

// Running reports whether the given channel is pumping.
func (s *Simulator) Running(channel int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if channel < 1 || channel > len(s.channels) {
		return false
	}

	return s.channels[channel-1].running
}

// Write parses one framed command and queues the device's reply.
func (s *Simulator) Write(p []byte) error {
	select {
	case <-s.closed:
		return transport.ErrClosed
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cmd := strings.TrimSuffix(string(p), string(protocol.Terminator))
	s.handle(cmd)

	return nil
}

func (s *Simulator) Read(n int, timeout time.Duration) ([]byte, error) {
	buf := make([]byte, 0, n)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for len(buf) < n {
		select {
		case b := <-s.data:
			buf = append(buf, b)
		case <-timer.C:
			return buf, transport.ErrTimeout
		case <-s.closed:
			return buf, transport.ErrClosed
		}
	}

	return buf, nil
}

func (s *Simulator) ReadLine(timeout time.Duration) (string, error) {
	var line []byte

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if n := len(line); n > 0 {
			if line[n-1] == protocol.AckChar || (n >= 2 && string(line[n-2:]) == protocol.ResponseEnd) {
				return string(line), nil
			}
		}

		select {
		case b := <-s.data:
			line = append(line, b)
		case <-timer.C:
			return string(line), transport.ErrTimeout
		case <-s.closed:
			return string(line), transport.ErrClosed
		}
	}
}

func (s *Simulator) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
	})

	return nil
}

// --- Device behavior ---

// handle dispatches one unframed command. Status lines held back during
// suppression are released only after the command's own reply, so the reply
// framing stays intact. Callers hold s.mu.
func (s *Simulator) handle(cmd string) {
	defer s.flushPending()

	switch {
	case cmd == "":
		s.nak()
		return

	case cmd[0] == '@': // assign pump address
		s.ack()
		return

	case cmd == "10": // reset user-configurable settings
		for i := range s.channels {
			s.channels[i].rotation = protocol.Clockwise
			s.channels[i].flowRate = 0
			s.channels[i].diameter = protocol.TubingDiameters[0]
			s.channels[i].running = false
		}
		s.ack()
		return

	case cmd == "1~":
		s.respondBool(s.channelAddressing)
		return

	case strings.HasPrefix(cmd, "1~"):
		s.channelAddressing = cmd[len(cmd)-1] == '1'
		s.ack()
		return

	case cmd == "1xA":
		s.respond(strconv.Itoa(len(s.channels)))
		return

	case cmd == "1#":
		s.respond(Version)
		return
	}

	channel := int(cmd[0] - '0')
	if channel < 0 || channel > len(s.channels) {
		s.nak()
		return
	}

	op := cmd[1:]

	// Channel 0 broadcasts a command to every channel; queries do not
	// broadcast.
	if channel == 0 {
		for ch := 1; ch <= len(s.channels); ch++ {
			if !s.applyCommand(ch, op) {
				s.nakRun()
				return
			}
		}
		s.ack()

		return
	}

	if s.answerQuery(channel, op) {
		return
	}

	if s.applyCommand(channel, op) {
		s.ack()
	} else {
		s.nakRun()
	}
}

// answerQuery serves op as a query on the given channel and reports whether
// it was one.
func (s *Simulator) answerQuery(channel int, op string) bool {
	st := &s.channels[channel-1]

	switch op {
	case "f":
		s.respond(mustVolume1(st.flowRate))
	case "xD":
		s.respond(string(byte(st.rotation)))
	case "xM":
		s.respond(string(byte(st.mode)))
	case "xf":
		s.respond(string(byte(st.setpoint)))
	case "xE":
		s.respondBool(s.eventMessaging)
	case "x!":
		s.respond("8")
	case "+":
		s.respond(strconv.FormatFloat(st.diameter, 'f', 2, 64) + " mm")
	case "S":
		s.respond(strconv.FormatFloat(st.rpm, 'f', 2, 64))
	case "v":
		s.respond(mustVolume1(st.volume))
	case "xT":
		field, err := protocol.EncodeTime1(st.runtime, protocol.Minutes)
		if err != nil {
			field = "0"
		}
		s.respond(field)
	case "xe":
		s.respond(s.runFailure(st))
	case "?", "!":
		// Calibrated and theoretical max flow rate for the default and
		// the 0.19 mm tubing, per the pump head tables.
		if st.diameter == 0.19 {
			s.respond("0.281 ml/min")
		} else {
			s.respond("0.138 ml/min")
		}
	default:
		return false
	}

	return true
}

// applyCommand serves op as a state-changing command on the given channel.
// It returns false only for a start the pump refuses.
func (s *Simulator) applyCommand(channel int, op string) bool {
	st := &s.channels[channel-1]

	switch {
	case op == "J":
		st.rotation = protocol.Clockwise
	case op == "K":
		st.rotation = protocol.CounterClockwise

	case op == "H":
		if !s.willRun(st) {
			return false
		}
		st.running = true
		s.notify(channel, true)

	case op == "I":
		if st.running {
			st.running = false
			s.notify(channel, false)
		}

	case isModeCode(op):
		st.mode = protocol.Mode(op[0])

	case strings.HasPrefix(op, "xE"):
		s.setEventMessaging(op[len(op)-1] == '1')

	case strings.HasPrefix(op, "xf"):
		if sp, err := protocol.ParseSetpoint(op[2:]); err == nil {
			st.setpoint = sp
		}

	case strings.HasPrefix(op, "+"):
		if v, err := protocol.DecodeDiscrete2(op[1:]); err == nil {
			st.diameter = v
		}

	case strings.HasPrefix(op, "S"):
		if v, err := protocol.DecodeDiscrete3(op[1:]); err == nil {
			st.rpm = float64(v) / 100
		}

	case strings.HasPrefix(op, "f"):
		if v, err := protocol.DecodeVolume2(op[1:]); err == nil {
			st.flowRate = v
		}

	case strings.HasPrefix(op, "v"):
		if v, err := protocol.DecodeVolume2(op[1:]); err == nil {
			st.volume = v
		}

	case strings.HasPrefix(op, "xT"):
		if v, err := protocol.DecodeTime2(op[2:], protocol.Minutes); err == nil {
			st.runtime = v
		}

	default:
		s.logger.Debug("pumpsim: unrecognized command", "channel", channel, "op", op)
	}

	return true
}

// willRun mirrors the hardware's start checks: a volume-pause cycle count of
// zero, a zero flow rate in flow rate mode, or an overlarge volume setpoint
// all refuse the start.
func (s *Simulator) willRun(st *channelState) bool {
	switch {
	case st.mode == protocol.ModeVolumePause && st.cycles == 0:
		return false
	case st.mode == protocol.ModeFlowRate && st.flowRate == 0:
		return false
	case isVolumeMode(st.mode) && st.volume >= maxVolumeSetpoint:
		return false
	default:
		return true
	}
}

// runFailure returns the "cannot run" diagnostic for a channel: a reason
// code and the offending limit as a volume field.
func (s *Simulator) runFailure(st *channelState) string {
	switch {
	case st.mode == protocol.ModeVolumePause && st.cycles == 0:
		return "C 0000E+1"
	case st.mode == protocol.ModeFlowRate && st.flowRate == 0:
		return "R 1386E-1"
	case isVolumeMode(st.mode) && st.volume >= maxVolumeSetpoint:
		return "V 8308E+3"
	default:
		return "* 0000E+0"
	}
}

func (s *Simulator) setEventMessaging(enabled bool) {
	s.eventMessaging = enabled
}

func (s *Simulator) flushPending() {
	if !s.eventMessaging || len(s.pending) == 0 {
		return
	}

	for _, line := range s.pending {
		s.push(line)
	}
	s.pending = nil
}

// notify emits a channel status line, or holds it back while event
// messaging is suppressed.
func (s *Simulator) notify(channel int, running bool) {
	prefix := "^X"
	if running {
		prefix = "^U"
	}

	line := fmt.Sprintf("%s%d%s", prefix, channel, protocol.ResponseEnd)
	if !s.eventMessaging {
		s.pending = append(s.pending, line)
		return
	}

	s.push(line)
}

func (s *Simulator) ack() {
	s.push(string(protocol.AckChar))
}

func (s *Simulator) nak() {
	s.respond(string(protocol.NakChar))
}

// nakRun is the pump's refusal to start.
func (s *Simulator) nakRun() {
	s.respond("-")
}

func (s *Simulator) respond(body string) {
	s.push(body + protocol.ResponseEnd)
}

func (s *Simulator) respondBool(v bool) {
	if v {
		s.respond("1")
	} else {
		s.respond("0")
	}
}

func (s *Simulator) push(text string) {
	for i := 0; i < len(text); i++ {
		select {
		case s.data <- text[i]:
		default:
			s.logger.Warn("pumpsim: output buffer full, dropping", "text", text)
			return
		}
	}
}

func isModeCode(op string) bool {
	if len(op) != 1 {
		return false
	}

	_, err := protocol.ParseMode(op)

	return err == nil
}

func isVolumeMode(m protocol.Mode) bool {
	switch m {
	case protocol.ModeVolumeAtRate, protocol.ModeVolumeOverTime, protocol.ModeVolumePause:
		return true
	default:
		return false
	}
}

func mustVolume1(value float64) string {
	field, err := protocol.EncodeVolume1(value)
	if err != nil {
		return "0000E+0"
	}

	return field
}
