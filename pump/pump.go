package pump

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fluidline/regloicc/link"
	"github.com/fluidline/regloicc/logger"
	"github.com/fluidline/regloicc/protocol"
	"github.com/fluidline/regloicc/transport"
)

var (
	// ErrChannel indicates a channel number outside the pump's channel set.
	ErrChannel = errors.New("pump: channel out of range")

	// ErrRejected indicates the pump refused a command.
	ErrRejected = errors.New("pump: command rejected")

	// ErrCannotRun indicates the pump refused to start a channel with its
	// current settings. RunFailureReason reports why.
	ErrCannotRun = errors.New("pump: channel cannot run with current settings")
)

// Pump is a single Reglo ICC pump on one physical link.
type Pump struct {
	engine *link.Engine
	logger logger.Logger
}

// Open dials the pump at the given address and initializes it: assigns the
// pump address, resets user settings, enables independent channel
// addressing, discovers the channel count, enables event messaging, and
// stops all channels.
func Open(address string, opts ...link.Option) (*Pump, error) {
	e, err := link.Open(address, opts...)
	if err != nil {
		return nil, err
	}

	return setup(e)
}

// OpenTransport initializes a pump on an already established transport.
func OpenTransport(tr transport.Transport, opts ...link.Option) (*Pump, error) {
	e, err := link.OpenTransport(tr, opts...)
	if err != nil {
		return nil, err
	}

	return setup(e)
}

func setup(e *link.Engine) (*Pump, error) {
	p := &Pump{
		engine: e,
		logger: logger.GetLogger(),
	}

	init := []string{"@1", "10", "1~1"}
	for _, cmd := range init {
		if _, err := e.Command(cmd); err != nil {
			_ = e.Close()

			return nil, fmt.Errorf("pump: init %q: %w", cmd, err)
		}
	}

	// Channel count. A garbled reply leaves zero channels rather than
	// failing the whole session; channel-addressed calls then fail fast.
	count := 0
	if resp, err := e.Query("1xA"); err == nil {
		if n, err := strconv.Atoi(resp); err == nil {
			count = n
		}
	} else {
		_ = e.Close()

		return nil, fmt.Errorf("pump: channel discovery: %w", err)
	}

	if _, err := e.Command(protocol.EnableEvents); err != nil {
		_ = e.Close()

		return nil, fmt.Errorf("pump: enable event messaging: %w", err)
	}

	channels := make([]int, count)
	for i := range channels {
		channels[i] = i + 1
	}
	e.SetChannels(channels, false)

	if err := p.Stop(0); err != nil && !errors.Is(err, ErrRejected) {
		_ = e.Close()

		return nil, err
	}

	p.logger.Info("pump: initialized", "channels", count)

	return p, nil
}

// Close releases the link. In-flight operations resolve with an error.
func (p *Pump) Close() error {
	return p.engine.Close()
}

// Channels returns the pump's channel numbers, 1-based.
func (p *Pump) Channels() []int {
	return p.engine.Channels()
}

// RegisterNotificationHandler forwards channel start/stop events. Handlers
// run on the link worker and must not block.
func (p *Pump) RegisterNotificationHandler(fn link.NotificationHandler) {
	p.engine.RegisterNotificationHandler(fn)
}

// IsRunning reports the last known running state of a channel.
func (p *Pump) IsRunning(channel int) bool {
	return p.engine.IsRunning(channel)
}

// Version returns the pump model, firmware version, and head type code.
func (p *Pump) Version() (string, error) {
	return p.engine.Query("1#")
}

// ProtocolVersion returns the serial protocol version.
func (p *Pump) ProtocolVersion() (int, error) {
	resp, err := p.engine.Query("1x!")
	if err != nil {
		return 0, err
	}

	v, err := strconv.Atoi(resp)
	if err != nil {
		return 0, fmt.Errorf("pump: protocol version %q: %w", resp, err)
	}

	return v, nil
}

// ResetDefaults resets all user-configurable settings to factory values.
func (p *Pump) ResetDefaults() error {
	return p.command("10")
}

// FlowRate returns the flow rate setpoint of a channel in mL/min.
func (p *Pump) FlowRate(channel int) (float64, error) {
	resp, err := p.channelQuery(channel, "f")
	if err != nil {
		return 0, err
	}

	return protocol.DecodeVolume1(resp)
}

// SetFlowRate sets the flow rate setpoint of a channel in mL/min.
func (p *Pump) SetFlowRate(channel int, mlPerMin float64) error {
	field, err := protocol.EncodeVolume2(mlPerMin)
	if err != nil {
		return err
	}

	// The device answers a rate setpoint with the value it accepted, not a
	// bare acknowledgment.
	_, err = p.channelQuery(channel, "f"+field)

	return err
}

// MaxFlowRate returns the highest calibrated flow rate the channel supports
// with its current tubing, in mL/min.
func (p *Pump) MaxFlowRate(channel int) (float64, error) {
	resp, err := p.channelQuery(channel, "!")
	if err != nil {
		return 0, err
	}

	return parseRateField(resp)
}

// MaxTheoreticalFlowRate returns the uncalibrated maximum flow rate of the
// channel, in mL/min.
func (p *Pump) MaxTheoreticalFlowRate(channel int) (float64, error) {
	resp, err := p.channelQuery(channel, "?")
	if err != nil {
		return 0, err
	}

	return parseRateField(resp)
}

// TubingDiameter returns the configured tubing inner diameter in mm.
func (p *Pump) TubingDiameter(channel int) (float64, error) {
	resp, err := p.channelQuery(channel, "+")
	if err != nil {
		return 0, err
	}

	return parseRateField(resp)
}

// SetTubingDiameter sets the tubing inner diameter in mm. Channel 0 sets it
// on every channel.
func (p *Pump) SetTubingDiameter(channel int, mm float64) error {
	field, err := protocol.EncodeDiscrete2(mm)
	if err != nil {
		return err
	}

	if channel == 0 {
		for _, ch := range p.Channels() {
			if err := p.channelCommand(ch, "+"+field); err != nil {
				return err
			}
		}

		return nil
	}

	return p.channelCommand(channel, "+"+field)
}

// Rotation returns the flow direction of a channel.
func (p *Pump) Rotation(channel int) (protocol.Rotation, error) {
	resp, err := p.channelQuery(channel, "xD")
	if err != nil {
		return 0, err
	}

	return protocol.ParseRotation(resp)
}

// SetRotation sets the flow direction of a channel.
func (p *Pump) SetRotation(channel int, r protocol.Rotation) error {
	return p.channelCommand(channel, string(byte(r)))
}

// Mode returns the operational mode of a channel.
func (p *Pump) Mode(channel int) (protocol.Mode, error) {
	resp, err := p.channelQuery(channel, "xM")
	if err != nil {
		return 0, err
	}

	return protocol.ParseMode(resp)
}

// SetMode sets the operational mode of a channel.
func (p *Pump) SetMode(channel int, m protocol.Mode) error {
	return p.channelCommand(channel, string(byte(m)))
}

// Speed returns the speed setpoint of a channel in RPM.
func (p *Pump) Speed(channel int) (float64, error) {
	resp, err := p.channelQuery(channel, "S")
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(resp), 64)
	if err != nil {
		return 0, fmt.Errorf("pump: speed field %q: %w", resp, err)
	}

	return v, nil
}

// SetSpeed sets the speed setpoint of a channel in RPM, to 0.01 resolution.
func (p *Pump) SetSpeed(channel int, rpm float64) error {
	field, err := protocol.EncodeDiscrete3(int(math.Round(rpm * 100)))
	if err != nil {
		return err
	}

	return p.channelCommand(channel, "S"+field)
}

// Volume returns the volume setpoint of a channel in mL.
func (p *Pump) Volume(channel int) (float64, error) {
	resp, err := p.channelQuery(channel, "v")
	if err != nil {
		return 0, err
	}

	return protocol.DecodeVolume1(resp)
}

// SetVolume sets the volume setpoint of a channel in mL.
func (p *Pump) SetVolume(channel int, ml float64) error {
	field, err := protocol.EncodeVolume2(ml)
	if err != nil {
		return err
	}

	_, err = p.channelQuery(channel, "v"+field)

	return err
}

// Runtime returns the runtime setpoint of a channel in minutes.
func (p *Pump) Runtime(channel int) (float64, error) {
	resp, err := p.channelQuery(channel, "xT")
	if err != nil {
		return 0, err
	}

	return protocol.DecodeTime1(resp, protocol.Minutes)
}

// SetRuntime sets the runtime setpoint of a channel in minutes, to 0.1s
// resolution.
func (p *Pump) SetRuntime(channel int, minutes float64) error {
	field, err := protocol.EncodeTime2(minutes, protocol.Minutes)
	if err != nil {
		return err
	}

	_, err = p.channelQuery(channel, "xT"+field)

	return err
}

// SetpointType reports whether a channel's rate setpoint is interpreted as
// RPM or as a flow rate.
func (p *Pump) SetpointType(channel int) (protocol.Setpoint, error) {
	resp, err := p.channelQuery(channel, "xf")
	if err != nil {
		return 0, err
	}

	return protocol.ParseSetpoint(resp)
}

// SetSetpointType selects RPM or flow rate interpretation for a channel's
// rate setpoint.
func (p *Pump) SetSetpointType(channel int, sp protocol.Setpoint) error {
	return p.channelCommand(channel, "xf"+string(byte(sp)))
}

// EventMessaging reports whether asynchronous status lines are enabled.
// The link suspends them for the duration of every exchange, including
// this query, so the device answers with the suspended state and this
// normally reads false.
func (p *Pump) EventMessaging() (bool, error) {
	return p.boolQuery("1xE")
}

// SetEventMessaging enables or disables asynchronous status lines. Note the
// link re-enables them after every exchange to keep run-state tracking
// alive; disabling here lasts only until the next command.
func (p *Pump) SetEventMessaging(enabled bool) error {
	cmd := protocol.DisableEvents
	if enabled {
		cmd = protocol.EnableEvents
	}

	return p.command(cmd)
}

// ChannelAddressing reports whether independent channel addressing is
// enabled.
func (p *Pump) ChannelAddressing() (bool, error) {
	return p.boolQuery("1~")
}

// SetChannelAddressing enables or disables independent channel addressing.
func (p *Pump) SetChannelAddressing(enabled bool) error {
	cmd := "1~0"
	if enabled {
		cmd = "1~1"
	}

	return p.command(cmd)
}

// Start starts a channel (0 starts all) and reports whether the pump
// accepted the start. A false return with nil error means the channel
// cannot run with its current settings; see RunFailureReason.
func (p *Pump) Start(channel int) (bool, error) {
	if err := p.validChannel(channel, true); err != nil {
		return false, err
	}

	ok, err := p.engine.Command(fmt.Sprintf("%dH", channel))
	if err != nil {
		return false, err
	}

	if ok {
		p.engine.SetRunning(true, channel)
	}

	return ok, nil
}

// Stop stops a channel (0 stops all). The stop status line is suppressed
// during the exchange itself, so the run-state cache is updated directly.
func (p *Pump) Stop(channel int) error {
	if err := p.validChannel(channel, true); err != nil {
		return err
	}

	p.engine.SetRunning(false, channel)

	return p.command(fmt.Sprintf("%dI", channel))
}

// RunFailureReason returns why a channel refused to start: a reason code
// ('C' zero cycle count, 'R' zero flow rate, 'V' volume setpoint over the
// maximum) and the offending limit value.
func (p *Pump) RunFailureReason(channel int) (byte, float64, error) {
	resp, err := p.channelQuery(channel, "xe")
	if err != nil {
		return 0, 0, err
	}

	fields := strings.Fields(resp)
	if len(fields) != 2 || len(fields[0]) != 1 {
		return 0, 0, fmt.Errorf("%w: run failure field %q", protocol.ErrMalformed, resp)
	}

	limit, err := protocol.DecodeVolume1(fields[1])
	if err != nil {
		return 0, 0, err
	}

	return fields[0][0], limit, nil
}

// --- Helpers ---

func (p *Pump) validChannel(channel int, allowAll bool) error {
	if channel == 0 && allowAll {
		return nil
	}

	for _, ch := range p.Channels() {
		if ch == channel {
			return nil
		}
	}

	return fmt.Errorf("%w: %d", ErrChannel, channel)
}

// channelQuery runs a query addressed to one channel.
func (p *Pump) channelQuery(channel int, op string) (string, error) {
	if err := p.validChannel(channel, false); err != nil {
		return "", err
	}

	return p.engine.Query(fmt.Sprintf("%d%s", channel, op))
}

// channelCommand runs an acknowledged command addressed to one channel
// (0 broadcasts).
func (p *Pump) channelCommand(channel int, op string) error {
	if err := p.validChannel(channel, true); err != nil {
		return err
	}

	return p.command(fmt.Sprintf("%d%s", channel, op))
}

// command runs a raw command and converts a negative acknowledgment into
// ErrRejected.
func (p *Pump) command(payload string) error {
	ok, err := p.engine.Command(payload)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("%w: %q", ErrRejected, payload)
	}

	return nil
}

func (p *Pump) boolQuery(payload string) (bool, error) {
	resp, err := p.engine.Query(payload)
	if err != nil {
		return false, err
	}

	return resp == "1", nil
}

// parseRateField extracts the numeric value from fields like "0.138 ml/min"
// or "1.02 mm".
func parseRateField(resp string) (float64, error) {
	fields := strings.Fields(resp)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: rate field %q", protocol.ErrMalformed, resp)
	}

	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: rate field %q", protocol.ErrMalformed, resp)
	}

	return v, nil
}
