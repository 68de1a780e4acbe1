package pump

import (
	"fmt"
	"math"

	"github.com/fluidline/regloicc/protocol"
)

// ContinuousFlow starts continuous pumping at rate (mL/min) on a channel.
// Channel 0 starts all channels together at the lowest shared maximum rate.
// A negative rate reverses the flow direction.
func (p *Pump) ContinuousFlow(rate float64, channel int) error {
	if err := p.validChannel(channel, true); err != nil {
		return err
	}

	max, err := p.maxRate(channel)
	if err != nil {
		return err
	}

	if err := p.channelCommand(channel, string(byte(protocol.ModeFlowRate))); err != nil {
		return err
	}

	if err := p.setDirection(channel, rate); err != nil {
		return err
	}

	if err := p.setRateField(channel, clampRate(rate, max)); err != nil {
		return err
	}

	return p.start(channel)
}

// DispenseVolumeAtRate dispenses vol (mL) at rate (mL/min) on a channel.
// Channel 0 dispenses on all channels. Negative values reverse the flow
// direction; the volume sent to the device is always positive.
func (p *Pump) DispenseVolumeAtRate(vol, rate float64, channel int) error {
	if err := p.validChannel(channel, true); err != nil {
		return err
	}

	max, err := p.maxRate(channel)
	if err != nil {
		return err
	}

	if err := p.channelCommand(channel, string(byte(protocol.ModeVolumeAtRate))); err != nil {
		return err
	}

	if vol < 0 {
		vol, rate = -vol, -rate
	}

	if err := p.setDirection(channel, rate); err != nil {
		return err
	}

	if err := p.setRateField(channel, clampRate(rate, max)); err != nil {
		return err
	}

	if err := p.setVolumeField(channel, vol); err != nil {
		return err
	}

	return p.start(channel)
}

// DispenseVolumeOverTime dispenses vol (mL) over the given time (minutes)
// on a channel. Channel 0 dispenses on all channels. The pump will not
// start if the time is too short for the volume.
func (p *Pump) DispenseVolumeOverTime(vol, minutes float64, channel int) error {
	if err := p.validChannel(channel, true); err != nil {
		return err
	}

	if err := p.channelCommand(channel, string(byte(protocol.ModeVolumeOverTime))); err != nil {
		return err
	}

	if err := p.setDirection(channel, vol); err != nil {
		return err
	}

	if err := p.setVolumeField(channel, math.Abs(vol)); err != nil {
		return err
	}

	if err := p.setTimeField(channel, minutes); err != nil {
		return err
	}

	return p.start(channel)
}

// DispenseFlowOverTime pumps at rate (mL/min) for the given time (minutes)
// on a channel. Channel 0 dispenses on all channels.
func (p *Pump) DispenseFlowOverTime(rate, minutes float64, channel int) error {
	if err := p.validChannel(channel, true); err != nil {
		return err
	}

	if err := p.setDirection(channel, rate); err != nil {
		return err
	}

	// Select flow rate mode before time mode, otherwise the time mode runs
	// on the RPM setpoint.
	if err := p.channelCommand(channel, string(byte(protocol.ModeFlowRate))); err != nil {
		return err
	}

	if err := p.channelCommand(channel, string(byte(protocol.ModeTime))); err != nil {
		return err
	}

	if err := p.setRateField(channel, math.Abs(rate)); err != nil {
		return err
	}

	if err := p.setTimeField(channel, minutes); err != nil {
		return err
	}

	return p.start(channel)
}

// maxRate returns the rate ceiling for a dispense: the channel's theoretical
// maximum, or across all channels the lowest one so a broadcast start stays
// within every channel's range.
func (p *Pump) maxRate(channel int) (float64, error) {
	if channel != 0 {
		return p.MaxTheoreticalFlowRate(channel)
	}

	lowest := math.Inf(1)
	for _, ch := range p.Channels() {
		r, err := p.MaxTheoreticalFlowRate(ch)
		if err != nil {
			return 0, err
		}
		lowest = math.Min(lowest, r)
	}

	if math.IsInf(lowest, 1) {
		return 0, fmt.Errorf("%w: no channels discovered", ErrChannel)
	}

	return lowest, nil
}

// setDirection maps the sign of a rate or volume onto the rotation command.
func (p *Pump) setDirection(channel int, signed float64) error {
	r := protocol.Clockwise
	if signed < 0 {
		r = protocol.CounterClockwise
	}

	return p.channelCommand(channel, string(byte(r)))
}

func (p *Pump) setRateField(channel int, mlPerMin float64) error {
	field, err := protocol.EncodeVolume2(math.Abs(mlPerMin))
	if err != nil {
		return err
	}

	_, err = p.engine.Query(fmt.Sprintf("%df%s", channel, field))

	return err
}

func (p *Pump) setVolumeField(channel int, ml float64) error {
	field, err := protocol.EncodeVolume2(ml)
	if err != nil {
		return err
	}

	_, err = p.engine.Query(fmt.Sprintf("%dv%s", channel, field))

	return err
}

func (p *Pump) setTimeField(channel int, minutes float64) error {
	field, err := protocol.EncodeTime2(minutes, protocol.Minutes)
	if err != nil {
		return err
	}

	_, err = p.engine.Query(fmt.Sprintf("%dxT%s", channel, field))

	return err
}

// start primes the run-state cache and starts the channel. Priming first
// means callers polling IsRunning right after a dispense call see the
// channel as running even before the status line arrives.
func (p *Pump) start(channel int) error {
	p.engine.SetRunning(true, channel)

	ok, err := p.engine.Command(fmt.Sprintf("%dH", channel))
	if err != nil {
		p.engine.SetRunning(false, channel)

		return err
	}

	if !ok {
		p.engine.SetRunning(false, channel)

		return fmt.Errorf("%w: channel %d", ErrCannotRun, channel)
	}

	return nil
}

func clampRate(rate, max float64) float64 {
	if math.Abs(rate) > max {
		return max
	}

	return math.Abs(rate)
}
