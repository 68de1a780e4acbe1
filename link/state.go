package link

// Channels returns the channel numbers known to this link, as discovered by
// the caller and recorded with SetChannels.
func (e *Engine) Channels() []int {
	chs, _ := e.channels.Load().([]int)

	return chs
}

// SetChannels records the addressable channel numbers of the pump and seeds
// the running-state cache for each with the given initial state.
func (e *Engine) SetChannels(channels []int, running bool) {
	chs := make([]int, len(channels))
	copy(chs, channels)
	e.channels.Store(chs)

	for _, ch := range chs {
		e.running.Store(ch, running)
	}
}

// IsRunning reports the last known running state of a channel. The cache is
// eventually consistent: it reflects commands issued through this link and
// notifications received, not an on-demand device query.
func (e *Engine) IsRunning(channel int) bool {
	running, _ := e.running.Load(channel)

	return running
}

// SetRunning records a running state for the given channels. With no
// channels, or the single channel 0, it applies to every known channel.
func (e *Engine) SetRunning(running bool, channels ...int) {
	if len(channels) == 0 || (len(channels) == 1 && channels[0] == 0) {
		channels = e.Channels()
	}

	for _, ch := range channels {
		e.running.Store(ch, running)
	}
}
