// Package pump is the high-level driver for the Ismatec Reglo ICC
// multi-channel peristaltic pump.
//
// A Pump wraps a link.Engine with typed per-channel getters and setters and
// the dispense helpers (continuous flow, volume at rate, volume over time,
// flow over time). Channel 0 addresses all channels for the operations the
// device broadcasts.
//
//	p, err := pump.Open("/dev/ttyUSB0")
//	if err != nil {
//		...
//	}
//	defer p.Close()
//
//	err = p.ContinuousFlow(1.5, 2) // 1.5 mL/min on channel 2
//
// Run state is tracked through the pump's asynchronous status lines and is
// eventually consistent; IsRunning reflects the last known state, not a
// live device query.
package pump
