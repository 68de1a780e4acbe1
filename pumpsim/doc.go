// Package pumpsim provides an in-memory Reglo ICC pump behind the
// transport.Transport interface, for offline testing of the driver stack.
//
// The simulator keeps independent per-channel state (mode, rotation, rate
// and volume setpoints, tubing diameter), answers the device's query and
// command vocabulary, and models its event messaging: channel start/stop
// status lines are emitted only while event messaging is enabled, and are
// held back while it is suppressed.
package pumpsim
