// Package protocol implements the wire vocabulary of the Reglo ICC
// multi-channel peristaltic pump: the fixed-width numeric field encodings
// used in command payloads, the mode/rotation/setpoint code tables, and the
// parsing of unsolicited channel status notifications.
//
// # Field encodings
//
// The pump's line protocol packs numeric parameters into fixed-width ASCII
// fields:
//
//   - Time type 1: tenths of a second as a plain decimal integer, clamped to
//     35964000 (999 hours).
//   - Time type 2: time type 1 left-padded with zeros to 8 characters.
//   - Volume type 1: three-significant-digit scientific notation "mmmmEse",
//     e.g. 1.200e-2 is encoded as "1200E-2" with the decimal point inferred
//     after the first mantissa digit.
//   - Volume type 2: volume type 1 with the 'E' separator removed. This
//     variant is undocumented but confirmed on hardware.
//   - Discrete type 2: four zero-padded base-10 characters.
//   - Discrete type 3: six zero-padded base-10 characters.
//
// All functions in this package are pure; no I/O is performed. Encoders fail
// with an error wrapping ErrOutOfRange before any bytes would reach the wire.
//
// # Notifications
//
// When event messaging is enabled the pump emits unsolicited lines of the
// form "^U<d>" (channel <d> started) and "^X<d>" (channel <d> stopped),
// interleaved with command/response traffic on the same link. See
// ParseNotification.
package protocol
