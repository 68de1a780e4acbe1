// Package link implements the communication engine that owns a single
// physical connection to a Reglo ICC pump.
//
// The pump mixes two traffic classes on one wire: synchronous
// command/response exchanges initiated by the host, and unsolicited status
// lines ("^U<d>" / "^X<d>") the pump emits whenever a channel starts or
// stops. The Engine demultiplexes the two without losing or misattributing
// either.
//
// # Protocol loop
//
// Exactly one worker goroutine per Engine runs the protocol loop; all
// transport I/O happens on that worker. Each iteration either serves one
// queued exchange or polls for an unsolicited line:
//
//  1. Drain: the "disable event messages" directive is sent and
//     acknowledged, then any stray buffered bytes are flushed. Status lines
//     emitted mid-response would otherwise corrupt framing.
//  2. Exchange: the command is written CR-terminated and exactly one
//     response line is read under the reply timeout, then handed to the
//     waiting caller.
//  3. Re-enable: the "enable event messages" directive is sent and
//     acknowledged.
//
// The protocol carries no request identifiers, so correlation is strictly
// positional: exchanges are served FIFO and a second command never reaches
// the wire before the first response (or error) has been delivered.
// Status lines seen inside the drain/re-enable window cannot be attributed
// reliably and are ignored; this is a protocol limitation, not a defect.
//
// # Running state
//
// The Engine maintains a per-channel running-state cache fed by
// notifications (and primed by callers around start/stop commands, since
// the pump offers no reliable synchronous run-status query). Reads are
// eventually consistent with respect to callers' own start/stop commands.
package link
