package protocol

import (
	"fmt"
)

// Wire framing constants.
const (
	// Terminator ends every outbound command.
	Terminator = '\r'

	// ResponseEnd terminates multi-character responses.
	ResponseEnd = "\r\n"

	// AckChar is the single-character positive acknowledgment the pump
	// sends for simple commands.
	AckChar = '*'

	// NakChar is the single-character negative acknowledgment.
	NakChar = '#'
)

// Event messaging directives. Asynchronous status lines must be suppressed
// for the duration of a synchronous exchange; see the link package.
const (
	DisableEvents = "1xE0"
	EnableEvents  = "1xE1"
)

// Mode is a pump operational mode code.
type Mode byte

const (
	ModeVolumeOverTime Mode = 'G'
	ModeRPM            Mode = 'L'
	ModeFlowRate       Mode = 'M'
	ModeTime           Mode = 'N'
	ModeVolumeAtRate   Mode = 'O'
	ModeTimePause      Mode = 'P'
	ModeVolumePause    Mode = 'Q'
)

// ParseMode converts a single-character response field into a Mode.
func ParseMode(field string) (Mode, error) {
	if len(field) != 1 {
		return 0, fmt.Errorf("%w: mode field %q", ErrMalformed, field)
	}

	m := Mode(field[0])
	switch m {
	case ModeVolumeOverTime, ModeRPM, ModeFlowRate, ModeTime,
		ModeVolumeAtRate, ModeTimePause, ModeVolumePause:
		return m, nil
	default:
		return 0, fmt.Errorf("%w: unknown mode code %q", ErrMalformed, field)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeVolumeOverTime:
		return "vol over time"
	case ModeRPM:
		return "rpm"
	case ModeFlowRate:
		return "flow rate"
	case ModeTime:
		return "time"
	case ModeVolumeAtRate:
		return "vol at rate"
	case ModeTimePause:
		return "time pause"
	case ModeVolumePause:
		return "vol pause"
	default:
		return fmt.Sprintf("mode(0x%02X)", byte(m))
	}
}

// Rotation is a flow direction code.
type Rotation byte

const (
	Clockwise        Rotation = 'J'
	CounterClockwise Rotation = 'K'
)

// ParseRotation converts a single-character response field into a Rotation.
func ParseRotation(field string) (Rotation, error) {
	switch field {
	case "J":
		return Clockwise, nil
	case "K":
		return CounterClockwise, nil
	default:
		return 0, fmt.Errorf("%w: rotation field %q", ErrMalformed, field)
	}
}

func (r Rotation) String() string {
	switch r {
	case Clockwise:
		return "clockwise"
	case CounterClockwise:
		return "counterclockwise"
	default:
		return fmt.Sprintf("rotation(0x%02X)", byte(r))
	}
}

// Setpoint is a setpoint type code: whether a channel's rate setpoint is
// interpreted as RPM or as a flow rate.
type Setpoint byte

const (
	SetpointRPM      Setpoint = '0'
	SetpointFlowRate Setpoint = '1'
)

// ParseSetpoint converts a single-character response field into a Setpoint.
func ParseSetpoint(field string) (Setpoint, error) {
	switch field {
	case "0":
		return SetpointRPM, nil
	case "1":
		return SetpointFlowRate, nil
	default:
		return 0, fmt.Errorf("%w: setpoint field %q", ErrMalformed, field)
	}
}

func (s Setpoint) String() string {
	switch s {
	case SetpointRPM:
		return "rpm"
	case SetpointFlowRate:
		return "flow rate"
	default:
		return fmt.Sprintf("setpoint(0x%02X)", byte(s))
	}
}

// TubingDiameters lists the tubing inner diameters (mm) supported by the
// pump head, from the Reglo ICC manual.
var TubingDiameters = []float64{
	0.13, 0.19, 0.25, 0.38, 0.44, 0.51, 0.57, 0.64, 0.76, 0.89, 0.95, 1.02, 1.09,
	1.14, 1.22, 1.30, 1.43, 1.52, 1.65, 1.75, 1.85, 2.06, 2.29, 2.54, 2.79, 3.17,
}
