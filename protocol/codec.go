package protocol

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Codec errors.
var (
	// ErrOutOfRange indicates a value that cannot be represented in the
	// target fixed-width field. Raised before any I/O occurs.
	ErrOutOfRange = errors.New("protocol: value out of range for field width")

	// ErrMalformed indicates a field that does not match the expected
	// fixed-width shape.
	ErrMalformed = errors.New("protocol: malformed field")
)

// MaxTimeTenths is the largest time value the pump accepts, in tenths of a
// second (999 hours).
const MaxTimeTenths = 35964000

// TimeUnit selects the unit of a duration passed to the time encoders.
type TimeUnit byte

const (
	Seconds TimeUnit = 's'
	Minutes TimeUnit = 'm'
	Hours   TimeUnit = 'h'
)

func (u TimeUnit) tenthsPerUnit() (float64, error) {
	switch u {
	case Seconds:
		return 10, nil
	case Minutes:
		return 600, nil
	case Hours:
		return 36000, nil
	default:
		return 0, fmt.Errorf("%w: unknown time unit %q", ErrOutOfRange, string(u))
	}
}

// EncodeTime1 converts a duration in the given unit to "time type 1": tenths
// of a second rendered as a decimal integer with no padding, clamped to
// MaxTimeTenths. Negative durations are rejected.
func EncodeTime1(value float64, unit TimeUnit) (string, error) {
	mult, err := unit.tenthsPerUnit()
	if err != nil {
		return "", err
	}

	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return "", fmt.Errorf("%w: time value %v", ErrOutOfRange, value)
	}

	// Clamp before converting: float64 products beyond int64 range would
	// otherwise wrap to a negative wire field.
	scaled := value * mult
	if scaled > MaxTimeTenths {
		scaled = MaxTimeTenths
	}

	return strconv.FormatInt(int64(scaled), 10), nil
}

// EncodeTime2 is EncodeTime1 left-padded with zeros to exactly 8 characters,
// for fields whose width is fixed by the wire format.
func EncodeTime2(value float64, unit TimeUnit) (string, error) {
	s, err := EncodeTime1(value, unit)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%08s", s), nil
}

// DecodeTime1 parses a "time type 1" field back into a duration expressed in
// the given unit. It is the inverse of EncodeTime1 within 0.1s resolution.
func DecodeTime1(field string, unit TimeUnit) (float64, error) {
	mult, err := unit.tenthsPerUnit()
	if err != nil {
		return 0, err
	}

	tenths, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: time field %q", ErrMalformed, field)
	}

	return float64(tenths) / mult, nil
}

// DecodeTime2 parses a zero-padded "time type 2" field. The padding is
// insignificant, so decoding is identical to DecodeTime1.
func DecodeTime2(field string, unit TimeUnit) (float64, error) {
	return DecodeTime1(field, unit)
}

// EncodeVolume1 converts the magnitude of value to "volume type 1": the
// four mantissa digits of the 3-significant-digit scientific representation,
// followed by 'E', the exponent sign, and a single exponent digit.
// For example, 0.0012 encodes as "1200E-3".
//
// The sign of value is ignored; flow direction is a separate protocol field
// carried by the caller.
func EncodeVolume1(value float64) (string, error) {
	mantissa, exp, err := volumeParts(value)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%sE%+d", mantissa, exp), nil
}

// EncodeVolume2 converts value to "volume type 2": identical to volume
// type 1 with the 'E' separator omitted. An undocumented device variant,
// byte-for-byte equal to EncodeVolume1 minus the separator.
func EncodeVolume2(value float64) (string, error) {
	s, err := EncodeVolume1(value)
	if err != nil {
		return "", err
	}

	return strings.Replace(s, "E", "", 1), nil
}

// volumeParts returns the 4 mantissa digits and the single-digit exponent of
// |value| in 3-significant-digit scientific notation.
func volumeParts(value float64) (string, int, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "", 0, fmt.Errorf("%w: volume value %v", ErrOutOfRange, value)
	}

	// "d.dddE±ee" with the decimal point at index 1 and 'e' at index 5.
	s := strconv.FormatFloat(math.Abs(value), 'e', 3, 64)

	mantissa := s[:1] + s[2:5]

	exp, err := strconv.Atoi(s[6:])
	if err != nil {
		return "", 0, fmt.Errorf("%w: volume value %v", ErrOutOfRange, value)
	}

	// The wire field has room for one exponent digit only.
	if exp < -9 || exp > 9 {
		return "", 0, fmt.Errorf("%w: volume %v exponent %d exceeds one digit", ErrOutOfRange, value, exp)
	}

	return mantissa, exp, nil
}

// DecodeVolume1 parses a "volume type 1" field ("mmmmEse") back into a
// float64. It is the inverse of EncodeVolume1 within 3 significant digits.
func DecodeVolume1(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if len(field) != 7 || field[4] != 'E' {
		return 0, fmt.Errorf("%w: volume field %q", ErrMalformed, field)
	}

	return decodeVolumeParts(field, field[:4], field[5:])
}

// DecodeVolume2 parses a "volume type 2" field ("mmmmse").
func DecodeVolume2(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if len(field) != 6 {
		return 0, fmt.Errorf("%w: volume field %q", ErrMalformed, field)
	}

	return decodeVolumeParts(field, field[:4], field[4:])
}

func decodeVolumeParts(field, mantissa, exponent string) (float64, error) {
	m, err := strconv.Atoi(mantissa)
	if err != nil {
		return 0, fmt.Errorf("%w: volume field %q", ErrMalformed, field)
	}

	if exponent[0] != '+' && exponent[0] != '-' {
		return 0, fmt.Errorf("%w: volume field %q", ErrMalformed, field)
	}

	exp, err := strconv.Atoi(exponent)
	if err != nil {
		return 0, fmt.Errorf("%w: volume field %q", ErrMalformed, field)
	}

	return float64(m) / 1000 * math.Pow10(exp), nil
}

// EncodeDiscrete2 converts value to "discrete type 2": the integer and
// fractional (hundredths) digits concatenated and zero-padded to four
// characters. A tubing diameter of 1.02 mm encodes as "0102". Values whose
// combined digit count exceeds four, or negative values, are rejected.
func EncodeDiscrete2(value float64) (string, error) {
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return "", fmt.Errorf("%w: discrete2 value %v", ErrOutOfRange, value)
	}

	// The device reads the field as hundredths, so the fractional part
	// contributes exactly two digits. Range-check in float space so that
	// values beyond int range cannot wrap during conversion.
	hundredths := math.Round(value * 100)
	if hundredths > 9999 {
		return "", fmt.Errorf("%w: discrete2 value %v needs more than 4 digits", ErrOutOfRange, value)
	}

	return fmt.Sprintf("%04d", int(hundredths)), nil
}

// DecodeDiscrete2 parses a "discrete type 2" field. The device interprets
// the four digits as hundredths, so "0102" decodes to 1.02.
func DecodeDiscrete2(field string) (float64, error) {
	field = strings.TrimSpace(field)
	if len(field) != 4 {
		return 0, fmt.Errorf("%w: discrete2 field %q", ErrMalformed, field)
	}

	n, err := strconv.Atoi(field)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: discrete2 field %q", ErrMalformed, field)
	}

	return float64(n) / 100, nil
}

// EncodeDiscrete3 converts value to "discrete type 3": six zero-padded
// base-10 characters. Values outside [0, 999999] are rejected.
func EncodeDiscrete3(value int) (string, error) {
	if value < 0 || value > 999999 {
		return "", fmt.Errorf("%w: discrete3 value %d outside [0, 999999]", ErrOutOfRange, value)
	}

	return fmt.Sprintf("%06d", value), nil
}

// DecodeDiscrete3 parses a "discrete type 3" field back into an integer.
func DecodeDiscrete3(field string) (int, error) {
	field = strings.TrimSpace(field)
	if len(field) != 6 {
		return 0, fmt.Errorf("%w: discrete3 field %q", ErrMalformed, field)
	}

	n, err := strconv.Atoi(field)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: discrete3 field %q", ErrMalformed, field)
	}

	return n, nil
}
