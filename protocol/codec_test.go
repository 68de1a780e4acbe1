package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeTime1(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		unit  TimeUnit
		want  string
	}{
		{"zero seconds", 0, Seconds, "0"},
		{"one second", 1, Seconds, "10"},
		{"fractional second", 1.5, Seconds, "15"},
		{"one minute", 1, Minutes, "600"},
		{"one hour", 1, Hours, "36000"},
		{"clamped to max", 1000, Hours, "35964000"},
		{"exactly max", 999, Hours, "35964000"},
		{"huge value clamps without wrapping", 1e300, Seconds, "35964000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeTime1(tt.value, tt.unit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("negative rejected", func(t *testing.T) {
		_, err := EncodeTime1(-1, Seconds)
		assert.ErrorIs(t, err, ErrOutOfRange)
	})

	t.Run("unknown unit rejected", func(t *testing.T) {
		_, err := EncodeTime1(1, TimeUnit('x'))
		assert.ErrorIs(t, err, ErrOutOfRange)
	})
}

func TestEncodeTime2(t *testing.T) {
	got, err := EncodeTime2(1, Seconds)
	require.NoError(t, err)
	assert.Equal(t, "00000010", got)
	assert.Len(t, got, 8)

	got, err = EncodeTime2(999, Hours)
	require.NoError(t, err)
	assert.Equal(t, "35964000", got)

	got, err = EncodeTime2(2.5, Minutes)
	require.NoError(t, err)
	assert.Equal(t, "00001500", got)
}

func TestTimeRoundTrip(t *testing.T) {
	values := []float64{0, 0.1, 1, 12.5, 90, 999}
	units := []TimeUnit{Seconds, Minutes, Hours}

	for _, u := range units {
		for _, v := range values {
			enc, err := EncodeTime1(v, u)
			require.NoError(t, err)

			dec, err := DecodeTime1(enc, u)
			require.NoError(t, err)
			assert.InDelta(t, v, dec, 0.1, "unit %c value %v", u, v)

			enc2, err := EncodeTime2(v, u)
			require.NoError(t, err)

			dec2, err := DecodeTime2(enc2, u)
			require.NoError(t, err)
			assert.Equal(t, dec, dec2)
		}
	}
}

func TestDecodeTime1_Malformed(t *testing.T) {
	_, err := DecodeTime1("12x0", Seconds)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeTime1("", Seconds)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEncodeVolume1(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{"small volume", 0.0012, "1200E-3"},
		{"unit volume", 1.0, "1000E+0"},
		{"zero", 0, "0000E+0"},
		{"large volume", 830.8, "8308E+2"},
		{"negative uses magnitude", -0.5, "5000E-1"},
		{"rounds to 3 significant digits", 1.2345, "1234E+0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeVolume1(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("exponent too wide", func(t *testing.T) {
		_, err := EncodeVolume1(1e12)
		assert.ErrorIs(t, err, ErrOutOfRange)

		_, err = EncodeVolume1(1e-12)
		assert.ErrorIs(t, err, ErrOutOfRange)
	})
}

func TestEncodeVolume2_MatchesVolume1WithoutSeparator(t *testing.T) {
	values := []float64{0.0012, 0.138, 1.0, 24.6, 830.8}

	for _, v := range values {
		v1, err := EncodeVolume1(v)
		require.NoError(t, err)

		v2, err := EncodeVolume2(v)
		require.NoError(t, err)

		assert.Equal(t, v1[:4], v2[:4], "mantissa digits must match for %v", v)
		assert.Equal(t, v1[5:], v2[4:], "exponent digits must match for %v", v)
		assert.Len(t, v2, len(v1)-1)
	}
}

func TestVolumeRoundTrip(t *testing.T) {
	values := []float64{0.0012, 0.05, 0.138, 1.02, 24.6, 830}

	for _, v := range values {
		enc1, err := EncodeVolume1(v)
		require.NoError(t, err)

		dec1, err := DecodeVolume1(enc1)
		require.NoError(t, err)
		assert.InEpsilon(t, v, dec1, 0.001, "volume1 %v", v)

		enc2, err := EncodeVolume2(v)
		require.NoError(t, err)

		dec2, err := DecodeVolume2(enc2)
		require.NoError(t, err)
		assert.Equal(t, dec1, dec2)
	}
}

func TestVolumeRoundTripZero(t *testing.T) {
	enc, err := EncodeVolume1(0)
	require.NoError(t, err)

	dec, err := DecodeVolume1(enc)
	require.NoError(t, err)
	assert.Zero(t, dec)
}

func TestDecodeVolume_Malformed(t *testing.T) {
	for _, field := range []string{"", "1200", "1200E", "1200X-3", "12E-3", "1200E-x"} {
		_, err := DecodeVolume1(field)
		assert.ErrorIs(t, err, ErrMalformed, "field %q", field)
	}

	for _, field := range []string{"", "1200", "120-3", "1200x3"} {
		_, err := DecodeVolume2(field)
		assert.ErrorIs(t, err, ErrMalformed, "field %q", field)
	}
}

func TestEncodeDiscrete2(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		want  string
	}{
		{"typical diameter", 1.02, "0102"},
		{"small diameter", 0.13, "0013"},
		{"trailing zero preserved", 1.30, "0130"},
		{"largest diameter", 3.17, "0317"},
		{"integer value", 25, "2500"},
		{"zero", 0, "0000"},
		{"max representable", 99.99, "9999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeDiscrete2(tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("too many digits", func(t *testing.T) {
		_, err := EncodeDiscrete2(100)
		assert.ErrorIs(t, err, ErrOutOfRange)
	})

	t.Run("huge value rejected without wrapping", func(t *testing.T) {
		_, err := EncodeDiscrete2(1e300)
		assert.ErrorIs(t, err, ErrOutOfRange)
	})

	t.Run("negative rejected", func(t *testing.T) {
		_, err := EncodeDiscrete2(-1.02)
		assert.ErrorIs(t, err, ErrOutOfRange)
	})
}

func TestDiscrete2RoundTrip_TubingTable(t *testing.T) {
	for _, d := range TubingDiameters {
		enc, err := EncodeDiscrete2(d)
		require.NoError(t, err)
		assert.Len(t, enc, 4)

		dec, err := DecodeDiscrete2(enc)
		require.NoError(t, err)
		assert.Equal(t, d, dec, "diameter %v", d)
	}
}

func TestEncodeDiscrete3(t *testing.T) {
	got, err := EncodeDiscrete3(0)
	require.NoError(t, err)
	assert.Equal(t, "000000", got)
	assert.Len(t, got, 6)

	got, err = EncodeDiscrete3(999999)
	require.NoError(t, err)
	assert.Equal(t, "999999", got)
	assert.Len(t, got, 6)

	got, err = EncodeDiscrete3(2400)
	require.NoError(t, err)
	assert.Equal(t, "002400", got)

	_, err = EncodeDiscrete3(1000000)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = EncodeDiscrete3(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestDiscrete3RoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 99, 2400, 999999} {
		enc, err := EncodeDiscrete3(n)
		require.NoError(t, err)

		dec, err := DecodeDiscrete3(enc)
		require.NoError(t, err)
		assert.Equal(t, n, dec)
	}
}

func TestDecodeDiscrete_Malformed(t *testing.T) {
	_, err := DecodeDiscrete2("12")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeDiscrete2("12x4")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeDiscrete3("123")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeDiscrete3("12345x")
	assert.ErrorIs(t, err, ErrMalformed)
}
