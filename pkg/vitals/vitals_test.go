package vitals

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTemperatureBoundaries(t *testing.T) {
	assert.Equal(t, 36.0, NormalizeTemperature(15))
	assert.Equal(t, 36.5, NormalizeTemperature(36.5))
	// 31 is not below the threshold so it passes through.
	assert.Equal(t, 31.0, NormalizeTemperature(31))
	assert.Equal(t, 30.0, NormalizeTemperature(30))
	assert.Equal(t, 37.0, NormalizeTemperature(23))
}

func TestNormalizeTemperatureRoundsHalfToEven(t *testing.T) {
	cases := []struct {
		raw  float64
		want float64
	}{
		{17, 36.2},
		{25, 37.2},
		{21, 36.8},
		{29, 37.8},
		{19, 36.5},
		{16, 36.1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeTemperature(tc.raw), "raw=%v", tc.raw)
	}
}

func TestRound1(t *testing.T) {
	cases := map[float64]float64{
		36.25:  36.2,
		36.75:  36.8,
		0.25:   0.2,
		0.35:   0.3,
		2.65:   2.6,
		33.333: 33.3,
		-1.25:  -1.2,
		50:     50,
	}
	for in, want := range cases {
		assert.Equal(t, want, Round1(in), "in=%v", in)
	}
	assert.True(t, math.IsInf(Round1(math.Inf(1)), 1))
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultRecord().Validate())

	zero := Record{CurrentPosture: PostureSupine}
	require.NoError(t, zero.Validate())

	rec := DefaultRecord()
	rec.LeftPct = -50
	err := rec.Validate()
	require.Error(t, err)
	assert.True(t, IsInvalidValue(err))
	var ie *InvalidValueError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "left_pct", ie.Field)

	rec = DefaultRecord()
	rec.SpO2 = math.NaN()
	assert.True(t, IsInvalidValue(rec.Validate()))

	rec = DefaultRecord()
	rec.HeartRate = math.Inf(1)
	assert.True(t, IsInvalidValue(rec.Validate()))
}

func TestNormalizeTemperatureSensorRange(t *testing.T) {
	for raw := 15.0; raw < 30; raw += 0.25 {
		got := NormalizeTemperature(raw)
		require.GreaterOrEqual(t, got, 36.0, "raw=%v", raw)
		require.LessOrEqual(t, got, 38.0, "raw=%v", raw)
	}
	for _, raw := range []float64{30, 35.2, 37, 39.9, 42} {
		require.Equal(t, raw, NormalizeTemperature(raw))
	}
}

func TestRenormalizePosturesSumsToHundred(t *testing.T) {
	triples := [][3]float64{
		{10, 10, 10},
		{1, 2, 3},
		{0.1, 0, 99},
		{45, 45, 45},
		{33.3, 33.3, 33.3},
	}
	for _, tr := range triples {
		l, r, s := RenormalizePostures(tr[0], tr[1], tr[2])
		require.InDelta(t, 100, l+r+s, 1e-6, "input %v", tr)
	}

	l, r, s := RenormalizePostures(10, 10, 10)
	assert.Equal(t, 33.3, Round1(l))
	assert.Equal(t, 33.3, Round1(r))
	assert.Equal(t, 33.3, Round1(s))
}

func TestRenormalizePosturesZeroTotal(t *testing.T) {
	l, r, s := RenormalizePostures(0, 0, 0)
	assert.Zero(t, l)
	assert.Zero(t, r)
	assert.Zero(t, s)
}

func TestDefaultRecordNormalizeIsStable(t *testing.T) {
	rec := DefaultRecord().Normalize()
	assert.Equal(t, DefaultRecord(), rec)
}

func TestRecordNormalize(t *testing.T) {
	rec := Record{
		HeartRate:      80,
		SpO2:           95,
		Temperature:    23,
		CurrentPosture: PostureLeft,
		LeftPct:        20,
		RightPct:       20,
		SupinePct:      40,
	}.Normalize()

	assert.Equal(t, 37.0, rec.Temperature)
	assert.InDelta(t, 25, rec.LeftPct, 1e-9)
	assert.InDelta(t, 50, rec.SupinePct, 1e-9)
	assert.False(t, math.IsNaN(rec.RightPct))
}
