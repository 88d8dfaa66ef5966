package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAverageValuesBothMissing(t *testing.T) {
	assert.Nil(t, AverageValues(nil, nil, 0.7))
}

func TestAverageValuesOneSide(t *testing.T) {
	v := Float(18.8)
	got := AverageValues(v, nil, 0.7)
	require.NotNil(t, got)
	assert.Equal(t, 18.8, *got)

	got = AverageValues(nil, v, 0.3)
	require.NotNil(t, got)
	assert.Equal(t, 18.8, *got)
}

func TestAverageValuesFullWeightRoundsToOneDecimal(t *testing.T) {
	got := AverageValues(Float(18.84), Float(99), 1.0)
	require.NotNil(t, got)
	assert.Equal(t, 18.8, *got)
}

func TestAverageValuesWeighted(t *testing.T) {
	// 18.8*0.7 + 17.0*0.3 = 18.26 -> 18.3 at one decimal.
	got := AverageValues(Float(18.8), Float(17.0), 0.7)
	require.NotNil(t, got)
	assert.Equal(t, 18.3, *got)
}

func TestUnitConversions(t *testing.T) {
	assert.Equal(t, 101.3, HPaToKPa(1013.2))
	assert.Equal(t, 24.1, MetresToKm(24100))
}

func TestCoordinateKeyFixedPrecision(t *testing.T) {
	c := Coordinate{Lat: 45.4215, Lon: -75.6998}
	assert.Equal(t, "45.4215,-75.6998", c.Key())
}

func TestCoordinateValidate(t *testing.T) {
	assert.NoError(t, Coordinate{Lat: 90, Lon: -180}.Validate())
	assert.ErrorIs(t, Coordinate{Lat: 91, Lon: 0}.Validate(), ErrInvalidCoordinate)
	assert.ErrorIs(t, Coordinate{Lat: 0, Lon: -181}.Validate(), ErrInvalidCoordinate)
}
