package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testEngine() *Engine {
	return NewEngine(DefaultRegionalWeight, zap.NewNop().Sugar())
}

var testCoord = Coordinate{Lat: 45.4215, Lon: -75.6998}

func TestMergeBothAbsentFails(t *testing.T) {
	_, err := testEngine().Merge(testCoord, nil, nil)
	assert.ErrorIs(t, err, ErrAllSourcesFailed)
}

func TestMergeRegionalOnly(t *testing.T) {
	reg := &RegionalResult{
		Current: &RegionalCurrent{
			Temperature: Float(18.8),
			Humidity:    Float(75),
			Condition:   String("Mostly Cloudy"),
		},
		Periods: []ShortRangePeriod{{Name: "Monday night", Summary: "Clearing."}},
	}

	got, err := testEngine().Merge(testCoord, reg, nil)
	require.NoError(t, err)

	assert.Len(t, got.Current, 1)
	assert.Empty(t, got.Hourly)
	assert.Empty(t, got.Extended)
	assert.Len(t, got.ShortRange, 1)
	assert.Equal(t, SourceEnvironmentCanada, got.Sources.Primary)
	assert.Empty(t, got.Sources.Secondary)
	assert.Equal(t, ConfidenceRegionalOnly, got.Sources.Confidence)

	require.NotNil(t, got.Current[0].Temperature)
	assert.Equal(t, 19.0, *got.Current[0].Temperature) // integral after adaptation
}

func TestMergeGlobalOnlySwitchesPrimary(t *testing.T) {
	glob := &GlobalResult{
		Current: &GlobalCurrent{
			Temperature: Float(17.0),
			Humidity:    Float(74),
			PressureHPa: Float(1013.2),
			VisibilityM: Float(24100),
		},
		Hourly: []HourlyPoint{{Condition: "Slight rain"}},
		Daily:  []ExtendedDayForecast{{Date: "2026-09-01"}},
	}

	got, err := testEngine().Merge(testCoord, nil, glob)
	require.NoError(t, err)

	assert.Equal(t, SourceOpenMeteo, got.Sources.Primary)
	assert.Equal(t, ConfidenceGlobalOnly, got.Sources.Confidence)
	assert.Len(t, got.Hourly, 1)
	assert.Len(t, got.Extended, 1)
	assert.Empty(t, got.ShortRange)

	cur := got.Current[0]
	require.NotNil(t, cur.PressureKPa)
	assert.Equal(t, 101.3, *cur.PressureKPa) // hPa -> kPa
	require.NotNil(t, cur.VisibilityKm)
	assert.Equal(t, 24.1, *cur.VisibilityKm) // m -> km
}

func TestMergeBothWeightedAverage(t *testing.T) {
	reg := &RegionalResult{
		Current: &RegionalCurrent{
			Temperature:   Float(18.8),
			Humidity:      Float(75),
			WindSpeedKmh:  Float(20),
			Condition:     String("Mostly Cloudy"),
			WindDirection: String("NW"),
		},
	}
	glob := &GlobalResult{
		Current: &GlobalCurrent{
			Temperature:  Float(17.0),
			Humidity:     Float(74),
			WindSpeedKmh: Float(10),
			Condition:    String("Overcast"),
		},
	}

	got, err := testEngine().Merge(testCoord, reg, glob)
	require.NoError(t, err)

	assert.Equal(t, SourceEnvironmentCanada, got.Sources.Primary)
	assert.Equal(t, []string{SourceOpenMeteo}, got.Sources.Secondary)
	assert.Equal(t, ConfidenceBoth, got.Sources.Confidence)

	cur := got.Current[0]
	// round(18.8*0.7 + 17.0*0.3) = round(18.26) = 18
	require.NotNil(t, cur.Temperature)
	assert.Equal(t, 18.0, *cur.Temperature)
	// humidity stays at one decimal: 75*0.7 + 74*0.3 = 74.7
	require.NotNil(t, cur.Humidity)
	assert.Equal(t, 74.7, *cur.Humidity)
	// wind: 20*0.7 + 10*0.3 = 17
	require.NotNil(t, cur.Wind.SpeedKmh)
	assert.Equal(t, 17.0, *cur.Wind.SpeedKmh)
	// categoricals prefer regional
	require.NotNil(t, cur.Condition)
	assert.Equal(t, "Mostly Cloudy", *cur.Condition)
	require.NotNil(t, cur.Wind.Direction)
	assert.Equal(t, "NW", *cur.Wind.Direction)
}

func TestMergeCategoricalFallsBackToGlobal(t *testing.T) {
	reg := &RegionalResult{
		Current: &RegionalCurrent{Temperature: Float(12)},
	}
	glob := &GlobalResult{
		Current: &GlobalCurrent{
			Temperature:      Float(11),
			Condition:        String("Partly cloudy"),
			WindDirectionDeg: Float(315),
			PressureHPa:      Float(1008),
		},
	}

	got, err := testEngine().Merge(testCoord, reg, glob)
	require.NoError(t, err)

	cur := got.Current[0]
	require.NotNil(t, cur.Condition)
	assert.Equal(t, "Partly cloudy", *cur.Condition)
	require.NotNil(t, cur.Wind.Direction)
	assert.Equal(t, "NW", *cur.Wind.Direction) // 315° decoded
	require.NotNil(t, cur.PressureKPa)
	assert.Equal(t, 100.8, *cur.PressureKPa) // regional had none
}

func TestMergeSeriesNeverCrossMerged(t *testing.T) {
	reg := &RegionalResult{
		Current: &RegionalCurrent{Temperature: Float(10)},
		Periods: []ShortRangePeriod{{Name: "Tonight"}},
		Alerts:  []Alert{{Type: AlertTypeStaleData}},
	}
	glob := &GlobalResult{
		Current: &GlobalCurrent{Temperature: Float(11)},
		Hourly:  []HourlyPoint{{}, {}},
		Daily:   []ExtendedDayForecast{{}, {}, {}},
	}

	got, err := testEngine().Merge(testCoord, reg, glob)
	require.NoError(t, err)

	assert.Len(t, got.Hourly, 2)
	assert.Len(t, got.Extended, 3)
	assert.Len(t, got.ShortRange, 1)
	assert.Len(t, got.Alerts, 1)
}

func TestMergeHumidexDrivesFeelsLike(t *testing.T) {
	reg := &RegionalResult{
		Current: &RegionalCurrent{
			Temperature: Float(28),
			Humidex:     Float(35.4),
		},
	}
	got, err := testEngine().Merge(testCoord, reg, nil)
	require.NoError(t, err)

	cur := got.Current[0]
	require.NotNil(t, cur.FeelsLike)
	assert.Equal(t, 35.0, *cur.FeelsLike)
}

func TestCloneIsDeep(t *testing.T) {
	orig := &NormalizedWeather{
		Current: []CurrentConditions{{Temperature: Float(18)}},
		Hourly:  []HourlyPoint{{Temperature: Float(17)}},
	}
	cp := orig.Clone()
	*cp.Current[0].Temperature = 99
	*cp.Hourly[0].Temperature = 99

	assert.Equal(t, 18.0, *orig.Current[0].Temperature)
	assert.Equal(t, 17.0, *orig.Hourly[0].Temperature)
}
