package weather

import (
	"go.uber.org/zap"
)

// DefaultRegionalWeight is the bias toward the regional source when both
// report a numeric field. Tunable, not derived from any external standard.
const DefaultRegionalWeight = 0.7

// Engine fuses the (possibly partial) outputs of both adapters into one
// NormalizedWeather.
type Engine struct {
	regionalWeight float64
	logger         *zap.SugaredLogger
}

// NewEngine creates a merge engine. A weight outside (0,1] falls back to
// DefaultRegionalWeight.
func NewEngine(regionalWeight float64, logger *zap.SugaredLogger) *Engine {
	if regionalWeight <= 0 || regionalWeight > 1 {
		regionalWeight = DefaultRegionalWeight
	}
	return &Engine{regionalWeight: regionalWeight, logger: logger}
}

// Merge produces one normalized result from whichever sources succeeded.
// Only the current-conditions record is actually fused; the four series are
// orthogonal per-source pass-throughs. Fails only when both inputs are nil.
func (e *Engine) Merge(coord Coordinate, reg *RegionalResult, glob *GlobalResult) (*NormalizedWeather, error) {
	if reg == nil && glob == nil {
		return nil, ErrAllSourcesFailed
	}

	out := &NormalizedWeather{
		Coordinate: coord,
		Hourly:     []HourlyPoint{},
		ShortRange: []ShortRangePeriod{},
		Extended:   []ExtendedDayForecast{},
		Alerts:     []Alert{},
	}

	switch {
	case reg != nil && glob != nil:
		out.Sources = SourceInfo{
			Primary:    SourceEnvironmentCanada,
			Secondary:  []string{SourceOpenMeteo},
			Confidence: ConfidenceBoth,
		}
	case reg != nil:
		e.logger.Debugw("merging with regional source only", "coord", coord.Key())
		out.Sources = SourceInfo{
			Primary:    SourceEnvironmentCanada,
			Confidence: ConfidenceRegionalOnly,
		}
	default:
		e.logger.Debugw("merging with global source only", "coord", coord.Key())
		out.Sources = SourceInfo{
			Primary:    SourceOpenMeteo,
			Confidence: ConfidenceGlobalOnly,
		}
	}

	if cur := e.mergeCurrent(reg, glob); cur != nil {
		out.Current = []CurrentConditions{*cur}
	} else {
		out.Current = []CurrentConditions{}
	}

	if glob != nil {
		out.Hourly = glob.Hourly
		out.Extended = glob.Daily
	}
	if reg != nil {
		out.ShortRange = reg.Periods
		out.Alerts = reg.Alerts
	}
	if out.Hourly == nil {
		out.Hourly = []HourlyPoint{}
	}
	if out.ShortRange == nil {
		out.ShortRange = []ShortRangePeriod{}
	}
	if out.Extended == nil {
		out.Extended = []ExtendedDayForecast{}
	}
	if out.Alerts == nil {
		out.Alerts = []Alert{}
	}
	return out, nil
}

func (e *Engine) mergeCurrent(reg *RegionalResult, glob *GlobalResult) *CurrentConditions {
	var rc *RegionalCurrent
	if reg != nil {
		rc = reg.Current
	}
	var gc *GlobalCurrent
	if glob != nil {
		gc = glob.Current
	}

	switch {
	case rc == nil && gc == nil:
		return nil
	case gc == nil:
		return e.fromRegional(rc)
	case rc == nil:
		return e.fromGlobal(gc)
	}

	// Both sources reported: weighted fusion of the numeric trio, regional
	// preference for everything categorical.
	cur := &CurrentConditions{}

	if t := AverageValues(rc.Temperature, gc.Temperature, e.regionalWeight); t != nil {
		cur.Temperature = Float(RoundWhole(*t))
	}
	cur.Humidity = AverageValues(rc.Humidity, gc.Humidity, e.regionalWeight)
	cur.Wind.SpeedKmh = AverageValues(rc.WindSpeedKmh, gc.WindSpeedKmh, e.regionalWeight)

	cur.Wind.Direction = rc.WindDirection
	if cur.Wind.Direction == nil && gc.WindDirectionDeg != nil {
		cur.Wind.Direction = String(compassDirection(*gc.WindDirectionDeg))
	}
	cur.Wind.GustKmh = rc.WindGustKmh
	if cur.Wind.GustKmh == nil {
		cur.Wind.GustKmh = gc.WindGustKmh
	}

	cur.Condition = rc.Condition
	if cur.Condition == nil {
		cur.Condition = gc.Condition
	}

	cur.PressureKPa = rc.PressureKPa
	cur.PressureTendency = rc.PressureTendency
	if cur.PressureKPa == nil && gc.PressureHPa != nil {
		cur.PressureKPa = Float(HPaToKPa(*gc.PressureHPa))
	}

	cur.VisibilityKm = rc.VisibilityKm
	if cur.VisibilityKm == nil && gc.VisibilityM != nil {
		cur.VisibilityKm = Float(MetresToKm(*gc.VisibilityM))
	}

	cur.DewPoint = rc.DewPoint
	cur.AirQualityIndex = rc.AirQualityIndex
	cur.Station = rc.Station
	cur.ObservedAt = rc.ObservedAt
	if cur.ObservedAt == nil {
		cur.ObservedAt = gc.ObservedAt
	}

	cur.FeelsLike = FeelsLike(cur.Temperature, cur.Humidity, cur.Wind.SpeedKmh,
		gc.ApparentTemp, rc.Humidex, rc.WindChill)
	return cur
}

// fromRegional adapts a regional-only observation without averaging.
func (e *Engine) fromRegional(rc *RegionalCurrent) *CurrentConditions {
	cur := &CurrentConditions{
		Humidity:         rc.Humidity,
		DewPoint:         rc.DewPoint,
		PressureKPa:      rc.PressureKPa,
		PressureTendency: rc.PressureTendency,
		VisibilityKm:     rc.VisibilityKm,
		AirQualityIndex:  rc.AirQualityIndex,
		Condition:        rc.Condition,
		Station:          rc.Station,
		ObservedAt:       rc.ObservedAt,
		Wind: Wind{
			SpeedKmh:  rc.WindSpeedKmh,
			GustKmh:   rc.WindGustKmh,
			Direction: rc.WindDirection,
		},
	}
	if rc.Temperature != nil {
		cur.Temperature = Float(RoundWhole(*rc.Temperature))
	}
	cur.FeelsLike = FeelsLike(rc.Temperature, rc.Humidity, rc.WindSpeedKmh,
		nil, rc.Humidex, rc.WindChill)
	return cur
}

// fromGlobal adapts a global-only observation, reconciling the source's
// native units (hPa pressure, metre visibility).
func (e *Engine) fromGlobal(gc *GlobalCurrent) *CurrentConditions {
	cur := &CurrentConditions{
		Humidity:   gc.Humidity,
		Condition:  gc.Condition,
		ObservedAt: gc.ObservedAt,
		Wind: Wind{
			SpeedKmh: gc.WindSpeedKmh,
			GustKmh:  gc.WindGustKmh,
		},
	}
	if gc.Temperature != nil {
		cur.Temperature = Float(RoundWhole(*gc.Temperature))
	}
	if gc.WindDirectionDeg != nil {
		cur.Wind.Direction = String(compassDirection(*gc.WindDirectionDeg))
	}
	if gc.PressureHPa != nil {
		cur.PressureKPa = Float(HPaToKPa(*gc.PressureHPa))
	}
	if gc.VisibilityM != nil {
		cur.VisibilityKm = Float(MetresToKm(*gc.VisibilityM))
	}
	cur.FeelsLike = FeelsLike(gc.Temperature, gc.Humidity, gc.WindSpeedKmh,
		gc.ApparentTemp, nil, nil)
	return cur
}

var compassPoints = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// compassDirection maps a bearing in degrees to a 16-point compass label.
func compassDirection(deg float64) string {
	for deg < 0 {
		deg += 360
	}
	idx := int((deg+11.25)/22.5) % 16
	return compassPoints[idx]
}
