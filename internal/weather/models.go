package weather

import (
	"fmt"
	"time"
)

// Source names as they appear in SourceInfo.
const (
	SourceEnvironmentCanada = "Environment Canada"
	SourceOpenMeteo         = "Open-Meteo"
)

// Confidence levels by source combination.
const (
	ConfidenceBoth         = 0.95
	ConfidenceRegionalOnly = 0.90
	ConfidenceGlobalOnly   = 0.80
)

// Coordinate is a validated geographic point. Its Key is the identity used
// for cache and adapter keying.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Key returns the canonical fixed-precision key for this coordinate.
func (c Coordinate) Key() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}

// Validate checks the coordinate is within geographic bounds.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90,90]", ErrInvalidCoordinate, c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180,180]", ErrInvalidCoordinate, c.Lon)
	}
	return nil
}

// Wind groups the wind-related observation fields.
type Wind struct {
	SpeedKmh  *float64 `json:"speedKmh,omitempty"`
	GustKmh   *float64 `json:"gustKmh,omitempty"`
	Direction *string  `json:"direction,omitempty"`
}

// CurrentConditions is the single fused observation record. Every numeric
// field is nullable; absence means the contributing source(s) did not report
// it, never zero.
type CurrentConditions struct {
	Temperature      *float64   `json:"temperature,omitempty"` // °C, integral once merged
	FeelsLike        *float64   `json:"feelsLike,omitempty"`   // °C, integral
	Humidity         *float64   `json:"humidity,omitempty"`    // %
	DewPoint         *float64   `json:"dewPoint,omitempty"`    // °C
	Wind             Wind       `json:"wind"`
	PressureKPa      *float64   `json:"pressureKPa,omitempty"`
	PressureTendency *string    `json:"pressureTendency,omitempty"`
	VisibilityKm     *float64   `json:"visibilityKm,omitempty"`
	AirQualityIndex  *float64   `json:"airQualityIndex,omitempty"`
	Condition        *string    `json:"condition,omitempty"`
	Station          *string    `json:"station,omitempty"`
	ObservedAt       *time.Time `json:"observedAt,omitempty"`
}

// HourlyPoint is one entry in the next-24h series, global source only.
type HourlyPoint struct {
	Time              time.Time `json:"time"`
	Temperature       *float64  `json:"temperature,omitempty"`
	FeelsLike         *float64  `json:"feelsLike,omitempty"`
	Condition         string    `json:"condition"`
	PrecipProbability *float64  `json:"precipProbability,omitempty"` // %
	PrecipMm          *float64  `json:"precipMm,omitempty"`
	WindSpeedKmh      *float64  `json:"windSpeedKmh,omitempty"`
	WindDirectionDeg  *float64  `json:"windDirectionDeg,omitempty"`
	PressureHPa       *float64  `json:"pressureHPa,omitempty"`
	CloudCover        *float64  `json:"cloudCover,omitempty"` // %
	VisibilityKm      *float64  `json:"visibilityKm,omitempty"`
	UVIndex           *float64  `json:"uvIndex,omitempty"`
}

// ShortRangePeriod is one named forecast period from the regional feed,
// e.g. "Monday night". The single temperature is tagged high or low.
type ShortRangePeriod struct {
	Name              string   `json:"name"`
	Date              *string  `json:"date,omitempty"`
	Temperature       *float64 `json:"temperature,omitempty"`
	TemperatureType   string   `json:"temperatureType,omitempty"` // "high" or "low"
	Summary           string   `json:"summary"`
	PrecipProbability *float64 `json:"precipProbability,omitempty"` // %
	WindSummary       *string  `json:"windSummary,omitempty"`
}

// ExtendedDayForecast is one day of the up-to-14-day series, global source only.
type ExtendedDayForecast struct {
	Date              string     `json:"date"`
	TemperatureMax    *float64   `json:"temperatureMax,omitempty"`
	TemperatureMin    *float64   `json:"temperatureMin,omitempty"`
	FeelsLikeMax      *float64   `json:"feelsLikeMax,omitempty"`
	FeelsLikeMin      *float64   `json:"feelsLikeMin,omitempty"`
	Condition         string     `json:"condition"`
	PrecipSumMm       *float64   `json:"precipSumMm,omitempty"`
	PrecipProbability *float64   `json:"precipProbability,omitempty"` // %
	WindMaxKmh        *float64   `json:"windMaxKmh,omitempty"`
	GustMaxKmh        *float64   `json:"gustMaxKmh,omitempty"`
	WindDirectionDeg  *float64   `json:"windDirectionDeg,omitempty"`
	UVIndexMax        *float64   `json:"uvIndexMax,omitempty"`
	Sunrise           *time.Time `json:"sunrise,omitempty"`
	Sunset            *time.Time `json:"sunset,omitempty"`
	DaylightSec       *float64   `json:"daylightSec,omitempty"`
	SunshineSec       *float64   `json:"sunshineSec,omitempty"`
}

// Alert is a free-form warning attached to a normalized result. Today the
// only producer is the regional adapter's stale-observation check.
type Alert struct {
	Type     string    `json:"type"`
	Severity string    `json:"severity"`
	Message  string    `json:"message"`
	IssuedAt time.Time `json:"issuedAt"`
}

// AlertTypeStaleData marks a regional observation older than the freshness threshold.
const AlertTypeStaleData = "stale_data"

// SourceInfo records which upstreams contributed and with what confidence.
type SourceInfo struct {
	Primary    string   `json:"primary"`
	Secondary  []string `json:"secondary,omitempty"`
	Confidence float64  `json:"confidence"`
}

// NormalizedWeather is the aggregate produced by the merge engine. At least
// one upstream must have contributed; it is never built from total failure.
type NormalizedWeather struct {
	Coordinate Coordinate            `json:"coordinate"`
	Current    []CurrentConditions   `json:"current"` // 0 or 1 entries
	Hourly     []HourlyPoint         `json:"hourly"`
	ShortRange []ShortRangePeriod    `json:"shortRange"`
	Extended   []ExtendedDayForecast `json:"extended"`
	Alerts     []Alert               `json:"alerts"`
	Sources    SourceInfo            `json:"sources"`
}

// Clone returns a deep copy safe to hand to callers while the refresh task
// keeps replacing cache entries.
func (n *NormalizedWeather) Clone() *NormalizedWeather {
	if n == nil {
		return nil
	}
	out := &NormalizedWeather{
		Coordinate: n.Coordinate,
		Sources: SourceInfo{
			Primary:    n.Sources.Primary,
			Confidence: n.Sources.Confidence,
		},
	}
	if n.Sources.Secondary != nil {
		out.Sources.Secondary = append([]string(nil), n.Sources.Secondary...)
	}
	if n.Current != nil {
		out.Current = make([]CurrentConditions, 0, len(n.Current))
		for _, c := range n.Current {
			out.Current = append(out.Current, c.clone())
		}
	}
	if n.Hourly != nil {
		out.Hourly = make([]HourlyPoint, 0, len(n.Hourly))
		for _, h := range n.Hourly {
			out.Hourly = append(out.Hourly, h.clone())
		}
	}
	if n.ShortRange != nil {
		out.ShortRange = make([]ShortRangePeriod, 0, len(n.ShortRange))
		for _, p := range n.ShortRange {
			out.ShortRange = append(out.ShortRange, p.clone())
		}
	}
	if n.Extended != nil {
		out.Extended = make([]ExtendedDayForecast, 0, len(n.Extended))
		for _, d := range n.Extended {
			out.Extended = append(out.Extended, d.clone())
		}
	}
	if n.Alerts != nil {
		out.Alerts = append([]Alert{}, n.Alerts...)
	}
	return out
}

func (c CurrentConditions) clone() CurrentConditions {
	c.Temperature = cloneFloat(c.Temperature)
	c.FeelsLike = cloneFloat(c.FeelsLike)
	c.Humidity = cloneFloat(c.Humidity)
	c.DewPoint = cloneFloat(c.DewPoint)
	c.Wind.SpeedKmh = cloneFloat(c.Wind.SpeedKmh)
	c.Wind.GustKmh = cloneFloat(c.Wind.GustKmh)
	c.Wind.Direction = cloneString(c.Wind.Direction)
	c.PressureKPa = cloneFloat(c.PressureKPa)
	c.PressureTendency = cloneString(c.PressureTendency)
	c.VisibilityKm = cloneFloat(c.VisibilityKm)
	c.AirQualityIndex = cloneFloat(c.AirQualityIndex)
	c.Condition = cloneString(c.Condition)
	c.Station = cloneString(c.Station)
	c.ObservedAt = cloneTime(c.ObservedAt)
	return c
}

func (h HourlyPoint) clone() HourlyPoint {
	h.Temperature = cloneFloat(h.Temperature)
	h.FeelsLike = cloneFloat(h.FeelsLike)
	h.PrecipProbability = cloneFloat(h.PrecipProbability)
	h.PrecipMm = cloneFloat(h.PrecipMm)
	h.WindSpeedKmh = cloneFloat(h.WindSpeedKmh)
	h.WindDirectionDeg = cloneFloat(h.WindDirectionDeg)
	h.PressureHPa = cloneFloat(h.PressureHPa)
	h.CloudCover = cloneFloat(h.CloudCover)
	h.VisibilityKm = cloneFloat(h.VisibilityKm)
	h.UVIndex = cloneFloat(h.UVIndex)
	return h
}

func (p ShortRangePeriod) clone() ShortRangePeriod {
	p.Date = cloneString(p.Date)
	p.Temperature = cloneFloat(p.Temperature)
	p.PrecipProbability = cloneFloat(p.PrecipProbability)
	p.WindSummary = cloneString(p.WindSummary)
	return p
}

func (d ExtendedDayForecast) clone() ExtendedDayForecast {
	d.TemperatureMax = cloneFloat(d.TemperatureMax)
	d.TemperatureMin = cloneFloat(d.TemperatureMin)
	d.FeelsLikeMax = cloneFloat(d.FeelsLikeMax)
	d.FeelsLikeMin = cloneFloat(d.FeelsLikeMin)
	d.PrecipSumMm = cloneFloat(d.PrecipSumMm)
	d.PrecipProbability = cloneFloat(d.PrecipProbability)
	d.WindMaxKmh = cloneFloat(d.WindMaxKmh)
	d.GustMaxKmh = cloneFloat(d.GustMaxKmh)
	d.WindDirectionDeg = cloneFloat(d.WindDirectionDeg)
	d.UVIndexMax = cloneFloat(d.UVIndexMax)
	d.Sunrise = cloneTime(d.Sunrise)
	d.Sunset = cloneTime(d.Sunset)
	d.DaylightSec = cloneFloat(d.DaylightSec)
	d.SunshineSec = cloneFloat(d.SunshineSec)
	return d
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := *v
	return &t
}

// RegionalResult is the parsed output of the Environment Canada adapter.
type RegionalResult struct {
	SiteCode  string
	Current   *RegionalCurrent
	Periods   []ShortRangePeriod
	Alerts    []Alert
	FetchedAt time.Time
}

// RegionalCurrent holds the best-effort field extraction from the
// "Current Conditions" feed entry. Any field can be nil.
type RegionalCurrent struct {
	Temperature      *float64
	DewPoint         *float64
	Humidity         *float64
	PressureKPa      *float64
	PressureTendency *string
	WindSpeedKmh     *float64
	WindGustKmh      *float64
	WindDirection    *string
	VisibilityKm     *float64
	Humidex          *float64
	WindChill        *float64
	AirQualityIndex  *float64
	Condition        *string
	Station          *string
	ObservedAt       *time.Time
}

// GlobalResult is the decoded output of the Open-Meteo adapter.
type GlobalResult struct {
	Current   *GlobalCurrent
	Hourly    []HourlyPoint
	Daily     []ExtendedDayForecast
	FetchedAt time.Time
}

// GlobalCurrent holds the current-conditions block of the global response,
// in the source's native units (pressure hPa, visibility metres).
type GlobalCurrent struct {
	Temperature      *float64
	ApparentTemp     *float64
	Humidity         *float64
	WindSpeedKmh     *float64
	WindGustKmh      *float64
	WindDirectionDeg *float64
	PressureHPa      *float64
	VisibilityM      *float64
	CloudCover       *float64
	Condition        *string
	ObservedAt       *time.Time
}
