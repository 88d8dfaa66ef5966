package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/jpelletier/weatherfuse/internal/weather"
)

const (
	// hourlyWindow caps the projected hourly series.
	hourlyWindow = 24
	// forecastDays is the length of the extended daily series requested.
	forecastDays = 14
)

// OpenMeteoClient fetches current, hourly and daily numeric arrays for a
// coordinate in one HTTP call.
type OpenMeteoClient struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// NewOpenMeteoClient creates the global adapter.
func NewOpenMeteoClient(client *http.Client, baseURL string, logger *zap.SugaredLogger) *OpenMeteoClient {
	if baseURL == "" {
		baseURL = "https://api.open-meteo.com/v1/forecast"
	}
	return &OpenMeteoClient{
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff(),
		},
		circuit: defaultBreaker("openmeteo"),
		logger:  logger,
		now:     time.Now,
	}
}

func (c *OpenMeteoClient) Name() string {
	return weather.SourceOpenMeteo
}

type openMeteoCurrent struct {
	Time             int64    `json:"time"`
	Temperature      *float64 `json:"temperature_2m"`
	Humidity         *float64 `json:"relative_humidity_2m"`
	ApparentTemp     *float64 `json:"apparent_temperature"`
	WeatherCode      *int     `json:"weather_code"`
	WindSpeed        *float64 `json:"wind_speed_10m"`
	WindDirection    *float64 `json:"wind_direction_10m"`
	WindGusts        *float64 `json:"wind_gusts_10m"`
	SurfacePressure  *float64 `json:"surface_pressure"`
	CloudCover       *float64 `json:"cloud_cover"`
}

type openMeteoHourly struct {
	Time              []int64    `json:"time"`
	Temperature       []*float64 `json:"temperature_2m"`
	Humidity          []*float64 `json:"relative_humidity_2m"`
	ApparentTemp      []*float64 `json:"apparent_temperature"`
	PrecipProbability []*float64 `json:"precipitation_probability"`
	Precipitation     []*float64 `json:"precipitation"`
	WeatherCode       []*int     `json:"weather_code"`
	SurfacePressure   []*float64 `json:"surface_pressure"`
	CloudCover        []*float64 `json:"cloud_cover"`
	Visibility        []*float64 `json:"visibility"`
	WindSpeed         []*float64 `json:"wind_speed_10m"`
	WindDirection     []*float64 `json:"wind_direction_10m"`
	UVIndex           []*float64 `json:"uv_index"`
}

type openMeteoDaily struct {
	Time              []int64    `json:"time"`
	WeatherCode       []*int     `json:"weather_code"`
	TemperatureMax    []*float64 `json:"temperature_2m_max"`
	TemperatureMin    []*float64 `json:"temperature_2m_min"`
	ApparentTempMax   []*float64 `json:"apparent_temperature_max"`
	ApparentTempMin   []*float64 `json:"apparent_temperature_min"`
	Sunrise           []int64    `json:"sunrise"`
	Sunset            []int64    `json:"sunset"`
	DaylightDuration  []*float64 `json:"daylight_duration"`
	SunshineDuration  []*float64 `json:"sunshine_duration"`
	UVIndexMax        []*float64 `json:"uv_index_max"`
	PrecipSum         []*float64 `json:"precipitation_sum"`
	PrecipProbability []*float64 `json:"precipitation_probability_max"`
	WindSpeedMax      []*float64 `json:"wind_speed_10m_max"`
	WindGustsMax      []*float64 `json:"wind_gusts_10m_max"`
	WindDirection     []*float64 `json:"wind_direction_10m_dominant"`
}

type openMeteoPayload struct {
	Current *openMeteoCurrent `json:"current"`
	Hourly  *openMeteoHourly  `json:"hourly"`
	Daily   *openMeteoDaily   `json:"daily"`
}

// Fetch issues the single forecast call and decodes all three sections.
func (c *OpenMeteoClient) Fetch(ctx context.Context, coord weather.Coordinate) (*weather.GlobalResult, error) {
	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%.4f", coord.Lat))
		values.Set("longitude", fmt.Sprintf("%.4f", coord.Lon))
		values.Set("current", "temperature_2m,relative_humidity_2m,apparent_temperature,weather_code,wind_speed_10m,wind_direction_10m,wind_gusts_10m,surface_pressure,cloud_cover")
		values.Set("hourly", "temperature_2m,relative_humidity_2m,apparent_temperature,precipitation_probability,precipitation,weather_code,surface_pressure,cloud_cover,visibility,wind_speed_10m,wind_direction_10m,uv_index")
		values.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,apparent_temperature_max,apparent_temperature_min,sunrise,sunset,daylight_duration,sunshine_duration,uv_index_max,precipitation_sum,precipitation_probability_max,wind_speed_10m_max,wind_gusts_10m_max,wind_direction_10m_dominant")
		values.Set("forecast_days", fmt.Sprintf("%d", forecastDays))
		values.Set("wind_speed_unit", "kmh")
		values.Set("timeformat", "unixtime")
		values.Set("timezone", "UTC")

		u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open-meteo: %v", weather.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	var payload openMeteoPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: open-meteo payload not well-formed: %v", weather.ErrUpstreamUnavailable, err)
	}
	if payload.Current == nil && payload.Hourly == nil && payload.Daily == nil {
		return nil, fmt.Errorf("%w: open-meteo response carries no forecast sections", weather.ErrUpstreamUnavailable)
	}

	result := &weather.GlobalResult{FetchedAt: c.now().UTC()}
	if payload.Current != nil {
		result.Current = decodeCurrent(payload.Current)
	}
	if payload.Hourly != nil {
		result.Hourly = projectHourly(payload.Hourly, c.now().UTC())
	}
	if payload.Daily != nil {
		result.Daily = decodeDaily(payload.Daily)
	}
	c.logger.Debugw("open-meteo fetch complete", "coord", coord.Key(),
		"hourly", len(result.Hourly), "daily", len(result.Daily))
	return result, nil
}

func decodeCurrent(cur *openMeteoCurrent) *weather.GlobalCurrent {
	out := &weather.GlobalCurrent{
		Temperature:      cur.Temperature,
		ApparentTemp:     cur.ApparentTemp,
		Humidity:         cur.Humidity,
		WindSpeedKmh:     cur.WindSpeed,
		WindGustKmh:      cur.WindGusts,
		WindDirectionDeg: cur.WindDirection,
		PressureHPa:      cur.SurfacePressure,
		CloudCover:       cur.CloudCover,
	}
	if cur.WeatherCode != nil {
		out.Condition = weather.String(DecodeWeatherCode(*cur.WeatherCode))
	}
	if cur.Time > 0 {
		t := time.Unix(cur.Time, 0).UTC()
		out.ObservedAt = &t
	}
	return out
}

// projectHourly selects the window starting at the first timestamp not in
// the past. A series entirely in the past keeps index 0 rather than being
// dropped.
func projectHourly(h *openMeteoHourly, now time.Time) []weather.HourlyPoint {
	start := 0
	for i, ts := range h.Time {
		if !time.Unix(ts, 0).Before(now) {
			start = i
			break
		}
	}

	var points []weather.HourlyPoint
	for i := start; i < len(h.Time) && len(points) < hourlyWindow; i++ {
		p := weather.HourlyPoint{
			Time:              time.Unix(h.Time[i], 0).UTC(),
			Temperature:       at(h.Temperature, i),
			PrecipProbability: at(h.PrecipProbability, i),
			PrecipMm:          at(h.Precipitation, i),
			WindSpeedKmh:      at(h.WindSpeed, i),
			WindDirectionDeg:  at(h.WindDirection, i),
			PressureHPa:       at(h.SurfacePressure, i),
			CloudCover:        at(h.CloudCover, i),
			UVIndex:           at(h.UVIndex, i),
		}
		if v := at(h.Visibility, i); v != nil {
			p.VisibilityKm = weather.Float(weather.MetresToKm(*v))
		}
		if code := atInt(h.WeatherCode, i); code != nil {
			p.Condition = DecodeWeatherCode(*code)
		}
		p.FeelsLike = weather.FeelsLike(p.Temperature, at(h.Humidity, i), p.WindSpeedKmh,
			at(h.ApparentTemp, i), nil, nil)
		points = append(points, p)
	}
	return points
}

// decodeDaily maps every returned day 1:1 into the extended series.
func decodeDaily(d *openMeteoDaily) []weather.ExtendedDayForecast {
	var days []weather.ExtendedDayForecast
	for i := range d.Time {
		day := weather.ExtendedDayForecast{
			Date:              time.Unix(d.Time[i], 0).UTC().Format("2006-01-02"),
			TemperatureMax:    at(d.TemperatureMax, i),
			TemperatureMin:    at(d.TemperatureMin, i),
			FeelsLikeMax:      at(d.ApparentTempMax, i),
			FeelsLikeMin:      at(d.ApparentTempMin, i),
			PrecipSumMm:       at(d.PrecipSum, i),
			PrecipProbability: at(d.PrecipProbability, i),
			WindMaxKmh:        at(d.WindSpeedMax, i),
			GustMaxKmh:        at(d.WindGustsMax, i),
			WindDirectionDeg:  at(d.WindDirection, i),
			UVIndexMax:        at(d.UVIndexMax, i),
			DaylightSec:       at(d.DaylightDuration, i),
			SunshineSec:       at(d.SunshineDuration, i),
		}
		// Apparent temperature can be absent; fall back to the raw bounds.
		if day.FeelsLikeMax == nil {
			day.FeelsLikeMax = at(d.TemperatureMax, i)
		}
		if day.FeelsLikeMin == nil {
			day.FeelsLikeMin = at(d.TemperatureMin, i)
		}
		if code := atInt(d.WeatherCode, i); code != nil {
			day.Condition = DecodeWeatherCode(*code)
		}
		if i < len(d.Sunrise) && d.Sunrise[i] > 0 {
			t := time.Unix(d.Sunrise[i], 0).UTC()
			day.Sunrise = &t
		}
		if i < len(d.Sunset) && d.Sunset[i] > 0 {
			t := time.Unix(d.Sunset[i], 0).UTC()
			day.Sunset = &t
		}
		days = append(days, day)
	}
	return days
}

func at(arr []*float64, i int) *float64 {
	if i < 0 || i >= len(arr) || arr[i] == nil {
		return nil
	}
	v := *arr[i]
	return &v
}

func atInt(arr []*int, i int) *int {
	if i < 0 || i >= len(arr) || arr[i] == nil {
		return nil
	}
	v := *arr[i]
	return &v
}
