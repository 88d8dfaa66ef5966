package sources

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/jpelletier/weatherfuse/internal/common"
	"github.com/jpelletier/weatherfuse/internal/weather"
)

const (
	categoryCurrentConditions = "Current Conditions"
	categoryWeatherForecasts  = "Weather Forecasts"

	// maxForecastPeriods caps the short-range series taken from the feed.
	maxForecastPeriods = 6
)

// ECClient fetches and parses the Environment Canada city-page feed for one
// geographic point.
type ECClient struct {
	baseURL        string
	httpCfg        HTTPClientConfig
	circuit        *gobreaker.CircuitBreaker
	staleThreshold time.Duration
	resolved       *gocache.Cache
	feedParser     *gofeed.Parser
	logger         *zap.SugaredLogger
}

// NewECClient creates the regional adapter. staleThreshold bounds how old the
// current-conditions entry may be before a stale-data alert is synthesized.
func NewECClient(client *http.Client, baseURL string, staleThreshold time.Duration, logger *zap.SugaredLogger) *ECClient {
	if baseURL == "" {
		baseURL = "https://weather.gc.ca/rss/city"
	}
	return &ECClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff(),
		},
		circuit:        defaultBreaker("environment-canada"),
		staleThreshold: staleThreshold,
		// Site resolution is immutable per coordinate; memoize forever.
		resolved:   gocache.New(gocache.NoExpiration, 0),
		feedParser: gofeed.NewParser(),
		logger:     logger,
	}
}

func (c *ECClient) Name() string {
	return weather.SourceEnvironmentCanada
}

// Resolve maps the coordinate to its feed site, memoizing the result.
// Total, never fails; malformed input logs and falls back to the default site.
func (c *ECClient) Resolve(coord weather.Coordinate) Site {
	key := coord.Key()
	if v, ok := c.resolved.Get(key); ok {
		return v.(Site)
	}
	if err := coord.Validate(); err != nil {
		c.logger.Warnw("resolving malformed coordinate to default site",
			"coord", key, "site", defaultSite.Code, "error", err)
	}
	site := ResolveSite(coord)
	c.resolved.Set(key, site, gocache.NoExpiration)
	return site
}

// Fetch retrieves and parses the feed for the coordinate's site.
func (c *ECClient) Fetch(ctx context.Context, coord weather.Coordinate) (*weather.RegionalResult, error) {
	site := c.Resolve(coord)

	resp, err := doRequestWithResilience(ctx, c.httpCfg, c.circuit, func() (*http.Request, error) {
		u := fmt.Sprintf("%s/%s_e.xml", c.baseURL, site.Code)
		return http.NewRequest(http.MethodGet, u, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: environment canada feed %s: %v", weather.ErrUpstreamUnavailable, site.Code, err)
	}
	defer resp.Body.Close()

	feed, err := c.feedParser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed feed payload for %s: %v", weather.ErrUpstreamUnavailable, site.Code, err)
	}
	if feed == nil || len(feed.Items) == 0 {
		return nil, fmt.Errorf("%w: feed %s has no entries", weather.ErrUpstreamUnavailable, site.Code)
	}

	var currentItem *gofeed.Item
	var forecastItems []*gofeed.Item
	for _, item := range feed.Items {
		switch {
		case hasCategory(item, categoryCurrentConditions):
			if currentItem == nil {
				currentItem = item
			}
		case hasCategory(item, categoryWeatherForecasts):
			if len(forecastItems) < maxForecastPeriods {
				forecastItems = append(forecastItems, item)
			}
		}
	}
	if currentItem == nil {
		return nil, fmt.Errorf("%w: feed %s has no current conditions entry", weather.ErrDataNotFound, site.Code)
	}

	result := &weather.RegionalResult{
		SiteCode:  site.Code,
		Current:   parseCurrentConditions(currentItem),
		FetchedAt: time.Now().UTC(),
	}
	for _, item := range forecastItems {
		result.Periods = append(result.Periods, parseForecastPeriod(item))
	}
	if alert := c.staleAlert(result.Current); alert != nil {
		result.Alerts = append(result.Alerts, *alert)
	}
	return result, nil
}

// staleAlert synthesizes the single stale-data alert when the observation is
// older than the freshness threshold. Never fails the request.
func (c *ECClient) staleAlert(cur *weather.RegionalCurrent) *weather.Alert {
	if cur == nil || cur.ObservedAt == nil || c.staleThreshold <= 0 {
		return nil
	}
	age := time.Since(*cur.ObservedAt)
	if age <= c.staleThreshold {
		return nil
	}
	return &weather.Alert{
		Type:     weather.AlertTypeStaleData,
		Severity: "warning",
		Message: fmt.Sprintf("regional observation is %s old (threshold %s)",
			age.Round(time.Minute), c.staleThreshold),
		IssuedAt: time.Now().UTC(),
	}
}

func hasCategory(item *gofeed.Item, want string) bool {
	for _, cat := range item.Categories {
		if strings.EqualFold(strings.TrimSpace(cat), want) {
			return true
		}
	}
	return false
}

func itemTimestamp(item *gofeed.Item) *time.Time {
	if item.UpdatedParsed != nil {
		t := item.UpdatedParsed.UTC()
		return &t
	}
	if item.PublishedParsed != nil {
		t := item.PublishedParsed.UTC()
		return &t
	}
	return nil
}

var labelLinePattern = regexp.MustCompile(`^([^:]+):\s*(.*)$`)

// parseCurrentConditions line-splits the entry markup into a label→value map
// and runs the per-field extractors. Every extractor is total; a malformed
// field degrades to nil without failing the record.
func parseCurrentConditions(item *gofeed.Item) *weather.RegionalCurrent {
	body := item.Description
	if body == "" {
		body = item.Content
	}

	fields := make(map[string]string)
	for _, line := range common.SplitLines(body) {
		m := labelLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue // unrecognized line, best effort
		}
		fields[strings.ToLower(strings.TrimSpace(m[1]))] = strings.TrimSpace(m[2])
	}

	cur := &weather.RegionalCurrent{
		Temperature:     extractNumber(fields["temperature"]),
		DewPoint:        extractNumber(fields["dewpoint"]),
		Humidity:        extractNumber(fields["humidity"]),
		VisibilityKm:    extractNumber(fields["visibility"]),
		Humidex:         extractNumber(fields["humidex"]),
		WindChill:       extractNumber(fields["wind chill"]),
		AirQualityIndex: extractNumber(fields["air quality health index"]),
		ObservedAt:      itemTimestamp(item),
	}

	if v, ok := fields["condition"]; ok && v != "" {
		cur.Condition = weather.String(v)
	}
	if v, ok := fields["observed at"]; ok && v != "" {
		cur.Station = weather.String(v)
	}

	cur.PressureKPa, cur.PressureTendency = extractPressure(fields["pressure / tendency"])
	if cur.PressureKPa == nil {
		cur.PressureKPa, cur.PressureTendency = extractPressure(fields["pressure"])
	}

	cur.WindDirection, cur.WindSpeedKmh, cur.WindGustKmh = extractWind(fields["wind"])
	return cur
}

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// extractNumber pulls the first numeric token from free text, nil on miss.
func extractNumber(s string) *float64 {
	m := numberPattern.FindString(s)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &v
}

var pressurePattern = regexp.MustCompile(`(-?\d+(?:\.\d+)?)\s*kPa(?:\s+(\w+))?`)

// extractPressure parses values like "101.8 kPa falling".
func extractPressure(s string) (*float64, *string) {
	m := pressurePattern.FindStringSubmatch(s)
	if m == nil {
		return extractNumber(s), nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, nil
	}
	var tendency *string
	if t := strings.ToLower(m[2]); t == "rising" || t == "falling" || t == "steady" {
		tendency = weather.String(t)
	}
	return &v, tendency
}

var (
	windPattern = regexp.MustCompile(`^([NESW]{1,3})\s+(\d+(?:\.\d+)?)`)
	gustPattern = regexp.MustCompile(`gust(?:ing)?(?:\s+to)?\s+(\d+(?:\.\d+)?)`)
)

// extractWind parses values like "NW 20 gust 35 km/h" or "calm".
func extractWind(s string) (*string, *float64, *float64) {
	if s == "" {
		return nil, nil, nil
	}
	if common.HasAny(s, "calm") {
		return nil, weather.Float(0), nil
	}

	var dir *string
	var speed, gust *float64
	if m := windPattern.FindStringSubmatch(s); m != nil {
		dir = weather.String(m[1])
		if v, err := strconv.ParseFloat(m[2], 64); err == nil {
			speed = &v
		}
	} else {
		speed = extractNumber(s)
	}
	if m := gustPattern.FindStringSubmatch(strings.ToLower(s)); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			gust = &v
		}
	}
	return dir, speed, gust
}

var (
	highPattern = regexp.MustCompile(`[Hh]igh\s+(minus\s+|plus\s+)?(\d+(?:\.\d+)?)`)
	lowPattern  = regexp.MustCompile(`[Ll]ow\s+(minus\s+|plus\s+)?(\d+(?:\.\d+)?)`)
	zeroHigh    = regexp.MustCompile(`[Hh]igh\s+zero`)
	zeroLow     = regexp.MustCompile(`[Ll]ow\s+zero`)
	popPattern  = regexp.MustCompile(`POP\s+(\d+)\s*%`)
	windClause  = regexp.MustCompile(`[Ww]ind(?:s)?[^.]*`)
)

// parseForecastPeriod turns one "Weather Forecasts" entry into a short-range
// period using the same best-effort extraction as current conditions.
func parseForecastPeriod(item *gofeed.Item) weather.ShortRangePeriod {
	title := common.StripHTML(item.Title)
	p := weather.ShortRangePeriod{Name: title, Summary: title}

	if idx := strings.Index(title, ":"); idx > 0 {
		p.Name = strings.TrimSpace(title[:idx])
		p.Summary = strings.TrimSpace(title[idx+1:])
	}
	if body := common.StripHTML(item.Description); body != "" {
		p.Summary = body
	}

	if t, kind := extractPeriodTemp(p.Summary); t != nil {
		p.Temperature = t
		p.TemperatureType = kind
	}
	if m := popPattern.FindStringSubmatch(p.Summary); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			p.PrecipProbability = &v
		}
	}
	if m := windClause.FindString(p.Summary); m != "" && common.HasAny(m, "km/h") {
		p.WindSummary = weather.String(strings.TrimSpace(m))
	}
	if ts := itemTimestamp(item); ts != nil {
		p.Date = weather.String(ts.Format("2006-01-02"))
	}
	return p
}

// extractPeriodTemp finds the single high or low temperature in forecast
// text, handling the feed's "minus 5", "plus 2" and "zero" spellings.
func extractPeriodTemp(s string) (*float64, string) {
	if m := highPattern.FindStringSubmatch(s); m != nil {
		return signedTemp(m[1], m[2]), "high"
	}
	if zeroHigh.MatchString(s) {
		return weather.Float(0), "high"
	}
	if m := lowPattern.FindStringSubmatch(s); m != nil {
		return signedTemp(m[1], m[2]), "low"
	}
	if zeroLow.MatchString(s) {
		return weather.Float(0), "low"
	}
	return nil, ""
}

func signedTemp(sign, digits string) *float64 {
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return nil
	}
	if strings.HasPrefix(strings.TrimSpace(sign), "minus") {
		v = -v
	}
	return &v
}
