package sources

import (
	"fmt"
	"math"

	"github.com/jpelletier/weatherfuse/internal/weather"
)

// Site is one row of the static coordinate-to-feed-key table. The table is
// configuration data, never derived at runtime.
type Site struct {
	Code string // province-city feed key, e.g. "on-118"
	Name string
	Lat  float64
	Lon  float64
}

// siteTable lists the cities covered by the regional feed. Order matters:
// nearest-neighbor ties resolve to the earlier row.
var siteTable = []Site{
	{Code: "on-118", Name: "Ottawa", Lat: 45.4215, Lon: -75.6998},
	{Code: "on-143", Name: "Toronto", Lat: 43.6532, Lon: -79.3832},
	{Code: "qc-147", Name: "Montréal", Lat: 45.5017, Lon: -73.5673},
	{Code: "bc-74", Name: "Vancouver", Lat: 49.2827, Lon: -123.1207},
	{Code: "ab-52", Name: "Calgary", Lat: 51.0447, Lon: -114.0719},
	{Code: "ab-50", Name: "Edmonton", Lat: 53.5461, Lon: -113.4938},
	{Code: "mb-38", Name: "Winnipeg", Lat: 49.8951, Lon: -97.1384},
	{Code: "ns-19", Name: "Halifax", Lat: 44.6488, Lon: -63.5752},
	{Code: "qc-133", Name: "Québec", Lat: 46.8139, Lon: -71.2080},
	{Code: "sk-32", Name: "Regina", Lat: 50.4452, Lon: -104.6189},
	{Code: "sk-40", Name: "Saskatoon", Lat: 52.1332, Lon: -106.6700},
	{Code: "bc-85", Name: "Victoria", Lat: 48.4284, Lon: -123.3656},
	{Code: "nl-24", Name: "St. John's", Lat: 47.5615, Lon: -52.7126},
	{Code: "nb-29", Name: "Fredericton", Lat: 45.9636, Lon: -66.6431},
	{Code: "nb-36", Name: "Moncton", Lat: 46.0878, Lon: -64.7782},
	{Code: "pe-5", Name: "Charlottetown", Lat: 46.2382, Lon: -63.1311},
	{Code: "on-77", Name: "Hamilton", Lat: 43.2557, Lon: -79.8711},
	{Code: "on-137", Name: "London", Lat: 42.9849, Lon: -81.2453},
	{Code: "on-100", Name: "Thunder Bay", Lat: 48.3809, Lon: -89.2477},
	{Code: "on-40", Name: "Sudbury", Lat: 46.4917, Lon: -80.9930},
	{Code: "on-95", Name: "Windsor", Lat: 42.3149, Lon: -83.0364},
	{Code: "yt-16", Name: "Whitehorse", Lat: 60.7212, Lon: -135.0568},
	{Code: "nt-24", Name: "Yellowknife", Lat: 62.4540, Lon: -114.3718},
	{Code: "nu-21", Name: "Iqaluit", Lat: 63.7467, Lon: -68.5170},
}

// defaultSite backs the resolve fallback for malformed input.
var defaultSite = siteTable[0]

var (
	exactIndex   = make(map[string]int, len(siteTable))
	roundedIndex = make(map[string]int, len(siteTable))
)

func init() {
	for i, s := range siteTable {
		exactIndex[exactKey(s.Lat, s.Lon)] = i
		// First row wins when two cities round to the same cell.
		rk := roundedKey(s.Lat, s.Lon)
		if _, ok := roundedIndex[rk]; !ok {
			roundedIndex[rk] = i
		}
	}
}

func exactKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}

func roundedKey(lat, lon float64) string {
	return fmt.Sprintf("%.1f,%.1f", lat, lon)
}

// ResolveSite maps a coordinate to a feed site. Total: exact table match,
// then a one-decimal rounded match, then nearest neighbor by great-circle
// distance. Out-of-range input falls back to the default site.
func ResolveSite(coord weather.Coordinate) Site {
	if coord.Validate() != nil {
		return defaultSite
	}
	if i, ok := exactIndex[exactKey(coord.Lat, coord.Lon)]; ok {
		return siteTable[i]
	}
	if i, ok := roundedIndex[roundedKey(coord.Lat, coord.Lon)]; ok {
		return siteTable[i]
	}

	best := 0
	bestDist := math.Inf(1)
	for i, s := range siteTable {
		d := haversineKm(coord.Lat, coord.Lon, s.Lat, s.Lon)
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return siteTable[best]
}

const earthRadiusKm = 6371.0

// haversineKm returns the great-circle distance between two points.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
