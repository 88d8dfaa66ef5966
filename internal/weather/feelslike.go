package weather

// Feels-like thresholds. The strict > / < comparisons at these bounds are
// deliberate; do not relax them to >= / <=.
const (
	humidexMinTemp   = 20.0 // humidex applies only above this
	windChillMaxTemp = 10.0 // wind chill applies only below this
	humidHeatMinRH   = 40.0 // humidity floor for the heat heuristic
	windCoolMinSpeed = 10.0 // km/h floor for the wind heuristic
)

// FeelsLike derives the single perceived temperature for a record. Inputs
// are nullable; precedence is fixed: humidex in warm conditions, wind chill
// in cold conditions, the source's own apparent temperature, then two simple
// heuristics, then the raw temperature. Returns nil only when no temperature
// is available at all. The result is always integral.
func FeelsLike(temp, humidity, windSpeed, apparent, humidex, windChill *float64) *float64 {
	if humidex != nil && temp != nil && *temp > humidexMinTemp {
		return Float(RoundWhole(*humidex))
	}
	if windChill != nil && temp != nil && *temp < windChillMaxTemp {
		return Float(RoundWhole(*windChill))
	}
	if apparent != nil {
		return Float(RoundWhole(*apparent))
	}
	if temp == nil {
		return nil
	}
	if *temp > humidexMinTemp && humidity != nil && *humidity > humidHeatMinRH {
		return Float(RoundWhole(*temp + 0.5*(*humidity-humidHeatMinRH)/10))
	}
	if *temp < windChillMaxTemp && windSpeed != nil && *windSpeed > windCoolMinSpeed {
		return Float(RoundWhole(*temp - *windSpeed*0.2))
	}
	return Float(RoundWhole(*temp))
}
