package vitals

const (
	sensorThreshold = 30.0
	sensorMin       = 15.0
	sensorMax       = 31.0
	bodyMin         = 36.0
	bodyMax         = 38.0
)

// NormalizeTemperature maps raw sensor units into the body temperature range.
// Readings below 30 are treated as sensor units and remapped linearly from
// [15, 31] onto [36, 38], rounded to one decimal. Everything else is taken to
// be Celsius already and returned as is.
func NormalizeTemperature(raw float64) float64 {
	if raw < sensorThreshold {
		normalized := ((raw-sensorMin)/(sensorMax-sensorMin))*(bodyMax-bodyMin) + bodyMin
		return Round1(normalized)
	}
	return raw
}
