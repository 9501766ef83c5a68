package series

import "strings"

// CarbonLevel is the qualitative band of a carbon intensity forecast.
type CarbonLevel string

const (
	CarbonVeryLow  CarbonLevel = "very low"
	CarbonLow      CarbonLevel = "low"
	CarbonModerate CarbonLevel = "moderate"
	CarbonHigh     CarbonLevel = "high"
	CarbonVeryHigh CarbonLevel = "very high"
)

// carbonBands holds the lower edge of each band in gCO2/kWh.
var carbonBands = []struct {
	from  int64
	level CarbonLevel
}{
	{from: 270, level: CarbonVeryHigh},
	{from: 189, level: CarbonHigh},
	{from: 109, level: CarbonModerate},
	{from: 34, level: CarbonLow},
}

// CarbonLevelFor maps a forecast onto its band.
func CarbonLevelFor(forecast int64) CarbonLevel {
	for _, band := range carbonBands {
		if forecast >= band.from {
			return band.level
		}
	}
	return CarbonVeryLow
}

// ParseCarbonLevel accepts a level name in any case.
func ParseCarbonLevel(value string) (CarbonLevel, bool) {
	level := CarbonLevel(strings.ToLower(strings.TrimSpace(value)))
	switch level {
	case CarbonVeryLow, CarbonLow, CarbonModerate, CarbonHigh, CarbonVeryHigh:
		return level, true
	default:
		return "", false
	}
}
