package domain

import "time"

// Coverage is the sky cover class of a reported cloud layer.
type Coverage int

const (
	CoverageUnknown Coverage = iota
	CoverageClear
	CoverageFew
	CoverageScattered
	CoverageBroken
	CoverageOvercast
	CoverageVerticalVisibility
)

var coverageNames = map[Coverage]string{
	CoverageUnknown:            "unknown",
	CoverageClear:              "clear",
	CoverageFew:                "few",
	CoverageScattered:          "scattered",
	CoverageBroken:             "broken",
	CoverageOvercast:           "overcast",
	CoverageVerticalVisibility: "vertical_visibility",
}

func (c Coverage) String() string {
	if name, ok := coverageNames[c]; ok {
		return name
	}
	return "unknown"
}

// SkyLayer is one reported cloud layer. HeightM is nil when the report
// gives no base height (e.g. "SKC" or "BKN///").
type SkyLayer struct {
	Coverage Coverage
	HeightM  *int
}

// Phenomenon is a present-weather class relevant to the weather model.
type Phenomenon string

const (
	PhenomenonRain         Phenomenon = "rain"
	PhenomenonSnow         Phenomenon = "snow"
	PhenomenonThunderstorm Phenomenon = "thunderstorm"
)

// Phenomena is a set of present-weather classes.
type Phenomena map[Phenomenon]bool

// Has reports whether p is present.
func (ph Phenomena) Has(p Phenomenon) bool { return ph[p] }

// Observation is a normalized weather reading. Every measurement is optional;
// a nil field means the report did not carry it.
type Observation struct {
	StationID string
	Time      *time.Time

	WindDirDeg   *int // direction the wind blows from; nil when variable
	WindSpeedMPS *float64
	WindGustMPS  *float64

	PressureHPa  *float64
	VisibilityM  *int
	TemperatureC *int
	DewPointC    *int

	SkyLayers []SkyLayer
	Phenomena Phenomena

	// WeatherCodes keeps the raw present-weather groups, e.g. "-SHRA".
	WeatherCodes []string
	CAVOK        bool
	Raw          string
}

func ptr[T any](v T) *T { return &v }
