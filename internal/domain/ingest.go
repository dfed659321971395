package domain

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
)

const (
	// HPaToMMHg converts hectopascals to millimetres of mercury.
	HPaToMMHg = 0.75006156130264

	StandardQNH       = 760
	MaxVisibility     = 800000
	fogVisibilityCap  = 6000
	fogThickness      = 1000
	fogThreshold      = 10000
	defaultCloudBase  = 300
	minCloudThickness = 200
	maxCloudThickness = 2000
	maxCloudBase      = 5000
	maxWindSpeed      = 50
	maxTurbulence     = 60

	DefaultMinWind = 0
	DefaultMaxWind = 40
)

// coverageRange is the randomized cloud density drawn for each cover class.
var coverageRange = map[Coverage][2]int{
	CoverageUnknown:            {0, 0},
	CoverageClear:              {0, 0},
	CoverageFew:                {1, 3},
	CoverageScattered:          {4, 6},
	CoverageBroken:             {7, 8},
	CoverageOvercast:           {9, 10},
	CoverageVerticalVisibility: {9, 10},
}

type season struct {
	name        string
	temperature int
	until       int // last day, as month*100 + day
}

var seasons = []season{
	{"winter", 5, 320},
	{"spring", 10, 620},
	{"summer", 20, 922},
	{"autumn", 10, 1220},
	{"winter", 5, 1231},
}

// IngestOptions parameterizes DeriveWeather.
type IngestOptions struct {
	// MinWind and MaxWind bound the ground speed drawn when the report has
	// no wind group.
	MinWind int
	MaxWind int
	Rand    RandomSource
	Logger  *slog.Logger
}

// DefaultIngestOptions returns the default wind bounds with the given source.
func DefaultIngestOptions(r RandomSource) IngestOptions {
	return IngestOptions{MinWind: DefaultMinWind, MaxWind: DefaultMaxWind, Rand: r}
}

func (o IngestOptions) validate() error {
	if o.Rand == nil {
		return errors.New("ingest: random source is required")
	}
	if o.MinWind < 0 || o.MaxWind > maxWindSpeed || o.MinWind > o.MaxWind {
		return fmt.Errorf("ingest: wind bounds [%d, %d] must satisfy 0 <= min <= max <= %d",
			o.MinWind, o.MaxWind, maxWindSpeed)
	}
	return nil
}

// ReverseDirection turns a "from" heading into a "to" heading and back.
func ReverseDirection(heading int) int {
	if heading >= 180 {
		return heading - 180
	}
	return heading + 180
}

// normalizeDirection folds any heading into [0, 360).
func normalizeDirection(heading int) int {
	return ((heading % 360) + 360) % 360
}

// DeriveWeather maps an observation onto mission weather. Every random draw
// goes through opts.Rand, in this order: cloud layers, ground direction (when
// variable), ground speed (when missing), then the 2000 m and 8000 m winds.
func DeriveWeather(obs Observation, opts IngestOptions) (Weather, error) {
	if err := opts.validate(); err != nil {
		return Weather{}, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := opts.Rand

	precip, forceDensity, tempCeiling := derivePrecipitation(obs.Phenomena)
	wx := Weather{
		AtmosphereType: AtmosphereStandard,
		Precipitation:  precip,
		Clouds:         deriveClouds(obs.SkyLayers, r),
	}
	wx.Clouds.Density = max(wx.Clouds.Density, forceDensity)

	if obs.WindDirDeg == nil {
		wx.WindGround.Dir = r.IntN(360)
		logger.Info("wind is variable, using a random direction", "dir", wx.WindGround.Dir)
	} else {
		wx.WindGround.Dir = ReverseDirection(*obs.WindDirDeg)
	}

	if obs.WindSpeedMPS == nil {
		wx.WindGround.Speed = uniform(r, opts.MinWind, opts.MaxWind)
		logger.Info("wind speed is missing, using a random speed",
			"speed", wx.WindGround.Speed, "min", opts.MinWind, "max", opts.MaxWind)
	} else {
		wx.WindGround.Speed = int(*obs.WindSpeedMPS)
	}

	ground := wx.WindGround
	wx.Wind2000 = Wind{
		Dir:   normalizeDirection(gauss(r, float64(ground.Dir), 40)),
		Speed: deviateSpeed(r, 5+2*ground.Speed),
	}
	wx.Wind8000 = Wind{
		Dir:   normalizeDirection(gauss(r, float64(ground.Dir), 80)),
		Speed: deviateSpeed(r, 10+3*ground.Speed),
	}

	if obs.WindGustMPS != nil {
		if gust := int(*obs.WindGustMPS); gust > ground.Speed {
			wx.Turbulence = min((gust-ground.Speed)*10, maxTurbulence)
		}
	}

	if obs.PressureHPa == nil {
		wx.QNH = StandardQNH
		logger.Info("QNH is missing, using standard pressure", "qnh", StandardQNH)
	} else {
		wx.QNH = int(*obs.PressureHPa * HPaToMMHg)
	}

	if obs.VisibilityM == nil {
		wx.Visibility = MaxVisibility
		logger.Debug("visibility is missing, using maximum", "visibility", MaxVisibility)
	} else {
		wx.Visibility = min(*obs.VisibilityM, MaxVisibility)
		if wx.Visibility < fogThreshold {
			wx.Fog = Fog{Enabled: true, Visibility: min(fogVisibilityCap, wx.Visibility), Thickness: fogThickness}
		}
	}

	if obs.TemperatureC == nil {
		name, temp := currentSeason()
		wx.TemperatureC = min(temp, tempCeiling)
		logger.Debug("no temperature given, using season default", "season", name, "temperature", wx.TemperatureC)
	} else {
		wx.TemperatureC = min(*obs.TemperatureC, tempCeiling)
	}

	return wx, nil
}

// derivePrecipitation applies rain, then snow, then thunderstorm, each one
// able to override the previous.
func derivePrecipitation(ph Phenomena) (Precipitation, int, int) {
	precip, density, ceiling := PrecipitationNone, 0, math.MaxInt
	if ph.Has(PhenomenonRain) {
		precip, density = PrecipitationRain, 5
	}
	if ph.Has(PhenomenonSnow) {
		precip, density, ceiling = PrecipitationSnow, 5, 0
	}
	if ph.Has(PhenomenonThunderstorm) {
		if precip == PrecipitationSnow {
			precip = PrecipitationHeavySnow
		} else {
			precip = PrecipitationHeavyRain
		}
		density = 9
	}
	return precip, density, ceiling
}

// deriveClouds picks the layer with the highest randomized density; on ties
// the later layer wins. Layers without a height are ignored.
func deriveClouds(layers []SkyLayer, r RandomSource) Clouds {
	out := Clouds{Base: defaultCloudBase, Thickness: minCloudThickness}
	found := false
	for _, layer := range layers {
		if layer.HeightM == nil {
			continue
		}
		height := min(max(*layer.HeightM, defaultCloudBase), maxCloudBase)
		span := coverageRange[layer.Coverage]
		density := uniform(r, span[0], span[1])
		if !found || density >= out.Density {
			out.Density, out.Base = density, height
			found = true
		}
	}
	if found {
		out.Thickness = max(minCloudThickness, out.Density*maxCloudThickness/10)
	}
	return out
}

func deviateSpeed(r RandomSource, mean int) int {
	v := gauss(r, float64(mean), float64(mean)/4)
	return min(max(v, 0), maxWindSpeed)
}

func currentSeason() (string, int) {
	now := clock.Now()
	md := int(now.Month())*100 + now.Day()
	for _, s := range seasons {
		if md <= s.until {
			return s.name, s.temperature
		}
	}
	last := seasons[len(seasons)-1]
	return last.name, last.temperature
}

// LogSummary writes the derived weather at info level.
func (wx Weather) LogSummary(logger *slog.Logger) {
	logger.Info("building mission with weather",
		slog.Group("wind",
			"ground", fmt.Sprintf("%d/%d", wx.WindGround.Dir, wx.WindGround.Speed),
			"at2000", fmt.Sprintf("%d/%d", wx.Wind2000.Dir, wx.Wind2000.Speed),
			"at8000", fmt.Sprintf("%d/%d", wx.Wind8000.Dir, wx.Wind8000.Speed),
			"turbulence", wx.Turbulence),
		"atmosphere_type", wx.AtmosphereType,
		"qnh", wx.QNH,
		slog.Group("visibility",
			"distance", wx.Visibility,
			"fog", wx.Fog.Enabled,
			"fog_thickness", wx.Fog.Thickness,
			"fog_visibility", wx.Fog.Visibility),
		"temperature", wx.TemperatureC,
		slog.Group("clouds",
			"density", wx.Clouds.Density,
			"thickness", wx.Clouds.Thickness,
			"base", wx.Clouds.Base,
			"precipitation", wx.Precipitation.String()),
	)
}
