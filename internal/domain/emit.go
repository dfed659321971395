package domain

import (
	"fmt"
	"math"
	"strings"
)

const (
	// DefaultStation is the placeholder identifier of synthesized reports.
	DefaultStation = "XXXX"

	metreToFoot     = 3.28084
	cavokMinBaseFt  = 5000
	reportQualifier = "NOSIG"
)

var precipitationCodes = map[Precipitation]string{
	PrecipitationNone:      "",
	PrecipitationRain:      "RA",
	PrecipitationSnow:      "SN",
	PrecipitationHeavyRain: "+RA",
	PrecipitationHeavySnow: "+SN",
}

// EmitOptions parameterizes EmitReport.
type EmitOptions struct {
	// Station defaults to DefaultStation.
	Station string
	// TimeGroup is a DDHHMMZ group; defaults to the current UTC time.
	TimeGroup string
}

// EmitReport synthesizes a coarse report describing the weather.
func EmitReport(wx Weather, opts EmitOptions) string {
	station := opts.Station
	if station == "" {
		station = DefaultStation
	}
	timeGroup := opts.TimeGroup
	if timeGroup == "" {
		timeGroup = clock.Now().UTC().Format("021504") + "Z"
	}

	wind := fmt.Sprintf("%03d%02dMPS", ReverseDirection(wx.WindGround.Dir), wx.WindGround.Speed)

	visibility := min(wx.Visibility, maxVisCode)
	if wx.Fog.Enabled {
		visibility = min(wx.Fog.Visibility, visibility)
	}
	baseFt := roundHundreds(float64(wx.Clouds.Base) * metreToFoot)
	visGroup := fmt.Sprintf("%04dM", visibility)
	if visibility == maxVisCode && baseFt >= cavokMinBaseFt {
		visGroup = "CAVOK"
	}

	groups := []string{
		station,
		timeGroup,
		wind,
		visGroup,
		precipitationCodes[wx.Precipitation],
		cloudGroup(wx.Clouds.Density, baseFt),
		temperatureGroup(wx.TemperatureC),
		fmt.Sprintf("Q%04d", int(math.Round(float64(wx.QNH)/HPaToMMHg))),
		reportQualifier,
	}
	return strings.Join(strings.Fields(strings.Join(groups, " ")), " ")
}

func roundHundreds(v float64) int {
	return int(math.Round(v/100) * 100)
}

func cloudGroup(density, baseFt int) string {
	var cover string
	switch {
	case density <= 0:
		return ""
	case density <= 3:
		cover = "FEW"
	case density <= 6:
		cover = "SCT"
	case density <= 8:
		cover = "BKN"
	default:
		cover = "OVC"
	}
	return fmt.Sprintf("%s%03d", cover, baseFt/100)
}

// temperatureGroup repeats the temperature as the dew point.
func temperatureGroup(temp int) string {
	sign := ""
	if temp < 0 {
		sign = "M"
		temp = -temp
	}
	return fmt.Sprintf("%s%02d/%s%02d", sign, temp, sign, temp)
}
