package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	knotToMPS  = 0.514444
	kmhToMPS   = 1 / 3.6
	mileToM    = 1609.344
	footToM    = 0.3048
	inHgToHPa  = 33.86398
	cavokVisM  = 10000
	maxVisCode = 9999
)

var (
	stationRe  = regexp.MustCompile(`^[A-Z][A-Z0-9]{3}$`)
	timeRe     = regexp.MustCompile(`^(\d{2})(\d{2})(\d{2})Z$`)
	windRe     = regexp.MustCompile(`^(VRB|\d{3}|///)(\d{2,3}|//)(?:G(\d{2,3}))?(KT|MPS|KMH)$`)
	windVarRe  = regexp.MustCompile(`^\d{3}V\d{3}$`)
	visMetreRe = regexp.MustCompile(`^(\d{4})M?(NDV)?$`)
	visDirRe   = regexp.MustCompile(`^\d{4}(N|NE|E|SE|S|SW|W|NW)$`)
	visMileRe  = regexp.MustCompile(`^(M|P)?(\d+)?(?:(\d+)/(\d+))?SM$`)
	wholeRe    = regexp.MustCompile(`^\d$`)
	runwayRe   = regexp.MustCompile(`^R\d{2}[LRC]?/`)
	recentRe   = regexp.MustCompile(`^RE[A-Z]{2,}$`)
	weatherRe  = regexp.MustCompile(`^(-|\+|VC)?(MI|PR|BC|DR|BL|SH|TS|FZ)?((?:DZ|RA|SN|SG|IC|PL|GR|GS|UP|BR|FG|FU|VA|DU|SA|HZ|PY|PO|SQ|FC|SS|DS)*)$`)
	skyRe      = regexp.MustCompile(`^(SKC|CLR|NSC|NCD|FEW|SCT|BKN|OVC|VV|///)(\d{3}|///)?(CB|TCU|///)?$`)
	tempRe     = regexp.MustCompile(`^(M?\d{2}|//)/(M?\d{2}|//)?$`)
	pressureRe = regexp.MustCompile(`^(A|Q|QNH)(\d{3,4}|////)(INS)?$`)
	bareRe     = regexp.MustCompile(`^\d{4}$`)
	slpRe      = regexp.MustCompile(`^SLP(\d{3})$`)
)

var skyCoverage = map[string]Coverage{
	"SKC": CoverageClear,
	"CLR": CoverageClear,
	"NSC": CoverageClear,
	"NCD": CoverageClear,
	"FEW": CoverageFew,
	"SCT": CoverageScattered,
	"BKN": CoverageBroken,
	"OVC": CoverageOvercast,
	"VV":  CoverageVerticalVisibility,
	"///": CoverageUnknown,
}

// Groups that carry nothing the weather model uses.
var ignoredGroups = map[string]bool{
	"AUTO": true,
	"COR":  true,
	"NSW":  true,
	"$":    true,
	"//":   true,
}

// Groups that start a trend forecast; everything after them is ignored.
var trendGroups = map[string]bool{
	"NOSIG": true,
	"BECMG": true,
	"TEMPO": true,
}

// ParseReport reads a METAR-style report into an Observation. Only the groups
// that drive the weather model are interpreted; other known groups are skipped
// and an unrecognized group is a *ReportParseError. Pressure is resolved by
// OverridePressure once the rest of the report is decoded.
func ParseReport(report string) (Observation, error) {
	obs, err := decodeReport(report)
	if err != nil {
		return Observation{}, err
	}
	return OverridePressure(obs), nil
}

// decodeReport decodes every group except pressure, whose groups are only
// recognized and skipped.
func decodeReport(report string) (Observation, error) {
	raw := strings.TrimSpace(report)
	tokens := strings.Fields(strings.ToUpper(raw))
	fail := func(format string, args ...any) (Observation, error) {
		return Observation{}, &ReportParseError{Report: raw, Reason: fmt.Sprintf(format, args...)}
	}
	if len(tokens) == 0 {
		return fail("empty report")
	}

	obs := Observation{Raw: raw, Phenomena: Phenomena{}}

	body, _ := splitRemarks(tokens)

	i := 0
	for i < len(body) && (body[i] == "METAR" || body[i] == "SPECI" || body[i] == "COR") {
		i++
	}
	if i >= len(body) || !stationRe.MatchString(body[i]) {
		return fail("missing station identifier")
	}
	obs.StationID = body[i]
	i++

	if i < len(body) && timeRe.MatchString(body[i]) {
		t, err := parseObservationTime(body[i])
		if err != nil {
			return fail("%v", err)
		}
		obs.Time = &t
		i++
	}

	seenTemperature := false
	for ; i < len(body); i++ {
		tok := body[i]
		switch {
		case trendGroups[tok]:
			i = len(body)
		case ignoredGroups[tok]:
		case tok == "NIL":
			return fail("missing report")
		case tok == "CAVOK":
			obs.CAVOK = true
			obs.VisibilityM = ptr(cavokVisM)
		case windRe.MatchString(tok):
			if err := parseWind(&obs, tok); err != nil {
				return fail("%v", err)
			}
		case windVarRe.MatchString(tok), visDirRe.MatchString(tok), runwayRe.MatchString(tok), recentRe.MatchString(tok):
		case !seenTemperature && visMetreRe.MatchString(tok):
			v, _ := strconv.Atoi(visMetreRe.FindStringSubmatch(tok)[1])
			if v == maxVisCode {
				v = cavokVisM
			}
			obs.VisibilityM = ptr(v)
		case wholeRe.MatchString(tok) && i+1 < len(body) && visMileRe.MatchString(body[i+1]):
			whole, _ := strconv.Atoi(tok)
			m, err := parseMileVisibility(body[i+1])
			if err != nil {
				return fail("%v", err)
			}
			obs.VisibilityM = ptr(int((float64(whole) + m) * mileToM))
			i++
		case visMileRe.MatchString(tok):
			m, err := parseMileVisibility(tok)
			if err != nil {
				return fail("%v", err)
			}
			obs.VisibilityM = ptr(int(m * mileToM))
		case skyRe.MatchString(tok):
			obs.SkyLayers = append(obs.SkyLayers, parseSkyLayer(tok))
		case isWeatherGroup(tok):
			addWeather(&obs, tok)
		case tempRe.MatchString(tok):
			parseTemperature(&obs, tok)
			seenTemperature = true
		case isPressureGroup(tok, seenTemperature):
		default:
			return fail("unparsed group %q", tok)
		}
	}

	return obs, nil
}

// OverridePressure sets the pressure of obs from its raw report. The last
// altimeter group of the report body wins: "Q" and "QNH" groups are hPa, "A"
// and "INS" groups are hundredths of inHg, and a bare four-digit value after
// the temperature group is hPa unless it exceeds 2500. Without a usable group,
// an SLP remark is used. Trend groups are not read.
func OverridePressure(obs Observation) Observation {
	body, remarks := splitRemarks(strings.Fields(strings.ToUpper(obs.Raw)))
	obs.PressureHPa = nil

	seenTemperature := false
	for _, tok := range body {
		if trendGroups[tok] {
			break
		}
		if !isPressureGroup(tok, seenTemperature) {
			seenTemperature = seenTemperature || (tempRe.MatchString(tok) && !skyRe.MatchString(tok))
			continue
		}
		if p, ok := parsePressure(tok); ok {
			obs.PressureHPa = &p
		}
	}

	for _, tok := range remarks {
		if obs.PressureHPa != nil {
			break
		}
		if m := slpRe.FindStringSubmatch(tok); m != nil {
			obs.PressureHPa = ptr(seaLevelPressure(m[1]))
		}
	}
	return obs
}

// splitRemarks separates the report body from the groups after RMK.
func splitRemarks(tokens []string) (body, remarks []string) {
	for i, tok := range tokens {
		if tok == "RMK" {
			return tokens[:i], tokens[i+1:]
		}
	}
	return tokens, nil
}

func isPressureGroup(tok string, afterTemperature bool) bool {
	return pressureRe.MatchString(tok) || (afterTemperature && bareRe.MatchString(tok))
}

// parseObservationTime resolves a DDHHMMZ group against the current month.
// When the day lies in the future it resolves to the latest earlier month
// that has that day.
func parseObservationTime(group string) (time.Time, error) {
	m := timeRe.FindStringSubmatch(group)
	day, _ := strconv.Atoi(m[1])
	hour, _ := strconv.Atoi(m[2])
	minute, _ := strconv.Atoi(m[3])
	if day < 1 || day > 31 || hour > 23 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid time group %q", group)
	}

	now := clock.Now().UTC()
	year, month := now.Year(), now.Month()
	if day > now.Day() {
		for {
			month--
			if month < time.January {
				month = time.December
				year--
			}
			if day <= daysIn(year, month) {
				break
			}
		}
	}
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC), nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func parseWind(obs *Observation, group string) error {
	m := windRe.FindStringSubmatch(group)
	if m[2] == "//" {
		return nil
	}
	factor := knotToMPS
	switch m[4] {
	case "MPS":
		factor = 1
	case "KMH":
		factor = kmhToMPS
	}

	if m[1] != "VRB" && m[1] != "///" {
		dir, _ := strconv.Atoi(m[1])
		if dir > 360 {
			return fmt.Errorf("invalid wind direction in %q", group)
		}
		obs.WindDirDeg = ptr(dir % 360)
	}
	speed, _ := strconv.Atoi(m[2])
	obs.WindSpeedMPS = ptr(float64(speed) * factor)
	if m[3] != "" {
		gust, _ := strconv.Atoi(m[3])
		obs.WindGustMPS = ptr(float64(gust) * factor)
	}
	return nil
}

// parseMileVisibility returns the statute miles of groups such as "10SM",
// "1/2SM" or "P6SM".
func parseMileVisibility(group string) (float64, error) {
	m := visMileRe.FindStringSubmatch(group)
	if m[2] == "" && m[3] == "" {
		return 0, fmt.Errorf("invalid visibility %q", group)
	}
	var miles float64
	if m[2] != "" {
		whole, _ := strconv.Atoi(m[2])
		miles = float64(whole)
	}
	if m[3] != "" {
		num, _ := strconv.Atoi(m[3])
		den, _ := strconv.Atoi(m[4])
		if den == 0 {
			return 0, fmt.Errorf("invalid visibility %q", group)
		}
		miles += float64(num) / float64(den)
	}
	return miles, nil
}

func parseSkyLayer(group string) SkyLayer {
	m := skyRe.FindStringSubmatch(group)
	layer := SkyLayer{Coverage: skyCoverage[m[1]]}
	if m[2] != "" && m[2] != "///" {
		hundreds, _ := strconv.Atoi(m[2])
		layer.HeightM = ptr(int(float64(hundreds*100) * footToM))
	}
	return layer
}

func isWeatherGroup(group string) bool {
	m := weatherRe.FindStringSubmatch(group)
	return m != nil && m[2]+m[3] != ""
}

func addWeather(obs *Observation, group string) {
	obs.WeatherCodes = append(obs.WeatherCodes, group)
	m := weatherRe.FindStringSubmatch(group)
	if m[2] == "TS" {
		obs.Phenomena[PhenomenonThunderstorm] = true
	}
	codes := m[3]
	for j := 0; j+2 <= len(codes); j += 2 {
		switch codes[j : j+2] {
		case "RA":
			obs.Phenomena[PhenomenonRain] = true
		case "SN", "SG":
			obs.Phenomena[PhenomenonSnow] = true
		case "SS", "DS":
			obs.Phenomena[PhenomenonThunderstorm] = true
		}
	}
}

func parseTemperature(obs *Observation, group string) {
	m := tempRe.FindStringSubmatch(group)
	if v, ok := signedTemperature(m[1]); ok {
		obs.TemperatureC = &v
	}
	if v, ok := signedTemperature(m[2]); ok {
		obs.DewPointC = &v
	}
}

func signedTemperature(s string) (int, bool) {
	if s == "" || s == "//" {
		return 0, false
	}
	neg := strings.HasPrefix(s, "M")
	v, err := strconv.Atoi(strings.TrimPrefix(s, "M"))
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

// parsePressure reads an altimeter group into hectopascals. "Q" groups are
// hPa, "A" groups are hundredths of inHg, and a bare value above 2500 is
// taken as hundredths of inHg.
func parsePressure(group string) (float64, bool) {
	unit, digits, suffix := "", group, ""
	if m := pressureRe.FindStringSubmatch(group); m != nil {
		unit, digits, suffix = m[1], m[2], m[3]
	}
	if digits == "////" {
		return 0, false
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	switch {
	case unit == "A" || suffix == "INS":
		return v / 100 * inHgToHPa, true
	case unit == "" && v > 2500:
		return v / 100 * inHgToHPa, true
	default:
		return v, true
	}
}

// seaLevelPressure decodes the three digits of an SLP remark (tenths of hPa
// with the leading 9 or 10 dropped).
func seaLevelPressure(digits string) float64 {
	v, _ := strconv.ParseFloat(digits, 64)
	v /= 10
	if v < 50 {
		return v + 1000
	}
	return v + 900
}
