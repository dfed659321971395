package miz

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/miz-weather/internal/adapter/luatable"
	"github.com/couchcryptid/miz-weather/internal/domain"
)

// Mission is the decoded mission document. Only the weather and start time
// sub-trees are exposed for mutation.
type Mission struct {
	root       *luatable.Table
	dictionary *luatable.Table
}

// weatherPaths locates every weather field in the mission document.
var weatherPaths = map[domain.Field][]string{
	domain.FieldWindGroundDir:   {"weather", "wind", "atGround", "dir"},
	domain.FieldWindGroundSpeed: {"weather", "wind", "atGround", "speed"},
	domain.FieldWind2000Dir:     {"weather", "wind", "at2000", "dir"},
	domain.FieldWind2000Speed:   {"weather", "wind", "at2000", "speed"},
	domain.FieldWind8000Dir:     {"weather", "wind", "at8000", "dir"},
	domain.FieldWind8000Speed:   {"weather", "wind", "at8000", "speed"},
	domain.FieldTurbulence:      {"weather", "groundTurbulence"},
	domain.FieldQNH:             {"weather", "qnh"},
	domain.FieldVisibility:      {"weather", "visibility", "distance"},
	domain.FieldFogEnabled:      {"weather", "enable_fog"},
	domain.FieldFogVisibility:   {"weather", "fog", "visibility"},
	domain.FieldFogThickness:    {"weather", "fog", "thickness"},
	domain.FieldCloudDensity:    {"weather", "clouds", "density"},
	domain.FieldCloudBase:       {"weather", "clouds", "base"},
	domain.FieldCloudThickness:  {"weather", "clouds", "thickness"},
	domain.FieldPrecipitation:   {"weather", "clouds", "iprecptns"},
	domain.FieldTemperature:     {"weather", "season", "temperature"},
	domain.FieldAtmosphereType:  {"weather", "atmosphere_type"},
}

// Precipitation codes stored in clouds.iprecptns.
var precipitationCodes = map[domain.Precipitation]int{
	domain.PrecipitationNone:      0,
	domain.PrecipitationRain:      1,
	domain.PrecipitationHeavyRain: 2,
	domain.PrecipitationSnow:      3,
	domain.PrecipitationHeavySnow: 4,
}

// PrecipitationCode returns the document code of a precipitation kind.
func PrecipitationCode(p domain.Precipitation) (int, error) {
	code, ok := precipitationCodes[p]
	if !ok {
		return 0, fmt.Errorf("no code for precipitation %s", p)
	}
	return code, nil
}

// PrecipitationFromCode is the inverse of PrecipitationCode.
func PrecipitationFromCode(code int) (domain.Precipitation, error) {
	for p, c := range precipitationCodes {
		if c == code {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown precipitation code %d", code)
}

// Weather returns the validated weather view of the mission.
func (m *Mission) Weather() *domain.WeatherState {
	return domain.NewWeatherState(&weatherStore{root: m.root})
}

// TimeStore returns the start date and time of the mission for writing.
func (m *Mission) TimeStore() domain.TimeStore {
	return &timeStore{root: m.root}
}

// StartTime reads the start date and time.
func (m *Mission) StartTime() (domain.MissionTime, error) {
	var (
		out domain.MissionTime
		err error
	)
	fields := []struct {
		dst  *int
		path []string
	}{
		{&out.Year, []string{"date", "Year"}},
		{&out.Month, []string{"date", "Month"}},
		{&out.Day, []string{"date", "Day"}},
		{&out.Seconds, []string{"start_time"}},
	}
	for _, f := range fields {
		if *f.dst, err = lookupInt(m.root, f.path); err != nil {
			return domain.MissionTime{}, err
		}
	}
	return out, nil
}

// Localize resolves a dictionary key. Values that are not dictionary keys are
// returned unchanged.
func (m *Mission) Localize(key string) string {
	if !strings.HasPrefix(key, "DictKey_") || m.dictionary == nil {
		return key
	}
	if v, ok := m.dictionary.Get(luatable.StringKey(key)); ok {
		if s, ok := v.(luatable.String); ok {
			return string(s)
		}
	}
	return key
}

// Sortie returns the localized mission name.
func (m *Mission) Sortie() string {
	v, ok := m.root.Get(luatable.StringKey("sortie"))
	if !ok {
		return ""
	}
	s, ok := v.(luatable.String)
	if !ok {
		return ""
	}
	return m.Localize(string(s))
}

func lookupInt(root *luatable.Table, path []string) (int, error) {
	v, ok := root.Lookup(path...)
	if !ok {
		return 0, fmt.Errorf("mission has no %s", strings.Join(path, "."))
	}
	n, ok := v.(luatable.Number)
	if !ok {
		return 0, fmt.Errorf("mission %s is not a number", strings.Join(path, "."))
	}
	i, err := n.Int()
	if err != nil {
		return 0, fmt.Errorf("mission %s: %w", strings.Join(path, "."), err)
	}
	return i, nil
}

// weatherStore persists weather fields into the mission table.
type weatherStore struct {
	root *luatable.Table
}

func (s *weatherStore) path(f domain.Field) ([]string, error) {
	p, ok := weatherPaths[f]
	if !ok {
		return nil, fmt.Errorf("unknown weather field %s", f)
	}
	return p, nil
}

func (s *weatherStore) Int(f domain.Field) (int, error) {
	p, err := s.path(f)
	if err != nil {
		return 0, err
	}
	v, err := lookupInt(s.root, p)
	if err != nil {
		return 0, err
	}
	if f == domain.FieldPrecipitation {
		precip, err := PrecipitationFromCode(v)
		return int(precip), err
	}
	return v, nil
}

func (s *weatherStore) SetInt(f domain.Field, v int) error {
	p, err := s.path(f)
	if err != nil {
		return err
	}
	if f == domain.FieldPrecipitation {
		if v, err = PrecipitationCode(domain.Precipitation(v)); err != nil {
			return err
		}
	}
	return s.root.Assign(luatable.NumberFromInt(v), p...)
}

func (s *weatherStore) Bool(f domain.Field) (bool, error) {
	p, err := s.path(f)
	if err != nil {
		return false, err
	}
	v, ok := s.root.Lookup(p...)
	if !ok {
		return false, fmt.Errorf("mission has no %s", strings.Join(p, "."))
	}
	b, ok := v.(luatable.Bool)
	if !ok {
		return false, fmt.Errorf("mission %s is not a boolean", strings.Join(p, "."))
	}
	return bool(b), nil
}

func (s *weatherStore) SetBool(f domain.Field, v bool) error {
	p, err := s.path(f)
	if err != nil {
		return err
	}
	return s.root.Assign(luatable.Bool(v), p...)
}

const secondsPerDay = 24 * 60 * 60

type timeStore struct {
	root *luatable.Table
}

func (s *timeStore) SetStartDate(year, month, day int) error {
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1 {
		return fmt.Errorf("invalid start date %04d-%02d-%02d", year, month, day)
	}
	for _, kv := range []struct {
		key string
		v   int
	}{{"Day", day}, {"Year", year}, {"Month", month}} {
		if err := s.root.Assign(luatable.NumberFromInt(kv.v), "date", kv.key); err != nil {
			return err
		}
	}
	return nil
}

func (s *timeStore) SetStartTime(seconds int) error {
	if seconds < 0 || seconds >= secondsPerDay {
		return fmt.Errorf("invalid start time %d: must be in [0, %d)", seconds, secondsPerDay)
	}
	return s.root.Assign(luatable.NumberFromInt(seconds), "start_time")
}
