package domain

import (
	"fmt"
)

// Field names one persisted weather value.
type Field string

const (
	FieldWindGroundDir   Field = "wind_ground_dir_deg"
	FieldWindGroundSpeed Field = "wind_ground_speed_mps"
	FieldWind2000Dir     Field = "wind_2000_dir_deg"
	FieldWind2000Speed   Field = "wind_2000_speed_mps"
	FieldWind8000Dir     Field = "wind_8000_dir_deg"
	FieldWind8000Speed   Field = "wind_8000_speed_mps"
	FieldTurbulence      Field = "turbulence_ground"
	FieldQNH             Field = "qnh_mmhg"
	FieldVisibility      Field = "visibility_m"
	FieldFogEnabled      Field = "fog_enabled"
	FieldFogVisibility   Field = "fog_visibility_m"
	FieldFogThickness    Field = "fog_thickness_m"
	FieldCloudDensity    Field = "cloud_density"
	FieldCloudBase       Field = "cloud_base_m"
	FieldCloudThickness  Field = "cloud_thickness_m"
	FieldPrecipitation   Field = "precipitation"
	FieldTemperature     Field = "temperature_c"
	FieldAtmosphereType  Field = "atmosphere_type"
)

type bounds struct{ min, max int }

// fieldRanges lists the accepted range of every bounded integer field.
// Temperature has no entry: it is only constrained through precipitation.
var fieldRanges = map[Field]bounds{
	FieldWindGroundDir:   {0, 359},
	FieldWind2000Dir:     {0, 359},
	FieldWind8000Dir:     {0, 359},
	FieldWindGroundSpeed: {0, 50},
	FieldWind2000Speed:   {0, 50},
	FieldWind8000Speed:   {0, 50},
	FieldTurbulence:      {0, 60},
	FieldQNH:             {720, 790},
	FieldVisibility:      {0, 800000},
	FieldFogVisibility:   {0, 6000},
	FieldFogThickness:    {0, 1000},
	FieldCloudDensity:    {0, 10},
	FieldCloudBase:       {300, 5000},
	FieldCloudThickness:  {200, 2000},
	FieldPrecipitation:   {int(PrecipitationNone), int(PrecipitationHeavySnow)},
	FieldAtmosphereType:  {AtmosphereStandard, AtmosphereStandard},
}

// AtmosphereStandard is the only atmosphere type written.
const AtmosphereStandard = 0

// Precipitation is the precipitation kind of a mission.
type Precipitation int

const (
	PrecipitationNone Precipitation = iota
	PrecipitationRain
	PrecipitationSnow
	PrecipitationHeavyRain
	PrecipitationHeavySnow
)

var precipitationNames = [...]string{"none", "rain", "snow", "heavy_rain", "heavy_snow"}

func (p Precipitation) String() string {
	if p < 0 || int(p) >= len(precipitationNames) {
		return fmt.Sprintf("precipitation(%d)", int(p))
	}
	return precipitationNames[p]
}

// MarshalText encodes the precipitation by name.
func (p Precipitation) MarshalText() ([]byte, error) {
	if p < 0 || int(p) >= len(precipitationNames) {
		return nil, fmt.Errorf("unknown precipitation %d", int(p))
	}
	return []byte(precipitationNames[p]), nil
}

// UnmarshalText decodes a precipitation name.
func (p *Precipitation) UnmarshalText(text []byte) error {
	for i, name := range precipitationNames {
		if name == string(text) {
			*p = Precipitation(i)
			return nil
		}
	}
	return fmt.Errorf("unknown precipitation %q", string(text))
}

// legality returns the minimum cloud density a precipitation kind needs and
// whether it requires freezing temperature.
func (p Precipitation) legality() (minDensity int, freezing bool) {
	switch p {
	case PrecipitationRain:
		return 5, false
	case PrecipitationSnow:
		return 5, true
	case PrecipitationHeavyRain:
		return 9, false
	case PrecipitationHeavySnow:
		return 9, true
	}
	return 0, false
}

// WeatherStore is the persisted backing of a WeatherState. Integer fields are
// read and written through Int/SetInt (precipitation as its Precipitation
// value); fog_enabled through Bool/SetBool.
type WeatherStore interface {
	Int(f Field) (int, error)
	SetInt(f Field, v int) error
	Bool(f Field) (bool, error)
	SetBool(f Field, v bool) error
}

// WeatherState is the validated view over a mission's weather. Setters reject
// out-of-range values with a *ValidationError and never clamp.
type WeatherState struct {
	store WeatherStore
}

// NewWeatherState wraps a store.
func NewWeatherState(store WeatherStore) *WeatherState {
	return &WeatherState{store: store}
}

func (w *WeatherState) setInt(f Field, v int) error {
	if b, ok := fieldRanges[f]; ok && (v < b.min || v > b.max) {
		return &ValidationError{Field: f, Value: v, Min: b.min, Max: b.max}
	}
	if err := w.store.SetInt(f, v); err != nil {
		return fmt.Errorf("set %s: %w", f, err)
	}
	return nil
}

func (w *WeatherState) getInt(f Field) (int, error) {
	v, err := w.store.Int(f)
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", f, err)
	}
	return v, nil
}

// WindGroundDir returns the direction the ground wind blows to.
func (w *WeatherState) WindGroundDir() (int, error) { return w.getInt(FieldWindGroundDir) }

// SetWindGroundDir accepts 0..359.
func (w *WeatherState) SetWindGroundDir(v int) error { return w.setInt(FieldWindGroundDir, v) }

func (w *WeatherState) WindGroundSpeed() (int, error) { return w.getInt(FieldWindGroundSpeed) }

// SetWindGroundSpeed accepts 0..50 m/s.
func (w *WeatherState) SetWindGroundSpeed(v int) error { return w.setInt(FieldWindGroundSpeed, v) }

func (w *WeatherState) Wind2000Dir() (int, error) { return w.getInt(FieldWind2000Dir) }

// SetWind2000Dir accepts 0..359.
func (w *WeatherState) SetWind2000Dir(v int) error { return w.setInt(FieldWind2000Dir, v) }

func (w *WeatherState) Wind2000Speed() (int, error) { return w.getInt(FieldWind2000Speed) }

// SetWind2000Speed accepts 0..50 m/s.
func (w *WeatherState) SetWind2000Speed(v int) error { return w.setInt(FieldWind2000Speed, v) }

func (w *WeatherState) Wind8000Dir() (int, error) { return w.getInt(FieldWind8000Dir) }

// SetWind8000Dir accepts 0..359.
func (w *WeatherState) SetWind8000Dir(v int) error { return w.setInt(FieldWind8000Dir, v) }

func (w *WeatherState) Wind8000Speed() (int, error) { return w.getInt(FieldWind8000Speed) }

// SetWind8000Speed accepts 0..50 m/s.
func (w *WeatherState) SetWind8000Speed(v int) error { return w.setInt(FieldWind8000Speed, v) }

func (w *WeatherState) Turbulence() (int, error) { return w.getInt(FieldTurbulence) }

// SetTurbulence accepts 0..60.
func (w *WeatherState) SetTurbulence(v int) error { return w.setInt(FieldTurbulence, v) }

func (w *WeatherState) QNH() (int, error) { return w.getInt(FieldQNH) }

// SetQNH accepts 720..790 mmHg.
func (w *WeatherState) SetQNH(v int) error { return w.setInt(FieldQNH, v) }

func (w *WeatherState) Visibility() (int, error) { return w.getInt(FieldVisibility) }

// SetVisibility accepts 0..800000 m.
func (w *WeatherState) SetVisibility(v int) error { return w.setInt(FieldVisibility, v) }

func (w *WeatherState) FogEnabled() (bool, error) {
	v, err := w.store.Bool(FieldFogEnabled)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", FieldFogEnabled, err)
	}
	return v, nil
}

func (w *WeatherState) SetFogEnabled(v bool) error {
	if err := w.store.SetBool(FieldFogEnabled, v); err != nil {
		return fmt.Errorf("set %s: %w", FieldFogEnabled, err)
	}
	return nil
}

func (w *WeatherState) FogVisibility() (int, error) { return w.getInt(FieldFogVisibility) }

// SetFogVisibility accepts 0..6000 m.
func (w *WeatherState) SetFogVisibility(v int) error { return w.setInt(FieldFogVisibility, v) }

func (w *WeatherState) FogThickness() (int, error) { return w.getInt(FieldFogThickness) }

// SetFogThickness accepts 0..1000 m.
func (w *WeatherState) SetFogThickness(v int) error { return w.setInt(FieldFogThickness, v) }

func (w *WeatherState) CloudDensity() (int, error) { return w.getInt(FieldCloudDensity) }

// SetCloudDensity accepts 0..10.
func (w *WeatherState) SetCloudDensity(v int) error { return w.setInt(FieldCloudDensity, v) }

func (w *WeatherState) CloudBase() (int, error) { return w.getInt(FieldCloudBase) }

// SetCloudBase accepts 300..5000 m.
func (w *WeatherState) SetCloudBase(v int) error { return w.setInt(FieldCloudBase, v) }

func (w *WeatherState) CloudThickness() (int, error) { return w.getInt(FieldCloudThickness) }

// SetCloudThickness accepts 200..2000 m.
func (w *WeatherState) SetCloudThickness(v int) error { return w.setInt(FieldCloudThickness, v) }

func (w *WeatherState) Temperature() (int, error) { return w.getInt(FieldTemperature) }

// SetTemperature accepts any value in °C.
func (w *WeatherState) SetTemperature(v int) error { return w.setInt(FieldTemperature, v) }

func (w *WeatherState) AtmosphereType() (int, error) { return w.getInt(FieldAtmosphereType) }

// SetAtmosphereType accepts only AtmosphereStandard.
func (w *WeatherState) SetAtmosphereType(v int) error { return w.setInt(FieldAtmosphereType, v) }

func (w *WeatherState) Precipitation() (Precipitation, error) {
	v, err := w.getInt(FieldPrecipitation)
	return Precipitation(v), err
}

// SetPrecipitation checks the kind against the stored temperature and cloud
// density: snow needs temperature <= 0, rain and snow need density >= 5, and
// the heavy kinds need density >= 9.
func (w *WeatherState) SetPrecipitation(p Precipitation) error {
	v := int(p)
	if b := fieldRanges[FieldPrecipitation]; v < b.min || v > b.max {
		return &ValidationError{Field: FieldPrecipitation, Value: v, Min: b.min, Max: b.max}
	}
	minDensity, freezing := p.legality()
	if freezing {
		temp, err := w.Temperature()
		if err != nil {
			return err
		}
		if temp > 0 {
			return &ValidationError{Field: FieldPrecipitation, Value: v,
				Reason: fmt.Sprintf("%s requires temperature <= 0, got %d", p, temp)}
		}
	}
	if minDensity > 0 {
		density, err := w.CloudDensity()
		if err != nil {
			return err
		}
		if density < minDensity {
			return &ValidationError{Field: FieldPrecipitation, Value: v,
				Reason: fmt.Sprintf("%s requires cloud density >= %d, got %d", p, minDensity, density)}
		}
	}
	return w.setInt(FieldPrecipitation, v)
}

// Wind is a direction (degrees, blowing to) and speed (m/s) pair.
type Wind struct {
	Dir   int `json:"dir"`
	Speed int `json:"speed"`
}

// Fog describes the fog layer.
type Fog struct {
	Enabled    bool `json:"enabled"`
	Visibility int  `json:"visibility"`
	Thickness  int  `json:"thickness"`
}

// Clouds describes the representative cloud layer.
type Clouds struct {
	Density   int `json:"density"`
	Base      int `json:"base"`
	Thickness int `json:"thickness"`
}

// Weather is a plain copy of every WeatherState field.
type Weather struct {
	WindGround     Wind          `json:"wind_ground"`
	Wind2000       Wind          `json:"wind_2000"`
	Wind8000       Wind          `json:"wind_8000"`
	Turbulence     int           `json:"turbulence"`
	QNH            int           `json:"qnh"`
	Visibility     int           `json:"visibility"`
	Fog            Fog           `json:"fog"`
	TemperatureC   int           `json:"temperature"`
	Clouds         Clouds        `json:"clouds"`
	Precipitation  Precipitation `json:"precipitation"`
	AtmosphereType int           `json:"atmosphere_type"`
}

// Snapshot reads every field of the state.
func (w *WeatherState) Snapshot() (Weather, error) {
	var out Weather
	ints := []struct {
		f   Field
		dst *int
	}{
		{FieldWindGroundDir, &out.WindGround.Dir},
		{FieldWindGroundSpeed, &out.WindGround.Speed},
		{FieldWind2000Dir, &out.Wind2000.Dir},
		{FieldWind2000Speed, &out.Wind2000.Speed},
		{FieldWind8000Dir, &out.Wind8000.Dir},
		{FieldWind8000Speed, &out.Wind8000.Speed},
		{FieldTurbulence, &out.Turbulence},
		{FieldQNH, &out.QNH},
		{FieldVisibility, &out.Visibility},
		{FieldFogVisibility, &out.Fog.Visibility},
		{FieldFogThickness, &out.Fog.Thickness},
		{FieldTemperature, &out.TemperatureC},
		{FieldCloudDensity, &out.Clouds.Density},
		{FieldCloudBase, &out.Clouds.Base},
		{FieldCloudThickness, &out.Clouds.Thickness},
		{FieldAtmosphereType, &out.AtmosphereType},
	}
	for _, f := range ints {
		v, err := w.getInt(f.f)
		if err != nil {
			return Weather{}, err
		}
		*f.dst = v
	}
	fog, err := w.FogEnabled()
	if err != nil {
		return Weather{}, err
	}
	out.Fog.Enabled = fog
	if out.Precipitation, err = w.Precipitation(); err != nil {
		return Weather{}, err
	}
	return out, nil
}

// ApplyTo writes every field to the state. Temperature and clouds are written
// before precipitation so its legality check sees the final values.
func (wx Weather) ApplyTo(w *WeatherState) error {
	steps := []func() error{
		func() error { return w.SetWindGroundDir(wx.WindGround.Dir) },
		func() error { return w.SetWindGroundSpeed(wx.WindGround.Speed) },
		func() error { return w.SetWind2000Dir(wx.Wind2000.Dir) },
		func() error { return w.SetWind2000Speed(wx.Wind2000.Speed) },
		func() error { return w.SetWind8000Dir(wx.Wind8000.Dir) },
		func() error { return w.SetWind8000Speed(wx.Wind8000.Speed) },
		func() error { return w.SetTurbulence(wx.Turbulence) },
		func() error { return w.SetAtmosphereType(wx.AtmosphereType) },
		func() error { return w.SetQNH(wx.QNH) },
		func() error { return w.SetVisibility(wx.Visibility) },
		func() error { return w.SetFogThickness(wx.Fog.Thickness) },
		func() error { return w.SetFogVisibility(wx.Fog.Visibility) },
		func() error { return w.SetFogEnabled(wx.Fog.Enabled) },
		func() error { return w.SetTemperature(wx.TemperatureC) },
		func() error { return w.SetCloudDensity(wx.Clouds.Density) },
		func() error { return w.SetCloudThickness(wx.Clouds.Thickness) },
		func() error { return w.SetCloudBase(wx.Clouds.Base) },
		func() error { return w.SetPrecipitation(wx.Precipitation) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks every field range without touching a store.
func (wx Weather) Validate() error {
	return wx.ApplyTo(NewWeatherState(NewMemoryStore()))
}
