package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeatherState_SettersRejectOutOfRange(t *testing.T) {
	w := NewWeatherState(NewMemoryStore())

	tests := []struct {
		name  string
		set   func(int) error
		field Field
		ok    []int
		bad   []int
	}{
		{"ground dir", w.SetWindGroundDir, FieldWindGroundDir, []int{0, 359}, []int{-1, 360}},
		{"2000 dir", w.SetWind2000Dir, FieldWind2000Dir, []int{0, 359}, []int{-1, 360}},
		{"8000 dir", w.SetWind8000Dir, FieldWind8000Dir, []int{0, 359}, []int{-1, 360}},
		{"ground speed", w.SetWindGroundSpeed, FieldWindGroundSpeed, []int{0, 50}, []int{-1, 51}},
		{"2000 speed", w.SetWind2000Speed, FieldWind2000Speed, []int{0, 50}, []int{-1, 51}},
		{"8000 speed", w.SetWind8000Speed, FieldWind8000Speed, []int{0, 50}, []int{-1, 51}},
		{"turbulence", w.SetTurbulence, FieldTurbulence, []int{0, 60}, []int{-1, 61}},
		{"qnh", w.SetQNH, FieldQNH, []int{720, 790}, []int{719, 791}},
		{"visibility", w.SetVisibility, FieldVisibility, []int{0, 800000}, []int{-1, 800001}},
		{"fog visibility", w.SetFogVisibility, FieldFogVisibility, []int{0, 6000}, []int{-1, 6001}},
		{"fog thickness", w.SetFogThickness, FieldFogThickness, []int{0, 1000}, []int{-1, 1001}},
		{"cloud density", w.SetCloudDensity, FieldCloudDensity, []int{0, 10}, []int{-1, 11}},
		{"cloud base", w.SetCloudBase, FieldCloudBase, []int{300, 5000}, []int{299, 5001}},
		{"cloud thickness", w.SetCloudThickness, FieldCloudThickness, []int{200, 2000}, []int{199, 2001}},
		{"atmosphere", w.SetAtmosphereType, FieldAtmosphereType, []int{0}, []int{1}},
		{"temperature", w.SetTemperature, FieldTemperature, []int{-60, 0, 60}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, v := range tt.ok {
				assert.NoError(t, tt.set(v), "value %d", v)
			}
			for _, v := range tt.bad {
				err := tt.set(v)
				var vErr *ValidationError
				require.True(t, errors.As(err, &vErr), "value %d", v)
				assert.Equal(t, tt.field, vErr.Field)
				assert.Equal(t, v, vErr.Value)
			}
		})
	}
}

func TestWeatherState_RejectedValueIsNotStored(t *testing.T) {
	w := NewWeatherState(NewMemoryStore())
	require.NoError(t, w.SetQNH(750))
	require.Error(t, w.SetQNH(800))

	got, err := w.QNH()
	require.NoError(t, err)
	assert.Equal(t, 750, got)
}

func TestWeatherState_PrecipitationLegality(t *testing.T) {
	tests := []struct {
		name    string
		temp    int
		density int
		precip  Precipitation
		wantErr string
	}{
		{"none always allowed", 30, 0, PrecipitationNone, ""},
		{"rain needs density", 10, 4, PrecipitationRain, "cloud density >= 5"},
		{"rain allowed", 10, 5, PrecipitationRain, ""},
		{"snow above freezing", 1, 6, PrecipitationSnow, "temperature <= 0"},
		{"snow allowed", 0, 5, PrecipitationSnow, ""},
		{"heavy rain needs density 9", 15, 8, PrecipitationHeavyRain, "cloud density >= 9"},
		{"heavy rain allowed", 15, 9, PrecipitationHeavyRain, ""},
		{"heavy snow above freezing", 2, 10, PrecipitationHeavySnow, "temperature <= 0"},
		{"heavy snow needs density", -5, 8, PrecipitationHeavySnow, "cloud density >= 9"},
		{"heavy snow allowed", -5, 10, PrecipitationHeavySnow, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWeatherState(NewMemoryStore())
			require.NoError(t, w.SetTemperature(tt.temp))
			require.NoError(t, w.SetCloudDensity(tt.density))

			err := w.SetPrecipitation(tt.precip)
			if tt.wantErr == "" {
				require.NoError(t, err)
				got, err := w.Precipitation()
				require.NoError(t, err)
				assert.Equal(t, tt.precip, got)
				return
			}
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, FieldPrecipitation, vErr.Field)
			assert.Contains(t, vErr.Error(), tt.wantErr)
		})
	}

	w := NewWeatherState(NewMemoryStore())
	assert.Error(t, w.SetPrecipitation(Precipitation(7)))
}

func TestWeather_ApplyThenSnapshot(t *testing.T) {
	want := Weather{
		WindGround:     Wind{Dir: 130, Speed: 8},
		Wind2000:       Wind{Dir: 140, Speed: 21},
		Wind8000:       Wind{Dir: 100, Speed: 34},
		Turbulence:     20,
		QNH:            759,
		Visibility:     5000,
		Fog:            Fog{Enabled: true, Visibility: 5000, Thickness: 1000},
		TemperatureC:   -3,
		Clouds:         Clouds{Density: 9, Base: 900, Thickness: 1800},
		Precipitation:  PrecipitationHeavySnow,
		AtmosphereType: AtmosphereStandard,
	}
	w := NewWeatherState(NewMemoryStore())
	require.NoError(t, want.ApplyTo(w))

	got, err := w.Snapshot()
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestWeather_ApplyStopsAtFirstInvalidField(t *testing.T) {
	store := NewMemoryStore()
	w := NewWeatherState(store)
	wx := Weather{
		WindGround: Wind{Dir: 90, Speed: 5},
		QNH:        700,
		Visibility: 1000,
		Clouds:     Clouds{Base: 300, Thickness: 200},
	}
	err := wx.ApplyTo(w)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, FieldQNH, vErr.Field)

	vis, err := w.Visibility()
	require.NoError(t, err)
	assert.Equal(t, 80000, vis, "fields after the failing one are not written")
}

func TestPrecipitation_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		P Precipitation `json:"p"`
	}{PrecipitationHeavyRain})
	require.NoError(t, err)
	assert.JSONEq(t, `{"p":"heavy_rain"}`, string(data))

	var out struct {
		P Precipitation `json:"p"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"p":"snow"}`), &out))
	assert.Equal(t, PrecipitationSnow, out.P)
	assert.Error(t, json.Unmarshal([]byte(`{"p":"hail"}`), &out))
	assert.Equal(t, "precipitation(9)", Precipitation(9).String())
}

func TestMemoryStore_UnknownField(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Int(Field("nope"))
	assert.Error(t, err)
	assert.Error(t, s.SetInt(Field("nope"), 1))
	_, err = s.Bool(FieldQNH)
	assert.Error(t, err)
	assert.Error(t, s.SetBool(FieldQNH, true))
}
