package domain

import "fmt"

// MemoryStore is an in-memory WeatherStore. It starts with the defaults of a
// freshly created mission.
type MemoryStore struct {
	ints  map[Field]int
	bools map[Field]bool
}

// NewMemoryStore returns a store holding default mission weather.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ints: map[Field]int{
			FieldWindGroundDir:   0,
			FieldWindGroundSpeed: 0,
			FieldWind2000Dir:     0,
			FieldWind2000Speed:   0,
			FieldWind8000Dir:     0,
			FieldWind8000Speed:   0,
			FieldTurbulence:      0,
			FieldQNH:             760,
			FieldVisibility:      80000,
			FieldFogVisibility:   0,
			FieldFogThickness:    0,
			FieldCloudDensity:    0,
			FieldCloudBase:       300,
			FieldCloudThickness:  200,
			FieldPrecipitation:   int(PrecipitationNone),
			FieldTemperature:     20,
			FieldAtmosphereType:  AtmosphereStandard,
		},
		bools: map[Field]bool{FieldFogEnabled: false},
	}
}

func (m *MemoryStore) Int(f Field) (int, error) {
	v, ok := m.ints[f]
	if !ok {
		return 0, fmt.Errorf("unknown integer field %s", f)
	}
	return v, nil
}

func (m *MemoryStore) SetInt(f Field, v int) error {
	if _, ok := m.ints[f]; !ok {
		return fmt.Errorf("unknown integer field %s", f)
	}
	m.ints[f] = v
	return nil
}

func (m *MemoryStore) Bool(f Field) (bool, error) {
	v, ok := m.bools[f]
	if !ok {
		return false, fmt.Errorf("unknown boolean field %s", f)
	}
	return v, nil
}

func (m *MemoryStore) SetBool(f Field, v bool) error {
	if _, ok := m.bools[f]; !ok {
		return fmt.Errorf("unknown boolean field %s", f)
	}
	m.bools[f] = v
	return nil
}
