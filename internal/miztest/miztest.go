// Package miztest builds small but complete mission archives for tests and
// for the sample generator.
package miztest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/couchcryptid/miz-weather/internal/adapter/luatable"
	"github.com/couchcryptid/miz-weather/internal/adapter/miz"
	"github.com/couchcryptid/miz-weather/internal/domain"
	"github.com/klauspost/compress/zip"
)

// Options describes a generated archive. The zero value yields a mission with
// the editor's default weather, starting on 2011-06-01 at noon.
type Options struct {
	Weather *domain.Weather
	Time    *domain.MissionTime
	Sortie  string
	// Omit lists members left out of the archive.
	Omit []string
}

// Member is one archive entry. Directory entries end with a slash.
type Member struct {
	Name string
	Data []byte
}

// DefaultWeather is the weather of a freshly created mission.
func DefaultWeather() domain.Weather {
	return domain.Weather{
		QNH:            domain.StandardQNH,
		Visibility:     80000,
		TemperatureC:   20,
		Clouds:         domain.Clouds{Base: 300, Thickness: 200},
		AtmosphereType: domain.AtmosphereStandard,
	}
}

// DefaultTime is the start time of a generated mission.
func DefaultTime() domain.MissionTime {
	return domain.MissionTime{Year: 2011, Month: 6, Day: 1, Seconds: 43200}
}

func num(v int) luatable.Number { return luatable.NumberFromInt(v) }

func table(kv ...any) *luatable.Table {
	t := luatable.NewTable()
	for i := 0; i+1 < len(kv); i += 2 {
		t.Set(luatable.StringKey(kv[i].(string)), kv[i+1].(luatable.Value))
	}
	return t
}

func wind(w domain.Wind) *luatable.Table {
	return table("speed", num(w.Speed), "dir", num(w.Dir))
}

// MissionTable builds the mission document.
func MissionTable(o Options) (*luatable.Table, error) {
	wx := DefaultWeather()
	if o.Weather != nil {
		wx = *o.Weather
	}
	mt := DefaultTime()
	if o.Time != nil {
		mt = *o.Time
	}
	code, err := miz.PrecipitationCode(wx.Precipitation)
	if err != nil {
		return nil, err
	}

	weather := table(
		"atmosphere_type", num(wx.AtmosphereType),
		"wind", table(
			"at8000", wind(wx.Wind8000),
			"atGround", wind(wx.WindGround),
			"at2000", wind(wx.Wind2000),
		),
		"enable_fog", luatable.Bool(wx.Fog.Enabled),
		"season", table("temperature", num(wx.TemperatureC)),
		"type_weather", num(0),
		"qnh", num(wx.QNH),
		"cyclones", luatable.NewTable(),
		"name", luatable.String("Winter, clean sky"),
		"fog", table("thickness", num(wx.Fog.Thickness), "visibility", num(wx.Fog.Visibility)),
		"groundTurbulence", num(wx.Turbulence),
		"dust_density", luatable.Number("0.5"),
		"enable_dust", luatable.Bool(false),
		"visibility", table("distance", num(wx.Visibility)),
		"clouds", table(
			"thickness", num(wx.Clouds.Thickness),
			"density", num(wx.Clouds.Density),
			"base", num(wx.Clouds.Base),
			"iprecptns", num(code),
		),
	)

	groups := luatable.NewTable()
	groups.Set(luatable.IndexKey(1), table("name", luatable.String("Enfield"), "frequency", luatable.Number("124.5")))

	return table(
		"trig", table("actions", luatable.NewTable(), "func", luatable.NewTable()),
		"date", table("Day", num(mt.Day), "Year", num(mt.Year), "Month", num(mt.Month)),
		"sortie", luatable.String("DictKey_sortie_5"),
		"descriptionText", luatable.String("DictKey_descriptionText_1"),
		"maxDictId", num(5),
		"groundControl", table("isPilotControlVehicles", luatable.Bool(false)),
		"start_time", num(mt.Seconds),
		"theatre", luatable.String("Caucasus"),
		"weather", weather,
		"groups", groups,
		"version", num(12),
		"currentKey", num(1264),
	), nil
}

func dictionaryTable(sortie string) *luatable.Table {
	if sortie == "" {
		sortie = "Test mission"
	}
	return table(
		"DictKey_descriptionText_1", luatable.String("Briefing for the 5 € flight,\nsecond line"),
		"DictKey_sortie_5", luatable.String(sortie),
	)
}

const (
	optionsText    = "options = \n{\n    [\"difficulty\"] = \n    {\n        [\"labels\"] = 1,\n    }, -- end of [\"difficulty\"]\n} -- end of options"
	warehousesText = "warehouses = \n{\n    [\"airports\"] = \n    {\n    }, -- end of [\"airports\"]\n} -- end of warehouses"
	theatreText    = "Caucasus"
)

// Members builds every archive entry in archive order.
func Members(o Options) ([]Member, error) {
	missionTbl, err := MissionTable(o)
	if err != nil {
		return nil, err
	}
	mission, err := luatable.EncodeBytes(missionTbl, luatable.DefaultHints("mission"))
	if err != nil {
		return nil, fmt.Errorf("encode mission: %w", err)
	}
	dictionary, err := luatable.EncodeBytes(dictionaryTable(o.Sortie), luatable.DefaultHints("dictionary"))
	if err != nil {
		return nil, fmt.Errorf("encode dictionary: %w", err)
	}
	mapResource, err := luatable.EncodeBytes(luatable.NewTable(), luatable.DefaultHints("mapResource"))
	if err != nil {
		return nil, fmt.Errorf("encode map resource: %w", err)
	}

	all := []Member{
		{Name: miz.MemberMission, Data: mission},
		{Name: miz.MemberOptions, Data: []byte(optionsText)},
		{Name: "theatre", Data: []byte(theatreText)},
		{Name: miz.MemberWarehouses, Data: []byte(warehousesText)},
		{Name: "l10n/DEFAULT/"},
		{Name: miz.MemberDictionary, Data: dictionary},
		{Name: miz.MemberMapResource, Data: mapResource},
	}
	out := all[:0]
	for _, m := range all {
		if !slices.Contains(o.Omit, m.Name) {
			out = append(out, m)
		}
	}
	return out, nil
}

// Write creates an archive at path.
func Write(path string, o Options) error {
	members, err := Members(o)
	if err != nil {
		return err
	}
	return WriteMembers(path, members)
}

// WriteMembers creates an archive holding exactly the given entries.
func WriteMembers(path string, members []Member) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, m := range members {
		method := zip.Deflate
		if len(m.Name) > 0 && m.Name[len(m.Name)-1] == '/' {
			method = zip.Store
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: m.Name, Method: method})
		if err != nil {
			return fmt.Errorf("add %s: %w", m.Name, err)
		}
		if _, err := w.Write(m.Data); err != nil {
			return fmt.Errorf("add %s: %w", m.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish %s: %w", path, err)
	}
	return f.Close()
}

// Archive writes a test archive named test.miz in a fresh temporary directory
// and returns its path.
func Archive(tb testing.TB, o Options) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "test"+miz.Extension)
	if err := Write(path, o); err != nil {
		tb.Fatalf("write archive: %v", err)
	}
	return path
}

// ReadMember returns the raw bytes of one member of the archive at path.
func ReadMember(tb testing.TB, path, name string) []byte {
	tb.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		tb.Fatalf("open %s: %v", path, err)
	}
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			tb.Fatalf("open member %s: %v", name, err)
		}
		defer rc.Close()
		data := make([]byte, f.UncompressedSize64)
		if _, err := io.ReadFull(rc, data); err != nil {
			tb.Fatalf("read member %s: %v", name, err)
		}
		return data
	}
	tb.Fatalf("archive %s has no member %s", path, name)
	return nil
}
