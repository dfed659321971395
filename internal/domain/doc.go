// Package domain models mission weather and the textual reports it is built
// from and described by.
//
// # Reports
//
// Reports follow the METAR layout:
//
//	"UGTB 240830Z 31017KT CAVOK 11/02 Q1012 NOSIG"
//	station, DDHHMMZ time, wind, visibility, weather, clouds, T/Td, pressure
//
// Only the groups that drive the weather model are interpreted by
// [ParseReport]. Runway visual range, wind variation, recent weather and trend
// groups are skipped; remarks are scanned for an SLP group only.
//
// Units:
//
//	Wind:       KT x 0.514444, KMH / 3.6, MPS as is
//	Visibility: metres, "9999" and CAVOK mean 10000 m; SM x 1609.344
//	Clouds:     base in hundreds of feet x 0.3048
//	Pressure:   Qnnnn hPa, Annnn hundredths of inHg, bare values over 2500
//	            read as inHg
//
// # Mission weather
//
// [WeatherState] is the validated view over the weather stored in a mission.
// Each setter checks the range of its field and returns a [ValidationError]
// rather than clamping:
//
//	wind direction      0..359    (the direction the wind blows to)
//	wind speed          0..50     m/s at ground, 2000 m and 8000 m
//	turbulence          0..60
//	qnh                 720..790  mmHg
//	visibility          0..800000 m
//	fog visibility      0..6000   m
//	fog thickness       0..1000   m
//	cloud density       0..10
//	cloud base          300..5000 m
//	cloud thickness     200..2000 m
//
// Precipitation also checks the stored temperature and cloud density: snow
// kinds need 0 °C or below, rain and snow need density 5, heavy kinds need 9.
//
// # Derivation
//
// [DeriveWeather] turns an [Observation] into [Weather]; [EmitReport] goes the
// other way and is intentionally lossy. Directions are reversed between the
// two (reports give "from", missions store "to"). Every random draw goes
// through a [RandomSource] so a fixed seed gives a fixed result.
package domain
