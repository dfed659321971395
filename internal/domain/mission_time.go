package domain

import (
	"regexp"
	"time"
)

var missionTimeRe = regexp.MustCompile(`^\d{14}$`)

const missionTimeLayout = "20060102150405"

// MissionTime is a mission start date and the start time in seconds after
// midnight of that date.
type MissionTime struct {
	Year    int
	Month   int
	Day     int
	Seconds int
}

// TimeStore is the persisted backing of a mission's start date and time.
type TimeStore interface {
	SetStartDate(year, month, day int) error
	SetStartTime(seconds int) error
}

// ParseMissionTime reads a YYYYMMDDHHMMSS string.
func ParseMissionTime(s string) (MissionTime, error) {
	if !missionTimeRe.MatchString(s) {
		return MissionTime{}, &TimeFormatError{Input: s}
	}
	t, err := time.Parse(missionTimeLayout, s)
	if err != nil {
		return MissionTime{}, &TimeFormatError{Input: s}
	}
	return MissionTimeFrom(t), nil
}

// MissionTimeFrom takes the wall-clock date and time of t.
func MissionTimeFrom(t time.Time) MissionTime {
	return MissionTime{
		Year:    t.Year(),
		Month:   int(t.Month()),
		Day:     t.Day(),
		Seconds: t.Hour()*3600 + t.Minute()*60 + t.Second(),
	}
}

// MissionTimeNow returns the current local time from the package clock.
func MissionTimeNow() MissionTime {
	return MissionTimeFrom(clock.Now())
}

// ApplyTo writes the date and start time.
func (m MissionTime) ApplyTo(s TimeStore) error {
	if err := s.SetStartDate(m.Year, m.Month, m.Day); err != nil {
		return err
	}
	return s.SetStartTime(m.Seconds)
}

// String formats the time back to YYYYMMDDHHMMSS.
func (m MissionTime) String() string {
	t := time.Date(m.Year, time.Month(m.Month), m.Day, 0, 0, m.Seconds, 0, time.UTC)
	return t.Format(missionTimeLayout)
}
