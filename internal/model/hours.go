package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Hours is a normalized operating window: canonical day names and
// 24-hour clock times. StartTime <= EndTime always holds; overnight
// windows are not modeled.
type Hours struct {
	WorkDayStart string
	WorkDayEnd   string
	StartTime    string
	EndTime      string
}

var titleCaser = cases.Title(language.English)

// canonicalDays maps lowercased day tokens (full names and common
// abbreviations) to their canonical capitalized form.
var canonicalDays = map[string]string{
	"mon": "Monday", "monday": "Monday",
	"tue": "Tuesday", "tues": "Tuesday", "tuesday": "Tuesday",
	"wed": "Wednesday", "wednesday": "Wednesday",
	"thu": "Thursday", "thur": "Thursday", "thurs": "Thursday", "thursday": "Thursday",
	"fri": "Friday", "friday": "Friday",
	"sat": "Saturday", "saturday": "Saturday",
	"sun": "Sunday", "sunday": "Sunday",
}

// ParseHours normalizes a raw operating-hours string as scraped from a
// listing page, e.g. "Monday - Sunday, 8:00 AM - 10:00 PM" or
// "Mon - Fri, 9:00AM - 6:00PM". It returns an error for input it cannot
// fully normalize; partial records are never produced.
func ParseHours(raw string) (*Hours, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, eris.New("hours: empty input")
	}

	dayPart, timePart, ok := strings.Cut(raw, ",")
	if !ok {
		return nil, eris.Errorf("hours: missing day/time separator in %q", raw)
	}

	dayStart, dayEnd, err := parseDayRange(dayPart)
	if err != nil {
		return nil, err
	}

	startTime, endTime, err := parseTimeRange(timePart)
	if err != nil {
		return nil, err
	}

	if startTime > endTime {
		return nil, eris.Errorf("hours: start %s after end %s in %q", startTime, endTime, raw)
	}

	return &Hours{
		WorkDayStart: dayStart,
		WorkDayEnd:   dayEnd,
		StartTime:    startTime,
		EndTime:      endTime,
	}, nil
}

// CanonicalDay normalizes a single day token to its capitalized full name.
func CanonicalDay(tok string) (string, error) {
	key := strings.ToLower(strings.TrimRight(strings.TrimSpace(tok), "."))
	if day, ok := canonicalDays[key]; ok {
		return day, nil
	}
	return "", eris.Errorf("hours: unknown day %q", titleCaser.String(tok))
}

func parseDayRange(part string) (string, string, error) {
	part = strings.TrimSpace(part)

	first, second, ranged := strings.Cut(part, "-")
	if !ranged {
		// Single-day window, e.g. "Sunday, ...".
		day, err := CanonicalDay(part)
		if err != nil {
			return "", "", err
		}
		return day, day, nil
	}

	start, err := CanonicalDay(first)
	if err != nil {
		return "", "", err
	}
	end, err := CanonicalDay(second)
	if err != nil {
		return "", "", err
	}
	return start, end, nil
}

func parseTimeRange(part string) (string, string, error) {
	part = strings.TrimSpace(part)

	first, second, ok := strings.Cut(part, "-")
	if !ok {
		return "", "", eris.Errorf("hours: missing time range in %q", part)
	}

	start, err := to24Hour(first)
	if err != nil {
		return "", "", err
	}
	end, err := to24Hour(second)
	if err != nil {
		return "", "", err
	}
	return start, end, nil
}

// to24Hour converts a clock token like "8:00 AM", "10:00PM", or "22:00"
// to zero-padded 24-hour "HH:MM".
func to24Hour(tok string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(tok))

	meridiem := ""
	for _, suffix := range []string{"AM", "PM", "A.M.", "P.M."} {
		if strings.HasSuffix(s, suffix) {
			meridiem = string(suffix[0])
			s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
			break
		}
	}

	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		hh, mm = s, "00"
	}

	hour, err := strconv.Atoi(strings.TrimSpace(hh))
	if err != nil {
		return "", eris.Errorf("hours: bad hour in %q", tok)
	}
	minute, err := strconv.Atoi(strings.TrimSpace(mm))
	if err != nil {
		return "", eris.Errorf("hours: bad minute in %q", tok)
	}
	if minute < 0 || minute > 59 {
		return "", eris.Errorf("hours: minute out of range in %q", tok)
	}

	switch meridiem {
	case "A":
		if hour < 1 || hour > 12 {
			return "", eris.Errorf("hours: hour out of range in %q", tok)
		}
		if hour == 12 {
			hour = 0
		}
	case "P":
		if hour < 1 || hour > 12 {
			return "", eris.Errorf("hours: hour out of range in %q", tok)
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour < 0 || hour > 23 {
			return "", eris.Errorf("hours: hour out of range in %q", tok)
		}
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}
