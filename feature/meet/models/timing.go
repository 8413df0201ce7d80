package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// timingPattern accepts the timing spellings seen across both source
// layouts: 2'05.45, 2:05.45, 25.45, 25"45.
var timingPattern = regexp.MustCompile(`^(?:(\d+)[':])?(\d{1,2})[."](\d{1,2})$`)

// ParseTiming converts a source timing string to hundredths of a second.
// A blank string parses to zero (no time recorded, e.g. a DSQ row).
func ParseTiming(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	m := timingPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("unrecognized timing format %q", s)
	}

	minutes := 0
	if m[1] != "" {
		minutes, _ = strconv.Atoi(m[1])
	}
	seconds, _ := strconv.Atoi(m[2])
	if seconds >= 60 {
		return 0, fmt.Errorf("invalid seconds in timing %q", s)
	}

	// A single hundredths digit means tenths: "25.4" is 25.40.
	hundredths, _ := strconv.Atoi(m[3])
	if len(m[3]) == 1 {
		hundredths *= 10
	}

	return minutes*6000 + seconds*100 + hundredths, nil
}

// FormatTiming renders hundredths of a second in the canonical M'SS.HH form,
// omitting the minutes part below one minute.
func FormatTiming(hundredths int) string {
	if hundredths <= 0 {
		return ""
	}
	minutes := hundredths / 6000
	seconds := (hundredths % 6000) / 100
	rest := hundredths % 100
	if minutes > 0 {
		return fmt.Sprintf("%d'%02d.%02d", minutes, seconds, rest)
	}
	return fmt.Sprintf("%d.%02d", seconds, rest)
}
