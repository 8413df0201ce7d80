package ingest

import (
	"regexp"
	"strconv"
	"strings"

	"meet-importer/core/matcher"
	"meet-importer/core/phase"
	"meet-importer/feature/meet/models"
)

// strokeKeywords maps normalized stroke words (Italian result lists, plus
// the bare domain codes) to stroke codes. Longer keywords are matched first
// so "STILE LIBERO" wins over any shorter accidental hit.
var strokeKeywords = []struct {
	word string
	code string
}{
	{"STILE LIBERO", models.StrokeFreestyle},
	{"FREESTYLE", models.StrokeFreestyle},
	{"STILE", models.StrokeFreestyle},
	{"DORSO", models.StrokeBackstroke},
	{"BACKSTROKE", models.StrokeBackstroke},
	{"RANA", models.StrokeBreaststroke},
	{"BREASTSTROKE", models.StrokeBreaststroke},
	{"FARFALLA", models.StrokeButterfly},
	{"DELFINO", models.StrokeButterfly},
	{"BUTTERFLY", models.StrokeButterfly},
	{"MISTI", models.StrokeMedley},
	{"MISTA", models.StrokeMedley},
	{"MEDLEY", models.StrokeMedley},
	{"SL", models.StrokeFreestyle},
	{"DO", models.StrokeBackstroke},
	{"RA", models.StrokeBreaststroke},
	{"FA", models.StrokeButterfly},
	{"MI", models.StrokeMedley},
}

var (
	// relayTitlePattern extracts "<legs> x <leg-distance> [m]" from a
	// natural-language relay section title like "4x50 m Misti - M80".
	relayTitlePattern = regexp.MustCompile(`(?i)(\d+)\s*x\s*(\d+)\s*(?:m\b)?`)
	// individualTitlePattern extracts "<distance> <stroke words>" from an
	// individual section title like "200 Stile Libero - M45".
	individualTitlePattern = regexp.MustCompile(`^(\d+)\s+(.+)$`)
)

// EventTitle is the parsed form of a section title.
type EventTitle struct {
	Code        string
	Distance    int
	Stroke      string
	Relay       bool
	Mixed       bool
	LegCount    int
	LegDistance int
	Category    string
}

// classifyStroke finds the stroke code named by the words, scanning the
// keyword table on the normalized text.
func classifyStroke(words string) (string, error) {
	normalized := matcher.Normalize(words)
	for _, kw := range strokeKeywords {
		if containsWord(normalized, kw.word) {
			return kw.code, nil
		}
	}
	return "", &phase.AmbiguousParseError{
		Input:  words,
		Reason: "no recognizable stroke keyword",
	}
}

// containsWord reports whether phrase contains w as a whole word sequence.
func containsWord(phrase, w string) bool {
	idx := strings.Index(phrase, w)
	for idx >= 0 {
		beforeOK := idx == 0 || phrase[idx-1] == ' '
		after := idx + len(w)
		afterOK := after == len(phrase) || phrase[after] == ' '
		if beforeOK && afterOK {
			return true
		}
		next := strings.Index(phrase[idx+1:], w)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

// ParseEventTitle parses a section title into an event definition. gender is
// the section gender code; "X" marks a mixed-gender relay and selects the
// mixed code prefix. fallback is the configured stroke fallback policy.
//
// Relay example: "4x50 m Misti - M80" with gender "F" yields distance 200,
// stroke MI and code S4X50MI; the same title with gender "X" yields M4X50MI.
func ParseEventTitle(title, gender, fallback string) (*EventTitle, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, &phase.AmbiguousParseError{Input: title, Reason: "empty section title"}
	}

	// The category tail ("... - M45") is optional.
	category := ""
	head := title
	if idx := strings.LastIndex(title, " - "); idx > 0 {
		head = strings.TrimSpace(title[:idx])
		category = strings.TrimSpace(title[idx+3:])
	}

	if m := relayTitlePattern.FindStringSubmatch(head); m != nil {
		legs, _ := strconv.Atoi(m[1])
		legDistance, _ := strconv.Atoi(m[2])
		rest := strings.TrimSpace(strings.Replace(head, m[0], "", 1))

		stroke, err := classifyStroke(rest)
		if err != nil {
			if fallback != FallbackFreestyle {
				return nil, err
			}
			stroke = models.StrokeFreestyle
		}

		// The section gender field is the primary mixed marker; result lists
		// that omit it spell the marker out in the title instead.
		mixed := strings.EqualFold(gender, models.GenderMixed)
		if !mixed && gender == "" {
			normalized := matcher.Normalize(rest)
			mixed = containsWord(normalized, "MISTA") || containsWord(normalized, "MIXED")
		}
		return &EventTitle{
			Code:        models.RelayEventCode(mixed, legs, legDistance, stroke),
			Distance:    legs * legDistance,
			Stroke:      stroke,
			Relay:       true,
			Mixed:       mixed,
			LegCount:    legs,
			LegDistance: legDistance,
			Category:    category,
		}, nil
	}

	m := individualTitlePattern.FindStringSubmatch(head)
	if m == nil {
		return nil, &phase.AmbiguousParseError{Input: title, Reason: "no distance found in section title"}
	}
	distance, _ := strconv.Atoi(m[1])
	stroke, err := classifyStroke(m[2])
	if err != nil {
		return nil, err
	}

	return &EventTitle{
		Code:     models.IndividualEventCode(distance, stroke),
		Distance: distance,
		Stroke:   stroke,
		Category: category,
	}, nil
}
