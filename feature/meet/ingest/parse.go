package ingest

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"meet-importer/core/phase"
)

const dateFormat = "2006-01-02"

// Parse normalizes a source document into the canonical tree. The document
// self-declares its layout via the explicit "layout" discriminant field;
// structural sniffing was tried once and misclassified real documents, so an
// unknown discriminant is a hard error.
func Parse(data []byte, cfg Config) (*Document, error) {
	var probe struct {
		Layout int `json:"layout"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, &phase.MalformedSourceError{Reason: fmt.Sprintf("not a JSON document: %v", err)}
	}

	switch probe.Layout {
	case 1:
		return parseLayout1(data, cfg)
	case 2:
		return parseLayout2(data, cfg)
	default:
		return nil, &phase.MalformedSourceError{
			Reason: fmt.Sprintf("missing or unknown layout discriminant %d", probe.Layout),
		}
	}
}

// parseDates parses a list of ISO dates, deduplicates and sorts them.
func parseDates(raw []string) ([]time.Time, error) {
	seen := make(map[string]struct{}, len(raw))
	var out []time.Time
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		d, err := time.Parse(dateFormat, s)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", s, err)
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// sortStrings orders a name list so that artifacts built from map-shaped
// source structures stay deterministic across runs.
func sortStrings(s []string) {
	sort.Strings(s)
}

func sortSwimmerSpecs(specs []SwimmerSpec) {
	sort.Slice(specs, func(i, j int) bool { return specs[i].Key < specs[j].Key })
}

// slugCode derives a meeting code from the header when the source declares
// none: two-digit year plus the first ten alphanumerics of the name.
func slugCode(name string, firstDate time.Time) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() >= 10 {
				break
			}
		}
	}
	year := 0
	if !firstDate.IsZero() {
		year = firstDate.Year() % 100
	}
	return fmt.Sprintf("%02d%s", year, b.String())
}
