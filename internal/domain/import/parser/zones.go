package parser

import "strings"

// zoneRule maps a raw zone prefix (as produced by the PDF's fixed column
// width, often truncated) to its canonical locality name. Rules are ordered;
// the first matching prefix wins.
type zoneRule struct {
	prefix    string
	canonical string
}

var zoneRules = []zoneRule{
	{"PASO AGUE", "PASO AGUERRE"},
	{"S. P. C", "S. P. CHANAR"},
	{"S. P", "S. P. CHANAR"},
	{"C.A.B.A", "C.A.B.A."},
	{"CEN", "CENTENARIO"},
	{"NEUQUE", "NEUQUEN CAPITAL"},
	{"PLOTTIE", "PLOTTIER"},
}

// NormalizeZone resolves a raw zone string against the rule table,
// case-insensitively. Unmatched values pass through unchanged so that new or
// misspelled localities stay visible to the importing operator.
func NormalizeZone(raw string) string {
	if raw == "" {
		return ""
	}
	upper := strings.ToUpper(raw)
	for _, rule := range zoneRules {
		if strings.HasPrefix(upper, rule.prefix) {
			return rule.canonical
		}
	}
	return raw
}

// CanonicalZones lists every canonical zone name the normalization table can
// produce, in table order without duplicates.
func CanonicalZones() []string {
	seen := make(map[string]struct{}, len(zoneRules))
	out := make([]string, 0, len(zoneRules))
	for _, rule := range zoneRules {
		if _, ok := seen[rule.canonical]; ok {
			continue
		}
		seen[rule.canonical] = struct{}{}
		out = append(out, rule.canonical)
	}
	return out
}
