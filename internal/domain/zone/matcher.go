package zone

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// maxTypoDistance is the Levenshtein distance tolerated by the fuzzy
// fallback. Schedule addresses come out of PDF text extraction, so a
// character or two of damage per locality name is common.
const maxTypoDistance = 2

// Matcher resolves a free-text address to a zone name. Exact locality
// substrings are found with Aho-Corasick in one pass; when nothing matches,
// a fuzzy pass catches extraction typos. A Matcher is immutable after
// construction and safe for concurrent use.
type Matcher struct {
	ac    *ahocorasick.Matcher
	terms []string
	zones []string // zones[i] is the zone for terms[i]
}

// NewMatcher builds a matcher from the zone registry. Each zone matches on
// its own name plus every registered locality.
func NewMatcher(zones []*Zone) *Matcher {
	var terms, owners []string
	seen := make(map[string]struct{})

	add := func(term, owner string) {
		term = strings.ToUpper(strings.TrimSpace(term))
		if len(term) < 3 {
			return
		}
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
		owners = append(owners, owner)
	}

	for _, z := range zones {
		add(z.Name, z.Name)
		for _, loc := range z.Localities {
			add(loc, z.Name)
		}
	}

	return &Matcher{
		ac:    ahocorasick.NewStringMatcher(terms),
		terms: terms,
		zones: owners,
	}
}

// Resolve returns the zone for an address, or "" when nothing matches.
// Longer matched terms win so that "PASO AGUERRE" beats a zone named "PASO".
func (m *Matcher) Resolve(address string) string {
	if len(m.terms) == 0 || strings.TrimSpace(address) == "" {
		return ""
	}
	upper := strings.ToUpper(address)

	best := -1
	for _, hit := range m.ac.MatchThreadSafe([]byte(upper)) {
		if best == -1 || len(m.terms[hit]) > len(m.terms[best]) {
			best = hit
		}
	}
	if best >= 0 {
		return m.zones[best]
	}

	return m.resolveFuzzy(upper)
}

// resolveFuzzy compares address word windows against every term and accepts
// the closest one within the typo tolerance.
func (m *Matcher) resolveFuzzy(upper string) string {
	words := strings.FieldsFunc(upper, func(r rune) bool {
		return r == ' ' || r == ',' || r == '-' || r == '(' || r == ')'
	})

	bestDist := maxTypoDistance + 1
	bestZone := ""
	for i, term := range m.terms {
		termWords := len(strings.Fields(term))
		for _, window := range windows(words, termWords) {
			if abs(len(window)-len(term)) > maxTypoDistance {
				continue
			}
			if d := fuzzy.LevenshteinDistance(window, term); d < bestDist {
				bestDist = d
				bestZone = m.zones[i]
			}
		}
	}
	return bestZone
}

// windows joins every run of n consecutive words with single spaces.
func windows(words []string, n int) []string {
	if n <= 0 || len(words) < n {
		return nil
	}
	out := make([]string, 0, len(words)-n+1)
	for i := 0; i+n <= len(words); i++ {
		out = append(out, strings.Join(words[i:i+n], " "))
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
