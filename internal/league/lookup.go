package league

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinSimilarity is the Jaro-Winkler score a fuzzy name match must reach.
const MinSimilarity = 0.85

// Lookup finds a team by abbreviation (case-insensitive) or, failing that,
// by the closest name. Names are compared lower-cased with accents folded,
// so "Atletico" finds "Atlético". It reports ok=false when nothing scores
// at least MinSimilarity.
func Lookup(teams []Team, query string) (Team, bool) {
	q := strings.TrimSpace(query)
	if q == "" {
		return Team{}, false
	}
	for _, t := range teams {
		if strings.EqualFold(t.Abbreviation, q) {
			return t, true
		}
	}

	folded := foldName(q)
	best, bestScore := -1, 0.0
	for i, t := range teams {
		if t.Name == "" {
			continue
		}
		name := foldName(t.Name)
		if name == folded {
			return t, true
		}
		if score := matchr.JaroWinkler(folded, name, false); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore < MinSimilarity {
		return Team{}, false
	}
	return teams[best], true
}

func foldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.Join(strings.Fields(out), " "))
}
