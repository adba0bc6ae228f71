package roster

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// Strategy picks zero or one filer out of `filers` for the given name.
// Implementations must not mutate `filers`, it is shared between goroutines.
type Strategy interface {
	Match(first, last string, filers []Filer) (Filer, bool)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func sameLastName(a, b string) bool {
	return normalize(a) == normalize(b)
}

// LenientStrategy matches on an exact (case-insensitive) last name and a first name
// where either side contains the other, this absorbs nicknames sharing a prefix and
// middle initials. More than one candidate is treated as no match.
type LenientStrategy struct{}

func (LenientStrategy) Match(first, last string, filers []Filer) (Filer, bool) {
	first = normalize(first)

	var found Filer
	count := 0
	for _, f := range filers {
		if !sameLastName(f.LastName, last) {
			continue
		}
		candidate := normalize(f.FirstName)
		if strings.Contains(candidate, first) || strings.Contains(first, candidate) {
			found = f
			count++
		}
	}
	if count != 1 {
		return Filer{}, false
	}
	return found, true
}

// JaroWinklerStrategy matches on an exact (case-insensitive) last name and the most similar
// first name by Jaro-Winkler distance, as long as it meets Threshold. Ties are treated
// as no match.
type JaroWinklerStrategy struct {
	Threshold float64
}

const DefaultJaroWinklerThreshold = 0.85

func (s JaroWinklerStrategy) Match(first, last string, filers []Filer) (Filer, bool) {
	threshold := s.Threshold
	if threshold <= 0 {
		threshold = DefaultJaroWinklerThreshold
	}
	first = normalize(first)

	var best Filer
	var bestScore float64
	tied := false
	for _, f := range filers {
		if !sameLastName(f.LastName, last) {
			continue
		}
		score := matchr.JaroWinkler(first, normalize(f.FirstName), false)
		if score < threshold {
			continue
		}
		switch {
		case score > bestScore:
			best = f
			bestScore = score
			tied = false
		case score == bestScore:
			tied = true
		}
	}
	if bestScore == 0 || tied {
		return Filer{}, false
	}
	return best, true
}

// StrategyFromName returns the strategy registered under `name`, falling back to
// LenientStrategy for an empty name.
func StrategyFromName(name string, threshold float64) (Strategy, bool) {
	switch name {
	case "", "lenient":
		return LenientStrategy{}, true
	case "jarowinkler":
		return JaroWinklerStrategy{Threshold: threshold}, true
	}
	return nil, false
}
