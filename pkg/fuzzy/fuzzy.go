package fuzzy

import (
	"sort"
	"strings"
)

// LevenshteinDistance is the number of single-rune edits turning s1 into s2,
// compared case-insensitively with whitespace collapsed
func LevenshteinDistance(s1, s2 string) int {
	r1 := []rune(normalize(s1))
	r2 := []rune(normalize(s2))
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}

	prev := make([]int, len(r2)+1)
	curr := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(r1); i++ {
		curr[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(r2)]
}

// threshold grows with the query so longer queries tolerate more typos
func threshold(query string) int {
	n := len([]rune(query))
	switch {
	case n <= 3:
		return 1
	case n >= 8:
		return 3
	default:
		return 2
	}
}

// Score ranks how well query matches name. Zero means no match.
func Score(query, name string) float64 {
	q := normalize(query)
	n := normalize(name)
	if q == "" || n == "" {
		return 0
	}
	if q == n {
		return 200
	}
	if strings.Contains(n, q) {
		score := 100.0
		if containsWord(n, q) {
			score += 50
		}
		return score
	}

	best := 0.0
	limit := threshold(q)
	for _, word := range strings.Fields(n) {
		if strings.HasPrefix(word, q) {
			best = max(best, 80)
			continue
		}
		if d := LevenshteinDistance(q, word); d <= limit {
			best = max(best, 60-float64(d)*15)
		}
	}
	if best == 0 {
		// whole-name typo, e.g. "morningbrew" vs "morning brew"
		if d := LevenshteinDistance(q, n); d <= limit+len(q)/5 {
			best = 40 - float64(d)*5
		}
	}
	return max(best, 0)
}

// Match is the candidate list filtered to positive scores, best first
func Match(query string, candidates []string) []string {
	type scored struct {
		name  string
		score float64
	}
	var hits []scored
	for _, c := range candidates {
		if s := Score(query, c); s > 0 {
			hits = append(hits, scored{c, s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func containsWord(text, word string) bool {
	for _, w := range strings.Fields(text) {
		if w == word {
			return true
		}
	}
	return false
}
