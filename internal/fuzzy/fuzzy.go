// Package fuzzy compares OCR readings against expected labels.
package fuzzy

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

const (
	// DefaultMatchThreshold is the minimum score Match accepts.
	DefaultMatchThreshold = 0.7
	// DefaultContainsThreshold is the whole-string similarity Contains accepts.
	DefaultContainsThreshold = 0.75
	// DefaultTitleThreshold is the word share WordOverlap accepts.
	DefaultTitleThreshold = 0.6

	wordThreshold     = 0.8
	wordShareRequired = 0.7
	// fragmentCoverage is how much of the target a truncated reading must
	// cover before it counts as the target.
	fragmentCoverage = 0.9
)

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// SimilarityRatio returns a case-insensitive edit-distance ratio in [0,1].
// The ratio is 0 when either string is empty.
func SimilarityRatio(a, b string) float64 {
	a, b = normalize(a), normalize(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

// Score rates candidate against target: 1 for an exact match, the length
// ratio when one contains the other, and SimilarityRatio otherwise.
func Score(target, candidate string) float64 {
	t, c := normalize(target), normalize(candidate)
	if t == "" || c == "" {
		return 0
	}
	if t == c {
		return 1
	}
	if strings.Contains(c, t) || strings.Contains(t, c) {
		return lengthRatio(t, c)
	}
	return SimilarityRatio(t, c)
}

// Match returns the best-scoring candidate when its score reaches threshold.
// Ties keep the earliest candidate.
func Match(target string, candidates []string, threshold float64) (string, float64, bool) {
	best, bestScore := "", -1.0
	for _, c := range candidates {
		s := Score(target, c)
		if s == 1 {
			return c, 1, true
		}
		if s > bestScore {
			best, bestScore = c, s
		}
	}
	if bestScore < threshold || bestScore <= 0 {
		return "", 0, false
	}
	return best, bestScore, true
}

// Contains reports whether text carries target. A reading that is only a
// fragment of the target (text inside target) counts only when it covers
// nearly all of it, so "Code" never stands in for "Codex".
func Contains(target, text string, threshold float64) bool {
	t, x := normalize(target), normalize(text)
	if t == "" || x == "" {
		return false
	}
	if strings.Contains(x, t) {
		return true
	}
	if strings.Contains(t, x) {
		return lengthRatio(t, x) >= fragmentCoverage
	}
	if SimilarityRatio(t, x) >= threshold {
		return true
	}
	return wordShare(t, x, wordThreshold) >= wordShareRequired
}

// WordOverlap reports whether enough of target's words appear in text, or
// target appears verbatim.
func WordOverlap(target, text string, threshold float64) bool {
	t, x := normalize(target), normalize(text)
	if t == "" || x == "" {
		return false
	}
	if strings.Contains(x, t) {
		return true
	}
	return wordShare(t, x, 1) >= threshold
}

// wordShare is the fraction of target words that match some word of text
// with at least minRatio similarity.
func wordShare(target, text string, minRatio float64) float64 {
	tw := strings.Fields(target)
	xw := strings.Fields(text)
	if len(tw) == 0 {
		return 0
	}
	matched := 0
	for _, w := range tw {
		for _, o := range xw {
			if w == o || (minRatio < 1 && SimilarityRatio(w, o) >= minRatio) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(tw))
}

func lengthRatio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la > lb {
		la, lb = lb, la
	}
	if lb == 0 {
		return 0
	}
	return float64(la) / float64(lb)
}
