package match

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"field-mapper/internal/common"
)

// Composite score weights.
const (
	editWeight   = 0.4
	prefixWeight = 0.4
	tokenWeight  = 0.2

	// prefixScale is the Winkler bonus per common leading rune.
	prefixScale = 0.1
	// maxPrefix caps the number of leading runes rewarded.
	maxPrefix = 4
)

// Score computes the similarity of two identifiers in [0, 1].
// Both inputs are normalized first. The score is
// 0.4*EditSimilarity + 0.4*PrefixSimilarity + 0.2*TokenSimilarity.
func Score(a, b string) float64 {
	return scoreNormalized(Normalize(a), Normalize(b))
}

// scoreNormalized scores two already normalized names.
func scoreNormalized(a, b string) float64 {
	if a == b {
		return 1.0
	}

	if a == "" || b == "" {
		return 0.0
	}

	score := editWeight*EditSimilarity(a, b) +
		prefixWeight*PrefixSimilarity(a, b) +
		tokenWeight*TokenSimilarity(a, b)

	return common.Clamp01(score)
}

// EditSimilarity is 1 - levenshtein(a, b) / max(len(a), len(b)), counted in runes.
func EditSimilarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la == 0 && lb == 0 {
		return 1.0
	}

	distance := levenshtein.ComputeDistance(a, b)

	return 1.0 - float64(distance)/float64(max(la, lb))
}

// PrefixSimilarity is the Jaro similarity plus a bonus of
// 0.1 * min(common leading runes, 4) * (1 - jaro).
//
// The pair is ordered before scoring so the result does not depend on
// argument order.
func PrefixSimilarity(a, b string) float64 {
	if a > b {
		a, b = b, a
	}

	s1, s2 := []rune(a), []rune(b)

	j := jaro(s1, s2)
	if j == 0 {
		return 0
	}

	prefix := 0
	for prefix < min(len(s1), len(s2), maxPrefix) && s1[prefix] == s2[prefix] {
		prefix++
	}

	return common.Clamp01(j + prefixScale*float64(prefix)*(1-j))
}

// jaro computes the Jaro similarity of two rune slices.
func jaro(s1, s2 []rune) float64 {
	l1, l2 := len(s1), len(s2)
	if l1 == 0 && l2 == 0 {
		return 1.0
	}

	if l1 == 0 || l2 == 0 {
		return 0.0
	}

	window := max(l1, l2)/2 - 1
	if window < 0 {
		window = 0
	}

	matched1 := make([]bool, l1)
	matched2 := make([]bool, l2)
	matches := 0

	for i := range s1 {
		lo := max(0, i-window)
		hi := min(l2-1, i+window)

		for k := lo; k <= hi; k++ {
			if matched2[k] || s1[i] != s2[k] {
				continue
			}

			matched1[i] = true
			matched2[k] = true
			matches++

			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	// Count matched runes that appear in a different order.
	outOfOrder := 0
	k := 0

	for i := range s1 {
		if !matched1[i] {
			continue
		}

		for !matched2[k] {
			k++
		}

		if s1[i] != s2[k] {
			outOfOrder++
		}

		k++
	}

	m := float64(matches)
	transpositions := float64(outOfOrder) / 2

	return (m/float64(l1) + m/float64(l2) + (m-transpositions)/m) / 3
}

// TokenSimilarity is the Jaccard index of the "_"-separated token sets.
func TokenSimilarity(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 && len(tb) == 0 {
		return 1.0
	}

	intersection := 0

	for tok := range ta {
		if _, ok := tb[tok]; ok {
			intersection++
		}
	}

	union := len(ta) + len(tb) - intersection

	return float64(intersection) / float64(union)
}
