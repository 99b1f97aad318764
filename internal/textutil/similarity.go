package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// punctuationPattern matches characters dropped before splitting titles into words.
var punctuationPattern = regexp.MustCompile(`[^a-z0-9\s]+`)

// TitleWords returns the set of significant words in a title. Punctuation is
// removed inside words ("Schindler's" becomes "schindlers") and words shorter
// than three characters are dropped.
func TitleWords(title string) map[string]struct{} {
	cleaned := punctuationPattern.ReplaceAllString(strings.ToLower(title), "")
	words := make(map[string]struct{})
	for _, word := range strings.Fields(cleaned) {
		if len(word) < 3 {
			continue
		}
		words[word] = struct{}{}
	}
	return words
}

// Jaccard returns |A∩B| / |A∪B| over the significant words of two titles.
// ok is false when either side has no significant words.
func Jaccard(a, b string) (score float64, ok bool) {
	wa := TitleWords(a)
	wb := TitleWords(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0, false
	}
	intersection := 0
	for word := range wa {
		if _, found := wb[word]; found {
			intersection++
		}
	}
	union := len(wa) + len(wb) - intersection
	return float64(intersection) / float64(union), true
}

// TitlesAgree reports whether two titles plausibly name the same work. Titles
// without significant words cannot be judged and are accepted.
func TitlesAgree(a, b string, threshold float64) bool {
	score, ok := Jaccard(a, b)
	if !ok {
		return true
	}
	return score >= threshold
}

// NormalizeTitle lowercases a title and strips everything but letters and digits,
// so "Spider-Man: No Way Home" and "spiderman no way home" compare equal.
func NormalizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DisplayTitle title-cases text that arrives entirely in one case, as curated
// spreadsheets often do. Mixed-case titles are returned trimmed but unchanged.
func DisplayTitle(title string) string {
	trimmed := strings.Join(strings.Fields(title), " ")
	hasUpper, hasLower := false, false
	for _, r := range trimmed {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		}
	}
	if hasUpper && hasLower {
		return trimmed
	}
	return cases.Title(language.English).String(strings.ToLower(trimmed))
}
