package match

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	reNonAlnum   = regexp.MustCompile(`[^a-z0-9\s]+`)
	reMultiSpace = regexp.MustCompile(`\s+`)
	reBracketed  = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	// Trailing dash clauses like "- 2009 Remaster" or "- Live at Wembley"
	// describe an edition, not a different song.
	reEditionSuffix = regexp.MustCompile(`\s+-\s+[^-]*\b(remaster(ed)?|live|mono|stereo|version|edit|mix|demo|deluxe|single|acoustic|radio)\b[^-]*$`)
	reFeatClause    = regexp.MustCompile(`\b(feat|ft|featuring)\b\.?\s+.*$`)
)

// stripDiacritics removes combining marks after NFD decomposition.
func stripDiacritics(s string) string {
	decomp := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomp))
	for _, r := range decomp {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Normalize reduces a title or artist name to a comparable form: Unicode
// compatibility folding, diacritic stripping, lowercasing, removal of
// edition/guest noise, punctuation to spaces, collapsed whitespace.
//
// Catalogs disagree wildly on decoration ("Yesterday - Remastered 2009",
// "Yesterday (Remastered)"), so similarity is always computed on this form.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	// Fold width/compatibility forms (full-width characters, ligatures)
	s = norm.NFKC.String(s)

	// é -> e, ñ -> n, ō -> o
	s = stripDiacritics(s)

	s = strings.ToLower(s)

	s = reBracketed.ReplaceAllString(s, " ")
	s = reEditionSuffix.ReplaceAllString(s, " ")
	s = reFeatClause.ReplaceAllString(s, " ")

	// Remove all non-alphanumeric (keep spaces)
	s = reNonAlnum.ReplaceAllString(s, " ")

	s = reMultiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
