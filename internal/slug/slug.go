// Package slug maps display text to URL- and path-safe identifiers.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// space matches every Unicode whitespace rune, not only ASCII \s.
const space = `\s\v\x{1c}-\x{1f}\x{85}\p{Z}`

var (
	invalidRe   = regexp.MustCompile(`[^\p{L}\p{N}_` + space + `-]`)
	separatorRe = regexp.MustCompile(`[-` + space + `]+`)
)

var nonASCII = runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII })

// asciiFold decomposes text and drops everything outside ASCII, which
// removes combining accents along with any other non-ASCII rune. Chained
// transformers keep state, so each call gets a fresh one.
func asciiFold() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(nonASCII))
}

// Normalize returns the slug for text. Unless preserveUnicode is set, accents
// and other non-ASCII characters are stripped. The result may be empty.
func Normalize(text string, preserveUnicode bool) string {
	if preserveUnicode {
		text = norm.NFKC.String(text)
	} else {
		folded, _, err := transform.String(asciiFold(), text)
		if err != nil {
			folded = ""
		}
		text = folded
	}
	text = invalidRe.ReplaceAllString(strings.ToLower(text), "")
	text = separatorRe.ReplaceAllString(text, "-")
	return strings.Trim(text, "-_")
}
