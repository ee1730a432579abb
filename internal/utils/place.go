package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// placeAliases maps folded alternative spellings to the folded canonical name
var placeAliases = map[string]string{
	"geneva":            "geneve",
	"genf":              "geneve",
	"ginevra":           "geneve",
	"massy":             "massy palaiseau",
	"palaiseau":         "massy palaiseau",
	"noisy":             "noisy le grand",
	"ile de france":     "paris",
	"region parisienne": "paris",
}

// FoldPlace normalizes a place name for comparison: accents removed, lower case,
// hyphens/underscores/apostrophes turned into spaces, whitespace collapsed, known aliases resolved.
func FoldPlace(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	folded = strings.ToLower(folded)
	folded = strings.Map(func(r rune) rune {
		switch r {
		case '-', '_', '\'', '’':
			return ' '
		}
		return r
	}, folded)
	folded = strings.Join(strings.Fields(folded), " ")

	if alias, ok := placeAliases[folded]; ok {
		return alias
	}
	return folded
}

// SamePlace reports whether two place names designate the same place
func SamePlace(a, b string) bool {
	fa := FoldPlace(a)
	return fa != "" && fa == FoldPlace(b)
}

// QuickReplyID builds the quick-reply identifier of a city: lower case, hyphens replaced by underscores
func QuickReplyID(city string) string {
	return strings.ReplaceAll(strings.ToLower(city), "-", "_")
}
