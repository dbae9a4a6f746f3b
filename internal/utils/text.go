package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Буквы, которые не раскладываются через NFD.
var foldReplacer = strings.NewReplacer(
	"ı", "i", "İ", "i", "ß", "ss", "ø", "o", "Ø", "o", "æ", "ae", "Æ", "ae",
)

// FoldDiacritics убирает диакритику и приводит к нижнему регистру:
// "Şükrü Öztürk" -> "sukru ozturk", "Müller" -> "muller".
func FoldDiacritics(s string) string {
	s = foldReplacer.Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// Немецкая транслитерация умлаутов.
var germanExpand = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss")

// NameVariants - варианты имени для поиска без учета диакритики:
// исходное (в нижнем регистре), свернутое и с немецкой транслитерацией.
func NameVariants(name string) []string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	add(lower)
	add(FoldDiacritics(lower))
	add(germanExpand.Replace(lower))
	return out
}

// ContainsFolded - вхождение needle в haystack без учета регистра и диакритики.
func ContainsFolded(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	h := FoldDiacritics(haystack)
	for _, variant := range NameVariants(needle) {
		if strings.Contains(h, FoldDiacritics(variant)) || strings.Contains(germanExpand.Replace(strings.ToLower(haystack)), variant) {
			return true
		}
	}
	return false
}
