package textnorm

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	nonIdent   = regexp.MustCompile(`[^A-Za-z0-9_]+`)
	identParts = regexp.MustCompile(`[A-Z][a-z]+|[a-z]+|[A-Z]+|\d+`)
	wsRun      = regexp.MustCompile(`\s+`)
)

// WordTokens lowercases, strips punctuation and backticks, and splits
// on whitespace, keeping tokens longer than one rune.
func WordTokens(s string) []string {
	s = strings.ToLower(strings.ReplaceAll(s, "`", " "))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	var out []string
	for _, t := range strings.Fields(b.String()) {
		if len([]rune(t)) > 1 {
			out = append(out, t)
		}
	}
	return out
}

// CodeishTokens splits identifiers on camelCase/snake_case boundaries
// and digits, lowercased, keeping parts longer than one rune.
func CodeishTokens(s string) []string {
	var out []string
	for _, tok := range nonIdent.Split(s, -1) {
		if tok == "" {
			continue
		}
		for _, p := range identParts.FindAllString(tok, -1) {
			if len(p) > 1 {
				out = append(out, strings.ToLower(p))
			}
		}
	}
	return out
}

// CharNGrams returns the character n-grams of the whitespace-collapsed
// lowercased string.
func CharNGrams(s string, n int) []string {
	s = wsRun.ReplaceAllString(strings.ToLower(s), " ")
	runes := []rune(s)
	if len(runes) < n {
		return nil
	}
	out := make([]string, 0, len(runes)-n+1)
	for i := 0; i+n <= len(runes); i++ {
		out = append(out, string(runes[i:i+n]))
	}
	return out
}
