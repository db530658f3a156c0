// Package textnorm separates code from prose inside chat messages and
// produces stable content hashes for code blocks.
package textnorm

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	fencedBlock = regexp.MustCompile("(?s)```(?:[a-zA-Z0-9_-]+)?\n(.*?)```")
	codeKeyword = regexp.MustCompile(`(?i)\b(def|class|import|from|function|const|let|var|public|private|static|return|if|for|while|try|catch)\b`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineComment  = regexp.MustCompile(`^\s*(//|#|--).*$`)
	multiSpace   = regexp.MustCompile(`\s+`)
	fenceMarker  = regexp.MustCompile("```")
)

// codeLineSuffixes mark lines that read as code even without keywords.
var codeLineSuffixes = []string{"{", ";", "}", "</", "/>", ")"}

// maxHeuristicLines bounds the fallback line scan on pathological input.
const maxHeuristicLines = 2000

// IsCodeLine reports whether a single line looks like code.
func IsCodeLine(line string) bool {
	if codeKeyword.MatchString(line) {
		return true
	}
	trimmed := strings.TrimSpace(line)
	for _, suf := range codeLineSuffixes {
		if strings.HasSuffix(trimmed, suf) {
			return true
		}
	}
	return false
}

// ExtractCode returns the code content of text. Fenced blocks win; if
// none exist, code-looking lines are selected heuristically. Empty
// input yields an empty string.
func ExtractCode(text string) string {
	if text == "" {
		return ""
	}
	matches := fencedBlock.FindAllStringSubmatch(text, -1)
	if len(matches) > 0 {
		blocks := make([]string, 0, len(matches))
		for _, m := range matches {
			blocks = append(blocks, m[1])
		}
		return strings.Join(blocks, "\n")
	}
	var lines []string
	for _, ln := range strings.Split(text, "\n") {
		if IsCodeLine(ln) {
			lines = append(lines, ln)
			if len(lines) >= maxHeuristicLines {
				break
			}
		}
	}
	return strings.Join(lines, "\n")
}

// StripCode removes fenced blocks and code-looking lines, returning
// prose only. Used for the text-only repetition signal that gets
// compared against the all-content signal.
func StripCode(text string) string {
	if text == "" {
		return ""
	}
	text = fencedBlock.ReplaceAllString(text, " ")
	var kept []string
	for _, ln := range strings.Split(text, "\n") {
		if IsCodeLine(ln) {
			continue
		}
		kept = append(kept, ln)
	}
	return strings.Join(kept, "\n")
}

// NormalizeCode strips comments, collapses whitespace, and lowercases
// so that reformatted-but-identical snippets hash to the same value.
// Idempotent: NormalizeCode(NormalizeCode(x)) == NormalizeCode(x).
func NormalizeCode(code string) string {
	if code == "" {
		return ""
	}
	code = blockComment.ReplaceAllString(code, " ")
	var out []string
	for _, ln := range strings.Split(code, "\n") {
		ln = strings.TrimSpace(lineComment.ReplaceAllString(ln, " "))
		if ln == "" {
			continue
		}
		out = append(out, strings.ToLower(multiSpace.ReplaceAllString(ln, " ")))
	}
	return strings.Join(out, "\n")
}

// ContentHash returns a stable 128-bit hex digest of normalized code,
// used for code-reuse detection across messages and windows.
func ContentHash(normalized string) string {
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// CountFences returns the number of ``` markers in text.
func CountFences(text string) int {
	return len(fenceMarker.FindAllString(text, -1))
}
