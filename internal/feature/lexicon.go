package feature

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/edulab-ai/progresscluster/internal/domain"
)

// DefaultLexicon returns the refined cue patterns. Generic words like
// "error" or "problem" are deliberately excluded from the stuck list;
// they fire on ordinary debugging talk.
func DefaultLexicon() domain.Lexicon {
	return domain.Lexicon{
		Done: []string{
			`it\s+works`, `works\s+now`, `\bfixed\b`, `pass(?:ed|es)?`,
			`\bsuccess(?:ful(?:ly)?)?\b`, `\bsolved\b`, `resolve(?:d)?`,
			`running`, `ran\s+successfully`, `tests?\s+pass(?:ed)?`,
			`\bvalidated\b`, `\bverification\s+passed\b`,
			`通过了`, `成功了`, `现在可以了`,
		},
		Stuck: []string{
			`still\s+(not\s+working|doesn['’]?t\s+work|fail(?:s|ing)?)`,
			`same\s+(issue|error|result)\s+(again|still)?`,
			`didn['’]?t\s+work`, `doesn['’]?t\s+solve`,
			`\bno\s+effect\b`, `\bunchanged\b`, `\bnot\s+fixed\b`,
			`keeps?\s+fail(?:ing)?`, `\bno\s+improvement\b`,
			`\bno\s+progress\b`, `\bresult\s+did\s+not\s+change\b`,
			`还是不行`, `没有效果`, `结果没有变化`, `不工作`, `失败了`,
		},
		AIWrong: []string{
			`(your|this)\s+(answer|code|solution)\s+is\s+(wrong|incorrect)`,
			`(your|this)\s+(answer|code|solution)\s+(doesn['’]?t|didn['’]?t)\s+work`,
			`(that|this)\s+is\s+not\s+(helpful|useful|relevant)`,
			`(doesn['’]?t|didn['’]?t)\s+help`,
			`\birrelevant\b|\bnot\s+relevant\b`,
			`\byou\s+are\s+wrong\b`,
			`你给的(答案|代码)不对`, `不(相关|适用)`,
		},
	}
}

// Matchers holds the compiled per-family pattern unions.
type Matchers struct {
	Done    *regexp.Regexp
	Stuck   *regexp.Regexp
	AIWrong *regexp.Regexp
}

// CompileLexicon builds case-insensitive union matchers for each cue
// family. An empty pattern list compiles to a never-matching regex.
func CompileLexicon(lex domain.Lexicon) (*Matchers, error) {
	m := &Matchers{}
	var err error
	if m.Done, err = compileUnion(lex.Done); err != nil {
		return nil, fmt.Errorf("compile done lexicon: %w", err)
	}
	if m.Stuck, err = compileUnion(lex.Stuck); err != nil {
		return nil, fmt.Errorf("compile stuck lexicon: %w", err)
	}
	if m.AIWrong, err = compileUnion(lex.AIWrong); err != nil {
		return nil, fmt.Errorf("compile ai_wrong lexicon: %w", err)
	}
	return m, nil
}

func compileUnion(patterns []string) (*regexp.Regexp, error) {
	if len(patterns) == 0 {
		// never matches
		return regexp.Compile(`\z.`)
	}
	grouped := make([]string, len(patterns))
	for i, p := range patterns {
		grouped[i] = "(?:" + p + ")"
	}
	return regexp.Compile("(?i)" + strings.Join(grouped, "|"))
}

func countHits(re *regexp.Regexp, s string) int {
	return len(re.FindAllStringIndex(s, -1))
}
