// Package feature computes the structural feature vectors and fuses
// them with semantic embeddings into the clustering representation.
package feature

import (
	"math"
	"strings"

	"github.com/edulab-ai/progresscluster/internal/domain"
	"github.com/edulab-ai/progresscluster/internal/textnorm"
	"github.com/edulab-ai/progresscluster/internal/window"
)

// Extraction parameter defaults.
const (
	DefaultMaxLines        = 12
	DefaultDupLookback     = 3
	DefaultHighDupThresh   = 0.70
	DefaultHighDupWeight   = 0.80
	DefaultCodeRepeatAlpha = 1.0

	excerptCharLimit = 1200
	repetitionNGram  = 4
)

// DefaultParams returns the hand-tuned extraction parameters.
func DefaultParams() domain.ExtractionParams {
	return domain.ExtractionParams{
		DupLookback:     DefaultDupLookback,
		HighDupThresh:   DefaultHighDupThresh,
		HighDupWeight:   DefaultHighDupWeight,
		CodeRepeatAlpha: DefaultCodeRepeatAlpha,
	}
}

// DefaultScoreWeights returns the tuned progress score weights.
// Positive terms reward completion cues and code movement; everything
// repetition- or complaint-shaped subtracts.
func DefaultScoreWeights() domain.ScoreWeights {
	return domain.ScoreWeights{
		DoneHits:           0.38,
		CodeChange:         0.34,
		RepeatSim:          -0.22,
		RepeatEq:           -0.18,
		StuckHits:          -0.26,
		CWPersist:          -0.18,
		InRepLine:          -0.22,
		InRepNG4Text:       -0.15,
		CodeDupMsgInWin:    -0.28,
		CodeDupMsgLookback: -0.22,
		CodeRepeatPenalty:  -1.00,
		HighDupPenaltyW:    -1.00,
		AIWrongHits:        -0.32,
	}
}

// Extractor computes per-window structural features. It is built from
// one FeatureConfig, so the offline and online paths parameterize it
// from the same frozen block. It is stateless across calls;
// cross-window history lives on the stack of a single Extract
// invocation, so concurrent use is safe.
type Extractor struct {
	matchers *Matchers
	maxLines int
	params   domain.ExtractionParams
	weights  domain.ScoreWeights
}

// NewExtractor builds an extractor over a compiled lexicon,
// parameterized by the feature config's window, extraction, and
// scoring blocks.
func NewExtractor(matchers *Matchers, cfg domain.FeatureConfig) *Extractor {
	return &Extractor{
		matchers: matchers,
		maxLines: cfg.Window.MaxLines,
		params:   cfg.Extraction,
		weights:  cfg.Weights,
	}
}

// Extract computes one StructuralFeatures record per window plus the
// window excerpts fed to the semantic encoder. Windows must be in
// conversation order; cross-window signals (persistence, code change,
// lookback reuse) depend on it.
func (e *Extractor) Extract(texts []string, windows []domain.Window) ([]domain.StructuralFeatures, []string) {
	feats := make([]domain.StructuralFeatures, 0, len(windows))
	excerpts := make([]string, 0, len(windows))

	var (
		prevCode      string
		prevTokens    map[string]struct{}
		prev2Tokens   map[string]struct{}
		prevCodeSets  []map[string]struct{} // lookback ring, newest last
		prevWindowTxt string
	)

	for wj, win := range windows {
		s := window.Text(texts, win, e.maxLines)
		excerpts = append(excerpts, truncate(s, excerptCharLimit))

		f := domain.StructuralFeatures{
			WindowIndex: wj,
			StartIdx:    win.StartIdx,
			EndIdx:      win.EndIdx,
		}

		// Code change vs previous window: 1 - quick similarity. The
		// first window gets a neutral 0.5 when it has code and 0 when
		// it has none.
		code := textnorm.ExtractCode(s)
		if prevCode != "" {
			f.CodeChange = clamp01(1.0 - quickRatio(prevCode, code))
		} else if code != "" {
			f.CodeChange = 0.5
		}
		prevCode = code

		// Cross-window persistence: token-set Jaccard against the last
		// one/two windows, averaged. High values mean the learner is
		// circling the same topic.
		tokens := tokenSet(textnorm.WordTokens(s))
		jacPrev := jaccard(tokens, prevTokens)
		jacPrev2 := jaccard(tokens, prev2Tokens)
		f.RepeatSim = jacPrev
		if len(prevTokens) > 0 || len(prev2Tokens) > 0 {
			f.CWPersist = (jacPrev + jacPrev2) / 2.0
		} else {
			f.CWPersist = jacPrev
		}
		prev2Tokens = prevTokens
		prevTokens = tokens

		// Line-equality overlap with the previous window.
		if wj > 0 {
			f.RepeatEq = lineSetJaccard(s, prevWindowTxt)
		}
		prevWindowTxt = s

		// In-window repetition, over full content and prose only.
		f.InRepLine = lineRepetition(s)
		f.InRepNG4All = ngramRepetition(s, repetitionNGram)
		f.InRepNG4Text = ngramRepetition(textnorm.StripCode(s), repetitionNGram)

		// Message-level code reuse via normalized-code hashes.
		var msgHashes []string
		for _, mi := range win.Indices {
			block := textnorm.ExtractCode(texts[mi])
			if block == "" {
				continue
			}
			norm := textnorm.NormalizeCode(block)
			if norm == "" {
				continue
			}
			msgHashes = append(msgHashes, textnorm.ContentHash(norm))
		}
		if len(msgHashes) > 0 {
			f.CodeDupMsgInWin = 1.0 - float64(len(tokenSet(msgHashes)))/float64(len(msgHashes))
		}
		curSet := tokenSet(msgHashes)
		if len(curSet) > 0 && len(prevCodeSets) > 0 {
			hist := make(map[string]struct{})
			for _, set := range prevCodeSets {
				for h := range set {
					hist[h] = struct{}{}
				}
			}
			inter := 0
			for h := range curSet {
				if _, ok := hist[h]; ok {
					inter++
				}
			}
			f.CodeDupMsgLookback = float64(inter) / float64(len(curSet))
		}

		// Excess repetition attributable to code, gated down when the
		// code is actually changing so iterative rewrites are not
		// punished as repetition.
		f.CodeRepeatExcess = math.Max(0, f.InRepNG4All-f.InRepNG4Text)
		codeLines := 0
		for _, ln := range strings.Split(s, "\n") {
			if textnorm.IsCodeLine(ln) {
				codeLines++
			}
		}
		maxLines := e.maxLines
		if maxLines <= 0 {
			maxLines = DefaultMaxLines
		}
		f.CodeLineRate = math.Min(1.0, float64(codeLines)/float64(maxLines))
		f.CodeRepeatPenalty = f.CodeRepeatExcess *
			math.Pow(1.0-f.CodeChange, e.params.CodeRepeatAlpha) *
			(0.5 + 0.5*f.CodeLineRate)

		// High-duplication gate: the strongest of the in-window
		// repetition signals past the threshold triggers a linear
		// penalty ramp up to 1.0.
		f.DupMaxInWin = math.Max(f.InRepLine, math.Max(f.CodeDupMsgInWin, f.InRepNG4All))
		if f.DupMaxInWin >= e.params.HighDupThresh {
			f.HighDupPenalty = (f.DupMaxInWin - e.params.HighDupThresh) / (1.0 - e.params.HighDupThresh)
			f.HighDupFlag = 1.0
		}
		f.HighDupPenaltyW = f.HighDupPenalty * e.params.HighDupWeight

		// Lexicon and density signals with saturation caps.
		f.DoneHits = math.Min(1.0, float64(countHits(e.matchers.Done, s))/3.0)
		f.StuckHits = math.Min(1.0, float64(countHits(e.matchers.Stuck, s))/3.0)
		f.AIWrongHits = math.Min(1.0, float64(countHits(e.matchers.AIWrong, s))/2.0)
		f.QDensity = math.Min(1.0, float64(strings.Count(s, "?"))/12.0)
		f.FencedBlocks = math.Min(1.0, float64(textnorm.CountFences(s))/3.0)

		f.ProgressScore = e.weights.Score(&f)
		feats = append(feats, f)

		// Advance the lookback ring after scoring the window.
		prevCodeSets = append(prevCodeSets, curSet)
		if lb := e.params.DupLookback; lb > 0 && len(prevCodeSets) > lb {
			prevCodeSets = prevCodeSets[len(prevCodeSets)-lb:]
		}
	}

	return feats, excerpts
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + " …"
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0.0
	}
	return float64(inter) / float64(union)
}

// quickRatio approximates sequence similarity from character
// frequency overlap: 2*matches / total length, in [0,1].
func quickRatio(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}
	counts := make(map[rune]int, len(ra))
	for _, r := range ra {
		counts[r]++
	}
	matches := 0
	for _, r := range rb {
		if counts[r] > 0 {
			counts[r]--
			matches++
		}
	}
	return 2.0 * float64(matches) / float64(total)
}

func lineSetJaccard(a, b string) float64 {
	setA := lineSet(a)
	setB := lineSet(b)
	inter := 0
	for ln := range setA {
		if _, ok := setB[ln]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0.0
	}
	return float64(inter) / float64(union)
}

func lineSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, ln := range strings.Split(s, "\n") {
		set[ln] = struct{}{}
	}
	return set
}

func lineRepetition(s string) float64 {
	var lines []string
	for _, ln := range strings.Split(s, "\n") {
		ln = strings.TrimSpace(ln)
		if ln != "" {
			lines = append(lines, ln)
		}
	}
	if len(lines) == 0 {
		return 0.0
	}
	return 1.0 - float64(len(tokenSet(lines)))/float64(len(lines))
}

func ngramRepetition(s string, n int) float64 {
	toks := textnorm.WordTokens(s)
	if len(toks) < n {
		return 0.0
	}
	total := len(toks) - n + 1
	uniq := make(map[string]struct{}, total)
	for i := 0; i+n <= len(toks); i++ {
		uniq[strings.Join(toks[i:i+n], " ")] = struct{}{}
	}
	return 1.0 - float64(len(uniq))/float64(total)
}
