package textnorm

import (
	"strings"
	"testing"
)

func TestExtractCode_PrefersFencedBlocks(t *testing.T) {
	text := "here is my attempt\n```python\ndef add(a, b):\n    return a + b\n```\nstill failing"
	got := ExtractCode(text)
	if !strings.Contains(got, "def add(a, b):") {
		t.Errorf("fenced content missing from %q", got)
	}
	if strings.Contains(got, "here is my attempt") || strings.Contains(got, "still failing") {
		t.Errorf("prose leaked into extracted code: %q", got)
	}
}

func TestExtractCode_HeuristicLines(t *testing.T) {
	text := "I think the issue is here\nconst x = compute();\nplain sentence without markers"
	got := ExtractCode(text)
	if !strings.Contains(got, "const x = compute();") {
		t.Errorf("code-looking line not extracted: %q", got)
	}
	if strings.Contains(got, "plain sentence") {
		t.Errorf("prose extracted as code: %q", got)
	}
}

func TestExtractCode_Empty(t *testing.T) {
	if got := ExtractCode(""); got != "" {
		t.Errorf("ExtractCode(\"\") = %q, want empty", got)
	}
}

func TestStripCode_RemovesCode(t *testing.T) {
	text := "my loop never stops\n```go\nfor {\n}\n```\nwhat am I missing"
	got := StripCode(text)
	if strings.Contains(got, "for {") {
		t.Errorf("fenced code survived StripCode: %q", got)
	}
	if !strings.Contains(got, "my loop never stops") || !strings.Contains(got, "what am I missing") {
		t.Errorf("prose lost: %q", got)
	}
}

func TestNormalizeCode_Idempotent(t *testing.T) {
	code := "/* setup */\nDef  Foo():\n    # comment\n    X = 1\n"
	once := NormalizeCode(code)
	twice := NormalizeCode(once)
	if once != twice {
		t.Errorf("not idempotent:\nonce:  %q\ntwice: %q", once, twice)
	}
	if strings.Contains(once, "setup") || strings.Contains(once, "comment") {
		t.Errorf("comments survived: %q", once)
	}
	if once != strings.ToLower(once) {
		t.Errorf("not lowercased: %q", once)
	}
}

func TestNormalizeCode_ReformattedCodeHashesEqual(t *testing.T) {
	a := "def add(a, b):\n    return a + b"
	b := "def  add(a,  b):\n        return  a + b"
	if ContentHash(NormalizeCode(a)) != ContentHash(NormalizeCode(b)) {
		t.Error("whitespace-only variants hash differently")
	}
	if ContentHash(NormalizeCode(a)) == ContentHash(NormalizeCode("def sub(a, b):\n    return a - b")) {
		t.Error("distinct code hashed equal")
	}
}

func TestCountFences(t *testing.T) {
	if n := CountFences("```py\nx\n```\ntext\n```\ny\n```"); n != 4 {
		t.Errorf("CountFences = %d, want 4", n)
	}
	if n := CountFences("no code at all"); n != 0 {
		t.Errorf("CountFences = %d, want 0", n)
	}
}

func TestWordTokens(t *testing.T) {
	got := WordTokens("Why won't `this` WORK?! a")
	want := map[string]bool{"why": true, "wont": true, "this": true, "work": true}
	for _, tok := range got {
		if !want[tok] {
			t.Errorf("unexpected token %q in %v", tok, got)
		}
		delete(want, tok)
	}
	for tok := range want {
		t.Errorf("missing token %q in %v", tok, got)
	}
}

func TestCodeishTokens_SplitsIdentifiers(t *testing.T) {
	got := CodeishTokens("getUserName snake_case_var value99")
	joined := " " + strings.Join(got, " ") + " "
	for _, part := range []string{"get", "user", "name", "snake", "case", "var", "value", "99"} {
		if !strings.Contains(joined, " "+part+" ") {
			t.Errorf("missing identifier part %q in %v", part, got)
		}
	}
}

func TestCharNGrams(t *testing.T) {
	got := CharNGrams("AB  cd", 3)
	if len(got) == 0 {
		t.Fatal("no n-grams produced")
	}
	if got[0] != "ab " {
		t.Errorf("first 3-gram = %q, want %q", got[0], "ab ")
	}
	if CharNGrams("ab", 3) != nil {
		t.Error("expected nil for input shorter than n")
	}
}
