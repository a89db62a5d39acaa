package blaze

import "testing"

// ═══════════════════════════════════════════════════════════════════════════════
// SANITIZE / PHRASE EXTRACTION TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestQueryProcessor_SanitizeCollapsesWhitespace(t *testing.T) {
	got := sanitizeQuery("  hello   world  ")
	want := "hello world"
	if got != want {
		t.Errorf("sanitizeQuery = %q, want %q", got, want)
	}
}

func TestExtractPhrases_Simple(t *testing.T) {
	phrases, rem := extractPhrases(`search "hello world" now`)
	if len(phrases) != 1 || phrases[0] != "hello world" {
		t.Fatalf("phrases = %v, want [hello world]", phrases)
	}
	if rem != "search  now" {
		t.Errorf("remainder = %q", rem)
	}
}

func TestExtractPhrases_Nested(t *testing.T) {
	phrases, _ := extractPhrases(`"outer "inner" text"`)
	if len(phrases) != 1 {
		t.Fatalf("phrases = %v, want exactly 1 nested phrase", phrases)
	}
	want := `outer "inner" text`
	if phrases[0] != want {
		t.Errorf("phrase = %q, want %q", phrases[0], want)
	}
}

func TestExtractPhrases_UnterminatedTrailingQuote(t *testing.T) {
	phrases, _ := extractPhrases(`term "trailing`)
	if len(phrases) != 1 || phrases[0] != "" {
		t.Fatalf("phrases = %v, want one empty phrase", phrases)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// CLASSIFY / STOP-WORD / STEM TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestClassifyToken(t *testing.T) {
	cases := map[string]tokenKind{
		"+required": kindOperator,
		"-excluded": kindOperator,
		"!negate":   kindOperator,
		"field:val": kindModifier,
		"plain":     kindTerm,
	}
	for tok, want := range cases {
		if got := classifyToken(tok); got != want {
			t.Errorf("classifyToken(%q) = %v, want %v", tok, got, want)
		}
	}
}

func TestStem_GerundDoubleConsonant(t *testing.T) {
	if got := stem("running"); got != "run" {
		t.Errorf("stem(running) = %q, want run", got)
	}
}

func TestStem_GerundYing(t *testing.T) {
	if got := stem("tying"); got != "ty" {
		t.Errorf("stem(tying) = %q, want ty", got)
	}
}

func TestStem_PastTenseIed(t *testing.T) {
	if got := stem("tried"); got != "try" {
		t.Errorf("stem(tried) = %q, want try", got)
	}
}

func TestStem_PluralIes(t *testing.T) {
	if got := stem("flies"); got != "fly" {
		t.Errorf("stem(flies) = %q, want fly", got)
	}
}

func TestStem_PluralBoxes(t *testing.T) {
	if got := stem("boxes"); got != "box" {
		t.Errorf("stem(boxes) = %q, want box", got)
	}
}

func TestStem_ExceptionsUntouched(t *testing.T) {
	for word := range stemExceptions {
		if got := stem(word); got != word {
			t.Errorf("stem(%q) = %q, want unchanged", word, got)
		}
	}
}

func TestStem_ShortWordsUntouched(t *testing.T) {
	if got := stem("cat"); got != "cat" {
		t.Errorf("stem(cat) = %q, want cat (length <= 3)", got)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// FULL PIPELINE TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestQueryProcessor_Process_StopWordsAndStemming(t *testing.T) {
	p := NewQueryProcessor()
	got := p.Process("the quick running dogs")
	want := "quick run dog"
	if got != want {
		t.Errorf("Process = %q, want %q", got, want)
	}
}

func TestQueryProcessor_Process_OperatorPreservesCase(t *testing.T) {
	p := NewQueryProcessor()
	got := p.Process("+JavaScript -Ruby")
	want := "+JavaScript -Ruby"
	if got != want {
		t.Errorf("Process = %q, want %q", got, want)
	}
}

func TestQueryProcessor_Process_ModifierLowercasesFieldOnly(t *testing.T) {
	p := NewQueryProcessor()
	got := p.Process("Author:JaneDoe")
	want := "author:JaneDoe"
	if got != want {
		t.Errorf("Process = %q, want %q", got, want)
	}
}

func TestQueryProcessor_Process_PhrasesFirst(t *testing.T) {
	p := NewQueryProcessor()
	got := p.Process(`running "quick fox" dogs`)
	want := `"quick fox" run dog`
	if got != want {
		t.Errorf("Process = %q, want %q", got, want)
	}
}

func TestQueryProcessor_Process_NullIsEmpty(t *testing.T) {
	p := NewQueryProcessor()
	if got := p.Process(""); got != "" {
		t.Errorf("Process(\"\") = %q, want empty", got)
	}
}

func TestQueryProcessor_Process_Idempotent(t *testing.T) {
	p := NewQueryProcessor()
	queries := []string{"the quick running dogs", "+JavaScript -Ruby", "Author:JaneDoe"}
	for _, q := range queries {
		once := p.Process(q)
		twice := p.Process(once)
		if once != twice {
			t.Errorf("Process not idempotent for %q: %q vs %q", q, once, twice)
		}
	}
}
