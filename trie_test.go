package blaze

import "testing"

// ═══════════════════════════════════════════════════════════════════════════════
// TOKEN INDEX: INSERT / SEARCH TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestTokenIndex_InsertAndSearch(t *testing.T) {
	idx := NewTokenIndex()
	idx.Insert("quick", "doc1", 1.0)
	idx.Insert("quick", "doc2", 1.0)

	got := idx.Search("quick")
	if len(got) != 2 {
		t.Fatalf("Search(quick) = %d ids, want 2", len(got))
	}
	if _, ok := got["doc1"]; !ok {
		t.Error("doc1 missing from posting set")
	}
}

func TestTokenIndex_SearchUnknownToken(t *testing.T) {
	idx := NewTokenIndex()
	got := idx.Search("missing")
	if len(got) != 0 {
		t.Errorf("Search(missing) = %d ids, want 0", len(got))
	}
}

func TestTokenIndex_PrefixSearch(t *testing.T) {
	idx := NewTokenIndex()
	idx.Insert("quick", "doc1", 1.0)
	idx.Insert("quicker", "doc2", 1.0)
	idx.Insert("quiet", "doc3", 1.0)

	got := idx.PrefixSearch("quic")
	if len(got) != 2 {
		t.Fatalf("PrefixSearch(quic) = %d ids, want 2", len(got))
	}
	if _, ok := got["doc3"]; ok {
		t.Error("doc3 should not match prefix quic")
	}
}

func TestTokenIndex_PrefixSearchUnreachable(t *testing.T) {
	idx := NewTokenIndex()
	idx.Insert("quick", "doc1", 1.0)
	got := idx.PrefixSearch("xyz")
	if len(got) != 0 {
		t.Errorf("PrefixSearch(xyz) = %d ids, want 0", len(got))
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// FUZZY SEARCH TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestTokenIndex_FuzzySearch_SubsumesExact(t *testing.T) {
	idx := NewTokenIndex()
	idx.Insert("javascript", "doc1", 1.0)
	idx.Insert("typescript", "doc2", 1.0)

	exact := idx.Search("javascript")
	fuzzy := idx.FuzzySearch("javascript", 2)
	for id := range exact {
		if _, ok := fuzzy[id]; !ok {
			t.Errorf("fuzzySearch does not subsume exactSearch: missing %s", id)
		}
	}
}

func TestTokenIndex_FuzzySearch_TypoMatch(t *testing.T) {
	idx := NewTokenIndex()
	idx.Insert("javascript", "doc1", 1.0)

	got := idx.FuzzySearch("javascrpt", 2)
	if _, ok := got["doc1"]; !ok {
		t.Error("fuzzySearch(javascrpt, 2) did not match javascript")
	}
}

func TestTokenIndex_FuzzySearch_ZeroDistanceIsExact(t *testing.T) {
	idx := NewTokenIndex()
	idx.Insert("quick", "doc1", 1.0)

	got := idx.FuzzySearch("quikk", 0)
	if len(got) != 0 {
		t.Errorf("fuzzySearch with maxDistance 0 should behave like exact search, got %d matches", len(got))
	}
}

func TestTokenIndex_FuzzySearch_EmptyToken(t *testing.T) {
	idx := NewTokenIndex()
	idx.Insert("quick", "doc1", 1.0)

	got := idx.FuzzySearch("", 2)
	if len(got) != 0 {
		t.Errorf("fuzzySearch(\"\") = %d matches, want 0", len(got))
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// REMOVE / PRUNE TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestTokenIndex_RemovePrunesEmptyNodes(t *testing.T) {
	idx := NewTokenIndex()
	idx.Insert("quick", "doc1", 1.0)
	idx.Remove("doc1")

	if got := idx.Search("quick"); len(got) != 0 {
		t.Errorf("quick still has postings after remove: %v", got)
	}
	if len(idx.root.Children) != 0 {
		t.Errorf("root still has %d children after full prune", len(idx.root.Children))
	}
}

func TestTokenIndex_RemoveKeepsSharedPrefix(t *testing.T) {
	idx := NewTokenIndex()
	idx.Insert("quick", "doc1", 1.0)
	idx.Insert("quiet", "doc2", 1.0)
	idx.Remove("doc1")

	if got := idx.Search("quiet"); len(got) != 1 {
		t.Errorf("quiet lost its posting after removing an unrelated doc: %v", got)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// SERIALIZE / DESERIALIZE ROUND TRIP
// ═══════════════════════════════════════════════════════════════════════════════

func TestTokenIndex_SerializeRoundTrip(t *testing.T) {
	idx := NewTokenIndex()
	idx.Insert("quick", "doc1", 1.0)
	idx.Insert("quiet", "doc2", 2.0)

	blob, err := idx.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	restored := NewTokenIndex()
	if err := restored.Deserialize(blob); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	got := restored.Search("quick")
	if _, ok := got["doc1"]; !ok {
		t.Error("doc1 missing after round trip")
	}
	got2 := restored.Search("quiet")
	if _, ok := got2["doc2"]; !ok {
		t.Error("doc2 missing after round trip")
	}

	reblob, err := restored.Serialize()
	if err != nil {
		t.Fatalf("Serialize (second pass): %v", err)
	}
	if string(blob) != string(reblob) {
		t.Error("serialize(deserialize(x)) != x")
	}
}

func TestTokenize_PreservesUnicodeLetters(t *testing.T) {
	got := Tokenize("café naïve")
	want := []string{"café", "naïve"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tokenize[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTokenize_Idempotent(t *testing.T) {
	s := "Quick Brown_Fox 123"
	first := Tokenize(s)
	second := Tokenize(joinTokens(first))
	if len(first) != len(second) {
		t.Fatalf("tokenize not idempotent: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("tokenize not idempotent at %d: %q vs %q", i, first[i], second[i])
		}
	}
}

func joinTokens(tokens []string) string {
	out := ""
	for i, tok := range tokens {
		if i > 0 {
			out += " "
		}
		out += tok
	}
	return out
}
