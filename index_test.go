package blaze

import "testing"

// ═══════════════════════════════════════════════════════════════════════════════
// INVERTED INDEX: STRING DOCUMENT ID DOMAIN
// ═══════════════════════════════════════════════════════════════════════════════

func TestInvertedIndex_IndexAndPhraseDocIDs(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index("doc-a", "the quick brown fox jumps")
	idx.Index("doc-b", "the lazy brown dog sleeps")

	got := idx.PhraseDocIDs("quick brown")
	if _, ok := got["doc-a"]; !ok {
		t.Fatalf("PhraseDocIDs(quick brown) = %v, want doc-a present", got)
	}
	if _, ok := got["doc-b"]; ok {
		t.Errorf("PhraseDocIDs(quick brown) unexpectedly matched doc-b")
	}
}

func TestInvertedIndex_PhraseDocIDs_RequiresConsecutivePositions(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index("doc-a", "brown dog barks then brown fox runs")

	got := idx.PhraseDocIDs("brown fox")
	if _, ok := got["doc-a"]; !ok {
		t.Fatalf("PhraseDocIDs(brown fox) = %v, want doc-a (second occurrence is consecutive)", got)
	}

	none := idx.PhraseDocIDs("dog fox")
	if len(none) != 0 {
		t.Errorf("PhraseDocIDs(dog fox) = %v, want empty (never consecutive)", none)
	}
}

func TestInvertedIndex_CalculateBM25Score_UnknownDocIsZero(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index("doc-a", "machine learning algorithms")

	if score := idx.calculateBM25Score("missing", []string{"machine"}); score != 0 {
		t.Errorf("calculateBM25Score(missing) = %v, want 0", score)
	}
}

func TestInvertedIndex_CalculateBM25Score_RewardsTermPresence(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index("doc-a", "machine learning algorithms power search engines")
	idx.Index("doc-b", "gardening tips for a healthy lawn")

	withTerm := idx.calculateBM25Score("doc-a", []string{"machine"})
	withoutTerm := idx.calculateBM25Score("doc-b", []string{"machine"})

	if withTerm <= withoutTerm {
		t.Errorf("calculateBM25Score(doc-a) = %v, want > calculateBM25Score(doc-b) = %v", withTerm, withoutTerm)
	}
}

func TestInvertedIndex_EncodeDecode_PreservesStringDocIDs(t *testing.T) {
	idx := NewInvertedIndex()
	idx.Index("doc-a", "quick brown fox")
	idx.Index("doc-b", "lazy brown dog")

	blob, err := idx.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	restored := NewInvertedIndex()
	if err := restored.Decode(blob); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	before := idx.calculateBM25Score("doc-a", []string{"brown"})
	after := restored.calculateBM25Score("doc-a", []string{"brown"})
	if before != after {
		t.Errorf("BM25 score for doc-a before=%v after=%v, want equal", before, after)
	}

	gotPhrase := restored.PhraseDocIDs("quick brown")
	if _, ok := gotPhrase["doc-a"]; !ok {
		t.Errorf("PhraseDocIDs after decode = %v, want doc-a present", gotPhrase)
	}
}
