package blaze

import (
	"math"
	"strings"
)

// Phrase search finds exact, consecutive word sequences. NextPhrase finds
// one occurrence at a time, walking the index term by term rather than
// scanning documents:
//  1. find the end of a candidate phrase by chaining Next() across each term
//  2. walk backward from there with Previous() to find where it would start
//  3. check the span is exactly len(terms)-1 positions wide, in one document
//  4. if not, retry from the candidate start (handles repeated words)

// NextPhrase finds the next occurrence of a phrase (sequence of words) in
// the index whose first word lies strictly after startPos.
func (idx *InvertedIndex) NextPhrase(query string, startPos Position) []Position {
	terms := strings.Fields(query)

	endPos := idx.findPhraseEnd(terms, startPos)
	if endPos.IsEnd() {
		return []Position{EOFDocument, EOFDocument}
	}

	phraseStart := idx.findPhraseStart(terms, endPos)

	if idx.isValidPhrase(phraseStart, endPos, len(terms)) {
		return []Position{phraseStart, endPos}
	}

	return idx.NextPhrase(query, phraseStart)
}

// findPhraseEnd hops forward through terms from startPos, returning the
// position of the last term, or EOFDocument if any term has no more
// occurrences.
func (idx *InvertedIndex) findPhraseEnd(terms []string, startPos Position) Position {
	currentPos := startPos

	for _, term := range terms {
		currentPos, _ = idx.Next(term, currentPos)
		if currentPos.IsEnd() {
			return EOFDocument
		}
	}

	return currentPos
}

// findPhraseStart walks backward from endPos through all terms but the
// last (whose position is already known: endPos).
func (idx *InvertedIndex) findPhraseStart(terms []string, endPos Position) Position {
	currentPos := endPos

	for i := len(terms) - 2; i >= 0; i-- {
		currentPos, _ = idx.Previous(terms[i], currentPos)
	}

	return currentPos
}

// isValidPhrase reports whether start and end lie in the same document
// exactly termCount-1 positions apart, i.e. the terms are consecutive.
func (idx *InvertedIndex) isValidPhrase(start, end Position, termCount int) bool {
	expectedDistance := termCount - 1
	actualDistance := end.GetOffset() - start.GetOffset()
	return start.DocumentID == end.DocumentID && actualDistance == expectedDistance
}

// FindAllPhrases repeatedly calls NextPhrase from BOFDocument until it
// reaches EOF, collecting every match.
func (idx *InvertedIndex) FindAllPhrases(query string, startPos Position) [][]Position {
	var allMatches [][]Position
	currentPos := BOFDocument

	for !currentPos.IsEnd() {
		phrasePositions := idx.NextPhrase(query, currentPos)
		phraseStart := phrasePositions[0]

		if !phraseStart.IsEnd() {
			allMatches = append(allMatches, phrasePositions)
		}

		currentPos = phraseStart
	}

	return allMatches
}

// PhraseDocIDs returns the caller-facing document ids containing phrase as
// a consecutive sequence, resolved through FindAllPhrases. The phrase is run
// through the same analyzer used at index time, so casing and stemming match
// the stored postings (e.g. "hooks" must become "hook" to find a document
// indexed with the stemmed token).
func (idx *InvertedIndex) PhraseDocIDs(phrase string) map[string]struct{} {
	terms := Analyze(phrase)
	if len(terms) == 0 {
		return map[string]struct{}{}
	}
	out := make(map[string]struct{})
	for _, match := range idx.FindAllPhrases(strings.Join(terms, " "), BOFDocument) {
		if len(match) == 0 {
			continue
		}
		start := match[0]
		if start.IsEnd() {
			continue
		}
		if id, ok := idx.ResolveDocID(start.GetDocumentID()); ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// calculateIDF computes the BM25 Inverse Document Frequency for term:
// IDF = log((N - df + 0.5)/(df + 0.5) + 1), so rare terms score higher than
// common ones. df comes from the term's roaring bitmap cardinality, an O(1)
// alternative to walking its skip list to count distinct documents.
func (idx *InvertedIndex) calculateIDF(term string) float64 {
	bitmap, exists := idx.DocBitmaps[term]
	if !exists {
		return 0.0
	}

	df := float64(bitmap.GetCardinality())
	if df == 0 {
		return 0.0
	}

	N := float64(idx.TotalDocs)
	return math.Log((N-df+0.5)/(df+0.5) + 1.0)
}

// calculateBM25Score computes the BM25 score for docID (in the caller's
// string id space) given query terms.
func (idx *InvertedIndex) calculateBM25Score(docID string, queryTerms []string) float64 {
	idx.mu.Lock()
	internalID, known := idx.docIDs[docID]
	idx.mu.Unlock()
	if !known {
		return 0.0
	}

	docStats, exists := idx.DocStats[internalID]
	if !exists {
		return 0.0
	}

	avgDocLen := float64(idx.TotalTerms) / float64(idx.TotalDocs)
	docLen := float64(docStats.Length)

	score := 0.0
	k1 := idx.BM25Params.K1
	b := idx.BM25Params.B

	for _, term := range queryTerms {
		idf := idx.calculateIDF(term)
		tf := float64(docStats.TermFreqs[term])

		if tf > 0 {
			numerator := tf * (k1 + 1)
			denominator := tf + k1*(1-b+b*(docLen/avgDocLen))
			score += idf * (numerator / denominator)
		}
	}

	return score
}
