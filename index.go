// InvertedIndex implements a position-level inverted index for full-text
// search: term -> sorted positions, so adjacency (phrase search) and BM25
// ranking both fall out of the same postings. Callers address documents by
// their own string ids; the int ids below are a storage-only detail used by
// the skip lists and roaring bitmaps.
package blaze

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/RoaringBitmap/roaring"
)

var (
	ErrNoPostingList = errors.New("no posting list exists for token")
	ErrNoNextElement = errors.New("no next element found")
	ErrNoPrevElement = errors.New("no previous element found")
)

// BM25Parameters holds the tuning parameters for the BM25 ranking function:
//
//	score += IDF(term) * (TF*(k1+1)) / (TF + k1*(1-b+b*(docLen/avgDocLen)))
type BM25Parameters struct {
	K1 float64 // term frequency saturation, typical 1.2-2.0
	B  float64 // length normalization, typical 0.75
}

func DefaultBM25Parameters() BM25Parameters {
	return BM25Parameters{K1: 1.5, B: 0.75}
}

// DocumentStats stores statistics about a single document
type DocumentStats struct {
	DocID     int            // Document identifier (internal, see InvertedIndex.docIDs)
	Length    int            // Number of terms in the document
	TermFreqs map[string]int // How many times each term appears
}

// InvertedIndex stores each term twice: a roaring.Bitmap of document ids for
// cheap cardinality/membership checks (calculateIDF), and a SkipList of exact
// positions for phrase adjacency. It speaks the caller's document-id domain (string) on its
// public surface; internally it keeps position-level postings keyed by a
// compact int, since SkipList sentinels (BOFDocument/EOFDocument) and the
// roaring bitmaps both need an ordered, fixed-width id space. docIDs and
// docIDsRev are that translation, owned and maintained entirely inside the
// index rather than by a caller-side map.
type InvertedIndex struct {
	mu sync.Mutex // Protects against concurrent access

	// DOCUMENT-LEVEL STORAGE (for fast document lookups and boolean queries)
	DocBitmaps map[string]*roaring.Bitmap // Term → Bitmap of document IDs

	// POSITION-LEVEL STORAGE (for phrase search, proximity)
	PostingsList map[string]SkipList // Term → Positions

	// ===============================
	// BM25 INDEXING DATA STRUCTURES
	// ===============================
	DocStats   map[int]DocumentStats // internal DocID → statistics
	TotalDocs  int                   // Total number of indexed documents
	TotalTerms int64                 // Total number of terms across all docs
	BM25Params BM25Parameters        // BM25 tuning parameters

	docIDs    map[string]int // caller id -> internal id
	docIDsRev map[int]string // internal id -> caller id
	nextDocID int
}

// NewInvertedIndex creates a new empty inverted index with hybrid storage and BM25 support
func NewInvertedIndex() *InvertedIndex {
	return &InvertedIndex{
		DocBitmaps:   make(map[string]*roaring.Bitmap), // Initialize document-level bitmaps
		PostingsList: make(map[string]SkipList),        // Initialize position-level skip lists
		DocStats:     make(map[int]DocumentStats),
		TotalDocs:    0,
		TotalTerms:   0,
		BM25Params:   DefaultBM25Parameters(),
		docIDs:       make(map[string]int),
		docIDsRev:    make(map[int]string),
	}
}

// internDocID resolves docID to its internal int id, minting one on first
// sight. Caller must hold idx.mu.
func (idx *InvertedIndex) internDocID(docID string) int {
	if id, ok := idx.docIDs[docID]; ok {
		return id
	}
	id := idx.nextDocID
	idx.nextDocID++
	idx.docIDs[docID] = id
	idx.docIDsRev[id] = docID
	return id
}

// Index adds a document under the default analyzer configuration. Records
// position-level postings (for phrase search) plus the term-frequency and
// length statistics BM25 needs, keyed by docID's minted internal id.
func (idx *InvertedIndex) Index(docID string, document string) {
	idx.IndexWithConfig(docID, document, DefaultConfig())
}

// IndexWithConfig is Index with an explicit analyzer configuration, so an
// index whose IndexingConfig disables stemming or adds stopwords tokenizes
// consistently between writes and phrase lookups.
func (idx *InvertedIndex) IndexWithConfig(docID string, document string, cfg AnalyzerConfig) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	internalID := idx.internDocID(docID)
	slog.Info("indexing document", slog.String("docID", docID), slog.Int("internalID", internalID))

	tokens := AnalyzeWithConfig(document, cfg)

	docStats := DocumentStats{
		DocID:     internalID,
		Length:    len(tokens),
		TermFreqs: make(map[string]int),
	}

	for position, token := range tokens {
		idx.indexToken(token, internalID, position)
		docStats.TermFreqs[token]++
	}

	idx.DocStats[internalID] = docStats
	idx.TotalDocs++
	idx.TotalTerms += int64(len(tokens))
}

// ResolveDocID translates an internal position's DocumentID back to the
// caller's string id, as produced by FindAllPhrases/NextPhrase.
func (idx *InvertedIndex) ResolveDocID(internalID int) (string, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	id, ok := idx.docIDsRev[internalID]
	return id, ok
}

// indexToken records one occurrence of token at (docID, position) in both
// structures: the bitmap gets the document id, the skip list gets the exact
// position. Maps don't update struct values in place, so the SkipList is
// written back after Insert.
func (idx *InvertedIndex) indexToken(token string, docID, position int) {
	if idx.DocBitmaps[token] == nil {
		idx.DocBitmaps[token] = roaring.NewBitmap()
	}
	idx.DocBitmaps[token].Add(uint32(docID))

	skipList, exists := idx.getPostingList(token)
	if !exists {
		skipList = *NewSkipList()
	}

	skipList.Insert(Position{
		DocumentID: float64(docID),
		Offset:     float64(position),
	})

	idx.PostingsList[token] = skipList
}

func (idx *InvertedIndex) getPostingList(token string) (SkipList, bool) {
	skipList, exists := idx.PostingsList[token]
	return skipList, exists
}

// First, Last, Next, and Previous are the primitives every higher-level
// search (phrase, ranking) is built from.

func (idx *InvertedIndex) First(token string) (Position, error) {
	skipList, exists := idx.getPostingList(token)
	if !exists {
		return EOFDocument, ErrNoPostingList
	}
	return skipList.Head.Tower[0].Key, nil
}

func (idx *InvertedIndex) Last(token string) (Position, error) {
	skipList, exists := idx.getPostingList(token)
	if !exists {
		return EOFDocument, ErrNoPostingList
	}
	return skipList.Last(), nil
}

// Next returns the smallest occurrence of token strictly after currentPos,
// or EOFDocument once exhausted.
func (idx *InvertedIndex) Next(token string, currentPos Position) (Position, error) {
	if currentPos.IsBeginning() {
		return idx.First(token)
	}
	if currentPos.IsEnd() {
		return EOFDocument, nil
	}

	skipList, exists := idx.getPostingList(token)
	if !exists {
		return EOFDocument, ErrNoPostingList
	}

	nextPos, _ := skipList.FindGreaterThan(currentPos)
	return nextPos, nil
}

// Previous returns the largest occurrence of token strictly before
// currentPos, or BOFDocument once exhausted.
func (idx *InvertedIndex) Previous(token string, currentPos Position) (Position, error) {
	if currentPos.IsEnd() {
		return idx.Last(token)
	}
	if currentPos.IsBeginning() {
		return BOFDocument, nil
	}

	skipList, exists := idx.getPostingList(token)
	if !exists {
		return BOFDocument, ErrNoPostingList
	}

	prevPos, _ := skipList.FindLessThan(currentPos)
	return prevPos, nil
}
