// ═══════════════════════════════════════════════════════════════════════════════
// SCORER: TF-IDF + PageRank-style Rank + Combined Score
// ═══════════════════════════════════════════════════════════════════════════════
// Scorer takes the candidate doc-id set produced by TokenIndex lookups and
// turns it into an ordered SearchResult list: compute one signal per
// candidate, then sort once at the end.
// ═══════════════════════════════════════════════════════════════════════════════
package blaze

import (
	"math"
	"sort"
)

const (
	rankDamping        = 0.85
	rankConvergence    = 1e-4
	rankMaxIterations  = 100
	defaultFreshnessMaxAgeDays = 365
)

// SearchResult is one ranked hit returned from a query.
type SearchResult struct {
	ID           string
	Score        float64
	Document     *IndexedDocument
	Matches      []string // matched query terms, populated when requested
	LastModified int64
}

// Scorer combines TF-IDF, PageRank-style rank and text-match evidence into
// a single ordered result list.
type Scorer struct {
	docs    *DocumentStore
	postmap *PostingMap
	legacy  *InvertedIndex // optional BM25 signal, nil unless wired by IndexManager
	cfg     SearchConfig
}

// NewScorer builds a Scorer bound to a document store, posting map and an
// optional legacy index supplying the BM25 signal.
func NewScorer(docs *DocumentStore, postmap *PostingMap, legacy *InvertedIndex, cfg SearchConfig) *Scorer {
	return &Scorer{docs: docs, postmap: postmap, legacy: legacy, cfg: cfg}
}

// linkAdjacency is the cyclic document-link graph used for rank iteration:
// source -> set of targets, built once per scoring pass from the caller's
// DocumentLink set.
type linkAdjacency map[string]map[string]struct{}

// buildAdjacency constructs the forward adjacency map, adding a reverse
// edge for every bidirectional link type.
func buildAdjacency(links []DocumentLink) linkAdjacency {
	adj := make(linkAdjacency)
	addEdge := func(src, dst string) {
		set, ok := adj[src]
		if !ok {
			set = make(map[string]struct{})
			adj[src] = set
		}
		set[dst] = struct{}{}
	}
	for _, l := range links {
		addEdge(l.Source, l.Target)
		if l.Type.Bidirectional() {
			addEdge(l.Target, l.Source)
		}
	}
	return adj
}

// DocumentRank computes the PageRank-style stationary distribution over
// every document id in ids, given the link graph in links.
func DocumentRank(ids []string, links []DocumentLink) map[string]float64 {
	n := len(ids)
	rank := make(map[string]float64, n)
	if n == 0 {
		return rank
	}
	for _, id := range ids {
		rank[id] = 1.0 / float64(n)
	}

	adj := buildAdjacency(links)
	outDegree := make(map[string]int, n)
	known := make(map[string]struct{}, n)
	for _, id := range ids {
		known[id] = struct{}{}
	}
	for src, targets := range adj {
		count := 0
		for dst := range targets {
			if _, ok := known[dst]; ok {
				count++
			}
		}
		outDegree[src] = count
	}

	for iter := 0; iter < rankMaxIterations; iter++ {
		next := make(map[string]float64, n)
		base := (1 - rankDamping) / float64(n)
		for _, id := range ids {
			next[id] = base
		}
		for src, targets := range adj {
			out := outDegree[src]
			if out == 0 {
				continue // sinks do not redistribute
			}
			share := rankDamping * rank[src] / float64(out)
			for dst := range targets {
				if _, ok := known[dst]; ok {
					next[dst] += share
				}
			}
		}

		maxDelta := 0.0
		for _, id := range ids {
			d := math.Abs(next[id] - rank[id])
			if d > maxDelta {
				maxDelta = d
			}
		}
		rank = next
		if maxDelta < rankConvergence {
			break
		}
	}
	return rank
}

// termFrequency returns tf(t,d): occurrences of t among the whitespace
// tokens of text, divided by the word count.
func termFrequency(term string, tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	count := 0
	for _, tok := range tokens {
		if tok == term {
			count++
		}
	}
	return float64(count) / float64(len(tokens))
}

// inverseDocFrequency returns idf(t) = ln(|D| / (1 + docFreq)).
func inverseDocFrequency(totalDocs, docFreq int) float64 {
	return math.Log(float64(totalDocs) / float64(1+docFreq))
}

// hasToken reports whether term appears as a whole token in tokens, as
// opposed to a substring match ("cat" must not match inside "category").
func hasToken(tokens []string, term string) bool {
	for _, tok := range tokens {
		if tok == term {
			return true
		}
	}
	return false
}

// textMatchScore gives 1.0 per term if docID carries that token in
// PostingMap, else 0.5, scaled by (1+tf), averaged across query terms.
func (s *Scorer) textMatchScore(docID string, terms []string, docTokens []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	total := 0.0
	for _, term := range terms {
		base := 0.5
		if s.postmap.Has(term, docID) {
			base = 1.0
		}
		tf := termFrequency(term, docTokens)
		total += base * (1 + tf)
	}
	return total / float64(len(terms))
}

// Score ranks candidateIDs against terms, returning results ordered by
// combined score, then lastModified (newest first), then id ascending.
func (s *Scorer) Score(candidateIDs map[string]struct{}, terms []string, links []DocumentLink, opts SearchOptions) []SearchResult {
	ids := make([]string, 0, len(candidateIDs))
	for id := range candidateIDs {
		ids = append(ids, id)
	}

	ranks := DocumentRank(ids, links)
	totalDocs := s.docs.Len()

	corpus := s.docs.All()
	docFreq := make(map[string]int, len(terms))
	for _, term := range terms {
		count := 0
		for _, doc := range corpus {
			if hasToken(Tokenize(doc.AllText(opts.Fields)), term) {
				count++
			}
		}
		docFreq[term] = count
	}

	results := make([]SearchResult, 0, len(ids))
	for _, id := range ids {
		doc, ok := s.docs.Get(id)
		if !ok {
			continue
		}
		docTokens := Tokenize(doc.AllText(opts.Fields))

		textMatch := s.textMatchScore(id, terms, docTokens)
		rank := ranks[id]

		tfidf := 0.0
		for _, term := range terms {
			tfidf += termFrequency(term, docTokens) * inverseDocFrequency(totalDocs, docFreq[term])
		}
		if len(terms) > 0 {
			tfidf /= float64(len(terms))
		}

		score := 0.3*textMatch + 0.2*rank + 0.5*tfidf

		if s.cfg.UseBM25Signal && s.legacy != nil {
			score = s.blendBM25(score, id, terms)
		}

		if opts.ApplyFreshness {
			score = applyFreshness(score, doc.lastModified(), opts.FreshnessMaxAgeDays, opts.Now)
		}

		results = append(results, SearchResult{
			ID:           id,
			Score:        score,
			Document:     doc,
			LastModified: doc.lastModified(),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].LastModified != results[j].LastModified {
			return results[i].LastModified > results[j].LastModified
		}
		return results[i].ID < results[j].ID
	})
	return results
}

// blendBM25 folds the legacy InvertedIndex's BM25 score for docID into
// score, renormalizing the other three weights proportionally. Weight 0
// (the default) is a no-op, keeping the combined-score formula exact by
// default.
func (s *Scorer) blendBM25(score float64, docID string, terms []string) float64 {
	weight := s.cfg.BM25Weight
	if weight <= 0 {
		return score
	}
	if weight > 1 {
		weight = 1
	}
	bm25 := s.legacy.calculateBM25Score(docID, terms)
	normalizedBM25 := bm25 / (1 + bm25) // squashes an unbounded BM25 score into (0,1)
	return (1-weight)*score + weight*normalizedBM25
}

// applyFreshness applies the optional recency adjustment:
// adjusted = base * (0.7 + 0.3 * max(0, 1 - ageDays/maxAge)).
func applyFreshness(base float64, lastModifiedMillis int64, maxAgeDays int, now int64) float64 {
	if maxAgeDays <= 0 {
		maxAgeDays = defaultFreshnessMaxAgeDays
	}
	ageDays := float64(now-lastModifiedMillis) / (1000 * 60 * 60 * 24)
	factor := 1 - ageDays/float64(maxAgeDays)
	if factor < 0 {
		factor = 0
	}
	return base * (0.7 + 0.3*factor)
}
