// ═══════════════════════════════════════════════════════════════════════════════
// INDEX MANAGER: The Public Orchestration Surface
// ═══════════════════════════════════════════════════════════════════════════════
// IndexManager is the single owner of every piece of mutable state: the
// DocumentStore, the TokenIndex, the ResultCache, the document-link graph,
// and the legacy InvertedIndex kept in lockstep for phrase/proximity search
// and the optional BM25 signal. Every mutating method takes the manager's
// mutex for its whole duration, a single-writer locking style matching
// index.go's InvertedIndex.
// ═══════════════════════════════════════════════════════════════════════════════
package blaze

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
)

// StorageConfig selects the snapshot backend. Type is "memory" or
// "indexeddb" (the bbolt-backed BoltStore stands in for a browser's
// IndexedDB here).
type StorageConfig struct {
	Type string
}

// SearchConfig carries search-time defaults and the optional BM25 blend.
type SearchConfig struct {
	DefaultOptions SearchOptions
	UseBM25Signal  bool
	BM25Weight     float64
}

// IndexingConfig controls tokenization/stemming/stop-word behavior applied
// to documents as they're written (fed to the legacy analyzer pipeline).
type IndexingConfig struct {
	Tokenization  string
	CaseSensitive bool
	Stemming      bool
	StopWords     []string
	MinWordLength int
	MaxWordLength int
}

// VersioningConfig controls whether updateDocument appends history.
type VersioningConfig struct {
	Enabled     bool
	MaxVersions int
	Strategy    string // "simple" | "timestamp"
}

// DocumentSupportConfig groups document-lifecycle options.
type DocumentSupportConfig struct {
	Versioning VersioningConfig
}

// IndexConfig is the full configuration object for an index.
type IndexConfig struct {
	Name            string
	Version         int
	Fields          []string
	Storage         StorageConfig
	Search          SearchConfig
	Indexing        IndexingConfig
	DocumentSupport DocumentSupportConfig
}

func (c IndexConfig) validate() error {
	if c.Name == "" {
		return &ValidationError{Field: "name", Reason: "must be non-empty"}
	}
	if c.Version < 0 {
		return &ValidationError{Field: "version", Reason: "must be >= 0"}
	}
	if len(c.Fields) == 0 {
		return &ValidationError{Field: "fields", Reason: "must be non-empty"}
	}
	return nil
}

// SearchOptions controls a single search call. Regex is pre-compiled by
// the caller, or via SearchOptionsFromQueryString, rather than passed as
// a raw string.
type SearchOptions struct {
	Fuzzy               bool
	MaxDistance         int
	MaxResults          int
	Threshold           float64
	CaseSensitive       bool
	IncludeMatches      bool
	EnableRegex         bool
	Regex               *regexp.Regexp
	Fields              []string
	SortBy              string
	SortOrder           string
	Page                int
	PageSize            int
	Boost               map[string]float64
	ApplyFreshness      bool
	FreshnessMaxAgeDays int
	Now                 int64
}

func (o SearchOptions) validate() error {
	if o.MaxResults < 0 {
		return &ValidationError{Field: "maxResults", Reason: "must be >= 0"}
	}
	if o.Threshold < 0 || o.Threshold > 1 {
		return &ValidationError{Field: "threshold", Reason: "must be in [0,1]"}
	}
	return nil
}

func (o SearchOptions) fingerprintOptions() FingerprintOptions {
	regexSrc := ""
	if o.Regex != nil {
		regexSrc = o.Regex.String()
	}
	return FingerprintOptions{
		Fuzzy:      o.Fuzzy,
		MaxResults: o.MaxResults,
		Threshold:  o.Threshold,
		Fields:     o.Fields,
		SortBy:     o.SortBy,
		SortOrder:  o.SortOrder,
		Page:       o.Page,
		PageSize:   o.PageSize,
		Regex:      regexSrc,
		Boost:      o.Boost,
	}
}

// SearchOptionsFromQueryString compiles pattern and attaches it to opts.Regex,
// letting CLI/HTTP callers pass a raw string without the engine trusting or
// recompiling untrusted input on every query.
func SearchOptionsFromQueryString(opts SearchOptions, pattern string) (SearchOptions, error) {
	if pattern == "" {
		return opts, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return opts, &ValidationError{Field: "regex", Reason: err.Error()}
	}
	opts.EnableRegex = true
	opts.Regex = re
	return opts, nil
}

// IndexManager owns every piece of mutable engine state and is the sole
// entry point for document writes and searches.
type IndexManager struct {
	mu sync.Mutex

	cfg    IndexConfig
	docs   *DocumentStore
	tokens *TokenIndex
	cache  *ResultCache
	legacy *InvertedIndex
	store  SnapshotStore
	logger *slog.Logger

	links []DocumentLink
}

// NewIndexManager validates cfg and returns a ready-to-use manager backed
// by an in-memory TokenIndex/DocumentStore/ResultCache and a fresh legacy
// InvertedIndex. store may be nil; callers that never snapshot don't need one.
func NewIndexManager(cfg IndexConfig, store SnapshotStore, logger *slog.Logger) (*IndexManager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexManager{
		cfg:    cfg,
		docs:   NewDocumentStore(),
		tokens: NewTokenIndex(),
		cache:  NewResultCache(1000, 0, StrategyLRU),
		legacy: NewInvertedIndex(),
		store:  store,
		logger: logger,
	}, nil
}

// AddLink records a document-link edge used by the PageRank-style ranker.
func (m *IndexManager) AddLink(link DocumentLink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, link)
}

// AddDocuments indexes each document, skipping (and logging) any that lack
// a required field. Returns the count actually indexed. Fails only if docs
// is nil.
func (m *IndexManager) AddDocuments(docs []*IndexedDocument) (int, error) {
	if docs == nil {
		return 0, &ValidationError{Field: "documents", Reason: "list must not be nil"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	added := 0
	for _, doc := range docs {
		if !m.hasRequiredFields(doc) {
			m.logger.Warn("skipping document missing required fields", "id", doc.ID, "required", m.cfg.Fields)
			continue
		}
		if doc.ID == "" {
			id, err := GenerateID(m.cfg.Name, nowMillis())
			if err != nil {
				m.logger.Warn("id generation failed, skipping document", "error", err)
				continue
			}
			doc.ID = id
		}
		if doc.Metadata == nil {
			doc.Metadata = map[string]any{}
		}
		if _, ok := doc.Metadata["lastModified"]; !ok {
			doc.Metadata["lastModified"] = nowMillis()
		}
		m.indexLocked(doc)
		added++
	}
	m.cache.Clear()
	return added, nil
}

func (m *IndexManager) hasRequiredFields(doc *IndexedDocument) bool {
	for _, f := range m.cfg.Fields {
		if _, ok := doc.Fields[f]; !ok {
			return false
		}
	}
	return true
}

// indexLocked writes doc into DocumentStore, TokenIndex, and the legacy
// positional index. Caller must hold m.mu.
func (m *IndexManager) indexLocked(doc *IndexedDocument) {
	m.docs.Put(doc)

	text := doc.AllText(m.cfg.Fields)
	for _, tok := range Tokenize(text) {
		m.tokens.Insert(tok, doc.ID, 1.0)
	}

	m.legacy.IndexWithConfig(doc.ID, text, analyzerConfigFromIndexing(m.cfg.Indexing))
}

// UpdateDocument fully replaces an existing document's postings and
// re-tokenizes it, bumping lastModified and optionally appending history.
func (m *IndexManager) UpdateDocument(doc *IndexedDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.docs.Get(doc.ID)
	if !ok {
		return &NotFoundError{ID: doc.ID}
	}

	m.tokens.Remove(doc.ID)

	if v := m.cfg.DocumentSupport.Versioning; v.Enabled {
		version := DocumentVersion{
			Version:  len(existing.Versions) + 1,
			Content:  existing.AllText(m.cfg.Fields),
			Modified: existing.lastModified(),
		}
		doc.Versions = append(existing.Versions, version)
		if v.MaxVersions > 0 && len(doc.Versions) > v.MaxVersions {
			doc.Versions = doc.Versions[len(doc.Versions)-v.MaxVersions:]
		}
	}

	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	doc.Metadata["lastModified"] = nowMillis()

	m.indexLocked(doc)
	m.cache.Clear()
	return nil
}

// RemoveDocument deletes doc id from the DocumentStore and TokenIndex.
func (m *IndexManager) RemoveDocument(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.docs.Delete(id) {
		return &NotFoundError{ID: id}
	}
	m.tokens.Remove(id)
	m.cache.Clear()
	return nil
}

// Clear empties every owned piece of state.
func (m *IndexManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs.Clear()
	m.tokens = NewTokenIndex()
	m.cache.Clear()
	m.legacy = NewInvertedIndex()
	m.links = nil
}

// Search resolves a raw query against the index, honoring the ResultCache,
// and returns ordered results. Invalid options fail with *ValidationError,
// and a ctx that is done before the result is cached fails with ctx.Err();
// an empty query yields an empty result list without error.
func (m *IndexManager) Search(ctx context.Context, rawQuery string, opts SearchOptions) ([]SearchResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	processor := NewQueryProcessor()
	normalized := processor.Process(rawQuery)
	if normalized == "" {
		return []SearchResult{}, nil
	}

	terms, phrases := splitProcessedQuery(normalized)

	key := Fingerprint(normalized, opts.fingerprintOptions())

	m.mu.Lock()
	if cached, ok := m.cache.Get(key); ok {
		m.mu.Unlock()
		return cached, nil
	}

	candidates := m.candidateSetLocked(terms, opts)
	scorer := NewScorer(m.docs, m.tokens.postmap, m.legacy, m.cfg.Search)
	results := scorer.Score(candidates, terms, m.links, opts)

	if len(phrases) > 0 {
		results = m.filterByPhrasesLocked(results, phrases)
	}
	if opts.EnableRegex && opts.Regex != nil {
		results = filterByRegex(results, opts.Regex, m.cfg.Fields)
	}
	results = paginate(results, opts)

	select {
	case <-ctx.Done():
		m.mu.Unlock()
		return nil, ctx.Err()
	default:
	}

	if err := m.cache.Set(key, results); err != nil {
		m.logger.Warn("result cache set failed", "error", err)
	}
	m.mu.Unlock()

	return results, nil
}

// candidateSetLocked resolves every query term into a doc-id candidate set
// via exact TokenIndex lookups (fuzzy ones when opts.Fuzzy is set),
// intersecting the per-term sets. Caller must hold m.mu.
func (m *IndexManager) candidateSetLocked(terms []string, opts SearchOptions) map[string]struct{} {
	out := make(map[string]struct{})
	for i, term := range terms {
		var set map[string]struct{}
		switch {
		case opts.Fuzzy:
			dist := opts.MaxDistance
			if dist <= 0 {
				dist = DefaultMaxFuzzyDistance
			}
			set = m.tokens.FuzzySearch(term, dist)
		default:
			set = m.tokens.Search(term)
		}
		if i == 0 {
			out = set
			continue
		}
		out = intersect(out, set)
	}
	return out
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	for id := range small {
		if _, ok := large[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

func paginate(results []SearchResult, opts SearchOptions) []SearchResult {
	if opts.MaxResults > 0 && len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	if opts.PageSize <= 0 {
		return results
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * opts.PageSize
	if start >= len(results) {
		return []SearchResult{}
	}
	end := start + opts.PageSize
	if end > len(results) {
		end = len(results)
	}
	return results[start:end]
}

// filterByPhrasesLocked keeps only results that satisfy every extracted
// phrase. Each phrase is resolved through the legacy skip-list index's
// PhraseDocIDs, which matches on true word-position adjacency rather than
// substring containment. Caller must hold m.mu.
func (m *IndexManager) filterByPhrasesLocked(results []SearchResult, phrases []string) []SearchResult {
	out := results[:0:0]
	for _, r := range results {
		if m.matchesAllPhrasesLocked(r, phrases) {
			out = append(out, r)
		}
	}
	return out
}

func (m *IndexManager) matchesAllPhrasesLocked(r SearchResult, phrases []string) bool {
	for _, p := range phrases {
		if p == "" {
			continue
		}
		ids := m.legacy.PhraseDocIDs(p)
		if _, ok := ids[r.ID]; !ok {
			return false
		}
	}
	return true
}

func filterByRegex(results []SearchResult, re *regexp.Regexp, fields []string) []SearchResult {
	out := results[:0:0]
	for _, r := range results {
		if re.MatchString(r.Document.AllText(fields)) {
			out = append(out, r)
		}
	}
	return out
}

// splitProcessedQuery separates a processed query string back into bare
// search terms and quoted phrase contents. The words of each phrase are
// also returned as terms, so a phrase-only query still has candidates for
// filterByPhrasesLocked to narrow. Operator tokens (+/-/!) keep
// their stripped term but aren't combined into a boolean tree; modifier
// tokens (field:value) are treated as plain terms.
func splitProcessedQuery(processed string) (terms []string, phrases []string) {
	phrases, remainder := extractPhrases(processed)
	for _, p := range phrases {
		terms = append(terms, Tokenize(p)...)
	}
	for _, tok := range strings.Fields(remainder) {
		switch tok[0] {
		case '+', '-', '!':
			terms = append(terms, tok[1:])
		default:
			terms = append(terms, tok)
		}
	}
	return terms, phrases
}


// exportedDocument pairs an id with its canonical record as a typed
// struct, so JSON round trips decode straight into *IndexedDocument
// instead of a generic map.
type exportedDocument struct {
	ID       string          `json:"id"`
	Document *IndexedDocument `json:"document"`
}

// ExportBlob is the snapshot wire shape: the JSON document/token/posting
// fields plus an opaque Legacy sub-blob (InvertedIndex's binary encoding)
// carried alongside them rather than in place of them.
type ExportBlob struct {
	Version    int                 `json:"version"`
	Config     IndexConfig         `json:"config"`
	Documents  []exportedDocument  `json:"documents"`
	TokenIndex json.RawMessage     `json:"tokenIndex"`
	PostingMap map[string][]string `json:"postingMap"`
	Legacy     []byte              `json:"legacy,omitempty"`
}

// ExportIndex serializes the full manager state for snapshotting.
func (m *IndexManager) ExportIndex() (ExportBlob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	trieBlob, err := m.tokens.Serialize()
	if err != nil {
		return ExportBlob{}, &SearchError{Op: "exportIndex", Err: err}
	}

	legacyBlob, err := m.legacy.Encode()
	if err != nil {
		return ExportBlob{}, &SearchError{Op: "exportIndex", Err: err}
	}

	docs := make([]exportedDocument, 0, m.docs.Len())
	for _, d := range m.docs.All() {
		docs = append(docs, exportedDocument{ID: d.ID, Document: d})
	}

	postingMap := make(map[string][]string)
	for token, set := range m.tokens.postmap.entries {
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		postingMap[token] = ids
	}

	return ExportBlob{
		Version:    m.cfg.Version,
		Config:     m.cfg,
		Documents:  docs,
		TokenIndex: json.RawMessage(trieBlob),
		PostingMap: postingMap,
		Legacy:     legacyBlob,
	}, nil
}

// ImportIndex replaces in-memory state atomically: on failure the previous
// state is retained untouched.
func (m *IndexManager) ImportIndex(blob ExportBlob) error {
	newTokens := NewTokenIndex()
	if err := newTokens.Deserialize(blob.TokenIndex); err != nil {
		return &ValidationError{Field: "tokenIndex", Reason: err.Error()}
	}

	newDocs := NewDocumentStore()
	for _, pair := range blob.Documents {
		if pair.Document == nil {
			return &ValidationError{Field: "documents", Reason: "malformed document"}
		}
		pair.Document.ID = pair.ID
		newDocs.Put(pair.Document)
	}

	newLegacy := NewInvertedIndex()
	if len(blob.Legacy) > 0 {
		if err := newLegacy.Decode(blob.Legacy); err != nil {
			return &ValidationError{Field: "legacy", Reason: err.Error()}
		}
	} else {
		for _, doc := range newDocs.All() {
			newLegacy.Index(doc.ID, doc.AllText(m.cfg.Fields))
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = newTokens
	m.docs = newDocs
	m.legacy = newLegacy
	m.cache.Clear()
	return nil
}

// Snapshot persists the current export blob under key via the configured
// SnapshotStore, if one is set.
func (m *IndexManager) Snapshot(ctx context.Context, key string) error {
	if m.store == nil {
		return &StorageError{Op: "snapshot", Err: fmt.Errorf("no SnapshotStore configured")}
	}
	blob, err := m.ExportIndex()
	if err != nil {
		return err
	}
	data, err := json.Marshal(blob)
	if err != nil {
		return &StorageError{Op: "snapshot", Err: err}
	}
	if err := m.store.StoreIndex(ctx, key, data); err != nil {
		return &StorageError{Op: "snapshot", Err: err}
	}
	return nil
}

// Restore loads key from the configured SnapshotStore and imports it.
func (m *IndexManager) Restore(ctx context.Context, key string) error {
	if m.store == nil {
		return &StorageError{Op: "restore", Err: fmt.Errorf("no SnapshotStore configured")}
	}
	data, err := m.store.GetIndex(ctx, key)
	if err != nil {
		return &StorageError{Op: "restore", Err: err}
	}
	if data == nil {
		return &NotFoundError{ID: key}
	}
	var blob ExportBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		return &ValidationError{Field: "blob", Reason: err.Error()}
	}
	return m.ImportIndex(blob)
}

// Stats reports current cache and index statistics for the HTTP /status
// surface.
type Stats struct {
	DocumentCount int
	Cache         CacheStats
}

// Status returns a snapshot of the manager's current stats.
func (m *IndexManager) Status() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{DocumentCount: m.docs.Len(), Cache: m.cache.Stats()}
}
