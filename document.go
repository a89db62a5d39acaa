// Package blaze's document model: the canonical IndexedDocument record and
// the DocumentStore that holds it.
//
// ═══════════════════════════════════════════════════════════════════════════════
// POLYMORPHIC DOCUMENT SHAPE
// ═══════════════════════════════════════════════════════════════════════════════
// The source system treats a "document" as a structurally typed bag of
// fields: some are plain text, some are lists of text (tags), some are
// nested maps flattened by dotted path (metadata.author.name). Go has no
// structural typing, so DocumentValue is a small tagged union instead:
// exactly one of Text/List/Nested is meaningful, selected by Kind.
// ═══════════════════════════════════════════════════════════════════════════════
package blaze

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FieldKind tags which alternative of DocumentValue is populated.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldList
	FieldNested
)

// DocumentValue is a tagged union over the recognized field shapes: text,
// list-of-text, and nested mapping (flattened by dotted path).
type DocumentValue struct {
	Kind   FieldKind
	Text   string
	List   []string
	Nested map[string]DocumentValue
}

// NewTextValue builds a DocumentValue holding a single string.
func NewTextValue(s string) DocumentValue { return DocumentValue{Kind: FieldText, Text: s} }

// NewListValue builds a DocumentValue holding a list of strings.
func NewListValue(items []string) DocumentValue { return DocumentValue{Kind: FieldList, List: items} }

// NewNestedValue builds a DocumentValue holding a nested mapping.
func NewNestedValue(m map[string]DocumentValue) DocumentValue {
	return DocumentValue{Kind: FieldNested, Nested: m}
}

// flatten walks a DocumentValue emitting dotted-path leaves, e.g.
// metadata.author.name -> "Ada Lovelace". Text and List values are leaves;
// Nested values recurse, prefixing their children's keys.
func flatten(prefix string, v DocumentValue, out map[string]DocumentValue) {
	switch v.Kind {
	case FieldNested:
		for k, child := range v.Nested {
			path := k
			if prefix != "" {
				path = prefix + "." + k
			}
			flatten(path, child, out)
		}
	default:
		if prefix != "" {
			out[prefix] = v
		}
	}
}

// AsText renders a DocumentValue as whitespace-joined text, the shape the
// tokenizer and the legacy BM25 analyzer both expect.
func (v DocumentValue) AsText() string {
	switch v.Kind {
	case FieldText:
		return v.Text
	case FieldList:
		return strings.Join(v.List, " ")
	case FieldNested:
		flat := map[string]DocumentValue{}
		flatten("", v, flat)
		parts := make([]string, 0, len(flat))
		keys := make([]string, 0, len(flat))
		for k := range flat {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, flat[k].AsText())
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// DocumentVersion is an append-only prior snapshot of a document's content.
type DocumentVersion struct {
	Version   int
	Content   string
	Modified  int64
	Author    string
	Changelog string
}

// RelationType classifies a DocumentLink / document relation.
type RelationType string

const (
	RelationReference RelationType = "reference"
	RelationParent    RelationType = "parent"
	RelationChild     RelationType = "child"
	RelationRelated   RelationType = "related"
)

// Bidirectional reports whether this relation type propagates both ways in
// the document link graph (see relevance.go's PageRank-style rank).
func (t RelationType) Bidirectional() bool {
	return t == RelationReference || t == RelationRelated
}

// DocumentRelation is one edge of a document's {sourceId, targetId, type,
// metadata?} relation set.
type DocumentRelation struct {
	SourceID string
	TargetID string
	Type     RelationType
	Metadata map[string]any
}

// DocumentLink is the scorer-facing edge: {source, target, type, weight,
// url?}. Link types reference/related are bidirectional; parent/child are
// directional.
type DocumentLink struct {
	Source string
	Target string
	Type   RelationType
	Weight float64
	URL    string
}

// IndexedDocument is the canonical record stored and indexed by the engine.
type IndexedDocument struct {
	ID        string
	Fields    map[string]DocumentValue
	Metadata  map[string]any
	Versions  []DocumentVersion
	Relations []DocumentRelation
}

// FieldText returns the whitespace-joined text for a named field, or ""
// if the field is absent (undefined/null fields are semantically absent).
func (d *IndexedDocument) FieldText(name string) string {
	v, ok := d.Fields[name]
	if !ok {
		return ""
	}
	return v.AsText()
}

// AllText concatenates every indexed field's text, the document text used
// for tokenization and TF-IDF.
func (d *IndexedDocument) AllText(fields []string) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		if t := d.FieldText(f); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (d *IndexedDocument) lastModified() int64 {
	if d.Metadata == nil {
		return 0
	}
	if lm, ok := d.Metadata["lastModified"]; ok {
		switch v := lm.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// sortKey is optimizeIndex's dedup/sort key: lexicographic comparison of
// the JSON-marshaled fields map. json.Marshal sorts map keys
// deterministically, so this is stable.
func (d *IndexedDocument) sortKey() string {
	b, err := json.Marshal(d.Fields)
	if err != nil {
		return d.ID
	}
	return string(b)
}

// ErrEmptyDocumentList is a sentinel for a nil document list;
// IndexManager.AddDocuments reports that case as a *ValidationError instead.
var ErrEmptyDocumentList = errors.New("document list must not be nil")

// DocumentStore holds canonical IndexedDocument records keyed by id; it is
// the source of truth for field data.
type DocumentStore struct {
	mu      sync.RWMutex
	docs    map[string]*IndexedDocument
	indexed int // counts Put calls, replacements included
}

// NewDocumentStore creates an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]*IndexedDocument)}
}

// Get returns the document for id, or (nil, false) if absent.
func (s *DocumentStore) Get(id string) (*IndexedDocument, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	return d, ok
}

// Put inserts or replaces a document by id.
func (s *DocumentStore) Put(doc *IndexedDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	s.indexed++
}

// Delete removes a document by id. Reports whether it existed.
func (s *DocumentStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return false
	}
	delete(s.docs, id)
	return true
}

// Len returns the number of documents currently stored.
func (s *DocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// All returns every stored document. Callers must not mutate the result.
func (s *DocumentStore) All() []*IndexedDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*IndexedDocument, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	return out
}

// Clear empties the store.
func (s *DocumentStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string]*IndexedDocument)
}

// GenerateID produces a collision-free id of the form
// "<indexName>-<ms-timestamp>-<rand>". The random suffix guarantees
// uniqueness even across two calls that observe the same millisecond.
func GenerateID(indexName string, nowMillis int64) (string, error) {
	suffix, err := randomSuffix(8)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%s", indexName, nowMillis, suffix), nil
}

func randomSuffix(n int) (string, error) {
	u := uuid.New()
	s := strings.ReplaceAll(u.String(), "-", "")
	if n > len(s) {
		n = len(s)
	}
	return s[:n], nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
