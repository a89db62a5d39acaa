package blaze

import (
	"context"
	"testing"
)

func newTestManager(t *testing.T) *IndexManager {
	t.Helper()
	cfg := IndexConfig{Name: "test", Version: 1, Fields: []string{"title", "content", "tags"}}
	m, err := NewIndexManager(cfg, NewMemoryStore(), nil)
	if err != nil {
		t.Fatalf("NewIndexManager: %v", err)
	}
	return m
}

func sampleDocs() []*IndexedDocument {
	return []*IndexedDocument{
		{ID: "doc1", Fields: map[string]DocumentValue{
			"title":   NewTextValue("JavaScript Basics"),
			"content": NewTextValue("Learn JavaScript programming"),
			"tags":    NewListValue([]string{"programming", "javascript", "web"}),
		}},
		{ID: "doc2", Fields: map[string]DocumentValue{
			"title":   NewTextValue("Advanced TypeScript"),
			"content": NewTextValue("Deep dive into TypeScript features"),
			"tags":    NewListValue([]string{"programming", "typescript", "advanced"}),
		}},
		{ID: "doc3", Fields: map[string]DocumentValue{
			"title":   NewTextValue("React Hooks"),
			"content": NewTextValue("Understanding React Hooks and State Management"),
			"tags":    NewListValue([]string{"react", "javascript", "frontend"}),
		}},
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// END-TO-END SEARCH SCENARIOS
// ═══════════════════════════════════════════════════════════════════════════════

func TestIndexManager_Scenario1_JavaScriptMatchesTwoDocsRankedByOccurrence(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.AddDocuments(sampleDocs()); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	results, err := m.Search(context.Background(), "javascript", SearchOptions{Fields: []string{"title", "content", "tags"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	ids := map[string]bool{results[0].ID: true, results[1].ID: true}
	if !ids["doc1"] || !ids["doc3"] {
		t.Fatalf("results = %v, want {doc1, doc3}", results)
	}
	if results[0].ID != "doc1" {
		t.Errorf("doc1 should rank first (title+content+tags match): got order %v", []string{results[0].ID, results[1].ID})
	}
}

func TestIndexManager_Scenario2_FuzzyTypoMatch(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.AddDocuments(sampleDocs()); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	fuzzy, err := m.Search(context.Background(), "javascrpt", SearchOptions{Fuzzy: true, Fields: []string{"title", "content", "tags"}})
	if err != nil {
		t.Fatalf("Search (fuzzy): %v", err)
	}
	if len(fuzzy) != 2 {
		t.Fatalf("fuzzy results = %d, want 2", len(fuzzy))
	}

	exact, err := m.Search(context.Background(), "javascrpt", SearchOptions{Fields: []string{"title", "content", "tags"}})
	if err != nil {
		t.Fatalf("Search (exact): %v", err)
	}
	if len(exact) != 0 {
		t.Fatalf("exact results for typo = %d, want 0", len(exact))
	}
}

func TestIndexManager_Scenario3_SingleResult(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.AddDocuments(sampleDocs()); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	results, err := m.Search(context.Background(), "typescript", SearchOptions{Fields: []string{"title", "content", "tags"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "doc2" {
		t.Fatalf("results = %v, want exactly [doc2]", results)
	}
}

func TestIndexManager_Scenario4_StopWordsEmptyResult(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.AddDocuments(sampleDocs()); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	results, err := m.Search(context.Background(), "the quick and the dead", SearchOptions{Fields: []string{"title", "content", "tags"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("results = %v, want empty (quick/dead not present in corpus)", results)
	}
}

func TestIndexManager_Scenario5_CacheInvalidatedOnWrite(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.AddDocuments(sampleDocs()); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	opts := SearchOptions{Fields: []string{"title", "content", "tags"}}
	if _, err := m.Search(context.Background(), "programming", opts); err != nil {
		t.Fatalf("Search (first): %v", err)
	}
	if _, err := m.Search(context.Background(), "programming", opts); err != nil {
		t.Fatalf("Search (second): %v", err)
	}
	if m.cache.Stats().Hits != 1 {
		t.Errorf("hits = %d, want 1 (second identical query should hit cache)", m.cache.Stats().Hits)
	}

	if _, err := m.AddDocuments([]*IndexedDocument{{ID: "doc4", Fields: map[string]DocumentValue{
		"title":   NewTextValue("Python"),
		"content": NewTextValue("programming"),
		"tags":    NewListValue([]string{"programming"}),
	}}}); err != nil {
		t.Fatalf("AddDocuments (doc4): %v", err)
	}

	results, err := m.Search(context.Background(), "programming", opts)
	if err != nil {
		t.Fatalf("Search (after write): %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("results after write = %d, want 4", len(results))
	}
}

func TestIndexManager_Scenario6_QuotedPhraseRequiresAdjacency(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.AddDocuments(sampleDocs()); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	results, err := m.Search(context.Background(), `"react hooks"`, SearchOptions{Fields: []string{"title", "content", "tags"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "doc3" {
		t.Fatalf("results = %v, want exactly [doc3] (title is \"React Hooks\")", results)
	}

	none, err := m.Search(context.Background(), `"hooks react"`, SearchOptions{Fields: []string{"title", "content", "tags"}})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("results = %v, want empty (words are not adjacent in that order)", none)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// OPERATION CONTRACT TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestIndexManager_AddDocuments_NilListFails(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.AddDocuments(nil); err == nil {
		t.Error("AddDocuments(nil) should fail")
	}
}

func TestIndexManager_AddDocuments_SkipsMissingRequiredFields(t *testing.T) {
	m := newTestManager(t)
	added, err := m.AddDocuments([]*IndexedDocument{
		{ID: "incomplete", Fields: map[string]DocumentValue{"title": NewTextValue("x")}},
	})
	if err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}
	if added != 0 {
		t.Errorf("added = %d, want 0 (missing content/tags)", added)
	}
}

func TestIndexManager_UpdateDocument_UnknownIDFails(t *testing.T) {
	m := newTestManager(t)
	err := m.UpdateDocument(&IndexedDocument{ID: "missing"})
	if _, ok := err.(*NotFoundError); !ok {
		t.Errorf("UpdateDocument(missing) = %v, want *NotFoundError", err)
	}
}

func TestIndexManager_RemoveDocument_UnknownIDFails(t *testing.T) {
	m := newTestManager(t)
	err := m.RemoveDocument("missing")
	if _, ok := err.(*NotFoundError); !ok {
		t.Errorf("RemoveDocument(missing) = %v, want *NotFoundError", err)
	}
}

func TestIndexManager_InsertRemoveInverse(t *testing.T) {
	m := newTestManager(t)
	doc := sampleDocs()[0]
	if _, err := m.AddDocuments([]*IndexedDocument{doc}); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}
	if err := m.RemoveDocument(doc.ID); err != nil {
		t.Fatalf("RemoveDocument: %v", err)
	}
	if got := m.tokens.Search("javascript"); len(got) != 0 {
		t.Errorf("TokenIndex still has postings for removed doc: %v", got)
	}
	if m.tokens.postmap.Has("javascript", doc.ID) {
		t.Error("PostingMap still has an entry for the removed doc")
	}
}

func TestIndexManager_Search_EmptyQueryReturnsEmpty(t *testing.T) {
	m := newTestManager(t)
	results, err := m.Search(context.Background(), "", SearchOptions{})
	if err != nil {
		t.Fatalf("Search(\"\"): %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %v, want empty", results)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// EXPORT / IMPORT ROUND TRIP
// ═══════════════════════════════════════════════════════════════════════════════

func TestIndexManager_ExportImportRoundTrip(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.AddDocuments(sampleDocs()); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}

	before, err := m.Search(context.Background(), "javascript", SearchOptions{Fields: []string{"title", "content", "tags"}})
	if err != nil {
		t.Fatalf("Search (before): %v", err)
	}

	blob, err := m.ExportIndex()
	if err != nil {
		t.Fatalf("ExportIndex: %v", err)
	}

	restored := newTestManager(t)
	if err := restored.ImportIndex(blob); err != nil {
		t.Fatalf("ImportIndex: %v", err)
	}

	after, err := restored.Search(context.Background(), "javascript", SearchOptions{Fields: []string{"title", "content", "tags"}})
	if err != nil {
		t.Fatalf("Search (after): %v", err)
	}

	if len(before) != len(after) {
		t.Fatalf("result count before=%d after=%d", len(before), len(after))
	}
	for i := range before {
		if before[i].ID != after[i].ID {
			t.Errorf("result[%d].ID before=%q after=%q", i, before[i].ID, after[i].ID)
		}
	}
}

func TestIndexManager_Clear(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.AddDocuments(sampleDocs()); err != nil {
		t.Fatalf("AddDocuments: %v", err)
	}
	m.Clear()
	if m.docs.Len() != 0 {
		t.Errorf("DocumentStore not empty after Clear: %d", m.docs.Len())
	}
	results, err := m.Search(context.Background(), "javascript", SearchOptions{Fields: []string{"title", "content", "tags"}})
	if err != nil {
		t.Fatalf("Search after Clear: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results after Clear = %v, want empty", results)
	}
}
