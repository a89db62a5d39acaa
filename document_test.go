package blaze

import "testing"

// ═══════════════════════════════════════════════════════════════════════════════
// DOCUMENT VALUE TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestDocumentValue_AsText_Text(t *testing.T) {
	v := NewTextValue("hello world")
	if got := v.AsText(); got != "hello world" {
		t.Errorf("AsText = %q, want %q", got, "hello world")
	}
}

func TestDocumentValue_AsText_List(t *testing.T) {
	v := NewListValue([]string{"a", "b", "c"})
	if got := v.AsText(); got != "a b c" {
		t.Errorf("AsText = %q, want %q", got, "a b c")
	}
}

func TestDocumentValue_AsText_NestedDottedPath(t *testing.T) {
	v := NewNestedValue(map[string]DocumentValue{
		"author": NewNestedValue(map[string]DocumentValue{
			"name": NewTextValue("Ada Lovelace"),
		}),
	})
	if got := v.AsText(); got != "Ada Lovelace" {
		t.Errorf("AsText = %q, want %q", got, "Ada Lovelace")
	}
}

func TestFlatten_DottedPaths(t *testing.T) {
	v := NewNestedValue(map[string]DocumentValue{
		"author": NewNestedValue(map[string]DocumentValue{
			"name": NewTextValue("Ada"),
		}),
	})
	out := map[string]DocumentValue{}
	flatten("metadata", v, out)
	if _, ok := out["metadata.author.name"]; !ok {
		t.Errorf("flatten did not produce metadata.author.name: %v", out)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// RELATION TYPE TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestRelationType_Bidirectional(t *testing.T) {
	cases := map[RelationType]bool{
		RelationReference: true,
		RelationRelated:   true,
		RelationParent:    false,
		RelationChild:     false,
	}
	for rt, want := range cases {
		if got := rt.Bidirectional(); got != want {
			t.Errorf("%s.Bidirectional() = %v, want %v", rt, got, want)
		}
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// DOCUMENT STORE TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestDocumentStore_PutGetDelete(t *testing.T) {
	store := NewDocumentStore()
	doc := &IndexedDocument{ID: "doc1", Fields: map[string]DocumentValue{"title": NewTextValue("x")}}
	store.Put(doc)

	got, ok := store.Get("doc1")
	if !ok || got.ID != "doc1" {
		t.Fatalf("Get(doc1) = %v, %v", got, ok)
	}

	if !store.Delete("doc1") {
		t.Error("Delete(doc1) should report true")
	}
	if _, ok := store.Get("doc1"); ok {
		t.Error("doc1 should be gone after Delete")
	}
}

func TestDocumentStore_DeleteUnknown(t *testing.T) {
	store := NewDocumentStore()
	if store.Delete("missing") {
		t.Error("Delete(missing) should report false")
	}
}

func TestDocumentStore_Clear(t *testing.T) {
	store := NewDocumentStore()
	store.Put(&IndexedDocument{ID: "doc1"})
	store.Clear()
	if store.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", store.Len())
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// ID GENERATION TESTS
// ═══════════════════════════════════════════════════════════════════════════════

func TestGenerateID_NoCollisionAtSameMillisecond(t *testing.T) {
	ms := int64(1700000000000)
	id1, err := GenerateID("idx", ms)
	if err != nil {
		t.Fatalf("GenerateID: %v", err)
	}
	id2, err := GenerateID("idx", ms)
	if err != nil {
		t.Fatalf("GenerateID: %v", err)
	}
	if id1 == id2 {
		t.Errorf("GenerateID produced a collision at the same millisecond: %q", id1)
	}
}
