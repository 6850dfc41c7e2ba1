package qacache

import "testing"

func TestEntryIDDeterministic(t *testing.T) {
	first := EntryID("What is AI?", "Basic Chatbot")
	second := EntryID("What is AI?", "Basic Chatbot")
	if first != second {
		t.Fatalf("expected stable id, got %q and %q", first, second)
	}
	if len(first) != 32 {
		t.Fatalf("expected 32 hex chars, got %d", len(first))
	}
}

func TestEntryIDPartitionsByUsecase(t *testing.T) {
	if EntryID("What is AI?", "Basic Chatbot") == EntryID("What is AI?", "AI News") {
		t.Fatal("same question under different usecases must not collide")
	}
}
