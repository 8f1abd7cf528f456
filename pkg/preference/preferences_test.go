package preference

import (
	"testing"
)

func TestStoreLoadInitializesDefaults(t *testing.T) {
	s := NewStore(t.TempDir())
	p, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Version != 1 {
		t.Fatalf("expected default version 1, got %d", p.Version)
	}
	if p.KeywordWeights == nil || p.TopicClusters == nil {
		t.Fatalf("expected initialized maps, got %+v", p)
	}
}

// Preference updates bump the version by exactly 1 across a round-trip.
func TestStoreSaveAndReloadPreservesVersion(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	p, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	p.Version++
	p.UpdatedBy = "auto_pdca"
	p.KeywordWeights["agent"] = 2.5
	if err := s.Save(p); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Version != 2 {
		t.Fatalf("expected version 2 after one bump, got %d", reloaded.Version)
	}
	if reloaded.KeywordWeights["agent"] != 2.5 {
		t.Fatalf("expected keyword weight to persist, got %v", reloaded.KeywordWeights)
	}
}
