package id

import (
	"strings"
	"testing"
)

func TestPrefixes(t *testing.T) {
	if !strings.HasPrefix(NewSaveID().String(), "save_") {
		t.Error("save id missing prefix")
	}
	if !strings.HasPrefix(NewRequestID().String(), "req_") {
		t.Error("request id missing prefix")
	}
}

func TestUniqueness(t *testing.T) {
	seen := make(map[SaveID]bool)
	for i := 0; i < 1000; i++ {
		id := NewSaveID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestSortableByTime(t *testing.T) {
	g := NewGenerator()
	a := g.Generate()
	b := g.Generate()
	if a.String() > b.String() {
		t.Error("later ulid should not sort before earlier one")
	}
}
