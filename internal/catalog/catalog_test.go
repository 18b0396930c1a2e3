package catalog

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCatalogIntegrity(t *testing.T) {
	if len(Characters) != 8 {
		t.Fatalf("characters = %d, want 8", len(Characters))
	}
	seen := make(map[int]bool)
	for _, c := range Characters {
		if seen[c.ID] {
			t.Errorf("duplicate character id %d", c.ID)
		}
		seen[c.ID] = true
		if c.Name == "" || c.Image == "" {
			t.Errorf("character %d is incomplete: %+v", c.ID, c)
		}
	}

	if len(PredefinedQuestions) != 16 {
		t.Fatalf("questions = %d, want 16", len(PredefinedQuestions))
	}
	qids := make(map[string]bool)
	for _, q := range PredefinedQuestions {
		if qids[q.ID] {
			t.Errorf("duplicate question id %s", q.ID)
		}
		qids[q.ID] = true
		if q.Attribute == "" || q.Value == "" {
			t.Errorf("question %s has no attribute target: %+v", q.ID, q)
		}
	}
}

func TestByID(t *testing.T) {
	c := ByID(4)
	if c == nil || c.Name != "Emily" {
		t.Errorf("ByID(4) = %+v, want Emily", c)
	}
	if ByID(99) != nil {
		t.Error("ByID(99) found a character")
	}
}

func TestDistinctPairNeverCollides(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 1000; i++ {
		a, b := DistinctPair(rng)
		if a.ID == b.ID {
			t.Fatalf("draw %d produced a collision on character %d", i, a.ID)
		}
		if ByID(a.ID) == nil || ByID(b.ID) == nil {
			t.Fatalf("draw %d produced characters outside the catalog", i)
		}
	}
}

func TestHandlerServesCharacters(t *testing.T) {
	mux := http.NewServeMux()
	NewHandler().RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/characters", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var got []Character
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(Characters) {
		t.Errorf("served %d characters, want %d", len(got), len(Characters))
	}
}

func TestHandlerServesQuestions(t *testing.T) {
	mux := http.NewServeMux()
	NewHandler().RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/predefined-questions", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []PredefinedQuestion
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != len(PredefinedQuestions) {
		t.Errorf("served %d questions, want %d", len(got), len(PredefinedQuestions))
	}
}
