package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/user/cinevasion/internal/model"
)

func newTestDocs() ([]model.Document, [][]float32) {
	docs := []model.Document{
		{ID: "tt1", Content: "Alien", Metadata: model.DocumentMetadata{Tconst: "tt1", Order: 0, Title: "Alien", Year: 1979, Genres: []string{"Horror"}}},
		{ID: "tt2", Content: "Aliens", Metadata: model.DocumentMetadata{Tconst: "tt2", Order: 1, Title: "Aliens", Year: 1986, Genres: []string{"Action"}}},
		{ID: "tt3", Content: "Heat", Metadata: model.DocumentMetadata{Tconst: "tt3", Order: 2, Title: "Heat", Year: 1995, Genres: []string{"Crime"}}},
		{ID: "tt4", Content: "Undated", Metadata: model.DocumentMetadata{Tconst: "tt4", Order: 3, Title: "Undated"}},
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
		{1, 0, 0},
	}
	return docs, vectors
}

func openMemoryStore(t *testing.T) *BadgerVectorStore {
	t.Helper()
	s := NewBadgerVectorStore("")
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerVectorStoreReplaceAndSearch(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)

	fp, err := s.Fingerprint(ctx)
	if err != nil || fp != "" {
		t.Fatalf("empty store fingerprint = %q, %v", fp, err)
	}

	docs, vectors := newTestDocs()
	if err := s.Replace(ctx, "fp-1", docs, vectors); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	if fp, _ := s.Fingerprint(ctx); fp != "fp-1" {
		t.Errorf("Fingerprint() = %q, want fp-1", fp)
	}
	if n, _ := s.Count(ctx); n != 4 {
		t.Errorf("Count() = %d, want 4", n)
	}

	got, err := s.Search(ctx, []float32{1, 0, 0}, 2, model.DocumentFilter{})
	if err != nil {
		t.Fatal(err)
	}
	// tt1 与 tt4 得分相同，按目录顺序
	if len(got) != 2 || got[0].ID != "tt1" || got[1].ID != "tt4" {
		t.Errorf("Search() = %+v", got)
	}
}

func TestBadgerVectorStoreSearchFilter(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)
	docs, vectors := newTestDocs()
	if err := s.Replace(ctx, "fp", docs, vectors); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter model.DocumentFilter
		want   []string
	}{
		{name: "max year excludes undated", filter: model.DocumentFilter{MaxYear: 1990}, want: []string{"tt1", "tt2"}},
		{name: "genre", filter: model.DocumentFilter{Genre: "Crime"}, want: []string{"tt3"}},
		{name: "genre is exact", filter: model.DocumentFilter{Genre: "crime"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Search(ctx, []float32{1, 0, 0}, 10, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Search() = %d docs, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i].ID != tt.want[i] {
					t.Errorf("Search()[%d] = %s, want %s", i, got[i].ID, tt.want[i])
				}
			}
		})
	}
}

func TestBadgerVectorStoreReplaceOverwrites(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)
	docs, vectors := newTestDocs()
	if err := s.Replace(ctx, "old", docs, vectors); err != nil {
		t.Fatal(err)
	}
	// 触发缓存
	if _, err := s.Search(ctx, []float32{1, 0, 0}, 1, model.DocumentFilter{}); err != nil {
		t.Fatal(err)
	}

	if err := s.Replace(ctx, "new", docs[:1], vectors[:1]); err != nil {
		t.Fatal(err)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count() after replace = %d, want 1", n)
	}
	got, _ := s.Search(ctx, []float32{0, 1, 0}, 5, model.DocumentFilter{})
	if len(got) != 1 {
		t.Errorf("stale search cache: %d results", len(got))
	}
}

func TestBadgerVectorStoreReset(t *testing.T) {
	ctx := context.Background()
	s := openMemoryStore(t)
	docs, vectors := newTestDocs()
	if err := s.Replace(ctx, "fp", docs, vectors); err != nil {
		t.Fatal(err)
	}
	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if fp, _ := s.Fingerprint(ctx); fp != "" {
		t.Errorf("Fingerprint() after reset = %q", fp)
	}
	if n, _ := s.Count(ctx); n != 0 {
		t.Errorf("Count() after reset = %d", n)
	}
}

func TestBadgerVectorStorePersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := NewBadgerVectorStore(dir)
	if err := s.Open(ctx); err != nil {
		t.Fatal(err)
	}
	docs, vectors := newTestDocs()
	if err := s.Replace(ctx, "persisted", docs, vectors); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := NewBadgerVectorStore(dir)
	if err := reopened.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	if fp, _ := reopened.Fingerprint(ctx); fp != "persisted" {
		t.Errorf("Fingerprint() = %q after reopen", fp)
	}
	got, err := reopened.Search(ctx, []float32{0, 1, 0}, 1, model.DocumentFilter{})
	if err != nil || len(got) != 1 || got[0].Metadata.Title != "Heat" {
		t.Errorf("Search() after reopen = %+v, %v", got, err)
	}
}

func TestBadgerVectorStoreLockedDirKeepsData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	owner := NewBadgerVectorStore(dir)
	if err := owner.Open(ctx); err != nil {
		t.Fatal(err)
	}
	docs, vectors := newTestDocs()
	if err := owner.Replace(ctx, "live", docs, vectors); err != nil {
		t.Fatal(err)
	}

	other := NewBadgerVectorStore(dir)
	defer other.Close()
	if err := other.Open(ctx); !errors.Is(err, ErrIndexLocked) {
		t.Fatalf("Open() on locked dir error = %v, want ErrIndexLocked", err)
	}
	if err := other.Reset(ctx); !errors.Is(err, ErrIndexLocked) {
		t.Fatalf("Reset() on locked dir error = %v, want ErrIndexLocked", err)
	}

	if n, err := owner.Count(ctx); err != nil || n != len(docs) {
		t.Errorf("owner Count() = %d, %v; want %d", n, err, len(docs))
	}
	if err := owner.Close(); err != nil {
		t.Fatal(err)
	}

	reopened := NewBadgerVectorStore(dir)
	if err := reopened.Open(ctx); err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if fp, _ := reopened.Fingerprint(ctx); fp != "live" {
		t.Errorf("Fingerprint() after reopen = %q, want live", fp)
	}
	if n, _ := reopened.Count(ctx); n != len(docs) {
		t.Errorf("Count() after reopen = %d, want %d", n, len(docs))
	}
}

func TestBadgerVectorStoreCorruptDirIsReset(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := NewBadgerVectorStore(dir)
	if err := s.Open(ctx); err != nil {
		t.Fatal(err)
	}
	docs, vectors := newTestDocs()
	if err := s.Replace(ctx, "old", docs, vectors); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "MANIFEST"), []byte("not a manifest"), 0o644); err != nil {
		t.Fatal(err)
	}

	corrupt := NewBadgerVectorStore(dir)
	defer corrupt.Close()
	err := corrupt.Open(ctx)
	if err == nil {
		t.Fatal("Open() on corrupt dir succeeded")
	}
	if errors.Is(err, ErrIndexLocked) {
		t.Fatalf("corrupt dir reported as locked: %v", err)
	}

	if err := corrupt.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if n, _ := corrupt.Count(ctx); n != 0 {
		t.Errorf("Count() after reset = %d, want 0", n)
	}
	if err := corrupt.Replace(ctx, "new", docs[:1], vectors[:1]); err != nil {
		t.Fatal(err)
	}
	if fp, _ := corrupt.Fingerprint(ctx); fp != "new" {
		t.Errorf("Fingerprint() = %q, want new", fp)
	}
}

func TestBadgerVectorStoreMismatchedVectors(t *testing.T) {
	s := openMemoryStore(t)
	docs, vectors := newTestDocs()
	if err := s.Replace(context.Background(), "fp", docs, vectors[:2]); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 2}, b: []float32{1, 2}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "dimension mismatch", a: []float32{1}, b: []float32{1, 1}, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("cosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}
