package repository

import (
	"context"
	"os"
	"testing"

	"github.com/user/cinevasion/internal/model"
)

// 需要带 pgvector 扩展的 PostgreSQL，未设置 TEST_DATABASE_URL 时跳过
func TestPgVectorStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s := NewPgVectorStore(url)
	if err := s.Open(ctx); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	docs, vectors := newTestDocs()
	if err := s.Replace(ctx, "fp-pg", docs, vectors); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	if fp, err := s.Fingerprint(ctx); err != nil || fp != "fp-pg" {
		t.Errorf("Fingerprint() = %q, %v", fp, err)
	}
	if n, err := s.Count(ctx); err != nil || n != len(docs) {
		t.Errorf("Count() = %d, %v", n, err)
	}

	got, err := s.Search(ctx, []float32{1, 0, 0}, 10, model.DocumentFilter{MaxYear: 1990})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "tt1" || got[1].ID != "tt2" {
		t.Errorf("Search() = %+v", got)
	}
	if got[0].Metadata.Title != "Alien" {
		t.Errorf("metadata not decoded: %+v", got[0].Metadata)
	}

	got, err = s.Search(ctx, []float32{0, 1, 0}, 1, model.DocumentFilter{Genre: "Crime"})
	if err != nil || len(got) != 1 || got[0].ID != "tt3" {
		t.Errorf("genre search = %+v, %v", got, err)
	}
}

func TestPgVectorStoreWithDB(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := InitDB(url)
	if err != nil {
		t.Fatalf("InitDB() error = %v", err)
	}

	ctx := context.Background()
	s := NewPgVectorStoreWithDB(db)
	if err := s.Open(ctx); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if err := s.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	docs, vectors := newTestDocs()
	if err := s.Replace(ctx, "fp-shared", docs[:2], vectors[:2]); err != nil {
		t.Fatal(err)
	}
	if n, err := s.Count(ctx); err != nil || n != 2 {
		t.Errorf("Count() = %d, %v", n, err)
	}
}
