package service

import (
	"context"
	"testing"
)

func TestIndexMaintainerRecovers(t *testing.T) {
	kb, emb, _ := newTestKnowledgeBase(t, 32)
	m := NewIndexMaintainer(kb, 0)

	emb.setFail(true)
	if got := m.runOnce(context.Background()); got != StateFailed {
		t.Fatalf("state with embedder down = %s, want failed", got)
	}

	emb.setFail(false)
	if got := m.runOnce(context.Background()); got != StateReady {
		t.Fatalf("state after recovery = %s, want ready", got)
	}

	before, _ := emb.counts()
	m.runOnce(context.Background())
	if after, _ := emb.counts(); after != before {
		t.Error("ready index should be left alone")
	}
}
