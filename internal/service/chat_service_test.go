package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/user/cinevasion/internal/model"
)

type fakeRetriever struct {
	hits   []model.ScoredDocument
	err    error
	filter model.DocumentFilter
	k      int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, question string, k int, filter model.DocumentFilter) ([]model.ScoredDocument, error) {
	f.k, f.filter = k, filter
	return f.hits, f.err
}

type fakeGenerator struct {
	answer  string
	err     error
	system  string
	prompt  string
	history []model.ChatMessage
}

func (f *fakeGenerator) Generate(ctx context.Context, system string, history []model.ChatMessage, prompt string) (string, error) {
	f.system, f.history, f.prompt = system, history, prompt
	return f.answer, f.err
}

func alienHit() model.ScoredDocument {
	return model.ScoredDocument{
		Document: model.Document{
			ID:       "tt1",
			Content:  "Titre: Alien\nAnnée: 1979\n",
			Metadata: model.DocumentMetadata{Tconst: "tt1", Title: "Alien", Year: 1979},
		},
		Score: 0.9,
	}
}

func TestAsk(t *testing.T) {
	history := []model.ChatMessage{{Role: model.RoleUser, Content: "salut"}}

	tests := []struct {
		name         string
		retriever    *fakeRetriever
		generator    *fakeGenerator
		wantAnswer   string
		wantDegraded bool
		wantSources  int
		wantContext  bool
	}{
		{
			name:        "grounded answer",
			retriever:   &fakeRetriever{hits: []model.ScoredDocument{alienHit()}},
			generator:   &fakeGenerator{answer: "**Alien** 👽"},
			wantAnswer:  "**Alien** 👽",
			wantSources: 1,
			wantContext: true,
		},
		{
			name:         "retrieval down answers without context",
			retriever:    &fakeRetriever{err: model.NewRetrievalUnavailable("embed question", errors.New("timeout"))},
			generator:    &fakeGenerator{answer: "Je pense à **Alien**."},
			wantAnswer:   "Je pense à **Alien**.",
			wantDegraded: true,
		},
		{
			name:         "generation down returns fallback",
			retriever:    &fakeRetriever{hits: []model.ScoredDocument{alienHit()}},
			generator:    &fakeGenerator{err: errors.New("503")},
			wantAnswer:   FallbackAnswer,
			wantDegraded: true,
			wantSources:  1,
			wantContext:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewChatService(tt.retriever, tt.generator, 0, 0)
			reply, err := svc.Ask(context.Background(), history, "Un film avec un alien ?")
			if err != nil {
				t.Fatalf("Ask() error = %v", err)
			}
			if reply.Answer != tt.wantAnswer {
				t.Errorf("Answer = %q, want %q", reply.Answer, tt.wantAnswer)
			}
			if reply.Degraded != tt.wantDegraded {
				t.Errorf("Degraded = %v, want %v", reply.Degraded, tt.wantDegraded)
			}
			if len(reply.Sources) != tt.wantSources {
				t.Errorf("Sources = %d, want %d", len(reply.Sources), tt.wantSources)
			}
			if got := strings.Contains(tt.generator.prompt, "Titre: Alien"); got != tt.wantContext {
				t.Errorf("prompt context = %v, want %v: %q", got, tt.wantContext, tt.generator.prompt)
			}
			if !strings.HasSuffix(tt.generator.prompt, "Un film avec un alien ?") {
				t.Errorf("prompt should end with the question: %q", tt.generator.prompt)
			}
			if tt.generator.system != SystemInstruction || len(tt.generator.history) != 1 {
				t.Error("system instruction or history not forwarded")
			}
			if tt.retriever.k != DefaultChatTopK || tt.retriever.filter.MaxYear != DefaultChatMaxYear {
				t.Errorf("retrieval k=%d filter=%+v", tt.retriever.k, tt.retriever.filter)
			}
		})
	}
}

func TestAskBlankQuestion(t *testing.T) {
	svc := NewChatService(&fakeRetriever{}, &fakeGenerator{}, 5, 2000)
	if _, err := svc.Ask(context.Background(), nil, " \n"); !errors.Is(err, model.ErrValidation) {
		t.Errorf("error = %v, want validation error", err)
	}
}

func TestSystemInstruction(t *testing.T) {
	for _, want := range []string{"CineBot", "**gras**", "2000", "250 mots"} {
		if !strings.Contains(SystemInstruction, want) {
			t.Errorf("system instruction missing %q", want)
		}
	}
}
