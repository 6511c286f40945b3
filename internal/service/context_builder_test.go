package service

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"care-relay/internal/domain"
	"care-relay/internal/repository"
)

func seedConversation(t *testing.T, store repository.ConversationStore, sessionID string, msgs ...domain.Message) {
	t.Helper()
	for _, msg := range msgs {
		if err := store.Append(context.Background(), sessionID, msg); err != nil {
			t.Fatalf("seed append: %v", err)
		}
	}
}

func TestContextBuilder_RoleProjection(t *testing.T) {
	store := repository.NewMemoryConversationStore()
	seedConversation(t, store, "s1",
		domain.Message{Role: domain.RoleUser, Content: "hola"},
		domain.Message{Role: domain.RoleAssistant, Content: "buenas"},
		domain.Message{Role: domain.RoleAudio, Content: "me duele el pecho", Audio: &domain.AudioMeta{Confidence: 0.9}},
		domain.Message{Role: domain.RoleUpload, Content: "analisis.pdf", DocumentURL: "https://blobs.test/files/s1/u1/analisis.pdf"},
	)

	b := NewContextBuilder(store, 0, zap.NewNop())
	got := b.Build(context.Background(), "s1")

	if len(got) != 4 {
		t.Fatalf("expected 4 context entries, got %d", len(got))
	}
	if got[0].Role != domain.RoleUser || got[1].Role != domain.RoleAssistant {
		t.Fatalf("user/assistant roles should pass through, got %s/%s", got[0].Role, got[1].Role)
	}
	if got[2].Role != domain.RoleUser || got[2].Content != "me duele el pecho" {
		t.Fatalf("audio turn should project to user with transcript, got %+v", got[2])
	}
	if got[3].Role != domain.RoleUser {
		t.Fatalf("upload turn should project to user, got %s", got[3].Role)
	}
	want := "[documento adjunto: analisis.pdf | https://blobs.test/files/s1/u1/analisis.pdf]"
	if got[3].Content != want {
		t.Fatalf("expected inline document reference %q, got %q", want, got[3].Content)
	}
}

func TestContextBuilder_Window(t *testing.T) {
	store := repository.NewMemoryConversationStore()
	for i := 0; i < 10; i++ {
		seedConversation(t, store, "s1", domain.Message{Role: domain.RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	b := NewContextBuilder(store, 4, zap.NewNop())

	got := b.Build(context.Background(), "s1")
	if len(got) != 4 {
		t.Fatalf("expected window of 4, got %d", len(got))
	}
	if got[0].Content != "m6" || got[3].Content != "m9" {
		t.Fatalf("expected last 4 entries m6..m9, got %s..%s", got[0].Content, got[3].Content)
	}

	full := b.BuildFull(context.Background(), "s1")
	if len(full) != 10 {
		t.Fatalf("BuildFull should ignore the window, got %d", len(full))
	}
}

func TestContextBuilder_DegradedStore(t *testing.T) {
	b := NewContextBuilder(repository.NewDisabledConversationStore(), 0, zap.NewNop())

	if got := b.Build(context.Background(), "s1"); len(got) != 0 {
		t.Fatalf("expected empty context on store failure, got %d entries", len(got))
	}
	if got := b.BuildFull(context.Background(), "s1"); len(got) != 0 {
		t.Fatalf("expected empty full context on store failure, got %d entries", len(got))
	}
}
