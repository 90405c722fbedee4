package chat

import (
	"context"
	"testing"

	"github.com/memoroo/memoroo/pkg/apperr"
	"github.com/memoroo/memoroo/pkg/memory"
	memmock "github.com/memoroo/memoroo/pkg/memory/mock"
)

// TestConversations_CreateAndGet verifies defaults and round-trip.
func TestConversations_CreateAndGet(t *testing.T) {
	svc := NewConversations(memmock.New())
	ctx := context.Background()

	conv, err := svc.Create(ctx, memory.Conversation{OwnerID: "owner-1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if conv.ID == "" {
		t.Error("no id assigned")
	}
	if conv.Title != "Untitled conversation" {
		t.Errorf("Title = %q, want placeholder", conv.Title)
	}

	got, err := svc.Get(ctx, "owner-1", conv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != conv.ID {
		t.Errorf("Get returned %q, want %q", got.ID, conv.ID)
	}
}

// TestConversations_GetNotFound verifies missing and foreign conversations
// are indistinguishable.
func TestConversations_GetNotFound(t *testing.T) {
	svc := NewConversations(memmock.New())
	ctx := context.Background()

	conv, err := svc.Create(ctx, memory.Conversation{OwnerID: "owner-1", Title: "mine"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Get(ctx, "owner-1", "ghost"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("ghost: error = %v, want KindNotFound", err)
	}
	if _, err := svc.Get(ctx, "owner-2", conv.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("foreign: error = %v, want KindNotFound", err)
	}
}

// TestConversations_DeleteCascades verifies messages disappear with their
// conversation.
func TestConversations_DeleteCascades(t *testing.T) {
	store := memmock.New()
	svc := NewConversations(store)
	ctx := context.Background()

	conv, err := svc.Create(ctx, memory.Conversation{OwnerID: "owner-1", Title: "t"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.AppendMessage(ctx, "owner-1", memory.ChatMessage{
		ID: "m1", ConversationID: conv.ID, Role: memory.RoleUser, Content: "hi",
	}); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	if err := svc.Delete(ctx, "owner-1", conv.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, "owner-1", conv.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("conversation still present after delete: %v", err)
	}
	if msg, _ := store.GetMessage(ctx, "owner-1", "m1"); msg != nil {
		t.Error("message survived conversation delete")
	}
}

// TestConversations_MessagesRequireConversation verifies listing messages of
// a missing conversation is NotFound rather than an empty list.
func TestConversations_MessagesRequireConversation(t *testing.T) {
	svc := NewConversations(memmock.New())

	_, err := svc.Messages(context.Background(), "owner-1", "ghost")
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("error = %v, want KindNotFound", err)
	}
}
