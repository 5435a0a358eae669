package middleware_test

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/concierge/pkg/adapters/memory"
	"github.com/aretw0/concierge/pkg/domain"
	"github.com/aretw0/concierge/pkg/persistence/middleware"
	"github.com/aretw0/concierge/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func secure(t *testing.T, next ports.CheckpointStore, cfg middleware.EncryptionConfig) ports.CheckpointStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return mw(next)
}

func sampleConversation(id string) *domain.Conversation {
	conv := domain.NewConversation(id, "patient-1", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	conv.UserContext["name"] = "John Doe"
	conv.Append(domain.Message{ID: "m1", Role: domain.RoleUser, Content: "my-secret-symptoms"})
	conv.Version = 4
	return conv
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	ports.RunCheckpointStoreContract(t, secure(t, memory.NewStore(), middleware.EncryptionConfig{ActiveKey: generateKey(t)}))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := memory.NewStore()
	secureStore := secure(t, underlyingStore, middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	ctx := context.Background()
	threadID := "test-thread"

	if err := secureStore.Save(ctx, threadID, sampleConversation(threadID)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The underlying store only sees the envelope.
	stored, err := underlyingStore.Load(ctx, threadID)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if len(stored.Messages) != 0 || len(stored.UserContext) != 0 {
		t.Fatalf("Expected messages and user context to be hidden, found: %+v", stored)
	}
	if stored.Envelope == "" {
		t.Fatal("Expected envelope to be set")
	}
	if strings.Contains(stored.Envelope, "my-secret-symptoms") {
		t.Fatal("Envelope leaks plaintext")
	}
	if stored.Version != 4 {
		t.Errorf("Expected version to stay visible, got %d", stored.Version)
	}

	loaded, err := secureStore.Load(ctx, threadID)
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	if loaded.Messages[0].Content != "my-secret-symptoms" || loaded.UserContext["name"] != "John Doe" {
		t.Errorf("Unexpected decrypted conversation: %+v", loaded)
	}
	if loaded.Envelope != "" {
		t.Error("Decrypted conversation must not carry an envelope")
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	secureStoreOld := secure(t, underlyingStore, middleware.EncryptionConfig{ActiveKey: oldKey})

	ctx := context.Background()
	threadID := "rotation-thread"

	if err := secureStoreOld.Save(ctx, threadID, sampleConversation(threadID)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	secureStoreNew := secure(t, underlyingStore, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})

	loaded, err := secureStoreNew.Load(ctx, threadID)
	if err != nil {
		t.Fatalf("Load with rotated key failed: %v", err)
	}
	if loaded.UserContext["name"] != "John Doe" {
		t.Errorf("Decryption with fallback key failed")
	}

	// Saving again re-seals with the new key.
	if err := secureStoreNew.Save(ctx, threadID, loaded); err != nil {
		t.Fatalf("Save with new key failed: %v", err)
	}
	if _, err = secureStoreOld.Load(ctx, threadID); err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_RejectsPlainSnapshots(t *testing.T) {
	underlyingStore := memory.NewStore()
	ctx := context.Background()
	_ = underlyingStore.Save(ctx, "plain", sampleConversation("plain"))

	_, err := secure(t, underlyingStore, middleware.EncryptionConfig{ActiveKey: generateKey(t)}).Load(ctx, "plain")
	if !errors.Is(err, middleware.ErrMissingEnvelope) {
		t.Fatalf("Expected ErrMissingEnvelope, got %v", err)
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	if _, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")}); err == nil {
		t.Error("Expected error for invalid key size")
	}
}
