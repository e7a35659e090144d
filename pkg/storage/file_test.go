package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nirmaltodwal7/facegate/pkg/face"
)

func testTemplate(userID string, seed float32) Template {
	var vec face.Embedding
	for i := range vec {
		vec[i] = seed + float32(i)*0.001
	}
	return Template{
		UserID:    userID,
		Vector:    vec,
		CreatedAt: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	for _, encrypted := range []bool{false, true} {
		name := "plaintext"
		if encrypted {
			name = "encrypted"
		}
		t.Run(name, func(t *testing.T) {
			fs, err := NewFileStore(t.TempDir(), encrypted)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			ctx := context.Background()

			want := testTemplate("alice", 0.5)
			if err := fs.Append(ctx, want); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got, err := fs.Get(ctx, "alice")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != 1 {
				t.Fatalf("expected 1 template, got %d", len(got))
			}
			if got[0].Vector != want.Vector {
				t.Error("stored vector does not round-trip")
			}
			if !got[0].CreatedAt.Equal(want.CreatedAt) {
				t.Errorf("expected created_at %v, got %v", want.CreatedAt, got[0].CreatedAt)
			}
		})
	}
}

func TestFileStoreEncryptionAtRest(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := fs.Append(context.Background(), testTemplate("alice", 0.5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "users", "alice.enc"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(string(raw), "alice") || strings.Contains(string(raw), "vector") {
		t.Error("encrypted file leaks plaintext record fields")
	}
	var rec userRecord
	if err := json.Unmarshal(raw, &rec); err == nil {
		t.Error("encrypted file unmarshals as plain JSON")
	}
}

func TestFileStoreGetUnknownUser(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := fs.Get(context.Background(), "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestFileStoreAppendAccumulates(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	fs.Append(ctx, testTemplate("alice", 0.1))
	fs.Append(ctx, testTemplate("alice", 0.9))

	got, err := fs.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 templates after two appends, got %d", len(got))
	}
}

func TestFileStoreReplaceDiscardsHistory(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	fs.Append(ctx, testTemplate("alice", 0.1))
	fs.Append(ctx, testTemplate("alice", 0.2))

	latest := testTemplate("alice", 0.9)
	if err := fs.Replace(ctx, latest); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := fs.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 template after replace, got %d", len(got))
	}
	if got[0].Vector != latest.Vector {
		t.Error("replace did not keep the newest vector")
	}
}

func TestFileStoreDelete(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	if err := fs.Delete(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}

	fs.Append(ctx, testTemplate("alice", 0.5))
	if err := fs.Delete(ctx, "alice"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := fs.Get(ctx, "alice"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound after delete, got %v", err)
	}
}

func TestFileStoreRejectsBadDimension(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := userRecord{
		UserID: "alice",
		Templates: []templateRecord{{
			Vector:    make([]float32, 64), // wrong dimension
			CreatedAt: time.Now(),
		}},
	}
	data, _ := json.Marshal(rec)
	if err := os.WriteFile(filepath.Join(dir, "users", "alice.json"), data, 0600); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := fs.Get(context.Background(), "alice"); !errors.Is(err, face.ErrDimensionMismatch) {
		t.Errorf("expected dimension mismatch, got %v", err)
	}
}

func TestFileStoreListUsers(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx := context.Background()

	users, err := fs.ListUsers()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("expected no users, got %v", users)
	}

	fs.Append(ctx, testTemplate("alice", 0.1))
	fs.Append(ctx, testTemplate("bob", 0.2))

	users, err = fs.ListUsers()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %v", users)
	}
}
