// Package storage persists per-user face reference templates. Two
// backends are provided: encrypted per-user files and postgres with
// pgvector. The engines only see the TemplateStore interface.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/nirmaltodwal7/facegate/pkg/face"
)

// Template is one stored reference embedding for a user. Templates are
// never mutated in place; re-enrollment appends or replaces.
type Template struct {
	UserID    string         `json:"user_id"`
	Vector    face.Embedding `json:"vector"`
	CreatedAt time.Time      `json:"created_at"`
}

// ErrUserNotFound is returned when a user has no stored templates.
var ErrUserNotFound = errors.New("user not found")

// ErrStorageAccess is returned when the backing store cannot be
// read or written.
var ErrStorageAccess = errors.New("failed to access storage")

// TemplateStore is the persistence contract for reference templates.
type TemplateStore interface {
	// Get returns all templates for a user, ErrUserNotFound when none.
	Get(ctx context.Context, userID string) ([]Template, error)

	// Append adds a template to the user's set, creating the user.
	Append(ctx context.Context, tpl Template) error

	// Replace makes the template the user's only stored template.
	Replace(ctx context.Context, tpl Template) error

	// Delete removes all templates for a user.
	Delete(ctx context.Context, userID string) error
}
