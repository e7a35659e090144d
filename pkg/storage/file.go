package storage

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/nirmaltodwal7/facegate/pkg/face"
	"github.com/nirmaltodwal7/facegate/pkg/logging"
)

const (
	nonceSize = 24
	keySize   = 32
)

// ErrEncryption is returned when encryption or decryption fails.
var ErrEncryption = errors.New("encryption error")

// userRecord is the on-disk shape of one user's template set. Vectors
// are stored as raw slices and dimension-checked on load.
type userRecord struct {
	UserID    string           `json:"user_id"`
	Templates []templateRecord `json:"templates"`
}

type templateRecord struct {
	Vector    []float32 `json:"vector"`
	CreatedAt time.Time `json:"created_at"`
}

// FileStore keeps one file per user under dataDir/users, optionally
// encrypted at rest with NaCl secretbox using a machine-derived key.
type FileStore struct {
	dataDir           string
	encryptionEnabled bool
	encryptionKey     [keySize]byte
}

// NewFileStore creates the store and its directory layout.
func NewFileStore(dataDir string, encryptionEnabled bool) (*FileStore, error) {
	fs := &FileStore{
		dataDir:           dataDir,
		encryptionEnabled: encryptionEnabled,
	}

	if encryptionEnabled {
		fs.encryptionKey = deriveKey()
	}

	if err := os.MkdirAll(filepath.Join(dataDir, "users"), 0700); err != nil {
		return nil, fmt.Errorf("create users directory: %w", err)
	}
	return fs, nil
}

// deriveKey derives an encryption key from machine-specific information,
// tying encrypted template files to this host.
func deriveKey() [keySize]byte {
	var identity strings.Builder

	if machineID, err := os.ReadFile("/etc/machine-id"); err == nil {
		identity.Write(machineID)
	}
	if hostname, err := os.Hostname(); err == nil {
		identity.WriteString(hostname)
	}
	identity.WriteString(fmt.Sprintf("%d", os.Getuid()))
	identity.WriteString("facegate-v1-salt")

	return sha256.Sum256([]byte(identity.String()))
}

func (fs *FileStore) userPath(userID string) string {
	filename := userID + ".json"
	if fs.encryptionEnabled {
		filename = userID + ".enc"
	}
	return filepath.Join(fs.dataDir, "users", filename)
}

// Get implements TemplateStore.
func (fs *FileStore) Get(ctx context.Context, userID string) ([]Template, error) {
	rec, err := fs.load(userID)
	if err != nil {
		return nil, err
	}

	templates := make([]Template, 0, len(rec.Templates))
	for _, t := range rec.Templates {
		vec, err := face.FromSlice(t.Vector)
		if err != nil {
			return nil, fmt.Errorf("stored template for %s: %w", userID, err)
		}
		templates = append(templates, Template{
			UserID:    userID,
			Vector:    vec,
			CreatedAt: t.CreatedAt,
		})
	}
	return templates, nil
}

// Append implements TemplateStore.
func (fs *FileStore) Append(ctx context.Context, tpl Template) error {
	rec, err := fs.load(tpl.UserID)
	if errors.Is(err, ErrUserNotFound) {
		rec = &userRecord{UserID: tpl.UserID}
	} else if err != nil {
		return err
	}

	rec.Templates = append(rec.Templates, templateRecord{
		Vector:    tpl.Vector[:],
		CreatedAt: tpl.CreatedAt,
	})
	return fs.save(rec)
}

// Replace implements TemplateStore.
func (fs *FileStore) Replace(ctx context.Context, tpl Template) error {
	rec := &userRecord{
		UserID: tpl.UserID,
		Templates: []templateRecord{{
			Vector:    tpl.Vector[:],
			CreatedAt: tpl.CreatedAt,
		}},
	}
	return fs.save(rec)
}

// Delete implements TemplateStore.
func (fs *FileStore) Delete(ctx context.Context, userID string) error {
	if err := os.Remove(fs.userPath(userID)); err != nil {
		if os.IsNotExist(err) {
			return ErrUserNotFound
		}
		return fmt.Errorf("%w: %v", ErrStorageAccess, err)
	}
	logging.Component("storage").Infof("deleted templates for user %s", userID)
	return nil
}

// ListUsers returns all enrolled user ids.
func (fs *FileStore) ListUsers() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(fs.dataDir, "users"))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageAccess, err)
	}

	var users []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			users = append(users, strings.TrimSuffix(name, ".json"))
		} else if strings.HasSuffix(name, ".enc") {
			users = append(users, strings.TrimSuffix(name, ".enc"))
		}
	}
	return users, nil
}

func (fs *FileStore) load(userID string) (*userRecord, error) {
	data, err := os.ReadFile(fs.userPath(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageAccess, err)
	}

	if fs.encryptionEnabled {
		data, err = fs.decrypt(data)
		if err != nil {
			return nil, err
		}
	}

	var rec userRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal user record: %w", err)
	}
	return &rec, nil
}

func (fs *FileStore) save(rec *userRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal user record: %w", err)
	}

	if fs.encryptionEnabled {
		data, err = fs.encrypt(data)
		if err != nil {
			return err
		}
	}

	if err := os.WriteFile(fs.userPath(rec.UserID), data, 0600); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageAccess, err)
	}
	logging.Component("storage").Debugf("saved %d template(s) for user %s", len(rec.Templates), rec.UserID)
	return nil
}

func (fs *FileStore) encrypt(plaintext []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryption, err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, &fs.encryptionKey), nil
}

func (fs *FileStore) decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < nonceSize {
		return nil, ErrEncryption
	}
	var nonce [nonceSize]byte
	copy(nonce[:], ciphertext[:nonceSize])

	plaintext, ok := secretbox.Open(nil, ciphertext[nonceSize:], &nonce, &fs.encryptionKey)
	if !ok {
		return nil, ErrEncryption
	}
	return plaintext, nil
}
