// Package cache stores collaborator results by content hash so reruns on the
// same input skip paid calls.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	Transcriptions = "transcriptions"
	Analysis       = "analysis"
	Captions       = "captions"
	Images         = "images"
	FaceDetection  = "face_detection"
)

type Store interface {
	Get(category, key string) ([]byte, bool, error)
	Put(category, key string, b []byte) error
}

// Key hashes parts into a stable hex key.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FileKey hashes the file at path together with extra parts.
func FileKey(path string, parts ...string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", filepath.Base(path), err)
	}
	return Key(append([]string{hex.EncodeToString(h.Sum(nil))}, parts...)...), nil
}

// GetJSON decodes a cached value into v. Undecodable entries count as misses.
func GetJSON(s Store, category, key string, v any) bool {
	b, ok, err := s.Get(category, key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal(b, v) == nil
}

func PutJSON(s Store, category, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache %s: %w", category, err)
	}
	return s.Put(category, key, b)
}

// FS keeps one file per entry under root/category/.
type FS struct {
	root string
}

func NewFS(root string) (*FS, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("cache: empty root")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &FS{root: root}, nil
}

func (s *FS) path(category, key string) (string, error) {
	if category == "" || key == "" || strings.ContainsAny(category+key, `/\.`) {
		return "", fmt.Errorf("cache: invalid entry %q/%q", category, key)
	}
	return filepath.Join(s.root, category, key), nil
}

func (s *FS) Get(category, key string) ([]byte, bool, error) {
	p, err := s.path(category, key)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache: %w", err)
	}
	return b, true, nil
}

// Put writes through a temp file so readers never see partial entries.
func (s *FS) Put(category, key string, b []byte) error {
	p, err := s.path(category, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{entries: map[string][]byte{}}
}

func (m *Memory) Get(category, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.entries[category+"/"+key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

func (m *Memory) Put(category, key string, b []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[category+"/"+key] = append([]byte(nil), b...)
	return nil
}

// WriteOnly refreshes entries without serving reads.
type WriteOnly struct {
	Store
}

func (WriteOnly) Get(string, string) ([]byte, bool, error) {
	return nil, false, nil
}

// Nop neither stores nor serves anything.
type Nop struct{}

func (Nop) Get(string, string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Put(string, string, []byte) error { return nil }
