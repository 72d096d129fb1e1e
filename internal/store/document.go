// Package store persists each domain as a single JSON document on disk.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Normalizer is implemented by documents that need missing fields filled after
// decoding.
type Normalizer interface {
	Normalize()
}

// Collection is one JSON document guarded by a mutex. Every read-modify-write
// goes through Update so concurrent handlers cannot lose each other's writes.
type Collection[T any] struct {
	mu     sync.Mutex
	path   string
	newDoc func() *T
	logger *zap.Logger
}

// NewCollection returns a collection stored at dir/name.json.
func NewCollection[T any](dir, name string, newDoc func() *T, logger *zap.Logger) *Collection[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collection[T]{
		path:   filepath.Join(dir, name+".json"),
		newDoc: newDoc,
		logger: logger.With(zap.String("collection", name)),
	}
}

// Path returns the backing file path.
func (c *Collection[T]) Path() string {
	return c.path
}

// Load reads the whole document. An absent or empty file yields the default shape.
func (c *Collection[T]) Load(ctx context.Context) (*T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

// Save replaces the whole document.
func (c *Collection[T]) Save(ctx context.Context, doc *T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save(ctx, doc)
}

// Update loads the document, applies fn and saves the result. When fn returns an
// error nothing is written.
func (c *Collection[T]) Update(ctx context.Context, fn func(doc *T) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := c.load(ctx)
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return c.save(ctx, doc)
}

// View loads the document and hands it to fn while holding the lock.
func (c *Collection[T]) View(ctx context.Context, fn func(doc *T) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := c.load(ctx)
	if err != nil {
		return err
	}
	return fn(doc)
}

func (c *Collection[T]) load(ctx context.Context) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c.fresh(), nil
		}
		return nil, fmt.Errorf("read %s: %w", c.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return c.fresh(), nil
	}

	doc := c.newDoc()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.path, err)
	}
	if n, ok := any(doc).(Normalizer); ok {
		n.Normalize()
	}
	return doc, nil
}

func (c *Collection[T]) fresh() *T {
	doc := c.newDoc()
	if n, ok := any(doc).(Normalizer); ok {
		n.Normalize()
	}
	return doc
}

func (c *Collection[T]) save(ctx context.Context, doc *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", c.path, err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", c.path, err)
	}

	c.logger.Debug("document saved", zap.Int("bytes", len(data)))
	return nil
}
