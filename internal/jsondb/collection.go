package jsondb

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrNotFound is returned when a document id does not exist.
var ErrNotFound = errors.New("document not found")

// Collection is a file-backed document store keyed by id. Documents are
// opaque JSON; callers decode into their own types. The whole file is
// rewritten on every mutation, which is fine for the small per-service
// datasets this system holds.
type Collection struct {
	path string
	mu   sync.RWMutex
	docs map[string]json.RawMessage
}

// Open loads the collection at path, creating an empty one when the file
// does not exist yet.
func Open(path string) (*Collection, error) {
	c := &Collection{
		path: path,
		docs: make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("reading collection %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &c.docs); err != nil {
		return nil, fmt.Errorf("parsing collection %s: %w", path, err)
	}
	return c, nil
}

// Insert stores a new document under id, overwriting any previous one.
func (c *Collection) Insert(id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling document %s: %w", id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.docs[id] = raw
	return c.flushLocked()
}

// Get decodes the document with id into out.
func (c *Collection) Get(id string, out any) error {
	c.mu.RLock()
	raw, ok := c.docs[id]
	c.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	return json.Unmarshal(raw, out)
}

// Update replaces an existing document.
func (c *Collection) Update(id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling document %s: %w", id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.docs[id]; !ok {
		return fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	c.docs[id] = raw
	return c.flushLocked()
}

// Delete removes a document.
func (c *Collection) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.docs[id]; !ok {
		return fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	delete(c.docs, id)
	return c.flushLocked()
}

// ForEach visits every document in id order. Returning an error from fn
// stops the iteration and propagates the error.
func (c *Collection) ForEach(fn func(id string, raw json.RawMessage) error) error {
	c.mu.RLock()
	ids := make([]string, 0, len(c.docs))
	for id := range c.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	snapshot := make([]json.RawMessage, len(ids))
	for i, id := range ids {
		snapshot[i] = c.docs[id]
	}
	c.mu.RUnlock()

	for i, id := range ids {
		if err := fn(id, snapshot[i]); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of stored documents.
func (c *Collection) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// flushLocked rewrites the backing file via a temp file and rename.
func (c *Collection) flushLocked() error {
	data, err := json.MarshalIndent(c.docs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling collection: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating collection directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".collection-*.json")
	if err != nil {
		return fmt.Errorf("creating collection temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing collection: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing collection: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing collection: %w", err)
	}
	return nil
}
