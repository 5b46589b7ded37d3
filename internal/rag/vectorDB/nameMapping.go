package vectorDB

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/akolanti/DocChat/internal/config"
)

// NameMapping keeps <root>/<category>/_name_mapping.json, the document id -> original filename table.
type NameMapping struct {
	root string
	mu   sync.Mutex
}

func NewNameMapping(root string) *NameMapping {
	return &NameMapping{root: root}
}

func (n *NameMapping) path(category string) string {
	return filepath.Join(n.root, category, config.NameMappingFile)
}

func (n *NameMapping) Put(category, documentID, filename string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	entries, err := n.read(category)
	if err != nil {
		return err
	}
	entries[documentID] = filename
	return n.write(category, entries)
}

func (n *NameMapping) Lookup(category, documentID string) (string, bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	entries, err := n.read(category)
	if err != nil {
		return "", false, err
	}
	name, ok := entries[documentID]
	return name, ok, nil
}

func (n *NameMapping) Remove(category, documentID string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	entries, err := n.read(category)
	if err != nil {
		return false, err
	}
	if _, ok := entries[documentID]; !ok {
		return false, nil
	}
	delete(entries, documentID)
	return true, n.write(category, entries)
}

func (n *NameMapping) Entries(category string) (map[string]string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.read(category)
}

func (n *NameMapping) read(category string) (map[string]string, error) {
	entries := map[string]string{}
	raw, err := os.ReadFile(n.path(category))
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read name mapping: %w", err)
	}
	if len(raw) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode name mapping: %w", err)
	}
	return entries, nil
}

// write replaces the file atomically so a crash never leaves a truncated mapping.
func (n *NameMapping) write(category string, entries map[string]string) error {
	target := n.path(category)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create category dir: %w", err)
	}
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".mapping-*")
	if err != nil {
		return fmt.Errorf("write name mapping: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write name mapping: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write name mapping: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write name mapping: %w", err)
	}
	return nil
}
