package vectorDB

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestNameMapping(t *testing.T) {
	root := t.TempDir()
	n := NewNameMapping(root)

	if err := n.Put("law", "abc", "contract.pdf"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	// same id again must not add a second entry
	if err := n.Put("law", "abc", "contract.pdf"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := n.Put("law", "def", "lease.pdf"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(root, "law", "_name_mapping.json"))
	if err != nil {
		t.Fatalf("mapping file missing: %v", err)
	}
	onDisk := map[string]string{}
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatal(err)
	}
	if len(onDisk) != 2 || onDisk["abc"] != "contract.pdf" {
		t.Errorf("mapping on disk = %v", onDisk)
	}

	name, ok, err := n.Lookup("law", "def")
	if err != nil || !ok || name != "lease.pdf" {
		t.Errorf("Lookup = %q %v %v", name, ok, err)
	}

	removed, err := n.Remove("law", "abc")
	if err != nil || !removed {
		t.Errorf("Remove = %v %v", removed, err)
	}
	removed, err = n.Remove("law", "abc")
	if err != nil || removed {
		t.Errorf("second Remove = %v %v", removed, err)
	}

	entries, err := n.Entries("empty-category")
	if err != nil || len(entries) != 0 {
		t.Errorf("missing mapping should read as empty, got %v %v", entries, err)
	}
}
