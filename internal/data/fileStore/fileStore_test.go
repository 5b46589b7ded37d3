package fileStore

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/akolanti/DocChat/internal/domain/commonModels"
)

func newTestStore(t *testing.T) (*Store, string) {
	root := t.TempDir()
	return New(filepath.Join(root, "uploads"), filepath.Join(root, "vector_stores")), root
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name          string
		validFile     bool
		validCategory bool
	}{
		{"law", true, true},
		{"contract 2024.pdf", true, true},
		{"নথি", true, true},
		{"_report.pdf", true, false},
		{"_name_mapping.json", true, false},
		{"", false, false},
		{"   ", false, false},
		{"..", false, false},
		{"a/b", false, false},
		{`a\b`, false, false},
		{".hidden", false, false},
		{strings.Repeat("x", 201), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if (err == nil) != tt.validFile {
				t.Errorf("ValidateName(%q) = %v", tt.name, err)
			}
			if err != nil && !errors.Is(err, commonModels.ErrInvalidInput) {
				t.Errorf("ValidateName(%q) should wrap ErrInvalidInput", tt.name)
			}
			err = ValidateCategory(tt.name)
			if (err == nil) != tt.validCategory {
				t.Errorf("ValidateCategory(%q) = %v", tt.name, err)
			}
			if err != nil && !errors.Is(err, commonModels.ErrInvalidInput) {
				t.Errorf("ValidateCategory(%q) should wrap ErrInvalidInput", tt.name)
			}
		})
	}
}

func TestUnderscoreUpload(t *testing.T) {
	s, _ := newTestStore(t)
	path, err := s.SaveUpload("law", "_report.pdf", strings.NewReader("%PDF"))
	if err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}
	if filepath.Base(path) != "_report.pdf" {
		t.Errorf("path = %s", path)
	}
	uploads, err := s.ListUploads("law")
	if err != nil || !slices.Contains(uploads, "_report.pdf") {
		t.Errorf("ListUploads = %v %v", uploads, err)
	}
	deleted, err := s.DeleteUpload("law", "_report.pdf")
	if err != nil || !deleted {
		t.Errorf("DeleteUpload = %t %v", deleted, err)
	}
	if err := s.CreateCategory("_private"); !errors.Is(err, commonModels.ErrInvalidInput) {
		t.Errorf("CreateCategory(_private) = %v", err)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	s, root := newTestStore(t)

	if err := s.CreateCategory("law"); err != nil {
		t.Fatal(err)
	}
	for _, dir := range []string{"uploads/law", "vector_stores/law"} {
		if !isDir(filepath.Join(root, dir)) {
			t.Errorf("%s missing", dir)
		}
	}
	// a category only present under vector_stores still counts
	if err := os.MkdirAll(filepath.Join(root, "vector_stores", "finance"), 0o755); err != nil {
		t.Fatal(err)
	}

	cats, err := s.ListCategories()
	if err != nil || !slices.Equal(cats, []string{"finance", "law"}) {
		t.Errorf("ListCategories = %v %v", cats, err)
	}

	if err := s.DeleteCategory("law"); err != nil {
		t.Fatal(err)
	}
	if s.CategoryExists("law") {
		t.Error("law should be gone from both roots")
	}
	if err := s.DeleteCategory("law"); !errors.Is(err, commonModels.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestUploads(t *testing.T) {
	s, _ := newTestStore(t)

	path, err := s.SaveUpload("law", "contract.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil || string(raw) != "%PDF-1.4" {
		t.Errorf("saved file = %q %v", raw, err)
	}
	if _, err := s.SaveUpload("law", "../escape.pdf", strings.NewReader("x")); !errors.Is(err, commonModels.ErrInvalidInput) {
		t.Errorf("path traversal err = %v", err)
	}

	files, err := s.ListUploads("law")
	if err != nil || !slices.Equal(files, []string{"contract.pdf"}) {
		t.Errorf("ListUploads = %v %v", files, err)
	}

	deleted, err := s.DeleteUpload("law", "contract.pdf")
	if err != nil || !deleted {
		t.Errorf("DeleteUpload = %v %v", deleted, err)
	}
	deleted, err = s.DeleteUpload("law", "contract.pdf")
	if err != nil || deleted {
		t.Errorf("second DeleteUpload = %v %v", deleted, err)
	}

	if files, err := s.ListUploads("missing"); err != nil || len(files) != 0 {
		t.Errorf("missing category uploads = %v %v", files, err)
	}
}
