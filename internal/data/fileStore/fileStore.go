package fileStore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/akolanti/DocChat/internal/domain/commonModels"
)

const maxNameLength = 200

// Store owns uploads/<category>/ and vector_stores/<category>/. A category exists when either directory does.
type Store struct {
	uploadsRoot string
	vectorRoot  string
}

func New(uploadsRoot, vectorRoot string) *Store {
	return &Store{uploadsRoot: uploadsRoot, vectorRoot: vectorRoot}
}

// ValidateName rejects file names that are empty, hidden or would escape their parent directory.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("name is empty: %w", commonModels.ErrInvalidInput)
	case len(name) > maxNameLength:
		return fmt.Errorf("name is longer than %d bytes: %w", maxNameLength, commonModels.ErrInvalidInput)
	case name == "." || name == "..", strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
		return fmt.Errorf("%q is not a valid name: %w", name, commonModels.ErrInvalidInput)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%q may not start with '.': %w", name, commonModels.ErrInvalidInput)
	}
	return nil
}

// ValidateCategory also reserves the '_' prefix, which marks bookkeeping entries such as the name mapping.
func ValidateCategory(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if strings.HasPrefix(name, "_") {
		return fmt.Errorf("category %q may not start with '_': %w", name, commonModels.ErrInvalidInput)
	}
	return nil
}

func (s *Store) CreateCategory(category string) error {
	if err := ValidateCategory(category); err != nil {
		return err
	}
	for _, dir := range []string{s.uploadDir(category), s.vectorDir(category)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create category %s: %w", category, err)
		}
	}
	return nil
}

func (s *Store) CategoryExists(category string) bool {
	if ValidateCategory(category) != nil {
		return false
	}
	return isDir(s.uploadDir(category)) || isDir(s.vectorDir(category))
}

func (s *Store) ListCategories() ([]string, error) {
	seen := map[string]bool{}
	for _, root := range []string{s.uploadsRoot, s.vectorRoot} {
		names, err := subdirs(root)
		if err != nil {
			return nil, err
		}
		for _, n := range names {
			seen[n] = true
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	slices.Sort(out)
	return out, nil
}

// DeleteCategory removes both directories. ErrNotFound when neither existed.
func (s *Store) DeleteCategory(category string) error {
	if !s.CategoryExists(category) {
		return fmt.Errorf("category %s: %w", category, commonModels.ErrNotFound)
	}
	var errs []error
	for _, dir := range []string{s.uploadDir(category), s.vectorDir(category)} {
		if err := os.RemoveAll(dir); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SaveUpload writes r to uploads/<category>/<filename>, replacing any earlier file of that name.
func (s *Store) SaveUpload(category, filename string, r io.Reader) (string, error) {
	if err := ValidateCategory(category); err != nil {
		return "", err
	}
	if err := ValidateName(filename); err != nil {
		return "", err
	}
	if err := s.CreateCategory(category); err != nil {
		return "", err
	}

	target := s.UploadPath(category, filename)
	tmp, err := os.CreateTemp(s.uploadDir(category), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("save upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("save upload: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("save upload: %w", err)
	}
	return target, nil
}

func (s *Store) UploadPath(category, filename string) string {
	return filepath.Join(s.uploadDir(category), filename)
}

// DeleteUpload reports whether a file was removed; a missing file is not an error.
func (s *Store) DeleteUpload(category, filename string) (bool, error) {
	if err := ValidateCategory(category); err != nil {
		return false, err
	}
	if err := ValidateName(filename); err != nil {
		return false, err
	}
	err := os.Remove(s.UploadPath(category, filename))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete upload: %w", err)
	}
	return true, nil
}

func (s *Store) ListUploads(category string) ([]string, error) {
	entries, err := os.ReadDir(s.uploadDir(category))
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

func (s *Store) uploadDir(category string) string {
	return filepath.Join(s.uploadsRoot, category)
}

func (s *Store) vectorDir(category string) string {
	return filepath.Join(s.vectorRoot, category)
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func subdirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && ValidateCategory(e.Name()) == nil {
			out = append(out, e.Name())
		}
	}
	return out, nil
}
