package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

var (
	ErrFileExists   = errors.New("file already exists")
	ErrFileNotFound = errors.New("file not found")
)

// StoredFile describes a file inside a library. Path is relative to the storage root.
type StoredFile struct {
	Library string
	Name    string
	Path    string
	Size    int64
}

// DocumentStorage keeps files in named libraries (one per attachment collection,
// one for the company logo, plus staging areas for in-flight submissions).
type DocumentStorage interface {
	Upload(ctx context.Context, library, fileName string, content []byte, overwrite bool) (*StoredFile, error)
	Read(ctx context.Context, library, fileName string) ([]byte, error)
	Stat(ctx context.Context, library, fileName string) (*StoredFile, error)
	List(ctx context.Context, library string) ([]StoredFile, error)
	Delete(ctx context.Context, library, fileName string) error
	DeleteLibrary(ctx context.Context, library string) error
}

// LocalDocumentStorage implements DocumentStorage on the local filesystem
type LocalDocumentStorage struct {
	baseDir string
	logger  *zap.Logger
}

// NewLocalDocumentStorage creates a new LocalDocumentStorage rooted at baseDir
func NewLocalDocumentStorage(baseDir string, logger *zap.Logger) *LocalDocumentStorage {
	return &LocalDocumentStorage{
		baseDir: baseDir,
		logger:  logger,
	}
}

func (s *LocalDocumentStorage) Upload(ctx context.Context, library, fileName string, content []byte, overwrite bool) (*StoredFile, error) {
	fullPath, rel, err := s.resolve(library, fileName)
	if err != nil {
		return nil, err
	}

	if !overwrite {
		if _, statErr := os.Stat(fullPath); statErr == nil {
			return nil, fmt.Errorf("%w: %s", ErrFileExists, rel)
		}
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		s.logger.Error("Failed to create library directory",
			zap.String("library", library),
			zap.Error(err))
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	if err := os.WriteFile(fullPath, content, 0644); err != nil {
		s.logger.Error("Failed to write file",
			zap.String("path", rel),
			zap.Error(err))
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Debug("File uploaded",
		zap.String("path", rel),
		zap.Int("size", len(content)))

	return &StoredFile{Library: library, Name: fileName, Path: rel, Size: int64(len(content))}, nil
}

func (s *LocalDocumentStorage) Read(ctx context.Context, library, fileName string) ([]byte, error) {
	fullPath, rel, err := s.resolve(library, fileName)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, rel)
	}
	return content, err
}

func (s *LocalDocumentStorage) Stat(ctx context.Context, library, fileName string) (*StoredFile, error) {
	fullPath, rel, err := s.resolve(library, fileName)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, rel)
	}
	if err != nil {
		return nil, err
	}
	return &StoredFile{Library: library, Name: fileName, Path: rel, Size: info.Size()}, nil
}

func (s *LocalDocumentStorage) List(ctx context.Context, library string) ([]StoredFile, error) {
	dir, err := s.libraryDir(library)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return []StoredFile{}, nil
	}
	if err != nil {
		return nil, err
	}

	files := make([]StoredFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		files = append(files, StoredFile{
			Library: library,
			Name:    e.Name(),
			Path:    filepath.ToSlash(filepath.Join(library, e.Name())),
			Size:    info.Size(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Delete removes a file; deleting a missing file is not an error.
func (s *LocalDocumentStorage) Delete(ctx context.Context, library, fileName string) error {
	fullPath, _, err := s.resolve(library, fileName)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalDocumentStorage) DeleteLibrary(ctx context.Context, library string) error {
	dir, err := s.libraryDir(library)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}

func (s *LocalDocumentStorage) libraryDir(library string) (string, error) {
	if library == "" || strings.Contains(library, "..") {
		return "", fmt.Errorf("invalid library name %q", library)
	}
	dir := filepath.Join(s.baseDir, filepath.FromSlash(library))
	if err := s.ValidatePath(dir); err != nil {
		return "", err
	}
	return dir, nil
}

func (s *LocalDocumentStorage) resolve(library, fileName string) (string, string, error) {
	if fileName == "" || fileName != filepath.Base(fileName) || fileName == "." || fileName == ".." {
		return "", "", fmt.Errorf("invalid file name %q", fileName)
	}
	dir, err := s.libraryDir(library)
	if err != nil {
		return "", "", err
	}
	fullPath := filepath.Join(dir, fileName)
	if err := s.ValidatePath(fullPath); err != nil {
		return "", "", err
	}
	return fullPath, library + "/" + fileName, nil
}

// ValidatePath checks that the path is safe and within baseDir
func (s *LocalDocumentStorage) ValidatePath(fullPath string) error {
	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	absBase, err := filepath.Abs(s.baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) && absPath != absBase {
		return fmt.Errorf("path escapes base directory: %s", fullPath)
	}

	return nil
}
