package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStorage(t *testing.T) (*LocalDocumentStorage, string) {
	t.Helper()
	dir := t.TempDir()
	return NewLocalDocumentStorage(dir, zap.NewNop()), dir
}

func TestLocalDocumentStorage_Upload(t *testing.T) {
	s, dir := newTestStorage(t)
	ctx := context.Background()

	t.Run("stores file in library", func(t *testing.T) {
		f, err := s.Upload(ctx, "purchase-attachments", "7_quote.pdf", []byte("pdf"), false)
		require.NoError(t, err)

		assert.Equal(t, "purchase-attachments/7_quote.pdf", f.Path)
		assert.Equal(t, int64(3), f.Size)
		assert.FileExists(t, filepath.Join(dir, "purchase-attachments", "7_quote.pdf"))
	})

	t.Run("refuses to overwrite unless asked", func(t *testing.T) {
		_, err := s.Upload(ctx, "purchase-attachments", "7_quote.pdf", []byte("v2"), false)
		assert.ErrorIs(t, err, ErrFileExists)

		_, err = s.Upload(ctx, "purchase-attachments", "7_quote.pdf", []byte("v2"), true)
		require.NoError(t, err)

		content, err := s.Read(ctx, "purchase-attachments", "7_quote.pdf")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), content)
	})

	t.Run("nested staging library", func(t *testing.T) {
		_, err := s.Upload(ctx, "_staging/run-1", "a.txt", []byte("a"), true)
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(dir, "_staging", "run-1", "a.txt"))
	})
}

func TestLocalDocumentStorage_RejectsUnsafeNames(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		library string
		file    string
	}{
		{name: "traversal in file name", library: "lib", file: "../escape.txt"},
		{name: "traversal in library", library: "../outside", file: "a.txt"},
		{name: "empty file name", library: "lib", file: ""},
		{name: "empty library", library: "", file: "a.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Upload(ctx, tt.library, tt.file, []byte("x"), true)
			assert.Error(t, err)
		})
	}
}

func TestLocalDocumentStorage_StatListDelete(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	_, err := s.Stat(ctx, "lib", "missing.txt")
	assert.ErrorIs(t, err, ErrFileNotFound)

	files, err := s.List(ctx, "lib")
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = s.Upload(ctx, "lib", "b.txt", []byte("bb"), false)
	require.NoError(t, err)
	_, err = s.Upload(ctx, "lib", "a.txt", []byte("a"), false)
	require.NoError(t, err)

	files, err = s.List(ctx, "lib")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.txt", files[0].Name)
	assert.Equal(t, "b.txt", files[1].Name)

	require.NoError(t, s.Delete(ctx, "lib", "a.txt"))
	require.NoError(t, s.Delete(ctx, "lib", "a.txt"))

	stat, err := s.Stat(ctx, "lib", "b.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stat.Size)

	require.NoError(t, s.DeleteLibrary(ctx, "lib"))
	files, err = s.List(ctx, "lib")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestLocalDocumentStorage_ValidatePath(t *testing.T) {
	s, dir := newTestStorage(t)

	assert.NoError(t, s.ValidatePath(filepath.Join(dir, "lib", "file.pdf")))

	err := s.ValidatePath("/etc/passwd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes base directory")

	err = s.ValidatePath(dir + "_malicious/file.txt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes base directory")
}
