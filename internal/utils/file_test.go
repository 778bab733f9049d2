package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsImageFile(t *testing.T) {
	assert.True(t, IsImageFile("cat.JPG"))
	assert.True(t, IsImageFile("dir/dog.webp"))
	assert.False(t, IsImageFile("notes.txt"))
	assert.False(t, IsImageFile("README"))
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com/a.png"))
	assert.True(t, IsURL("http://localhost:8080/x"))
	assert.False(t, IsURL("ftp://example.com/a.png"))
	assert.False(t, IsURL("photos/a.png"))
	assert.False(t, IsURL("http://"))
}

func TestBaseName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photos/cat.jpg", "cat"},
		{"https://example.com/img/doge.png?size=2", "doge"},
		{"https://example.com/", "image"},
		{"we?ird:name.png", "we_ird_name"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BaseName(tt.in), tt.in)
	}
}

func TestGenerateOutputFilename(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "cat_meme.webp"), GenerateOutputFilename("in/cat.jpg", "out", "_meme", "webp"))
	assert.Equal(t, filepath.Join("out", "cat.png"), GenerateOutputFilename("cat.jpg", "out", "", ""))
}

func TestClipFilename(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "001_top.wav"), ClipFilename("out", 1, "top", "audio/wav"))
	assert.Equal(t, filepath.Join("out", "012_bottom.mp3"), ClipFilename("out", 12, "bottom", "audio/mpeg; charset=binary"))
	assert.Equal(t, filepath.Join("out", "002_top.bin"), ClipFilename("out", 2, "top", "application/octet-stream"))
}

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	for _, name := range []string{"b.png", "a.jpg", "sub/c.webp", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}

	files, err := ListImageFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.jpg"),
		filepath.Join(dir, "b.png"),
		filepath.Join(dir, "sub", "c.webp"),
	}, files)
}

func TestExistence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.png")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	assert.True(t, FileExists(file))
	assert.False(t, FileExists(dir))
	assert.False(t, FileExists(filepath.Join(dir, "missing")))
	assert.True(t, DirExists(dir))
	assert.False(t, DirExists(file))

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, EnsureDir(nested))
	assert.True(t, DirExists(nested))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c", SanitizeFilename(" a/b:c. "))
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatFileSize(512))
	assert.Equal(t, "1.5 KB", FormatFileSize(1536))
	assert.Equal(t, "2.0 MB", FormatFileSize(2<<20))
}
