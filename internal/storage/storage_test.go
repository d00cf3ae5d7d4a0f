package storage

import (
	"bytes"
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerImagePath(t *testing.T) {
	assert.Equal(t, "attempts/abc/3.png", AnswerImagePath("abc", 3, "png"))
	assert.Equal(t, "attempts/abc/10.jpg", AnswerImagePath("abc", 10, ".jpg"))
}

func TestExtensionFor(t *testing.T) {
	tests := []struct {
		contentType string
		expected    string
	}{
		{"image/png", "png"},
		{"image/jpeg", "jpg"},
		{"IMAGE/WEBP", "webp"},
		{"image/png; charset=binary", "png"},
		{"", "jpg"},
		{"application/octet-stream", "jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtensionFor(tt.contentType))
		})
	}
}

func TestLocalStore_PutOverwritesSamePath(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStore(root, "http://localhost:8080/uploads")

	tick := time.Unix(0, 1000)
	store.now = func() time.Time {
		tick = tick.Add(time.Nanosecond)
		return tick
	}

	ctx := context.Background()
	path := AnswerImagePath("attempt-1", 1, "png")

	first, err := store.Put(ctx, path, bytes.NewReader([]byte("first")), 5, "image/png")
	require.NoError(t, err)
	second, err := store.Put(ctx, path, bytes.NewReader([]byte("second")), 6, "image/png")
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(root, "attempts", "attempt-1", "1.png"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))

	entries, err := os.ReadDir(filepath.Join(root, "attempts", "attempt-1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	assert.NotEqual(t, first, second)
	u, err := url.Parse(second)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/attempts/attempt-1/1.png", u.Path)
	assert.NotEmpty(t, u.Query().Get("v"))
}

func TestLocalStore_RejectsTraversal(t *testing.T) {
	store := NewLocalStore(t.TempDir(), "http://localhost/uploads")
	_, err := store.Put(context.Background(), "../escape.png", bytes.NewReader(nil), 0, "image/png")
	assert.Error(t, err)
}

func TestLocalStore_DeleteMissingIsNoop(t *testing.T) {
	store := NewLocalStore(t.TempDir(), "http://localhost/uploads")
	assert.NoError(t, store.Delete(context.Background(), "attempts/x/1.jpg"))
}
