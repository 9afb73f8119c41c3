package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalStoreCreatesDir(t *testing.T) {
	root := filepath.Join(t.TempDir(), "uploads")
	sink := NewLocal(root)

	loc, err := sink.Store(context.Background(), strings.NewReader("png bytes"), 9, "image/png", "abc.png")
	require.NoError(t, err)
	require.Equal(t, "/uploads/abc.png", loc)

	cnt, err := os.ReadFile(filepath.Join(root, "abc.png"))
	require.NoError(t, err)
	require.Equal(t, "png bytes", string(cnt))
}

func TestLocalStoreExistingDir(t *testing.T) {
	root := t.TempDir()
	sink := NewLocal(root)

	_, err := sink.Store(context.Background(), strings.NewReader("a"), 1, "", "a.jpg")
	require.NoError(t, err)
	_, err = sink.Store(context.Background(), strings.NewReader("b"), 1, "", "b.jpg")
	require.NoError(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestLocalStoreIsNotRecursive(t *testing.T) {
	root := filepath.Join(t.TempDir(), "missing", "uploads")
	sink := NewLocal(root)

	_, err := sink.Store(context.Background(), strings.NewReader("a"), 1, "", "a.jpg")
	require.Error(t, err)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	sink := NewLocal(t.TempDir())

	for _, id := range []string{"", "..", "../etc/passwd", `a\b.png`} {
		_, err := sink.Store(context.Background(), strings.NewReader("a"), 1, "", id)
		require.Error(t, err, id)
	}
}

func TestLocalStoreCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocal(t.TempDir()).Store(ctx, strings.NewReader("a"), 1, "", "a.jpg")
	require.ErrorIs(t, err, context.Canceled)
}
