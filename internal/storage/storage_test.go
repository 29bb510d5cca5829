package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/testutil"
)

func TestLocal_PutDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	l, err := NewLocal(filepath.Join(root, "public"), "/storage/")
	require.NoError(t, err)

	rel, err := l.Put(ctx, "products", ".png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "products/"))
	assert.True(t, strings.HasSuffix(rel, ".png"))

	data, err := os.ReadFile(filepath.Join(root, "public", filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	assert.True(t, testutil.FileExists(t, l.Root, rel))
	assert.Equal(t, "/storage/"+rel, l.URL(rel))

	require.NoError(t, l.Delete(ctx, rel))
	assert.False(t, testutil.FileExists(t, l.Root, rel))

	require.NoError(t, l.Delete(ctx, rel))
}

func TestLocal_RejectsEscapes(t *testing.T) {
	ctx := context.Background()
	l, err := NewLocal(t.TempDir(), "/storage")
	require.NoError(t, err)

	assert.ErrorIs(t, l.Delete(ctx, "../secret"), ErrBadPath)
	assert.ErrorIs(t, l.Delete(ctx, ""), ErrBadPath)
	_, err = l.Put(ctx, "..", ".png", nil)
	assert.ErrorIs(t, err, ErrBadPath)
}
