package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	res, err := store.Upload(ctx, strings.NewReader("%PDF-1.7"), "templates/t1/form.pdf", "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(8), res.Size)
	assert.Equal(t, "templates/t1/form.pdf", res.ObjectName)

	data, err := ReadAll(ctx, store, "templates/t1/form.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))

	_, err = store.Upload(ctx, strings.NewReader("v2"), "templates/t1/form.pdf", "")
	require.NoError(t, err)
	data, err = ReadAll(ctx, store, "templates/t1/form.pdf")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	require.NoError(t, store.Delete(ctx, "templates/t1/form.pdf"))
	_, err = store.Read(ctx, "templates/t1/form.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.NoError(t, store.Delete(ctx, "templates/t1/form.pdf"), "deleting twice is fine")
}

func TestLocalStoreRejectsEscapingNames(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, name := range []string{"", "../outside.pdf", "a/../../outside.pdf", "/etc/passwd"} {
		_, err := store.Upload(ctx, strings.NewReader("x"), name, "")
		assert.Error(t, err, name)
	}
}

func TestObjectNames(t *testing.T) {
	name := TemplateObjectName("t1", "../../form.pdf")
	assert.True(t, strings.HasPrefix(name, "templates/t1/"))
	assert.True(t, strings.HasSuffix(name, "_form.pdf"))

	assert.Equal(t, "archives/run-1/bundle.zip", ArchiveObjectName("run-1", "bundle.zip"))
	assert.Equal(t, "archives/run-1/file", ArchiveObjectName("run-1", ".."))
}

func TestJanitorSweep(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)

	for _, name := range []string{"archives/old/out.pdf", "archives/new/out.pdf", "templates/t1/form.pdf"} {
		_, err := store.Upload(ctx, strings.NewReader("x"), name, "")
		require.NoError(t, err)
	}
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(root, "archives", "old", "out.pdf"), old, old))
	require.NoError(t, os.Chtimes(filepath.Join(root, "templates", "t1", "form.pdf"), old, old))

	j := NewJanitor(store, 24*time.Hour, time.Hour)
	assert.Equal(t, 1, j.Sweep(time.Now()))

	_, err = os.Stat(filepath.Join(root, "archives", "old"))
	assert.True(t, os.IsNotExist(err), "empty run directory removed")
	_, err = os.Stat(filepath.Join(root, "archives", "new", "out.pdf"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "templates", "t1", "form.pdf"))
	assert.NoError(t, err, "templates are never swept")
}

func TestJanitorStartStop(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	j := NewJanitor(store, time.Hour, time.Hour)
	assert.Equal(t, 0, j.Sweep(time.Now()), "missing archive dir")
	j.Start()
	j.Stop()
	j.Stop()
}
