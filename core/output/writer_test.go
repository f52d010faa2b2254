package output

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/markify/core"
)

func TestDeliver(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := NewFs(fs, "/out")
	require.NoError(t, err)

	a := &core.Artifact{Data: []byte("one"), Filename: "report.pdf"}

	path, err := w.Deliver(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/out", "report.pdf"), path)

	a.Data = []byte("two")
	path, err = w.Deliver(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/out", "report (1).pdf"), path)

	first, err := afero.ReadFile(fs, "/out/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "one", string(first))

	second, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(second))

	entries, err := afero.ReadDir(fs, "/out")
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestDeliverStripsDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	w, err := NewFs(fs, "/out")
	require.NoError(t, err)

	path, err := w.Deliver(context.Background(), &core.Artifact{Data: []byte("x"), Filename: "../../etc/notes.md"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/out", "notes.md"), path)
}

func TestDeliverCancelled(t *testing.T) {
	w, err := NewFs(afero.NewMemMapFs(), "/out")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.Deliver(ctx, &core.Artifact{Filename: "a.md"})
	assert.ErrorIs(t, err, context.Canceled)
}
