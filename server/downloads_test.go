package server

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/markify/core"
)

func TestDownloads(t *testing.T) {
	d := NewDownloads()
	a := &core.Artifact{Data: []byte("x"), Filename: "a.md"}

	url, err := d.Deliver(context.Background(), a)
	require.NoError(t, err)
	id := strings.TrimPrefix(url, DownloadPrefix)

	got, ok := d.Stat(url)
	require.True(t, ok)
	assert.Same(t, a, got)

	got, ok = d.Take(id)
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = d.Take(id)
	assert.False(t, ok)
}

func TestDownloadsRevoke(t *testing.T) {
	d := NewDownloads()
	url, err := d.Deliver(context.Background(), &core.Artifact{})
	require.NoError(t, err)
	other, err := d.Deliver(context.Background(), &core.Artifact{})
	require.NoError(t, err)
	assert.NotEqual(t, url, other)

	d.Revoke(strings.TrimPrefix(url, DownloadPrefix))
	_, ok := d.Stat(url)
	assert.False(t, ok)
	assert.Equal(t, 1, d.Len())
}
