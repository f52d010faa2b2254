package server

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/gaurav-prasanna/markify/core"
)

// DownloadPrefix is the route finished artifacts are served under.
const DownloadPrefix = "/downloads/"

// Downloads holds finished artifacts until they are fetched once. It
// implements core.Trigger: delivering registers the artifact and returns
// its one-shot URL.
type Downloads struct {
	mu    sync.Mutex
	items map[string]*core.Artifact
}

// NewDownloads creates an empty registry.
func NewDownloads() *Downloads {
	return &Downloads{items: make(map[string]*core.Artifact)}
}

// Deliver registers a under a fresh id and returns its URL.
func (d *Downloads) Deliver(ctx context.Context, a *core.Artifact) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	d.mu.Lock()
	d.items[id] = a
	d.mu.Unlock()
	return DownloadPrefix + id, nil
}

// Stat reports the artifact behind url without consuming it.
func (d *Downloads) Stat(url string) (*core.Artifact, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.items[strings.TrimPrefix(url, DownloadPrefix)]
	return a, ok
}

// Take returns the artifact for id and revokes it.
func (d *Downloads) Take(id string) (*core.Artifact, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.items[id]
	delete(d.items, id)
	return a, ok
}

// Revoke drops id without serving it.
func (d *Downloads) Revoke(id string) {
	d.mu.Lock()
	delete(d.items, id)
	d.mu.Unlock()
}

// Len returns the number of pending downloads.
func (d *Downloads) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}
