// Package editor binds the two editing surfaces (plain textarea and
// rich-text) to a single Markdown string.
//
// Local edits on either surface emit the new Markdown to every listener.
// Programmatic updates through Set replace the content silently, so a
// listener that pushes Markdown back into the editor never sees its own
// update as a fresh edit.
package editor

import (
	"fmt"
	"sync"

	"github.com/gaurav-prasanna/markify/core"
)

// ChangeFunc receives the Markdown after a local edit.
type ChangeFunc func(markdown string)

// Binding holds the current Markdown of an editing session.
type Binding struct {
	extractor  core.Extractor
	normalizer core.Normalizer

	mu        sync.RWMutex
	markdown  string
	listeners []ChangeFunc
}

// New creates a Binding that converts rich-text HTML with the given
// extractor and normalizer.
func New(extractor core.Extractor, normalizer core.Normalizer) *Binding {
	return &Binding{extractor: extractor, normalizer: normalizer}
}

// Markdown returns the current content.
func (b *Binding) Markdown() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.markdown
}

// OnChange registers fn for local edits.
func (b *Binding) OnChange(fn ChangeFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

// Type records a local textarea edit and emits it.
func (b *Binding) Type(markdown string) {
	b.emit(b.store(markdown), markdown)
}

// EditRich records a local rich-text edit. The editor's HTML is cleaned and
// converted to Markdown before it is stored and emitted. On error the
// content is left unchanged.
func (b *Binding) EditRich(html string) (string, error) {
	content, err := b.extractor.Extract(html)
	if err != nil {
		return "", fmt.Errorf("extract: %w", err)
	}
	markdown, err := b.normalizer.Normalize(content)
	if err != nil {
		return "", fmt.Errorf("normalize: %w", err)
	}
	b.emit(b.store(markdown), markdown)
	return markdown, nil
}

// Set replaces the content without emitting a change.
func (b *Binding) Set(markdown string) {
	b.store(markdown)
}

func (b *Binding) store(markdown string) []ChangeFunc {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.markdown = markdown
	return append([]ChangeFunc(nil), b.listeners...)
}

// emit runs outside the lock so a listener may call Set.
func (b *Binding) emit(listeners []ChangeFunc, markdown string) {
	for _, fn := range listeners {
		fn(markdown)
	}
}
