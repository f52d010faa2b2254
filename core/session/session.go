// Package session owns the state of one editing session: the Markdown being
// edited and the style config applied to it. Both live for as long as the
// session does and are never persisted here.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gaurav-prasanna/markify/core"
	"github.com/gaurav-prasanna/markify/core/container"
	"github.com/gaurav-prasanna/markify/core/editor"
	"github.com/gaurav-prasanna/markify/core/style"
)

// Session holds the Markdown binding and the active style config.
type Session struct {
	container *container.Container
	binding   *editor.Binding

	mu    sync.RWMutex
	style style.Config
}

// New creates a session starting from cfg and markdown. markdown is loaded
// with Set, so it does not count as an edit.
func New(c *container.Container, b *editor.Binding, cfg style.Config, markdown string) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid style: %w", err)
	}
	b.Set(markdown)
	return &Session{container: c, binding: b, style: cfg}, nil
}

// Binding returns the editor binding.
func (s *Session) Binding() *editor.Binding {
	return s.binding
}

// Markdown returns the current Markdown.
func (s *Session) Markdown() string {
	return s.binding.Markdown()
}

// Stats are the counters shown under the editor.
type Stats struct {
	Words int `json:"words"`
	Lines int `json:"lines"`
}

// Count returns the stats of md. Every string has at least one line.
func Count(md string) Stats {
	return Stats{
		Words: len(strings.Fields(md)),
		Lines: strings.Count(md, "\n") + 1,
	}
}

// Stats counts the current Markdown.
func (s *Session) Stats() Stats {
	return Count(s.Markdown())
}

// Style returns the active style config.
func (s *Session) Style() style.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.style
}

// SetStyle replaces the style config wholesale. An invalid config is
// rejected and the previous one stays active.
func (s *Session) SetStyle(cfg style.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid style: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.style = cfg
	return nil
}

// Preview renders the current content for a desktop or a mobile viewport.
func (s *Session) Preview(mobile bool) (*container.Document, error) {
	return s.container.Build(s.Markdown(), s.Style(), mobile)
}

// Snapshot captures the Markdown, the style and the desktop rendering at
// this instant. Edits made afterwards do not reach the snapshot.
func (s *Session) Snapshot() (core.Snapshot, error) {
	markdown, cfg := s.Markdown(), s.Style()
	doc, err := s.container.Build(markdown, cfg, false)
	if err != nil {
		return core.Snapshot{}, err
	}
	return core.Snapshot{Markdown: markdown, Style: cfg, Document: doc}, nil
}
