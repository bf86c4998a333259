// Package prompts manages the LLM prompt templates. Templates live in a YAML
// file addressed by dotted keys (e.g. "chat_summary.system") and carry
// {placeholder} variables filled at render time. Built-in defaults cover every
// key the pipeline uses, so the store works without a file on disk.
package prompts

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const reloadDebounce = 400 * time.Millisecond

// Store resolves prompt templates by dotted key. It is safe for concurrent use.
type Store struct {
	path   string
	logger *zap.Logger

	mu        sync.RWMutex
	templates map[string]string

	watcher  *fsnotify.Watcher
	reload   *time.Timer
	stopOnce sync.Once
	done     chan struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a logger for debug output (reloads, parse failures).
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a store backed by the YAML file at path (may be empty, in
// which case only the built-in defaults are served). A missing file is not an
// error; a present but malformed file is.
func NewStore(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:      path,
		logger:    zap.NewNop(),
		templates: defaultTemplates(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if path != "" {
		if err := s.loadFile(); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}
	return s, nil
}

// Get returns the template for the dotted key with {placeholder} variables
// substituted from vars. Unknown placeholders are left in place.
func (s *Store) Get(key string, vars map[string]string) (string, error) {
	s.mu.RLock()
	tmpl, ok := s.templates[key]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown prompt template %q", key)
	}
	for name, value := range vars {
		tmpl = strings.ReplaceAll(tmpl, "{"+name+"}", value)
	}
	return tmpl, nil
}

// Reload re-reads the template file, replacing any previously loaded
// overrides. Keys absent from the file fall back to the built-in defaults.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	if err := s.loadFile(); err != nil {
		if os.IsNotExist(err) {
			s.mu.Lock()
			s.templates = defaultTemplates()
			s.mu.Unlock()
			return nil
		}
		return err
	}
	return nil
}

func (s *Store) loadFile() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse prompts file: %w", err)
	}
	templates := defaultTemplates()
	flatten("", doc, templates)

	s.mu.Lock()
	s.templates = templates
	s.mu.Unlock()
	s.logger.Debug("prompt templates loaded", zap.String("path", s.path), zap.Int("count", len(templates)))
	return nil
}

// flatten walks nested YAML maps and records leaf strings under dotted keys.
func flatten(prefix string, value any, out map[string]string) {
	switch v := value.(type) {
	case map[string]any:
		for key, child := range v {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			flatten(next, child, out)
		}
	case string:
		if prefix != "" {
			out[prefix] = v
		}
	}
}

// Watch reloads templates when the backing file changes. It runs until ctx
// is cancelled or Close is called. No-op when the store has no file.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(s.path); err != nil {
		_ = watcher.Close()
		return err
	}
	s.watcher = watcher
	go s.run(ctx)
	return nil
}

func (s *Store) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s.scheduleReload()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				s.logger.Debug("prompts watcher error", zap.Error(err))
			}
		}
	}
}

// scheduleReload debounces bursts of write events into one reload.
func (s *Store) scheduleReload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reload != nil {
		s.reload.Stop()
	}
	s.reload = time.AfterFunc(reloadDebounce, func() {
		if err := s.Reload(); err != nil {
			s.logger.Warn("prompt reload failed", zap.String("path", s.path), zap.Error(err))
			return
		}
		s.logger.Info("prompt templates reloaded", zap.String("path", s.path))
	})
}

// Close stops the file watcher if one is running.
func (s *Store) Close() {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.watcher != nil {
			_ = s.watcher.Close()
		}
	})
}
