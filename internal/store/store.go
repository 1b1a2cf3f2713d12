// Package store manages ephemeral on-disk artifacts. Names combine a random
// token with a sanitized suffix, so any holder of a name may retrieve the
// artifact until the TTL sweep evicts it.
package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"docforge/internal/common"

	"github.com/google/uuid"
)

// Artifact describes one stored output file.
type Artifact struct {
	Name      string
	Path      string
	Size      int64
	CreatedAt time.Time
}

// Store is safe for concurrent use: names are unique per Put and the sweep
// only touches entries older than the TTL margin.
type Store struct {
	dir      string
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger

	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a store rooted at dir.
func New(dir string, ttl, interval time.Duration, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, common.DefaultFilePermissions); err != nil {
		return nil, fmt.Errorf("failed to create artifact dir: %w", err)
	}
	return &Store{
		dir:      dir,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		done:     make(chan struct{}),
	}, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SanitizeName reduces a user-supplied filename to a safe suffix. Path
// separators and traversal sequences never survive.
func SanitizeName(name string) string {
	name = filepath.Base(name)
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")
	if len(name) > 64 {
		name = name[len(name)-64:]
	}
	if name == "" {
		name = "file"
	}
	return name
}

// Put writes data under a collision-free name derived from suggestedName.
func (s *Store) Put(data []byte, suggestedName string) (*Artifact, error) {
	name := uuid.New().String() + "_" + SanitizeName(suggestedName)
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write artifact: %w", err)
	}

	return &Artifact{
		Name:      name,
		Path:      path,
		Size:      int64(len(data)),
		CreatedAt: s.now(),
	}, nil
}

// Get returns the bytes of a stored artifact.
func (s *Store) Get(name string) ([]byte, error) {
	// Reject anything that is not a bare generated name.
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, common.ErrArtifactNotFound
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("failed to read artifact: %w", err)
	}
	return data, nil
}

// Sweep deletes every artifact older than maxAge. Deletion errors are logged
// and never abort the pass.
func (s *Store) Sweep(maxAge time.Duration) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("Artifact sweep failed to list directory", "error", err)
		return
	}

	cutoff := s.now().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			s.logger.Warn("Failed to delete stale artifact", "name", entry.Name(), "error", err)
			continue
		}
		s.logger.Debug("Swept stale artifact", "name", entry.Name(), "age", s.now().Sub(info.ModTime()))
	}
}

// Start launches the background sweep loop. Stop terminates it; tests drive
// Sweep directly instead of waiting on the clock.
func (s *Store) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep(s.ttl)
			case <-s.done:
				return
			}
		}
	}()
}

// Stop terminates the sweep loop and waits for it to exit.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}
