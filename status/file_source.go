package status

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/xiaoyuanzhu-com/project-chat/log"
)

var fileLogger = log.GetLogger("StatusFile")

// FileSource serves a snapshot from a JSON file instead of the remote
// assistant. Every thread sees the same snapshot. The file is reloaded when
// it changes on disk.
type FileSource struct {
	path string

	mu       sync.RWMutex
	snapshot Snapshot
	loadErr  error

	watcher   *fsnotify.Watcher
	debouncer *debouncer
	onChange  func()
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewFileSource loads path once. A missing or malformed file is not fatal:
// Fetch reports the error until the file is fixed.
func NewFileSource(path string) (*FileSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	s := &FileSource{path: abs, stopChan: make(chan struct{})}
	if err := s.reload(); err != nil {
		fileLogger.Warn().Err(err).Str("path", abs).Msg("status file not loaded")
	}
	return s, nil
}

// Fetch returns the last successfully loaded snapshot
func (s *FileSource) Fetch(_ context.Context, _ string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.loadErr != nil {
		return Snapshot{}, s.loadErr
	}
	return s.snapshot, nil
}

func (s *FileSource) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.setError(fmt.Errorf("read status file: %w", err))
		return err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		err = fmt.Errorf("%w: %s: %v", ErrInvalidSnapshot, s.path, err)
		s.setError(err)
		return err
	}
	snap.Normalize()
	for _, problem := range snap.DropInvalidTasks() {
		fileLogger.Warn().Err(problem).Str("path", s.path).Msg("dropped invalid timeline task")
	}

	s.mu.Lock()
	s.snapshot = snap
	s.loadErr = nil
	s.mu.Unlock()
	return nil
}

func (s *FileSource) setError(err error) {
	s.mu.Lock()
	s.loadErr = err
	s.mu.Unlock()
}

// Watch starts reloading the file on change and calls onChange after each
// reload attempt. The parent directory is watched because editors usually
// replace the file rather than write it in place.
func (s *FileSource) Watch(onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return err
	}

	s.watcher = w
	s.onChange = onChange
	s.debouncer = newDebouncer(DefaultDebounceDelay, func(string) {
		if err := s.reload(); err != nil {
			fileLogger.Warn().Err(err).Msg("status file reload failed")
		} else {
			fileLogger.Info().Str("path", s.path).Msg("status file reloaded")
		}
		if s.onChange != nil {
			s.onChange()
		}
	})

	s.wg.Add(1)
	go s.eventLoop()

	fileLogger.Info().Str("path", s.path).Msg("watching status file")
	return nil
}

func (s *FileSource) eventLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopChan:
			return

		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				s.debouncer.Trigger(s.path)
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			fileLogger.Error().Err(err).Msg("status file watcher error")
		}
	}
}

// Close stops watching
func (s *FileSource) Close() error {
	if s.watcher == nil {
		return nil
	}

	if n := s.debouncer.Pending(); n > 0 {
		fileLogger.Debug().Int("pending", n).Msg("dropping scheduled status file reload")
	}
	s.debouncer.Stop()
	close(s.stopChan)
	err := s.watcher.Close()
	s.wg.Wait()
	s.watcher = nil
	return err
}
