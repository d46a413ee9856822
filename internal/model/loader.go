package model

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// OpenFunc opens the weights file at path.
type OpenFunc func(path string) (Restorer, error)

// Status reports the outcome of the load attempt.
type Status struct {
	// Attempted is false until the first Load call has finished.
	Attempted bool `json:"attempted"`

	// Loaded is true when a restorer is available.
	Loaded bool `json:"loaded"`

	// Path is the weights file the loader looks for.
	Path string `json:"path"`

	// Name identifies the loaded network; empty when not loaded.
	Name string `json:"name,omitempty"`

	// Error describes why loading failed; empty when the file is simply
	// absent or the load succeeded.
	Error string `json:"error,omitempty"`

	// LoadedAt is when the restorer became available.
	LoadedAt *time.Time `json:"loaded_at,omitempty"`
}

// Loader acquires the restorer exactly once per process.
//
// A missing weights file and a failed open both leave the restorer unset;
// the failure is logged and surfaced through Status, never returned to
// request handlers.
type Loader struct {
	path string
	open OpenFunc
	log  logrus.FieldLogger

	once sync.Once

	mu       sync.RWMutex
	status   Status
	restorer Restorer
}

// NewLoader creates a loader for the weights file at path.
func NewLoader(path string, open OpenFunc, log logrus.FieldLogger) *Loader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Loader{
		path:   path,
		open:   open,
		log:    log.WithField("component", "model-loader"),
		status: Status{Path: path},
	}
}

// Load returns the restorer, loading it on the first call. It returns nil
// when no model is available.
func (l *Loader) Load() Restorer {
	l.once.Do(l.load)

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.restorer
}

// Status returns a snapshot of the load outcome.
func (l *Loader) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// Close releases the restorer. Later Load calls return nil.
func (l *Loader) Close() error {
	// Make sure a load in flight finishes before tearing down.
	l.once.Do(func() {})

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.restorer == nil {
		return nil
	}
	err := l.restorer.Close()
	l.restorer = nil
	l.status.Loaded = false
	l.status.Name = ""
	l.status.LoadedAt = nil
	return err
}

func (l *Loader) load() {
	status := Status{Attempted: true, Path: l.path}
	restorer, err := l.acquire()

	switch {
	case err != nil:
		status.Error = err.Error()
		l.log.WithError(err).WithField("path", l.path).Error("Model load failed, using fallback enhancement")
	case restorer == nil:
		l.log.WithField("path", l.path).Warn("Model file not found, using fallback enhancement")
	default:
		now := time.Now()
		status.Loaded = true
		status.Name = restorer.Name()
		status.LoadedAt = &now
		l.log.WithFields(logrus.Fields{
			"path":  l.path,
			"model": restorer.Name(),
		}).Info("Model loaded")
	}

	l.mu.Lock()
	l.restorer = restorer
	l.status = status
	l.mu.Unlock()
}

// acquire returns (nil, nil) when the weights file does not exist.
func (l *Loader) acquire() (Restorer, error) {
	info, err := os.Stat(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat model file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("model path %s is a directory", l.path)
	}
	if l.open == nil {
		return nil, errors.New("no model opener configured")
	}

	restorer, err := l.open(l.path)
	if err != nil {
		return nil, err
	}
	return restorer, nil
}
