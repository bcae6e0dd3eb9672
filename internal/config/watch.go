package config

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"time"
)

const defaultRosterPoll = 30 * time.Second

// RosterWatcher polls roster.yaml and hands every new, valid revision to onUpdate.
// A revision is new when its content differs from the last one seen; touching the
// file without editing it does not trigger a resync.
type RosterWatcher struct {
	path     string
	onUpdate func(*RosterConfig)
	onError  func(error)

	modTime time.Time
	size    int64
	digest  [sha256.Size]byte
	missing bool
}

// NewRosterWatcher creates a watcher for path. Either callback may be nil.
func NewRosterWatcher(path string, onUpdate func(*RosterConfig), onError func(error)) *RosterWatcher {
	if path == "" {
		path = DefaultRosterPath
	}
	return &RosterWatcher{path: path, onUpdate: onUpdate, onError: onError}
}

// Load reads the current roster and delivers it. Unlike Poll it returns errors
// instead of reporting them, so a broken roster at startup is fatal to the caller.
func (w *RosterWatcher) Load() error {
	info, err := os.Stat(w.path)
	if err != nil {
		return fmt.Errorf("stat roster config: %w", err)
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("read roster config: %w", err)
	}
	roster, err := ParseRosterConfig(data)
	if err != nil {
		return err
	}

	w.remember(info, data)
	w.deliver(roster)
	return nil
}

// Poll checks the file once and reports whether a new roster was delivered.
// A vanished file is reported once until it reappears. An invalid revision is
// reported once and the previous roster stays in effect.
func (w *RosterWatcher) Poll() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		if !w.missing {
			w.missing = true
			w.report(fmt.Errorf("stat roster config: %w", err))
		}
		return false
	}
	w.missing = false

	if info.ModTime().Equal(w.modTime) && info.Size() == w.size {
		return false
	}

	data, err := os.ReadFile(w.path)
	if err != nil {
		w.report(fmt.Errorf("read roster config: %w", err))
		return false
	}
	if sha256.Sum256(data) == w.digest {
		w.modTime, w.size = info.ModTime(), info.Size()
		return false
	}

	w.remember(info, data)
	roster, err := ParseRosterConfig(data)
	if err != nil {
		w.report(err)
		return false
	}
	w.deliver(roster)
	return true
}

// Run polls every interval until ctx is done.
func (w *RosterWatcher) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultRosterPoll
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Poll()
		}
	}
}

func (w *RosterWatcher) remember(info os.FileInfo, data []byte) {
	w.modTime = info.ModTime()
	w.size = info.Size()
	w.digest = sha256.Sum256(data)
}

func (w *RosterWatcher) deliver(roster *RosterConfig) {
	if w.onUpdate != nil {
		w.onUpdate(roster)
	}
}

func (w *RosterWatcher) report(err error) {
	if w.onError != nil {
		w.onError(err)
	}
}

// WatchRoster loads the roster once, then keeps polling it in the background
// until ctx is done. Reload failures go to onError.
func WatchRoster(ctx context.Context, path string, interval time.Duration, onUpdate func(*RosterConfig), onError func(error)) error {
	w := NewRosterWatcher(path, onUpdate, onError)
	if err := w.Load(); err != nil {
		return err
	}
	go w.Run(ctx, interval)
	return nil
}
