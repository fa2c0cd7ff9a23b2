// FILE: scray/properties/watch.go
package properties

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Notifications sent on watch channels besides changed property names.
const (
	EventFileDeleted        = "file_deleted"
	EventPermissionsChanged = "permissions_changed"
	EventReloadErrorPrefix  = "reload_error:"
)

// WatchOptions configures file watching behavior
type WatchOptions struct {
	// PollInterval for file stat checks (minimum 100ms)
	PollInterval time.Duration

	// Debounce duration to avoid rapid reloads
	Debounce time.Duration

	// MaxWatchers limits concurrent watch channels
	MaxWatchers int

	// VerifyPermissions skips reloads when group/world permission bits change
	VerifyPermissions bool

	// Notify also subscribes to filesystem events for the file's directory,
	// so changes are picked up before the next poll. Polling continues as
	// the fallback.
	Notify bool
}

// DefaultWatchOptions returns sensible defaults for file watching
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		PollInterval:      DefaultPollInterval,
		Debounce:          DefaultDebounce,
		MaxWatchers:       DefaultMaxWatchers,
		VerifyPermissions: true,
	}
}

// watcher polls one file and reloads its store on change
type watcher struct {
	mu               sync.RWMutex
	ctx              context.Context
	cancel           context.CancelFunc
	opts             WatchOptions
	lastModTime      time.Time
	lastSize         int64
	lastMode         os.FileMode
	watching         atomic.Bool
	reloadInProgress atomic.Bool
	subscribers      map[int64]chan string
	subscriberID     atomic.Int64
	debounceTimer    *time.Timer
	fsw              *fsnotify.Watcher
}

// Watch starts polling the file, if not already running, and returns a
// channel receiving the names of properties whose values changed on reload.
// A registry holding this store sees reloaded values on the next lookup.
func (f *FileStore) Watch(opts WatchOptions) <-chan string {
	if opts.PollInterval < MinPollInterval {
		opts.PollInterval = MinPollInterval
	}
	if opts.Debounce < 0 {
		opts.Debounce = 0
	}
	if opts.MaxWatchers <= 0 {
		opts.MaxWatchers = DefaultMaxWatchers
	}

	f.mu.Lock()
	if f.watcher == nil {
		ctx, cancel := context.WithCancel(context.Background())
		w := &watcher{
			ctx:         ctx,
			cancel:      cancel,
			opts:        opts,
			subscribers: make(map[int64]chan string),
		}
		if info, err := os.Stat(f.path); err == nil {
			w.lastModTime = info.ModTime()
			w.lastSize = info.Size()
			w.lastMode = info.Mode()
		}
		if opts.Notify {
			w.fsw = newNotifier(f.path)
		}
		f.watcher = w
		w.watching.Store(true)
		go w.watchLoop(f)
	}
	w := f.watcher
	f.mu.Unlock()

	return w.subscribe()
}

// StopWatch stops polling and closes all watch channels.
func (f *FileStore) StopWatch() {
	f.mu.Lock()
	w := f.watcher
	f.watcher = nil
	f.mu.Unlock()

	if w != nil {
		w.stop()
	}
}

// IsWatching returns true if the file is being polled
func (f *FileStore) IsWatching() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.watcher != nil && f.watcher.watching.Load()
}

// watchLoop is the main file watching loop
func (w *watcher) watchLoop(f *FileStore) {
	defer w.watching.Store(false)

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	var events <-chan fsnotify.Event
	var errs <-chan error
	if w.fsw != nil {
		events = w.fsw.Events
		errs = w.fsw.Errors
	}
	target := filepath.Clean(f.path)

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.checkAndReload(f)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) == target {
				w.checkAndReload(f)
			}
		case _, ok := <-errs:
			// Polling still covers the file
			if !ok {
				errs = nil
			}
		}
	}
}

// newNotifier watches the directory holding path. Editors often replace
// files by rename, which a watch on the file itself would miss. Returns nil
// if the platform watcher is unavailable.
func newNotifier(path string) *fsnotify.Watcher {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil
	}
	return fsw
}

// checkAndReload checks if file changed and triggers reload
func (w *watcher) checkAndReload(f *FileStore) {
	info, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			w.notify(EventFileDeleted)
		}
		return
	}

	// Verify permissions haven't changed suspiciously
	if w.opts.VerifyPermissions && w.lastMode != 0 && info.Mode() != w.lastMode {
		if (info.Mode() & 0077) != (w.lastMode & 0077) {
			w.lastMode = info.Mode()
			w.notify(EventPermissionsChanged)
			return
		}
	}

	if info.ModTime().Equal(w.lastModTime) && info.Size() == w.lastSize {
		return
	}
	w.lastModTime = info.ModTime()
	w.lastSize = info.Size()
	w.lastMode = info.Mode()

	// Debounce rapid changes
	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.opts.Debounce, func() {
		w.performReload(f)
	})
	w.mu.Unlock()
}

// performReload reloads the file and notifies changed names
func (w *watcher) performReload(f *FileStore) {
	if w.ctx.Err() != nil {
		return
	}
	// Prevent concurrent reloads
	if !w.reloadInProgress.CompareAndSwap(false, true) {
		return
	}
	defer w.reloadInProgress.Store(false)

	oldValues := f.Values()
	if err := f.Reload(); err != nil {
		w.notify(fmt.Sprintf("%s%v", EventReloadErrorPrefix, err))
		return
	}
	newValues := f.Values()

	for name, newVal := range newValues {
		if oldVal, existed := oldValues[name]; !existed || !reflect.DeepEqual(oldVal, newVal) {
			w.notify(name)
		}
	}
	for name := range oldValues {
		if _, exists := newValues[name]; !exists {
			w.notify(name)
		}
	}
}

// subscribe creates a new subscriber channel
func (w *watcher) subscribe() <-chan string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.subscribers) >= w.opts.MaxWatchers || w.ctx.Err() != nil {
		// Return closed channel to prevent resource exhaustion
		ch := make(chan string)
		close(ch)
		return ch
	}

	// Buffered so a slow subscriber does not block reloads
	ch := make(chan string, 10)
	id := w.subscriberID.Add(1)
	w.subscribers[id] = ch

	go func() {
		<-w.ctx.Done()
		w.mu.Lock()
		delete(w.subscribers, id)
		close(ch)
		w.mu.Unlock()
	}()

	return ch
}

// notify sends a notification to all subscribers without blocking
func (w *watcher) notify(event string) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, ch := range w.subscribers {
		select {
		case ch <- event:
		default:
			// Channel full, drop
		}
	}
}

// stop terminates the watcher
func (w *watcher) stop() {
	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.mu.Unlock()

	w.cancel()
	if w.fsw != nil {
		w.fsw.Close()
	}

	// Wait for watch loop to exit with timeout
	deadline := time.Now().Add(ShutdownTimeout)
	for w.watching.Load() && time.Now().Before(deadline) {
		time.Sleep(SpinWaitInterval)
	}
}
