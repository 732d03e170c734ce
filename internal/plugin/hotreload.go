package plugin

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	MinReloadDelaySeconds = 1
	MaxReloadDelaySeconds = 120
	pollInterval          = time.Second
)

// Watcher polls a dynamic unit's directory for .so changes and
// triggers a debounced reload of that unit, grounded on the retrieved
// dispatcher's ticker-driven periodic worker shape. Every change seen
// within the debounce window resets the timer, so a burst of writes
// (a copy-then-rename deploy, for example) coalesces into exactly one
// reload instead of one per file touched.
type Watcher struct {
	registry *Registry
	id       string
	dir      string
	delay    time.Duration
	log      *zap.Logger

	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	lastMod map[string]time.Time
}

// NewWatcher validates reloadDelaySec against the 1..120 range and
// returns a Watcher for the unit registered under id.
func NewWatcher(registry *Registry, id, dir string, reloadDelaySec int, log *zap.Logger) (*Watcher, error) {
	if reloadDelaySec < MinReloadDelaySeconds || reloadDelaySec > MaxReloadDelaySeconds {
		return nil, fmt.Errorf("plugin: reload_delay_sec must be in %d..%d, got %d",
			MinReloadDelaySeconds, MaxReloadDelaySeconds, reloadDelaySec)
	}
	return &Watcher{
		registry: registry,
		id:       id,
		dir:      dir,
		delay:    time.Duration(reloadDelaySec) * time.Second,
		log:      log,
		stopCh:   make(chan struct{}),
		lastMod:  make(map[string]time.Time),
	}, nil
}

// Run starts the polling loop in its own goroutine; an initial scan
// primes lastMod so the first poll after startup never fires a reload.
func (w *Watcher) Run() {
	w.scan()
	w.wg.Add(1)
	go w.loop()
}

// Stop ends the polling loop and waits for it to exit.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var pendingSince time.Time
	dirty := false

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			if w.scan() {
				pendingSince = time.Now()
				dirty = true
			}
			if dirty && time.Since(pendingSince) >= w.delay {
				dirty = false
				if err := w.registry.ReloadUnit(w.id); err != nil {
					w.log.Error("hot reload failed", zap.String("unit", w.id), zap.Error(err))
				}
			}
		}
	}
}

// scan reports whether any .so in the watched directory appeared,
// disappeared, or changed mtime since the previous scan.
func (w *Watcher) scan() bool {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.log.Warn("plugin watcher: read dir failed", zap.String("dir", w.dir), zap.Error(err))
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	changed := false
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".so") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		seen[entry.Name()] = true
		if prev, ok := w.lastMod[entry.Name()]; !ok || !prev.Equal(info.ModTime()) {
			w.lastMod[entry.Name()] = info.ModTime()
			changed = true
		}
	}
	for name := range w.lastMod {
		if !seen[name] {
			delete(w.lastMod, name)
			changed = true
		}
	}
	return changed
}
