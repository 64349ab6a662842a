// 字符串目录变更监听器。
//
// 以轮询方式检测目录下 YAML 文件的新增、修改与删除，防抖后触发回调，
// 通常用于清空 FSProvider 的缓存。
package locale

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// --- 事件类型 ---

// FileOp 文件操作类型
type FileOp int

const (
	FileOpCreate FileOp = iota
	FileOpWrite
	FileOpRemove
)

// String returns the string representation of FileOp
func (op FileOp) String() string {
	switch op {
	case FileOpCreate:
		return "CREATE"
	case FileOpWrite:
		return "WRITE"
	case FileOpRemove:
		return "REMOVE"
	default:
		return "UNKNOWN"
	}
}

// FileEvent 一次文件变更
type FileEvent struct {
	Path      string    `json:"path"`
	Op        FileOp    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// --- 选项 ---

// WatcherOption configures a Watcher
type WatcherOption func(*Watcher)

// WithPollInterval sets how often the directory is scanned
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithDebounceDelay sets the debounce delay for file events
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithWatcherLogger sets the logger for the watcher
func WithWatcherLogger(logger *zap.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// --- 监听器 ---

// Watcher 轮询一个字符串目录并在 YAML 文件变化时回调
type Watcher struct {
	mu sync.Mutex

	dir           string
	pollInterval  time.Duration
	debounceDelay time.Duration

	running  bool
	stopChan chan struct{}

	callbacks []func([]FileEvent)
	modTimes  map[string]time.Time
	logger    *zap.Logger
}

// NewWatcher creates a watcher over dir
func NewWatcher(dir string, opts ...WatcherOption) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat locale dir %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("locale dir %s is not a directory", dir)
	}

	w := &Watcher{
		dir:           dir,
		pollInterval:  time.Second,
		debounceDelay: 100 * time.Millisecond,
		modTimes:      make(map[string]time.Time),
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.String("component", "locale_watcher"))
	return w, nil
}

// OnChange registers a callback receiving each debounced batch of events
func (w *Watcher) OnChange(callback func([]FileEvent)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start begins polling until ctx is done or Stop is called
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.modTimes = w.scan()
	stop := w.stopChan
	w.mu.Unlock()

	go w.pollLoop(ctx, stop)

	w.logger.Info("locale watcher started",
		zap.String("dir", w.dir),
		zap.Duration("poll_interval", w.pollInterval))
	return nil
}

// Stop stops the watcher
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.stopChan)
	w.running = false
	w.logger.Info("locale watcher stopped")
}

// IsRunning returns whether the watcher is running
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) pollLoop(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	var (
		pending = make(map[string]FileEvent)
		timer   *time.Timer
		fire    <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			evs := w.checkFiles()
			for _, ev := range evs {
				pending[ev.Path] = ev
			}
			if len(evs) > 0 {
				// 仅在本轮发现新变更时重置防抖定时器
				if timer != nil {
					timer.Stop()
				}
				timer = time.NewTimer(w.debounceDelay)
				fire = timer.C
			}
		case <-fire:
			fire = nil
			events := make([]FileEvent, 0, len(pending))
			for _, ev := range pending {
				events = append(events, ev)
			}
			pending = make(map[string]FileEvent)
			w.dispatch(events)
		}
	}
}

// checkFiles 对比当前扫描结果与上次记录
func (w *Watcher) checkFiles() []FileEvent {
	current := w.scan()
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	var events []FileEvent
	for path, mod := range current {
		last, existed := w.modTimes[path]
		switch {
		case !existed:
			events = append(events, FileEvent{Path: path, Op: FileOpCreate, Timestamp: now})
		case mod.After(last):
			events = append(events, FileEvent{Path: path, Op: FileOpWrite, Timestamp: now})
		}
	}
	for path := range w.modTimes {
		if _, ok := current[path]; !ok {
			events = append(events, FileEvent{Path: path, Op: FileOpRemove, Timestamp: now})
		}
	}
	w.modTimes = current
	return events
}

func (w *Watcher) scan() map[string]time.Time {
	out := make(map[string]time.Time)
	_ = filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(path, ".yaml") {
			return nil
		}
		if info, err := d.Info(); err == nil {
			out[path] = info.ModTime()
		}
		return nil
	})
	return out
}

func (w *Watcher) dispatch(events []FileEvent) {
	w.mu.Lock()
	callbacks := make([]func([]FileEvent), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	for _, ev := range events {
		w.logger.Debug("locale file changed",
			zap.String("path", ev.Path),
			zap.String("op", ev.Op.String()))
	}
	for _, cb := range callbacks {
		cb(events)
	}
}
