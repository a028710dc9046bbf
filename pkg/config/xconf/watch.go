package xconf

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchCallback 文件变更回调。err 表示重载是否成功。
type WatchCallback func(cfg Config, err error)

// Watcher 配置文件监视器，监控变更并自动重载。
type Watcher struct {
	cfg      *koanfConfig
	watcher  *fsnotify.Watcher
	callback WatchCallback
	debounce time.Duration
	ctx      context.Context
	cancel   context.CancelFunc

	mu      sync.Mutex
	running bool
	timer   *time.Timer
}

// WatchOption 监视器选项。
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
}

// WithDebounce 设置防抖时间：窗口内的多次变更只触发一次重载。
// 默认 100ms。
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// Watch 创建配置文件监视器。
//
// 只能监视从文件创建的 Config；从字节创建的返回 ErrNotReloadable。
// 返回的 Watcher 需调用 Start/StartAsync 开始监视，Stop 停止。
func Watch(cfg Config, callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	kc, ok := cfg.(*koanfConfig)
	if !ok {
		return nil, fmt.Errorf("xconf: unsupported config type %T", cfg)
	}
	if kc.isBytes || kc.path == "" {
		return nil, ErrNotReloadable
	}

	options := &watchOptions{debounce: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(options)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xconf: failed to create watcher: %w", err)
	}

	// 监视配置文件所在目录而非文件本身：编辑器保存可能先删除再创建，
	// 直接监视文件会丢失后续事件。
	dir := filepath.Dir(kc.path)
	if err := fsWatcher.Add(dir); err != nil {
		closeErr := fsWatcher.Close()
		return nil, errors.Join(
			fmt.Errorf("xconf: failed to watch directory %s: %w", dir, err),
			closeErr,
		)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Watcher{
		cfg:      kc,
		watcher:  fsWatcher,
		callback: callback,
		debounce: options.debounce,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start 启动监视。此方法阻塞，通常在 goroutine 中调用。
func (w *Watcher) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.run()
}

// StartAsync 在后台 goroutine 中启动监视，立即返回。
func (w *Watcher) StartAsync() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	go w.run()
}

// Stop 停止监视。
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	// 停止防抖定时器，防止 Stop 后仍触发回调
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}

	w.cancel()
	w.running = false
	return w.watcher.Close()
}

func (w *Watcher) run() {
	filename := filepath.Base(w.cfg.path)

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event, filename)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if w.callback != nil {
				w.callback(w.cfg, fmt.Errorf("xconf: watch error: %w", err))
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event, filename string) {
	if filepath.Base(event.Name) != filename {
		return
	}

	// Write: 直接修改；Create: 部分编辑器新建；Rename: 原子写入（写临时文件后 rename）
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.ctx.Done():
			return
		default:
		}

		err := w.cfg.Reload()
		if w.callback != nil {
			w.callback(w.cfg, err)
		}
	})
}
