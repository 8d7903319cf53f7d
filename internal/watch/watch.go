// Package watch regenerates sites when their inputs change: the
// property store file and the template catalog are monitored through
// fsnotify with debouncing, and an optional fixed interval regenerates
// periodically via gocron.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/homeshow/internal/config"
	"git.home.luguber.info/inful/homeshow/internal/logfields"
)

const defaultDebounce = 2 * time.Second

// Trigger is invoked (from the watcher goroutine) whenever a
// regeneration should run. reason is "change" or "schedule".
type Trigger func(reason string)

// Watcher monitors input paths and fires the trigger, debounced.
type Watcher struct {
	paths    []string
	debounce time.Duration
	schedule time.Duration
	trigger  Trigger
	log      *slog.Logger

	watcher   *fsnotify.Watcher
	scheduler gocron.Scheduler
}

// New creates a watcher over the given paths. Files are watched via
// their parent directory, which survives editors that replace files by
// rename.
func New(cfg config.WatchConfig, paths []string, trigger Trigger, log *slog.Logger) (*Watcher, error) {
	debounce, err := time.ParseDuration(cfg.Debounce)
	if err != nil || debounce <= 0 {
		debounce = defaultDebounce
	}
	var schedule time.Duration
	if cfg.Schedule != "" {
		schedule, err = time.ParseDuration(cfg.Schedule)
		if err != nil {
			return nil, fmt.Errorf("invalid watch schedule %q: %w", cfg.Schedule, err)
		}
	}

	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve watch path %s: %w", p, err)
		}
		abs = append(abs, a)
	}

	return &Watcher{
		paths:    abs,
		debounce: debounce,
		schedule: schedule,
		trigger:  trigger,
		log:      log,
	}, nil
}

// Run blocks, dispatching triggers until the context is done.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	w.watcher = fw
	defer fw.Close()

	watched := map[string]struct{}{}
	for _, p := range w.paths {
		// Directories are watched directly; files via their parent,
		// which survives editors that replace files by rename.
		dir := p
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			dir = filepath.Dir(p)
		}
		if _, ok := watched[dir]; ok {
			continue
		}
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		watched[dir] = struct{}{}
		w.log.Info("Watching for changes", logfields.Path(dir))
	}

	if w.schedule > 0 {
		s, err := gocron.NewScheduler()
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		w.scheduler = s
		if _, err := s.NewJob(
			gocron.DurationJob(w.schedule),
			gocron.NewTask(func() { w.trigger("schedule") }),
			gocron.WithName("periodic-regenerate"),
		); err != nil {
			return fmt.Errorf("schedule periodic regeneration: %w", err)
		}
		s.Start()
		defer func() {
			if err := s.Shutdown(); err != nil {
				w.log.Error("Error stopping scheduler", logfields.Error(err))
			}
		}()
		w.log.Info("Periodic regeneration enabled", slog.Duration("interval", w.schedule))
	}

	var debounce *time.Timer
	var debounceC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.log.Debug("Change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			if debounce == nil {
				debounce = time.NewTimer(w.debounce)
				debounceC = debounce.C
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(w.debounce)
			}
		case <-debounceC:
			debounce = nil
			debounceC = nil
			w.trigger("change")
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("File watcher error", logfields.Error(err))
		}
	}
}

// relevant filters events down to writes/creates/renames/removes of a
// watched path or anything beneath a watched directory.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	for _, p := range w.paths {
		if name == p {
			return true
		}
		rel, err := filepath.Rel(p, name)
		if err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
			return true
		}
	}
	return false
}
