package render

import (
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"sync"

	"musecrate/logger"

	"github.com/fsnotify/fsnotify"
)

// TemplateRenderer renders HTML pages from a directory of *.html templates.
// The directory is watched with fsnotify so template edits show up without a
// restart.
type TemplateRenderer struct {
	dir     string
	mu      sync.RWMutex
	tpl     *template.Template
	watcher *fsnotify.Watcher
}

// New parses the templates in dir and starts watching it for changes.
func New(dir string) (*TemplateRenderer, error) {
	r := &TemplateRenderer{dir: dir}
	if err := r.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create template watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch template dir %s: %w", dir, err)
	}
	r.watcher = watcher

	go r.watch()
	return r, nil
}

// Render writes the named template with the given context.
func (r *TemplateRenderer) Render(w http.ResponseWriter, name string, data map[string]interface{}) error {
	r.mu.RLock()
	tpl := r.tpl
	r.mu.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tpl.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return nil
}

// Close stops the template watcher.
func (r *TemplateRenderer) Close() error {
	if r.watcher != nil {
		return r.watcher.Close()
	}
	return nil
}

func (r *TemplateRenderer) reload() error {
	tpl, err := template.ParseGlob(filepath.Join(r.dir, "*.html"))
	if err != nil {
		return fmt.Errorf("failed to parse templates in %s: %w", r.dir, err)
	}

	r.mu.Lock()
	r.tpl = tpl
	r.mu.Unlock()
	return nil
}

func (r *TemplateRenderer) watch() {
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != ".html" {
				continue
			}
			if err := r.reload(); err != nil {
				// Keep serving the last good set.
				logger.Error("Template reload failed", logger.ErrorField(err))
				continue
			}
			logger.Info("Templates reloaded", logger.String("trigger", event.Name))
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("Template watcher error", logger.ErrorField(err))
		}
	}
}
