// Package watcher compiles all the Haml templates of a directory tree, and recompiles them
// periodically when they change.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hesusruiz/hamlgo/haml"
	"go.uber.org/zap"
)

// DefaultInputExtensions are the extensions of the files compiled when none are configured
var DefaultInputExtensions = []string{"haml", "hamlpy"}

type Config struct {
	InputDir  string
	OutputDir string

	// InputExtensions without the leading dot
	InputExtensions []string

	// OutputExtension replaces the extension of the compiled files, like ".html"
	OutputExtension string

	// Refresh is the time between checks for modified files
	Refresh time.Duration
}

type Watcher struct {
	cfg      Config
	compiler *haml.Compiler
	log      *zap.SugaredLogger

	// compiled holds the modification time of every file when it was last compiled
	compiled map[string]time.Time
}

func New(compiler *haml.Compiler, cfg Config, log *zap.SugaredLogger) *Watcher {
	if len(cfg.OutputDir) == 0 {
		cfg.OutputDir = cfg.InputDir
	}
	if len(cfg.InputExtensions) == 0 {
		cfg.InputExtensions = DefaultInputExtensions
	}
	if len(cfg.OutputExtension) == 0 {
		cfg.OutputExtension = ".html"
	}
	if !strings.HasPrefix(cfg.OutputExtension, ".") {
		cfg.OutputExtension = "." + cfg.OutputExtension
	}
	if cfg.Refresh <= 0 {
		cfg.Refresh = 3 * time.Second
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Watcher{
		cfg:      cfg,
		compiler: compiler,
		log:      log,
		compiled: make(map[string]time.Time),
	}
}

// Result is the outcome of a pass over the input directory
type Result struct {
	Compiled int
	Failed   int

	// Err joins the errors of all the failed files
	Err error
}

func (w *Watcher) isTemplate(name string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	for _, e := range w.cfg.InputExtensions {
		if strings.EqualFold(strings.TrimPrefix(e, "."), ext) {
			return true
		}
	}
	return false
}

// OutputPath returns the name of the file generated for an input file
func (w *Watcher) OutputPath(inputFile string) (string, error) {
	rel, err := filepath.Rel(w.cfg.InputDir, inputFile)
	if err != nil {
		return "", err
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel)) + w.cfg.OutputExtension
	return filepath.Join(w.cfg.OutputDir, rel), nil
}

// CompileChanged compiles the templates modified since the last pass (all of them the first time)
func (w *Watcher) CompileChanged() Result {
	var res Result
	var errs []error

	err := filepath.WalkDir(w.cfg.InputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !w.isTemplate(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if last, ok := w.compiled[path]; ok && !info.ModTime().After(last) {
			return nil
		}

		// Whatever the result, do not retry until the file changes again
		w.compiled[path] = info.ModTime()

		if err := w.compileFile(path); err != nil {
			res.Failed++
			errs = append(errs, err)
			w.log.Errorw("compilation failed", "file", path, "error", err)
			return nil
		}
		res.Compiled++
		return nil
	})
	if err != nil {
		res.Failed++
		errs = append(errs, err)
	}

	res.Err = errors.Join(errs...)
	return res
}

func (w *Watcher) compileFile(inputFile string) error {
	outputFile, err := w.OutputPath(inputFile)
	if err != nil {
		return err
	}

	html, err := w.compiler.CompileFile(inputFile)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0775); err != nil {
		return err
	}
	if err := os.WriteFile(outputFile, []byte(html), 0664); err != nil {
		return err
	}

	w.log.Infow("compiled", "input", inputFile, "output", outputFile)
	return nil
}

// Run compiles the modified templates every refresh period, until the context is cancelled
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Infow("watching", "dir", w.cfg.InputDir, "refresh", w.cfg.Refresh)

	for {
		res := w.CompileChanged()
		if res.Compiled > 0 || res.Failed > 0 {
			w.log.Infow("pass finished", "compiled", res.Compiled, "failed", res.Failed)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.cfg.Refresh):
		}
	}
}
