// Package service implements the method-call adapter over the gvdb
// read surface: three read-only operations — Dump, List, Read — each
// run on a bounded worker pool so the bus dispatch never blocks on
// one slow request.
//
// The bus transport itself (spawning a subprocess per request) lives
// outside this repository; this package runs each request in-process,
// bounded by a weighted semaphore instead of a subprocess pool.
package service

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/dconf/gvdb"
	"github.com/dconf/gvdb/internal/mmapio"
)

// DefaultWorkerCap bounds how many requests run concurrently.
const DefaultWorkerCap = 5

// Config configures a Dispatcher. The zero value is not usable
// directly; build one with New and Options.
type Config struct {
	WorkerCap int64
}

// Option configures a Dispatcher at construction time.
type Option func(*Config)

// WithWorkerCap overrides the default concurrent-worker cap. Non-positive
// values are ignored.
func WithWorkerCap(n int64) Option {
	return func(c *Config) {
		if n > 0 {
			c.WorkerCap = n
		}
	}
}

// Status codes returned alongside a Dispatcher method's output lines.
// StatusFileError and StatusPathError mirror cmd/dbdconf's -2 and -3
// process exit codes; StatusBusy reports that no worker slot was
// acquired before ctx was done.
const (
	StatusOK        int32 = 0
	StatusBusy      int32 = -1
	StatusFileError int32 = -2
	StatusPathError int32 = -3
)

// Dispatcher exposes Dump/List/Read over a bounded worker pool. Each
// call opens gvdbPath fresh (mmap-or-read) and parses it
// independently; no tree state is shared across requests.
type Dispatcher struct {
	sem *semaphore.Weighted
}

// New builds a Dispatcher with DefaultWorkerCap unless overridden by options.
func New(options ...Option) *Dispatcher {
	cfg := Config{WorkerCap: DefaultWorkerCap}
	for _, opt := range options {
		opt(&cfg)
	}
	return &Dispatcher{sem: semaphore.NewWeighted(cfg.WorkerCap)}
}

// Dump runs gvdb.Dump against gvdbPath, bounded by the worker cap.
func (d *Dispatcher) Dump(ctx context.Context, gvdbPath, dirPath string) ([]string, int32) {
	return d.run(ctx, gvdbPath, func(tree *gvdb.Tree) (string, error) {
		return gvdb.Dump(tree, dirPath)
	})
}

// List runs gvdb.List against gvdbPath, bounded by the worker cap.
func (d *Dispatcher) List(ctx context.Context, gvdbPath, dirPath string) ([]string, int32) {
	return d.run(ctx, gvdbPath, func(tree *gvdb.Tree) (string, error) {
		return gvdb.List(tree, dirPath)
	})
}

// Read runs gvdb.Read against gvdbPath, bounded by the worker cap.
func (d *Dispatcher) Read(ctx context.Context, gvdbPath, keyPath string) ([]string, int32) {
	return d.run(ctx, gvdbPath, func(tree *gvdb.Tree) (string, error) {
		return gvdb.Read(tree, keyPath)
	})
}

func (d *Dispatcher) run(ctx context.Context, gvdbPath string, op func(*gvdb.Tree) (string, error)) ([]string, int32) {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return nil, StatusBusy
	}
	defer d.sem.Release(1)

	mapping, err := mmapio.Open(gvdbPath)
	if err != nil {
		return nil, StatusFileError
	}
	defer mapping.Close()

	tree, err := gvdb.Parse(mapping.Bytes(), true)
	if err != nil {
		return nil, StatusFileError
	}

	out, err := op(tree)
	if err != nil {
		return nil, StatusPathError
	}
	return splitLines(out), StatusOK
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	lines = append(lines, s[start:])
	return lines
}
