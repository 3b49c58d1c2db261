// Package testutil provides scripted collaborators for pipeline and front-door tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/starford/govcal/internal/calendar"
	"github.com/starford/govcal/internal/vision"
)

// ErrScripted is the failure returned by fakes configured to fail.
var ErrScripted = errors.New("scripted failure")

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Extractor returns a fixed reply and records every image it receives.
type Extractor struct {
	Reply string
	Err   error

	mu     sync.Mutex
	images []vision.Image
}

// Extract implements vision.Extractor.
func (e *Extractor) Extract(_ context.Context, img vision.Image) (string, error) {
	e.mu.Lock()
	e.images = append(e.images, img)
	e.mu.Unlock()
	if e.Err != nil {
		return "", e.Err
	}
	return e.Reply, nil
}

// Calls returns how many times Extract ran.
func (e *Extractor) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.images)
}

// Creator records entries and returns sequential links. Calls whose
// zero-based position is in FailAt fail with ErrScripted.
type Creator struct {
	FailAt map[int]bool

	mu      sync.Mutex
	entries []calendar.Entry
}

// CreateEvent implements calendar.Creator.
func (c *Creator) CreateEvent(_ context.Context, entry calendar.Entry) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.entries)
	c.entries = append(c.entries, entry)
	if c.FailAt[n] {
		return "", ErrScripted
	}
	return fmt.Sprintf("https://calendar.example/event/%d", n+1), nil
}

// Entries returns a copy of every entry received, in call order.
func (c *Creator) Entries() []calendar.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]calendar.Entry(nil), c.entries...)
}
