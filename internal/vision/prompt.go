package vision

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// DefaultPrompt is the extraction instruction sent with every image.
const DefaultPrompt = `You read photographs of Thai government documents (หนังสือราชการ) and extract the event they announce.

Return ONLY one JSON object, no Markdown, with exactly these keys:
{
  "title": "project or meeting name",
  "dates": [
    {"startDateTime": "YYYY-MM-DDTHH:MM:SS", "endDateTime": "YYYY-MM-DDTHH:MM:SS"}
  ],
  "location": "venue, or empty string",
  "description": "short summary of who, what and any instructions, or empty string"
}

Rules:
- Thai documents use Buddhist Era years (พ.ศ.). Subtract 543 to get the Gregorian year.
- Convert Thai digits (๐-๙) to Arabic digits.
- Write times as local wall-clock time in Thailand. Do NOT add a timezone offset or "Z".
- One entry in "dates" per separate day or session, in the order they appear.
- If only a start time is given, set the end one hour later. If no time is given, use 09:00 to 16:30.
- Use empty strings for anything you cannot find. Never invent a date.`

// Prompt serves the extraction prompt. When backed by a file the text is
// reloaded whenever the file changes.
type Prompt struct {
	mu   sync.RWMutex
	text string
	path string
}

// NewPrompt loads the prompt from path, or uses DefaultPrompt when path is "".
func NewPrompt(path string) (*Prompt, error) {
	p := &Prompt{text: DefaultPrompt, path: path}
	if path == "" {
		return p, nil
	}
	if err := p.reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// Text returns the current prompt.
func (p *Prompt) Text() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.text
}

func (p *Prompt) reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read prompt file %s: %w", p.path, err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return fmt.Errorf("prompt file %s is empty", p.path)
	}
	p.mu.Lock()
	p.text = text
	p.mu.Unlock()
	return nil
}

// Watch reloads the prompt file on change until ctx is cancelled. The parent
// directory is watched so editors that replace the file are handled. It
// returns immediately when the prompt is not file-backed.
func (p *Prompt) Watch(ctx context.Context, logger *slog.Logger) error {
	if p.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(p.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(p.path)
	logger.Info("prompt watcher: started", slog.String("path", target))

	for {
		select {
		case <-ctx.Done():
			logger.Info("prompt watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if err := p.reload(); err != nil {
				// Keep serving the previous prompt.
				logger.Warn("prompt watcher: reload failed", slog.String("error", err.Error()))
				continue
			}
			logger.Info("prompt watcher: reloaded", slog.String("path", target))

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("prompt watcher: error", slog.String("error", err.Error()))
		}
	}
}
