package internal

import (
	"github.com/starford/govcal/internal/calendar"
	"github.com/starford/govcal/internal/linebot"
	"github.com/starford/govcal/internal/vision"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	version string

	extractor vision.Extractor
	creator   calendar.Creator
	replier   linebot.Replier
	fetcher   linebot.ContentFetcher
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithExtractor replaces the OpenAI vision collaborator.
func WithExtractor(e vision.Extractor) Option {
	return func(a *application) {
		a.extractor = e
	}
}

// WithCreator replaces the Google Calendar collaborator.
func WithCreator(c calendar.Creator) Option {
	return func(a *application) {
		a.creator = c
	}
}

// WithLINE replaces the LINE messaging clients.
func WithLINE(r linebot.Replier, f linebot.ContentFetcher) Option {
	return func(a *application) {
		a.replier = r
		a.fetcher = f
	}
}
