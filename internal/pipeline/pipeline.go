// Package pipeline runs a document photograph through extraction, validation
// and calendar materialization for every front door.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"slices"
	"strings"

	"github.com/starford/govcal/internal/apperr"
	"github.com/starford/govcal/internal/calendar"
	"github.com/starford/govcal/internal/checksum"
	"github.com/starford/govcal/internal/event"
	"github.com/starford/govcal/internal/vision"
)

// DefaultMaxBytes is the largest accepted image.
const DefaultMaxBytes = 20 << 20

// AllowedMIMETypes lists the accepted raster formats.
var AllowedMIMETypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}

// Front-door names used as the source of notifications and log lines.
const (
	SourceAPI  = "api"
	SourceLINE = "line"
	SourceMCP  = "mcp"
)

// Notifier is told about every materialized event.
type Notifier interface {
	PublishCreated(source, title string, links []string)
}

// ImageSource fetches the image for an unattended event.
type ImageSource func(ctx context.Context) (vision.Image, error)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxBytes caps the accepted image size.
func WithMaxBytes(n int64) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxBytes = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithNotifier registers a listener for created calendar entries.
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		o.notifier = n
	}
}

// Orchestrator wires the vision collaborator to the materializer.
type Orchestrator struct {
	extractor    vision.Extractor
	materializer *calendar.Materializer
	maxBytes     int64
	logger       *slog.Logger
	notifier     Notifier
}

// New returns an Orchestrator.
func New(extractor vision.Extractor, materializer *calendar.Materializer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		extractor:    extractor,
		materializer: materializer,
		maxBytes:     DefaultMaxBytes,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// MaxBytes returns the configured size cap.
func (o *Orchestrator) MaxBytes() int64 { return o.maxBytes }

// CheckMIMEType returns the bare, lower-cased media type when it is allowed.
func CheckMIMEType(contentType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %q", apperr.ErrUnsupportedMediaType, contentType)
	}
	mediaType = strings.ToLower(mediaType)
	if !slices.Contains(AllowedMIMETypes, mediaType) {
		return "", fmt.Errorf("%w: %s", apperr.ErrUnsupportedMediaType, mediaType)
	}
	return mediaType, nil
}

// CheckImage enforces the input constraints. It never touches the network.
func (o *Orchestrator) CheckImage(img vision.Image) (vision.Image, error) {
	mediaType, err := CheckMIMEType(img.MIMEType)
	if err != nil {
		return vision.Image{}, err
	}
	if len(img.Data) == 0 {
		return vision.Image{}, fmt.Errorf("%w: empty image", apperr.ErrInputConstraint)
	}
	if int64(len(img.Data)) > o.maxBytes {
		return vision.Image{}, fmt.Errorf("%w: %d bytes, limit %d", apperr.ErrPayloadTooLarge, len(img.Data), o.maxBytes)
	}
	img.MIMEType = mediaType
	return img, nil
}

// ReadImage checks the media type, then reads at most the size cap from r.
func (o *Orchestrator) ReadImage(r io.Reader, contentType string) (vision.Image, error) {
	mediaType, err := CheckMIMEType(contentType)
	if err != nil {
		return vision.Image{}, err
	}
	data, err := io.ReadAll(io.LimitReader(r, o.maxBytes+1))
	if err != nil {
		return vision.Image{}, fmt.Errorf("read image: %w", err)
	}
	return o.CheckImage(vision.Image{Data: data, MIMEType: mediaType})
}

// Extract runs the interactive path: check, call the vision model, parse and
// normalize. The result is not validated; a reviewer sees it first.
func (o *Orchestrator) Extract(ctx context.Context, img vision.Image) (event.Event, error) {
	img, err := o.CheckImage(img)
	if err != nil {
		return event.Event{}, err
	}

	log := o.log(ctx).With(
		slog.String("image", checksum.Fingerprint(img.Data)),
		slog.Int("bytes", len(img.Data)),
		slog.String("mime", img.MIMEType),
	)

	raw, err := o.extractor.Extract(ctx, img)
	if err != nil {
		log.Error("extraction failed", slog.String("error", err.Error()))
		return event.Event{}, err
	}
	e, err := event.Parse([]byte(raw))
	if err != nil {
		log.Warn("model output unparsable", slog.Int("length", len(raw)))
		return event.Event{}, err
	}

	log.Info("event extracted", slog.Int("ranges", len(e.Dates)))
	return e, nil
}

// Save validates e under profile and materializes it. See
// calendar.Materializer for the failure semantics.
func (o *Orchestrator) Save(ctx context.Context, source string, e event.Event, profile event.Profile) ([]string, error) {
	if err := profile.Validate(e); err != nil {
		return nil, err
	}
	return o.materialize(ctx, source, e)
}

func (o *Orchestrator) materialize(ctx context.Context, source string, e event.Event) ([]string, error) {
	log := o.log(ctx).With(slog.String("source", source), slog.Int("ranges", len(e.Dates)))

	links, err := o.materializer.Materialize(ctx, e)
	if err != nil {
		var merr *calendar.Error
		if errors.As(err, &merr) {
			if created := merr.Created(); len(created) > 0 {
				o.notify(source, e.Title, created)
			}
			log.Error("materialization failed",
				slog.Int("created", len(merr.Created())),
				slog.String("error", err.Error()))
		}
		return nil, err
	}

	log.Info("event materialized", slog.Int("created", len(links)))
	o.notify(source, e.Title, links)
	return links, nil
}

// HandleImageEvent runs the unattended path and always returns the text to
// reply with. Causes are logged, never shown.
func (o *Orchestrator) HandleImageEvent(ctx context.Context, fetch ImageSource) string {
	log := o.log(ctx)

	img, err := fetch(ctx)
	if err != nil {
		log.Error("image download failed", slog.String("error", err.Error()))
		return ReplyFailure
	}

	e, err := o.Extract(ctx, img)
	if err != nil {
		return ReplyFailure
	}

	if err := event.Presence.Validate(e); err != nil {
		log.Info("event rejected", slog.String("error", err.Error()))
		return ReplyNoDate
	}
	if complete := e.CompleteRanges(); len(complete.Dates) < len(e.Dates) {
		log.Info("incomplete ranges dropped", slog.Int("dropped", len(e.Dates)-len(complete.Dates)))
		e = complete
	}

	links, err := o.materialize(ctx, SourceLINE, e)
	if err != nil {
		var merr *calendar.Error
		if errors.As(err, &merr) && merr.Policy == calendar.PolicyIsolate && len(merr.Created()) > 0 {
			return ComposeConfirmation(e, merr.Outcomes)
		}
		return ReplyFailure
	}
	return ComposeConfirmation(e, outcomesFromLinks(links))
}

func (o *Orchestrator) notify(source, title string, links []string) {
	if o.notifier != nil {
		o.notifier.PublishCreated(source, title, links)
	}
}

type traceKey struct{}

// WithTrace tags ctx with a correlation id that appears on every log line.
func WithTrace(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func (o *Orchestrator) log(ctx context.Context) *slog.Logger {
	if id, ok := ctx.Value(traceKey{}).(string); ok && id != "" {
		return o.logger.With(slog.String("trace", id))
	}
	return o.logger
}
