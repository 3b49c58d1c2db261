// Package linebot is the unattended chat front door: photos sent to the LINE
// bot are extracted and saved without review.
package linebot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"golang.org/x/sync/errgroup"

	"github.com/starford/govcal/internal/pipeline"
	"github.com/starford/govcal/internal/vision"
)

const (
	maxWebhookBytes    = 1 << 20
	defaultContentType = "image/jpeg"
	defaultConcurrency = 8
)

// Replier sends a text reply for a reply token.
type Replier interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// ContentFetcher downloads message content and reports its content type.
type ContentFetcher interface {
	Content(ctx context.Context, messageID string) (io.ReadCloser, string, error)
}

// Handler serves POST /webhook/line.
type Handler struct {
	secret      string
	orch        *pipeline.Orchestrator
	replier     Replier
	fetcher     ContentFetcher
	logger      *slog.Logger
	concurrency int
}

// NewHandler returns a webhook handler. A nil logger means slog.Default.
func NewHandler(channelSecret string, orch *pipeline.Orchestrator, replier Replier, fetcher ContentFetcher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		secret:      channelSecret,
		orch:        orch,
		replier:     replier,
		fetcher:     fetcher,
		logger:      logger,
		concurrency: defaultConcurrency,
	}
}

// ServeHTTP verifies the signature, then handles every event of the batch
// concurrently. Each event's own pipeline is sequential. The response is
// 200 once all replies are sent, whatever their outcome.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBytes)

	cb, err := webhook.ParseRequest(h.secret, r)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid signature"})
			return
		}
		h.logger.Warn("webhook parse failed", slog.String("error", err.Error()))
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}

	var g errgroup.Group
	g.SetLimit(h.concurrency)
	for _, ev := range cb.Events {
		msg, ok := ev.(webhook.MessageEvent)
		if !ok {
			continue
		}
		g.Go(func() error {
			ctx := pipeline.WithTrace(r.Context(), uuid.NewString())
			h.handleMessage(ctx, msg)
			return nil
		})
	}
	_ = g.Wait()

	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleMessage(ctx context.Context, ev webhook.MessageEvent) {
	var text string
	switch m := ev.Message.(type) {
	case webhook.ImageMessageContent:
		text = h.orch.HandleImageEvent(ctx, h.imageSource(m.Id))
	case webhook.TextMessageContent:
		text = pipeline.ReplyInstructions
	default:
		return
	}

	if err := h.replier.Reply(ctx, ev.ReplyToken, text); err != nil {
		h.logger.Error("line reply failed", slog.String("error", err.Error()))
	}
}

func (h *Handler) imageSource(messageID string) pipeline.ImageSource {
	return func(ctx context.Context) (vision.Image, error) {
		body, contentType, err := h.fetcher.Content(ctx, messageID)
		if err != nil {
			return vision.Image{}, err
		}
		defer body.Close()
		if contentType == "" {
			contentType = defaultContentType
		}
		return h.orch.ReadImage(body, contentType)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("json encode failed", slog.String("error", err.Error()))
	}
}
