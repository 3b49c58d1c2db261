package linebot

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/starford/govcal/internal/apperr"
)

// ClientConfig configures the messaging API client.
type ClientConfig struct {
	ChannelAccessToken string
	// Endpoint and DataEndpoint override the API hosts, mainly for tests.
	Endpoint     string
	DataEndpoint string
	HTTPClient   *http.Client
}

// Client talks to the LINE messaging API.
type Client struct {
	bot  *messaging_api.MessagingApiAPI
	blob *messaging_api.MessagingApiBlobAPI
}

// NewClient builds the reply and content clients.
func NewClient(cfg ClientConfig) (*Client, error) {
	var botOpts []messaging_api.MessagingApiAPIOption
	var blobOpts []messaging_api.MessagingApiBlobAPIOption
	if cfg.HTTPClient != nil {
		botOpts = append(botOpts, messaging_api.WithHTTPClient(cfg.HTTPClient))
		blobOpts = append(blobOpts, messaging_api.WithBlobHTTPClient(cfg.HTTPClient))
	}
	if cfg.Endpoint != "" {
		botOpts = append(botOpts, messaging_api.WithEndpoint(cfg.Endpoint))
	}
	if cfg.DataEndpoint != "" {
		blobOpts = append(blobOpts, messaging_api.WithBlobEndpoint(cfg.DataEndpoint))
	}

	bot, err := messaging_api.NewMessagingApiAPI(cfg.ChannelAccessToken, botOpts...)
	if err != nil {
		return nil, fmt.Errorf("line: messaging client: %w", err)
	}
	blob, err := messaging_api.NewMessagingApiBlobAPI(cfg.ChannelAccessToken, blobOpts...)
	if err != nil {
		return nil, fmt.Errorf("line: blob client: %w", err)
	}
	return &Client{bot: bot, blob: blob}, nil
}

// Reply sends one text message. The SDK's WithContext mutates the shared
// client, so requests run without a per-call context.
func (c *Client) Reply(_ context.Context, replyToken, text string) error {
	_, err := c.bot.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   []messaging_api.MessageInterface{messaging_api.TextMessage{Text: text}},
	})
	if err != nil {
		return fmt.Errorf("%w: reply: %w", apperr.ErrUpstream, err)
	}
	return nil
}

// Content downloads the bytes of a message. The caller closes the reader.
func (c *Client) Content(_ context.Context, messageID string) (io.ReadCloser, string, error) {
	resp, err := c.blob.GetMessageContent(messageID)
	if err != nil {
		return nil, "", fmt.Errorf("%w: get content %s: %w", apperr.ErrUpstream, messageID, err)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}
