package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/starford/govcal/internal/apperr"
)

// DefaultCalendarID is used when GoogleConfig.CalendarID is empty.
const DefaultCalendarID = "primary"

// GoogleConfig carries the credentials of the calendar account. It is passed
// explicitly so tests can point the client at a local server.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	RefreshToken string
	CalendarID   string

	// Endpoint overrides the API base URL.
	Endpoint string
	// HTTPClient, when set, is used as-is instead of the OAuth2 client.
	HTTPClient *http.Client
}

// Google creates events through the Google Calendar v3 API.
type Google struct {
	service    *gcal.Service
	calendarID string
}

// NewGoogle builds a client that refreshes its access token from the
// configured refresh token.
func NewGoogle(ctx context.Context, cfg GoogleConfig) (*Google, error) {
	var opts []option.ClientOption
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	} else {
		if cfg.RefreshToken == "" {
			return nil, errors.New("google calendar: refresh token is required")
		}
		oauthCfg := &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gcal.CalendarEventsScope},
		}
		ts := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
		opts = append(opts, option.WithTokenSource(ts))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google calendar: create service: %w", err)
	}

	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}
	return &Google{service: svc, calendarID: calendarID}, nil
}

// CreateEvent inserts one event and returns its htmlLink.
func (g *Google) CreateEvent(ctx context.Context, entry Entry) (string, error) {
	ev := &gcal.Event{
		Summary:     entry.Summary,
		Location:    entry.Location,
		Description: entry.Description,
		Start:       &gcal.EventDateTime{DateTime: entry.Start, TimeZone: entry.TimeZone},
		End:         &gcal.EventDateTime{DateTime: entry.End, TimeZone: entry.TimeZone},
	}

	created, err := g.service.Events.Insert(g.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: insert event: %w", apperr.ErrUpstream, err)
	}
	return created.HtmlLink, nil
}
