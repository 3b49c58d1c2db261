package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/govcal/internal/calendar"
	"github.com/starford/govcal/internal/pipeline"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModePasskey  = "passkey"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Auth     AuthConfig        `yaml:"auth"`
	OpenAI   OpenAIConfig      `yaml:"openai"`
	Google   GoogleConfig      `yaml:"google"`
	LINE     LINEConfig        `yaml:"line"`
	Upload   UploadConfig      `yaml:"upload"`
	Calendar CalendarConfig    `yaml:"calendar"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"app", &c.App},
		{"auth", &c.Auth},
		{"openai", &c.OpenAI},
		{"google", &c.Google},
		{"line", &c.LINE},
		{"upload", &c.Upload},
		{"calendar", &c.Calendar},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// AuthConfig holds the review-page gate.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication, suitable for local dev.
//   - "passkey": a shared passkey exchanged for a cookie; Passkey must be non-empty.
type AuthConfig struct {
	Mode         string        `yaml:"mode"`
	Passkey      string        `yaml:"passkey"`
	CookieName   string        `yaml:"cookie_name"`
	CookieMaxAge time.Duration `yaml:"cookie_max_age"`
	SecureCookie bool          `yaml:"secure_cookie"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModePasskey)),
		validation.Field(&c.CookieMaxAge, validation.Min(time.Duration(0))),
	); err != nil {
		return err
	}
	if c.Mode == AuthModePasskey && c.Passkey == "" {
		return fmt.Errorf("mode is %q but passkey is empty", AuthModePasskey)
	}
	return nil
}

// AuthEnabled returns true when the passkey gate is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModePasskey
}

// OpenAIConfig configures the vision model.
type OpenAIConfig struct {
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	MaxTokens  int    `yaml:"max_tokens"`
	PromptFile string `yaml:"prompt_file"`
}

// Validate validates the OpenAI configuration.
func (c *OpenAIConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.APIKey, validation.Required),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.MaxTokens, validation.Min(1)),
	)
}

// GoogleConfig holds the calendar account credentials.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURI  string `yaml:"redirect_uri"`
	RefreshToken string `yaml:"refresh_token"`
	CalendarID   string `yaml:"calendar_id"`
	Endpoint     string `yaml:"endpoint"`
}

// Validate validates the Google configuration.
func (c *GoogleConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ClientID, validation.Required),
		validation.Field(&c.ClientSecret, validation.Required),
		validation.Field(&c.RefreshToken, validation.Required),
		validation.Field(&c.CalendarID, validation.Required),
	)
}

// Calendar returns the collaborator configuration.
func (c *GoogleConfig) Calendar() calendar.GoogleConfig {
	return calendar.GoogleConfig{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURI:  c.RedirectURI,
		RefreshToken: c.RefreshToken,
		CalendarID:   c.CalendarID,
		Endpoint:     c.Endpoint,
	}
}

// LINEConfig configures the chat webhook.
type LINEConfig struct {
	Enabled            bool   `yaml:"enabled"`
	ChannelSecret      string `yaml:"channel_secret"`
	ChannelAccessToken string `yaml:"channel_access_token"`
}

// Validate validates the LINE configuration.
func (c *LINEConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.ChannelSecret, validation.Required),
		validation.Field(&c.ChannelAccessToken, validation.Required),
	)
}

// UploadConfig limits accepted images.
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// Validate validates the upload configuration.
func (c *UploadConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxBytes, validation.Required, validation.Min(int64(1)), validation.Max(int64(pipeline.DefaultMaxBytes))),
	)
}

// CalendarConfig controls materialization.
type CalendarConfig struct {
	FailurePolicy string `yaml:"failure_policy"`
}

// Validate validates the calendar configuration.
func (c *CalendarConfig) Validate() error {
	if c.FailurePolicy == "" {
		c.FailurePolicy = string(calendar.PolicyAbort)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.FailurePolicy, validation.In(string(calendar.PolicyAbort), string(calendar.PolicyIsolate))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Auth: AuthConfig{
			Mode:         AuthModeDisabled,
			CookieMaxAge: 7 * 24 * time.Hour,
		},
		OpenAI: OpenAIConfig{
			Model:     "gpt-4.1-mini",
			MaxTokens: 1000,
		},
		Google: GoogleConfig{
			CalendarID: calendar.DefaultCalendarID,
		},
		Upload: UploadConfig{
			MaxBytes: pipeline.DefaultMaxBytes,
		},
		Calendar: CalendarConfig{
			FailurePolicy: string(calendar.PolicyAbort),
		},
	}
}
