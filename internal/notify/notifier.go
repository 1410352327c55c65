package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	relay_errors "upload-relay/pkg/errors"
	"upload-relay/pkg/logger"

	"github.com/bwmarrin/discordgo"
)

type Config struct {
	WebhookURL string
	Timeout    time.Duration
	Retention  time.Duration
}

// Notifier posts upload embeds to a Discord webhook. A single attempt is
// made per upload and failures never reach the caller of Notify.
type Notifier struct {
	cfg       Config
	session   *discordgo.Session
	webhookID string
	token     string
	logger    *logger.Logger
}

func NewNotifier(cfg Config, l *logger.Logger) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if l == nil {
		l = logger.GetGlobalLogger()
	}

	n := &Notifier{cfg: cfg, logger: l}
	if cfg.WebhookURL == "" {
		return n
	}

	id, token, err := ParseWebhookURL(cfg.WebhookURL)
	if err != nil {
		l.Warnf("Ignoring DISCORD_WEBHOOK_URL: %v", err)
		return n
	}

	// Webhook execution needs no bot token.
	session, err := discordgo.New("")
	if err != nil {
		l.Warnf("Discord session setup failed: %v", err)
		return n
	}
	session.Client = &http.Client{Timeout: cfg.Timeout}
	session.ShouldRetryOnRateLimit = false
	session.MaxRestRetries = 0

	n.session = session
	n.webhookID = id
	n.token = token
	return n
}

// ParseWebhookURL extracts the webhook id and token from a URL of the form
// https://discord.com/api/webhooks/<id>/<token>.
func ParseWebhookURL(raw string) (id, token string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse webhook url: %w", err)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, segment := range segments {
		if segment != "webhooks" {
			continue
		}
		if i+2 < len(segments) {
			id, token = segments[i+1], segments[i+2]
		}
		break
	}
	if id == "" || token == "" {
		return "", "", fmt.Errorf("webhook url %q has no /webhooks/<id>/<token> path", u.Redacted())
	}
	return id, token, nil
}

// Enabled reports whether a usable webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.session != nil
}

// Build composes the payload using the notifier's retention window.
func (n *Notifier) Build(info FileInfo, uploadedAt time.Time) *discordgo.WebhookParams {
	return buildPayload(info, uploadedAt, n.cfg.Retention)
}

// Send posts payload once. The request is detached from ctx cancellation so a
// client hanging up does not abort the post, but it is bounded by the timeout.
func (n *Notifier) Send(ctx context.Context, payload *discordgo.WebhookParams) error {
	if !n.Enabled() || payload == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.cfg.Timeout)
	defer cancel()

	if _, err := n.session.WebhookExecute(n.webhookID, n.token, false, payload, discordgo.WithContext(ctx)); err != nil {
		return relay_errors.Notification("post webhook", err)
	}
	return nil
}

// Notify builds and sends the embed for info. Errors are logged and dropped.
func (n *Notifier) Notify(ctx context.Context, info FileInfo, uploadedAt time.Time) {
	if !n.Enabled() || info.URL == "" {
		return
	}
	if err := n.Send(ctx, n.Build(info, uploadedAt)); err != nil {
		n.logger.Ctx(ctx).Errorf("Failed to send Discord webhook for %s: %v", info.Name, err)
	}
}
