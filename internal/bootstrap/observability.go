package bootstrap

import (
	"log/slog"
	"net/url"

	"github.com/edbridge/portal-api/config"
	"github.com/edbridge/portal-api/internal/observability/statsd"
	"github.com/edbridge/portal-api/internal/service/failurenotifier"

	slacksink "github.com/edbridge/portal-api/internal/observability/notify/slack"
)

// InitMetrics builds the StatsD sink from config. Returns nil when metrics
// are disabled; callers and the sinks treat a nil Sink as a no-op.
func InitMetrics(cfg *config.AppConfig, logger *slog.Logger) (statsd.Sink, error) {
	if cfg == nil || !cfg.Observability.Metrics.IsEnabled() {
		return nil, nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled:    true,
		Address:    cfg.Observability.Metrics.StatsdAddress,
		Prefix:     cfg.Observability.Metrics.StatsdPrefix,
		Logger:     logger,
		GlobalTags: map[string]string{"service": "portal-api"},
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// InitNotifier builds the provisioning failure notifier. Returns a disabled
// notifier when no sinks are configured.
func InitNotifier(cfg *config.AppConfig, logger *slog.Logger) (*failurenotifier.Service, error) {
	var sinks []failurenotifier.SinkRegistration

	if cfg != nil && cfg.Observability.Notify.IsEnabled() {
		slack, err := slacksink.NewClient(slacksink.Config{
			WebhookURL:    cfg.Observability.Notify.SlackWebhookURL,
			Channel:       cfg.Observability.Notify.SlackChannel,
			Username:      cfg.Observability.Notify.SlackUsername,
			UserURLPrefix: adminUserURLPrefix(cfg.HTTP.BaseURL),
		})
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, failurenotifier.SinkRegistration{Name: "slack", Sink: slack})
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger: logger,
		Sinks:  sinks,
	}), nil
}

// adminUserURLPrefix derives the admin user view URL used for notification
// deep links. Returns empty when no public base URL is configured.
func adminUserURLPrefix(baseURL string) string {
	if baseURL == "" {
		return ""
	}
	prefix, err := url.JoinPath(baseURL, "admin", "users")
	if err != nil {
		return ""
	}
	return prefix
}
