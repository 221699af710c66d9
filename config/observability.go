package config

import "strings"

// ObservabilityConfig groups configuration that controls metrics emission and
// operator notifications.
type ObservabilityConfig struct {
	Metrics ObservabilityMetricsConfig
	Notify  ObservabilityNotifyConfig
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
	c.Notify.Sanitize()
}

// ObservabilityMetricsConfig controls emission of metrics to external sinks such as StatsD.
type ObservabilityMetricsConfig struct {
	Enabled       bool   `env:"OBSERVABILITY_METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress string `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
	StatsdPrefix  string `env:"OBSERVABILITY_METRICS_STATSD_PREFIX"  envDefault:"portal_api"`
}

// Sanitize normalises derived fields and enforces safe defaults.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
}

// IsEnabled returns true when metrics emission is active after sanitisation.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}

// ObservabilityNotifyConfig controls delivery of provisioning failure
// notifications to a Slack webhook. Notifications are disabled when the
// webhook URL is empty.
type ObservabilityNotifyConfig struct {
	SlackWebhookURL string `env:"OBSERVABILITY_NOTIFY_SLACK_WEBHOOK_URL"`
	SlackChannel    string `env:"OBSERVABILITY_NOTIFY_SLACK_CHANNEL"`
	SlackUsername   string `env:"OBSERVABILITY_NOTIFY_SLACK_USERNAME" envDefault:"portal-api"`
}

// Sanitize normalises derived fields.
func (c *ObservabilityNotifyConfig) Sanitize() {
	c.SlackWebhookURL = strings.TrimSpace(c.SlackWebhookURL)
	c.SlackChannel = strings.TrimSpace(c.SlackChannel)
	c.SlackUsername = strings.TrimSpace(c.SlackUsername)
}

// IsEnabled returns true when a Slack webhook is configured.
func (c *ObservabilityNotifyConfig) IsEnabled() bool {
	return c.SlackWebhookURL != ""
}
