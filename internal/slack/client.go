package slack

import (
	"fmt"
	"log"
	"strings"

	"github.com/slack-go/slack"

	"alertmon/internal/config"
	"alertmon/internal/metrics"
	"alertmon/internal/models"
	"alertmon/internal/utils"
)

type Client struct {
	client   *slack.Client
	channels map[string]string
	breaker  *CircuitBreaker
	metrics  *metrics.Metrics
}

func NewSlackClient(cfg config.SlackConfig, m *metrics.Metrics) (*Client, error) {
	token := config.GetSlackToken()

	if !strings.HasPrefix(token, "xoxb-") {
		return nil, fmt.Errorf("SLACK_BOT_TOKEN must be a bot token (xoxb-)")
	}

	api := slack.New(token)
	if _, err := api.AuthTest(); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Slack: %w", err)
	}

	log.Printf("✅ Successfully connected to Slack")

	return &Client{
		client:   api,
		channels: cfg.Channels,
		breaker:  NewCircuitBreaker(cfg.CircuitBreaker, m),
		metrics:  m,
	}, nil
}

// SendMessageToChannel posts text to the given channel, going through the
// circuit breaker. A tripped breaker drops the message instead of queuing it.
func (c *Client) SendMessageToChannel(channel, text string) error {
	if !c.breaker.allow() {
		if c.metrics != nil {
			c.metrics.IncSlackNotifications("dropped")
		}
		return fmt.Errorf("circuit breaker open, dropping message for %s", channel)
	}

	_, _, err := c.client.PostMessage(channel,
		slack.MsgOptionText(text, false),
	)
	if err != nil {
		c.breaker.recordFailure()
		if c.metrics != nil {
			c.metrics.IncSlackNotifications("failure")
		}
		return fmt.Errorf("could not send message to %s: %w", channel, err)
	}

	c.breaker.recordSuccess()
	if c.metrics != nil {
		c.metrics.IncSlackNotifications("success")
	}
	log.Printf("📤 Sent message to Slack channel %s", channel)
	return nil
}

// NotifyAlert formats and sends an alert notification to the channel that
// matches its severity. Severities below the notification bar are skipped.
func (c *Client) NotifyAlert(alert *models.Alert) error {
	if !utils.ShouldNotifySlack(alert.Severity) {
		return nil
	}

	channel := utils.GetChannelForSeverity(alert.Severity, c.channels)
	return c.SendMessageToChannel(channel, FormatAlert(alert))
}

// NotifyResolution announces that an alert stopped firing.
func (c *Client) NotifyResolution(alert *models.Alert) error {
	if !utils.ShouldNotifySlackForResolution(alert.Severity) {
		return nil
	}

	channel := utils.GetChannelForSeverity(alert.Severity, c.channels)
	text := fmt.Sprintf("✅ *RESOLVED* %s on %s", alert.ConditionName, alert.Target)
	return c.SendMessageToChannel(channel, text)
}

func FormatAlert(alert *models.Alert) string {
	emoji := "⚠️"
	if alert.Severity == models.SeverityCritical {
		emoji = "🚨"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *[%s]* %s on *%s*\n", emoji, strings.ToUpper(string(alert.Severity)), alert.ConditionName, alert.Target)
	if summary, ok := alert.Annotations["summary"]; ok {
		fmt.Fprintf(&b, "> %s\n", summary)
	}
	if alert.Ticket != nil {
		fmt.Fprintf(&b, "Ticket: <%s|%s>\n", alert.Ticket.URL, alert.Ticket.Key)
	}
	fmt.Fprintf(&b, "Alert ID: `%s`", alert.AlertID)
	return b.String()
}
