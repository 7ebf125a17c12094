package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	"alertmon/internal/config"
	"alertmon/internal/models"
)

// Client creates issues through the Jira REST v2 API with basic auth.
type Client struct {
	httpClient *http.Client
	baseURL    string
	project    string
	issueType  string
	assignee   string
	username   string
	apiToken   string
}

// Ticket is the formatted payload handed to CreateTicket.
type Ticket struct {
	Summary     string
	Description string
	Priority    string
	Labels      []string
}

// CreatedTicket is returned on a successful issue creation.
type CreatedTicket struct {
	Key string
	URL string
}

func NewClient(cfg config.JiraConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		project:    cfg.Project,
		issueType:  cfg.IssueType,
		assignee:   cfg.Assignee,
		username:   config.GetJiraUsername(),
		apiToken:   config.GetJiraAPIToken(),
	}
}

// IsConfigured reports whether enough credentials are present to talk to Jira.
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.project != "" && c.username != "" && c.apiToken != ""
}

var labelCleaner = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// FormatTicket turns a stored alert into the ticket body Jira expects:
// summary "[SEVERITY] condition - target", a bulleted description, and
// priority High for critical alerts, Medium otherwise.
func FormatTicket(alert *models.Alert) Ticket {
	severity := string(alert.Severity)
	summary := fmt.Sprintf("[%s] %s - %s", strings.ToUpper(severity), alert.ConditionName, alert.Target)

	lines := []string{
		"*Alert Details:*",
		fmt.Sprintf("• Alert Name: %s", alert.ConditionName),
		fmt.Sprintf("• Severity: %s", severity),
		fmt.Sprintf("• Target: %s", alert.Target),
		fmt.Sprintf("• Status: %s", alert.Status),
		fmt.Sprintf("• Received At: %s", time.Now().Format("2006-01-02 15:04:05")),
	}

	if summaryAnn, ok := alert.Annotations["summary"]; ok {
		lines = append(lines, fmt.Sprintf("• Summary: %s", summaryAnn))
	}
	if desc, ok := alert.Annotations["description"]; ok {
		lines = append(lines, fmt.Sprintf("• Description: %s", desc))
	}
	if alert.StartsAt != "" {
		lines = append(lines, fmt.Sprintf("• Started At: %s", alert.StartsAt))
	}

	if len(alert.Labels) > 0 {
		lines = append(lines, "• Labels:")
		for key, value := range alert.Labels {
			lines = append(lines, fmt.Sprintf("  - %s: %s", key, value))
		}
	}

	priority := "Medium"
	if alert.Severity == models.SeverityCritical {
		priority = "High"
	}

	return Ticket{
		Summary:     summary,
		Description: strings.Join(lines, "\n"),
		Priority:    priority,
		Labels: []string{
			"alert-" + sanitizeLabel(alert.ConditionName),
			"severity-" + sanitizeLabel(severity),
		},
	}
}

func sanitizeLabel(s string) string {
	return strings.Trim(labelCleaner.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// CreateTicket creates the issue and returns its key and browse URL.
func (c *Client) CreateTicket(ctx context.Context, ticket Ticket) (*CreatedTicket, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("jira client not configured")
	}

	summary := ticket.Summary
	if len(summary) > 250 {
		summary = summary[:250]
	}

	fields := map[string]interface{}{
		"project":     map[string]string{"key": c.project},
		"summary":     summary,
		"description": ticket.Description,
		"issuetype":   map[string]string{"name": c.issueType},
		"priority":    map[string]string{"name": ticket.Priority},
	}
	if c.assignee != "" {
		fields["assignee"] = map[string]string{"name": c.assignee}
	}
	if len(ticket.Labels) > 0 {
		fields["labels"] = ticket.Labels
	}

	body, err := json.Marshal(map[string]interface{}{"fields": fields})
	if err != nil {
		return nil, fmt.Errorf("could not marshal ticket payload: %w", err)
	}

	url := c.baseURL + "/rest/api/2/issue"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.username, c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jira request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("jira returned HTTP %d: %s", resp.StatusCode, string(msg))
	}

	var created struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("could not decode jira response: %w", err)
	}

	log.Printf("Created JIRA ticket %s", created.Key)

	return &CreatedTicket{
		Key: created.Key,
		URL: fmt.Sprintf("%s/browse/%s", c.baseURL, created.Key),
	}, nil
}

// TestConnection verifies credentials by fetching the configured project.
func (c *Client) TestConnection(ctx context.Context) error {
	if !c.IsConfigured() {
		return fmt.Errorf("jira client not configured")
	}

	url := fmt.Sprintf("%s/rest/api/2/project/%s", c.baseURL, c.project)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.username, c.apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("jira request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jira returned HTTP %d", resp.StatusCode)
	}
	return nil
}
