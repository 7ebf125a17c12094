package utils

import "alertmon/internal/models"

// ShouldNotifySlack determines if a severity level should trigger Slack notification
func ShouldNotifySlack(severity models.Severity) bool {
	return severity == models.SeverityCritical ||
		severity == models.SeverityWarning ||
		severity == models.SeverityInfo
}

// ShouldNotifySlackForResolution determines if resolution should be sent to Slack
func ShouldNotifySlackForResolution(severity models.Severity) bool {
	return severity == models.SeverityCritical || severity == models.SeverityWarning
}

// GetChannelForSeverity returns the appropriate Slack channel based on alert severity
func GetChannelForSeverity(severity models.Severity, channels map[string]string) string {
	switch severity {
	case models.SeverityCritical:
		if ch, ok := channels["critical"]; ok {
			return ch
		}
	case models.SeverityWarning, models.SeverityInfo:
		if ch, ok := channels["default"]; ok {
			return ch
		}
	}
	return channels["default"]
}
