package domain

import "time"

// Notification is a human-readable status message for the operator.
type Notification struct {
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// Icon returns the prefix used when rendering the notification as chat text.
func (n Notification) Icon() string {
	switch n.Severity {
	case SeveritySuccess:
		return "✅"
	case SeverityError:
		return "❌"
	default:
		return "ℹ️"
	}
}
