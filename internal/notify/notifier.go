package notify

import (
	"context"
	"time"
)

// RunMessage is the notification sent after a pipeline run.
type RunMessage struct {
	RunID      string            `json:"run_id"`
	Status     string            `json:"status"`
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration"`
	Loaded     map[string]int    `json:"loaded"`
	Fillers    map[string]int    `json:"fillers"`
	Errors     []string          `json:"errors,omitempty"`
	ReportURLs []string          `json:"report_urls,omitempty"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// Notifier sends run notifications.
type Notifier interface {
	Notify(ctx context.Context, msg RunMessage) error
}
