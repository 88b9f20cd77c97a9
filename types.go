package main

import (
	"bytes"
	"encoding/json"
)

// Label is a backend-defined enum value (status, severity). The backend has
// sent both strings and numbers for these, so both decode.
type Label string

func (l *Label) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Label(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*l = Label(n.String())
	return nil
}

func (l Label) String() string {
	return string(l)
}

type Subscription struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SourceType  string `json:"source_type"`
	SourceURL   string `json:"source_url"`
	CronExpr    string `json:"cron_expr"`
	Status      Label  `json:"status"`
	TotalEvents int    `json:"total_events"`
	LastFetchAt string `json:"last_fetch_at"`
	CreatedAt   string `json:"created_at"`
}

type SubscriptionInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SourceType  string `json:"source_type"`
	SourceURL   string `json:"source_url"`
	CronExpr    string `json:"cron_expr"`
}

type SecurityEvent struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Severity  Label  `json:"severity"`
	Status    Label  `json:"status"`
	CVEID     string `json:"cve_id"`
	EventTime string `json:"event_time"`
}

type EventDetail struct {
	SecurityEvent
	Description    string `json:"description"`
	Source         string `json:"source"`
	SourceURL      string `json:"source_url"`
	Recommendation string `json:"recommendation"`
}

type Report struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	Type          string `json:"type"`
	Status        Label  `json:"status"`
	Summary       string `json:"summary"`
	EventCount    int    `json:"event_count"`
	CriticalCount int    `json:"critical_count"`
	HighCount     int    `json:"high_count"`
	CreatedAt     string `json:"created_at"`
}

type ReportDetail struct {
	Report
	Content     string `json:"content"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	GeneratedBy string `json:"generated_by"`
	ErrorMsg    string `json:"error_msg"`
}

type ReportRequest struct {
	Title      string `json:"title"`
	Type       string `json:"type"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	TemplateID int    `json:"template_id"`
}

type GeneratedReport struct {
	ReportID int    `json:"report_id"`
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Status   Label  `json:"status"`
}

type ReportTemplate struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
	IsDefault   bool   `json:"is_default"`
}

type FetchResult struct {
	FetchedCount int    `json:"fetched_count"`
	NewCount     int    `json:"new_count"`
	TotalEvents  int    `json:"total_events"`
	DurationMS   int    `json:"duration_ms"`
	Message      string `json:"message"`
}

// Page is one slice of a paginated listing. Total is the backend's count and
// may exceed len(Items).
type Page[T any] struct {
	Items []T
	Total int
}

type ChatTurn struct {
	Question string
	Answer   string
	Failed   bool
}

var (
	sourceTypes = []string{"github_repo", "rss", "nvd", "cve", "vulnerability", "threat_intel"}
	reportTypes = []string{"daily", "weekly", "monthly", "custom"}
)

func isOneOf(value string, allowed []string) bool {
	for _, candidate := range allowed {
		if candidate == value {
			return true
		}
	}
	return false
}
