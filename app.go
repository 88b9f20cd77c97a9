package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

const (
	defaultCronExpr   = "0 */6 * * *"
	defaultSourceType = "github_repo"
	defaultReportType = "weekly"

	chatUnavailable = "Service temporarily unavailable, please try again later."
)

// Console turns user actions into client calls and display text. It never
// returns an error: failures become text and a status line.
type Console struct {
	client     *Client
	dashboard  *Dashboard
	sessionKey string
	pageSize   int

	mu          sync.Mutex
	eventPage   int
	eventTotal  int
	reportPage  int
	reportTotal int
	chat        []ChatTurn
	status      string
	openURL     func(string) error
}

func NewConsole(client *Client, sessionKey string, pageSize int) *Console {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Console{
		client:     client,
		dashboard:  NewDashboard(client, pageSize),
		sessionKey: sessionKey,
		pageSize:   pageSize,
		eventPage:  DefaultPage,
		reportPage: DefaultPage,
		openURL:    defaultOpenURL,
	}
}

func (c *Console) Status() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// TakeStatus returns the status line and clears it.
func (c *Console) TakeStatus() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := c.status
	c.status = ""
	return status
}

func (c *Console) setStatus(format string, args ...any) {
	c.mu.Lock()
	c.status = fmt.Sprintf(format, args...)
	c.mu.Unlock()
}

// degraded records why a read rendered empty.
func (c *Console) degraded(section string, err error) {
	if err != nil {
		c.setStatus("%s unavailable: %s", section, KindOf(err))
	}
}

func (c *Console) Dashboard(ctx context.Context) string {
	summary := c.dashboard.Summary(ctx)
	if len(summary.Failures) > 0 {
		sections := make([]string, 0, len(summary.Failures))
		for _, section := range []string{"subscriptions", "events", "reports"} {
			if _, ok := summary.Failures[section]; ok {
				sections = append(sections, section)
			}
		}
		c.setStatus("dashboard partially unavailable: %s", strings.Join(sections, ", "))
	} else {
		c.setStatus("dashboard refreshed")
	}
	return FormatDashboard(summary)
}

func (c *Console) Subscriptions(ctx context.Context) string {
	subs, err := c.client.ListSubscriptions(ctx)
	c.degraded("subscriptions", err)
	return FormatSubscriptions(subs)
}

// SubscriptionList is the raw list behind the subscriptions tab, for
// selection. Failures give an empty list.
func (c *Console) SubscriptionList(ctx context.Context) []Subscription {
	subs, err := c.client.ListSubscriptions(ctx)
	c.degraded("subscriptions", err)
	return subs
}

func (c *Console) CreateSubscription(ctx context.Context, form string) string {
	input := ParseSubscriptionForm(form)
	id, err := c.client.CreateSubscription(ctx, input)
	return formatOutcome("Create subscription", fmt.Sprintf("ID %d", id), err)
}

func (c *Console) DeleteSubscription(ctx context.Context, rawID string) string {
	return formatOutcome("Delete subscription", "", c.client.DeleteSubscription(ctx, rawID))
}

func (c *Console) PauseSubscription(ctx context.Context, rawID string) string {
	return formatOutcome("Pause subscription", "", c.client.PauseSubscription(ctx, rawID))
}

func (c *Console) ResumeSubscription(ctx context.Context, rawID string) string {
	return formatOutcome("Resume subscription", "", c.client.ResumeSubscription(ctx, rawID))
}

func (c *Console) FetchSubscription(ctx context.Context, rawID string) string {
	result, err := c.client.FetchSubscription(ctx, rawID)
	if err != nil {
		return formatOutcome("Fetch", "", err)
	}
	return FormatFetchResult(result)
}

func (c *Console) OpenSource(sub Subscription) error {
	if err := c.openURL(sub.SourceURL); err != nil {
		c.setStatus("open failed: %v", err)
		return err
	}
	c.setStatus("opened %s", sub.SourceURL)
	return nil
}

func (c *Console) Events(ctx context.Context) string {
	c.mu.Lock()
	page := c.eventPage
	c.mu.Unlock()
	result, err := c.client.ListEvents(ctx, page, c.pageSize)
	c.degraded("events", err)
	if err == nil {
		c.mu.Lock()
		c.eventTotal = result.Total
		c.mu.Unlock()
	}
	return FormatEvents(result) + c.pageFooter(page, result.Total, err)
}

func (c *Console) NextEventsPage(ctx context.Context) string {
	c.mu.Lock()
	c.eventPage = nextPage(c.eventPage, c.pageSize, c.eventTotal)
	c.mu.Unlock()
	return c.Events(ctx)
}

func (c *Console) PrevEventsPage(ctx context.Context) string {
	c.mu.Lock()
	c.eventPage = prevPage(c.eventPage)
	c.mu.Unlock()
	return c.Events(ctx)
}

func (c *Console) EventDetail(ctx context.Context, rawID string) string {
	event, err := c.client.GetEvent(ctx, rawID)
	if err != nil {
		return formatOutcome("Load event", "", err)
	}
	return FormatEventDetail(event)
}

func (c *Console) Reports(ctx context.Context) string {
	c.mu.Lock()
	page := c.reportPage
	c.mu.Unlock()
	result, err := c.client.ListReports(ctx, page, c.pageSize)
	c.degraded("reports", err)
	if err == nil {
		c.mu.Lock()
		c.reportTotal = result.Total
		c.mu.Unlock()
	}
	return FormatReports(result) + c.pageFooter(page, result.Total, err)
}

func (c *Console) NextReportsPage(ctx context.Context) string {
	c.mu.Lock()
	c.reportPage = nextPage(c.reportPage, c.pageSize, c.reportTotal)
	c.mu.Unlock()
	return c.Reports(ctx)
}

func (c *Console) PrevReportsPage(ctx context.Context) string {
	c.mu.Lock()
	c.reportPage = prevPage(c.reportPage)
	c.mu.Unlock()
	return c.Reports(ctx)
}

func (c *Console) ReportDetail(ctx context.Context, rawID string) string {
	detail, err := c.client.GetReportDetail(ctx, rawID)
	if err != nil {
		return formatOutcome("Load report", "", err)
	}
	return FormatReportDetail(detail)
}

func (c *Console) GenerateReport(ctx context.Context, form string) string {
	report, err := c.client.GenerateReport(ctx, ParseReportForm(form))
	if err != nil {
		return formatOutcome("Generate report", "", err)
	}
	return FormatGeneratedReport(report)
}

func (c *Console) DeleteReport(ctx context.Context, rawID string) string {
	return formatOutcome("Delete report", "", c.client.DeleteReport(ctx, rawID))
}

func (c *Console) Templates(ctx context.Context) string {
	templates, err := c.client.ListTemplates(ctx)
	c.degraded("templates", err)
	return FormatTemplates(templates)
}

// Chat asks the assistant and appends the turn to the transcript. Any
// failure is shown as a generic unavailability notice.
func (c *Console) Chat(ctx context.Context, question string) string {
	answer, err := c.client.SendChatMessage(ctx, c.sessionKey, question)
	turn := ChatTurn{Question: strings.TrimSpace(question), Answer: answer}
	if err != nil {
		turn.Answer = chatUnavailable
		turn.Failed = true
	} else if strings.TrimSpace(answer) == "" {
		turn.Answer = "No response."
	}
	c.mu.Lock()
	c.chat = append(c.chat, turn)
	c.mu.Unlock()
	return turn.Answer
}

func (c *Console) Transcript() []ChatTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ChatTurn(nil), c.chat...)
}

func (c *Console) pageFooter(page, total int, err error) string {
	if err != nil || total == 0 {
		return ""
	}
	pages := (total + c.pageSize - 1) / c.pageSize
	return fmt.Sprintf("\nPage %d of %d", page, pages)
}

func nextPage(page, pageSize, total int) int {
	if page*pageSize < total {
		return page + 1
	}
	return page
}

func prevPage(page int) int {
	if page > DefaultPage {
		return page - 1
	}
	return DefaultPage
}

// ParseSubscriptionForm reads "name | description | source_type | source_url | cron_expr".
// Missing trailing fields fall back to defaults.
func ParseSubscriptionForm(form string) SubscriptionInput {
	fields := splitForm(form, 5)
	return SubscriptionInput{
		Name:        fields[0],
		Description: fields[1],
		SourceType:  firstNonEmpty(fields[2], defaultSourceType),
		SourceURL:   fields[3],
		CronExpr:    firstNonEmpty(fields[4], defaultCronExpr),
	}
}

// ParseReportForm reads "title | type | start | end".
func ParseReportForm(form string) ReportRequest {
	fields := splitForm(form, 4)
	return ReportRequest{
		Title:     fields[0],
		Type:      firstNonEmpty(fields[1], defaultReportType),
		StartTime: fields[2],
		EndTime:   fields[3],
	}
}

func splitForm(form string, n int) []string {
	parts := strings.SplitN(form, "|", n)
	fields := make([]string, n)
	for i := range fields {
		if i < len(parts) {
			fields[i] = strings.TrimSpace(parts[i])
		}
	}
	return fields
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
