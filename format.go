package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

const (
	titleWidth = 40
	nameWidth  = 32
	timeWidth  = 19
	ellipsis   = "…"
)

func FormatSubscriptions(subs []Subscription) string {
	if len(subs) == 0 {
		return "No subscriptions."
	}
	var b strings.Builder
	b.WriteString("| ID | Name | Type | Status | Created |\n|---|---|---|---|---|\n")
	for _, sub := range subs {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
			sub.ID, cell(sub.Name, nameWidth), cell(sub.SourceType, 0), cell(sub.Status.String(), 0), timestamp(sub.CreatedAt))
	}
	return b.String()
}

func FormatEvents(page Page[SecurityEvent]) string {
	if len(page.Items) == 0 {
		return fmt.Sprintf("No security events (%d total).", page.Total)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**%d events**\n\n", page.Total)
	b.WriteString("| ID | Title | Severity | Status | Time |\n|---|---|---|---|---|\n")
	for _, event := range page.Items {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
			event.ID, cell(event.Title, titleWidth), cell(event.Severity.String(), 0), cell(event.Status.String(), 0), timestamp(event.EventTime))
	}
	return b.String()
}

func FormatReports(page Page[Report]) string {
	if len(page.Items) == 0 {
		return fmt.Sprintf("No reports (%d total).", page.Total)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**%d reports**\n\n", page.Total)
	b.WriteString("| ID | Title | Type | Status | Created |\n|---|---|---|---|---|\n")
	for _, report := range page.Items {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
			report.ID, cell(report.Title, titleWidth), cell(report.Type, 0), cell(report.Status.String(), 0), timestamp(report.CreatedAt))
	}
	return b.String()
}

func FormatTemplates(templates []ReportTemplate) string {
	if len(templates) == 0 {
		return "No report templates."
	}
	var b strings.Builder
	b.WriteString("| ID | Name | Type | Default | Description |\n|---|---|---|---|---|\n")
	for _, tpl := range templates {
		def := ""
		if tpl.IsDefault {
			def = "yes"
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
			tpl.ID, cell(tpl.Name, nameWidth), cell(tpl.Type, 0), def, cell(tpl.Description, titleWidth))
	}
	return b.String()
}

func FormatDashboard(summary DashboardSummary) string {
	var b strings.Builder
	b.WriteString("## Overview\n\n")
	b.WriteString("| Metric | Count |\n|---|---|\n")
	fmt.Fprintf(&b, "| Subscriptions | %d |\n", summary.SubscriptionCount)
	fmt.Fprintf(&b, "| Security events | %d |\n", summary.EventTotal)
	fmt.Fprintf(&b, "| Reports | %d |\n", summary.ReportTotal)
	b.WriteString("\n### Recent subscriptions\n\n")
	if len(summary.RecentSubscriptions) == 0 {
		b.WriteString("No subscriptions.\n")
		return b.String()
	}
	for _, sub := range summary.RecentSubscriptions {
		marker := "○"
		if sub.Status == "active" {
			marker = "●"
		}
		fmt.Fprintf(&b, "- %s **%s** (%s)\n", marker, cell(sub.Name, nameWidth), sub.SourceType)
	}
	return b.String()
}

func FormatReportDetail(detail ReportDetail) string {
	content := strings.TrimSpace(detail.Content)
	if content == "" {
		content = "No content."
	}
	header := []string{"# " + valueOrFallback(detail.Title, fmt.Sprintf("Report %d", detail.ID))}
	meta := []string{}
	if detail.Type != "" {
		meta = append(meta, "type: "+detail.Type)
	}
	if detail.Status != "" {
		meta = append(meta, "status: "+detail.Status.String())
	}
	if detail.StartTime != "" || detail.EndTime != "" {
		meta = append(meta, "range: "+timestamp(detail.StartTime)+" → "+timestamp(detail.EndTime))
	}
	if len(meta) > 0 {
		header = append(header, "_"+strings.Join(meta, " · ")+"_")
	}
	if detail.ErrorMsg != "" {
		header = append(header, "**Error:** "+detail.ErrorMsg)
	}
	return strings.Join(header, "\n\n") + "\n\n" + content
}

func FormatEventDetail(event EventDetail) string {
	lines := []string{
		"# " + valueOrFallback(event.Title, fmt.Sprintf("Event %d", event.ID)),
		"",
		"- Severity: " + valueOrFallback(event.Severity.String(), "unknown"),
		"- Status: " + valueOrFallback(event.Status.String(), "unknown"),
		"- Time: " + valueOrFallback(timestamp(event.EventTime), "unknown"),
	}
	if event.CVEID != "" {
		lines = append(lines, "- CVE: "+event.CVEID)
	}
	if event.Source != "" || event.SourceURL != "" {
		lines = append(lines, "- Source: "+strings.TrimSpace(event.Source+" "+event.SourceURL))
	}
	if event.Description != "" {
		lines = append(lines, "", event.Description)
	}
	if event.Recommendation != "" {
		lines = append(lines, "", "**Recommendation:** "+event.Recommendation)
	}
	return strings.Join(lines, "\n")
}

func FormatGeneratedReport(report GeneratedReport) string {
	return fmt.Sprintf("✅ Report generated\n\nID: %d\n\n**Summary:**\n%s", report.ReportID, report.Summary)
}

func FormatFetchResult(result FetchResult) string {
	text := fmt.Sprintf("✅ Fetch finished: %d fetched, %d new, %d total events", result.FetchedCount, result.NewCount, result.TotalEvents)
	if result.Message != "" {
		text += " (" + result.Message + ")"
	}
	return text
}

func FormatChatTranscript(turns []ChatTurn) string {
	if len(turns) == 0 {
		return "Ask the assistant about current time, the event database or the security posture."
	}
	parts := make([]string, 0, len(turns))
	for _, turn := range turns {
		parts = append(parts, "> "+turn.Question+"\n\n"+turn.Answer)
	}
	return strings.Join(parts, "\n\n")
}

// formatOutcome renders the result of a mutating call, including the error
// kind and whatever the backend said.
func formatOutcome(action, success string, err error) string {
	if err == nil {
		if success == "" {
			return "✅ " + action + " succeeded"
		}
		return "✅ " + action + " succeeded: " + success
	}
	kind := KindOf(err)
	if kind == "" {
		kind = KindRequestFailed
	}
	return fmt.Sprintf("❌ %s failed [%s]: %s", action, kind, MessageOf(err))
}

// cell makes value safe for a markdown table cell and bounds its width.
// Zero width means no bound.
func cell(value string, width int) string {
	value = strings.Join(strings.Fields(value), " ")
	value = strings.ReplaceAll(value, "|", "\\|")
	if width > 0 {
		value = truncate(value, width)
	}
	return value
}

func timestamp(value string) string {
	return ansi.Truncate(strings.TrimSpace(value), timeWidth, "")
}

func truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	if max <= 0 {
		return ""
	}
	return ansi.Truncate(value, max, ellipsis)
}

func valueOrFallback(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
