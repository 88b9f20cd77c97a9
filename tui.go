package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Run is the line-mode console used when stdin or stdout is not a terminal.
func Run(ctx context.Context, console *Console, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, console.Dashboard(ctx))
	console.TakeStatus()
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "q" || line == "quit" {
			break
		}
		fmt.Fprintln(out, handleCommand(ctx, console, line))
		if status := console.TakeStatus(); status != "" {
			fmt.Fprintln(out, "status: "+status)
		}
	}
	return scanner.Err()
}

func handleCommand(ctx context.Context, console *Console, line string) string {
	command, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch command {
	case "dash", "dashboard":
		return console.Dashboard(ctx)
	case "subs", "subscriptions":
		return console.Subscriptions(ctx)
	case "add":
		return console.CreateSubscription(ctx, rest)
	case "del", "delete":
		return console.DeleteSubscription(ctx, rest)
	case "pause":
		return console.PauseSubscription(ctx, rest)
	case "resume":
		return console.ResumeSubscription(ctx, rest)
	case "fetch":
		return console.FetchSubscription(ctx, rest)
	case "events":
		switch rest {
		case "n", "next":
			return console.NextEventsPage(ctx)
		case "p", "prev":
			return console.PrevEventsPage(ctx)
		}
		return console.Events(ctx)
	case "event":
		return console.EventDetail(ctx, rest)
	case "reports":
		switch rest {
		case "n", "next":
			return console.NextReportsPage(ctx)
		case "p", "prev":
			return console.PrevReportsPage(ctx)
		}
		return console.Reports(ctx)
	case "report":
		return console.ReportDetail(ctx, rest)
	case "gen", "generate":
		return console.GenerateReport(ctx, rest)
	case "rmreport":
		return console.DeleteReport(ctx, rest)
	case "templates":
		return console.Templates(ctx)
	case "chat", "ask":
		return console.Chat(ctx, rest)
	case "?", "help":
		return helpText()
	}
	return fmt.Sprintf("unknown command %q, type help", command)
}

func helpText() string {
	return strings.Join([]string{
		"Commands:",
		"  dash: dashboard",
		"  subs: list subscriptions",
		"  add name | description | type | url | cron: create subscription",
		"  del <id>: delete subscription",
		"  pause <id> / resume <id>: pause or resume subscription",
		"  fetch <id>: fetch a subscription now",
		"  events [n|p]: list events, next or previous page",
		"  event <id>: show event",
		"  reports [n|p]: list reports, next or previous page",
		"  report <id>: show report",
		"  gen title | type | start | end: generate report",
		"  rmreport <id>: delete report",
		"  templates: list report templates",
		"  chat <question>: ask the assistant",
		"  q: quit",
	}, "\n")
}
