package main

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

const recentSubscriptionLimit = 5

// DashboardSource is the subset of Client the dashboard reads from.
type DashboardSource interface {
	ListSubscriptions(ctx context.Context) ([]Subscription, error)
	ListEvents(ctx context.Context, page, pageSize int) (Page[SecurityEvent], error)
	ListReports(ctx context.Context, page, pageSize int) (Page[Report], error)
}

type DashboardSummary struct {
	SubscriptionCount   int
	EventTotal          int
	ReportTotal         int
	RecentSubscriptions []Subscription
	// Failures is keyed by section: "subscriptions", "events", "reports".
	Failures map[string]error
}

type Dashboard struct {
	source   DashboardSource
	pageSize int
}

func NewDashboard(source DashboardSource, pageSize int) *Dashboard {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Dashboard{source: source, pageSize: pageSize}
}

// Summary fetches all three sections concurrently. A failing section leaves
// its own fields zero and never affects the others. Nothing is cached.
func (d *Dashboard) Summary(ctx context.Context) DashboardSummary {
	summary := DashboardSummary{
		RecentSubscriptions: []Subscription{},
		Failures:            map[string]error{},
	}
	var mu sync.Mutex
	record := func(section string, err error) {
		mu.Lock()
		summary.Failures[section] = err
		mu.Unlock()
	}

	var group errgroup.Group
	group.Go(func() error {
		subs, err := d.source.ListSubscriptions(ctx)
		if err != nil {
			record("subscriptions", err)
			return nil
		}
		recent := subs
		if len(recent) > recentSubscriptionLimit {
			recent = recent[:recentSubscriptionLimit]
		}
		mu.Lock()
		summary.SubscriptionCount = len(subs)
		summary.RecentSubscriptions = append([]Subscription{}, recent...)
		mu.Unlock()
		return nil
	})
	group.Go(func() error {
		events, err := d.source.ListEvents(ctx, DefaultPage, d.pageSize)
		if err != nil {
			record("events", err)
			return nil
		}
		mu.Lock()
		summary.EventTotal = events.Total
		mu.Unlock()
		return nil
	})
	group.Go(func() error {
		reports, err := d.source.ListReports(ctx, DefaultPage, d.pageSize)
		if err != nil {
			record("reports", err)
			return nil
		}
		mu.Lock()
		summary.ReportTotal = reports.Total
		mu.Unlock()
		return nil
	})
	_ = group.Wait()
	return summary
}
