package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPage       = 1
	DefaultPageSize   = 20
	defaultTemplateID = 1
)

// Client has one method per backend capability. Every failure is an
// *APIError and is also written to the client's logger.
type Client struct {
	transport     *Transport
	sessions      SessionStore
	logger        *zap.Logger
	templateID    int
	reportTimeout time.Duration
	chatTimeout   time.Duration
}

type ClientOption func(*Client)

func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithTemplateID(id int) ClientOption {
	return func(c *Client) {
		if id > 0 {
			c.templateID = id
		}
	}
}

func WithReportTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.reportTimeout = d
		}
	}
}

func WithChatTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.chatTimeout = d
		}
	}
}

func NewClient(transport *Transport, sessions SessionStore, opts ...ClientOption) *Client {
	if sessions == nil {
		sessions = NewMemorySessionStore()
	}
	c := &Client{
		transport:     transport,
		sessions:      sessions,
		logger:        zap.NewNop(),
		templateID:    defaultTemplateID,
		reportTimeout: defaultReportTimeout,
		chatTimeout:   defaultChatTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type pageData[T any] struct {
	List  []T `json:"list"`
	Items []T `json:"items"`
	Total int `json:"total"`
}

func (p pageData[T]) page() Page[T] {
	items := p.List
	if items == nil {
		items = p.Items
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: p.Total}
}

func (c *Client) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	var data pageData[Subscription]
	if err := c.call(ctx, "list subscriptions", http.MethodGet, "/subscriptions", Request{}, &data); err != nil {
		return []Subscription{}, err
	}
	return data.page().Items, nil
}

func (c *Client) CreateSubscription(ctx context.Context, input SubscriptionInput) (int, error) {
	const op = "create subscription"
	input.Name = strings.TrimSpace(input.Name)
	input.SourceType = strings.TrimSpace(input.SourceType)
	if input.Name == "" {
		return 0, c.fail(invalidInput(op, "name is required"))
	}
	if !isOneOf(input.SourceType, sourceTypes) {
		return 0, c.fail(invalidInput(op, "unknown source type %q", input.SourceType))
	}
	var data struct {
		ID int `json:"id"`
	}
	if err := c.call(ctx, op, http.MethodPost, "/subscriptions", Request{Body: input}, &data); err != nil {
		return 0, err
	}
	return data.ID, nil
}

func (c *Client) DeleteSubscription(ctx context.Context, rawID string) error {
	return c.subscriptionAction(ctx, "delete subscription", http.MethodDelete, rawID, "")
}

func (c *Client) PauseSubscription(ctx context.Context, rawID string) error {
	return c.subscriptionAction(ctx, "pause subscription", http.MethodPost, rawID, "/pause")
}

func (c *Client) ResumeSubscription(ctx context.Context, rawID string) error {
	return c.subscriptionAction(ctx, "resume subscription", http.MethodPost, rawID, "/resume")
}

func (c *Client) subscriptionAction(ctx context.Context, op, method, rawID, suffix string) error {
	id, err := c.parseID(op, rawID)
	if err != nil {
		return err
	}
	return c.call(ctx, op, method, fmt.Sprintf("/subscriptions/%d%s", id, suffix), Request{}, nil)
}

// FetchSubscription asks the backend to poll a source now. The backend does
// the fetching, so this waits as long as report generation does.
func (c *Client) FetchSubscription(ctx context.Context, rawID string) (FetchResult, error) {
	const op = "fetch subscription"
	id, err := c.parseID(op, rawID)
	if err != nil {
		return FetchResult{}, err
	}
	var data FetchResult
	req := Request{Timeout: c.reportTimeout}
	if err := c.call(ctx, op, http.MethodPost, fmt.Sprintf("/subscriptions/%d/fetch", id), req, &data); err != nil {
		return FetchResult{}, err
	}
	return data, nil
}

func (c *Client) ListEvents(ctx context.Context, page, pageSize int) (Page[SecurityEvent], error) {
	var data pageData[SecurityEvent]
	if err := c.call(ctx, "list events", http.MethodGet, "/event", Request{Query: pageQuery(page, pageSize)}, &data); err != nil {
		return Page[SecurityEvent]{Items: []SecurityEvent{}}, err
	}
	return data.page(), nil
}

func (c *Client) GetEvent(ctx context.Context, rawID string) (EventDetail, error) {
	const op = "get event"
	id, err := c.parseID(op, rawID)
	if err != nil {
		return EventDetail{}, err
	}
	var data EventDetail
	if err := c.call(ctx, op, http.MethodGet, fmt.Sprintf("/event/%d", id), Request{}, &data); err != nil {
		return EventDetail{}, err
	}
	return data, nil
}

func (c *Client) ListReports(ctx context.Context, page, pageSize int) (Page[Report], error) {
	var data pageData[Report]
	if err := c.call(ctx, "list reports", http.MethodGet, "/report", Request{Query: pageQuery(page, pageSize)}, &data); err != nil {
		return Page[Report]{Items: []Report{}}, err
	}
	return data.page(), nil
}

func (c *Client) GetReportDetail(ctx context.Context, rawID string) (ReportDetail, error) {
	const op = "get report"
	id, err := c.parseID(op, rawID)
	if err != nil {
		return ReportDetail{}, err
	}
	var data ReportDetail
	if err := c.call(ctx, op, http.MethodGet, fmt.Sprintf("/report/%d", id), Request{}, &data); err != nil {
		return ReportDetail{}, err
	}
	return data, nil
}

// GenerateReport blocks until the backend has synthesized the report, which
// can take minutes. Abandoning ctx does not stop the backend.
func (c *Client) GenerateReport(ctx context.Context, req ReportRequest) (GeneratedReport, error) {
	const op = "generate report"
	req.Title = strings.TrimSpace(req.Title)
	req.Type = strings.TrimSpace(req.Type)
	if req.Title == "" {
		return GeneratedReport{}, c.fail(invalidInput(op, "title is required"))
	}
	if !isOneOf(req.Type, reportTypes) {
		return GeneratedReport{}, c.fail(invalidInput(op, "unknown report type %q", req.Type))
	}
	if req.TemplateID <= 0 {
		req.TemplateID = c.templateID
	}
	var data GeneratedReport
	if err := c.call(ctx, op, http.MethodPost, "/report/generate", Request{Body: req, Timeout: c.reportTimeout}, &data); err != nil {
		return GeneratedReport{}, err
	}
	return data, nil
}

func (c *Client) DeleteReport(ctx context.Context, rawID string) error {
	const op = "delete report"
	id, err := c.parseID(op, rawID)
	if err != nil {
		return err
	}
	return c.call(ctx, op, http.MethodDelete, fmt.Sprintf("/report/%d", id), Request{}, nil)
}

func (c *Client) ListTemplates(ctx context.Context) ([]ReportTemplate, error) {
	var data pageData[ReportTemplate]
	if err := c.call(ctx, "list templates", http.MethodGet, "/report/template", Request{}, &data); err != nil {
		return []ReportTemplate{}, err
	}
	return data.page().Items, nil
}

// SendChatMessage asks the assistant a question inside the conversation
// identified by sessionKey.
func (c *Client) SendChatMessage(ctx context.Context, sessionKey, question string) (string, error) {
	const op = "chat"
	question = strings.TrimSpace(question)
	if question == "" {
		return "", c.fail(invalidInput(op, "question is required"))
	}
	sessionID, err := c.sessions.SessionID(ctx, sessionKey)
	if err != nil {
		if errors.Is(err, errEmptySessionKey) {
			return "", c.fail(invalidInput(op, "session key is required"))
		}
		return "", c.fail(requestFailed(op, fmt.Errorf("resolve session: %w", err)))
	}
	body := map[string]string{"id": sessionID, "question": question}
	var data struct {
		Answer string `json:"answer"`
	}
	if err := c.call(ctx, op, http.MethodPost, "/chat", Request{Body: body, Timeout: c.chatTimeout}, &data); err != nil {
		return "", err
	}
	return data.Answer, nil
}

func (c *Client) call(ctx context.Context, op, method, path string, req Request, out any) error {
	env, err := c.transport.Send(ctx, method, path, req)
	if err != nil {
		return c.fail(requestFailed(op, err))
	}
	if *env.Message != "OK" {
		return c.fail(backendRejected(op, *env.Message))
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return c.fail(requestFailed(op, fmt.Errorf("decode data: %w", err)))
	}
	return nil
}

func (c *Client) fail(err *APIError) error {
	c.logger.Warn("backend call failed",
		zap.String("op", err.Op),
		zap.String("kind", string(err.Kind)),
		zap.String("message", err.Message),
	)
	return err
}

func (c *Client) parseID(op, raw string) (int, error) {
	id, err := parseID(raw)
	if err != nil {
		return 0, c.fail(invalidInput(op, "%v", err))
	}
	return id, nil
}

// parseID accepts "12" and integral numbers like "12.0", the way numeric
// form fields hand them over.
func parseID(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("id is required")
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
			return 0, fmt.Errorf("id %q is not an integer", raw)
		}
		id = int(f)
	}
	if id < 1 {
		return 0, fmt.Errorf("id %d must be positive", id)
	}
	return id, nil
}

func pageQuery(page, pageSize int) url.Values {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))
	return query
}
