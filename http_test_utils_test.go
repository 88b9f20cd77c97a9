package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newResponse(status int, body string, headers map[string]string, req *http.Request) *http.Response {
	resp := &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
		Request:    req,
	}
	for k, v := range headers {
		resp.Header.Set(k, v)
	}
	return resp
}

func clientForResponse(status int, body string, headers map[string]string) *http.Client {
	return &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return newResponse(status, body, headers, r), nil
	})}
}

// fakeBackend is an in-process stand-in for the REST backend. Setting reject
// makes every endpoint answer with that message instead of "OK".
type fakeBackend struct {
	server *httptest.Server

	mu         sync.Mutex
	requests   int
	reject     string
	subs       []Subscription
	nextID     int
	events     []SecurityEvent
	reports    []ReportDetail
	templates  []ReportTemplate
	chatIDs    []string
	answer     string
	lastQuery  url.Values
	lastReport ReportRequest
	delay      time.Duration
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{nextID: 1, answer: "All quiet."}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /subscriptions", b.listSubscriptions)
	mux.HandleFunc("POST /subscriptions", b.createSubscription)
	mux.HandleFunc("DELETE /subscriptions/{id}", b.deleteSubscription)
	mux.HandleFunc("POST /subscriptions/{id}/pause", b.setStatus("paused"))
	mux.HandleFunc("POST /subscriptions/{id}/resume", b.setStatus("active"))
	mux.HandleFunc("POST /subscriptions/{id}/fetch", b.fetch)
	mux.HandleFunc("GET /event", b.listEvents)
	mux.HandleFunc("GET /event/{id}", b.getEvent)
	mux.HandleFunc("GET /report", b.listReports)
	mux.HandleFunc("GET /report/template", b.listTemplates)
	mux.HandleFunc("GET /report/{id}", b.getReport)
	mux.HandleFunc("DELETE /report/{id}", b.deleteReport)
	mux.HandleFunc("POST /report/generate", b.generateReport)
	mux.HandleFunc("POST /chat", b.chat)
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests++
		reject := b.reject
		delay := b.delay
		b.mu.Unlock()
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		if reject != "" {
			writeEnvelope(w, reject, nil)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) URL() string {
	return b.server.URL
}

func (b *fakeBackend) Requests() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests
}

func (b *fakeBackend) Reject(message string) {
	b.mu.Lock()
	b.reject = message
	b.mu.Unlock()
}

func (b *fakeBackend) SetDelay(d time.Duration) {
	b.mu.Lock()
	b.delay = d
	b.mu.Unlock()
}

func (b *fakeBackend) SetEvents(events []SecurityEvent) {
	b.mu.Lock()
	b.events = events
	b.mu.Unlock()
}

func (b *fakeBackend) SetTemplates(templates []ReportTemplate) {
	b.mu.Lock()
	b.templates = templates
	b.mu.Unlock()
}

func (b *fakeBackend) SetAnswer(answer string) {
	b.mu.Lock()
	b.answer = answer
	b.mu.Unlock()
}

func (b *fakeBackend) SetReports(reports []ReportDetail) {
	b.mu.Lock()
	b.reports = reports
	b.mu.Unlock()
}

func (b *fakeBackend) LastQuery() url.Values {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastQuery
}

func (b *fakeBackend) LastReport() ReportRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastReport
}

func writeEnvelope(w http.ResponseWriter, message string, data any) {
	w.Header().Set("content-type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"message": message, "data": data})
}

func pathID(r *http.Request) int {
	id, _ := strconv.Atoi(r.PathValue("id"))
	return id
}

func (b *fakeBackend) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeEnvelope(w, "OK", map[string]any{"list": b.subs, "total": len(b.subs)})
}

func (b *fakeBackend) createSubscription(w http.ResponseWriter, r *http.Request) {
	var input SubscriptionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeEnvelope(w, "bad request body", nil)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := Subscription{
		ID:          b.nextID,
		Name:        input.Name,
		Description: input.Description,
		SourceType:  input.SourceType,
		SourceURL:   input.SourceURL,
		CronExpr:    input.CronExpr,
		Status:      "active",
		CreatedAt:   "2026-02-12T09:30:00Z",
	}
	b.nextID++
	b.subs = append(b.subs, sub)
	writeEnvelope(w, "OK", map[string]int{"id": sub.ID})
}

func (b *fakeBackend) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub.ID == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			writeEnvelope(w, "OK", nil)
			return
		}
	}
	writeEnvelope(w, "subscription not found", nil)
}

func (b *fakeBackend) setStatus(status Label) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := pathID(r)
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.subs {
			if b.subs[i].ID == id {
				b.subs[i].Status = status
				writeEnvelope(w, "OK", nil)
				return
			}
		}
		writeEnvelope(w, "subscription not found", nil)
	}
}

func (b *fakeBackend) fetch(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, "OK", FetchResult{FetchedCount: 4, NewCount: 2, TotalEvents: 12, Message: "done"})
}

func (b *fakeBackend) listEvents(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastQuery = r.URL.Query()
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	writeEnvelope(w, "OK", map[string]any{"list": pageSlice(b.events, page, size), "total": len(b.events)})
}

func (b *fakeBackend) getEvent(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, event := range b.events {
		if event.ID == id {
			writeEnvelope(w, "OK", EventDetail{SecurityEvent: event, Description: "details for " + event.Title})
			return
		}
	}
	writeEnvelope(w, "event not found", nil)
}

func (b *fakeBackend) listReports(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastQuery = r.URL.Query()
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	reports := make([]Report, 0, len(b.reports))
	for _, detail := range b.reports {
		reports = append(reports, detail.Report)
	}
	writeEnvelope(w, "OK", map[string]any{"list": pageSlice(reports, page, size), "total": len(reports)})
}

func (b *fakeBackend) getReport(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, detail := range b.reports {
		if detail.ID == id {
			writeEnvelope(w, "OK", detail)
			return
		}
	}
	writeEnvelope(w, "report not found", nil)
}

func (b *fakeBackend) deleteReport(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, detail := range b.reports {
		if detail.ID == id {
			b.reports = append(b.reports[:i], b.reports[i+1:]...)
			writeEnvelope(w, "OK", nil)
			return
		}
	}
	writeEnvelope(w, "report not found", nil)
}

func (b *fakeBackend) listTemplates(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeEnvelope(w, "OK", map[string]any{"list": b.templates, "total": len(b.templates)})
}

func (b *fakeBackend) generateReport(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, "bad request body", nil)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastReport = req
	id := len(b.reports) + 100
	b.reports = append(b.reports, ReportDetail{
		Report:  Report{ID: id, Title: req.Title, Type: req.Type, Status: "completed"},
		Content: "Generated content",
	})
	writeEnvelope(w, "OK", GeneratedReport{ReportID: id, Title: req.Title, Summary: "3 critical findings", Status: "completed"})
}

func (b *fakeBackend) chat(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID       string `json:"id"`
		Question string `json:"question"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeEnvelope(w, "bad request body", nil)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chatIDs = append(b.chatIDs, body.ID)
	writeEnvelope(w, "OK", map[string]string{"answer": b.answer})
}

func (b *fakeBackend) ChatIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.chatIDs...)
}

func pageSlice[T any](items []T, page, size int) []T {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = len(items)
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func newTestClient(t *testing.T, baseURL string, opts ...ClientOption) *Client {
	t.Helper()
	return NewClient(NewTransport(baseURL, 2*time.Second, nil), NewMemorySessionStore(), opts...)
}

func sampleEvents(n int) []SecurityEvent {
	events := make([]SecurityEvent, 0, n)
	for i := 1; i <= n; i++ {
		events = append(events, SecurityEvent{
			ID:        i,
			Title:     "Event " + strconv.Itoa(i),
			Severity:  "high",
			Status:    "new",
			EventTime: "2026-02-12T08:00:00Z",
		})
	}
	return events
}
