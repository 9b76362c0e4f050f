package hxlookup

import (
	"bytes"
	"context"
	"encoding/json"
	"html"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
)

// TestResult holds the response of a component request for assertions.
type TestResult struct {
	HTML            string
	StatusCode      int
	Headers         http.Header
	TriggeredEvents []string
	// EventData holds the detail of every event sent with data.
	EventData map[string]map[string]any
	Flashes   []Flash
}

// TestRender hydrates props and renders comp without any HTTP mechanics.
func TestRender[P any](ctx context.Context, comp Lifecycle[P], props P) (*TestResult, error) {
	if err := comp.Hydrate(ctx, &props); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := comp.Render(ctx, props).Render(ctx, &buf); err != nil {
		return nil, err
	}
	return &TestResult{
		HTML:       buf.String(),
		StatusCode: http.StatusOK,
		Headers:    make(http.Header),
	}, nil
}

// TestAction sends an HTMX request for actionURL to comp.
//
//	result, err := hxlookup.TestAction(comp, chooseURL, "POST", map[string]string{"id": "acc-1"})
func TestAction(comp HXComponent, actionURL, method string, formData map[string]string) (*TestResult, error) {
	return NewTestRequest(method, actionURL).WithFormValues(formData).Execute(comp)
}

// TestGet simulates a GET request (render) against comp.
func TestGet(comp HXComponent, url string) (*TestResult, error) {
	return TestAction(comp, url, http.MethodGet, nil)
}

// TestPost simulates a POST request against comp.
func TestPost(comp HXComponent, url string, formData map[string]string) (*TestResult, error) {
	return TestAction(comp, url, http.MethodPost, formData)
}

// HTMLContains checks if the HTML contains a substring.
func (r *TestResult) HTMLContains(substr string) bool {
	return strings.Contains(r.HTML, substr)
}

// HTMLContainsAll checks if the HTML contains all the given substrings.
func (r *TestResult) HTMLContainsAll(substrs ...string) bool {
	for _, s := range substrs {
		if !strings.Contains(r.HTML, s) {
			return false
		}
	}
	return true
}

// HasEvent checks if an event was triggered.
func (r *TestResult) HasEvent(event string) bool {
	for _, e := range r.TriggeredEvents {
		if e == event {
			return true
		}
	}
	return false
}

// HasFlash checks if a flash with the given level and message was sent.
func (r *TestResult) HasFlash(level, message string) bool {
	for _, f := range r.Flashes {
		if f.Level == level && f.Message == message {
			return true
		}
	}
	return false
}

// HasFlashLevel checks if any flash message was set with the given level.
func (r *TestResult) HasFlashLevel(level string) bool {
	for _, f := range r.Flashes {
		if f.Level == level {
			return true
		}
	}
	return false
}

// IsOK checks if the status code is 200.
func (r *TestResult) IsOK() bool {
	return r.StatusCode == http.StatusOK
}

// HasStatus checks if the status code matches.
func (r *TestResult) HasStatus(code int) bool {
	return r.StatusCode == code
}

// HasHeader checks if a header is set with the given value.
func (r *TestResult) HasHeader(key, value string) bool {
	return r.Headers.Get(key) == value
}

// parseTriggerHeader splits an HX-Trigger value into event names, in
// header order for the list form, and the detail objects of the JSON form.
func parseTriggerHeader(trigger string) ([]string, map[string]map[string]any) {
	trigger = strings.TrimSpace(trigger)
	if trigger == "" {
		return nil, nil
	}
	if strings.HasPrefix(trigger, "{") {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal([]byte(trigger), &raw); err != nil {
			return nil, nil
		}
		names := make([]string, 0, len(raw))
		data := make(map[string]map[string]any)
		for name, msg := range raw {
			names = append(names, name)
			var detail map[string]any
			if json.Unmarshal(msg, &detail) == nil && detail != nil {
				data[name] = detail
			}
		}
		return names, data
	}

	var names []string
	for _, p := range strings.Split(trigger, ",") {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names, nil
}

// between returns the text of s between from and the following to, and the
// index just after to.
func between(s, from, to string) (string, int, bool) {
	start := strings.Index(s, from)
	if start == -1 {
		return "", 0, false
	}
	start += len(from)
	end := strings.Index(s[start:], to)
	if end == -1 {
		return "", 0, false
	}
	return s[start : start+end], start + end + len(to), true
}

// parseFlashesFromHTML extracts the toasts RenderFlashesOOB wrote.
func parseFlashesFromHTML(doc string) []Flash {
	var flashes []Flash
	for {
		level, next, ok := between(doc, `<div class="toast toast-`, `"`)
		if !ok {
			return flashes
		}
		doc = doc[next:]
		body, next, ok := between(doc, ">", `</span></div>`)
		if !ok {
			return flashes
		}
		doc = doc[next:]

		f := Flash{Level: html.UnescapeString(level)}
		if title, _, ok := between(body, `<strong class="toast-title">`, `</strong>`); ok {
			f.Title = html.UnescapeString(title)
		}
		if i := strings.Index(body, `<span class="toast-message">`); i != -1 {
			f.Message = html.UnescapeString(body[i+len(`<span class="toast-message">`):])
		}
		flashes = append(flashes, f)
	}
}

// TestRequestBuilder builds a component test request.
//
//	result, err := hxlookup.NewTestRequest("POST", actionURL).
//	    WithFormData("q", "acme").
//	    WithContext(ctx).
//	    Execute(comp)
type TestRequestBuilder struct {
	method   string
	url      string
	formData map[string]string
	headers  map[string]string
	ctx      context.Context
	noHTMX   bool
}

// NewTestRequest creates a new test request builder.
func NewTestRequest(method, url string) *TestRequestBuilder {
	return &TestRequestBuilder{
		method:   method,
		url:      url,
		formData: make(map[string]string),
		headers:  make(map[string]string),
		ctx:      context.Background(),
	}
}

// WithFormData adds form data to the request.
func (b *TestRequestBuilder) WithFormData(key, value string) *TestRequestBuilder {
	b.formData[key] = value
	return b
}

// WithFormValues adds multiple form values to the request.
func (b *TestRequestBuilder) WithFormValues(data map[string]string) *TestRequestBuilder {
	for k, v := range data {
		b.formData[k] = v
	}
	return b
}

// WithHeader adds a header to the request.
func (b *TestRequestBuilder) WithHeader(key, value string) *TestRequestBuilder {
	b.headers[key] = value
	return b
}

// WithContext sets the context for the request.
func (b *TestRequestBuilder) WithContext(ctx context.Context) *TestRequestBuilder {
	b.ctx = ctx
	return b
}

// WithoutHTMX drops the HX-Request header.
func (b *TestRequestBuilder) WithoutHTMX() *TestRequestBuilder {
	b.noHTMX = true
	return b
}

// Request builds the *http.Request.
func (b *TestRequestBuilder) Request() *http.Request {
	form := url.Values{}
	for k, v := range b.formData {
		form.Set(k, v)
	}
	req := httptest.NewRequest(b.method, b.url, strings.NewReader(form.Encode()))
	req = req.WithContext(b.ctx)
	if !b.noHTMX {
		req.Header.Set("HX-Request", "true")
	}
	if len(b.formData) > 0 {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}
	return req
}

// Execute sends the request to comp.
func (b *TestRequestBuilder) Execute(comp HXComponent) (*TestResult, error) {
	return b.ServeWith(http.HandlerFunc(comp.HXServeHTTP))
}

// ServeWith sends the request to h, for example a Registry handler.
func (b *TestRequestBuilder) ServeWith(h http.Handler) (*TestResult, error) {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, b.Request())

	result := &TestResult{
		HTML:       rec.Body.String(),
		StatusCode: rec.Code,
		Headers:    rec.Header(),
	}
	result.TriggeredEvents, result.EventData = parseTriggerHeader(rec.Header().Get("HX-Trigger"))
	result.Flashes = parseFlashesFromHTML(result.HTML)
	return result, nil
}
