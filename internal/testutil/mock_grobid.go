// Package testutil provides testing utilities for the GROBID client.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock GROBID endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// SubmittedForm captures the multipart fields of one recorded submission.
type SubmittedForm struct {
	Fields   map[string]string
	FileName string
	FileSize int
}

// MockGrobid is a configurable mock GROBID server for testing.
type MockGrobid struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	requestCounts map[string]int
	lastForm      *SubmittedForm
}

// NewMockGrobid creates a new mock server. The liveness endpoint answers
// 200 unless overridden.
func NewMockGrobid() *MockGrobid {
	mock := &MockGrobid{
		handlers:      make(map[string]func(w http.ResponseWriter, r *http.Request)),
		requestCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.record(r)

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// record tracks the request count per path and, for multipart submissions,
// the submitted form fields.
func (m *MockGrobid) record(r *http.Request) {
	form := parseForm(r)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCounts[r.URL.Path]++
	if form != nil {
		m.lastForm = form
	}
}

func parseForm(r *http.Request) *SubmittedForm {
	if r.Method != http.MethodPost {
		return nil
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil
	}

	form := &SubmittedForm{Fields: make(map[string]string)}
	for key, values := range r.MultipartForm.Value {
		if len(values) > 0 {
			form.Fields[key] = values[0]
		}
	}
	if files := r.MultipartForm.File["input"]; len(files) > 0 {
		form.FileName = files[0].Filename
		form.FileSize = int(files[0].Size)
	}
	return form
}

// URL returns the mock server URL.
func (m *MockGrobid) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGrobid) Close() {
	m.server.Close()
}

// Reset clears all tracking state.
func (m *MockGrobid) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCounts = make(map[string]int)
	m.lastForm = nil
}

// SetHandler sets a custom handler for a specific path.
func (m *MockGrobid) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockGrobid) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetServiceResponse configures a response for an extraction service path.
func (m *MockGrobid) SetServiceResponse(service string, resp MockResponse) {
	m.SetResponse("/api/"+service, resp)
}

// SetLivenessStatus overrides the status code of the liveness endpoint.
func (m *MockGrobid) SetLivenessStatus(status int) {
	m.SetResponse("/api/isalive", MockResponse{StatusCode: status})
}

// FailTimes configures a service to answer with failStatus the first n
// requests, then 200 with body afterwards. Drives overload retry tests.
func (m *MockGrobid) FailTimes(service string, failStatus, n int, body string) {
	var mu sync.Mutex
	seen := 0

	m.SetHandler("/api/"+service, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen++
		failing := seen <= n
		mu.Unlock()

		if failing {
			w.WriteHeader(failStatus)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	})
}

// RequestCount returns the number of requests made to a path.
func (m *MockGrobid) RequestCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCounts[path]
}

// ServiceRequestCount returns the number of submissions to a service.
func (m *MockGrobid) ServiceRequestCount(service string) int {
	return m.RequestCount("/api/" + service)
}

// TotalRequestCount returns the number of requests across all paths.
func (m *MockGrobid) TotalRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, n := range m.requestCounts {
		total += n
	}
	return total
}

// LastForm returns the multipart fields of the most recent submission,
// or nil if none was recorded.
func (m *MockGrobid) LastForm() *SubmittedForm {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastForm
}

// defaultHandler provides GROBID-like defaults: liveness answers 200, any
// unconfigured service path answers 200 with a minimal TEI document.
func (m *MockGrobid) defaultHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/isalive" {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("true"))
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<TEI xmlns="http://www.tei-c.org/ns/1.0"><teiHeader/><text/></TEI>`))
}

// NewOverloadedResponse creates a 503 busy-server response.
func NewOverloadedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusServiceUnavailable,
	}
}

// NewTEIResponse creates a 200 response carrying a TEI body.
func NewTEIResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/xml",
		},
	}
}

// NewFailureResponse creates a permanent-failure response with a status.
func NewFailureResponse(status int) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       "unexpected input",
	}
}
