package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/calegray/blogsmith/pkg/blogsmith/schema"
)

// MockText is a scripted TextGenerator for tests and local runs.
// Responses are returned in order and cycle once exhausted. All calls are
// recorded for later inspection.
type MockText struct {
	mu        sync.Mutex
	responses []string
	next      int
	err       error
	errCount  int // if > 0, fail this many calls before succeeding
	calls     []TextRequest
}

// NewMockText creates a mock that cycles through the given responses.
func NewMockText(responses ...string) *MockText {
	if len(responses) == 0 {
		responses = []string{""}
	}
	return &MockText{responses: responses}
}

// WithError makes every call fail with err.
func (m *MockText) WithError(err error) *MockText {
	m.err = err
	return m
}

// FailFirst makes the first n calls fail with err, then succeed normally.
func (m *MockText) FailFirst(n int, err error) *MockText {
	m.errCount = n
	m.err = err
	return m
}

// Generate implements TextGenerator.
func (m *MockText) Generate(_ context.Context, req TextRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)

	if m.err != nil {
		if m.errCount == 0 {
			return "", m.err
		}
		if len(m.calls) <= m.errCount {
			return "", m.err
		}
	}

	resp := m.responses[m.next%len(m.responses)]
	m.next++
	return resp, nil
}

// CallCount returns the number of Generate calls made.
func (m *MockText) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of all recorded requests.
func (m *MockText) Calls() []TextRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TextRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// LastCall returns the most recent request, or nil if none were made.
func (m *MockText) LastCall() *TextRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	last := m.calls[len(m.calls)-1]
	return &last
}

// MockImage is a scripted ImageGenerator. By default it fabricates a
// reference per prompt; FailOn injects per-call failures.
type MockImage struct {
	mu     sync.Mutex
	err    error
	failOn map[int]bool // 1-based call indices that fail
	calls  []ImageRequest
}

// NewMockImage creates an image generator test double.
func NewMockImage() *MockImage {
	return &MockImage{failOn: make(map[int]bool)}
}

// WithError makes every call fail with err.
func (m *MockImage) WithError(err error) *MockImage {
	m.err = err
	return m
}

// FailOn makes the given 1-based calls fail while others succeed.
func (m *MockImage) FailOn(indices ...int) *MockImage {
	for _, i := range indices {
		m.failOn[i] = true
	}
	if m.err == nil {
		m.err = &ProviderError{Provider: "mock", Op: "generate_image",
			Err: fmt.Errorf("scripted failure")}
	}
	return m
}

// Generate implements ImageGenerator.
func (m *MockImage) Generate(_ context.Context, req ImageRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)
	n := len(m.calls)

	if m.err != nil && (len(m.failOn) == 0 || m.failOn[n]) {
		return "", m.err
	}
	return fmt.Sprintf("https://images.example.invalid/%d.png", n), nil
}

// CallCount returns the number of Generate calls made.
func (m *MockImage) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// MockResearch is a scripted ResearchProvider.
type MockResearch struct {
	mu       sync.Mutex
	evidence []schema.Evidence
	err      error
	calls    int
}

// NewMockResearch creates a research test double returning the given evidence.
func NewMockResearch(evidence ...schema.Evidence) *MockResearch {
	return &MockResearch{evidence: evidence}
}

// WithError makes every call fail with err.
func (m *MockResearch) WithError(err error) *MockResearch {
	m.err = err
	return m
}

// Search implements ResearchProvider.
func (m *MockResearch) Search(_ context.Context, _ string, limit int) ([]schema.Evidence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if limit > 0 && limit < len(m.evidence) {
		return m.evidence[:limit], nil
	}
	return m.evidence, nil
}

// CallCount returns the number of Search calls made.
func (m *MockResearch) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
