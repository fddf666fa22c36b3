// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/likeshift/internal/services"
	"github.com/desertthunder/likeshift/internal/tasks"
)

// MockSource is a test double for [tasks.SourceReader]
type MockSource struct {
	Tracks []services.Track
	Err    error
}

func (m *MockSource) ReadTracks(ctx context.Context) ([]services.Track, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Tracks, nil
}

func (m *MockSource) Name() string { return "mock" }

// MockSearcher is a test double for [tasks.Searcher] keyed by query
type MockSearcher struct {
	Results map[string][]services.Candidate
	Err     error
}

func (m *MockSearcher) SearchCandidates(ctx context.Context, query string) ([]services.Candidate, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Results[query], nil
}

// MockApplier records applied target IDs
type MockApplier struct {
	Applied []string
	Err     error
}

func (m *MockApplier) Apply(ctx context.Context, targetID string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Applied = append(m.Applied, targetID)
	return nil
}

// MockCursorStore keeps the cursor in memory
type MockCursorStore struct {
	Value int
}

func (m *MockCursorStore) LoadCursor() (int, error)   { return m.Value, nil }
func (m *MockCursorStore) SaveCursor(index int) error { m.Value = index; return nil }

// MockFailureStore keeps failure entries in memory
type MockFailureStore struct {
	Entries []tasks.FailureEntry
}

func (m *MockFailureStore) AppendFailure(entry tasks.FailureEntry) error {
	m.Entries = append(m.Entries, entry)
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
