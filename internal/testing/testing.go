// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/ytcurator/internal/agent"
	"github.com/desertthunder/ytcurator/internal/models"
)

// MockCatalog is a test double for [catalog.Catalog]
//
// Search matches songs whose title or artist contains the query, ignoring case.
type MockCatalog struct {
	mu          sync.Mutex
	Songs       []models.Song
	ArtistSongs map[string][]models.Song
	Radio       map[string][]models.Song
	PlaylistID  string
	CreateErr   error

	Searches []string
	Created  []CreatedPlaylist
}

// CreatedPlaylist records one CreatePlaylist call.
type CreatedPlaylist struct {
	Title       string
	IDs         []string
	Description string
}

func (m *MockCatalog) Search(_ context.Context, query string, limit int) []models.Song {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Searches = append(m.Searches, query)

	q := strings.ToLower(query)
	var out []models.Song
	for _, s := range m.Songs {
		if strings.Contains(strings.ToLower(s.Title), q) || strings.Contains(strings.ToLower(s.Artist), q) {
			out = append(out, s)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

func (m *MockCatalog) TopSongsForArtist(_ context.Context, name string, limit int) []models.Song {
	songs := m.ArtistSongs[strings.ToLower(name)]
	if len(songs) > limit {
		songs = songs[:limit]
	}
	return songs
}

func (m *MockCatalog) Recommendations(_ context.Context, seedID string, limit int) []models.Song {
	var out []models.Song
	for _, s := range m.Radio[seedID] {
		if s.ID != seedID {
			out = append(out, s)
		}
		if len(out) == limit {
			break
		}
	}
	return out
}

func (m *MockCatalog) CreatePlaylist(_ context.Context, title string, ids []string, description string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created = append(m.Created, CreatedPlaylist{Title: title, IDs: append([]string(nil), ids...), Description: description})
	if m.CreateErr != nil {
		return "", m.CreateErr
	}
	if m.PlaylistID == "" {
		return "PL_MOCK", nil
	}
	return m.PlaylistID, nil
}

func (m *MockCatalog) Name() string { return "mock" }

// MockRecorder collects checkout records in memory
type MockRecorder struct {
	mu      sync.Mutex
	Records []*models.PlaylistRecord
	Err     error
}

func (m *MockRecorder) RecordCheckout(_ context.Context, record *models.PlaylistRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Records = append(m.Records, record)
	return nil
}

// MockProvider is a scripted [agent.Provider]
//
// Each send pops the next turn from Turns; an entry in Errs at the same position fails that send instead.
type MockProvider struct {
	Turns []agent.Turn
	Errs  []error

	Texts    []string
	Results  [][]agent.ToolResult
	Appended [][]agent.ToolResult
	Resets   int
	calls    int
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) next() (agent.Turn, error) {
	i := m.calls
	m.calls++
	if i < len(m.Errs) && m.Errs[i] != nil {
		return agent.Turn{}, m.Errs[i]
	}
	if i < len(m.Turns) {
		return m.Turns[i], nil
	}
	return agent.Turn{Text: "ok"}, nil
}

func (m *MockProvider) SendText(_ context.Context, text string) (agent.Turn, error) {
	m.Texts = append(m.Texts, text)
	return m.next()
}

func (m *MockProvider) SendResults(_ context.Context, results []agent.ToolResult) (agent.Turn, error) {
	m.Results = append(m.Results, results)
	return m.next()
}

func (m *MockProvider) AppendResults(results []agent.ToolResult) {
	m.Appended = append(m.Appended, results)
}

func (m *MockProvider) Reset() { m.Resets++ }

// Calls returns the number of sends made so far.
func (m *MockProvider) Calls() int { return m.calls }

// Call builds a single-call turn.
func Call(name string, args map[string]any) agent.Turn {
	return agent.Turn{Calls: []agent.ToolCall{{ID: name + "-1", Name: name, Args: args}}}
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

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
