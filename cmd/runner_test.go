package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/ytcurator/internal/agent"
	"github.com/desertthunder/ytcurator/internal/cart"
	"github.com/desertthunder/ytcurator/internal/models"
	"github.com/desertthunder/ytcurator/internal/repositories"
	"github.com/desertthunder/ytcurator/internal/session"
	"github.com/desertthunder/ytcurator/internal/shared"
	tu "github.com/desertthunder/ytcurator/internal/testing"
	"github.com/desertthunder/ytcurator/internal/tools"
)

const testCurl = `curl 'https://music.youtube.com/youtubei/v1/browse' -H 'cookie: SID=abc' -H 'authorization: SAPISIDHASH 123_x' -H 'accept-encoding: gzip'`

var testSongs = []models.Song{
	{ID: "v1", Title: "Song A", Artist: "Artist A", Album: "Album A", Duration: "3:10"},
	{ID: "v2", Title: "Song B", Artist: "Artist B", Album: "Album B"},
}

// testConfig returns defaults pointing the history database at a temp file.
func testConfig(t *testing.T) *shared.Config {
	t.Helper()
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "history.db")
	config.YouTube.HeadersPath = filepath.Join(t.TempDir(), "browser.json")
	return config
}

func scriptedFactory(p *tu.MockProvider) session.Factory {
	return func(_ context.Context, _ string, c *cart.Cart) (*agent.Agent, error) {
		cat := &tu.MockCatalog{Songs: testSongs}
		return agent.New(p, tools.NewToolbox(cat, c).Registry()), nil
	}
}

// run executes args against the full command tree with a config path that does not exist.
func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	missing := filepath.Join(t.TempDir(), "config.toml")
	return newApp(r).Run(context.Background(), append([]string{"ytcurator", "--config", missing}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			input := strings.NewReader("")
			cat := &tu.MockCatalog{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Catalog:    cat,
				Logger:     logger,
				Input:      input,
				Output:     output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.input != input {
				t.Error("expected input to be set")
			}
			if runner.youtube() != cat {
				t.Error("expected injected catalog to be used")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.input != os.Stdin {
				t.Error("expected input to default to os.Stdin")
			}
		})

		t.Run("builds the YouTube catalog from config", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			cat := runner.youtube()
			if cat == nil || cat.Name() != "YouTube Music" {
				t.Fatalf("unexpected catalog %v", cat)
			}
			if runner.youtube() != cat {
				t.Error("expected catalog to be built once")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writeJSON(map[string]string{"key": "value"}, true)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("writePlainln surrounds with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			runner.writePlainln("next")
			if output.String() != "\nnext\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"chat", "tui", "serve", "setup", "auth", "search", "artist", "radio", "history"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})

	t.Run("sessions requires an API key without a factory", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials = shared.CredentialsConfig{}
		runner := NewRunner(RunnerOpts{Config: config, Catalog: &tu.MockCatalog{}})

		if _, err := runner.sessions(nil, nil); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestChat(t *testing.T) {
	t.Run("conversation loop", func(t *testing.T) {
		p := &tu.MockProvider{Turns: []agent.Turn{
			tu.Call(tools.AddSongToCart, map[string]any{"song_query": "song a"}),
			{Text: "Added Song A to your cart."},
		}}
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config:  testConfig(t),
			Factory: scriptedFactory(p),
			Input:   strings.NewReader("add song a\n\n   \nquit\nnever sent\n"),
			Output:  output,
			Logger:  shared.NewLogger(&bytes.Buffer{}),
		})

		if err := run(t, runner, "chat"); err != nil {
			t.Fatalf("chat error = %v", err)
		}

		out := output.String()
		if !strings.Contains(out, "Agent: Added Song A to your cart.") {
			t.Errorf("expected agent reply, got %q", out)
		}
		if len(p.Texts) != 1 || p.Texts[0] != "add song a" {
			t.Errorf("expected one message sent, got %v", p.Texts)
		}
		if strings.Count(out, "You: ") != 4 {
			t.Errorf("expected a prompt per line read, got %q", out)
		}
	})

	t.Run("errors are reported and the loop continues", func(t *testing.T) {
		p := &tu.MockProvider{
			Errs:  []error{shared.ErrQuotaExceeded},
			Turns: []agent.Turn{{}, {Text: "back again"}},
		}
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config:  testConfig(t),
			Factory: scriptedFactory(p),
			Input:   strings.NewReader("first\nsecond\n"),
			Output:  output,
			Logger:  shared.NewLogger(&bytes.Buffer{}),
		})

		if err := run(t, runner, "chat"); err != nil {
			t.Fatalf("chat error = %v", err)
		}

		out := output.String()
		if !strings.Contains(out, "Quota Exceeded (429). Wait a moment.") {
			t.Errorf("expected quota message, got %q", out)
		}
		if !strings.Contains(out, "Agent: back again") {
			t.Errorf("expected loop to continue, got %q", out)
		}
	})

	t.Run("empty reply placeholder", func(t *testing.T) {
		p := &tu.MockProvider{Turns: []agent.Turn{{Text: "  "}}}
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{
			Config:  testConfig(t),
			Factory: scriptedFactory(p),
			Input:   strings.NewReader("hello\nexit\n"),
			Output:  output,
			Logger:  shared.NewLogger(&bytes.Buffer{}),
		})

		if err := run(t, runner, "chat"); err != nil {
			t.Fatalf("chat error = %v", err)
		}
		if !strings.Contains(output.String(), "Agent: (No text response)") {
			t.Errorf("expected placeholder, got %q", output.String())
		}
	})
}

func TestCatalogCommands(t *testing.T) {
	newRunner := func(t *testing.T) (*Runner, *bytes.Buffer) {
		output := &bytes.Buffer{}
		cat := &tu.MockCatalog{
			Songs:       testSongs,
			ArtistSongs: map[string][]models.Song{"artist a": testSongs[:1]},
			Radio:       map[string][]models.Song{"v1": testSongs},
		}
		return NewRunner(RunnerOpts{
			Config:  testConfig(t),
			Catalog: cat,
			Output:  output,
			Logger:  shared.NewLogger(&bytes.Buffer{}),
		}), output
	}

	t.Run("search plain", func(t *testing.T) {
		runner, output := newRunner(t)
		if err := run(t, runner, "search", "song"); err != nil {
			t.Fatalf("search error = %v", err)
		}
		out := output.String()
		for _, want := range []string{"Results for 'song'", "1. Song A - Artist A", "Album: Album A | ID: v1 | 3:10", "2. Song B - Artist B"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in %q", want, out)
			}
		}
	})

	t.Run("search JSON", func(t *testing.T) {
		runner, output := newRunner(t)
		if err := run(t, runner, "search", "--json", "--limit", "1", "song"); err != nil {
			t.Fatalf("search error = %v", err)
		}

		var songs []models.Song
		if err := json.Unmarshal(output.Bytes(), &songs); err != nil {
			t.Fatalf("invalid JSON %q: %v", output.String(), err)
		}
		if len(songs) != 1 || songs[0].ID != "v1" {
			t.Errorf("unexpected songs %+v", songs)
		}
	})

	t.Run("search without results", func(t *testing.T) {
		runner, output := newRunner(t)
		if err := run(t, runner, "search", "zzz"); err != nil {
			t.Fatalf("search error = %v", err)
		}
		if output.String() != "No songs found.\n" {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("search requires a query", func(t *testing.T) {
		runner, _ := newRunner(t)
		if err := run(t, runner, "search"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("artist", func(t *testing.T) {
		runner, output := newRunner(t)
		if err := run(t, runner, "artist", "Artist A"); err != nil {
			t.Fatalf("artist error = %v", err)
		}
		if !strings.Contains(output.String(), "Top songs by Artist A") || !strings.Contains(output.String(), "Song A") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("radio excludes the seed", func(t *testing.T) {
		runner, output := newRunner(t)
		if err := run(t, runner, "radio", "--json", "song a"); err != nil {
			t.Fatalf("radio error = %v", err)
		}

		var songs []models.Song
		if err := json.Unmarshal(output.Bytes(), &songs); err != nil {
			t.Fatalf("invalid JSON %q: %v", output.String(), err)
		}
		if len(songs) != 1 || songs[0].ID != "v2" {
			t.Errorf("unexpected songs %+v", songs)
		}
	})

	t.Run("radio without a seed", func(t *testing.T) {
		runner, _ := newRunner(t)
		if err := run(t, runner, "radio", "zzz"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestHistoryCommands(t *testing.T) {
	setup := func(t *testing.T) (*Runner, *bytes.Buffer, string) {
		t.Helper()
		config := testConfig(t)

		db, err := shared.OpenMigrated(config.Database)
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		record := models.NewPlaylistRecord("PL123", "Road Trip", "Created by AI Agent", testSongs)
		record.SessionID = "s1"
		if err := repositories.NewPlaylistRepository(db).Create(record); err != nil {
			t.Fatalf("failed to seed history: %v", err)
		}

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output, Logger: shared.NewLogger(&bytes.Buffer{})})
		return runner, output, record.ID()
	}

	t.Run("list plain", func(t *testing.T) {
		runner, output, id := setup(t)
		if err := run(t, runner, "history"); err != nil {
			t.Fatalf("history error = %v", err)
		}
		out := output.String()
		if !strings.Contains(out, "Road Trip (2 songs)") || !strings.Contains(out, id) {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("list JSON filtered by session", func(t *testing.T) {
		runner, output, _ := setup(t)
		if err := run(t, runner, "history", "--json", "--session", "other"); err != nil {
			t.Fatalf("history error = %v", err)
		}
		if strings.TrimSpace(output.String()) != "[]" {
			t.Errorf("expected empty list, got %q", output.String())
		}
	})

	t.Run("show", func(t *testing.T) {
		runner, output, id := setup(t)
		if err := run(t, runner, "history", "show", id); err != nil {
			t.Fatalf("show error = %v", err)
		}
		out := output.String()
		for _, want := range []string{"Playlist: Road Trip", "1. Song A - Artist A", "Playlist ID: PL123"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in %q", want, out)
			}
		}
	})

	t.Run("show with export", func(t *testing.T) {
		runner, _, id := setup(t)
		path := filepath.Join(t.TempDir(), "trip.csv")
		if err := run(t, runner, "history", "show", "--format", "csv", "--output", path, id); err != nil {
			t.Fatalf("show error = %v", err)
		}
		tu.AssertFileExists(t, path)
		if content := tu.MustReadFile(t, path); !strings.Contains(content, "Position,ID,Title,Artist,Album,Duration") {
			t.Errorf("unexpected CSV %q", content)
		}
	})

	t.Run("show unknown", func(t *testing.T) {
		runner, _, _ := setup(t)
		if err := run(t, runner, "history", "show", "missing"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		runner, output, id := setup(t)
		if err := run(t, runner, "history", "delete", id); err != nil {
			t.Fatalf("delete error = %v", err)
		}
		if !strings.Contains(output.String(), "Removed") {
			t.Errorf("unexpected output %q", output.String())
		}
		if err := run(t, runner, "history", "delete", id); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	newRunner := func(t *testing.T) (*Runner, *bytes.Buffer) {
		output := &bytes.Buffer{}
		return NewRunner(RunnerOpts{Config: testConfig(t), Output: output, Logger: shared.NewLogger(&bytes.Buffer{})}), output
	}

	t.Run("config writes the template once", func(t *testing.T) {
		runner, output := newRunner(t)
		path := filepath.Join(t.TempDir(), "config.toml")
		app := newApp(runner)

		if err := app.Run(context.Background(), []string{"ytcurator", "--config", path, "setup", "config"}); err != nil {
			t.Fatalf("setup config error = %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(output.String(), "Config written to") {
			t.Errorf("unexpected output %q", output.String())
		}

		if err := newApp(runner).Run(context.Background(), []string{"ytcurator", "--config", path, "setup", "config"}); err == nil {
			t.Error("expected error when config already exists")
		}
	})

	t.Run("database", func(t *testing.T) {
		runner, _ := newRunner(t)
		if err := run(t, runner, "setup", "database"); err != nil {
			t.Fatalf("setup database error = %v", err)
		}
		tu.AssertFileExists(t, runner.config.Database.Path)
	})

	t.Run("youtube from inline curl", func(t *testing.T) {
		runner, output := newRunner(t)
		if err := run(t, runner, "setup", "youtube", "--curl", testCurl); err != nil {
			t.Fatalf("setup youtube error = %v", err)
		}

		bundle, err := shared.LoadCredentialBundle(runner.headersPath())
		if err != nil {
			t.Fatalf("expected saved bundle: %v", err)
		}
		if _, ok := bundle.Headers["accept-encoding"]; ok {
			t.Error("accept-encoding should be stripped")
		}
		if !strings.Contains(output.String(), "authorization, cookie") {
			t.Errorf("expected header names, got %q", output.String())
		}
	})

	t.Run("youtube from file to custom output", func(t *testing.T) {
		runner, output := newRunner(t)
		dir := t.TempDir()
		curlFile := filepath.Join(dir, "request.txt")
		if err := os.WriteFile(curlFile, []byte(`curl 'https://music.youtube.com' -b 'SID=abc'`), 0644); err != nil {
			t.Fatal(err)
		}
		out := filepath.Join(dir, "auth", "browser.json")

		if err := run(t, runner, "setup", "youtube", "--curl-file", curlFile, "--output", out); err != nil {
			t.Fatalf("setup youtube error = %v", err)
		}
		tu.AssertFileExists(t, out)
		if !strings.Contains(output.String(), "Warning: no authorization header") {
			t.Errorf("expected warning, got %q", output.String())
		}
		if !strings.Contains(output.String(), "youtube.headers_path") {
			t.Errorf("expected config hint, got %q", output.String())
		}
	})

	t.Run("youtube argument validation", func(t *testing.T) {
		runner, _ := newRunner(t)
		if err := run(t, runner, "setup", "youtube"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if err := run(t, runner, "setup", "youtube", "--curl", testCurl, "--curl-file", "x"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if err := run(t, runner, "setup", "youtube", "--curl", "curl 'https://x' -H 'accept: */*'"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestAuthCommands(t *testing.T) {
	proxy := func(t *testing.T, status int) *httptest.Server {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/health" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.WriteHeader(status)
		}))
		t.Cleanup(srv.Close)
		return srv
	}

	newRunner := func(t *testing.T, proxyURL string) (*Runner, *bytes.Buffer) {
		config := testConfig(t)
		config.YouTube.ProxyURL = proxyURL
		config.YouTube.RequestsPerSecond = 0
		output := &bytes.Buffer{}
		return NewRunner(RunnerOpts{Config: config, Output: output, Logger: shared.NewLogger(&bytes.Buffer{})}), output
	}

	t.Run("status without credentials", func(t *testing.T) {
		srv := proxy(t, http.StatusOK)
		runner, output := newRunner(t, srv.URL)

		if err := run(t, runner, "auth", "status"); err != nil {
			t.Fatalf("auth status error = %v", err)
		}
		out := output.String()
		if !strings.Contains(out, "Catalog proxy is healthy") || !strings.Contains(out, "Authentication: ✗") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("login then status", func(t *testing.T) {
		srv := proxy(t, http.StatusOK)
		runner, output := newRunner(t, srv.URL)

		curlFile := filepath.Join(t.TempDir(), "request.txt")
		if err := os.WriteFile(curlFile, []byte(testCurl), 0644); err != nil {
			t.Fatal(err)
		}
		if err := run(t, runner, "auth", "login", curlFile); err != nil {
			t.Fatalf("auth login error = %v", err)
		}

		output.Reset()
		if err := run(t, runner, "auth", "status"); err != nil {
			t.Fatalf("auth status error = %v", err)
		}
		if !strings.Contains(output.String(), "Authentication: ✓") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("login requires a path", func(t *testing.T) {
		runner, _ := newRunner(t, "http://127.0.0.1:0")
		if err := run(t, runner, "auth", "login"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("status with proxy down", func(t *testing.T) {
		srv := proxy(t, http.StatusBadGateway)
		runner, _ := newRunner(t, srv.URL)

		if err := run(t, runner, "auth", "status"); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestPruneSessions(t *testing.T) {
	runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(&bytes.Buffer{})})
	m := session.NewManager(scriptedFactory(&tu.MockProvider{}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		runner.pruneSessions(ctx, m, 0)
		runner.pruneSessions(ctx, m, time.Minute)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pruneSessions should return once the context is done")
	}
}
