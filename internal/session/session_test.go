package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/ytcurator/internal/agent"
	"github.com/desertthunder/ytcurator/internal/cart"
	"github.com/desertthunder/ytcurator/internal/models"
	"github.com/desertthunder/ytcurator/internal/session"
	"github.com/desertthunder/ytcurator/internal/shared"
	tu "github.com/desertthunder/ytcurator/internal/testing"
	"github.com/desertthunder/ytcurator/internal/tools"
)

type factoryRecorder struct {
	providers []*tu.MockProvider
}

func (f *factoryRecorder) factory(turns ...agent.Turn) session.Factory {
	return func(_ context.Context, _ string, c *cart.Cart) (*agent.Agent, error) {
		cat := &tu.MockCatalog{Songs: []models.Song{{ID: "v1", Title: "Song A", Artist: "Artist A"}}}
		p := &tu.MockProvider{Turns: append([]agent.Turn(nil), turns...)}
		f.providers = append(f.providers, p)
		return agent.New(p, tools.NewToolbox(cat, c).Registry()), nil
	}
}

func TestManager(t *testing.T) {
	ctx := context.Background()

	t.Run("Create and Get", func(t *testing.T) {
		f := &factoryRecorder{}
		m := session.NewManager(f.factory(), nil)

		s, err := m.Create(ctx)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if s.ID == "" {
			t.Fatal("expected generated session ID")
		}

		got, err := m.Get(s.ID)
		if err != nil || got != s {
			t.Errorf("Get() = %v, %v", got, err)
		}
		if m.Len() != 1 {
			t.Errorf("expected 1 session, got %d", m.Len())
		}
	})

	t.Run("Get unknown", func(t *testing.T) {
		m := session.NewManager((&factoryRecorder{}).factory(), nil)
		if _, err := m.Get("nope"); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("sessions are isolated", func(t *testing.T) {
		f := &factoryRecorder{}
		m := session.NewManager(f.factory(tu.Call(tools.AddSongToCart, map[string]any{"song_query": "song a"}), agent.Turn{Text: "added"}), nil)

		a, _ := m.Create(ctx)
		b, _ := m.Create(ctx)

		reply, songs, err := a.Send(ctx, "add song a")
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if reply != "added" || len(songs) != 1 {
			t.Errorf("unexpected reply %q with %d songs", reply, len(songs))
		}
		if len(b.Cart()) != 0 {
			t.Error("second session cart should be empty")
		}
	})

	t.Run("GetOrCreate", func(t *testing.T) {
		m := session.NewManager((&factoryRecorder{}).factory(), nil)

		s, created, err := m.GetOrCreate(ctx, "")
		if err != nil || !created {
			t.Fatalf("expected creation, got %v, %v", created, err)
		}

		again, created, _ := m.GetOrCreate(ctx, s.ID)
		if created || again != s {
			t.Error("expected existing session")
		}

		other, created, _ := m.GetOrCreate(ctx, "stale-cookie")
		if !created || other.ID == "stale-cookie" {
			t.Error("unknown id should yield a new session with a fresh ID")
		}
	})

	t.Run("Destroy", func(t *testing.T) {
		m := session.NewManager((&factoryRecorder{}).factory(), nil)
		s, _ := m.Create(ctx)

		if err := m.Destroy(s.ID); err != nil {
			t.Fatalf("Destroy() error = %v", err)
		}
		if _, err := m.Get(s.ID); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Error("destroyed session should be gone")
		}
		if err := m.Destroy(s.ID); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("second Destroy() = %v", err)
		}
	})

	t.Run("factory error", func(t *testing.T) {
		boom := errors.New("no key")
		m := session.NewManager(func(context.Context, string, *cart.Cart) (*agent.Agent, error) {
			return nil, boom
		}, nil)

		if _, err := m.Create(ctx); !errors.Is(err, boom) {
			t.Errorf("expected factory error, got %v", err)
		}
		if m.Len() != 0 {
			t.Error("failed create must not register a session")
		}
	})

	t.Run("Prune and Close", func(t *testing.T) {
		m := session.NewManager((&factoryRecorder{}).factory(), nil)
		m.Create(ctx)
		m.Create(ctx)

		if n := m.Prune(time.Hour); n != 0 {
			t.Errorf("fresh sessions should survive, pruned %d", n)
		}
		if n := m.Prune(-time.Second); n != 2 {
			t.Errorf("expected 2 pruned, got %d", n)
		}

		m.Create(ctx)
		if err := m.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
		if m.Len() != 0 {
			t.Error("Close should drop all sessions")
		}
	})
}

func TestSession(t *testing.T) {
	ctx := context.Background()

	t.Run("Reset clears cart and conversation", func(t *testing.T) {
		f := &factoryRecorder{}
		m := session.NewManager(f.factory(tu.Call(tools.AddSongToCart, map[string]any{"song_query": "song a"}), agent.Turn{Text: "ok"}), nil)
		s, _ := m.Create(ctx)
		s.Send(ctx, "add")

		s.Reset()
		if len(s.Cart()) != 0 {
			t.Error("cart should be empty after reset")
		}
		if f.providers[0].Resets != 1 {
			t.Error("provider should be reset")
		}
	})

	t.Run("Send serializes concurrent callers", func(t *testing.T) {
		f := &factoryRecorder{}
		m := session.NewManager(f.factory(), nil)
		s, _ := m.Create(ctx)

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Send(ctx, "hi")
			}()
		}
		wg.Wait()

		if got := len(f.providers[0].Texts); got != 8 {
			t.Errorf("expected 8 messages, got %d", got)
		}
		if s.LastUsed().Before(s.CreatedAt) {
			t.Error("LastUsed should advance")
		}
	})

	t.Run("provider error still returns cart", func(t *testing.T) {
		m := session.NewManager(func(_ context.Context, _ string, c *cart.Cart) (*agent.Agent, error) {
			c.Add(models.Song{ID: "v1", Title: "Song A"})
			p := &tu.MockProvider{Errs: []error{shared.ErrQuotaExceeded}}
			return agent.New(p, tools.NewToolbox(&tu.MockCatalog{}, c).Registry()), nil
		}, nil)
		s, _ := m.Create(ctx)

		_, songs, err := s.Send(ctx, "hi")
		if !errors.Is(err, shared.ErrQuotaExceeded) {
			t.Errorf("expected quota error, got %v", err)
		}
		if len(songs) != 1 {
			t.Errorf("expected cart snapshot, got %d songs", len(songs))
		}
	})
}

func TestNewAgentFactory(t *testing.T) {
	cat := &tu.MockCatalog{}

	t.Run("builds agent for configured provider", func(t *testing.T) {
		factory := session.NewAgentFactory(session.AgentConfig{
			Provider: shared.ProviderOpenAI,
			Options:  agent.ProviderConfig{APIKey: "k", Model: "gpt-4o-mini"},
			Catalog:  cat,
			Recorder: &tu.MockRecorder{},
		})

		a, err := factory(context.Background(), "id", cart.New())
		if err != nil {
			t.Fatalf("factory error = %v", err)
		}
		if a.Provider().Name() != shared.ProviderOpenAI {
			t.Errorf("unexpected provider %s", a.Provider().Name())
		}
	})

	t.Run("missing key", func(t *testing.T) {
		factory := session.NewAgentFactory(session.AgentConfig{Provider: shared.ProviderAnthropic, Catalog: cat})
		if _, err := factory(context.Background(), "id", cart.New()); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}
