package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytcurator/internal/agent"
	"github.com/desertthunder/ytcurator/internal/cart"
	"github.com/desertthunder/ytcurator/internal/catalog"
	"github.com/desertthunder/ytcurator/internal/models"
	"github.com/desertthunder/ytcurator/internal/shared"
	"github.com/desertthunder/ytcurator/internal/tools"
)

// Factory builds the agent for a new session bound to its cart.
type Factory func(ctx context.Context, id string, c *cart.Cart) (*agent.Agent, error)

// Session owns one cart and one conversation.
//
// All access to the cart and agent goes through the session lock.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	cart     *cart.Cart
	agent    *agent.Agent
	lastUsed time.Time
}

// Send runs one user message to completion and returns the reply with a snapshot of the cart.
func (s *Session) Send(ctx context.Context, text string) (string, []models.Song, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastUsed = time.Now()
	reply, err := s.agent.Send(ctx, text)
	return reply, s.cart.Songs(), err
}

// Cart returns a snapshot of the cart.
func (s *Session) Cart() []models.Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Songs()
}

// Reset clears the cart and the conversation.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
	s.agent.Reset()
}

// LastUsed reports when the session last handled a message.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agent.Close()
}

// Manager tracks live sessions by ID.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	factory  Factory
	logger   *log.Logger
}

// NewManager creates a manager that builds agents with factory.
func NewManager(factory Factory, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{sessions: map[string]*Session{}, factory: factory, logger: logger}
}

// Create starts a session with a fresh ID, empty cart and new conversation.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	id := shared.GenerateID()
	c := cart.New()

	a, err := m.factory(ctx, id, c)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	now := time.Now()
	s := &Session{ID: id, CreatedAt: now, cart: c, agent: a, lastUsed: now}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Info("session created", "id", id, "provider", a.Provider().Name())
	return s, nil
}

// Get returns the session with id or ErrSessionNotFound.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	return s, nil
}

// GetOrCreate returns the session with id, creating a new one when id is empty or unknown.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (*Session, bool, error) {
	if id != "" {
		if s, err := m.Get(id); err == nil {
			return s, false, nil
		}
	}
	s, err := m.Create(ctx)
	return s, err == nil, err
}

// Destroy removes the session and releases its agent.
func (m *Manager) Destroy(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}

	m.logger.Info("session destroyed", "id", id)
	return s.close()
}

// Prune destroys sessions idle for longer than maxIdle and returns how many were removed.
func (m *Manager) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.RLock()
	var stale []string
	for id, s := range m.sessions {
		if s.LastUsed().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		if err := m.Destroy(id); err != nil {
			m.logger.Warn("failed to prune session", "id", id, "error", err)
		}
	}
	return len(stale)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close destroys every session.
func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = map[string]*Session{}
	m.mu.Unlock()

	var firstErr error
	for _, s := range sessions {
		if err := s.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// AgentConfig holds what [NewAgentFactory] needs to build agents.
type AgentConfig struct {
	Provider  string
	Options   agent.ProviderConfig
	Catalog   catalog.Catalog
	Recorder  tools.Recorder
	MaxRounds int
	Timeout   time.Duration
	Logger    *log.Logger
	// Progress receives checkout progress lines, when set.
	Progress func(string)
}

// NewAgentFactory returns a [Factory] that wires a toolbox over the session cart to a new provider.
func NewAgentFactory(cfg AgentConfig) Factory {
	return func(ctx context.Context, id string, c *cart.Cart) (*agent.Agent, error) {
		logger := cfg.Logger
		if logger == nil {
			logger = log.Default()
		}
		logger = shared.WithLogger(logger, "session", id)

		opts := []tools.ToolboxOption{tools.WithSessionID(id), tools.WithToolLogger(logger)}
		if cfg.Recorder != nil {
			opts = append(opts, tools.WithRecorder(cfg.Recorder))
		}
		if cfg.Progress != nil {
			opts = append(opts, tools.WithProgress(cfg.Progress))
		}
		toolbox := tools.NewToolbox(cfg.Catalog, c, opts...)

		provider, err := agent.NewProvider(ctx, cfg.Provider, cfg.Options, toolbox.Tools())
		if err != nil {
			return nil, err
		}

		return agent.New(provider, toolbox.Registry(),
			agent.WithMaxRounds(cfg.MaxRounds),
			agent.WithTimeout(cfg.Timeout),
			agent.WithLogger(logger),
		), nil
	}
}
