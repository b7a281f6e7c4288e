package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytcurator/internal/formatter"
	"github.com/desertthunder/ytcurator/internal/models"
	"github.com/desertthunder/ytcurator/internal/session"
	"github.com/desertthunder/ytcurator/internal/shared"
)

// SessionCookie names the cookie that carries the session ID.
const SessionCookie = "ytcurator_session"

// NoTextResponse stands in for an empty provider reply.
const NoTextResponse = "(No text response)"

const defaultHistoryLimit = 20

// HistoryStore lists recorded checkouts.
type HistoryStore interface {
	Get(id string) (*models.PlaylistRecord, error)
	List(criteria map[string]any) ([]*models.PlaylistRecord, error)
}

// API serves the chat, cart, auth and history endpoints.
type API struct {
	sessions    *session.Manager
	history     HistoryStore
	headersPath string
	health      func(context.Context) error
	logger      *log.Logger
}

// APIOption configures an [API].
type APIOption func(*API)

// WithHistory exposes checkout history.
func WithHistory(h HistoryStore) APIOption {
	return func(a *API) { a.history = h }
}

// WithHeadersPath sets where POST /api/auth saves the credential bundle.
func WithHeadersPath(path string) APIOption {
	return func(a *API) { a.headersPath = path }
}

// WithHealthCheck adds a dependency probe to GET /health.
func WithHealthCheck(fn func(context.Context) error) APIOption {
	return func(a *API) { a.health = fn }
}

// WithAPILogger sets the logger.
func WithAPILogger(l *log.Logger) APIOption {
	return func(a *API) { a.logger = l }
}

// NewAPI creates the JSON API over sessions.
func NewAPI(sessions *session.Manager, opts ...APIOption) *API {
	a := &API{sessions: sessions, logger: log.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register mounts every endpoint on r.
func (a *API) Register(r Router) {
	r.Handle(http.MethodPost, "/api/chat", http.HandlerFunc(a.chat))
	r.Handle(http.MethodGet, "/api/cart", http.HandlerFunc(a.cart))
	r.Handle(http.MethodGet, "/api/cart/export", http.HandlerFunc(a.exportCart))
	r.Handle(http.MethodPost, "/api/auth", http.HandlerFunc(a.auth))
	r.Handle(http.MethodDelete, "/api/session", http.HandlerFunc(a.endSession))
	r.Handle(http.MethodGet, "/api/history", http.HandlerFunc(a.listHistory))
	r.Handle(http.MethodGet, "/api/history/{id}", http.HandlerFunc(a.getHistory))
	r.Handle(http.MethodGet, "/health", http.HandlerFunc(a.healthCheck))
}

// NewHandler builds the full handler: router, middleware and CORS.
func NewHandler(a *API, logger *log.Logger) http.Handler {
	r := NewBasicRouter()
	r.Use(Recover(logger), Logging(logger))
	a.Register(r)
	return CORS(r)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	AgentResponse string        `json:"agent_response"`
	Cart          []models.Song `json:"cart"`
}

type authRequest struct {
	CurlCommand string `json:"curl_command"`
}

func (a *API) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, "Empty Message")
		return
	}

	s, err := a.session(w, r)
	if err != nil {
		a.logger.Error("session error", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	reply, songs, err := s.Send(r.Context(), message)
	if err != nil {
		a.logger.Error("chat error", "session", s.ID, "error", err)
		writeError(w, chatStatus(err), err.Error())
		return
	}

	if strings.TrimSpace(reply) == "" {
		reply = NoTextResponse
	}
	writeJSON(w, http.StatusOK, chatResponse{AgentResponse: reply, Cart: nonNil(songs)})
}

func chatStatus(err error) int {
	switch {
	case errors.Is(err, shared.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, shared.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, shared.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// cart reports the current cart without creating a session.
func (a *API) cart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"cart": a.currentCart(r)})
}

func (a *API) exportCart(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = formatter.FormatJSON
	}

	data, err := formatter.Render(formatter.FromCart(a.currentCart(r)), format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", formatter.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "cart."+strings.ToLower(format)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (a *API) auth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	command := strings.TrimSpace(req.CurlCommand)
	if command == "" {
		writeError(w, http.StatusBadRequest, "Empty Command")
		return
	}

	bundle, err := shared.ParseCurlCommand(command)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if a.headersPath == "" {
		writeError(w, http.StatusInternalServerError, "credential bundle path is not configured")
		return
	}

	if err := bundle.Save(a.headersPath); err != nil {
		a.logger.Error("auth error", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	a.logger.Info("credential bundle updated", "path", a.headersPath, "headers", len(bundle.Headers))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"message":  "Auth updated! You can now use Playlist features.",
		"headers":  bundle.Keys(),
		"warnings": nonNilStrings(bundle.Warnings),
	})
}

func (a *API) endSession(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		if err := a.sessions.Destroy(c.Value); err != nil && !errors.Is(err, shared.ErrSessionNotFound) {
			a.logger.Warn("failed to close session", "id", c.Value, "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (a *API) listHistory(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeError(w, http.StatusServiceUnavailable, "History is not enabled")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := a.history.List(map[string]any{"limit": limit})
	if err != nil {
		a.logger.Error("history error", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	views := make([]models.PlaylistView, len(records))
	for i, rec := range records {
		views[i] = rec.View()
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlists": views})
}

func (a *API) getHistory(w http.ResponseWriter, r *http.Request) {
	if a.history == nil {
		writeError(w, http.StatusServiceUnavailable, "History is not enabled")
		return
	}

	rec, err := a.history.Get(Vars(r)["id"])
	if errors.Is(err, shared.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Playlist not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"playlist": rec.View()})
}

func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok", "sessions": a.sessions.Len()}
	status := http.StatusOK

	if a.health != nil {
		if err := a.health(r.Context()); err != nil {
			body["status"] = "degraded"
			body["catalog"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			body["catalog"] = "ok"
		}
	}
	writeJSON(w, status, body)
}

// session resolves the caller's session from its cookie, creating one when needed.
func (a *API) session(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}

	s, created, err := a.sessions.GetOrCreate(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    s.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return s, nil
}

func (a *API) currentCart(r *http.Request) []models.Song {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return []models.Song{}
	}
	s, err := a.sessions.Get(c.Value)
	if err != nil {
		return []models.Song{}
	}
	return nonNil(s.Cart())
}

func nonNil(songs []models.Song) []models.Song {
	if songs == nil {
		return []models.Song{}
	}
	return songs
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
