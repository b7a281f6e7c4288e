// YouTube Music [Catalog] implementation
//
// Communicates with the FastAPI proxy server wrapping the ytmusicapi Python library.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/ytcurator/internal/models"
	"github.com/desertthunder/ytcurator/internal/shared"
)

const (
	defaultYTBaseURL = "http://localhost:8080"
	defaultTimeout   = 20 * time.Second
	defaultRPS       = 5.0
)

type ytArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type ytAlbum struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// ytSong is the row shape shared by search, artist and watch responses.
//
// Watch playlist rows carry their duration in "length" instead of "duration".
type ytSong struct {
	VideoID  string     `json:"videoId"`
	Title    string     `json:"title"`
	Artists  []ytArtist `json:"artists"`
	Album    *ytAlbum   `json:"album"`
	Duration string     `json:"duration"`
	Length   string     `json:"length"`
}

type ytArtistResult struct {
	BrowseID string `json:"browseId"`
	Artist   string `json:"artist"`
}

// Song rows stay raw until decoded one at a time, so one malformed row cannot drop the listing.
type ytSongSection struct {
	Title   string            `json:"title"`
	Results []json.RawMessage `json:"results"`
}

type ytArtistPage struct {
	Name     string          `json:"name"`
	Songs    *ytSongSection  `json:"songs"`
	Sections []ytSongSection `json:"sections"`
}

type ytWatchPlaylist struct {
	Tracks []json.RawMessage `json:"tracks"`
}

// Option configures a [YouTubeCatalog].
type Option func(*YouTubeCatalog)

// WithAuthFile sets the credential bundle path sent to the proxy for authenticated calls.
func WithAuthFile(path string) Option {
	return func(y *YouTubeCatalog) { y.authFile = path }
}

// WithHTTPClient replaces the HTTP client. The client's timeout is kept as-is.
func WithHTTPClient(c *http.Client) Option {
	return func(y *YouTubeCatalog) { y.httpClient = c }
}

// WithTimeout bounds every proxy request.
func WithTimeout(d time.Duration) Option {
	return func(y *YouTubeCatalog) {
		if d > 0 {
			y.timeout = d
		}
	}
}

// WithRateLimit throttles requests to rps per second. Zero or negative disables throttling.
func WithRateLimit(rps float64) Option {
	return func(y *YouTubeCatalog) {
		if rps <= 0 {
			y.limiter = nil
			return
		}
		y.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithLogger sets the logger used for normalization and upstream warnings.
func WithLogger(l *log.Logger) Option {
	return func(y *YouTubeCatalog) { y.logger = l }
}

// YouTubeCatalog implements [Catalog] for YouTube Music via the proxy.
type YouTubeCatalog struct {
	baseURL    string
	authFile   string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewYouTubeCatalog creates a catalog talking to the proxy at baseURL.
func NewYouTubeCatalog(baseURL string, opts ...Option) *YouTubeCatalog {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}

	y := &YouTubeCatalog{
		baseURL: baseURL,
		timeout: defaultTimeout,
		limiter: rate.NewLimiter(rate.Limit(defaultRPS), 1),
	}
	for _, opt := range opts {
		opt(y)
	}

	if y.httpClient == nil {
		y.httpClient = &http.Client{Timeout: y.timeout}
	}
	if y.logger == nil {
		y.logger = shared.NewLogger(io.Discard)
	}
	return y
}

// Name returns the catalog name.
func (y *YouTubeCatalog) Name() string {
	return "YouTube Music"
}

// AuthFile returns the configured credential bundle path.
func (y *YouTubeCatalog) AuthFile() string {
	return y.authFile
}

func (y *YouTubeCatalog) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if y.limiter != nil {
		if err := y.limiter.Wait(ctx); err != nil {
			return classifyTransportError(err)
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, y.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if y.authFile != "" {
		req.Header.Set("X-Auth-File", y.authFile)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrUpstream, err)
		}
	}

	return nil
}

func statusError(resp *http.Response) error {
	var errResp struct {
		Detail string `json:"detail"`
	}
	detail := fmt.Sprintf("status %d", resp.StatusCode)
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
		detail = fmt.Sprintf("status %d: %s", resp.StatusCode, errResp.Detail)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: youtube music API error (%s)", shared.ErrAuth, detail)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w: youtube music API error (%s)", shared.ErrUpstream, shared.ErrNotFound, detail)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w: youtube music API error (%s)", shared.ErrUpstream, shared.ErrQuotaExceeded, detail)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return fmt.Errorf("%w: %w: youtube music API error (%s)", shared.ErrUpstream, shared.ErrServiceUnavailable, detail)
	default:
		return fmt.Errorf("%w: youtube music API error (%s)", shared.ErrUpstream, detail)
	}
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %w: %v", shared.ErrUpstream, shared.ErrTimeout, err)
	}
	return fmt.Errorf("%w: request failed: %v", shared.ErrUpstream, err)
}

// Search returns up to limit songs for query.
//
// Calls GET /api/search?q={query}&filter=songs on the proxy.
func (y *YouTubeCatalog) Search(ctx context.Context, query string, limit int) []models.Song {
	if limit <= 0 {
		return nil
	}

	endpoint := fmt.Sprintf("/api/search?q=%s&filter=songs&limit=%d", url.QueryEscape(query), limit)

	var raw []json.RawMessage
	if err := y.doRequest(ctx, http.MethodGet, endpoint, nil, &raw); err != nil {
		y.logger.Warn("search failed", "query", query, "error", err)
		return nil
	}

	rows := y.decodeSongs(raw, "search")
	songs := make([]models.Song, 0, len(rows))
	for _, row := range rows {
		if row.VideoID == "" {
			y.logger.Warn("dropping search result without id", "title", row.Title)
			continue
		}

		songs = append(songs, models.Song{
			ID:       row.VideoID,
			Title:    orDefault(row.Title, UnknownTitle),
			Artist:   firstArtist(row.Artists),
			Album:    albumName(row.Album, UnknownAlbum),
			Duration: row.Duration,
		})
		if len(songs) == limit {
			break
		}
	}

	y.logger.Info("search complete", "query", query, "results", len(songs))
	return songs
}

// TopSongsForArtist resolves name to its first artist hit and lists that artist's songs.
//
// Calls GET /api/search?q={name}&filter=artists then GET /api/artists/{browseId} on the proxy.
func (y *YouTubeCatalog) TopSongsForArtist(ctx context.Context, name string, limit int) []models.Song {
	if limit <= 0 {
		return nil
	}

	endpoint := fmt.Sprintf("/api/search?q=%s&filter=artists", url.QueryEscape(name))

	var artists []ytArtistResult
	if err := y.doRequest(ctx, http.MethodGet, endpoint, nil, &artists); err != nil {
		y.logger.Warn("artist search failed", "artist", name, "error", err)
		return nil
	}
	if len(artists) == 0 {
		y.logger.Warn("artist not found", "artist", name)
		return nil
	}

	artist := artists[0]
	if artist.BrowseID == "" {
		y.logger.Warn("artist result has no browse id", "artist", name)
		return nil
	}

	var page ytArtistPage
	if err := y.doRequest(ctx, http.MethodGet, "/api/artists/"+url.PathEscape(artist.BrowseID), nil, &page); err != nil {
		y.logger.Warn("artist page fetch failed", "artist", name, "browse_id", artist.BrowseID, "error", err)
		return nil
	}

	rows := y.decodeSongs(page.songRows(), "artist")
	if len(rows) == 0 {
		y.logger.Warn("no songs on artist page", "artist", name)
		return nil
	}
	if len(rows) > limit {
		rows = rows[:limit]
	}

	display := orDefault(artist.Artist, orDefault(page.Name, name))
	songs := make([]models.Song, 0, len(rows))
	for _, row := range rows {
		if row.VideoID == "" {
			continue
		}
		songs = append(songs, models.Song{
			ID:       row.VideoID,
			Title:    orDefault(row.Title, UnknownTitle),
			Artist:   display,
			Album:    albumName(row.Album, UnknownAlbum),
			Duration: row.Duration,
		})
	}

	return songs
}

// songRows returns the page's song listing, preferring the top-level songs shelf over titled sections.
func (p ytArtistPage) songRows() []json.RawMessage {
	if p.Songs != nil && len(p.Songs.Results) > 0 {
		return p.Songs.Results
	}
	for _, section := range p.Sections {
		if section.Title == "Songs" || section.Title == "Top songs" {
			return section.Results
		}
	}
	return nil
}

// Recommendations returns the radio listing for seedID without the seed.
//
// The listing is truncated to limit before the seed is removed, so fewer than limit songs may be returned.
// Calls GET /api/watch?videoId={seedID} on the proxy.
func (y *YouTubeCatalog) Recommendations(ctx context.Context, seedID string, limit int) []models.Song {
	if limit <= 0 {
		return nil
	}

	endpoint := fmt.Sprintf("/api/watch?videoId=%s&limit=%d", url.QueryEscape(seedID), limit)

	var watch ytWatchPlaylist
	if err := y.doRequest(ctx, http.MethodGet, endpoint, nil, &watch); err != nil {
		y.logger.Warn("recommendations failed", "seed", seedID, "error", err)
		return nil
	}

	tracks := y.decodeSongs(watch.Tracks, "watch")
	if len(tracks) == 0 {
		y.logger.Warn("no tracks returned in watch playlist", "seed", seedID)
		return nil
	}
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}

	songs := make([]models.Song, 0, len(tracks))
	for _, row := range tracks {
		if row.VideoID == seedID || row.VideoID == "" || row.Title == "" {
			continue
		}
		songs = append(songs, models.Song{
			ID:       row.VideoID,
			Title:    row.Title,
			Artist:   firstArtist(row.Artists),
			Album:    albumName(row.Album, SingleAlbum),
			Duration: orDefault(row.Length, row.Duration),
		})
	}

	return songs
}

// decodeSongs unmarshals each row on its own and skips rows that do not match the expected shape.
func (y *YouTubeCatalog) decodeSongs(raw []json.RawMessage, source string) []ytSong {
	rows := make([]ytSong, 0, len(raw))
	for i, r := range raw {
		var row ytSong
		if err := json.Unmarshal(r, &row); err != nil {
			y.logger.Warn("skipping malformed song row", "source", source, "index", i, "error", err)
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// CreatePlaylist creates a private playlist containing ids in order.
//
// Requires a valid credential bundle. Calls POST /api/playlists on the proxy.
func (y *YouTubeCatalog) CreatePlaylist(ctx context.Context, title string, ids []string, description string) (string, error) {
	if len(ids) == 0 {
		return "", fmt.Errorf("%w: at least one song is required", shared.ErrInvalidInput)
	}
	if y.authFile == "" {
		return "", fmt.Errorf("%w: no credential bundle configured", shared.ErrAuth)
	}
	if _, err := os.Stat(y.authFile); err != nil {
		return "", fmt.Errorf("%w: credential bundle %s not found, run setup youtube or POST /api/auth first", shared.ErrAuth, y.authFile)
	}
	if _, err := shared.LoadCredentialBundle(y.authFile); err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrAuth, err)
	}

	createReq := struct {
		Title         string   `json:"title"`
		Description   string   `json:"description"`
		PrivacyStatus string   `json:"privacy_status"`
		VideoIDs      []string `json:"video_ids"`
	}{
		Title:         title,
		Description:   description,
		PrivacyStatus: "PRIVATE",
		VideoIDs:      ids,
	}

	var createResp struct {
		PlaylistID string `json:"playlist_id"`
	}

	y.logger.Info("creating playlist", "title", title, "songs", len(ids))
	if err := y.doRequest(ctx, http.MethodPost, "/api/playlists", createReq, &createResp); err != nil {
		return "", err
	}
	if createResp.PlaylistID == "" {
		return "", fmt.Errorf("%w: proxy returned no playlist id", shared.ErrUpstream)
	}

	y.logger.Info("playlist created", "playlist_id", createResp.PlaylistID)
	return createResp.PlaylistID, nil
}

// Health checks that the proxy is reachable.
//
// Calls GET /health on the proxy.
func (y *YouTubeCatalog) Health(ctx context.Context) error {
	return y.doRequest(ctx, http.MethodGet, "/health", nil, nil)
}

func firstArtist(artists []ytArtist) string {
	if len(artists) > 0 && artists[0].Name != "" {
		return artists[0].Name
	}
	return UnknownArtist
}

func albumName(a *ytAlbum, fallback string) string {
	if a == nil || a.Name == "" {
		return fallback
	}
	return a.Name
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
