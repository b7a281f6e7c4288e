package tools

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytcurator/internal/cart"
	"github.com/desertthunder/ytcurator/internal/catalog"
	"github.com/desertthunder/ytcurator/internal/models"
	"github.com/desertthunder/ytcurator/internal/shared"
)

// Action names advertised to the model.
const (
	GetArtistSongs         = "get_artist_songs"
	GetSongRecommendations = "get_song_recommendations"
	AddSongToCart          = "add_song_to_cart"
	RemoveSongFromCart     = "remove_song_from_cart"
	ReviewCart             = "review_cart"
	CheckoutPlaylist       = "checkout_playlist"
)

const (
	ArtistLimit         = 5
	RecommendationLimit = 5
	PlaylistDescription = "Created by AI Agent"
)

// Recorder persists playlists created through checkout.
type Recorder interface {
	RecordCheckout(ctx context.Context, record *models.PlaylistRecord) error
}

// Toolbox binds the music actions to one catalog and one cart.
type Toolbox struct {
	catalog   catalog.Catalog
	cart      *cart.Cart
	recorder  Recorder
	sessionID string
	progress  func(string)
	logger    *log.Logger
}

// ToolboxOption configures a [Toolbox].
type ToolboxOption func(*Toolbox)

// WithRecorder records every successful checkout.
func WithRecorder(r Recorder) ToolboxOption {
	return func(t *Toolbox) { t.recorder = r }
}

// WithSessionID tags recorded checkouts with the owning session.
func WithSessionID(id string) ToolboxOption {
	return func(t *Toolbox) { t.sessionID = id }
}

// WithProgress receives a short status line whenever an action starts.
func WithProgress(fn func(string)) ToolboxOption {
	return func(t *Toolbox) { t.progress = fn }
}

// WithToolLogger sets the logger.
func WithToolLogger(l *log.Logger) ToolboxOption {
	return func(t *Toolbox) { t.logger = l }
}

// NewToolbox creates the music actions for c and crt.
func NewToolbox(c catalog.Catalog, crt *cart.Cart, opts ...ToolboxOption) *Toolbox {
	t := &Toolbox{catalog: c, cart: crt}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = shared.NewLogger(io.Discard)
	}
	return t
}

// Registry returns a registry holding the six music actions.
func (t *Toolbox) Registry() *Registry {
	return NewRegistry(t.logger, t.Tools()...)
}

// Tools returns the six music actions.
func (t *Toolbox) Tools() []Tool {
	return []Tool{
		{
			Name:        GetArtistSongs,
			Description: "Gets the top songs for a specific artist.",
			Params:      []Param{{Name: "artist_name", Description: "Name of the artist, e.g. The Weeknd.", Required: true}},
			Handler:     t.artistSongs,
		},
		{
			Name:        GetSongRecommendations,
			Description: "Gets recommendations based on a seed song. Checks for valid seed first.",
			Params:      []Param{{Name: "seed_song", Description: "Song to base recommendations on, e.g. Blinding Lights The Weeknd.", Required: true}},
			Handler:     t.recommendations,
		},
		{
			Name:        AddSongToCart,
			Description: "Searches for a song and adds the best match to the User's Cart.",
			Params:      []Param{{Name: "song_query", Description: "Song title, optionally with the artist.", Required: true}},
			Handler:     t.addSong,
		},
		{
			Name:        RemoveSongFromCart,
			Description: "Removes a song from the cart.",
			Params:      []Param{{Name: "song_name_or_id", Description: "Song title (or part of it) or its id.", Required: true}},
			Handler:     t.removeSong,
		},
		{
			Name:        ReviewCart,
			Description: "Returns the current list of songs in the cart.",
			Handler:     t.reviewCart,
		},
		{
			Name:        CheckoutPlaylist,
			Description: "Finalizes the cart into a real YouTube Music Playlist.",
			Params:      []Param{{Name: "playlist_name", Description: "Title of the new playlist.", Required: true}},
			Handler:     t.checkout,
		},
	}
}

func (t *Toolbox) notify(format string, a ...any) {
	if t.progress != nil {
		t.progress(fmt.Sprintf(format, a...))
	}
}

func (t *Toolbox) artistSongs(ctx context.Context, args map[string]any) (string, error) {
	name, err := StringArg(args, "artist_name")
	if err != nil {
		return "", err
	}

	t.notify("Getting top songs for %s...", name)
	songs := t.catalog.TopSongsForArtist(ctx, name, ArtistLimit)
	if len(songs) == 0 {
		return fmt.Sprintf("Could not find top songs for %s.", name), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top songs by %s (NOT in cart yet):\n", name)
	for _, s := range songs {
		fmt.Fprintf(&b, "- %s (Album: %s)\n", s.Title, s.Album)
	}
	b.WriteString("\nAsk to add any of these to your cart!")
	return b.String(), nil
}

func (t *Toolbox) recommendations(ctx context.Context, args map[string]any) (string, error) {
	query, err := StringArg(args, "seed_song")
	if err != nil {
		return "", err
	}

	t.notify("Finding recommendations similar to '%s'...", query)
	found := t.catalog.Search(ctx, query, 1)
	if len(found) == 0 {
		return fmt.Sprintf("Could not find seed song '%s'.", query), nil
	}

	seed := found[0]
	recs := t.catalog.Recommendations(ctx, seed.ID, RecommendationLimit)

	var b strings.Builder
	fmt.Fprintf(&b, "Recommendations based on '%s' (NOT in cart yet):\n", seed.Title)
	for _, r := range recs {
		fmt.Fprintf(&b, "- %s by %s\n", r.Title, r.Artist)
	}
	b.WriteString("\nAsk to add any of these to your cart!")
	return b.String(), nil
}

func (t *Toolbox) addSong(ctx context.Context, args map[string]any) (string, error) {
	query, err := StringArg(args, "song_query")
	if err != nil {
		return "", err
	}

	t.notify("Adding '%s' to cart...", query)
	results := t.catalog.Search(ctx, query, 1)
	if len(results) == 0 {
		return fmt.Sprintf("Could not find song '%s'.", query), nil
	}

	msg := t.cart.Add(results[0])
	t.logger.Info("cart add", "song_id", results[0].ID, "result", msg)
	return msg, nil
}

func (t *Toolbox) removeSong(_ context.Context, args map[string]any) (string, error) {
	identifier, err := StringArg(args, "song_name_or_id")
	if err != nil {
		return "", err
	}
	return t.cart.Remove(identifier), nil
}

func (t *Toolbox) reviewCart(context.Context, map[string]any) (string, error) {
	return t.cart.Display(), nil
}

func (t *Toolbox) checkout(ctx context.Context, args map[string]any) (string, error) {
	if t.cart.Empty() {
		return "Cart is empty! add some songs first.", nil
	}

	name, err := StringArg(args, "playlist_name")
	if err != nil {
		return "", err
	}

	songs := t.cart.Songs()
	t.notify("Building playlist '%s' with %d songs...", name, len(songs))

	pid, err := t.catalog.CreatePlaylist(ctx, name, t.cart.IDs(), PlaylistDescription)
	if err != nil {
		t.logger.Error("checkout failed", "playlist", name, "error", err)
		return fmt.Sprintf("Error creating playlist: %v", err), nil
	}

	t.cart.Clear()

	if t.recorder != nil {
		record := models.NewPlaylistRecord(pid, name, PlaylistDescription, songs)
		record.SessionID = t.sessionID
		if err := t.recorder.RecordCheckout(ctx, record); err != nil {
			t.logger.Warn("failed to record checkout", "playlist_id", pid, "error", err)
		}
	}

	return fmt.Sprintf("Success! Playlist '%s' created. ID: %s. Cart cleared.", name, pid), nil
}
