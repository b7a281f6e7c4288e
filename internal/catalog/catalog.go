// package catalog wraps the music catalog behind the operations the curator agent needs
package catalog

import (
	"context"

	"github.com/desertthunder/ytcurator/internal/models"
)

// Display defaults for fields the catalog leaves empty.
const (
	UnknownArtist = "Unknown Artist"
	UnknownAlbum  = "Unknown Album"
	UnknownTitle  = "Unknown Title"
	// SingleAlbum is used for radio rows without album information.
	SingleAlbum = "Single/Unknown"
)

// Catalog is the music catalog consumed by the curator tools.
//
// Lookup operations never fail: upstream problems are logged and yield an empty result.
// Records lacking an identifier are never returned.
type Catalog interface {
	// Search returns up to limit songs matching query from the song-only index.
	Search(ctx context.Context, query string, limit int) []models.Song
	// TopSongsForArtist resolves name to the first matching artist and returns up to limit of their songs.
	TopSongsForArtist(ctx context.Context, name string, limit int) []models.Song
	// Recommendations returns a radio listing seeded by seedID, never including the seed itself.
	Recommendations(ctx context.Context, seedID string, limit int) []models.Song
	// CreatePlaylist creates a private playlist containing ids in order and returns its identifier.
	CreatePlaylist(ctx context.Context, title string, ids []string, description string) (string, error)
	// Name returns the catalog's display name.
	Name() string
}
