// package models defines the data model for the playlist curator
package models

import (
	"errors"
	"fmt"
	"time"
)

// Model defines the base interface for persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
type Repository[T Model] interface {
	Create(model T) error                        // Create inserts a new model into the database
	Get(id string) (T, error)                    // Get retrieves a model by its ID
	Delete(id string) error                      // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error)   // List retrieves all models matching the given criteria
}

var ErrInvalidModel = errors.New("invalid model")

// Song is one normalized catalog track.
//
// ID and Title are always non-empty for songs placed in a cart or shown to the model.
type Song struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	Duration string `json:"duration,omitempty"`
}

// Valid reports whether s carries the identifier and title every downstream consumer relies on.
func (s Song) Valid() bool {
	return s.ID != "" && s.Title != ""
}

// PlaylistRecord is a playlist created through checkout, kept as local history.
type PlaylistRecord struct {
	id          string
	createdAt   time.Time
	PlaylistID  string `json:"playlist_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	SessionID   string `json:"session_id,omitempty"`
	Songs       []Song `json:"songs"`
}

// NewPlaylistRecord creates a record for a freshly created playlist.
func NewPlaylistRecord(playlistID, title, description string, songs []Song) *PlaylistRecord {
	cp := make([]Song, len(songs))
	copy(cp, songs)
	return &PlaylistRecord{
		createdAt:   time.Now().UTC(),
		PlaylistID:  playlistID,
		Title:       title,
		Description: description,
		Songs:       cp,
	}
}

func (p *PlaylistRecord) ID() string           { return p.id }
func (p *PlaylistRecord) CreatedAt() time.Time { return p.createdAt }
func (p *PlaylistRecord) TrackCount() int      { return len(p.Songs) }

// SetID assigns the local identifier, used by repositories on insert and scan.
func (p *PlaylistRecord) SetID(id string) { p.id = id }

// SetCreatedAt overrides the creation time, used by repositories on scan.
func (p *PlaylistRecord) SetCreatedAt(t time.Time) { p.createdAt = t }

// Validate checks that the record identifies a remote playlist and every song is valid.
func (p *PlaylistRecord) Validate() error {
	if p.PlaylistID == "" {
		return fmt.Errorf("%w: playlist id is required", ErrInvalidModel)
	}
	if p.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidModel)
	}
	for i, s := range p.Songs {
		if !s.Valid() {
			return fmt.Errorf("%w: song %d is missing id or title", ErrInvalidModel, i+1)
		}
	}
	return nil
}

// PlaylistView is the JSON shape of a [PlaylistRecord].
type PlaylistView struct {
	ID          string    `json:"id"`
	PlaylistID  string    `json:"playlist_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	TrackCount  int       `json:"track_count"`
	CreatedAt   time.Time `json:"created_at"`
	Songs       []Song    `json:"songs"`
}

// View flattens p for serialization.
func (p *PlaylistRecord) View() PlaylistView {
	return PlaylistView{
		ID:          p.id,
		PlaylistID:  p.PlaylistID,
		Title:       p.Title,
		Description: p.Description,
		TrackCount:  p.TrackCount(),
		CreatedAt:   p.createdAt,
		Songs:       p.Songs,
	}
}
