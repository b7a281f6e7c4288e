// package cart holds the songs a user has picked for their next playlist
package cart

import (
	"fmt"
	"strings"

	"github.com/desertthunder/ytcurator/internal/models"
)

// Cart is an ordered, duplicate-free collection of songs.
//
// A Cart is not safe for concurrent use; callers serialize access per session.
type Cart struct {
	songs []models.Song
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add appends song unless a song with the same id is already present.
//
// The returned message describes the outcome for the user or model.
func (c *Cart) Add(song models.Song) string {
	if c.Contains(song.ID) {
		return fmt.Sprintf("'%s' is already in your cart.", song.Title)
	}

	c.songs = append(c.songs, song)
	return fmt.Sprintf("Added '%s' by %s to your cart. (Total: %d)", song.Title, song.Artist, len(c.songs))
}

// Remove deletes the first song whose id equals identifier or whose title contains it, ignoring case.
//
// Ambiguous matches resolve to the earliest inserted song.
func (c *Cart) Remove(identifier string) string {
	identifier = strings.ToLower(strings.TrimSpace(identifier))

	for i, song := range c.songs {
		if strings.EqualFold(song.ID, identifier) || strings.Contains(strings.ToLower(song.Title), identifier) {
			c.songs = append(c.songs[:i], c.songs[i+1:]...)
			return fmt.Sprintf("Removed '%s' from cart.", song.Title)
		}
	}

	return fmt.Sprintf("Could not find a song matching '%s' in your cart.", identifier)
}

// Contains reports whether a song with id is in the cart.
func (c *Cart) Contains(id string) bool {
	for _, s := range c.songs {
		if s.ID == id {
			return true
		}
	}
	return false
}

// Songs returns a copy of the cart contents in insertion order.
func (c *Cart) Songs() []models.Song {
	out := make([]models.Song, len(c.songs))
	copy(out, c.songs)
	return out
}

// IDs returns the song identifiers in insertion order.
func (c *Cart) IDs() []string {
	ids := make([]string, len(c.songs))
	for i, s := range c.songs {
		ids[i] = s.ID
	}
	return ids
}

func (c *Cart) Len() int { return len(c.songs) }

func (c *Cart) Empty() bool { return len(c.songs) == 0 }

// Clear empties the cart.
func (c *Cart) Clear() {
	c.songs = nil
}

// Display renders the cart as a 1-indexed listing.
func (c *Cart) Display() string {
	if len(c.songs) == 0 {
		return "Your cart is empty."
	}

	var b strings.Builder
	b.WriteString("Current Cart:\n")
	for i, s := range c.songs {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, s.Title, s.Artist)
	}
	return b.String()
}
