package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/ytcurator/internal/models"
)

var _ list.Item = songItem{}

// songItem wraps [models.Song] to implement [list.Item].
type songItem struct {
	pos  int
	song models.Song
}

func (i songItem) FilterValue() string { return i.song.Title + " " + i.song.Artist }
func (i songItem) Title() string       { return fmt.Sprintf("%d. %s", i.pos, i.song.Title) }
func (i songItem) Description() string {
	desc := i.song.Artist
	if i.song.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.song.Album)
	}
	return desc
}

func songItems(songs []models.Song) []list.Item {
	items := make([]list.Item, len(songs))
	for i, s := range songs {
		items[i] = songItem{pos: i + 1, song: s}
	}
	return items
}
