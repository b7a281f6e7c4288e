// package formatter renders carts and recorded playlists as CSV, Markdown, plain text, JSON or YAML
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/desertthunder/ytcurator/internal/models"
	"github.com/desertthunder/ytcurator/internal/shared"
)

// Supported export formats.
const (
	FormatCSV      = "csv"
	FormatMarkdown = "md"
	FormatText     = "txt"
	FormatJSON     = "json"
	FormatYAML     = "yaml"
)

var contentTypes = map[string]string{
	FormatCSV:      "text/csv; charset=utf-8",
	FormatMarkdown: "text/markdown; charset=utf-8",
	FormatText:     "text/plain; charset=utf-8",
	FormatJSON:     "application/json",
	FormatYAML:     "application/yaml",
}

// Export is the neutral shape every exporter renders.
type Export struct {
	Title       string        `json:"title" yaml:"title"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	PlaylistID  string        `json:"playlist_id,omitempty" yaml:"playlist_id,omitempty"`
	CreatedAt   *time.Time    `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	Songs       []models.Song `json:"songs" yaml:"songs"`
}

// FromCart builds an export of the songs currently in a cart.
func FromCart(songs []models.Song) *Export {
	if songs == nil {
		songs = []models.Song{}
	}
	return &Export{Title: "Cart", Songs: songs}
}

// FromRecord builds an export of a recorded playlist.
func FromRecord(r *models.PlaylistRecord) *Export {
	created := r.CreatedAt()
	return &Export{
		Title:       r.Title,
		Description: r.Description,
		PlaylistID:  r.PlaylistID,
		CreatedAt:   &created,
		Songs:       r.Songs,
	}
}

// Formats lists the supported format names.
func Formats() []string {
	return []string{FormatCSV, FormatMarkdown, FormatText, FormatJSON, FormatYAML}
}

// ContentType returns the MIME type served for format.
func ContentType(format string) string {
	if ct, ok := contentTypes[normalize(format)]; ok {
		return ct
	}
	return "application/octet-stream"
}

func normalize(format string) string {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "markdown":
		return FormatMarkdown
	case "text", "plain":
		return FormatText
	case "yml":
		return FormatYAML
	default:
		return f
	}
}

// Render dispatches to the exporter for format.
func Render(export *Export, format string) ([]byte, error) {
	switch normalize(format) {
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown:
		return ExportToMarkdown(export)
	case FormatText:
		return ExportToText(export)
	case FormatJSON:
		return ExportToJSON(export)
	case FormatYAML:
		return ExportToYAML(export)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q (want one of %s)", shared.ErrInvalidFlag, format, strings.Join(Formats(), ", "))
	}
}

// ExportToCSV writes one row per song with columns: Position, ID, Title, Artist, Album, Duration
func ExportToCSV(export *Export) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Title", "Artist", "Album", "Duration"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, song := range export.Songs {
		record := []string{fmt.Sprint(i + 1), song.ID, song.Title, song.Artist, song.Album, song.Duration}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a heading, optional metadata and a numbered song list
func ExportToMarkdown(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Title)

	if export.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", export.Description)
	}
	if export.PlaylistID != "" {
		fmt.Fprintf(&buf, "**Playlist**: [%s](https://music.youtube.com/playlist?list=%s)\n\n", export.PlaylistID, export.PlaylistID)
	}

	fmt.Fprintf(&buf, "**Songs**: %d\n\n", len(export.Songs))

	buf.WriteString("## Songs\n\n")
	for i, song := range export.Songs {
		albumPart := ""
		if song.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", song.Album)
		}
		durationPart := ""
		if song.Duration != "" {
			durationPart = fmt.Sprintf(" [%s]", song.Duration)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s%s\n", i+1, song.Artist, song.Title, albumPart, durationPart)
	}

	return buf.Bytes(), nil
}

// ExportToText converts an export to plain text format
func ExportToText(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Title)
	if export.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", export.Description)
	}
	fmt.Fprintf(&buf, "Songs: %d\n\n", len(export.Songs))

	for i, song := range export.Songs {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, song.Title, song.Artist)
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders indented JSON
func ExportToJSON(export *Export) ([]byte, error) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToYAML renders the export as a YAML document
func ExportToYAML(export *Export) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(export); err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteExport renders export in format and writes it to path.
//
// Defaults to {title}.{format} in the working directory.
func WriteExport(export *Export, format, path string) (string, error) {
	data, err := Render(export, format)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = fmt.Sprintf("%s.%s", slug(export.Title), normalize(format))
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, s)
	if out == "" {
		return "playlist"
	}
	return out
}
