package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytcurator/internal/formatter"
	"github.com/desertthunder/ytcurator/internal/models"
)

type historyEntry struct {
	ID         string        `json:"id"`
	PlaylistID string        `json:"playlist_id"`
	Title      string        `json:"title"`
	SessionID  string        `json:"session_id,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	Songs      []models.Song `json:"songs"`
}

func toHistoryEntry(rec *models.PlaylistRecord) historyEntry {
	return historyEntry{
		ID:         rec.ID(),
		PlaylistID: rec.PlaylistID,
		Title:      rec.Title,
		SessionID:  rec.SessionID,
		CreatedAt:  rec.CreatedAt(),
		Songs:      rec.Songs,
	}
}

// HistoryList prints the most recent checkouts.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	repo, db, err := r.openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if sid := cmd.String("session"); sid != "" {
		criteria["session_id"] = sid
	}

	records, err := repo.List(criteria)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		entries := make([]historyEntry, len(records))
		for i, rec := range records {
			entries[i] = toHistoryEntry(rec)
		}
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}

	if len(records) == 0 {
		return r.writePlain("No playlists created yet.\n")
	}

	r.writePlainHeader("Checkout history")
	for _, rec := range records {
		r.writePlain("%s  %s (%d songs)\n", rec.CreatedAt().Local().Format("2006-01-02 15:04"), rec.Title, rec.TrackCount())
		r.writePlain("    ID: %s | Playlist: %s\n", rec.ID(), rec.PlaylistID)
	}
	return nil
}

// HistoryShow prints one checkout, or exports it when --format is set.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requiredArg(cmd, "id")
	if err != nil {
		return err
	}

	repo, db, err := r.openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	rec, err := repo.Get(id)
	if err != nil {
		return err
	}

	export := formatter.FromRecord(rec)
	if format := cmd.String("format"); format != "" {
		path, err := formatter.WriteExport(export, format, cmd.String("output"))
		if err != nil {
			return err
		}
		r.logger.Info("exported playlist", "id", id, "path", path)
		return r.writePlain("✓ Exported '%s' to %s\n", rec.Title, path)
	}

	text, err := formatter.ExportToText(export)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(text); err != nil {
		return err
	}
	return r.writePlain("Playlist ID: %s\n", rec.PlaylistID)
}

// HistoryDelete removes a checkout from local history. The remote playlist is left untouched.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := requiredArg(cmd, "id")
	if err != nil {
		return err
	}

	repo, db, err := r.openHistory()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repo.Delete(id); err != nil {
		return err
	}
	return r.writePlain("✓ Removed %s from history\n", id)
}
