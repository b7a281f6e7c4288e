package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/ytcurator/internal/models"
	"github.com/desertthunder/ytcurator/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func testRecord(playlistID string, at time.Time) *models.PlaylistRecord {
	record := models.NewPlaylistRecord(playlistID, "Road Trip", "Created by AI Agent", []models.Song{
		{ID: "v1", Title: "Blinding Lights", Artist: "The Weeknd", Album: "After Hours", Duration: "3:20"},
		{ID: "v2", Title: "Levitating", Artist: "Dua Lipa", Album: "Future Nostalgia"},
	})
	record.SessionID = "sess-1"
	record.SetCreatedAt(at)
	return record
}

func TestPlaylistRepository(t *testing.T) {
	var _ models.Repository[*models.PlaylistRecord] = (*PlaylistRepository)(nil)

	t.Run("Create and Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		record := testRecord("PL1", time.Now().UTC())

		if err := repo.Create(record); err != nil {
			t.Fatalf("failed to create record: %v", err)
		}
		if record.ID() == "" {
			t.Fatal("record ID should be set after creation")
		}

		got, err := repo.Get(record.ID())
		if err != nil {
			t.Fatalf("failed to get record: %v", err)
		}
		if got.PlaylistID != "PL1" || got.Title != "Road Trip" || got.SessionID != "sess-1" {
			t.Errorf("unexpected record %+v", got)
		}
		if got.TrackCount() != 2 || got.Songs[0].ID != "v1" || got.Songs[1].Title != "Levitating" {
			t.Errorf("songs should round-trip in order, got %+v", got.Songs)
		}
		if got.Songs[0].Duration != "3:20" {
			t.Errorf("expected duration 3:20, got %q", got.Songs[0].Duration)
		}
	})

	t.Run("RecordCheckout", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		if err := repo.RecordCheckout(context.Background(), testRecord("PL2", time.Now().UTC())); err != nil {
			t.Fatalf("RecordCheckout() error = %v", err)
		}

		records, err := repo.List(nil)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(records) != 1 {
			t.Errorf("expected 1 record, got %d", len(records))
		}
	})

	t.Run("List newest first with criteria", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
		for i, pid := range []string{"PL_A", "PL_B", "PL_C"} {
			record := testRecord(pid, base.Add(time.Duration(i)*time.Hour))
			if pid == "PL_C" {
				record.SessionID = "other"
			}
			if err := repo.Create(record); err != nil {
				t.Fatalf("failed to create %s: %v", pid, err)
			}
		}

		all, err := repo.List(map[string]any{})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(all) != 3 || all[0].PlaylistID != "PL_C" || all[2].PlaylistID != "PL_A" {
			t.Errorf("expected newest first, got %v", playlistIDs(all))
		}
		for _, r := range all {
			if r.TrackCount() != 2 {
				t.Errorf("expected songs loaded for %s", r.PlaylistID)
			}
		}

		limited, _ := repo.List(map[string]any{"limit": 1})
		if len(limited) != 1 || limited[0].PlaylistID != "PL_C" {
			t.Errorf("unexpected limited list %v", playlistIDs(limited))
		}

		session, _ := repo.List(map[string]any{"session_id": "sess-1"})
		if len(session) != 2 || session[0].PlaylistID != "PL_B" {
			t.Errorf("unexpected session list %v", playlistIDs(session))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		record := testRecord("PL1", time.Now().UTC())
		if err := repo.Create(record); err != nil {
			t.Fatalf("failed to create record: %v", err)
		}

		if err := repo.Delete(record.ID()); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}

		var songs int
		if err := db.QueryRow("SELECT COUNT(*) FROM playlist_songs").Scan(&songs); err != nil {
			t.Fatalf("count songs: %v", err)
		}
		if songs != 0 {
			t.Errorf("expected songs removed, got %d", songs)
		}

		if _, err := repo.Get(record.ID()); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
	})
}

func TestPlaylistRepositoryErrors(t *testing.T) {
	t.Run("ValidationError", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		record := models.NewPlaylistRecord("", "Mix", "", nil)

		if err := repo.Create(record); !errors.Is(err, models.ErrInvalidModel) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if record.ID() != "" {
			t.Error("ID must stay empty when create fails")
		}
	})

	t.Run("InvalidSong", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewPlaylistRepository(db)
		record := models.NewPlaylistRecord("PL1", "Mix", "", []models.Song{{ID: "v1"}})

		if err := repo.Create(record); err == nil {
			t.Fatal("expected error for song without title")
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if _, err := NewPlaylistRepository(db).Get("nonexistent-id"); !errors.Is(err, shared.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("DeleteNotFound", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if err := NewPlaylistRepository(db).Delete("nonexistent-id"); !errors.Is(err, shared.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ClosedDatabase", func(t *testing.T) {
		db := setupTestDB(t)
		db.Close()

		repo := NewPlaylistRepository(db)
		if err := repo.Create(testRecord("PL1", time.Now().UTC())); err == nil {
			t.Error("expected error on closed database")
		}
		if _, err := repo.List(nil); err == nil {
			t.Error("expected error on closed database")
		}
	})
}

func playlistIDs(records []*models.PlaylistRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.PlaylistID
	}
	return out
}
