package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytcurator/internal/models"
	"github.com/desertthunder/ytcurator/internal/shared"
)

const playlistColumns = "id, playlist_id, title, description, session_id, created_at"

// PlaylistRepository implements models.Repository[*models.PlaylistRecord] for checkout history.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a record and its songs with a generated ID
func (r *PlaylistRepository) Create(record *models.PlaylistRecord) error {
	return r.CreateContext(context.Background(), record)
}

// RecordCheckout stores a playlist created through checkout.
func (r *PlaylistRepository) RecordCheckout(ctx context.Context, record *models.PlaylistRecord) error {
	return r.CreateContext(ctx, record)
}

// CreateContext inserts record and its songs in one transaction.
func (r *PlaylistRepository) CreateContext(ctx context.Context, record *models.PlaylistRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()
	if record.CreatedAt().IsZero() {
		record.SetCreatedAt(time.Now().UTC())
	}

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO playlists (id, playlist_id, title, description, session_id, track_count, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, record.PlaylistID, record.Title, record.Description, record.SessionID, record.TrackCount(), record.CreatedAt())
		if err != nil {
			return fmt.Errorf("failed to insert playlist: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO playlist_songs (playlist_ref, position, song_id, title, artist, album, duration)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare song insert: %w", err)
		}
		defer stmt.Close()

		for i, s := range record.Songs {
			if _, err := stmt.ExecContext(ctx, id, i, s.ID, s.Title, s.Artist, s.Album, s.Duration); err != nil {
				return fmt.Errorf("failed to insert song %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	record.SetID(id)
	return nil
}

// Get retrieves a record and its songs by local ID
func (r *PlaylistRepository) Get(id string) (*models.PlaylistRecord, error) {
	ctx := context.Background()
	query := "SELECT " + playlistColumns + " FROM playlists WHERE id = ?"

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	if err := r.loadSongs(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Delete removes a record and its songs by local ID
func (r *PlaylistRepository) Delete(id string) error {
	return withTx(context.Background(), r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM playlist_songs WHERE playlist_ref = ?", id); err != nil {
			return fmt.Errorf("failed to delete songs: %w", err)
		}

		result, err := tx.Exec("DELETE FROM playlists WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete playlist: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("%w: playlist %s", shared.ErrNotFound, id)
		}
		return nil
	})
}

// List retrieves records newest first.
//
// Supported criteria: "session_id" (string) and "limit" (int).
func (r *PlaylistRepository) List(criteria map[string]any) ([]*models.PlaylistRecord, error) {
	ctx := context.Background()
	query := "SELECT " + playlistColumns + " FROM playlists WHERE 1 = 1"
	args := []any{}

	if sessionID, ok := criteria["session_id"].(string); ok && sessionID != "" {
		query += " AND session_id = ?"
		args = append(args, sessionID)
	}

	query += " ORDER BY created_at DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}

	var records []*models.PlaylistRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	// Songs are loaded after the cursor closes; a single-connection pool would block otherwise.
	rows.Close()

	for _, record := range records {
		if err := r.loadSongs(ctx, record); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (r *PlaylistRepository) loadSongs(ctx context.Context, record *models.PlaylistRecord) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT song_id, title, artist, album, duration
		FROM playlist_songs
		WHERE playlist_ref = ?
		ORDER BY position ASC
	`, record.ID())
	if err != nil {
		return fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	record.Songs = []models.Song{}
	for rows.Next() {
		var s models.Song
		if err := rows.Scan(&s.ID, &s.Title, &s.Artist, &s.Album, &s.Duration); err != nil {
			return fmt.Errorf("failed to scan song: %w", err)
		}
		record.Songs = append(record.Songs, s)
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.PlaylistRecord, error) {
	var (
		id          string
		playlistID  string
		title       string
		description string
		sessionID   string
		createdAt   time.Time
	)

	if err := row.Scan(&id, &playlistID, &title, &description, &sessionID, &createdAt); err != nil {
		return nil, err
	}

	record := models.NewPlaylistRecord(playlistID, title, description, nil)
	record.SetID(id)
	record.SetCreatedAt(createdAt)
	record.SessionID = sessionID
	return record, nil
}
