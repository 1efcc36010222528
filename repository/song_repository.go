package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"musecrate/model"
)

// SongRepository defines the interface for song data operations.
type SongRepository interface {
	CreateSong(ctx context.Context, song *model.Song) (int64, error)
	GetSongByID(ctx context.Context, id int64) (*model.Song, error)
	GetSongsByAlbumID(ctx context.Context, albumID int64) ([]*model.Song, error)
	GetSongsByUserID(ctx context.Context, userID int64, favoritesOnly bool) ([]*model.Song, error)
	SearchSongs(ctx context.Context, query string) ([]*model.Song, error)
	SetSongFavorite(ctx context.Context, id int64, favorite bool) error
	DeleteSong(ctx context.Context, id int64) error
}

// MySQLSongRepository is the MySQL implementation of SongRepository.
type MySQLSongRepository struct {
	db *sql.DB
}

// NewMySQLSongRepository creates a new MySQLSongRepository.
func NewMySQLSongRepository(db *sql.DB) *MySQLSongRepository {
	return &MySQLSongRepository{db: db}
}

// CreateSong inserts a new song and returns its ID.
func (r *MySQLSongRepository) CreateSong(ctx context.Context, song *model.Song) (int64, error) {
	query := `
		INSERT INTO songs (album_id, title, audio_path, is_favorite, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	result, err := r.db.ExecContext(ctx, query,
		song.AlbumID,
		song.Title,
		song.AudioPath,
		song.IsFavorite,
		now,
		now,
	)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// GetSongByID retrieves a song by its ID.
func (r *MySQLSongRepository) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	query := `
		SELECT id, album_id, title, audio_path, is_favorite, created_at, updated_at
		FROM songs
		WHERE id = ?
	`

	song := &model.Song{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&song.ID,
		&song.AlbumID,
		&song.Title,
		&song.AudioPath,
		&song.IsFavorite,
		&song.CreatedAt,
		&song.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return song, nil
}

// GetSongsByAlbumID retrieves all songs of an album.
func (r *MySQLSongRepository) GetSongsByAlbumID(ctx context.Context, albumID int64) ([]*model.Song, error) {
	query := `
		SELECT id, album_id, title, audio_path, is_favorite, created_at, updated_at
		FROM songs
		WHERE album_id = ?
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSongs(rows)
}

// GetSongsByUserID retrieves the songs of every album owned by the user,
// optionally restricted to favorites.
func (r *MySQLSongRepository) GetSongsByUserID(ctx context.Context, userID int64, favoritesOnly bool) ([]*model.Song, error) {
	query := `
		SELECT s.id, s.album_id, s.title, s.audio_path, s.is_favorite, s.created_at, s.updated_at
		FROM songs s
		JOIN albums a ON a.id = s.album_id
		WHERE a.user_id = ?
	`
	args := []interface{}{userID}
	if favoritesOnly {
		query += " AND s.is_favorite = TRUE"
	}
	query += " ORDER BY s.created_at ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSongs(rows)
}

// SearchSongs retrieves songs of any owner whose title contains the query,
// case-insensitively.
func (r *MySQLSongRepository) SearchSongs(ctx context.Context, query string) ([]*model.Song, error) {
	sqlQuery := `
		SELECT DISTINCT id, album_id, title, audio_path, is_favorite, created_at, updated_at
		FROM songs
		WHERE LOWER(title) LIKE ?
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, sqlQuery, likePattern(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSongs(rows)
}

// SetSongFavorite updates the favorite flag of a song.
func (r *MySQLSongRepository) SetSongFavorite(ctx context.Context, id int64, favorite bool) error {
	query := `UPDATE songs SET is_favorite = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, favorite, time.Now(), id)
	return err
}

// DeleteSong deletes a song.
func (r *MySQLSongRepository) DeleteSong(ctx context.Context, id int64) error {
	query := `DELETE FROM songs WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func scanSongs(rows *sql.Rows) ([]*model.Song, error) {
	var songs []*model.Song
	for rows.Next() {
		song := &model.Song{}
		err := rows.Scan(
			&song.ID,
			&song.AlbumID,
			&song.Title,
			&song.AudioPath,
			&song.IsFavorite,
			&song.CreatedAt,
			&song.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a case-insensitive LIKE pattern for substring matching.
// LIKE metacharacters in the query are escaped so they match literally.
func likePattern(query string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
}
