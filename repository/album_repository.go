package repository

import (
	"context"
	"database/sql"
	"time"

	"musecrate/model"
)

// AlbumRepository defines the interface for album data operations.
type AlbumRepository interface {
	CreateAlbum(ctx context.Context, album *model.Album) (int64, error)
	GetAlbumByID(ctx context.Context, id int64) (*model.Album, error)
	GetAlbumsByUserID(ctx context.Context, userID int64) ([]*model.Album, error)
	SearchAlbums(ctx context.Context, userID int64, query string) ([]*model.Album, error)
	SetAlbumFavorite(ctx context.Context, id int64, favorite bool) error
	DeleteAlbum(ctx context.Context, id int64) error
}

// MySQLAlbumRepository is the MySQL implementation of AlbumRepository.
type MySQLAlbumRepository struct {
	db *sql.DB
}

// NewMySQLAlbumRepository creates a new MySQLAlbumRepository.
func NewMySQLAlbumRepository(db *sql.DB) *MySQLAlbumRepository {
	return &MySQLAlbumRepository{db: db}
}

// CreateAlbum inserts a new album and returns its ID.
func (r *MySQLAlbumRepository) CreateAlbum(ctx context.Context, album *model.Album) (int64, error) {
	query := `
		INSERT INTO albums (user_id, title, artist, cover_path, is_favorite, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	result, err := r.db.ExecContext(ctx, query,
		album.UserID,
		album.Title,
		album.Artist,
		album.CoverPath,
		album.IsFavorite,
		now,
		now,
	)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// GetAlbumByID retrieves an album by its ID.
func (r *MySQLAlbumRepository) GetAlbumByID(ctx context.Context, id int64) (*model.Album, error) {
	query := `
		SELECT id, user_id, title, artist, cover_path, is_favorite, created_at, updated_at
		FROM albums
		WHERE id = ?
	`

	album := &model.Album{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&album.ID,
		&album.UserID,
		&album.Title,
		&album.Artist,
		&album.CoverPath,
		&album.IsFavorite,
		&album.CreatedAt,
		&album.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return album, nil
}

// GetAlbumsByUserID retrieves all albums owned by a user.
func (r *MySQLAlbumRepository) GetAlbumsByUserID(ctx context.Context, userID int64) ([]*model.Album, error) {
	query := `
		SELECT id, user_id, title, artist, cover_path, is_favorite, created_at, updated_at
		FROM albums
		WHERE user_id = ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAlbums(rows)
}

// SearchAlbums retrieves the user's albums whose title or artist contains the
// query, case-insensitively.
func (r *MySQLAlbumRepository) SearchAlbums(ctx context.Context, userID int64, query string) ([]*model.Album, error) {
	sqlQuery := `
		SELECT DISTINCT id, user_id, title, artist, cover_path, is_favorite, created_at, updated_at
		FROM albums
		WHERE user_id = ? AND (LOWER(title) LIKE ? OR LOWER(artist) LIKE ?)
		ORDER BY created_at DESC
	`

	pattern := likePattern(query)
	rows, err := r.db.QueryContext(ctx, sqlQuery, userID, pattern, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAlbums(rows)
}

// SetAlbumFavorite updates the favorite flag of an album.
func (r *MySQLAlbumRepository) SetAlbumFavorite(ctx context.Context, id int64, favorite bool) error {
	query := `UPDATE albums SET is_favorite = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, favorite, time.Now(), id)
	return err
}

// DeleteAlbum deletes an album row. The schema's FK cascade catches any
// songs a caller did not already delete.
func (r *MySQLAlbumRepository) DeleteAlbum(ctx context.Context, id int64) error {
	query := `DELETE FROM albums WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func scanAlbums(rows *sql.Rows) ([]*model.Album, error) {
	var albums []*model.Album
	for rows.Next() {
		album := &model.Album{}
		err := rows.Scan(
			&album.ID,
			&album.UserID,
			&album.Title,
			&album.Artist,
			&album.CoverPath,
			&album.IsFavorite,
			&album.CreatedAt,
			&album.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		albums = append(albums, album)
	}
	return albums, rows.Err()
}
