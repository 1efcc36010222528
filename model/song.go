package model

import "time"

// Song is an audio upload belonging to exactly one album.
type Song struct {
	ID         int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	AlbumID    int64     `json:"albumId" gorm:"index;not null"`
	Title      string    `json:"title" gorm:"size:255;not null"`
	AudioPath  string    `json:"audioPath" gorm:"size:767"` // object path in the media bucket
	IsFavorite bool      `json:"isFavorite"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
